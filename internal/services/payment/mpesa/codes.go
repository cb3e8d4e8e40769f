package mpesa

// PaymentStatus is the terminal-facing view of a payment outcome
type PaymentStatus string

const (
	StatusSuccess   PaymentStatus = "success"
	StatusCancelled PaymentStatus = "cancelled"
	StatusFailed    PaymentStatus = "failed"
	StatusPending   PaymentStatus = "pending"
)

// Daraja STK result codes
const (
	ResultCodeSuccess            = 0
	ResultCodeInsufficientFunds  = 1
	ResultCodeTransactionExpired = 1019
	ResultCodeInvalidInitiator   = 1025
	ResultCodeUserCancelled      = 1032
	ResultCodeDSTimeout          = 1037 // payer unreachable, push timed out
	ResultCodeWrongPin           = 2001
	ResultCodePushFailure        = 9999
)

var failedCodes = map[int]bool{
	ResultCodeInsufficientFunds:  true,
	ResultCodeTransactionExpired: true,
	ResultCodeInvalidInitiator:   true,
	ResultCodeDSTimeout:          true,
	ResultCodeWrongPin:           true,
	ResultCodePushFailure:        true,
}

// StatusForCode maps a provider result code onto a payment status. The
// mapping is a fixed table, independent of the free-text description; codes
// we have not seen stay pending rather than guessing a terminal state.
func StatusForCode(code int) PaymentStatus {
	switch {
	case code == ResultCodeSuccess:
		return StatusSuccess
	case code == ResultCodeUserCancelled:
		return StatusCancelled
	case failedCodes[code]:
		return StatusFailed
	default:
		return StatusPending
	}
}
