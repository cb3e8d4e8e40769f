package payment

import "errors"

// ValidationError rejects a payment request before it reaches the gateway
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Configuration and correlation errors. Validation errors say what the
// cashier did wrong; these say what the operator has to fix.
var (
	ErrDeviceUnresolved         = errors.New("device is not registered to a branch")
	ErrCredentialsNotConfigured = errors.New("branch has no active mobile-money credentials")
	ErrTicketNotPayable         = errors.New("ticket is not open for payment")
	ErrMissingCheckoutID        = errors.New("callback has no checkout identifier")
	ErrCorrelationNotFound      = errors.New("no pending payment matches this callback")
	ErrRoutingMismatch          = errors.New("callback routing does not match the stored payment context")
)
