package mpesa

import (
	"fmt"
	"strconv"
)

// CallbackEnvelope is the webhook body Daraja posts to the callback URL
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback carries the payment outcome. CallbackMetadata is only present
// on success.
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// CallbackItem is one name/value pair of callback metadata. Values arrive as
// numbers or strings depending on the field.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// metadataString returns the named metadata item rendered as a string
func (cb *STKCallback) metadataString(name string) string {
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name != name || item.Value == nil {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			// Integral values (timestamps, phone numbers) must not pick up
			// an exponent or decimal point.
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// metadataNumber returns the named metadata item as a float
func (cb *STKCallback) metadataNumber(name string) float64 {
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name != name || item.Value == nil {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// Amount returns the paid amount from callback metadata
func (cb *STKCallback) Amount() float64 { return cb.metadataNumber("Amount") }

// ReceiptNumber returns the provider receipt from callback metadata
func (cb *STKCallback) ReceiptNumber() string { return cb.metadataString("MpesaReceiptNumber") }

// PhoneNumber returns the payer phone from callback metadata
func (cb *STKCallback) PhoneNumber() string { return cb.metadataString("PhoneNumber") }

// TransactionDate returns the provider transaction timestamp from callback metadata
func (cb *STKCallback) TransactionDate() string { return cb.metadataString("TransactionDate") }

// Balance returns the account balance from callback metadata
func (cb *STKCallback) Balance() string { return cb.metadataString("Balance") }
