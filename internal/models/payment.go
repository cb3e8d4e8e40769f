package models

import (
	"github.com/google/uuid"
)

// PaymentMethod is the rail used to settle a ticket. Only M-Pesa STK push is
// wired today; cash and card settle outside this engine.
type PaymentMethod string

const (
	PaymentMethodMpesa PaymentMethod = "mpesa"
)

// AttemptStatus represents the lifecycle of a payment attempt
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusFailed    AttemptStatus = "failed"
	AttemptStatusCancelled AttemptStatus = "cancelled"
)

// Terminal reports whether the status can no longer change
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusCompleted || s == AttemptStatusFailed || s == AttemptStatusCancelled
}

// PaymentAttempt is one initiated STK push against a ticket. Attempts are
// created pending, mutated only by the reconciler and never deleted; a
// retried payment creates a new row.
type PaymentAttempt struct {
	Base
	TicketID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"ticket_id"`
	BranchID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"branch_id"`
	BusinessID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"business_id"`
	Method            PaymentMethod `gorm:"type:varchar(20);not null;default:'mpesa'" json:"method"`
	Amount            int64         `gorm:"not null" json:"amount"`
	PhoneNumber       string        `gorm:"type:varchar(20);not null" json:"phone_number"`
	CheckoutRequestID string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string        `gorm:"type:varchar(100)" json:"merchant_request_id"`
	Status            AttemptStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReceiptNumber     string        `gorm:"type:varchar(50)" json:"receipt_number"`
	ResultCode        *int          `json:"result_code,omitempty"`
	ResultDesc        string        `gorm:"type:text" json:"result_desc"`
	Metadata          JSON          `gorm:"type:jsonb" json:"metadata"`
}

// CallbackResult is the persisted, deduplicated outcome of a provider webhook
// delivery. CheckoutRequestID is unique: redelivery of the same callback must
// never create a second row or re-trigger reconciliation.
type CallbackResult struct {
	Base
	CheckoutRequestID string  `gorm:"type:varchar(100);not null;uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string  `gorm:"type:varchar(100)" json:"merchant_request_id"`
	ResultCode        int     `gorm:"not null" json:"result_code"`
	ResultDesc        string  `gorm:"type:text" json:"result_desc"`
	Amount            float64 `gorm:"type:decimal(20,2)" json:"amount"`
	PhoneNumber       string  `gorm:"type:varchar(20)" json:"phone_number"`
	ReceiptNumber     string  `gorm:"type:varchar(50)" json:"receipt_number"`
	TransactionDate   string  `gorm:"type:varchar(20)" json:"transaction_date"`
	Balance           string  `gorm:"type:varchar(50)" json:"balance"`
	Processed         bool    `gorm:"default:false" json:"processed"`
}
