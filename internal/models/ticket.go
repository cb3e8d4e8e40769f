package models

import (
	"github.com/google/uuid"
)

// TicketStatus represents the status of a POS ticket
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is the payment-facing view of a POS ticket. The ticket itself is
// owned by the sales subsystem; this engine only reads it and writes payment
// totals through the ticket service.
type Ticket struct {
	Base
	BranchID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"branch_id"`
	BusinessID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"business_id"`
	TotalAmount float64      `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	AmountPaid  float64      `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`
	AmountDue   float64      `gorm:"type:decimal(20,2);not null;default:0" json:"amount_due"`
	Status      TicketStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}
