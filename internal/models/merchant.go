package models

import (
	"github.com/google/uuid"
)

// Device is a registered POS terminal. Devices are provisioned explicitly at
// setup time; payment initiation never creates one.
type Device struct {
	Base
	DeviceID   string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"device_id"`
	BranchID   uuid.UUID `gorm:"type:uuid;not null;index" json:"branch_id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	Label      string    `gorm:"type:varchar(100)" json:"label"`
	Active     bool      `gorm:"default:true" json:"active"`
}

// BranchCredential holds the Daraja credential set for one branch. A branch
// without an active credential set cannot take mobile-money payments.
type BranchCredential struct {
	Base
	BranchID       uuid.UUID `gorm:"type:uuid;not null;index" json:"branch_id"`
	BusinessID     uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	ShortCode      string    `gorm:"type:varchar(20);not null" json:"short_code"`
	ConsumerKey    string    `gorm:"type:varchar(100);not null" json:"-"`
	ConsumerSecret string    `gorm:"type:varchar(100);not null" json:"-"`
	Passkey        string    `gorm:"type:varchar(100);not null" json:"-"`
	Environment    string    `gorm:"type:varchar(20);not null;default:'sandbox'" json:"environment"`
	Active         bool      `gorm:"default:true" json:"active"`
}
