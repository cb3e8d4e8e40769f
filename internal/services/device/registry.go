package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/models"
)

// ErrNotFound is returned when a device id has never been registered
var ErrNotFound = errors.New("device not found")

// Registry resolves terminal device identifiers to their branch and
// business. Devices are provisioned explicitly through Register; resolving
// an unknown device is an error, never an implicit create.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a new device registry
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Resolve returns the branch and business a device belongs to
func (r *Registry) Resolve(ctx context.Context, deviceID string) (uuid.UUID, uuid.UUID, error) {
	var device models.Device
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND active = ?", deviceID, true).
		First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, uuid.Nil, ErrNotFound
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to resolve device: %w", err)
	}

	return device.BranchID, device.BusinessID, nil
}

// RegisterRequest provisions a terminal for a branch
type RegisterRequest struct {
	DeviceID   string
	BranchID   uuid.UUID
	BusinessID uuid.UUID
	Label      string
}

// Register provisions a device, reactivating it if it was registered before
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*models.Device, error) {
	var existing models.Device
	err := r.db.WithContext(ctx).Where("device_id = ?", req.DeviceID).First(&existing).Error
	if err == nil {
		existing.BranchID = req.BranchID
		existing.BusinessID = req.BusinessID
		existing.Label = req.Label
		existing.Active = true
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update device: %w", err)
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	device := models.Device{
		DeviceID:   req.DeviceID,
		BranchID:   req.BranchID,
		BusinessID: req.BusinessID,
		Label:      req.Label,
		Active:     true,
	}
	if err := r.db.WithContext(ctx).Create(&device).Error; err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	return &device, nil
}
