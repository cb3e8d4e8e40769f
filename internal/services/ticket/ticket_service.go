package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/models"
)

// ErrNotFound is returned when a ticket does not exist
var ErrNotFound = errors.New("ticket not found")

// Service is the settlement engine's view of the ticket subsystem. The
// ticket lifecycle (items, discounts, voiding) lives elsewhere; this only
// reads tickets and applies payment totals.
type Service struct {
	db *gorm.DB
}

// NewService creates a new ticket service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns a ticket by id
func (s *Service) Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).First(&t, "id = ?", ticketID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return &t, nil
}

// UpdatePaymentStatus writes the recomputed payment totals onto a ticket
func (s *Service) UpdatePaymentStatus(ctx context.Context, ticketID uuid.UUID, amountPaid, amountDue float64, status models.TicketStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Updates(map[string]interface{}{
			"amount_paid": amountPaid,
			"amount_due":  amountDue,
			"status":      status,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
