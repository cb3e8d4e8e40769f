package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment"
)

// AttemptRepository persists payment attempts in postgres
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new attempt
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// FindByCheckoutID returns the attempt for a checkout id
func (r *AttemptRepository) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutRequestID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListByTicket returns the attempts for a ticket, newest first
func (r *AttemptRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// TransitionIfPending is a compare-and-set: the UPDATE only matches while the
// attempt is still pending, so a duplicate or racing callback can never
// settle the same attempt twice.
func (r *AttemptRepository) TransitionIfPending(ctx context.Context, checkoutRequestID string, to models.AttemptStatus, update payment.AttemptUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":      to,
		"result_desc": update.ResultDesc,
	}
	if update.ReceiptNumber != "" {
		values["receipt_number"] = update.ReceiptNumber
	}
	if update.ResultCode != nil {
		values["result_code"] = *update.ResultCode
	}

	result := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, models.AttemptStatusPending).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// SumCompletedForTicket sums the amounts of all completed attempts for a ticket
func (r *AttemptRepository) SumCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("ticket_id = ? AND status = ?", ticketID, models.AttemptStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// StalePending returns pending attempts created before the given time
func (r *AttemptRepository) StalePending(ctx context.Context, olderThan time.Time) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.AttemptStatusPending, olderThan).
		Order("created_at ASC").
		Find(&attempts).Error
	return attempts, err
}

// ResultRepository persists callback results in postgres
type ResultRepository struct {
	db *gorm.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// CreateOnce inserts the result unless one already exists for its checkout
// id. The unique index plus ON CONFLICT DO NOTHING makes the write race-safe
// across concurrently delivered duplicates.
func (r *ResultRepository) CreateOnce(ctx context.Context, result *models.CallbackResult) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_request_id"}},
			DoNothing: true,
		}).
		Create(result)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// FindByCheckoutID returns the persisted result for a checkout id
func (r *ResultRepository) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.CallbackResult, error) {
	var result models.CallbackResult
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutRequestID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no callback result for checkout id %s", checkoutRequestID)
		}
		return nil, err
	}
	return &result, nil
}

// MarkProcessed flags a result as applied by the reconciler
func (r *ResultRepository) MarkProcessed(ctx context.Context, checkoutRequestID string) error {
	return r.db.WithContext(ctx).Model(&models.CallbackResult{}).
		Where("checkout_request_id = ?", checkoutRequestID).
		Update("processed", true).Error
}

// CredentialRepository resolves branch credential sets
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// ActiveForBranch returns the active credential set for a branch
func (r *CredentialRepository) ActiveForBranch(ctx context.Context, branchID uuid.UUID) (*models.BranchCredential, error) {
	var creds models.BranchCredential
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND active = ?", branchID, true).
		First(&creds).Error
	if err != nil {
		return nil, err
	}
	return &creds, nil
}
