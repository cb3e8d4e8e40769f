package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
)

// CallbackScope carries the routing identifiers encoded in the webhook path,
// a second source of the same context held by the correlation record
type CallbackScope struct {
	BusinessID uuid.UUID
	BranchID   uuid.UUID
}

// ProcessCallback validates a provider callback against the correlation
// record, persists the result exactly once and reconciles the attempt. A
// redelivered callback is a no-op: the unique checkout id guarantees one
// result row and one reconciliation no matter how often the provider
// retries.
func (s *Service) ProcessCallback(ctx context.Context, scope *CallbackScope, cb *mpesa.STKCallback) error {
	if cb.CheckoutRequestID == "" {
		return ErrMissingCheckoutID
	}

	rec, found, err := s.cache.GetCorrelation(ctx, cb.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("correlation lookup failed: %w", err)
	}
	if !found {
		log.Printf("callback for unknown checkout %s dropped", cb.CheckoutRequestID)
		return ErrCorrelationNotFound
	}

	if scope != nil && (scope.BusinessID != rec.BusinessID || scope.BranchID != rec.BranchID) {
		log.Printf("callback for checkout %s routed to business %s branch %s but correlates to business %s branch %s",
			cb.CheckoutRequestID, scope.BusinessID, scope.BranchID, rec.BusinessID, rec.BranchID)
		return ErrRoutingMismatch
	}

	result := &models.CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Amount:            cb.Amount(),
		PhoneNumber:       cb.PhoneNumber(),
		ReceiptNumber:     cb.ReceiptNumber(),
		TransactionDate:   cb.TransactionDate(),
		Balance:           cb.Balance(),
	}

	created, err := s.results.CreateOnce(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to persist callback result: %w", err)
	}
	if !created {
		log.Printf("duplicate callback for checkout %s ignored", cb.CheckoutRequestID)
		return nil
	}

	if err := s.reconcile(ctx, rec.TicketID, result); err != nil {
		return err
	}

	if err := s.results.MarkProcessed(ctx, result.CheckoutRequestID); err != nil {
		log.Printf("failed to mark result %s processed: %v", result.CheckoutRequestID, err)
	}

	// Fan the outcome out so the terminal's next poll sees it without a
	// database read, then drop the correlation record.
	if err := s.cache.PutResult(ctx, result); err != nil {
		log.Printf("failed to cache result for checkout %s: %v", result.CheckoutRequestID, err)
	}
	if err := s.cache.Broadcast(ctx, rec.BranchID, result); err != nil {
		log.Printf("failed to broadcast result for branch %s: %v", rec.BranchID, err)
	}
	if err := s.cache.DeleteCorrelation(ctx, result.CheckoutRequestID); err != nil {
		log.Printf("failed to evict correlation record %s: %v", result.CheckoutRequestID, err)
	}

	return nil
}

// reconcile applies a callback result to the matching pending attempt and,
// on success, to the ticket's payment totals. This is the only code path
// that writes ticket totals from this engine.
func (s *Service) reconcile(ctx context.Context, ticketID uuid.UUID, result *models.CallbackResult) error {
	var target models.AttemptStatus
	switch mpesa.StatusForCode(result.ResultCode) {
	case mpesa.StatusSuccess:
		target = models.AttemptStatusCompleted
	case mpesa.StatusCancelled:
		target = models.AttemptStatusCancelled
	default:
		target = models.AttemptStatusFailed
	}

	code := result.ResultCode
	changed, err := s.attempts.TransitionIfPending(ctx, result.CheckoutRequestID, target, AttemptUpdate{
		ReceiptNumber: result.ReceiptNumber,
		ResultCode:    &code,
		ResultDesc:    result.ResultDesc,
	})
	if err != nil {
		return fmt.Errorf("failed to transition attempt: %w", err)
	}
	if !changed {
		// Already terminal: a racing callback or status check got here
		// first.
		log.Printf("attempt for checkout %s already settled", result.CheckoutRequestID)
		return nil
	}

	if target != models.AttemptStatusCompleted {
		return nil
	}

	paid, err := s.attempts.SumCompletedForTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to sum completed attempts: %w", err)
	}

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to load ticket for reconciliation: %w", err)
	}

	amountPaid := float64(paid)
	amountDue := ticket.TotalAmount - amountPaid
	if amountDue < 0 {
		amountDue = 0
	}

	status := models.TicketStatusActive
	if amountDue == 0 {
		status = models.TicketStatusCompleted
	}

	if err := s.tickets.UpdatePaymentStatus(ctx, ticketID, amountPaid, amountDue, status); err != nil {
		return fmt.Errorf("failed to update ticket payment status: %w", err)
	}

	return nil
}
