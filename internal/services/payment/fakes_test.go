package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
)

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*models.PaymentAttempt
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]*models.PaymentAttempt)}
}

func (f *fakeAttempts) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	cp := *attempt
	f.attempts[attempt.CheckoutRequestID] = &cp
	return nil
}

func (f *fakeAttempts) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[checkoutRequestID]
	if !ok {
		return nil, errors.New("attempt not found")
	}
	cp := *attempt
	return &cp, nil
}

func (f *fakeAttempts) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentAttempt
	for _, attempt := range f.attempts {
		if attempt.TicketID == ticketID {
			out = append(out, *attempt)
		}
	}
	return out, nil
}

func (f *fakeAttempts) TransitionIfPending(ctx context.Context, checkoutRequestID string, to models.AttemptStatus, update AttemptUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[checkoutRequestID]
	if !ok || attempt.Status != models.AttemptStatusPending {
		return false, nil
	}
	attempt.Status = to
	attempt.ResultDesc = update.ResultDesc
	if update.ReceiptNumber != "" {
		attempt.ReceiptNumber = update.ReceiptNumber
	}
	if update.ResultCode != nil {
		code := *update.ResultCode
		attempt.ResultCode = &code
	}
	return true, nil
}

func (f *fakeAttempts) SumCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, attempt := range f.attempts {
		if attempt.TicketID == ticketID && attempt.Status == models.AttemptStatusCompleted {
			total += attempt.Amount
		}
	}
	return total, nil
}

func (f *fakeAttempts) StalePending(ctx context.Context, olderThan time.Time) ([]models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentAttempt
	for _, attempt := range f.attempts {
		if attempt.Status == models.AttemptStatusPending && attempt.CreatedAt.Before(olderThan) {
			out = append(out, *attempt)
		}
	}
	return out, nil
}

type fakeResults struct {
	mu   sync.Mutex
	rows map[string]*models.CallbackResult
}

func newFakeResults() *fakeResults {
	return &fakeResults{rows: make(map[string]*models.CallbackResult)}
}

func (f *fakeResults) CreateOnce(ctx context.Context, result *models.CallbackResult) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[result.CheckoutRequestID]; exists {
		return false, nil
	}
	cp := *result
	f.rows[result.CheckoutRequestID] = &cp
	return true, nil
}

func (f *fakeResults) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.CallbackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.rows[checkoutRequestID]
	if !ok {
		return nil, errors.New("result not found")
	}
	cp := *result
	return &cp, nil
}

func (f *fakeResults) MarkProcessed(ctx context.Context, checkoutRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result, ok := f.rows[checkoutRequestID]; ok {
		result.Processed = true
	}
	return nil
}

func (f *fakeResults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*models.Ticket
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{tickets: make(map[uuid.UUID]*models.Ticket)}
}

func (f *fakeTickets) put(t *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tickets[t.ID] = &cp
}

func (f *fakeTickets) Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) UpdatePaymentStatus(ctx context.Context, ticketID uuid.UUID, amountPaid, amountDue float64, status models.TicketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return errors.New("ticket not found")
	}
	t.AmountPaid = amountPaid
	t.AmountDue = amountDue
	t.Status = status
	return nil
}

type fakeDevices struct {
	branchID   uuid.UUID
	businessID uuid.UUID
	err        error
}

func (f *fakeDevices) Resolve(ctx context.Context, deviceID string) (uuid.UUID, uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, uuid.Nil, f.err
	}
	return f.branchID, f.businessID, nil
}

type fakeCredentials struct {
	creds *models.BranchCredential
	err   error
}

func (f *fakeCredentials) ActiveForBranch(ctx context.Context, branchID uuid.UUID) (*models.BranchCredential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.creds, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	pushResp  *mpesa.STKPushResponse
	pushErr   error
	queryResp *mpesa.STKQueryResponse
	queryErr  error
	pushCalls int
	lastPush  mpesa.STKPushRequest
}

func (f *fakeGateway) STKPush(ctx context.Context, request mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++
	f.lastPush = request
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return f.pushResp, nil
}

func (f *fakeGateway) STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}
