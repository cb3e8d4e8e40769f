package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/cache"
	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
	"github.com/dukapos/backend/internal/services/ticket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memAttempts struct {
	mu   sync.Mutex
	rows map[string]*models.PaymentAttempt
}

func (m *memAttempts) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt.ID = uuid.New()
	attempt.CreatedAt = time.Now()
	cp := *attempt
	m.rows[attempt.CheckoutRequestID] = &cp
	return nil
}

func (m *memAttempts) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.rows[checkoutRequestID]
	if !ok {
		return nil, errors.New("attempt not found")
	}
	cp := *attempt
	return &cp, nil
}

func (m *memAttempts) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentAttempt
	for _, attempt := range m.rows {
		if attempt.TicketID == ticketID {
			out = append(out, *attempt)
		}
	}
	return out, nil
}

func (m *memAttempts) TransitionIfPending(ctx context.Context, checkoutRequestID string, to models.AttemptStatus, update payment.AttemptUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.rows[checkoutRequestID]
	if !ok || attempt.Status != models.AttemptStatusPending {
		return false, nil
	}
	attempt.Status = to
	attempt.ReceiptNumber = update.ReceiptNumber
	attempt.ResultDesc = update.ResultDesc
	if update.ResultCode != nil {
		code := *update.ResultCode
		attempt.ResultCode = &code
	}
	return true, nil
}

func (m *memAttempts) SumCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, attempt := range m.rows {
		if attempt.TicketID == ticketID && attempt.Status == models.AttemptStatusCompleted {
			total += attempt.Amount
		}
	}
	return total, nil
}

func (m *memAttempts) StalePending(ctx context.Context, olderThan time.Time) ([]models.PaymentAttempt, error) {
	return nil, nil
}

type memResults struct {
	mu   sync.Mutex
	rows map[string]*models.CallbackResult
}

func (m *memResults) CreateOnce(ctx context.Context, result *models.CallbackResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[result.CheckoutRequestID]; exists {
		return false, nil
	}
	cp := *result
	m.rows[result.CheckoutRequestID] = &cp
	return true, nil
}

func (m *memResults) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.CallbackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.rows[checkoutRequestID]
	if !ok {
		return nil, errors.New("result not found")
	}
	cp := *result
	return &cp, nil
}

func (m *memResults) MarkProcessed(ctx context.Context, checkoutRequestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result, ok := m.rows[checkoutRequestID]; ok {
		result.Processed = true
	}
	return nil
}

type memTickets struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Ticket
}

func (m *memTickets) Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[ticketID]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTickets) UpdatePaymentStatus(ctx context.Context, ticketID uuid.UUID, amountPaid, amountDue float64, status models.TicketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[ticketID]
	if !ok {
		return ticket.ErrNotFound
	}
	t.AmountPaid = amountPaid
	t.AmountDue = amountDue
	t.Status = status
	return nil
}

type staticDevices struct {
	branchID   uuid.UUID
	businessID uuid.UUID
}

func (d *staticDevices) Resolve(ctx context.Context, deviceID string) (uuid.UUID, uuid.UUID, error) {
	return d.branchID, d.businessID, nil
}

type staticCredentials struct{}

func (staticCredentials) ActiveForBranch(ctx context.Context, branchID uuid.UUID) (*models.BranchCredential, error) {
	return &models.BranchCredential{
		BranchID:       branchID,
		ShortCode:      "174379",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Passkey:        "passkey",
		Environment:    "sandbox",
		Active:         true,
	}, nil
}

type stubGateway struct {
	checkoutRequestID string
}

func (g *stubGateway) STKPush(ctx context.Context, request mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	return &mpesa.STKPushResponse{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: g.checkoutRequestID,
		ResponseCode:      "0",
	}, nil
}

func (g *stubGateway) STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	return &mpesa.STKQueryResponse{CheckoutRequestID: checkoutRequestID, ResponseCode: "0"}, nil
}

// handlerFixture wires a payment service from in-memory collaborators behind
// the HTTP handlers under test
type handlerFixture struct {
	service  *payment.Service
	attempts *memAttempts
	results  *memResults
	tickets  *memTickets

	branchID   uuid.UUID
	businessID uuid.UUID
	ticketID   uuid.UUID
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		attempts:   &memAttempts{rows: make(map[string]*models.PaymentAttempt)},
		results:    &memResults{rows: make(map[string]*models.CallbackResult)},
		tickets:    &memTickets{rows: make(map[uuid.UUID]*models.Ticket)},
		branchID:   uuid.New(),
		businessID: uuid.New(),
		ticketID:   uuid.New(),
	}

	f.tickets.rows[f.ticketID] = &models.Ticket{
		BranchID:    f.branchID,
		BusinessID:  f.businessID,
		TotalAmount: 200,
		AmountDue:   200,
		Status:      models.TicketStatusActive,
	}
	f.tickets.rows[f.ticketID].ID = f.ticketID

	f.service = payment.NewService(payment.ServiceConfig{
		Attempts:    f.attempts,
		Results:     f.results,
		Tickets:     f.tickets,
		Devices:     &staticDevices{branchID: f.branchID, businessID: f.businessID},
		Credentials: staticCredentials{},
		Cache:       cache.NewPaymentCache(cache.NewMemoryStore(), time.Hour, 5*time.Minute, 2*time.Minute),
		Gateway: func(creds mpesa.Credentials) payment.Gateway {
			return &stubGateway{checkoutRequestID: "ws_CO_http_1"}
		},
		CallbackBaseURL: "https://pos.example.com",
	})
	return f
}

// router builds a gin engine with the payment and webhook routes mounted the
// way the application mounts them
func (f *handlerFixture) router() *gin.Engine {
	r := gin.New()

	paymentHandler := NewPaymentHandler(f.service)
	webhookHandler := NewWebhookHandler(f.service)

	api := r.Group("/api/v1")
	api.POST("/payments/initiate", paymentHandler.InitiatePayment)
	api.POST("/payments/status", paymentHandler.CheckStatus)
	api.GET("/payments/ticket/:ticketID", paymentHandler.ListAttempts)
	api.POST("/webhooks/mpesa/:scope", webhookHandler.MpesaCallback)

	return r
}

// scopePath returns the webhook path segment for the fixture's routing scope
func (f *handlerFixture) scopePath() string {
	return "business-" + f.businessID.String() + "-branch-" + f.branchID.String()
}
