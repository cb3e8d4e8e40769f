package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/cache"
	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
	"github.com/dukapos/backend/internal/utils"
)

// Service is the mobile-money settlement engine: it initiates STK pushes,
// correlates the out-of-band callbacks back to tickets, reconciles attempts
// idempotently and serves the terminal polling path.
type Service struct {
	attempts        AttemptStore
	results         ResultStore
	tickets         TicketService
	devices         DeviceResolver
	credentials     CredentialStore
	cache           *cache.PaymentCache
	gateway         GatewayFactory
	callbackBaseURL string
	correlationTTL  time.Duration
}

// ServiceConfig wires the service's collaborators
type ServiceConfig struct {
	Attempts        AttemptStore
	Results         ResultStore
	Tickets         TicketService
	Devices         DeviceResolver
	Credentials     CredentialStore
	Cache           *cache.PaymentCache
	Gateway         GatewayFactory
	CallbackBaseURL string
	CorrelationTTL  time.Duration
}

// NewService creates a new payment service
func NewService(cfg ServiceConfig) *Service {
	if cfg.CorrelationTTL <= 0 {
		cfg.CorrelationTTL = time.Hour
	}
	return &Service{
		attempts:        cfg.Attempts,
		results:         cfg.Results,
		tickets:         cfg.Tickets,
		devices:         cfg.Devices,
		credentials:     cfg.Credentials,
		cache:           cfg.Cache,
		gateway:         cfg.Gateway,
		callbackBaseURL: cfg.CallbackBaseURL,
		correlationTTL:  cfg.CorrelationTTL,
	}
}

// InitiateRequest is a terminal's request to collect payment on a ticket
type InitiateRequest struct {
	TicketID    uuid.UUID
	Amount      float64
	PhoneNumber string
	DeviceID    string
}

// InitiateResponse is returned to the terminal after a successful submission.
// The payment outcome arrives later via the webhook; the terminal polls with
// the checkout id.
type InitiateResponse struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

// InitiatePayment validates the request against ticket state and tolerance
// rules, submits the STK push, and on success writes the correlation record
// and a pending attempt. The ticket itself is never touched here.
func (s *Service) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	branchID, businessID, err := s.devices.Resolve(ctx, req.DeviceID)
	if err != nil {
		return nil, ErrDeviceUnresolved
	}

	ticket, err := s.tickets.Get(ctx, req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.Status != models.TicketStatusActive {
		return nil, ErrTicketNotPayable
	}
	if ticket.BusinessID != businessID {
		return nil, &ValidationError{Message: "ticket does not belong to this business"}
	}

	amount, err := ValidateAmount(req.Amount, ticket.AmountDue)
	if err != nil {
		return nil, err
	}

	phone, err := utils.FormatPhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	creds, err := s.credentials.ActiveForBranch(ctx, branchID)
	if err != nil {
		// A branch taking mobile money without credentials is an operator
		// setup problem, not a cashier mistake.
		return nil, ErrCredentialsNotConfigured
	}

	gw := s.gateway(mpesa.Credentials{
		ConsumerKey:    creds.ConsumerKey,
		ConsumerSecret: creds.ConsumerSecret,
		ShortCode:      creds.ShortCode,
		Passkey:        creds.Passkey,
		UseSandbox:     creds.Environment != "production",
	})

	pushResp, err := gw.STKPush(ctx, mpesa.STKPushRequest{
		Amount:           amount,
		PhoneNumber:      phone,
		CallbackURL:      s.callbackURL(businessID, branchID),
		AccountReference: utils.GenerateReference("TKT"),
		Description:      fmt.Sprintf("Ticket %s", shortID(req.TicketID)),
	})
	if err != nil {
		gwErr := mpesa.Classify(err)
		log.Printf("stk push failed for ticket %s: %v", req.TicketID, gwErr.Raw)
		return nil, gwErr
	}

	if err := s.cache.PutCorrelation(ctx, cache.CorrelationRecord{
		CheckoutRequestID: pushResp.CheckoutRequestID,
		TicketID:          req.TicketID,
		BranchID:          branchID,
		BusinessID:        businessID,
		Amount:            amount,
		PhoneNumber:       phone,
		CreatedAt:         time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to store correlation record: %w", err)
	}

	attempt := &models.PaymentAttempt{
		TicketID:          req.TicketID,
		BranchID:          branchID,
		BusinessID:        businessID,
		Method:            models.PaymentMethodMpesa,
		Amount:            amount,
		PhoneNumber:       phone,
		CheckoutRequestID: pushResp.CheckoutRequestID,
		MerchantRequestID: pushResp.MerchantRequestID,
		Status:            models.AttemptStatusPending,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to save payment attempt: %w", err)
	}

	return &InitiateResponse{
		CheckoutRequestID: pushResp.CheckoutRequestID,
		MerchantRequestID: pushResp.MerchantRequestID,
		CustomerMessage:   pushResp.CustomerMessage,
	}, nil
}

// ListAttempts returns the payment attempts recorded for a ticket
func (s *Service) ListAttempts(ctx context.Context, ticketID uuid.UUID) ([]models.PaymentAttempt, error) {
	return s.attempts.ListByTicket(ctx, ticketID)
}

// StaleAttempts returns pending attempts older than the correlation TTL,
// i.e. payments whose callback window has closed
func (s *Service) StaleAttempts(ctx context.Context) ([]models.PaymentAttempt, error) {
	return s.attempts.StalePending(ctx, time.Now().Add(-s.correlationTTL))
}

// QueryGatewayStatus asks the provider for the state of a checkout directly.
// Administrative tooling only; the terminal poll path never calls this.
func (s *Service) QueryGatewayStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	attempt, err := s.attempts.FindByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("no attempt for checkout id %s: %w", checkoutRequestID, err)
	}

	creds, err := s.credentials.ActiveForBranch(ctx, attempt.BranchID)
	if err != nil {
		return nil, ErrCredentialsNotConfigured
	}

	gw := s.gateway(mpesa.Credentials{
		ConsumerKey:    creds.ConsumerKey,
		ConsumerSecret: creds.ConsumerSecret,
		ShortCode:      creds.ShortCode,
		Passkey:        creds.Passkey,
		UseSandbox:     creds.Environment != "production",
	})

	queryResp, err := gw.STKQuery(ctx, checkoutRequestID)
	if err != nil {
		gwErr := mpesa.Classify(err)
		log.Printf("stk query failed for checkout %s: %v", checkoutRequestID, gwErr.Raw)
		return nil, gwErr
	}

	return queryResp, nil
}

// callbackURL builds the webhook URL carrying the routing scope for a branch
func (s *Service) callbackURL(businessID, branchID uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/webhooks/mpesa/business-%s-branch-%s", s.callbackBaseURL, businessID, branchID)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// IsValidation reports whether err is a caller mistake rather than a system
// failure
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
