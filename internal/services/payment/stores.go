package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
)

// AttemptStore persists payment attempts
type AttemptStore interface {
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PaymentAttempt, error)
	// TransitionIfPending atomically moves the attempt for a checkout id out
	// of pending and reports whether anything changed. A false return means
	// the attempt was already terminal and the caller must not act on it.
	TransitionIfPending(ctx context.Context, checkoutRequestID string, to models.AttemptStatus, update AttemptUpdate) (bool, error)
	SumCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (int64, error)
	StalePending(ctx context.Context, olderThan time.Time) ([]models.PaymentAttempt, error)
}

// AttemptUpdate carries the terminal metadata attached during a transition
type AttemptUpdate struct {
	ReceiptNumber string
	ResultCode    *int
	ResultDesc    string
}

// ResultStore persists callback results
type ResultStore interface {
	// CreateOnce inserts the result unless a row already exists for its
	// checkout id, and reports whether this call created it.
	CreateOnce(ctx context.Context, result *models.CallbackResult) (bool, error)
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.CallbackResult, error)
	MarkProcessed(ctx context.Context, checkoutRequestID string) error
}

// TicketService is the contract with the ticket/sales subsystem. Only the
// reconciler calls UpdatePaymentStatus.
type TicketService interface {
	Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error)
	UpdatePaymentStatus(ctx context.Context, ticketID uuid.UUID, amountPaid, amountDue float64, status models.TicketStatus) error
}

// DeviceResolver maps a terminal device identifier to its branch and business
type DeviceResolver interface {
	Resolve(ctx context.Context, deviceID string) (branchID, businessID uuid.UUID, err error)
}

// CredentialStore resolves the active gateway credential set for a branch
type CredentialStore interface {
	ActiveForBranch(ctx context.Context, branchID uuid.UUID) (*models.BranchCredential, error)
}

// Gateway is the outbound payment provider boundary
type Gateway interface {
	STKPush(ctx context.Context, request mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
	STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// GatewayFactory builds a gateway for one branch's credential set
type GatewayFactory func(creds mpesa.Credentials) Gateway
