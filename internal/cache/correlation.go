package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/models"
)

// Redis key prefixes
const (
	correlationPrefix = "mpesa:checkout:"
	resultPrefix      = "mpesa:result:"
	broadcastPrefix   = "mpesa:branch:"
)

// CorrelationRecord maps a gateway checkout identifier back to the ticket and
// branch that initiated it. Records are ephemeral: written at submission,
// read by the webhook and poll paths, evicted by TTL or once a terminal
// result is attached.
type CorrelationRecord struct {
	CheckoutRequestID string    `json:"checkout_request_id"`
	TicketID          uuid.UUID `json:"ticket_id"`
	BranchID          uuid.UUID `json:"branch_id"`
	BusinessID        uuid.UUID `json:"business_id"`
	Amount            int64     `json:"amount"`
	PhoneNumber       string    `json:"phone_number"`
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentCache carries the settlement engine's ephemeral state: correlation
// records keyed by checkout id, a per-checkout result cache, and a
// branch-scoped broadcast of the latest terminal result so a disconnected
// terminal's next poll sees it without a database read.
type PaymentCache struct {
	store          Store
	correlationTTL time.Duration
	resultTTL      time.Duration
	broadcastTTL   time.Duration
}

// NewPaymentCache creates a payment cache on the given store
func NewPaymentCache(store Store, correlationTTL, resultTTL, broadcastTTL time.Duration) *PaymentCache {
	return &PaymentCache{
		store:          store,
		correlationTTL: correlationTTL,
		resultTTL:      resultTTL,
		broadcastTTL:   broadcastTTL,
	}
}

// PutCorrelation writes the correlation record for a checkout id
func (c *PaymentCache) PutCorrelation(ctx context.Context, rec CorrelationRecord) error {
	return c.store.Set(ctx, correlationPrefix+rec.CheckoutRequestID, rec, c.correlationTTL)
}

// GetCorrelation returns the correlation record for a checkout id, if any
func (c *PaymentCache) GetCorrelation(ctx context.Context, checkoutRequestID string) (*CorrelationRecord, bool, error) {
	var rec CorrelationRecord
	found, err := c.store.Get(ctx, correlationPrefix+checkoutRequestID, &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// DeleteCorrelation evicts the correlation record once a terminal result is attached
func (c *PaymentCache) DeleteCorrelation(ctx context.Context, checkoutRequestID string) error {
	return c.store.Delete(ctx, correlationPrefix+checkoutRequestID)
}

// PutResult caches a terminal callback result under its checkout id
func (c *PaymentCache) PutResult(ctx context.Context, result *models.CallbackResult) error {
	return c.store.Set(ctx, resultPrefix+result.CheckoutRequestID, result, c.resultTTL)
}

// GetResult returns the cached callback result for a checkout id, if any
func (c *PaymentCache) GetResult(ctx context.Context, checkoutRequestID string) (*models.CallbackResult, bool, error) {
	var result models.CallbackResult
	found, err := c.store.Get(ctx, resultPrefix+checkoutRequestID, &result)
	if err != nil || !found {
		return nil, false, err
	}
	return &result, true, nil
}

// Broadcast publishes the latest terminal result for a branch
func (c *PaymentCache) Broadcast(ctx context.Context, branchID uuid.UUID, result *models.CallbackResult) error {
	return c.store.Set(ctx, broadcastPrefix+branchID.String()+":latest", result, c.broadcastTTL)
}

// LatestForBranch returns the most recently broadcast result for a branch, if any
func (c *PaymentCache) LatestForBranch(ctx context.Context, branchID uuid.UUID) (*models.CallbackResult, bool, error) {
	var result models.CallbackResult
	found, err := c.store.Get(ctx, broadcastPrefix+branchID.String()+":latest", &result)
	if err != nil || !found {
		return nil, false, err
	}
	return &result, true, nil
}
