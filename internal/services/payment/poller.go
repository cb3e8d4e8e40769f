package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/models"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
)

// StatusResponse is what a polling terminal gets back for a checkout id
type StatusResponse struct {
	Status        mpesa.PaymentStatus `json:"status"`
	ResultDesc    string              `json:"result_desc,omitempty"`
	ReceiptNumber string              `json:"receipt_number,omitempty"`
	Amount        float64             `json:"amount,omitempty"`
}

// CheckStatus serves a terminal's manual status poll from cached and
// persisted results. It never queries the provider: many terminals polling
// at once must not amplify load onto the gateway, and the webhook is the
// source of truth anyway.
func (s *Service) CheckStatus(ctx context.Context, checkoutRequestID string, ticketID uuid.UUID) (*StatusResponse, error) {
	if checkoutRequestID == "" {
		return nil, &ValidationError{Message: "checkout identifier is required"}
	}

	// Fastest path: the callback already fanned the result out.
	if result, found, err := s.cache.GetResult(ctx, checkoutRequestID); err != nil {
		return nil, fmt.Errorf("result cache lookup failed: %w", err)
	} else if found {
		return statusFromResult(result), nil
	}

	// The branch broadcast may hold it when the per-checkout entry is cold.
	if rec, found, err := s.cache.GetCorrelation(ctx, checkoutRequestID); err != nil {
		return nil, fmt.Errorf("correlation lookup failed: %w", err)
	} else if found {
		latest, hit, err := s.cache.LatestForBranch(ctx, rec.BranchID)
		if err != nil {
			return nil, fmt.Errorf("broadcast lookup failed: %w", err)
		}
		if hit && latest.CheckoutRequestID == checkoutRequestID {
			return statusFromResult(latest), nil
		}
	}

	// Fall back to the persisted row.
	if result, err := s.results.FindByCheckoutID(ctx, checkoutRequestID); err == nil && result != nil {
		return statusFromResult(result), nil
	}

	// Nothing yet: the push is still waiting on the payer or the provider.
	return &StatusResponse{Status: mpesa.StatusPending}, nil
}

func statusFromResult(result *models.CallbackResult) *StatusResponse {
	return &StatusResponse{
		Status:        mpesa.StatusForCode(result.ResultCode),
		ResultDesc:    result.ResultDesc,
		ReceiptNumber: result.ReceiptNumber,
		Amount:        result.Amount,
	}
}
