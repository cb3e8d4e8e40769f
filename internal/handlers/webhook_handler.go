package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/services/payment"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
)

// WebhookHandler receives payment callbacks from the provider
type WebhookHandler struct {
	service *payment.Service
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *payment.Service) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// providerAck is the acknowledgment body the provider expects
var providerAck = gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

// MpesaCallback handles the STK push result callback. The path segment
// carries business/branch routing, cross-checked against the correlation
// record. Unmatched or misrouted callbacks are acknowledged without
// reconciling so the provider does not retry a delivery we can never apply;
// only structurally broken payloads are rejected.
func (h *WebhookHandler) MpesaCallback(c *gin.Context) {
	scope, ok := parseCallbackScope(c.Param("scope"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback scope"})
		return
	}

	var envelope mpesa.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload"})
		return
	}

	err := h.service.ProcessCallback(c.Request.Context(), scope, &envelope.Body.STKCallback)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, providerAck)
	case errors.Is(err, payment.ErrMissingCheckoutID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "callback has no checkout identifier"})
	case errors.Is(err, payment.ErrCorrelationNotFound),
		errors.Is(err, payment.ErrRoutingMismatch):
		// Logged by the service; acknowledge so the provider stops
		// retrying.
		c.JSON(http.StatusOK, providerAck)
	default:
		log.Printf("callback processing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process callback"})
	}
}

// parseCallbackScope parses a "business-{id}-branch-{id}" path segment
func parseCallbackScope(scope string) (*payment.CallbackScope, bool) {
	rest, found := strings.CutPrefix(scope, "business-")
	if !found {
		return nil, false
	}

	businessPart, branchPart, found := strings.Cut(rest, "-branch-")
	if !found {
		return nil, false
	}

	businessID, err := uuid.Parse(businessPart)
	if err != nil {
		return nil, false
	}
	branchID, err := uuid.Parse(branchPart)
	if err != nil {
		return nil, false
	}

	return &payment.CallbackScope{BusinessID: businessID, BranchID: branchID}, true
}
