package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/services/payment"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
	"github.com/dukapos/backend/internal/services/ticket"
)

// PaymentHandler serves the terminal-facing payment API
type PaymentHandler struct {
	service *payment.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service *payment.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type initiatePaymentRequest struct {
	TicketID    string  `json:"ticket_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	PhoneNumber string  `json:"phone_number" binding:"required"`
	DeviceID    string  `json:"device_id" binding:"required"`
}

// InitiatePayment pushes a payment prompt to the payer's phone for a ticket
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	resp, err := h.service.InitiatePayment(c.Request.Context(), payment.InitiateRequest{
		TicketID:    ticketID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
		DeviceID:    req.DeviceID,
	})
	if err != nil {
		h.renderInitiateError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// renderInitiateError maps engine errors onto HTTP responses. Gateway
// failures surface only their user-safe message; the raw provider error was
// already logged by the service.
func (h *PaymentHandler) renderInitiateError(c *gin.Context, err error) {
	var gwErr *mpesa.GatewayError
	switch {
	case payment.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ticket.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
	case errors.Is(err, payment.ErrTicketNotPayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrDeviceUnresolved),
		errors.Is(err, payment.ErrCredentialsNotConfigured):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": gwErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate payment"})
	}
}

type checkStatusRequest struct {
	CheckoutRequestID string `json:"checkout_request_id" binding:"required"`
	TicketID          string `json:"ticket_id" binding:"required"`
}

// CheckStatus serves a terminal's manual payment status poll
func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	var req checkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	resp, err := h.service.CheckStatus(c.Request.Context(), req.CheckoutRequestID, ticketID)
	if err != nil {
		if payment.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check payment status"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListAttempts returns the payment attempts recorded for a ticket
func (h *PaymentHandler) ListAttempts(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("ticketID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	attempts, err := h.service.ListAttempts(c.Request.Context(), ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payment attempts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// QueryGatewayStatus asks the provider directly for the state of a checkout.
// Admin tooling only.
func (h *PaymentHandler) QueryGatewayStatus(c *gin.Context) {
	checkoutRequestID := c.Param("checkoutID")
	if checkoutRequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkout id is required"})
		return
	}

	resp, err := h.service.QueryGatewayStatus(c.Request.Context(), checkoutRequestID)
	if err != nil {
		var gwErr *mpesa.GatewayError
		if errors.As(err, &gwErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": gwErr.Message})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment attempt for that checkout id"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
