package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dukapos/backend/internal/handlers"
	"github.com/dukapos/backend/internal/middleware"
	"github.com/dukapos/backend/internal/services/payment"
)

// SetupWebhookRoutes configures routes for provider callbacks. These
// endpoints are called by the payment gateway, not by terminals.
func SetupWebhookRoutes(router *gin.Engine, paymentSvc *payment.Service, limiter *middleware.RateLimiter) {
	webhookHandler := handlers.NewWebhookHandler(paymentSvc)

	webhookGroup := router.Group("/api/v1/webhooks")
	webhookGroup.Use(limiter.IPRateLimiterMiddleware())
	{
		// STK push result callbacks; the scope segment encodes
		// business-{id}-branch-{id} routing.
		webhookGroup.POST("/mpesa/:scope", webhookHandler.MpesaCallback)
	}
}
