package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dukapos/backend/internal/handlers"
	"github.com/dukapos/backend/internal/middleware"
	"github.com/dukapos/backend/internal/services/device"
	"github.com/dukapos/backend/internal/services/payment"
)

// RegisterRoutes configures the terminal-facing API routes
func RegisterRoutes(router *gin.Engine, paymentSvc *payment.Service, registry *device.Registry, limiter *middleware.RateLimiter) {
	paymentHandler := handlers.NewPaymentHandler(paymentSvc)
	deviceHandler := handlers.NewDeviceHandler(registry)

	api := router.Group("/api/v1")
	api.Use(limiter.IPRateLimiterMiddleware())
	{
		payments := api.Group("/payments")
		{
			payments.POST("/initiate", paymentHandler.InitiatePayment)
			payments.POST("/status", paymentHandler.CheckStatus)
			payments.GET("/ticket/:ticketID", paymentHandler.ListAttempts)
		}

		devices := api.Group("/devices")
		{
			devices.POST("/register", deviceHandler.Register)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/payments/:checkoutID/status", paymentHandler.QueryGatewayStatus)
		}
	}
}
