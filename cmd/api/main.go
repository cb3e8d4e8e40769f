package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/dukapos/backend/internal/cache"
	"github.com/dukapos/backend/internal/config"
	"github.com/dukapos/backend/internal/database"
	"github.com/dukapos/backend/internal/jobs"
	"github.com/dukapos/backend/internal/middleware"
	"github.com/dukapos/backend/internal/routes"
	"github.com/dukapos/backend/internal/services/device"
	"github.com/dukapos/backend/internal/services/payment"
	"github.com/dukapos/backend/internal/services/payment/mpesa"
	"github.com/dukapos/backend/internal/services/ticket"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	paymentCache := cache.NewPaymentCache(
		cache.NewRedisStore(redisClient),
		cfg.Payments.CorrelationTTL,
		cfg.Payments.ResultCacheTTL,
		cfg.Payments.BroadcastTTL,
	)

	registry := device.NewRegistry(db)
	ticketSvc := ticket.NewService(db)

	httpTimeout := cfg.Mpesa.HTTPTimeout
	paymentSvc := payment.NewService(payment.ServiceConfig{
		Attempts:    database.NewAttemptRepository(db),
		Results:     database.NewResultRepository(db),
		Tickets:     ticketSvc,
		Devices:     registry,
		Credentials: database.NewCredentialRepository(db),
		Cache:       paymentCache,
		Gateway: func(creds mpesa.Credentials) payment.Gateway {
			return mpesa.NewClient(creds, httpTimeout)
		},
		CallbackBaseURL: cfg.Mpesa.CallbackBaseURL,
		CorrelationTTL:  cfg.Payments.CorrelationTTL,
	})

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	limiter := middleware.NewRateLimiter(20, 40)
	defer limiter.Stop()

	routes.RegisterRoutes(router, paymentSvc, registry, limiter)
	routes.SetupWebhookRoutes(router, paymentSvc, limiter)

	sweep := jobs.NewStaleAttemptsJob(paymentSvc, cfg.Payments.StaleSweepEvery)
	if err := sweep.Start(); err != nil {
		log.Fatalf("Failed to start stale attempt sweep: %v", err)
	}
	defer sweep.Stop()

	log.Printf("DukaPOS payments API listening on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
