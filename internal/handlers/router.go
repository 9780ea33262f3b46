// Package handlers contains the HTTP handlers and routing.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerworks/payments/internal/platform/logger"
	"go.uber.org/zap"
)

// RouterConfig holds the settings the router needs from configuration.
type RouterConfig struct {
	GinMode               string
	ServiceJWTSecret      string
	CheckoutRatePerMinute int
	ProviderWebhooks      bool // mount /webhooks/mercadopago
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(handler *PaymentHandler, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(logger.RequestLogger(log))

	// Health check (public)
	router.GET("/health", handler.Health)

	// API v1 routes (requires Bearer auth)
	v1 := router.Group("/api/v1")
	v1.Use(ServiceAuthMiddleware([]byte(cfg.ServiceJWTSecret)))
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", handler.CreateOrder)
			orders.GET("/:id", handler.GetOrder)
			orders.POST("/:id/cancel", handler.CancelOrder)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", RateLimitMiddleware(cfg.CheckoutRatePerMinute), handler.CreateCheckout)
		}
	}

	// Webhook endpoint (public, validates X-Signature)
	router.POST("/webhooks/payments", handler.HandleWebhook)
	if cfg.ProviderWebhooks {
		// Mercado Pago notifications (public, validates x-signature)
		router.POST("/webhooks/mercadopago", handler.HandleProviderWebhook)
	}

	return router
}
