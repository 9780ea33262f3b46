// Payments API
//
// This is the main entry point for the payment authorization and settlement
// service. It wires up all dependencies and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/ledgerworks/payments/config"
	"github.com/ledgerworks/payments/internal/adapters/gateway"
	"github.com/ledgerworks/payments/internal/adapters/mercadopago"
	"github.com/ledgerworks/payments/internal/adapters/notify"
	"github.com/ledgerworks/payments/internal/adapters/repository"
	"github.com/ledgerworks/payments/internal/adapters/secrets"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"github.com/ledgerworks/payments/internal/core/service"
	"github.com/ledgerworks/payments/internal/core/signature"
	"github.com/ledgerworks/payments/internal/handlers"
	"github.com/ledgerworks/payments/internal/platform/logger"
)

const serviceName = "payments"

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting payments service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("gateway_provider", cfg.Gateway.Provider),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration error", zap.Error(err))
	}

	ctx := context.Background()

	// Infrastructure Layer
	db, err := repository.Connect(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer func() { _ = repository.Close(db) }()

	if err := repository.Migrate(db); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	secret, err := resolveGatewaySecret(ctx, cfg)
	if err != nil {
		log.Fatal("Gateway secret unavailable", zap.Error(err))
	}
	if secret == "" {
		log.Warn("GATEWAY_SECRET not set; outbound requests are signed with an empty key")
	}

	gw, provider, err := buildGateway(cfg)
	if err != nil {
		log.Fatal("Gateway setup failed", zap.Error(err))
	}

	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		log.Fatal("Notifier setup failed", zap.Error(err))
	}

	nextRef, err := service.NewReferenceGenerator(cfg.Server.NodeID)
	if err != nil {
		log.Fatal("Reference generator setup failed", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	attemptRepo := repository.NewGormAttemptRepository(db)
	contractRepo := repository.NewGormContractRepository(db)
	eventLog := repository.NewGormWebhookEventLog(db)
	auditLog := repository.NewGormGatewayAuditLog(db)

	// Service Layer
	signer := signature.NewSigner(secret)

	checkoutSvc := service.NewCheckoutService(
		orderRepo,
		attemptRepo,
		auditLog,
		gw,
		signer,
		service.CheckoutConfig{
			EntityID: cfg.Gateway.EntityID,
			Currency: cfg.Gateway.Currency,
			Mode:     cfg.Gateway.Mode,
			Path:     gateway.CheckoutPath,
			URLs: domain.GatewayURLs{
				CallbackURL:    cfg.Gateway.CallbackURL,
				SuccessPageURL: cfg.Gateway.SuccessURL,
				FailurePageURL: cfg.Gateway.FailureURL,
				CancelURL:      cfg.Gateway.CancelURL,
			},
			Timeout: cfg.Gateway.Timeout,
		},
		nextRef,
		log,
	)

	provisioner := service.NewContractProvisioner(
		contractRepo,
		contractRepo,
		notifier,
		service.ContractConfig{
			NumberPrefix:  cfg.Contract.NumberPrefix,
			TermMonths:    cfg.Contract.TermMonths,
			NotifyTimeout: cfg.Notify.Timeout,
		},
		log,
	)

	settlementSvc := service.NewSettlementService(
		service.NewWebhookAuthenticator(signer, cfg.IsProduction()),
		orderRepo,
		attemptRepo,
		eventLog,
		provisioner,
		log,
	)
	if provider != nil {
		settlementSvc.WithProvider(provider)
	}

	orderSvc := service.NewOrderService(orderRepo, cfg.Gateway.Currency, log)

	// API Layer
	handler := handlers.NewPaymentHandler(checkoutSvc, settlementSvc, orderSvc, serviceName, log)
	router := handlers.SetupRouter(handler, handlers.RouterConfig{
		GinMode:               cfg.Server.GinMode,
		ServiceJWTSecret:      cfg.Security.ServiceJWTSecret,
		CheckoutRatePerMinute: cfg.Security.CheckoutRatePerMinute,
		ProviderWebhooks:      provider != nil,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}

// resolveGatewaySecret only touches AWS when the secret is not inline.
func resolveGatewaySecret(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Gateway.Secret != "" || cfg.Gateway.SecretID == "" {
		return cfg.Gateway.Secret, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	return secrets.NewClient(awsCfg).ResolveGatewaySecret(ctx, cfg.Gateway.Secret, cfg.Gateway.SecretID)
}

// buildGateway also returns the provider that posts settlement notifications
// back, when the gateway has one.
func buildGateway(cfg *config.Config) (ports.GatewayClient, ports.PaymentProvider, error) {
	switch cfg.Gateway.Provider {
	case "mercadopago":
		mp, err := mercadopago.NewAdapter(cfg.Gateway.MPAccessToken, cfg.Gateway.MPWebhookSecret)
		if err != nil {
			return nil, nil, err
		}
		return mp, mp, nil
	case "stub":
		return gateway.NewStubClient(cfg.Gateway.BaseURL), nil, nil
	default:
		return gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.AppID, cfg.Gateway.Timeout), nil, nil
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (ports.Notifier, error) {
	switch cfg.Notify.Driver {
	case "http":
		return notify.NewHubClient(cfg.Notify.HubURL, cfg.Notify.HubAPIKey, cfg.Notify.Timeout), nil
	case "sns":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return notify.NewSNSNotifier(awsCfg, cfg.Notify.SNSTopicARN)
	default:
		return notify.NewLogNotifier(log), nil
	}
}
