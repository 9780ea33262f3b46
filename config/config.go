// Package config handles loading and managing application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Payment gateway configuration
	Gateway GatewayConfig

	// Notification collaborator
	Notify NotifyConfig

	// Security settings
	Security SecurityConfig

	// Contract provisioning
	Contract ContractConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
	Env     string // "production" enforces signed webhooks
	NodeID  int64  // snowflake node for payment references
}

// DatabaseConfig holds PostgreSQL connection settings. URL wins over the
// individual POSTGRES_* values when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN returns the connection string for the PostgreSQL driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

// GatewayConfig holds the hosted-checkout gateway settings.
type GatewayConfig struct {
	Provider        string // "http", "mercadopago" or "stub"
	BaseURL         string
	EntityID        string
	AppID           string
	Secret          string
	SecretID        string // Secrets Manager id, used when Secret is empty
	Mode            string // LIVE or TEST
	Currency        string
	Timeout         time.Duration
	CallbackURL     string
	SuccessURL      string
	FailureURL      string
	CancelURL       string
	MPAccessToken   string
	MPWebhookSecret string
}

// NotifyConfig selects and configures the contract notifier.
type NotifyConfig struct {
	Driver      string // "http", "sns" or "log"
	HubURL      string
	HubAPIKey   string
	SNSTopicARN string
	Timeout     time.Duration
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	ServiceJWTSecret      string
	CheckoutRatePerMinute int
}

// ContractConfig holds contract provisioning settings.
type ContractConfig struct {
	TermMonths   int
	NumberPrefix string
}

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
			Env:     getEnv("APP_ENV", "development"),
			NodeID:  int64(getEnvInt("NODE_ID", 1)),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "payments"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		Gateway: GatewayConfig{
			Provider:        strings.ToLower(getEnv("GATEWAY_PROVIDER", "http")),
			BaseURL:         getEnv("GATEWAY_BASE_URL", "http://localhost:9090"),
			EntityID:        getEnv("GATEWAY_ENTITY_ID", ""),
			AppID:           getEnv("GATEWAY_APP_ID", ""),
			Secret:          getEnv("GATEWAY_SECRET", ""),
			SecretID:        getEnv("GATEWAY_SECRET_ID", ""),
			Mode:            strings.ToUpper(getEnv("GATEWAY_MODE", "TEST")),
			Currency:        strings.ToUpper(getEnv("GATEWAY_CURRENCY", "ZAR")),
			Timeout:         getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
			CallbackURL:     getEnv("GATEWAY_CALLBACK_URL", "http://localhost:8080/webhooks/payments"),
			SuccessURL:      getEnv("GATEWAY_SUCCESS_URL", ""),
			FailureURL:      getEnv("GATEWAY_FAILURE_URL", ""),
			CancelURL:       getEnv("GATEWAY_CANCEL_URL", ""),
			MPAccessToken:   getEnv("MP_ACCESS_TOKEN", ""),
			MPWebhookSecret: getEnv("MP_WEBHOOK_SECRET", ""),
		},
		Notify: NotifyConfig{
			Driver:      strings.ToLower(getEnv("NOTIFY_DRIVER", "log")),
			HubURL:      getEnv("NOTIFY_HUB_URL", ""),
			HubAPIKey:   getEnv("NOTIFY_HUB_API_KEY", ""),
			SNSTopicARN: getEnv("NOTIFY_SNS_TOPIC_ARN", ""),
			Timeout:     getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		},
		Security: SecurityConfig{
			ServiceJWTSecret:      getEnv("SERVICE_JWT_SECRET", ""),
			CheckoutRatePerMinute: getEnvInt("CHECKOUT_RATE_PER_MINUTE", 60),
		},
		Contract: ContractConfig{
			TermMonths:   getEnvInt("CONTRACT_TERM_MONTHS", 24),
			NumberPrefix: getEnv("CONTRACT_NUMBER_PREFIX", "CN"),
		},
	}
}

// IsProduction reports whether the service runs with production guarantees.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	var errs []error

	switch c.Gateway.Provider {
	case "http", "stub":
	case "mercadopago":
		if c.Gateway.MPAccessToken == "" {
			errs = append(errs, errors.New("MP_ACCESS_TOKEN is required for GATEWAY_PROVIDER=mercadopago"))
		}
		if c.Gateway.MPWebhookSecret == "" {
			errs = append(errs, errors.New("MP_WEBHOOK_SECRET is required for GATEWAY_PROVIDER=mercadopago"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_PROVIDER %q", c.Gateway.Provider))
	}

	switch c.Notify.Driver {
	case "log":
	case "http":
		if c.Notify.HubURL == "" {
			errs = append(errs, errors.New("NOTIFY_HUB_URL is required for NOTIFY_DRIVER=http"))
		}
	case "sns":
		if c.Notify.SNSTopicARN == "" {
			errs = append(errs, errors.New("NOTIFY_SNS_TOPIC_ARN is required for NOTIFY_DRIVER=sns"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_DRIVER %q", c.Notify.Driver))
	}

	if c.Gateway.Mode != "LIVE" && c.Gateway.Mode != "TEST" {
		errs = append(errs, fmt.Errorf("GATEWAY_MODE must be LIVE or TEST, got %q", c.Gateway.Mode))
	}
	if len(c.Gateway.Currency) != 3 {
		errs = append(errs, fmt.Errorf("GATEWAY_CURRENCY must be an ISO 4217 code, got %q", c.Gateway.Currency))
	}
	if c.Contract.TermMonths <= 0 {
		errs = append(errs, errors.New("CONTRACT_TERM_MONTHS must be positive"))
	}

	if c.IsProduction() {
		if c.Gateway.Secret == "" && c.Gateway.SecretID == "" {
			errs = append(errs, errors.New("GATEWAY_SECRET or GATEWAY_SECRET_ID is required in production"))
		}
		if c.Gateway.EntityID == "" {
			errs = append(errs, errors.New("GATEWAY_ENTITY_ID is required in production"))
		}
		if c.Security.ServiceJWTSecret == "" {
			errs = append(errs, errors.New("SERVICE_JWT_SECRET is required in production"))
		}
		if c.Gateway.Provider == "stub" {
			errs = append(errs, errors.New("GATEWAY_PROVIDER=stub is not allowed in production"))
		}
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer with a fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
