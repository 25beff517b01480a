package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	Coupon   CouponConfig
	Payment  PaymentConfig
	Redis    RedisConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	AllowedOrigins  []string
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for the admin endpoints
}

type PricingConfig struct {
	TaxPerItem  decimal.Decimal
	DeliveryFee decimal.Decimal
	Currency    string
}

// CouponConfig selects the coupon store: the remote backend when BackendURL
// is set, otherwise a catalog loaded from Files and URLs.
type CouponConfig struct {
	BackendURL string
	Files      []string
	URLs       []string
}

type PaymentConfig struct {
	Mode                 string // "simulator" or "http"
	URL                  string
	Timeout              time.Duration
	Retries              int
	BreakerMaxFailures   int
	BreakerOpenInterval  time.Duration
	SimulatorLatency     time.Duration
	SimulatorDeclineOver decimal.Decimal
	SimulatorDeclineRate float64
}

type RedisConfig struct {
	Addr     string // empty keeps carts in memory
	Password string
	DB       int
	CartTTL  time.Duration
}

type DatabaseConfig struct {
	URL           string // empty keeps orders in memory
	RunMigrations bool
}

type RabbitMQConfig struct {
	URL string // empty disables event publishing
}

const (
	PaymentModeSimulator = "simulator"
	PaymentModeHTTP      = "http"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Pricing: PricingConfig{
			TaxPerItem:  getEnvAsDecimal("TAX_PER_ITEM", decimal.NewFromInt(10)),
			DeliveryFee: getEnvAsDecimal("DELIVERY_FEE", decimal.NewFromInt(60)),
			Currency:    getEnv("CURRENCY", "BDT"),
		},
		Coupon: CouponConfig{
			BackendURL: getEnv("COUPON_BACKEND_URL", ""),
			Files:      getEnvAsSlice("COUPON_FILES", nil),
			URLs:       getEnvAsSlice("COUPON_URLS", nil),
		},
		Payment: PaymentConfig{
			Mode:                 getEnv("PAYMENT_MODE", PaymentModeSimulator),
			URL:                  getEnv("PAYMENT_URL", ""),
			Timeout:              getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second),
			Retries:              getEnvAsInt("PAYMENT_RETRIES", 1),
			BreakerMaxFailures:   getEnvAsInt("PAYMENT_BREAKER_MAX_FAILURES", 5),
			BreakerOpenInterval:  getEnvAsDuration("PAYMENT_BREAKER_OPEN_INTERVAL", 30*time.Second),
			SimulatorLatency:     getEnvAsDuration("PAYMENT_SIMULATOR_LATENCY", 200*time.Millisecond),
			SimulatorDeclineOver: getEnvAsDecimal("PAYMENT_SIMULATOR_DECLINE_OVER", decimal.Zero),
			SimulatorDeclineRate: getEnvAsFloat("PAYMENT_SIMULATOR_DECLINE_RATE", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CartTTL:  getEnvAsDuration("CART_TTL", 7*24*time.Hour),
		},
		Database: DatabaseConfig{
			URL:           getEnv("DATABASE_URL", ""),
			RunMigrations: getEnvAsBool("DATABASE_RUN_MIGRATIONS", true),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	if c.Pricing.TaxPerItem.IsNegative() || c.Pricing.DeliveryFee.IsNegative() {
		return fmt.Errorf("TAX_PER_ITEM and DELIVERY_FEE must not be negative")
	}
	if c.Pricing.Currency == "" {
		return fmt.Errorf("CURRENCY is required")
	}

	switch c.Payment.Mode {
	case PaymentModeSimulator:
	case PaymentModeHTTP:
		if c.Payment.URL == "" {
			return fmt.Errorf("PAYMENT_URL is required when PAYMENT_MODE=http")
		}
	default:
		return fmt.Errorf("invalid payment mode: %s (must be simulator or http)", c.Payment.Mode)
	}
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	if c.Payment.Retries < 0 {
		return fmt.Errorf("PAYMENT_RETRIES must not be negative")
	}
	if c.Payment.SimulatorDeclineRate < 0 || c.Payment.SimulatorDeclineRate > 1 {
		return fmt.Errorf("PAYMENT_SIMULATOR_DECLINE_RATE must be between 0 and 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value, err := decimal.NewFromString(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
