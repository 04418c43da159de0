package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Service ServiceConfig
	Pacing  PacingConfig
	History HistoryConfig
}

// ServiceConfig holds remote document-analysis service configuration
type ServiceConfig struct {
	Endpoint       string
	APIKey         string
	POModelID      string
	InvoiceModelID string
	APIVersion     string
	PollInterval   time.Duration
	HTTPTimeout    time.Duration
}

// PacingConfig holds inter-page pacing for the sequential driver
type PacingConfig struct {
	InterPageDelay    time.Duration
	MaxInterPageDelay time.Duration
	SecondPassDelay   time.Duration
}

// HistoryConfig holds the optional local run-history store settings
type HistoryConfig struct {
	Path string // empty disables run history
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Endpoint:       getEnv("DOCINTEL_ENDPOINT", ""),
			APIKey:         getEnv("DOCINTEL_API_KEY", ""),
			POModelID:      getEnv("DOCINTEL_PO_MODEL", "po-layout"),
			InvoiceModelID: getEnv("DOCINTEL_INVOICE_MODEL", "prebuilt-invoice"),
			APIVersion:     getEnv("DOCINTEL_API_VERSION", "2024-11-30"),
			PollInterval:   getEnvAsDuration("DOCINTEL_POLL_INTERVAL", 2*time.Second),
			HTTPTimeout:    getEnvAsDuration("DOCINTEL_HTTP_TIMEOUT", 60*time.Second),
		},
		Pacing: PacingConfig{
			InterPageDelay:    getEnvAsDuration("PAGE_DELAY", 1*time.Second),
			MaxInterPageDelay: getEnvAsDuration("PAGE_DELAY_MAX", 30*time.Second),
			SecondPassDelay:   getEnvAsDuration("PAGE_RETRY_DELAY", 30*time.Second),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. A missing endpoint or key is
// surfaced as an error so a run fails up front instead of mid-batch.
func (c *Config) Validate() error {
	if c.Service.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "DOCINTEL_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Service.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "DOCINTEL_API_KEY is required", ErrInvalidInput)
	}
	if c.Service.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "DOCINTEL_POLL_INTERVAL must be positive", ErrInvalidInput)
	}
	return nil
}
