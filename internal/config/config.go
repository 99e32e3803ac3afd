package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	LogLevel     string
	Port         int
	DevMode      bool

	// Collection
	ProviderTimeout  time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	ErrorThreshold   int
	BatchConcurrency int
	WatchlistLimit   int

	// Monitoring
	BacklogThreshold int
	AlertLookback    time.Duration
	AlertWebhookURL  string

	// Cleanup
	StagingRetentionDays int

	// Metrics
	RiskFreeRate float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/fundwatch.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ProviderTimeout:  getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		RetryAttempts:    getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", 1*time.Second),
		ErrorThreshold:   getEnvAsInt("PROVIDER_ERROR_THRESHOLD", 5),
		BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 4),
		WatchlistLimit:   getEnvAsInt("WATCHLIST_LIMIT", 100),

		BacklogThreshold: getEnvAsInt("BACKLOG_THRESHOLD", 10000),
		AlertLookback:    getEnvAsDuration("ALERT_LOOKBACK", 24*time.Hour),
		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),

		StagingRetentionDays: getEnvAsInt("STAGING_RETENTION_DAYS", 7),

		RiskFreeRate: getEnvAsFloat("RISK_FREE_RATE", 0.025),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.ErrorThreshold <= 0 {
		return fmt.Errorf("PROVIDER_ERROR_THRESHOLD must be positive")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	return nil
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
