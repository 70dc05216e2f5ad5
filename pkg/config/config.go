package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storefront
	Shopify ShopifyConfig

	// Live metal rates
	GoldAPI GoldAPIConfig

	// Manual run inputs
	Update UpdateConfig

	// Run history
	Database DatabaseConfig

	// Email reports
	SMTP SMTPConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// ShopifyConfig holds Shopify Admin API configuration.
type ShopifyConfig struct {
	ShopURL     string
	AccessToken string
	ThemeID     int64 // 0 means "discover the main theme"
	APIVersion  string

	// Admin API throttling
	RateLimitRPS float64
	RateBurst    int
}

// GoldAPIConfig holds goldapi.io configuration.
type GoldAPIConfig struct {
	APIKey  string
	BaseURL string

	// HTML page scraped when the API is unavailable
	FallbackURL string
}

// UpdateConfig holds inputs for manual and diamond update runs.
type UpdateConfig struct {
	GoldRate       float64 // INR per gram, 24K
	SilverRate     float64 // INR per gram
	IncludeHandles string  // comma or newline separated
	ExcludeHandles string
	DiamondConfigs string // JSON object or "label:price,..." pairs

	Schedule string // cron expression for the daily auto run
}

// DatabaseConfig holds PostgreSQL configuration for run history.
// DATABASE_URL is optional; history persistence is skipped when empty.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SMTPConfig holds email notification configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Shopify: ShopifyConfig{
			ShopURL:      getEnv("SHOPIFY_SHOP_URL", ""),
			AccessToken:  getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			ThemeID:      getEnvAsInt64("SHOPIFY_THEME_ID", 0),
			APIVersion:   getEnv("SHOPIFY_API_VERSION", "2024-01"),
			RateLimitRPS: getEnvAsFloat("SHOPIFY_RATE_LIMIT_RPS", 2),
			RateBurst:    getEnvAsInt("SHOPIFY_RATE_BURST", 4),
		},

		GoldAPI: GoldAPIConfig{
			APIKey:      getEnv("GOLDAPI_KEY", ""),
			BaseURL:     getEnv("GOLDAPI_BASE_URL", "https://www.goldapi.io"),
			FallbackURL: getEnv("RATE_FALLBACK_URL", ""),
		},

		Update: UpdateConfig{
			GoldRate:       getEnvAsFloat("GOLD_RATE", 0),
			SilverRate:     getEnvAsFloat("SILVER_RATE", 0),
			IncludeHandles: getEnv("INCLUDE_HANDLES", ""),
			ExcludeHandles: getEnv("EXCLUDE_HANDLES", ""),
			DiamondConfigs: getEnv("DIAMOND_CONFIGS", ""),
			Schedule:       getEnv("UPDATE_SCHEDULE", "0 6 * * *"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("FROM_EMAIL", getEnv("SMTP_USER", "")),
			To:       splitList(getEnv("TO_EMAILS", "")),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Shopify.ShopURL == "" {
		return fmt.Errorf("SHOPIFY_SHOP_URL is required")
	}
	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
