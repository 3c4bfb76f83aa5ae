package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Analytics engine
	Analytics AnalyticsConfig

	// Remote price service
	PriceService PriceServiceConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Scheduler
	ReportCronSpec string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// AnalyticsConfig holds the portfolio analytics parameters
type AnalyticsConfig struct {
	// InitialCapital is expressed in 10k currency units, same scale as
	// the ledger amounts after ingestion.
	InitialCapital     float64
	RiskFreeRate       float64
	AnnualizationDays  float64
	TradingDaysPerYear float64

	LedgerPath    string
	PricePath     string
	BenchmarkPath string
	IndustryPath  string
}

// PriceServiceConfig holds the remote quote endpoint configuration
type PriceServiceConfig struct {
	BaseURL    string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
	Enabled    bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "perfa"),
			User:            getEnv("DB_USER", "perfa"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Analytics: AnalyticsConfig{
			InitialCapital:     getEnvAsFloat("INITIAL_CAPITAL", 1000),
			RiskFreeRate:       getEnvAsFloat("RISK_FREE_RATE", 0.02),
			AnnualizationDays:  getEnvAsFloat("ANNUALIZATION_DAYS", 365),
			TradingDaysPerYear: getEnvAsFloat("TRADING_DAYS_PER_YEAR", 252),
			LedgerPath:         getEnv("LEDGER_PATH", "data/transactions.csv"),
			PricePath:          getEnv("PRICE_PATH", "data/prices.csv"),
			BenchmarkPath:      getEnv("BENCHMARK_PATH", "data/benchmark.csv"),
			IndustryPath:       getEnv("INDUSTRY_PATH", "data/industries.csv"),
		},

		PriceService: PriceServiceConfig{
			BaseURL:    getEnv("PRICE_SERVICE_URL", ""),
			RatePerSec: getEnvAsFloat("PRICE_SERVICE_RATE", 5),
			Burst:      getEnvAsInt("PRICE_SERVICE_BURST", 10),
			Timeout:    getEnvAsDuration("PRICE_SERVICE_TIMEOUT", "10s"),
			Enabled:    getEnvAsBool("PRICE_SERVICE_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Scheduler: nightly report regeneration at 18:30 local
		ReportCronSpec: getEnv("REPORT_CRON_SPEC", "0 30 18 * * *"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Analytics.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL must be positive")
	}
	if c.Analytics.AnnualizationDays <= 0 {
		return fmt.Errorf("ANNUALIZATION_DAYS must be positive")
	}
	if c.Analytics.TradingDaysPerYear <= 0 {
		return fmt.Errorf("TRADING_DAYS_PER_YEAR must be positive")
	}
	if c.Analytics.LedgerPath == "" {
		return fmt.Errorf("LEDGER_PATH is required")
	}

	if c.PriceService.Enabled && c.PriceService.BaseURL == "" {
		return fmt.Errorf("PRICE_SERVICE_URL is required when PRICE_SERVICE_ENABLED")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
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
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
