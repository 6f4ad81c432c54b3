package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Services
	KLine    KLineConfig
	Analysis AnalysisConfig
	API      APIConfig
	Analyzer AnalyzerConfig
}

// DatabaseConfig holds TimescaleDB configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// KLineConfig holds candlestick source configuration
type KLineConfig struct {
	Source        string // "synthetic" or "timescale"
	MaxCandles    int
	DefaultLimit  int
	SyntheticSeed int64
}

// AnalysisConfig holds analysis service configuration
type AnalysisConfig struct {
	CacheTTL time.Duration // 0 disables caching
	MACDMode string        // "simple" or "textbook"
	Parallel bool
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port           int
	JWTSecret      string
	RateLimitRPS   int
	PricePrecision int32
	CORSOrigins    []string
}

// AnalyzerConfig holds scheduled analyzer configuration
type AnalyzerConfig struct {
	Schedule      string // cron spec with a seconds field
	WatchlistFile string
	StreamName    string
	Workers       int
	RunOnStart    bool
	MetricsPort   int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "kline_analyzer"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		KLine: KLineConfig{
			Source:        getEnv("KLINE_SOURCE", "synthetic"),
			MaxCandles:    getEnvAsInt("KLINE_MAX_CANDLES", 1000),
			DefaultLimit:  getEnvAsInt("KLINE_DEFAULT_LIMIT", 100),
			SyntheticSeed: int64(getEnvAsInt("KLINE_SYNTHETIC_SEED", 1)),
		},
		Analysis: AnalysisConfig{
			CacheTTL: getEnvAsDuration("ANALYSIS_CACHE_TTL", 30*time.Second),
			MACDMode: getEnv("ANALYSIS_MACD_MODE", "simple"),
			Parallel: getEnvAsBool("ANALYSIS_PARALLEL", false),
		},
		API: APIConfig{
			Port:           getEnvAsInt("API_PORT", 8090),
			JWTSecret:      getEnv("API_JWT_SECRET", ""),
			RateLimitRPS:   getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			PricePrecision: int32(getEnvAsInt("API_PRICE_PRECISION", 8)),
			CORSOrigins:    getEnvAsStringSlice("API_CORS_ORIGINS", []string{"*"}),
		},
		Analyzer: AnalyzerConfig{
			Schedule:      getEnv("ANALYZER_SCHEDULE", "0 */5 * * * *"),
			WatchlistFile: getEnv("ANALYZER_WATCHLIST_FILE", "watchlist.yaml"),
			StreamName:    getEnv("ANALYZER_STREAM_NAME", "analysis"),
			Workers:       getEnvAsInt("ANALYZER_WORKERS", 4),
			RunOnStart:    getEnvAsBool("ANALYZER_RUN_ON_START", true),
			MetricsPort:   getEnvAsInt("ANALYZER_METRICS_PORT", 9095),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.KLine.Source {
	case "synthetic":
	case "timescale":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the timescale source")
		}
	default:
		return fmt.Errorf("KLINE_SOURCE must be synthetic or timescale, got %q", c.KLine.Source)
	}
	if c.KLine.MaxCandles < 1 {
		return fmt.Errorf("KLINE_MAX_CANDLES must be positive")
	}
	if c.KLine.DefaultLimit < 1 || c.KLine.DefaultLimit > c.KLine.MaxCandles {
		return fmt.Errorf("KLINE_DEFAULT_LIMIT must be between 1 and %d", c.KLine.MaxCandles)
	}
	if c.Analysis.MACDMode != "simple" && c.Analysis.MACDMode != "textbook" {
		return fmt.Errorf("ANALYSIS_MACD_MODE must be simple or textbook, got %q", c.Analysis.MACDMode)
	}
	if c.Analysis.CacheTTL < 0 {
		return fmt.Errorf("ANALYSIS_CACHE_TTL must not be negative")
	}
	if c.API.PricePrecision < 0 {
		return fmt.Errorf("API_PRICE_PRECISION must not be negative")
	}
	if c.Analyzer.Workers < 1 {
		return fmt.Errorf("ANALYZER_WORKERS must be at least 1")
	}
	if c.Environment == "production" && c.API.JWTSecret == "" {
		return fmt.Errorf("API_JWT_SECRET is required in production")
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getEnvAsStringSlice splits a comma-separated variable, dropping empty parts
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
