package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	GRPC     GRPCConfig
	Auth     AuthConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Delivery DeliveryConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string // gRPC server listen address (e.g., ":50051")

	// CodeAttempts is how many pickup/delivery code submissions a caller may
	// burst within CodeAttemptWindow. Zero disables the limit.
	CodeAttempts      int
	CodeAttemptWindow time.Duration
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Address string
}

// DeliveryConfig tunes the reconciler.
type DeliveryConfig struct {
	BaseFee            float64       // flat delivery fee per assignment
	PerKmFee           float64       // added per km between pickup and drop
	AutoAssign         bool          // allocate a partner when an item is packed
	FallbackRetries    int           // attempts per fallback step on transient errors
	FallbackRetryDelay time.Duration // initial backoff between attempts
}

// Load loads configuration from environment variables (and an optional .env file)
// with sensible defaults. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := build("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return build("dev-secret-change-me")
}

func build(defaultSecret string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	retries, err := getEnvInt("DELIVERY_FALLBACK_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retryDelay, err := getEnvDuration("DELIVERY_FALLBACK_RETRY_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}
	baseFee, err := getEnvFloat("DELIVERY_BASE_FEE", 30)
	if err != nil {
		return nil, err
	}
	perKm, err := getEnvFloat("DELIVERY_PER_KM_FEE", 5)
	if err != nil {
		return nil, err
	}
	autoAssign, err := getEnvBool("DELIVERY_AUTO_ASSIGN", true)
	if err != nil {
		return nil, err
	}
	codeAttempts, err := getEnvInt("OTP_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	codeWindow, err := getEnvDuration("OTP_ATTEMPT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		GRPC: GRPCConfig{
			Address:           getEnv("GRPC_ADDRESS", ":50051"),
			CodeAttempts:      codeAttempts,
			CodeAttemptWindow: codeWindow,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultSecret),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Address: getEnv("METRICS_ADDRESS", ""),
		},
		Delivery: DeliveryConfig{
			BaseFee:            baseFee,
			PerKmFee:           perKm,
			AutoAssign:         autoAssign,
			FallbackRetries:    retries,
			FallbackRetryDelay: retryDelay,
		},
	}
	if cfg.Delivery.FallbackRetries < 1 {
		return nil, fmt.Errorf("DELIVERY_FALLBACK_RETRIES must be >= 1, got %d", cfg.Delivery.FallbackRetries)
	}
	if cfg.GRPC.CodeAttempts < 0 || cfg.GRPC.CodeAttemptWindow <= 0 {
		return nil, fmt.Errorf("OTP_ATTEMPTS must be >= 0 and OTP_ATTEMPT_WINDOW positive")
	}
	if cfg.Delivery.BaseFee < 0 || cfg.Delivery.PerKmFee < 0 {
		return nil, fmt.Errorf("delivery fees must not be negative")
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, gRPC: %s, Metrics: %q, Log: %s/%s, AutoAssign: %t, Auth: *** (masked) ***}",
		c.Database.Path, c.GRPC.Address, c.Metrics.Address, c.Log.Level, c.Log.Format, c.Delivery.AutoAssign)
}
