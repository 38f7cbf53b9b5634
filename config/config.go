package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"cardroom/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ListenAddr string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Session configuration
	JWTSecret string

	// Ledger configuration
	StartingBalance int64

	// Reaper configuration
	RefundCheckInterval time.Duration // How often idle rooms are scanned
	RoomIdleTimeout     time.Duration // Rooms older than this with open bets get refunded

	// Fairness configuration
	SeedCommitSecret string // HMAC key for round seed commitments

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables

	// Redis configuration
	RedisAddr      string // Empty disables the round audit queue
	RedisDB        int
	AuditQueueName string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables, reading a .env file first when present
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		ListenAddr: getEnvWithDefault("LISTEN_ADDR", ":3000"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StartingBalance: 1000,

		RefundCheckInterval: 60 * time.Second,
		RoomIdleTimeout:     5 * time.Minute,

		SeedCommitSecret: os.Getenv("SEED_COMMIT_SECRET"),

		NATSServers: os.Getenv("NATS_SERVERS"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		AuditQueueName: getEnvWithDefault("AUDIT_QUEUE_NAME", "cardroom_rounds"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "cardroom"),
		OTelExportIntervalMillis: 30000,

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsedBalance
		}
	}
	if interval := os.Getenv("REFUND_CHECK_INTERVAL"); interval != "" {
		d, err := parseDurationOrMillis(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid REFUND_CHECK_INTERVAL: %w", err)
		}
		config.RefundCheckInterval = d
	}
	if timeout := os.Getenv("ROOM_IDLE_TIMEOUT"); timeout != "" {
		d, err := parseDurationOrMillis(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_IDLE_TIMEOUT: %w", err)
		}
		config.RoomIdleTimeout = d
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			config.RedisDB = parsed
		}
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	if config.RefundCheckInterval <= 0 {
		return nil, fmt.Errorf("REFUND_CHECK_INTERVAL must be positive")
	}

	return config, nil
}

// parseDurationOrMillis accepts Go durations ("90s") or a bare millisecond count ("60000")
func parseDurationOrMillis(value string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		ListenAddr:               ":0",
		JWTSecret:                "test-secret",
		StartingBalance:          1000,
		RefundCheckInterval:      60 * time.Second,
		RoomIdleTimeout:          5 * time.Minute,
		SeedCommitSecret:         "test-commit-secret",
		AuditQueueName:           "cardroom_rounds_test",
		OTelExporterType:         "none",
		OTelServiceName:          "cardroom-test",
		OTelExportIntervalMillis: 1000,
		LogLevel:                 "debug",
		Environment:              "test",
	}
}
