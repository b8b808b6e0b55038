package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"tokenlottery/database"
	"tokenlottery/domain/entities"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// gRPC health service listen address
	GRPCHealthAddr string

	// Prometheus metrics listen address
	MetricsAddr string

	// Ticket metadata applied to lotteries that do not set their own
	TicketName   string
	TicketSymbol string
	TicketURI    string

	// Logical clock: tick = (now - GenesisTime) / SlotDuration
	GenesisTime  time.Time
	SlotDuration time.Duration

	// Draw worker configuration
	OperatorAuthority string        // Identity the draw worker acts as; empty disables the worker
	DrawPollInterval  time.Duration // How often ended lotteries are checked for resolved randomness

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

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// gRPC
		GRPCHealthAddr: getEnvWithDefault("GRPC_HEALTH_ADDR", ":9090"),
		MetricsAddr:    getEnvWithDefault("METRICS_ADDR", ":9091"),

		// Tickets
		TicketName:   getEnvWithDefault("TICKET_NAME", entities.DefaultTicketName),
		TicketSymbol: getEnvWithDefault("TICKET_SYMBOL", entities.DefaultTicketSymbol),
		TicketURI:    getEnvWithDefault("TICKET_URI", entities.DefaultTicketURI),

		// Clock
		GenesisTime:  time.Unix(0, 0).UTC(),
		SlotDuration: 400 * time.Millisecond,

		// Draw worker
		OperatorAuthority: os.Getenv("OPERATOR_AUTHORITY"),
		DrawPollInterval:  5 * time.Second,

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if genesis := os.Getenv("GENESIS_TIME"); genesis != "" {
		parsed, err := time.Parse(time.RFC3339, genesis)
		if err != nil {
			return nil, fmt.Errorf("invalid GENESIS_TIME: %w", err)
		}
		config.GenesisTime = parsed.UTC()
	}
	if slot := os.Getenv("SLOT_DURATION"); slot != "" {
		parsed, err := time.ParseDuration(slot)
		if err != nil {
			return nil, fmt.Errorf("invalid SLOT_DURATION: %w", err)
		}
		config.SlotDuration = parsed
	}
	if interval := os.Getenv("DRAW_POLL_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid DRAW_POLL_INTERVAL: %w", err)
		}
		config.DrawPollInterval = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks the values the service cannot run without
func (c *Config) validate() error {
	if c.SlotDuration <= 0 {
		return fmt.Errorf("SLOT_DURATION must be positive")
	}
	if c.DrawPollInterval <= 0 {
		return fmt.Errorf("DRAW_POLL_INTERVAL must be positive")
	}
	if _, ok := entities.PadDisplayName(entities.TicketName(c.TicketName, 0)); !ok {
		return fmt.Errorf("TICKET_NAME %q does not fit a %d byte display name", c.TicketName, entities.DisplayNameLength)
	}

	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
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
		Environment:       "test",
		TicketName:        entities.DefaultTicketName,
		TicketSymbol:      entities.DefaultTicketSymbol,
		TicketURI:         entities.DefaultTicketURI,
		GenesisTime:       time.Unix(0, 0).UTC(),
		SlotDuration:      400 * time.Millisecond,
		OperatorAuthority: "operator",
		DrawPollInterval:  10 * time.Millisecond,
		LogLevel:          "debug",
	}
}
