package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Prefix is the environment variable prefix, e.g. COMPANION_STORE_DRIVER.
const Prefix = "COMPANION"

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the configuration for the companion core.
// Environment variables are parsed from the COMPANION_ prefix.
type Config struct {
	// Storage
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"companion.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Optional relationship snapshot cache
	RedisAddr string        `envconfig:"REDIS_ADDR" default:""`
	RedisTTL  time.Duration `envconfig:"REDIS_TTL" default:"10m"`

	// Conversation tuning
	EventThreshold float64 `envconfig:"EVENT_THRESHOLD" default:"0.3"`
	TrendWindow    int     `envconfig:"TREND_WINDOW" default:"10"`
	HistoryLimit   int     `envconfig:"HISTORY_LIMIT" default:"20"`
	ResponseTable  string  `envconfig:"RESPONSE_TABLE" default:""`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`

	// Speech / render collaborators. Empty URL selects the log-only implementation.
	SpeechURL           string        `envconfig:"SPEECH_URL" default:""`
	RenderURL           string        `envconfig:"RENDER_URL" default:""`
	CollaboratorTimeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"5s"`

	DispatchShards      int `envconfig:"DISPATCH_SHARDS" default:"4"`
	DispatchQueueSize   int `envconfig:"DISPATCH_QUEUE_SIZE" default:"64"`
	DispatchMaxAttempts int `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"3"`

	HealthInterval     time.Duration `envconfig:"HEALTH_INTERVAL" default:"15s"`
	HealthProbeTimeout time.Duration `envconfig:"HEALTH_PROBE_TIMEOUT" default:"2s"`
}

// Validate checks driver selection and numeric ranges.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%s_SQLITE_PATH is required when STORE_DRIVER=sqlite", Prefix)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%s_POSTGRES_DSN is required when STORE_DRIVER=postgres", Prefix)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.EventThreshold < 0 || c.EventThreshold > 1 {
		return fmt.Errorf("EVENT_THRESHOLD must be within [0,1], got %v", c.EventThreshold)
	}
	if c.TrendWindow < 2 {
		return fmt.Errorf("TREND_WINDOW must be at least 2, got %d", c.TrendWindow)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

// loadDotenv reads COMPANION_ENV_FILE (default .env) into the environment
// without overriding variables that are already set. A missing file is not an error.
func loadDotenv() error {
	path := os.Getenv(Prefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// New creates a new Config from the environment, after applying an optional dotenv file.
// Example: COMPANION_STORE_DRIVER=postgres COMPANION_POSTGRES_DSN=postgres://...
func New() (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("sqlite_path", cfg.SQLitePath).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Bool("redis_cache", cfg.RedisAddr != "").
		Float64("event_threshold", cfg.EventThreshold).
		Int("trend_window", cfg.TrendWindow).
		Str("speech_url", cfg.SpeechURL).
		Str("render_url", cfg.RenderURL).
		Int("dispatch_shards", cfg.DispatchShards).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		StoreDriver:         DriverSQLite,
		SQLitePath:          ":memory:",
		RedisTTL:            time.Minute,
		EventThreshold:      0.3,
		TrendWindow:         10,
		HistoryLimit:        20,
		LogLevel:            "debug",
		CollaboratorTimeout: time.Second,
		DispatchShards:      2,
		DispatchQueueSize:   16,
		DispatchMaxAttempts: 2,
		HealthInterval:      time.Second,
		HealthProbeTimeout:  time.Second,
	}
}
