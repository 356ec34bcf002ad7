// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	// URL is the postgres DSN. DATABASE_URL overrides it.
	URL string `yaml:"url,omitempty"`
}

// StandingsConfig tunes the standings service.
type StandingsConfig struct {
	ComputeTimeout     time.Duration `yaml:"compute_timeout"`
	EagerRecompute     bool          `yaml:"eager_recompute"`
	RefreshSchedule    string        `yaml:"refresh_schedule"`
	RefreshConcurrency int           `yaml:"refresh_concurrency"`
	PersistSnapshots   bool          `yaml:"persist_snapshots"`
}

// EventsConfig configures the match result consumer.
type EventsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Brokers     []string      `yaml:"brokers"`
	Topic       string        `yaml:"topic"`
	GroupID     string        `yaml:"group_id"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// RateLimitConfig throttles result and rule writes.
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Window       time.Duration `yaml:"window"`
	MaxPerClient int           `yaml:"max_per_client"`
	MaxPerLeague int           `yaml:"max_per_league"`
	TrustProxy   bool          `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name           string   `yaml:"name"`
		Environment    string   `yaml:"environment"`
		Port           int      `yaml:"port"`
		BaseURL        string   `yaml:"base_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		AdminToken     string   `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Standings StandingsConfig `yaml:"standings"`
	Events    EventsConfig    `yaml:"events"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Features struct {
		EnablePush     bool `yaml:"enable_push"`
		EnableCompress bool `yaml:"enable_compression"`
		EnableDebug    bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, overlays environment secrets, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.AdminToken = os.Getenv("APP_ADMIN_TOKEN")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Events.Brokers = strings.Split(brokers, ",")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Standings.ComputeTimeout == 0 {
		c.Standings.ComputeTimeout = 5 * time.Second
	}
	if c.Standings.RefreshConcurrency == 0 {
		c.Standings.RefreshConcurrency = 4
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "match.results"
	}
	if c.Events.GroupID == "" {
		c.Events.GroupID = "standings-engine"
	}
	if c.Events.PollTimeout == 0 {
		c.Events.PollTimeout = 5 * time.Second
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Standings.ComputeTimeout < 0 {
		return fmt.Errorf("standings compute_timeout must be positive")
	}
	if c.Standings.RefreshConcurrency < 1 {
		return fmt.Errorf("standings refresh_concurrency must be at least 1")
	}
	if c.Standings.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Standings.RefreshSchedule); err != nil {
			return fmt.Errorf("standings refresh_schedule %q: %w", c.Standings.RefreshSchedule, err)
		}
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.PollTimeout < 0 {
			return fmt.Errorf("events poll_timeout must be positive")
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.MaxPerClient < 0 || c.RateLimit.MaxPerLeague < 0) {
		return fmt.Errorf("rate_limit maximums must not be negative")
	}

	return nil
}

// IsDevelopment reports whether console logging and debug output apply.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "" || c.App.Environment == "development"
}
