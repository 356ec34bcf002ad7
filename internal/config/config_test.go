package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseYAML = `app:
  name: "standings"
  environment: "development"
  port: 8080
database:
  driver: "sqlite"
  filename: "data/standings.db"
`

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Parse([]byte(baseYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Standings.ComputeTimeout != 5*time.Second {
		t.Fatalf("ComputeTimeout = %v, want 5s", cfg.Standings.ComputeTimeout)
	}
	if cfg.Standings.RefreshConcurrency != 4 {
		t.Fatalf("RefreshConcurrency = %d, want 4", cfg.Standings.RefreshConcurrency)
	}
	if cfg.Events.Topic != "match.results" || cfg.Events.GroupID != "standings-engine" {
		t.Fatalf("Events = %+v, want default topic and group", cfg.Events)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("IsDevelopment() = false, want true")
	}
	if cfg.RateLimit.Enabled || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("RateLimit = %+v, want disabled with a one minute window", cfg.RateLimit)
	}
}

func TestParseReadsDurationsAndEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://standings@localhost/standings?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("APP_ADMIN_TOKEN", "secret")

	cfg, err := Parse([]byte(`app:
  name: "standings"
  environment: "production"
  port: 9000
database:
  driver: "postgres"
standings:
  compute_timeout: "750ms"
  refresh_schedule: "*/10 * * * *"
  eager_recompute: true
events:
  enabled: true
  poll_timeout: "2s"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Standings.ComputeTimeout != 750*time.Millisecond {
		t.Fatalf("ComputeTimeout = %v, want 750ms", cfg.Standings.ComputeTimeout)
	}
	if !cfg.Standings.EagerRecompute {
		t.Fatalf("EagerRecompute = false, want true")
	}
	if got := strings.Join(cfg.Events.Brokers, ","); got != "k1:9092,k2:9092" {
		t.Fatalf("Brokers = %q", got)
	}
	if cfg.Events.PollTimeout != 2*time.Second {
		t.Fatalf("PollTimeout = %v, want 2s", cfg.Events.PollTimeout)
	}
	if cfg.App.AdminToken != "secret" {
		t.Fatalf("AdminToken not loaded from environment")
	}
	if cfg.IsDevelopment() {
		t.Fatalf("IsDevelopment() = true, want false")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"bad cron", "standings:\n  refresh_schedule: \"every minute\"\n", "refresh_schedule"},
		{"events without brokers", "events:\n  enabled: true\n", "brokers"},
		{"negative concurrency", "standings:\n  refresh_concurrency: -1\n", "refresh_concurrency"},
		{"negative rate limit", "rate_limit:\n  enabled: true\n  max_per_client: -5\n", "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(baseYAML + tt.extra))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Parse([]byte(strings.Replace(baseYAML, `"sqlite"`, `"mysql"`, 1))); err == nil {
		t.Fatalf("Parse() accepted unsupported driver")
	}
	if _, err := Parse([]byte(strings.Replace(baseYAML, `"sqlite"`, `"postgres"`, 1))); err == nil {
		t.Fatalf("Parse() accepted postgres without URL")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(baseYAML), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_ADMIN_TOKEN=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("APP_ADMIN_TOKEN", "")
	os.Unsetenv("APP_ADMIN_TOKEN")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.AdminToken != "from-dotenv" {
		t.Fatalf("AdminToken = %q, want from-dotenv", cfg.App.AdminToken)
	}
}
