package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateEnv points the dotenv loader at an empty temp dir so a developer .env never leaks in.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMPANION_ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestNew_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "companion.db" {
		t.Fatalf("unexpected store defaults: %s %s", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.EventThreshold != 0.3 || cfg.TrendWindow != 10 || cfg.HistoryLimit != 20 {
		t.Fatalf("unexpected tuning defaults: %+v", cfg)
	}
	if cfg.RedisTTL != 10*time.Minute || cfg.CollaboratorTimeout != 5*time.Second {
		t.Fatalf("unexpected durations: ttl=%v timeout=%v", cfg.RedisTTL, cfg.CollaboratorTimeout)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("COMPANION_STORE_DRIVER", "postgres")
	t.Setenv("COMPANION_POSTGRES_DSN", "postgres://companion@localhost/companion")
	t.Setenv("COMPANION_EVENT_THRESHOLD", "0.5")
	t.Setenv("COMPANION_DISPATCH_SHARDS", "8")
	t.Setenv("COMPANION_HEALTH_INTERVAL", "250ms")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.PostgresDSN == "" {
		t.Fatalf("driver override failed: %+v", cfg)
	}
	if cfg.EventThreshold != 0.5 || cfg.DispatchShards != 8 {
		t.Fatalf("numeric overrides failed: %+v", cfg)
	}
	if cfg.HealthInterval.String() != "250ms" {
		t.Fatalf("unexpected HealthInterval: %v", cfg.HealthInterval)
	}
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	isolateEnv(t)
	t.Setenv("COMPANION_STORE_DRIVER", "postgres")

	_, err := New()
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected missing DSN error, got %v", err)
	}
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	isolateEnv(t)
	t.Setenv("COMPANION_STORE_DRIVER", "spanner")

	if _, err := New(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestNew_LoadsDotenvWithoutOverriding(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "companion.env")
	body := "COMPANION_TREND_WINDOW=6\nCOMPANION_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("COMPANION_ENV_FILE", path)
	t.Setenv("COMPANION_LOG_LEVEL", "warn")
	// godotenv sets variables in the process; make sure they do not leak into other tests.
	t.Cleanup(func() { _ = os.Unsetenv("COMPANION_TREND_WINDOW") })

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.TrendWindow != 6 {
		t.Fatalf("dotenv value not applied: %d", cfg.TrendWindow)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("dotenv must not override existing env, got %s", cfg.LogLevel)
	}
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.EventThreshold = 1.5 }},
		{"threshold negative", func(c *Config) { c.EventThreshold = -0.1 }},
		{"trend window too small", func(c *Config) { c.TrendWindow = 1 }},
		{"history limit zero", func(c *Config) { c.HistoryLimit = 0 }},
		{"empty sqlite path", func(c *Config) { c.SQLitePath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewForTesting()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := NewForTesting().Validate(); err != nil {
		t.Fatalf("testing config should validate: %v", err)
	}
}
