package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := *Defaults()
	cfg.SQLiteDBPath = "./test.db"
	cfg.JWTSecret = "0123456789abcdef0123"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid sqlite backend config",
			mutate: func(c *Config) {},
		},
		{
			name:   "valid memory backend with auth skipped",
			mutate: func(c *Config) { c.DataBackend = "memory"; c.JWTSecret = ""; c.AuthSkip = true },
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets': must be one of [memory postgres sqlite]",
		},
		{
			name:        "sqlite backend missing database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name:        "postgres backend missing DSN",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "PostgreSQL DSN cannot be empty when using postgres backend",
		},
		{
			name: "postgres idle above open",
			mutate: func(c *Config) {
				c.DataBackend = "postgres"
				c.PostgresDSN = "postgres://localhost/tusgastos"
				c.PostgresMaxIdleConns = 20
			},
			wantErr:     true,
			errorString: "invalid postgres max idle connections 20",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP URL without queue",
			mutate:      func(c *Config) { c.AMQPURL = "amqp://localhost:5672/"; c.AMQPQueue = "" },
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "short JWT secret",
			mutate:      func(c *Config) { c.JWTSecret = "short" },
			wantErr:     true,
			errorString: "JWT secret must be at least 16 characters",
		},
		{
			name:        "auth skip without mock user",
			mutate:      func(c *Config) { c.AuthSkip = true; c.AuthMockUserID = "" },
			wantErr:     true,
			errorString: "AUTH_MOCK_USER_ID is required",
		},
		{
			name:        "unknown timezone",
			mutate:      func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr:     true,
			errorString: "invalid timezone 'Mars/Olympus'",
		},
		{
			name:        "scheduler interval too short",
			mutate:      func(c *Config) { c.SchedulerInterval = 30 * time.Second },
			wantErr:     true,
			errorString: "invalid scheduler interval 30s: must be at least 1 minute",
		},
		{
			name:        "scheduler interval too long",
			mutate:      func(c *Config) { c.SchedulerInterval = 25 * time.Hour },
			wantErr:     true,
			errorString: "invalid scheduler interval 25h0m0s: must be at most 24 hours",
		},
		{
			name:        "ensure concurrency zero",
			mutate:      func(c *Config) { c.EnsureConcurrency = 0 },
			wantErr:     true,
			errorString: "invalid ensure concurrency 0",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:\n- ") {
		t.Fatalf("unexpected prefix: %q", msg)
	}
	if strings.Count(msg, "\n- ") != 2 {
		t.Fatalf("expected two problems, got %q", msg)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DATA_BACKEND", "SQLITE_DB_PATH", "AMQP_URL", "AUTH_SKIP",
		"SCHEDULER_INTERVAL", "ENSURE_CONCURRENCY", "TIMEZONE", "CACHE_TTL", "LOG_LEVEL", "LOG_FORMAT",
		"AUTH_MOCK_USER_ID", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8081" {
		t.Errorf("Load() Port = %v, want 8081", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
	}
	if cfg.SchedulerInterval != time.Hour {
		t.Errorf("Load() SchedulerInterval = %v, want 1h", cfg.SchedulerInterval)
	}
	if cfg.EnsureConcurrency != 4 {
		t.Errorf("Load() EnsureConcurrency = %v, want 4", cfg.EnsureConcurrency)
	}
	if cfg.Location().String() != "America/Santiago" {
		t.Errorf("Location() = %v", cfg.Location())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tusgastos.toml")
	content := `
[server]
port = "9000"
rate_limit_per_minute = 0
cache_ttl = "90s"

[storage]
backend = "memory"

[auth]
skip = true
mock_user_id = "file-user"

[scheduler]
interval = "15m"
ensure_concurrency = 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9191" {
		t.Errorf("env should override the file, Port = %v", cfg.Port)
	}
	if cfg.DataBackend != "memory" || !cfg.AuthSkip || cfg.AuthMockUserID != "file-user" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("explicit zero rate limit should be kept, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.CacheTTL != 90*time.Second || cfg.SchedulerInterval != 15*time.Minute || cfg.EnsureConcurrency != 8 {
		t.Errorf("unexpected durations: ttl=%v interval=%v conc=%d", cfg.CacheTTL, cfg.SchedulerInterval, cfg.EnsureConcurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[scheduler]\ninterval = \"soon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "scheduler.interval") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AUTH_SKIP", "true")
	t.Setenv("SCHEDULER_INTERVAL", "2h")
	t.Setenv("ENSURE_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataBackend != "memory" || !cfg.AuthSkip || cfg.SchedulerInterval != 2*time.Hour {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.EnsureConcurrency != 4 {
		t.Errorf("unparsable int should keep the default, got %d", cfg.EnsureConcurrency)
	}
}
