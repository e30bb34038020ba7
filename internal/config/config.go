package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	CacheTTL           time.Duration

	// Storage
	DataBackend          string
	SQLiteDBPath         string
	PostgresDSN          string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int
	DataDirectory        string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	JWTSecret      string
	AuthSkip       bool
	AuthMockUserID string

	// Scheduler
	Timezone          string
	SchedulerInterval time.Duration
	EnsureConcurrency int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetPrefix   string
}

// fileConfig mirrors the TOML layout. Durations are strings so that
// "1h" and "90s" can be written naturally.
type fileConfig struct {
	Server struct {
		Port               string `toml:"port"`
		RateLimitPerMinute *int   `toml:"rate_limit_per_minute"`
		CacheTTL           string `toml:"cache_ttl"`
	} `toml:"server"`
	Storage struct {
		Backend              string `toml:"backend"`
		SQLitePath           string `toml:"sqlite_path"`
		PostgresDSN          string `toml:"postgres_dsn"`
		PostgresMaxOpenConns int    `toml:"postgres_max_open_conns"`
		PostgresMaxIdleConns int    `toml:"postgres_max_idle_conns"`
		DataDir              string `toml:"data_dir"`
	} `toml:"storage"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Auth struct {
		JWTSecret  string `toml:"jwt_secret"`
		Skip       *bool  `toml:"skip"`
		MockUserID string `toml:"mock_user_id"`
	} `toml:"auth"`
	Scheduler struct {
		Timezone          string `toml:"timezone"`
		Interval          string `toml:"interval"`
		EnsureConcurrency int    `toml:"ensure_concurrency"`
	} `toml:"scheduler"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
	Sheets struct {
		SpreadsheetID string `toml:"spreadsheet_id"`
		SheetPrefix   string `toml:"sheet_prefix"`
	} `toml:"sheets"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 120,
		CacheTTL:           5 * time.Minute,

		DataBackend:          "sqlite",
		SQLiteDBPath:         "./data/tusgastos.db",
		PostgresMaxOpenConns: 10,
		PostgresMaxIdleConns: 5,
		DataDirectory:        "data",

		AMQPExchange: "tusgastos",
		AMQPQueue:    "tusgastos_events",

		AuthMockUserID: "dev-user",

		Timezone:          "America/Santiago",
		SchedulerInterval: time.Hour,
		EnsureConcurrency: 4,

		LogLevel:  "info",
		LogFormat: "text",

		GoogleSheetPrefix: "TusGastos",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// CONFIG_FILE (if any) and finally environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	if fc.Server.RateLimitPerMinute != nil {
		c.RateLimitPerMinute = *fc.Server.RateLimitPerMinute
	}
	if err := setDuration(&c.CacheTTL, "server.cache_ttl", fc.Server.CacheTTL); err != nil {
		return err
	}

	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.PostgresDSN, fc.Storage.PostgresDSN)
	setInt(&c.PostgresMaxOpenConns, fc.Storage.PostgresMaxOpenConns)
	setInt(&c.PostgresMaxIdleConns, fc.Storage.PostgresMaxIdleConns)
	setString(&c.DataDirectory, fc.Storage.DataDir)

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	setString(&c.JWTSecret, fc.Auth.JWTSecret)
	if fc.Auth.Skip != nil {
		c.AuthSkip = *fc.Auth.Skip
	}
	setString(&c.AuthMockUserID, fc.Auth.MockUserID)

	setString(&c.Timezone, fc.Scheduler.Timezone)
	if err := setDuration(&c.SchedulerInterval, "scheduler.interval", fc.Scheduler.Interval); err != nil {
		return err
	}
	setInt(&c.EnsureConcurrency, fc.Scheduler.EnsureConcurrency)

	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.LogFile, fc.Log.File)

	setString(&c.GoogleSpreadsheetID, fc.Sheets.SpreadsheetID)
	setString(&c.GoogleSheetPrefix, fc.Sheets.SheetPrefix)
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.PostgresMaxOpenConns = getEnvInt("POSTGRES_MAX_OPEN_CONNS", c.PostgresMaxOpenConns)
	c.PostgresMaxIdleConns = getEnvInt("POSTGRES_MAX_IDLE_CONNS", c.PostgresMaxIdleConns)
	c.DataDirectory = getEnv("DATA_DIR", c.DataDirectory)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AuthSkip = getEnvBool("AUTH_SKIP", c.AuthSkip)
	c.AuthMockUserID = getEnv("AUTH_MOCK_USER_ID", c.AuthMockUserID)

	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.SchedulerInterval = getEnvDuration("SCHEDULER_INTERVAL", c.SchedulerInterval)
	c.EnsureConcurrency = getEnvInt("ENSURE_CONCURRENCY", c.EnsureConcurrency)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetPrefix = getEnv("GOOGLE_SHEET_PREFIX", c.GoogleSheetPrefix)
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "postgres", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "PostgreSQL DSN cannot be empty when using postgres backend")
		}
		if c.PostgresMaxOpenConns < 1 {
			errors = append(errors, fmt.Sprintf("invalid postgres max open connections %d: must be at least 1", c.PostgresMaxOpenConns))
		}
		if c.PostgresMaxIdleConns < 0 || c.PostgresMaxIdleConns > c.PostgresMaxOpenConns {
			errors = append(errors, fmt.Sprintf("invalid postgres max idle connections %d: must be between 0 and %d", c.PostgresMaxIdleConns, c.PostgresMaxOpenConns))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuthSkip {
		if c.AuthMockUserID == "" {
			errors = append(errors, "AUTH_MOCK_USER_ID is required when AUTH_SKIP is enabled")
		}
	} else if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters unless AUTH_SKIP is enabled")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.SchedulerInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 minute", c.SchedulerInterval))
	} else if c.SchedulerInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at most 24 hours", c.SchedulerInterval))
	}

	if c.EnsureConcurrency < 1 || c.EnsureConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid ensure concurrency %d: must be between 1 and 64", c.EnsureConcurrency))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
