package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server     ServerConfig     `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:",squash"`
	Redis      RedisConfig      `mapstructure:",squash"`
	Scheduler  SchedulerConfig  `mapstructure:",squash"`
	Accrual    AccrualConfig    `mapstructure:",squash"`
	Settlement SettlementConfig `mapstructure:",squash"`
	Report     ReportConfig     `mapstructure:",squash"`
	Logging    LoggingConfig    `mapstructure:",squash"`
	Health     HealthConfig     `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"DATABASE_DRIVER"`
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

// RedisConfig is optional: with an empty URL the engine falls back to
// in-process locks and uncached policy lookups.
type RedisConfig struct {
	URL       string        `mapstructure:"REDIS_URL"`
	KeyPrefix string        `mapstructure:"REDIS_KEY_PREFIX"`
	PolicyTTL time.Duration `mapstructure:"REDIS_POLICY_TTL"`
	LockTTL   time.Duration `mapstructure:"REDIS_LOCK_TTL"`
}

type SchedulerConfig struct {
	AccrualCron string `mapstructure:"SCHEDULER_ACCRUAL_CRON"`
	ExpiryCron  string `mapstructure:"SCHEDULER_EXPIRY_CRON"`
	Timezone    string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type AccrualConfig struct {
	Workers           int           `mapstructure:"ACCRUAL_WORKERS"`
	RunDeadline       time.Duration `mapstructure:"ACCRUAL_RUN_DEADLINE"`
	CallTimeout       time.Duration `mapstructure:"ACCRUAL_CALL_TIMEOUT"`
	MaxVersionRetries int           `mapstructure:"ACCRUAL_MAX_VERSION_RETRIES"`
	LoanRetries       int           `mapstructure:"ACCRUAL_LOAN_RETRIES"`
}

type SettlementConfig struct {
	QuoteValidity time.Duration `mapstructure:"SETTLEMENT_QUOTE_VALIDITY"`
}

// ReportConfig points ledger exports at an S3-compatible bucket. Exports are
// written locally when Endpoint is empty.
type ReportConfig struct {
	Endpoint  string `mapstructure:"REPORT_S3_ENDPOINT"`
	AccessKey string `mapstructure:"REPORT_S3_ACCESS_KEY"`
	SecretKey string `mapstructure:"REPORT_S3_SECRET_KEY"`
	Bucket    string `mapstructure:"REPORT_S3_BUCKET"`
	Region    string `mapstructure:"REPORT_S3_REGION"`
	UseSSL    bool   `mapstructure:"REPORT_S3_USE_SSL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":                 "8080",
	"SERVER_HOST":                 "0.0.0.0",
	"ENV":                         "development",
	"SERVER_READ_TIMEOUT":         "15s",
	"SERVER_WRITE_TIMEOUT":        "15s",
	"DATABASE_DRIVER":             "postgres",
	"DATABASE_URL":                "",
	"DATABASE_MAX_OPEN_CONNS":     25,
	"DATABASE_MAX_IDLE_CONNS":     5,
	"DATABASE_CONN_MAX_LIFETIME":  "5m",
	"DATABASE_AUTO_MIGRATE":       false,
	"REDIS_URL":                   "",
	"REDIS_KEY_PREFIX":            "ledger:",
	"REDIS_POLICY_TTL":            "10m",
	"REDIS_LOCK_TTL":              "30s",
	"SCHEDULER_ACCRUAL_CRON":      "0 5 0 * * *",
	"SCHEDULER_EXPIRY_CRON":       "0 0 * * * *",
	"SCHEDULER_TIMEZONE":          "Asia/Jakarta",
	"ACCRUAL_WORKERS":             4,
	"ACCRUAL_RUN_DEADLINE":        "30m",
	"ACCRUAL_CALL_TIMEOUT":        "5s",
	"ACCRUAL_MAX_VERSION_RETRIES": 3,
	"ACCRUAL_LOAN_RETRIES":        2,
	"SETTLEMENT_QUOTE_VALIDITY":   "24h",
	"REPORT_S3_ENDPOINT":          "",
	"REPORT_S3_ACCESS_KEY":        "",
	"REPORT_S3_SECRET_KEY":        "",
	"REPORT_S3_BUCKET":            "ledger-exports",
	"REPORT_S3_REGION":            "us-east-1",
	"REPORT_S3_USE_SSL":           false,
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"HEALTH_CHECK_TIMEOUT":        "5s",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Preload .env into the process environment; real env vars win.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.Database.Driver)
	}

	if c.Accrual.Workers <= 0 {
		return fmt.Errorf("ACCRUAL_WORKERS must be greater than 0")
	}

	if c.Accrual.MaxVersionRetries <= 0 {
		return fmt.Errorf("ACCRUAL_MAX_VERSION_RETRIES must be greater than 0")
	}

	if c.Accrual.LoanRetries < 0 {
		return fmt.Errorf("ACCRUAL_LOAN_RETRIES must not be negative")
	}

	if c.Accrual.CallTimeout <= 0 {
		return fmt.Errorf("ACCRUAL_CALL_TIMEOUT must be a positive duration")
	}

	if c.Settlement.QuoteValidity <= 0 {
		return fmt.Errorf("SETTLEMENT_QUOTE_VALIDITY must be a positive duration")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Scheduler.AccrualCron); err != nil {
		return fmt.Errorf("SCHEDULER_ACCRUAL_CRON is invalid: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.ExpiryCron); err != nil {
		return fmt.Errorf("SCHEDULER_EXPIRY_CRON is invalid: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Location returns the ledger timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisEnabled reports whether a Redis URL is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}
