package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger?sslmode=disable")
	t.Setenv("ACCRUAL_WORKERS", "8")
	t.Setenv("SETTLEMENT_QUOTE_VALIDITY", "48h")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.Accrual.Workers)
	assert.Equal(t, 3, cfg.Accrual.MaxVersionRetries)
	assert.Equal(t, 5*time.Second, cfg.Accrual.CallTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Accrual.RunDeadline)
	assert.Equal(t, 48*time.Hour, cfg.Settlement.QuoteValidity)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080"},
			Database:   DatabaseConfig{Driver: "sqlite3", URL: "file:ledger.db"},
			Scheduler:  SchedulerConfig{AccrualCron: "0 5 0 * * *", ExpiryCron: "0 0 * * * *", Timezone: "Asia/Jakarta"},
			Accrual:    AccrualConfig{Workers: 2, MaxVersionRetries: 3, CallTimeout: time.Second},
			Settlement: SettlementConfig{QuoteValidity: time.Hour},
		}
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, errorContains: "DATABASE_DRIVER"},
		{name: "no workers", mutate: func(c *Config) { c.Accrual.Workers = 0 }, errorContains: "ACCRUAL_WORKERS"},
		{name: "no retries", mutate: func(c *Config) { c.Accrual.MaxVersionRetries = 0 }, errorContains: "ACCRUAL_MAX_VERSION_RETRIES"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, errorContains: "SCHEDULER_TIMEZONE"},
		{name: "bad cron", mutate: func(c *Config) { c.Scheduler.AccrualCron = "every day" }, errorContains: "SCHEDULER_ACCRUAL_CRON"},
		{name: "zero validity", mutate: func(c *Config) { c.Settlement.QuoteValidity = 0 }, errorContains: "SETTLEMENT_QUOTE_VALIDITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
