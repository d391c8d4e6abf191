package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigSQLBackend(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Database.Backend = "sql"
		return cfg
	}

	t.Run("no dsn and no host is rejected", func(t *testing.T) {
		err := validateConfig(base())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sql.dsn or host")
	})

	t.Run("dsn alone is enough", func(t *testing.T) {
		cfg := base()
		cfg.Database.SQL.DSN = "file:infractions.db?mode=ro"
		assert.NoError(t, validateConfig(cfg))
	})

	t.Run("host alone is enough", func(t *testing.T) {
		cfg := base()
		cfg.Database.SQL.Host = "localhost"
		assert.NoError(t, validateConfig(cfg))
	})
}

func TestValidateConfigSupabaseBackend(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Backend = "supabase"

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.supabase.url")

	cfg.Database.Supabase.URL = "https://example.supabase.co"
	err = validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.supabase.api_key")

	cfg.Database.Supabase.APIKey = "key"
	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfigRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Backend = "dynamo"
	assert.Error(t, validateConfig(cfg))
}

func TestValidateConfigRanges(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Database.Backend = "sql"
		cfg.Database.SQL.DSN = "file:infractions.db"
		return cfg
	}

	t.Run("redis enabled needs address", func(t *testing.T) {
		cfg := base()
		cfg.Database.Redis.Enabled = true
		assert.Error(t, validateConfig(cfg))

		cfg.Database.Redis.Address = "localhost:6379"
		assert.NoError(t, validateConfig(cfg))
	})

	t.Run("refresh hour bounds", func(t *testing.T) {
		cfg := base()
		cfg.Refresh.Hour = 24
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("name match threshold bounds", func(t *testing.T) {
		cfg := base()
		cfg.Analytics.NameMatchThreshold = 101
		assert.Error(t, validateConfig(cfg))
	})
}
