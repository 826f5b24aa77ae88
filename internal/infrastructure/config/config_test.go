package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Inventory.BaseURL = "http://inventory:8081"
	cfg.Identity.BaseURL = "http://identity:8082"
	cfg.applyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "order-service", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.07", cfg.Pricing.TaxRate)
	assert.Equal(t, "50", cfg.Pricing.ShippingFee)
	assert.Equal(t, "1000", cfg.Pricing.FreeShippingThreshold)
	assert.Equal(t, 5*time.Second, cfg.Inventory.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
}

func TestValidate(t *testing.T) {
	t.Run("valid development config", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing gateway urls rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Inventory.BaseURL = ""
		assert.Error(t, cfg.Validate())

		cfg = validConfig()
		cfg.Identity.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid port rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.HTTP.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires strong jwt secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"

		cfg.JWT.Secret = ""
		assert.Error(t, cfg.Validate())

		cfg.JWT.Secret = "short"
		assert.Error(t, cfg.Validate())

		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("production rejects disabled ssl", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "production"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "disable"
		assert.Error(t, cfg.Validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "orders",
		Password: "p@ss word",
		Name:     "orders",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	require.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Credentials with special characters must be escaped
	assert.NotContains(t, dsn, "p@ss word")
}

func TestHTTPAddr(t *testing.T) {
	cfg := HTTPConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
