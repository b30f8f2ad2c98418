package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Gateway: GatewayConfig{
			WebhookTolerance: 5 * time.Minute,
		},
		Worker: WorkerConfig{
			BatchSize: 10,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "server.port",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantMsg: "database.host",
		},
		{
			name:    "zero webhook tolerance",
			mutate:  func(c *Config) { c.Gateway.WebhookTolerance = 0 },
			wantMsg: "webhook_tolerance",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Worker.BatchSize = 0 },
			wantMsg: "batch_size",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "too-short" },
			wantMsg: "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "server.port") && strings.Contains(err.Error(), "database.host"))
}

func TestConfig_ProductionChecks(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := validConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password required in production")
	assert.Contains(t, err.Error(), "auth.jwt_secret required in production")
	assert.Contains(t, err.Error(), "gateway.webhook_secret required in production")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.WebhookTolerance)
	assert.Equal(t, "mock", cfg.Gateway.Provider)
	assert.Equal(t, "receipt-senders", cfg.Worker.ConsumerGroup)
	assert.Equal(t, 30*time.Second, cfg.Worker.ReceiptLockTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
}

func TestDatabaseDSN(t *testing.T) {
	c := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Database: "marketplace",
		SSLMode:  "require",
	}
	assert.Equal(t, "host=db.internal port=5433 user=svc password=pw dbname=marketplace sslmode=require", c.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	c := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", c.RedisAddr())
}
