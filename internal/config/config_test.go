package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auction.yaml")
	data := `
server:
  addr: ":9090"
  allowed_origins: ["https://auction.example.com"]
storage:
  driver: memory
  bid_timeout: 2s
realtime:
  send_buffer: 16
insight:
  endpoint: https://oracle.example.com/v1/chat/completions
log:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://auction.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Second, cfg.Storage.BidTimeout)
	assert.Equal(t, 16, cfg.Realtime.SendBuffer)
	assert.Equal(t, 20, cfg.Realtime.Burst, "unset keys keep defaults")
	assert.Equal(t, "https://oracle.example.com/v1/chat/completions", cfg.Insight.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":           "3001",
		"DATABASE_URL":   "postgres://u:p@db/auction",
		"JWT_SECRET":     "s3cret",
		"AMQP_URL":       "amqp://guest:guest@mq:5672/",
		"ORACLE_API_KEY": "key",
		"LOG_LEVEL":      "warn",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, "postgres://u:p@db/auction", cfg.Storage.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.Events.AMQPURL)
	assert.Equal(t, "key", cfg.Insight.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"UnknownDriver", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.driver"},
		{"MissingDatabaseURL", func(c *Config) { c.Storage.DatabaseURL = "" }, "storage.database_url"},
		{"ZeroBidTimeout", func(c *Config) { c.Storage.BidTimeout = 0 }, "storage.bid_timeout"},
		{"EmptySecret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret is required"},
		{"DefaultSecretInProduction", func(c *Config) { c.Environment = "production" }, "must be set in production"},
		{"ZeroTTL", func(c *Config) { c.Auth.TokenTTL = 0 }, "auth.token_ttl"},
		{"ZeroSendBuffer", func(c *Config) { c.Realtime.SendBuffer = 0 }, "realtime.send_buffer"},
		{"ZeroRate", func(c *Config) { c.Realtime.MessagesPerSecond = 0 }, "realtime.messages_per_second"},
		{"OracleWithoutTimeout", func(c *Config) {
			c.Insight.Endpoint = "http://oracle"
			c.Insight.Timeout = 0
		}, "insight.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Default()
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.DatabaseURL = ""
	assert.NoError(t, cfg.Validate(), "memory driver needs no database url")
}
