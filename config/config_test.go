package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("success - defaults without a config file", func(t *testing.T) {
		for _, key := range []string{"PORT", "STORE_DRIVER", "DATABASE_URL", "DATA_DIR", "AI_PROVIDER", "MAX_BODY_BYTES"} {
			t.Setenv(key, "")
		}

		cfg, err := Load(viper.New(), t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, "5000", cfg.Port)
		assert.Equal(t, DriverSQLite, cfg.StoreDriver)
		assert.Equal(t, "webhooks.db", cfg.DatabaseURL)
		assert.Equal(t, "webhooks_data", cfg.DataDir)
		assert.True(t, cfg.EnableAIAnalysis)
		assert.Equal(t, ProviderRules, cfg.AIProvider)
		assert.False(t, cfg.EnableForward)
		assert.False(t, cfg.RequireSignature)
		assert.Equal(t, 15*time.Second, cfg.AITimeout())
		assert.Equal(t, 10*time.Second, cfg.ForwardTimeout())
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
		assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
		assert.False(t, cfg.UsesAI())
	})

	t.Run("success - file overlaid by environment", func(t *testing.T) {
		dir := t.TempDir()
		content := `
PORT = "8080"
STORE_DRIVER = "Postgres"
DATABASE_URL = "postgres://u:p@localhost/db?sslmode=disable"
WEBHOOK_SECRET = "from-file"
ENABLE_FORWARD = true
FORWARD_URL = "https://collector.example.com/in"
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
		t.Setenv("WEBHOOK_SECRET", "from-env")
		t.Setenv("REQUIRE_SIGNATURE", "true")

		cfg, err := Load(viper.New(), dir)

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, DriverPostgres, cfg.StoreDriver)
		assert.Equal(t, "from-env", cfg.WebhookSecret)
		assert.True(t, cfg.RequireSignature)
		assert.True(t, cfg.EnableForward)
		assert.Equal(t, "https://collector.example.com/in", cfg.ForwardURL)
	})

	t.Run("error - malformed config file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT = = ="), 0o600))

		_, err := Load(viper.New(), dir)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("error - invalid values", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")

		_, err := Load(viper.New(), t.TempDir())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown STORE_DRIVER")
	})
}

func validConfig() Config {
	return Config{
		Port:                  "5000",
		StoreDriver:           DriverSQLite,
		DatabaseURL:           "webhooks.db",
		DataDir:               "webhooks_data",
		EnableAIAnalysis:      true,
		AIProvider:            ProviderRules,
		AITimeoutSeconds:      15,
		ForwardTimeoutSeconds: 10,
		RequestTimeoutSeconds: 30,
		MaxBodyBytes:          1 << 20,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("success - valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())

		cfg := validConfig()
		cfg.StoreDriver = DriverFile
		cfg.DatabaseURL = ""
		assert.NoError(t, cfg.Validate())
	})

	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"unknown driver":          {func(c *Config) { c.StoreDriver = "mysql" }, "unknown STORE_DRIVER"},
		"missing database url":    {func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL is required"},
		"missing redis addr":      {func(c *Config) { c.StoreDriver = DriverRedis; c.RedisAddr = "" }, "REDIS_ADDR is required"},
		"unknown provider":        {func(c *Config) { c.AIProvider = "llama" }, "unknown AI_PROVIDER"},
		"remote without key":      {func(c *Config) { c.AIProvider = ProviderOpenAI }, "AI_API_KEY is required"},
		"relative forward url":    {func(c *Config) { c.ForwardURL = "/collector" }, "FORWARD_URL"},
		"bad endpoint":            {func(c *Config) { c.AIEndpoint = "ftp://models" }, "AI_ENDPOINT"},
		"required without secret": {func(c *Config) { c.RequireSignature = true }, "REQUIRE_SIGNATURE needs WEBHOOK_SECRET"},
		"zero forward timeout":    {func(c *Config) { c.ForwardTimeoutSeconds = 0 }, "FORWARD_TIMEOUT_SECONDS"},
		"zero body limit":         {func(c *Config) { c.MaxBodyBytes = 0 }, "MAX_BODY_BYTES"},
		"zero request timeout":    {func(c *Config) { c.RequestTimeoutSeconds = 0 }, "REQUEST_TIMEOUT_SECONDS must be positive"},
		"timeouts over request":   {func(c *Config) { c.AITimeoutSeconds = 30; c.ForwardTimeoutSeconds = 10 }, "must be below REQUEST_TIMEOUT_SECONDS (30)"},
		"timeouts equal request":  {func(c *Config) { c.AITimeoutSeconds = 20; c.ForwardTimeoutSeconds = 10 }, "(30) must be below"},
	}
	for name, tc := range cases {
		t.Run("error - "+name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("success - remote provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.AIProvider = ProviderAnthropic
		cfg.AIAPIKey = "key"
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.UsesAI())
	})
}
