package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marcelsud/webhook-analyzer/config"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/fallback"
	"github.com/marcelsud/webhook-analyzer/webhook/file"
	"github.com/marcelsud/webhook-analyzer/webhook/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		StoreDriver:           driver,
		DatabaseURL:           filepath.Join(dir, "webhooks.db"),
		DataDir:               filepath.Join(dir, "data"),
		AIProvider:            config.ProviderRules,
		AITimeoutSeconds:      1,
		ForwardTimeoutSeconds: 1,
		EnableAIAnalysis:      true,
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("success - file driver uses the file store directly", func(t *testing.T) {
		store, err := OpenStore(ctx, testConfig(t, config.DriverFile), zerolog.Nop())
		require.NoError(t, err)
		defer store.Close(ctx)

		assert.IsType(t, &file.Repository{}, store.Repository)
		assert.Nil(t, store.Counter)
	})

	t.Run("success - sqlite behind the file fallback", func(t *testing.T) {
		store, err := OpenStore(ctx, testConfig(t, config.DriverSQLite), zerolog.Nop())
		require.NoError(t, err)
		defer store.Close(ctx)

		fb, ok := store.Repository.(*fallback.Repository)
		require.True(t, ok)
		assert.IsType(t, &sqlite.Repository{}, fb.Primary)
		assert.IsType(t, &file.Repository{}, fb.Secondary)

		receipt, err := store.Create(ctx, webhook.Event{Source: "github", ParsedData: map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, sqlite.Backend, receipt.Backend)
	})

	t.Run("error - unreachable redis", func(t *testing.T) {
		cfg := testConfig(t, config.DriverRedis)
		cfg.RedisAddr = "127.0.0.1:1"

		_, err := OpenStore(ctx, cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestNewService(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.DriverFile)
	store, err := OpenStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close(ctx)

	svc, err := NewService(cfg, store, routes.NewLoader(), nil, zerolog.Nop())
	require.NoError(t, err)

	out, err := svc.Ingest(ctx, webhook.Request{Body: []byte(`{"event":"payment_failed"}`), Source: "stripe"})
	require.NoError(t, err)
	assert.Equal(t, webhook.High, out.Event.Importance)
	assert.Equal(t, webhook.ForwardDisabled, out.Forward.Status)
}

func TestNewService_ForwardTargets(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.DriverFile)
	cfg.ForwardURL = "https://collector.example.com/in"
	store, err := OpenStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close(ctx)

	svc, err := NewService(cfg, store, routes.NewLoader(), nil, zerolog.Nop())
	require.NoError(t, err)
	out, err := svc.Ingest(ctx, webhook.Request{Body: []byte(`{"event":"job_completed"}`), Source: "ci"})
	require.NoError(t, err)

	t.Run("success - configured forward url", func(t *testing.T) {
		res, err := svc.Forward(ctx, out.Event.ID, "https://collector.example.com/in")
		require.NoError(t, err)
		assert.Equal(t, webhook.ForwardDisabled, res.Forward.Status)
	})

	t.Run("error - arbitrary url", func(t *testing.T) {
		_, err := svc.Forward(ctx, out.Event.ID, "http://127.0.0.1:6379/")
		require.ErrorIs(t, err, webhook.ErrTargetNotAllowed)
	})
}

func TestNewClassifier(t *testing.T) {
	t.Run("error - model provider without key", func(t *testing.T) {
		cfg := testConfig(t, config.DriverFile)
		cfg.AIProvider = config.ProviderOpenAI

		_, err := NewClassifier(cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}
