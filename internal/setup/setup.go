package setup

import (
	"context"

	"github.com/marcelsud/webhook-analyzer/config"
	"github.com/marcelsud/webhook-analyzer/metrics"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/classify"
	"github.com/marcelsud/webhook-analyzer/webhook/fallback"
	"github.com/marcelsud/webhook-analyzer/webhook/file"
	"github.com/marcelsud/webhook-analyzer/webhook/forward"
	"github.com/marcelsud/webhook-analyzer/webhook/postgres"
	"github.com/marcelsud/webhook-analyzer/webhook/redis"
	"github.com/marcelsud/webhook-analyzer/webhook/sqlite"
	"github.com/rs/zerolog"
)

/* Store is the configured event store
 * Counter is set only when the backend keeps index sets the metrics can read
 */
type Store struct {
	webhook.Repository
	Counter metrics.IndexCounter
}

/* OpenStore builds the configured backend wrapped by the file fallback
 * With the file driver the file store is used directly
 */
func OpenStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (Store, error) {
	files, err := file.NewRepository(cfg.DataDir, file.WithLogger(logger))
	if err != nil {
		return Store{}, err
	}

	switch cfg.StoreDriver {
	case config.DriverFile:
		return Store{Repository: files}, nil

	case config.DriverRedis:
		repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return Store{}, err
		}
		return Store{Repository: fallback.NewRepository(repo, files, logger), Counter: repo}, nil

	case config.DriverPostgres:
		repo, err := postgres.NewRepositoryWithPoolConfig(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMins)
		if err != nil {
			return Store{}, err
		}
		if err := repo.CreateTable(ctx); err != nil {
			repo.Close(ctx)
			return Store{}, err
		}
		return Store{Repository: fallback.NewRepository(repo, files, logger)}, nil

	default:
		repo, err := sqlite.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return Store{}, err
		}
		if err := repo.CreateTable(ctx); err != nil {
			repo.Close(ctx)
			return Store{}, err
		}
		return Store{Repository: fallback.NewRepository(repo, files, logger)}, nil
	}
}

// NewClassifier returns the rules alone, or the configured model backed by the rules
func NewClassifier(cfg config.Config, logger zerolog.Logger) (*classify.Classifier, error) {
	if !cfg.UsesAI() {
		return classify.New(nil, logger), nil
	}
	model, err := classify.NewLanguageModel(classify.ProviderConfig{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		Endpoint: cfg.AIEndpoint,
		Model:    cfg.AIModel,
	})
	if err != nil {
		return nil, err
	}
	remote := classify.NewRemote(classify.ModelCompleter{Model: model}, cfg.AITimeout())
	return classify.New(remote, logger), nil
}

// NewService assembles the pipeline around an opened store
func NewService(cfg config.Config, store webhook.Repository, routeLoader *routes.Loader, observer webhook.Observer, logger zerolog.Logger) (*webhook.Service, error) {
	classifier, err := NewClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	forwarder := forward.New(cfg.EnableForward, cfg.ForwardURL, cfg.ForwardTimeout())

	targets := routeLoader.Targets()
	if cfg.ForwardURL != "" {
		targets = append(targets, cfg.ForwardURL)
	}

	return webhook.NewService(store, classifier, forwarder,
		webhook.Settings{
			Secret:           cfg.WebhookSecret,
			RequireSignature: cfg.RequireSignature,
			Classify:         cfg.EnableAIAnalysis,
			ForwardTargets:   targets,
		},
		webhook.WithPolicies(routeLoader),
		webhook.WithObserver(observer),
		webhook.WithLogger(logger),
	), nil
}
