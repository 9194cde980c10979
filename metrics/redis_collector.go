package metrics

import (
	"context"
	"fmt"

	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/marcelsud/webhook-analyzer/webhook"
)

// IndexCounter is implemented by stores that keep per-source and per-importance indexes
type IndexCounter interface {
	CountBySource(ctx context.Context, source string) (int64, error)
	CountByImportance(ctx context.Context, importance webhook.Importance) (int64, error)
}

/* RedisCollector implements the Collector interface for the Redis store
 * Importance and source counts come from the index sets and cover every stored event
 * Forward counts and throughput fall back to the recent-events window
 */
type RedisCollector struct {
	*StoreCollector
	counter      IndexCounter
	routesLoader *routes.Loader
}

// NewRedisCollector creates a new Redis metrics collector
func NewRedisCollector(counter IndexCounter, reader webhook.Reader, loader *routes.Loader) *RedisCollector {
	return &RedisCollector{
		StoreCollector: NewStoreCollector(reader, DefaultWindow),
		counter:        counter,
		routesLoader:   loader,
	}
}

// Collect gathers all metrics, preferring the index sets
func (c *RedisCollector) Collect(ctx context.Context) (Metrics, error) {
	return collect(ctx, c)
}

// GetImportanceCounts reads the cardinality of each importance set
func (c *RedisCollector) GetImportanceCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, importance := range []webhook.Importance{webhook.High, webhook.Medium, webhook.Low, webhook.UnknownImportance} {
		n, err := c.counter.CountByImportance(ctx, importance)
		if err != nil {
			return nil, fmt.Errorf("getting importance counts: %w", err)
		}
		counts[importance.String()] = n
	}
	return counts, nil
}

// GetSourceCounts reads the set of every configured source
func (c *RedisCollector) GetSourceCounts(ctx context.Context) (map[string]int64, error) {
	if c.routesLoader == nil || len(c.routesLoader.List()) == 0 {
		return c.StoreCollector.GetSourceCounts(ctx)
	}

	counts := make(map[string]int64)
	for _, source := range c.routesLoader.Sources() {
		n, err := c.counter.CountBySource(ctx, source)
		if err != nil {
			// Continue even if one source fails
			continue
		}
		counts[source] = n
	}
	return counts, nil
}
