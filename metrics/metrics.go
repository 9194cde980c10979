package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the stored events.
type Metrics struct {
	// ImportanceCounts maps importance to the number of events holding it
	ImportanceCounts map[string]int64 `json:"importance_counts"`

	// ForwardCounts maps forward status to the number of events in it
	ForwardCounts map[string]int64 `json:"forward_counts"`

	// SourceCounts maps source to the number of events it sent
	SourceCounts map[string]int64 `json:"source_counts"`

	// Throughput represents events received per time window
	Throughput ThroughputMetrics `json:"throughput"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// ThroughputMetrics represents events received over different time windows.
type ThroughputMetrics struct {
	LastMinute         int64 `json:"last_minute"`
	LastFiveMinutes    int64 `json:"last_five_minutes"`
	LastFifteenMinutes int64 `json:"last_fifteen_minutes"`
}

// Collector defines the interface for collecting metrics from an event store.
type Collector interface {
	// Collect gathers current metrics from the store
	Collect(ctx context.Context) (Metrics, error)

	// GetImportanceCounts returns the count of events by importance
	GetImportanceCounts(ctx context.Context) (map[string]int64, error)

	// GetForwardCounts returns the count of events by forward status
	GetForwardCounts(ctx context.Context) (map[string]int64, error)

	// GetSourceCounts returns the count of events by source
	GetSourceCounts(ctx context.Context) (map[string]int64, error)

	// GetThroughput returns events received over time windows
	GetThroughput(ctx context.Context) (ThroughputMetrics, error)
}

func collect(ctx context.Context, c Collector) (Metrics, error) {
	importance, err := c.GetImportanceCounts(ctx)
	if err != nil {
		return Metrics{}, err
	}
	forward, err := c.GetForwardCounts(ctx)
	if err != nil {
		return Metrics{}, err
	}
	sources, err := c.GetSourceCounts(ctx)
	if err != nil {
		return Metrics{}, err
	}
	throughput, err := c.GetThroughput(ctx)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{
		ImportanceCounts: importance,
		ForwardCounts:    forward,
		SourceCounts:     sources,
		Throughput:       throughput,
		Timestamp:        time.Now(),
	}, nil
}
