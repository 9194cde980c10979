package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
)

// DefaultWindow is how many recent events the store collector inspects
const DefaultWindow = 500

// StoreCollector derives metrics from the most recent events of any webhook.Reader
type StoreCollector struct {
	reader webhook.Reader
	window int
	now    func() time.Time
}

// NewStoreCollector creates a collector over the newest window events
func NewStoreCollector(reader webhook.Reader, window int) *StoreCollector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &StoreCollector{reader: reader, window: window, now: time.Now}
}

// Collect gathers all metrics from one listing
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	return collect(ctx, c)
}

func (c *StoreCollector) GetImportanceCounts(ctx context.Context) (map[string]int64, error) {
	return c.count(ctx, func(ev webhook.Event) string { return ev.Importance.String() }, importanceLabels())
}

func (c *StoreCollector) GetForwardCounts(ctx context.Context) (map[string]int64, error) {
	return c.count(ctx, func(ev webhook.Event) string { return ev.ForwardStatus.String() }, nil)
}

func (c *StoreCollector) GetSourceCounts(ctx context.Context) (map[string]int64, error) {
	return c.count(ctx, func(ev webhook.Event) string { return ev.Source }, nil)
}

// GetThroughput counts recent events by arrival time
func (c *StoreCollector) GetThroughput(ctx context.Context) (ThroughputMetrics, error) {
	events, err := c.reader.List(ctx, c.window)
	if err != nil {
		return ThroughputMetrics{}, fmt.Errorf("listing recent events: %w", err)
	}

	now := c.now()
	var tp ThroughputMetrics
	for _, ev := range events {
		age := now.Sub(ev.Timestamp)
		if age > 15*time.Minute {
			continue
		}
		tp.LastFifteenMinutes++
		if age <= 5*time.Minute {
			tp.LastFiveMinutes++
		}
		if age <= time.Minute {
			tp.LastMinute++
		}
	}
	return tp, nil
}

func (c *StoreCollector) count(ctx context.Context, key func(webhook.Event) string, seed []string) (map[string]int64, error) {
	events, err := c.reader.List(ctx, c.window)
	if err != nil {
		return nil, fmt.Errorf("listing recent events: %w", err)
	}

	counts := make(map[string]int64, len(seed))
	for _, k := range seed {
		counts[k] = 0
	}
	for _, ev := range events {
		counts[key(ev)]++
	}
	return counts, nil
}

func importanceLabels() []string {
	return []string{
		webhook.High.String(),
		webhook.Medium.String(),
		webhook.Low.String(),
		webhook.UnknownImportance.String(),
	}
}
