package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/marcelsud/webhook-analyzer/webhook"
)

// otherSource labels sources that have no route when a route table is present
const otherSource = "other"

/* OTelExporter provides OpenTelemetry metrics export following OTel standards
 * It implements webhook.Observer for the pipeline counters and polls a Collector for the gauges
 */
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry
	collector     Collector
	known         map[string]bool

	// OTel meters and instruments
	meter           metric.Meter
	received        metric.Int64Counter
	rejected        metric.Int64Counter
	stored          metric.Int64Counter
	classified      metric.Int64Counter
	forwarded       metric.Int64Counter
	importanceGauge metric.Int64ObservableGauge
	forwardGauge    metric.Int64ObservableGauge
	sourceGauge     metric.Int64ObservableGauge
	throughputGauge metric.Int64ObservableGauge
}

var _ webhook.Observer = (*OTelExporter)(nil)

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
// knownSources bounds the source label; other sources are reported as "other"
func NewOTelExporter(collector Collector, knownSources []string) (*OTelExporter, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Create Prometheus exporter
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"webhook-analyzer",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		registry:      registry,
		collector:     collector,
		meter:         meter,
	}
	if len(knownSources) > 0 {
		oe.known = make(map[string]bool, len(knownSources))
		for _, s := range knownSources {
			oe.known[s] = true
		}
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&oe.received, "webhook.received", "Inbound webhook requests"},
		{&oe.rejected, "webhook.rejected", "Webhooks rejected before persistence"},
		{&oe.stored, "webhook.stored", "Webhooks persisted per backend"},
		{&oe.classified, "webhook.classified", "Classifications per analyzer and importance"},
		{&oe.forwarded, "webhook.forwarded", "Forwarding decisions per status"},
	}
	for _, c := range counters {
		*c.target, err = oe.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("{webhooks}"),
		)
		if err != nil {
			return fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	if oe.collector == nil {
		return nil
	}

	// Importance distribution of the recent events
	oe.importanceGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.events.recent",
		metric.WithDescription("Number of stored events by importance"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeImportance),
	)
	if err != nil {
		return fmt.Errorf("creating importance gauge: %w", err)
	}

	oe.forwardGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.events.forward_status",
		metric.WithDescription("Number of stored events by forward status"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeForward),
	)
	if err != nil {
		return fmt.Errorf("creating forward status gauge: %w", err)
	}

	oe.sourceGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.events.source",
		metric.WithDescription("Number of stored events by source"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeSources),
	)
	if err != nil {
		return fmt.Errorf("creating source gauge: %w", err)
	}

	oe.throughputGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.throughput",
		metric.WithDescription("Number of webhooks received over time window"),
		metric.WithUnit("{webhooks}"),
		metric.WithInt64Callback(oe.observeThroughput),
	)
	if err != nil {
		return fmt.Errorf("creating throughput gauge: %w", err)
	}

	return nil
}

func (oe *OTelExporter) Received(ctx context.Context, source string) {
	oe.received.Add(ctx, 1, metric.WithAttributes(attribute.String("source", oe.sourceLabel(source))))
}

func (oe *OTelExporter) Rejected(ctx context.Context, source, reason string) {
	oe.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", oe.sourceLabel(source)),
		attribute.String("reason", reason),
	))
}

func (oe *OTelExporter) Stored(ctx context.Context, backend string, degraded bool) {
	oe.stored.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("degraded", degraded),
	))
}

func (oe *OTelExporter) Classified(ctx context.Context, analyzer string, importance webhook.Importance) {
	oe.classified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("analyzer", analyzer),
		attribute.String("importance", importance.String()),
	))
}

func (oe *OTelExporter) Forwarded(ctx context.Context, status webhook.ForwardStatus) {
	oe.forwarded.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
}

func (oe *OTelExporter) sourceLabel(source string) string {
	if oe.known == nil || oe.known[source] {
		return source
	}
	return otherSource
}

// observeImportance is a callback that reports event counts by importance
func (oe *OTelExporter) observeImportance(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetImportanceCounts(ctx)
	if err != nil {
		return err
	}

	for importance, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("importance", importance),
		))
	}

	return nil
}

// observeForward is a callback that reports event counts by forward status
func (oe *OTelExporter) observeForward(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetForwardCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("status", status),
		))
	}

	return nil
}

// observeSources is a callback that reports event counts by source
func (oe *OTelExporter) observeSources(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetSourceCounts(ctx)
	if err != nil {
		return err
	}

	bounded := make(map[string]int64, len(counts))
	for source, count := range counts {
		bounded[oe.sourceLabel(source)] += count
	}
	for source, count := range bounded {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("source", source),
		))
	}

	return nil
}

// observeThroughput is a callback that reports throughput metrics
func (oe *OTelExporter) observeThroughput(ctx context.Context, observer metric.Int64Observer) error {
	throughput, err := oe.collector.GetThroughput(ctx)
	if err != nil {
		return err
	}

	observer.Observe(throughput.LastMinute, metric.WithAttributes(
		attribute.String("time.window", "1m"),
	))
	observer.Observe(throughput.LastFiveMinutes, metric.WithAttributes(
		attribute.String("time.window", "5m"),
	))
	observer.Observe(throughput.LastFifteenMinutes, metric.WithAttributes(
		attribute.String("time.window", "15m"),
	))

	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
