package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/searchd/internal/search"

// Metrics holds search pipeline metrics.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	duration  metric.Float64Histogram
	cacheHits metric.Int64Counter
	errors    metric.Int64Counter
}

// NewMetrics creates a Metrics instance for the search pipeline.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"searchd.search.duration_seconds",
		metric.WithDescription("End-to-end search latency in seconds, labeled by cache outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"searchd.search.cache_lookups_total",
		metric.WithDescription("Cache lookups by outcome (hit, miss)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache lookup counter", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"searchd.search.errors_total",
		metric.WithDescription("Search failures by stage (validate, resolve, embed, retrieve, assemble)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordSearch records one completed search.
func (m *Metrics) RecordSearch(ctx context.Context, duration time.Duration, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1, attrs)
	}
}

// RecordError records a search failure at a pipeline stage.
func (m *Metrics) RecordError(ctx context.Context, stage string) {
	if m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}
