package inspection

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
)

const namespace = "pdfguard_inspection"

// CoordinatorMetrics tracks cache and in-flight behavior.
type CoordinatorMetrics interface {
	IncCacheHit(ctx context.Context)
	IncCacheMiss(ctx context.Context)
	IncInFlightJoin(ctx context.Context)
	IncExtraction(ctx context.Context, strategy domain.Strategy)
}

// OrchestratorMetrics tracks decisions and their dependencies.
type OrchestratorMetrics interface {
	IncVerdict(ctx context.Context, action domain.Action, source domain.Source)
	IncExternalScanError(ctx context.Context)
	IncPublishError(ctx context.Context)
	ObserveInspectionDuration(ctx context.Context, duration time.Duration)
}

// InspectionMetrics is the full set of metrics for the inspection pipeline.
type InspectionMetrics interface {
	CoordinatorMetrics
	OrchestratorMetrics
}

type inspectionMetrics struct {
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	inflightJoins      metric.Int64Counter
	extractions        metric.Int64Counter
	verdicts           metric.Int64Counter
	externalScanErrors metric.Int64Counter
	publishErrors      metric.Int64Counter
	inspectionDuration metric.Float64Histogram
}

// NewInspectionMetrics registers the pipeline instruments with mp.
func NewInspectionMetrics(mp metric.MeterProvider) (InspectionMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(inspectionMetrics)
	var err error

	if m.cacheHits, err = meter.Int64Counter(
		"extraction_cache_hits_total",
		metric.WithDescription("Total number of extraction cache hits"),
	); err != nil {
		return nil, err
	}

	if m.cacheMisses, err = meter.Int64Counter(
		"extraction_cache_misses_total",
		metric.WithDescription("Total number of extraction cache misses"),
	); err != nil {
		return nil, err
	}

	if m.inflightJoins, err = meter.Int64Counter(
		"extraction_inflight_joins_total",
		metric.WithDescription("Total number of callers that shared an in-flight extraction"),
	); err != nil {
		return nil, err
	}

	if m.extractions, err = meter.Int64Counter(
		"extractions_total",
		metric.WithDescription("Total number of extractions executed, by strategy"),
	); err != nil {
		return nil, err
	}

	if m.verdicts, err = meter.Int64Counter(
		"verdicts_total",
		metric.WithDescription("Total number of verdicts, by action and source"),
	); err != nil {
		return nil, err
	}

	if m.externalScanErrors, err = meter.Int64Counter(
		"external_scan_errors_total",
		metric.WithDescription("Total number of failed external scan calls"),
	); err != nil {
		return nil, err
	}

	if m.publishErrors, err = meter.Int64Counter(
		"verdict_publish_errors_total",
		metric.WithDescription("Total number of verdict events that failed to publish"),
	); err != nil {
		return nil, err
	}

	if m.inspectionDuration, err = meter.Float64Histogram(
		"inspection_duration_seconds",
		metric.WithDescription("Time to reach a verdict in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *inspectionMetrics) IncCacheHit(ctx context.Context)  { m.cacheHits.Add(ctx, 1) }
func (m *inspectionMetrics) IncCacheMiss(ctx context.Context) { m.cacheMisses.Add(ctx, 1) }

func (m *inspectionMetrics) IncInFlightJoin(ctx context.Context) { m.inflightJoins.Add(ctx, 1) }

func (m *inspectionMetrics) IncExtraction(ctx context.Context, strategy domain.Strategy) {
	m.extractions.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", string(strategy))))
}

func (m *inspectionMetrics) IncVerdict(ctx context.Context, action domain.Action, source domain.Source) {
	m.verdicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(action)),
		attribute.String("source", string(source)),
	))
}

func (m *inspectionMetrics) IncExternalScanError(ctx context.Context) { m.externalScanErrors.Add(ctx, 1) }

func (m *inspectionMetrics) IncPublishError(ctx context.Context) { m.publishErrors.Add(ctx, 1) }

func (m *inspectionMetrics) ObserveInspectionDuration(ctx context.Context, duration time.Duration) {
	m.inspectionDuration.Record(ctx, duration.Seconds())
}
