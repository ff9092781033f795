// Package api holds the HTTP layer's shared metrics.
package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/pdfguard/internal/api/mid"
	"github.com/ahrav/pdfguard/internal/infra/eventbus/kafka"
)

const namespace = "pdfguard_api"

// APIMetrics defines metrics operations needed by the API process.
type APIMetrics interface {
	// Verdict event publishing.
	kafka.PublisherMetrics

	mid.RequestMetrics
	IncUploadRejected(ctx context.Context, reason string)
}

type apiMetrics struct {
	messagesPublished metric.Int64Counter
	publishErrors     metric.Int64Counter

	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	uploadsRejected metric.Int64Counter
}

func NewAPIMetrics(mp metric.MeterProvider) (*apiMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(apiMetrics)
	var err error

	if m.messagesPublished, err = meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of verdict events published"),
	); err != nil {
		return nil, err
	}

	if m.publishErrors, err = meter.Int64Counter(
		"publish_errors_total",
		metric.WithDescription("Total number of verdict event publish errors"),
	); err != nil {
		return nil, err
	}

	if m.requestsTotal, err = meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, err
	}

	if m.uploadsRejected, err = meter.Int64Counter(
		"uploads_rejected_total",
		metric.WithDescription("Total number of uploads rejected before inspection"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *apiMetrics) IncMessagePublished(ctx context.Context, topic string) {
	m.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *apiMetrics) IncPublishError(ctx context.Context, topic string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *apiMetrics) IncRequestsTotal(ctx context.Context, method, path string, status int) {
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	))
}

func (m *apiMetrics) ObserveRequestDuration(ctx context.Context, method, path string, duration time.Duration) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	))
}

func (m *apiMetrics) IncUploadRejected(ctx context.Context, reason string) {
	m.uploadsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
