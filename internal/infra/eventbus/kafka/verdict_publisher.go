package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/internal/infra/eventbus/kafka/tracing"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

var _ domain.VerdictPublisher = (*VerdictPublisher)(nil)

// VerdictPublisher writes verdict audit events to a Kafka topic, keyed by
// fingerprint so every decision about the same content lands on one partition.
type VerdictPublisher struct {
	producer sarama.SyncProducer
	topic    string

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics PublisherMetrics
}

// NewVerdictPublisher wraps an existing producer.
func NewVerdictPublisher(
	producer sarama.SyncProducer,
	topic string,
	log *logger.Logger,
	tracer trace.Tracer,
	metrics PublisherMetrics,
) *VerdictPublisher {
	return &VerdictPublisher{
		producer: producer,
		topic:    topic,
		logger:   log.With("component", "kafka_verdict_publisher", "topic", topic),
		tracer:   tracer,
		metrics:  metrics,
	}
}

// PublishVerdict serializes evt as JSON and sends it synchronously.
func (p *VerdictPublisher) PublishVerdict(ctx context.Context, evt domain.VerdictEvent) error {
	ctx, span := tracing.StartProducerSpan(ctx, p.topic, p.tracer)
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", evt.RequestID),
		attribute.String("action", string(evt.Action)),
	)

	payload, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		p.metrics.IncPublishError(ctx, p.topic)
		return fmt.Errorf("failed to serialize verdict event: %w", err)
	}

	key := evt.Fingerprint.String()
	if key == "" {
		key = evt.RequestID
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("VerdictReached")},
		},
	}
	tracing.InjectTraceContext(ctx, msg)

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.SetStatus(codes.Error, "send failed")
		span.RecordError(err)
		p.metrics.IncPublishError(ctx, p.topic)
		return fmt.Errorf("failed to send message to kafka topic %s: %w", p.topic, err)
	}
	p.metrics.IncMessagePublished(ctx, p.topic)

	p.logger.Debug(ctx, "published verdict event",
		"request_id", evt.RequestID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the underlying producer.
func (p *VerdictPublisher) Close() error { return p.producer.Close() }
