// Package kafka publishes inspection audit events to Kafka.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"

	"github.com/ahrav/pdfguard/pkg/common/logger"
)

// Config holds the Kafka producer settings.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// PublisherMetrics records publish outcomes per topic.
type PublisherMetrics interface {
	IncMessagePublished(ctx context.Context, topic string)
	IncPublishError(ctx context.Context, topic string)
}

// NewSyncProducer creates a producer that waits for all in-sync replicas to
// acknowledge each message.
func NewSyncProducer(cfg Config) (sarama.SyncProducer, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Partitioner = sarama.NewHashPartitioner
	producerConfig.Producer.Retry.Max = 3
	producerConfig.ClientID = cfg.ClientID

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// ConnectWithRetry creates a producer with exponential backoff, for brokers
// that are still starting when the service boots.
func ConnectWithRetry(ctx context.Context, cfg Config, log *logger.Logger) (sarama.SyncProducer, error) {
	var producer sarama.SyncProducer

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 2 * time.Minute
	expBackoff.InitialInterval = 2 * time.Second

	attempt := 0
	operation := func() error {
		attempt++
		var err error
		producer, err = NewSyncProducer(cfg)
		if err != nil {
			log.Warn(ctx, "kafka not ready, retrying", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka after retries: %w", err)
	}
	return producer, nil
}
