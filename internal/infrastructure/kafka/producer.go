package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/pkg/circuitbreaker"
	"github.com/dheemanth-hn/stix-filter-gateway/pkg/retry"
)

// Header keys set on every matched event message.
const (
	HeaderStreamID      = "stream_id"
	HeaderEventID       = "event_id"
	HeaderCorrelationID = "correlation_id"
)

// messageWriter is the subset of *kafka.Writer used by the producer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements the MatchPublisher interface using Kafka.
// Messages are keyed by stream ID so the matches of one stream stay ordered.
type Producer struct {
	writer     messageWriter
	logger     logging.Logger
	metrics    port.MetricsCollector
	serializer EventSerializer
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
}

// NewProducer creates a new Producer on the configured output topic.
func NewProducer(
	cfg *config.KafkaConfig,
	logger logging.Logger,
	metrics port.MetricsCollector,
) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OutputTopic,
		Balancer:               &kafka.Hash{},
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        1 * time.Second,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		Compression:            kafka.Snappy,
	}

	return newProducer(writer, logger, metrics)
}

func newProducer(writer messageWriter, logger logging.Logger, metrics port.MetricsCollector) (*Producer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	})
	breaker.SetOnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn(
			"producer circuit breaker state changed",
			logging.Field{Key: "from", Value: from.String()},
			logging.Field{Key: "to", Value: to.String()},
		)
	})

	return &Producer{
		writer:     writer,
		logger:     logger,
		metrics:    metrics,
		serializer: NewJSONSerializer(),
		retry: retry.DefaultConfig().
			WithMaxRetries(3).
			WithMaxBackoff(2 * time.Second).
			WithIsRetryable(func(err error) bool { return !errors.Is(err, context.Canceled) }),
		breaker: breaker,
	}, nil
}

// Publish sends a single matched event to Kafka.
func (kp *Producer) Publish(ctx context.Context, matched *entity.MatchedEvent) error {
	if matched == nil {
		return fmt.Errorf("matched event cannot be nil")
	}
	return kp.PublishBatch(ctx, []*entity.MatchedEvent{matched})
}

// PublishBatch sends multiple matched events to Kafka in one write.
// Events that cannot be serialized are skipped and logged.
func (kp *Producer) PublishBatch(ctx context.Context, matched []*entity.MatchedEvent) error {
	if len(matched) == 0 {
		return fmt.Errorf("matched events slice cannot be empty")
	}

	messages := kp.serializeMatches(matched)
	if len(messages) == 0 {
		return fmt.Errorf("no valid events to publish")
	}

	err := kp.breaker.Execute(func() error {
		return retry.Do(ctx, kp.retry, func(ctx context.Context) error {
			return kp.writer.WriteMessages(ctx, messages...)
		})
	})
	if err != nil {
		if kp.metrics != nil {
			kp.metrics.RecordError("publish", publishErrorType(err))
		}
		return fmt.Errorf("failed to publish %d matched events: %w", len(messages), err)
	}

	if kp.metrics != nil {
		for range messages {
			kp.metrics.RecordEventPublished()
		}
	}
	kp.logger.Debug("matched events published", logging.Field{Key: "event_count", Value: len(messages)})
	return nil
}

// serializeMatches converts matched events to Kafka messages.
func (kp *Producer) serializeMatches(matched []*entity.MatchedEvent) []kafka.Message {
	messages := make([]kafka.Message, 0, len(matched))

	for _, m := range matched {
		if m == nil || m.Event == nil {
			continue
		}

		serialized, err := kp.serializer.SerializeMatch(m)
		if err != nil {
			kp.logger.Warn(
				"failed to serialize matched event",
				logging.Field{Key: "stream_id", Value: m.StreamID},
				logging.Field{Key: "event_id", Value: m.Event.ID()},
				logging.Err(err),
			)
			if kp.metrics != nil {
				kp.metrics.RecordError("publish", "serialization_error")
			}
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(m.StreamID),
			Value: serialized,
			Headers: []kafka.Header{
				{Key: HeaderStreamID, Value: []byte(m.StreamID)},
				{Key: HeaderEventID, Value: []byte(m.Event.ID())},
				{Key: HeaderCorrelationID, Value: []byte(m.Event.CorrelationID())},
			},
		})
	}
	return messages
}

// BreakerState returns the state of the producer circuit breaker.
func (kp *Producer) BreakerState() circuitbreaker.State {
	return kp.breaker.State()
}

// Close gracefully shuts down the producer.
func (kp *Producer) Close() error {
	if err := kp.writer.Close(); err != nil {
		kp.logger.Error("failed to close Kafka writer", logging.Err(err))
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

func publishErrorType(err error) string {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case retry.IsExhausted(err):
		return "max_retries_exceeded"
	default:
		return "write_failed"
	}
}
