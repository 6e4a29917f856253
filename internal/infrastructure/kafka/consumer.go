package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// EventFilter is a function that determines if an event should be processed.
type EventFilter func(*entity.StreamEvent) bool

// messageReader is the subset of *kafka.Reader used by the consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the live stream topic and emits decoded stream events.
type Consumer struct {
	reader        messageReader
	logger        logging.Logger
	metrics       port.MetricsCollector
	serializer    EventSerializer
	filter        EventFilter
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
	isRunning     bool
	offsetManager *OffsetManager
}

// OffsetManager tracks the last offset handed out per partition.
type OffsetManager struct {
	offsets map[int]int64
	mu      sync.RWMutex
}

// NewConsumer creates a new Consumer on the configured input topic.
func NewConsumer(
	cfg *config.KafkaConfig,
	logger logging.Logger,
	metrics port.MetricsCollector,
) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:                cfg.Brokers,
		Topic:                  cfg.InputTopic,
		GroupID:                cfg.GroupID,
		StartOffset:            kafka.LastOffset,
		CommitInterval:         cfg.CommitInterval,
		SessionTimeout:         cfg.SessionTimeout,
		MaxBytes:               10e6, // 10MB
		QueueCapacity:          100,
		PartitionWatchInterval: 5 * time.Second,
	})

	consumer, err := newConsumer(reader, logger, metrics)
	if err != nil {
		return nil, err
	}
	serializer, err := SerializerFactory(cfg.ContentType)
	if err != nil {
		return nil, err
	}
	consumer.serializer = serializer
	if len(cfg.EventTypes) > 0 {
		filter, err := EventTypeFilter(cfg.EventTypes)
		if err != nil {
			return nil, err
		}
		consumer.filter = filter
	}
	return consumer, nil
}

// EventTypeFilter accepts the listed stream event types only.
func EventTypeFilter(types []string) (EventFilter, error) {
	accepted := make(map[entity.StreamEventType]bool, len(types))
	for _, t := range types {
		eventType := entity.StreamEventType(t)
		if !eventType.IsValid() {
			return nil, fmt.Errorf("unknown stream event type %q", t)
		}
		accepted[eventType] = true
	}
	return func(e *entity.StreamEvent) bool {
		return accepted[e.Type()]
	}, nil
}

func newConsumer(reader messageReader, logger logging.Logger, metrics port.MetricsCollector) (*Consumer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Consumer{
		reader:        reader,
		logger:        logger,
		metrics:       metrics,
		serializer:    NewJSONSerializer(),
		offsetManager: &OffsetManager{offsets: make(map[int]int64)},
	}, nil
}

// Subscribe starts consuming messages from the input topic.
func (kc *Consumer) Subscribe(ctx context.Context, eventChan chan<- *entity.StreamEvent, errorChan chan<- error) error {
	kc.mu.Lock()
	if kc.isRunning {
		kc.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}

	kc.ctx, kc.cancel = context.WithCancel(ctx)
	kc.isRunning = true
	kc.mu.Unlock()

	kc.wg.Add(1)
	go kc.consumeMessages(eventChan, errorChan)

	return nil
}

// consumeMessages runs the message consumption loop.
func (kc *Consumer) consumeMessages(eventChan chan<- *entity.StreamEvent, errorChan chan<- error) {
	defer kc.wg.Done()
	defer func() {
		kc.mu.Lock()
		kc.isRunning = false
		kc.mu.Unlock()
	}()

	for {
		select {
		case <-kc.ctx.Done():
			kc.logger.Info("consumer context canceled")
			return
		default:
		}

		kc.processMessage(eventChan, errorChan)
	}
}

// processMessage handles a single message from Kafka.
func (kc *Consumer) processMessage(eventChan chan<- *entity.StreamEvent, errorChan chan<- error) {
	msg, err := kc.reader.FetchMessage(kc.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || kc.ctx.Err() != nil {
			return
		}
		kc.handleFetchError(err, errorChan)
		return
	}

	event, err := kc.serializer.Deserialize(msg.Value)
	if err != nil {
		kc.handleDeserializationError(msg, err)
		return
	}

	kc.mu.RLock()
	filter := kc.filter
	kc.mu.RUnlock()
	if filter != nil && !filter(event) {
		kc.commitMessage(msg)
		return
	}

	kc.offsetManager.UpdateOffset(msg.Partition, msg.Offset)
	if kc.metrics != nil {
		kc.metrics.RecordEventConsumed()
	}

	kc.sendEvent(event, eventChan, msg)
}

// handleFetchError handles errors from fetching messages.
func (kc *Consumer) handleFetchError(err error, errorChan chan<- error) {
	kc.logger.Error("error fetching message from Kafka", logging.Err(err))
	if errorChan != nil {
		select {
		case errorChan <- fmt.Errorf("fetch message failed: %w", err):
		case <-kc.ctx.Done():
		}
	}
	if kc.metrics != nil {
		kc.metrics.RecordError("consume", "fetch_error")
	}
}

// handleDeserializationError skips a message that cannot be decoded.
func (kc *Consumer) handleDeserializationError(msg kafka.Message, err error) {
	kc.logger.Warn(
		"failed to deserialize message",
		logging.Field{Key: "partition", Value: msg.Partition},
		logging.Field{Key: "offset", Value: msg.Offset},
		logging.Err(err),
	)
	if kc.metrics != nil {
		kc.metrics.RecordError("consume", "deserialization_error")
	}
	kc.commitMessage(msg)
}

// commitMessage commits a message offset.
func (kc *Consumer) commitMessage(msg kafka.Message) {
	if err := kc.reader.CommitMessages(kc.ctx, msg); err != nil {
		kc.logger.Warn("failed to commit message", logging.Err(err))
	}
}

// sendEvent sends an event to the event channel.
func (kc *Consumer) sendEvent(event *entity.StreamEvent, eventChan chan<- *entity.StreamEvent, msg kafka.Message) {
	select {
	case eventChan <- event:
		kc.commitMessage(msg)
	case <-kc.ctx.Done():
	}
}

// Unsubscribe gracefully stops consuming messages.
func (kc *Consumer) Unsubscribe(ctx context.Context) error {
	kc.mu.Lock()
	if !kc.isRunning {
		kc.mu.Unlock()
		return fmt.Errorf("consumer is not running")
	}

	// Cancel context to stop the consumer goroutine
	kc.cancel()
	kc.mu.Unlock()

	done := make(chan struct{})
	go func() {
		kc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		kc.logger.Warn("timeout waiting for consumer to stop")
	}

	if err := kc.reader.Close(); err != nil {
		kc.logger.Error("failed to close Kafka reader", logging.Err(err))
		return fmt.Errorf("failed to close Kafka reader: %w", err)
	}

	kc.logger.Info("consumer unsubscribed")
	return nil
}

// IsRunning reports whether the consumption loop is active.
func (kc *Consumer) IsRunning() bool {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return kc.isRunning
}

// SetFilter sets a filter function for messages.
func (kc *Consumer) SetFilter(filter EventFilter) {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	kc.filter = filter
}

// GetOffset returns the last offset handed out for a partition.
func (kc *Consumer) GetOffset(partition int) int64 {
	return kc.offsetManager.GetOffset(partition)
}

// UpdateOffset updates the offset for a partition.
func (om *OffsetManager) UpdateOffset(partition int, offset int64) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.offsets[partition] = offset
}

// GetOffset retrieves the offset for a partition.
func (om *OffsetManager) GetOffset(partition int) int64 {
	om.mu.RLock()
	defer om.mu.RUnlock()
	return om.offsets[partition]
}

// Close gracefully shuts down the consumer.
func (kc *Consumer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return kc.Unsubscribe(ctx)
}
