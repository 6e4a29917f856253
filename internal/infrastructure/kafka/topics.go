package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
)

// TopicCreator creates the live-stream and matched-events topics on the
// cluster controller.
type TopicCreator struct {
	brokers []string
	topics  []kafka.TopicConfig
	dial    dialFunc
}

// NewTopicCreator builds the topic layout from the Kafka configuration.
func NewTopicCreator(cfg *config.KafkaConfig) *TopicCreator {
	dialer := &kafka.Dialer{Timeout: cfg.DialTimeout}
	topics := make([]kafka.TopicConfig, 0, 2)
	for _, name := range []string{cfg.InputTopic, cfg.OutputTopic} {
		topics = append(topics, kafka.TopicConfig{
			Topic:             name,
			NumPartitions:     int(cfg.NumPartitions),
			ReplicationFactor: int(cfg.ReplicationFactor),
		})
	}
	return &TopicCreator{brokers: cfg.Brokers, topics: topics, dial: dialer.DialContext}
}

// Topics returns the topics the creator ensures.
func (tc *TopicCreator) Topics() []kafka.TopicConfig {
	return tc.topics
}

// EnsureTopics creates the missing topics. Existing topics are left as they are.
func (tc *TopicCreator) EnsureTopics(ctx context.Context) error {
	if len(tc.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	conn, err := tc.dial(ctx, "tcp", tc.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", tc.brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to locate controller: %w", err)
	}
	controllerConn, err := tc.dial(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer controllerConn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = controllerConn.SetDeadline(deadline)
	}

	if err := controllerConn.CreateTopics(tc.topics...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	return nil
}
