package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// dialFunc opens a broker connection; swapped in tests.
type dialFunc func(ctx context.Context, network, address string) (*kafka.Conn, error)

// BrokerPinger checks that at least one broker accepts connections.
type BrokerPinger struct {
	brokers []string
	dial    dialFunc
}

// NewBrokerPinger creates a pinger over the broker list.
func NewBrokerPinger(brokers []string, timeout time.Duration) *BrokerPinger {
	dialer := &kafka.Dialer{Timeout: timeout}
	return &BrokerPinger{brokers: brokers, dial: dialer.DialContext}
}

// Ping returns nil as soon as one broker answers.
func (p *BrokerPinger) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	var lastErr error
	for _, broker := range p.brokers {
		conn, err := p.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}
