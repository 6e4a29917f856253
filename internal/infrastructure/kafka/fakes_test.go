package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// fakeReader serves queued messages and then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	committed []kafka.Message
	closed    bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{messages: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.messages <- kafka.Message{Partition: 0, Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

// fakeWriter fails the first failures writes.
type fakeWriter struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	written  []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls <= w.failures {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type countingMetrics struct {
	mu        sync.Mutex
	consumed  int
	published int
	errors    []string
}

func (m *countingMetrics) RecordMatch(string, bool, time.Duration) {}
func (m *countingMetrics) RecordValidationError(string, string)   {}
func (m *countingMetrics) RecordCacheRefresh(bool, int)           {}

func (m *countingMetrics) RecordEventConsumed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed++
}

func (m *countingMetrics) RecordEventPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
}

func (m *countingMetrics) RecordError(component, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, component+":"+errorType)
}

func (m *countingMetrics) errorList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}
