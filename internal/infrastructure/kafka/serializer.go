package kafka

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
)

// ContentTypeJSON is the only payload encoding understood on the live stream.
const ContentTypeJSON = "application/json"

// EventSerializer defines the interface for live stream codecs.
type EventSerializer interface {
	Serialize(event *entity.StreamEvent) ([]byte, error)
	SerializeMatch(matched *entity.MatchedEvent) ([]byte, error)
	Deserialize(data []byte) (*entity.StreamEvent, error)
}

// streamEventDTO is a data transfer object for decoding live stream messages.
// It matches the structure produced by StreamEvent.MarshalJSON().
type streamEventDTO struct {
	ID            string                 `json:"id"`
	Type          entity.StreamEventType `json:"type"`
	Data          json.RawMessage        `json:"data"`
	Origin        *entity.ActivityOrigin `json:"origin,omitempty"`
	Message       string                 `json:"message,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Timestamp     *time.Time             `json:"timestamp,omitempty"`
}

// JSONSerializer implements EventSerializer using JSON encoding.
// Uses a sync.Pool to reuse bytes.Buffer instances for efficient serialization.
type JSONSerializer struct {
	bufferPool *sync.Pool
}

// NewJSONSerializer creates a new JSONSerializer with a buffer pool.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Serialize encodes a stream event to JSON bytes.
func (s *JSONSerializer) Serialize(event *entity.StreamEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("event cannot be nil")
	}
	return s.encode(event)
}

// SerializeMatch encodes a matched event to JSON bytes.
func (s *JSONSerializer) SerializeMatch(matched *entity.MatchedEvent) ([]byte, error) {
	if matched == nil || matched.Event == nil {
		return nil, fmt.Errorf("matched event cannot be nil")
	}
	return s.encode(matched)
}

// encode marshals v using a pooled buffer.
func (s *JSONSerializer) encode(v any) ([]byte, error) {
	buf, ok := s.bufferPool.Get().(*bytes.Buffer)
	if !ok {
		return nil, fmt.Errorf("invalid buffer type from pool")
	}
	defer func() {
		buf.Reset()
		s.bufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	// Return a copy of the data since the buffer will be reused
	result := make([]byte, buf.Len()-1) // -1 to remove trailing newline from Encode
	copy(result, buf.Bytes()[:buf.Len()-1])
	return result, nil
}

// Deserialize decodes a live stream message. The payload is decoded as an
// activity event for the activity type and as a STIX object otherwise.
func (s *JSONSerializer) Deserialize(data []byte) (*entity.StreamEvent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	var dto streamEventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if len(dto.Data) == 0 || string(dto.Data) == "null" {
		return nil, fmt.Errorf("event %s carries no data", dto.ID)
	}

	var event *entity.StreamEvent
	if dto.Type == entity.StreamEventActivity {
		activity, err := entity.ParseActivityEvent(dto.Data)
		if err != nil {
			return nil, err
		}
		if event, err = entity.NewActivityStreamEvent(dto.ID, activity); err != nil {
			return nil, fmt.Errorf("failed to create event entity: %w", err)
		}
	} else {
		stix, err := entity.ParseStixObject(dto.Data)
		if err != nil {
			return nil, err
		}
		if event, err = entity.NewStixStreamEvent(dto.ID, dto.Type, stix); err != nil {
			return nil, fmt.Errorf("failed to create event entity: %w", err)
		}
	}

	// Apply optional fields using builder methods
	if dto.Origin != nil && !isEmptyOrigin(*dto.Origin) {
		event = event.WithOrigin(*dto.Origin)
	}
	if dto.Message != "" {
		event = event.WithMessage(dto.Message)
	}
	if dto.CorrelationID != "" {
		event = event.WithCorrelationID(dto.CorrelationID)
	}
	if dto.Timestamp != nil && !dto.Timestamp.IsZero() {
		event = event.WithTimestamp(*dto.Timestamp)
	}

	return event, nil
}

func isEmptyOrigin(o entity.ActivityOrigin) bool {
	return o.UserID == "" && len(o.GroupIDs) == 0 && len(o.OrganizationIDs) == 0 && o.IP == "" && o.Socket == "" && o.Referer == ""
}

// SerializerFactory creates the serializer for a content type.
func SerializerFactory(contentType string) (EventSerializer, error) {
	switch contentType {
	case "", ContentTypeJSON:
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}
