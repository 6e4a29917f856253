package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// StreamEventType is the kind of change carried by a live stream event.
type StreamEventType string

// StreamEventType constants define the supported change kinds.
const (
	StreamEventCreate   StreamEventType = "create"
	StreamEventUpdate   StreamEventType = "update"
	StreamEventMerge    StreamEventType = "merge"
	StreamEventDelete   StreamEventType = "delete"
	StreamEventActivity StreamEventType = "activity"
)

// IsValid returns true for a known change kind.
func (t StreamEventType) IsValid() bool {
	switch t {
	case StreamEventCreate, StreamEventUpdate, StreamEventMerge, StreamEventDelete, StreamEventActivity:
		return true
	default:
		return false
	}
}

// StreamEvent is a domain entity that represents one message of the live stream.
// It carries either a STIX object or an activity event. Stream events are
// immutable after creation.
type StreamEvent struct {
	id            string
	eventType     StreamEventType
	stix          *StixObject
	activity      *ActivityEvent
	origin        ActivityOrigin
	message       string
	correlationID string
	timestamp     time.Time
}

// NewStixStreamEvent creates a stream event carrying a STIX object.
func NewStixStreamEvent(id string, eventType StreamEventType, stix *StixObject) (*StreamEvent, error) {
	e := &StreamEvent{
		id:        id,
		eventType: eventType,
		stix:      stix,
		timestamp: time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewActivityStreamEvent creates a stream event carrying an activity event.
func NewActivityStreamEvent(id string, activity *ActivityEvent) (*StreamEvent, error) {
	e := &StreamEvent{
		id:        id,
		eventType: StreamEventActivity,
		activity:  activity,
		timestamp: time.Now().UTC(),
	}
	if activity != nil {
		e.origin = activity.Origin
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks if the stream event is valid according to business rules.
func (e *StreamEvent) Validate() error {
	if e.id == "" {
		return fmt.Errorf("stream event ID cannot be empty")
	}
	if !e.eventType.IsValid() {
		return fmt.Errorf("unknown stream event type %q", e.eventType)
	}
	if e.eventType == StreamEventActivity {
		if e.activity == nil {
			return fmt.Errorf("activity stream event requires an activity payload")
		}
		return e.activity.Validate()
	}
	if e.stix == nil {
		return fmt.Errorf("stream event %s requires a stix payload", e.eventType)
	}
	return e.stix.Validate()
}

// ID returns the stream event ID.
func (e *StreamEvent) ID() string { return e.id }

// Type returns the change kind.
func (e *StreamEvent) Type() StreamEventType { return e.eventType }

// Kind returns which subject shape the event carries.
func (e *StreamEvent) Kind() valueobject.SubjectKind {
	if e.eventType == StreamEventActivity {
		return valueobject.SubjectEvent
	}
	return valueobject.SubjectStix
}

// Stix returns the STIX payload, nil for activity events.
func (e *StreamEvent) Stix() *StixObject { return e.stix }

// Activity returns the activity payload, nil for STIX events.
func (e *StreamEvent) Activity() *ActivityEvent { return e.activity }

// Origin returns who caused the event.
func (e *StreamEvent) Origin() ActivityOrigin { return e.origin }

// Message returns the human readable change description.
func (e *StreamEvent) Message() string { return e.message }

// CorrelationID returns the correlation ID.
func (e *StreamEvent) CorrelationID() string { return e.correlationID }

// Timestamp returns the event timestamp.
func (e *StreamEvent) Timestamp() time.Time { return e.timestamp }

// WithOrigin returns a new StreamEvent with the origin set.
func (e *StreamEvent) WithOrigin(origin ActivityOrigin) *StreamEvent {
	newEvent := e.copy()
	newEvent.origin = origin
	return newEvent
}

// WithMessage returns a new StreamEvent with the message set.
func (e *StreamEvent) WithMessage(message string) *StreamEvent {
	newEvent := e.copy()
	newEvent.message = message
	return newEvent
}

// WithCorrelationID returns a new StreamEvent with the correlation ID set.
func (e *StreamEvent) WithCorrelationID(correlationID string) *StreamEvent {
	newEvent := e.copy()
	newEvent.correlationID = correlationID
	return newEvent
}

// WithTimestamp returns a new StreamEvent with the timestamp set.
func (e *StreamEvent) WithTimestamp(ts time.Time) *StreamEvent {
	newEvent := e.copy()
	newEvent.timestamp = ts.UTC()
	return newEvent
}

// MarshalJSON implements the json.Marshaler interface for StreamEvent.
func (e *StreamEvent) MarshalJSON() ([]byte, error) {
	type streamEventJSON struct {
		ID            string          `json:"id"`
		Type          StreamEventType `json:"type"`
		Data          any             `json:"data"`
		Origin        ActivityOrigin  `json:"origin"`
		Message       string          `json:"message,omitempty"`
		CorrelationID string          `json:"correlationId,omitempty"`
		Timestamp     time.Time       `json:"timestamp"`
	}
	var data any = e.stix
	if e.eventType == StreamEventActivity {
		data = e.activity
	}
	return json.Marshal(streamEventJSON{
		ID:            e.id,
		Type:          e.eventType,
		Data:          data,
		Origin:        e.origin,
		Message:       e.message,
		CorrelationID: e.correlationID,
		Timestamp:     e.timestamp,
	})
}

// copy creates a shallow copy of the event. Payloads are never modified after
// creation, so the references are shared.
func (e *StreamEvent) copy() *StreamEvent {
	return &StreamEvent{
		id:            e.id,
		eventType:     e.eventType,
		stix:          e.stix,
		activity:      e.activity,
		origin:        e.origin,
		message:       e.message,
		correlationID: e.correlationID,
		timestamp:     e.timestamp,
	}
}

// MatchedEvent records that a stream event satisfied a stream definition.
type MatchedEvent struct {
	StreamID  string       `json:"stream_id"`
	Event     *StreamEvent `json:"event"`
	MatchedAt time.Time    `json:"matched_at"`
}

// NewMatchedEvent creates a MatchedEvent stamped with the current time.
func NewMatchedEvent(streamID string, event *StreamEvent) *MatchedEvent {
	return &MatchedEvent{
		StreamID:  streamID,
		Event:     event,
		MatchedAt: time.Now().UTC(),
	}
}
