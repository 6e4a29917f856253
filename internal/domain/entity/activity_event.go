package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityEventType is the category of an activity-log event.
type ActivityEventType string

// ActivityEventType constants define the activity categories.
const (
	ActivityAuthentication ActivityEventType = "authentication"
	ActivityRead           ActivityEventType = "read"
	ActivityMutation       ActivityEventType = "mutation"
	ActivityFile           ActivityEventType = "file"
	ActivityCommand        ActivityEventType = "command"
)

// ActivityOrigin describes who triggered an activity event.
type ActivityOrigin struct {
	UserID          string   `json:"user_id,omitempty"`
	GroupIDs        []string `json:"group_ids,omitempty"`
	OrganizationIDs []string `json:"organization_ids,omitempty"`
	IP              string   `json:"ip,omitempty"`
	Socket          string   `json:"socket,omitempty"`
	Referer         string   `json:"referer,omitempty"`
}

// ActivityData is the payload of an activity event.
type ActivityData struct {
	ID         string         `json:"id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	Message    string         `json:"message,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
}

// ActivityEvent is an internal activity-log event matched by activity triggers.
type ActivityEvent struct {
	Version         string            `json:"version"`
	Type            ActivityEventType `json:"type"`
	EventScope      string            `json:"event_scope"`
	Status          string            `json:"status,omitempty"`
	PreventIndexing bool              `json:"prevent_indexing,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	Origin          ActivityOrigin    `json:"origin"`
	Data            ActivityData      `json:"data"`
}

// ParseActivityEvent decodes and validates an activity event.
func ParseActivityEvent(data []byte) (*ActivityEvent, error) {
	var e ActivityEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode activity event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Validate checks if the activity event is usable for matching.
func (e *ActivityEvent) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("activity event type cannot be empty")
	}
	if e.EventScope == "" {
		return fmt.Errorf("activity event scope cannot be empty")
	}
	return nil
}
