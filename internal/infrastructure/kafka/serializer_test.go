package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

const stixMessage = `{
	"id": "1700000000000-0",
	"type": "create",
	"message": "creates an indicator",
	"correlationId": "corr-1",
	"timestamp": "2024-01-02T03:04:05Z",
	"origin": {"user_id": "user-1"},
	"data": {
		"id": "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f",
		"type": "indicator",
		"spec_version": "2.1",
		"labels": ["malware"],
		"pattern_type": "stix",
		"extensions": {
			"extension-definition--ea279b3e-5c71-4632-ac08-831c66a786ba": {
				"id": "b1f4a8c4-1111-4000-8000-000000000000",
				"type": "Indicator",
				"creator_ids": ["user-1"]
			}
		}
	}
}`

const activityMessage = `{
	"id": "1700000000001-0",
	"type": "activity",
	"data": {
		"version": "1",
		"type": "mutation",
		"event_scope": "update",
		"timestamp": "2024-01-02T03:04:05Z",
		"origin": {"user_id": "user-2", "group_ids": ["group-1"]}
	}
}`

// TestJSONSerializer_Deserialize_Stix tests decoding of a STIX live stream message
func TestJSONSerializer_Deserialize_Stix(t *testing.T) {
	serializer := NewJSONSerializer()

	event, err := serializer.Deserialize([]byte(stixMessage))
	if err != nil {
		t.Fatalf("Deserialize() error = %v, want nil", err)
	}

	if event.Kind() != valueobject.SubjectStix {
		t.Errorf("Kind() = %q, want stix", event.Kind())
	}
	if event.Type() != entity.StreamEventCreate {
		t.Errorf("Type() = %q, want create", event.Type())
	}
	if event.CorrelationID() != "corr-1" {
		t.Errorf("CorrelationID() = %q, want corr-1", event.CorrelationID())
	}
	if event.Origin().UserID != "user-1" {
		t.Errorf("Origin().UserID = %q, want user-1", event.Origin().UserID)
	}
	if !event.Timestamp().Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("Timestamp() = %v", event.Timestamp())
	}

	stix := event.Stix()
	if stix == nil {
		t.Fatal("Stix() = nil, want payload")
	}
	if stix.EntityType() != "Indicator" {
		t.Errorf("EntityType() = %q, want Indicator", stix.EntityType())
	}
	if len(stix.Extension.CreatorIDs) != 1 || stix.Extension.CreatorIDs[0] != "user-1" {
		t.Errorf("Extension.CreatorIDs = %v, want [user-1]", stix.Extension.CreatorIDs)
	}
}

// TestJSONSerializer_Deserialize_Activity tests decoding of an activity message
func TestJSONSerializer_Deserialize_Activity(t *testing.T) {
	serializer := NewJSONSerializer()

	event, err := serializer.Deserialize([]byte(activityMessage))
	if err != nil {
		t.Fatalf("Deserialize() error = %v, want nil", err)
	}

	if event.Kind() != valueobject.SubjectEvent {
		t.Errorf("Kind() = %q, want event", event.Kind())
	}
	activity := event.Activity()
	if activity == nil {
		t.Fatal("Activity() = nil, want payload")
	}
	if activity.EventScope != "update" {
		t.Errorf("EventScope = %q, want update", activity.EventScope)
	}
	if event.Origin().UserID != "user-2" {
		t.Errorf("Origin().UserID = %q, want the activity origin", event.Origin().UserID)
	}
}

// TestJSONSerializer_Deserialize_Invalid tests rejection of malformed messages
func TestJSONSerializer_Deserialize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Empty", ""},
		{"Not JSON", "{"},
		{"No data", `{"id":"1","type":"create"}`},
		{"Unknown type", `{"id":"1","type":"restore","data":{"id":"indicator--1","type":"indicator"}}`},
		{"Bad stix id", `{"id":"1","type":"create","data":{"id":"malware--1","type":"indicator"}}`},
		{"Activity without scope", `{"id":"1","type":"activity","data":{"type":"read"}}`},
	}

	serializer := NewJSONSerializer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := serializer.Deserialize([]byte(tt.data)); err == nil {
				t.Errorf("Deserialize(%s) expected error, got nil", tt.data)
			}
		})
	}
}

// TestJSONSerializer_SerializeMatch tests the matched event envelope
func TestJSONSerializer_SerializeMatch(t *testing.T) {
	serializer := NewJSONSerializer()
	event, err := serializer.Deserialize([]byte(stixMessage))
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	data, err := serializer.SerializeMatch(entity.NewMatchedEvent("stream-1", event))
	if err != nil {
		t.Fatalf("SerializeMatch() error = %v, want nil", err)
	}

	var decoded struct {
		StreamID string          `json:"stream_id"`
		Event    json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.StreamID != "stream-1" {
		t.Errorf("stream_id = %q, want stream-1", decoded.StreamID)
	}

	// The embedded event must be readable by the consumer side again.
	again, err := serializer.Deserialize(decoded.Event)
	if err != nil {
		t.Fatalf("Deserialize(embedded event) error = %v", err)
	}
	if again.Stix().ID != event.Stix().ID {
		t.Errorf("embedded stix id = %q, want %q", again.Stix().ID, event.Stix().ID)
	}
}

// TestJSONSerializer_Serialize_Nil tests serialization of nil values
func TestJSONSerializer_Serialize_Nil(t *testing.T) {
	serializer := NewJSONSerializer()

	if _, err := serializer.Serialize(nil); err == nil {
		t.Error("Serialize(nil) expected error, got nil")
	}
	if _, err := serializer.SerializeMatch(nil); err == nil {
		t.Error("SerializeMatch(nil) expected error, got nil")
	}
}

// TestSerializerFactory tests serializer selection
func TestSerializerFactory(t *testing.T) {
	if _, err := SerializerFactory(ContentTypeJSON); err != nil {
		t.Errorf("SerializerFactory(json) error = %v", err)
	}
	if _, err := SerializerFactory("application/protobuf"); err == nil {
		t.Error("SerializerFactory(protobuf) expected error, got nil")
	}
}
