package entity

import (
	"fmt"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// StreamKind identifies which feature owns a stored filter.
type StreamKind string

// StreamKind constants define the features gated by stored filters.
const (
	StreamKindLive     StreamKind = "live"
	StreamKindTrigger  StreamKind = "trigger"
	StreamKindTaxii    StreamKind = "taxii"
	StreamKindFeed     StreamKind = "feed"
	StreamKindPlaybook StreamKind = "playbook"
)

// IsValid returns true for a known stream kind.
func (k StreamKind) IsValid() bool {
	switch k {
	case StreamKindLive, StreamKindTrigger, StreamKindTaxii, StreamKindFeed, StreamKindPlaybook:
		return true
	default:
		return false
	}
}

// StreamStatus represents the status of a stream definition.
type StreamStatus int

// StreamStatus constants define the supported stream statuses.
const (
	StreamStatusActive StreamStatus = iota
	StreamStatusInactive
)

// String returns the string representation of StreamStatus.
func (s StreamStatus) String() string {
	switch s {
	case StreamStatusActive:
		return "Active"
	case StreamStatusInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// Stream is a domain entity that represents a stored filter owned by a live
// stream, a trigger, a taxii collection, a feed or a playbook node.
type Stream struct {
	id        string
	name      string
	kind      StreamKind
	subject   valueobject.SubjectKind
	ownerID   string
	filters   valueobject.FilterGroup
	status    StreamStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewStream creates a new active Stream. The filter group is not validated
// against a tester registry here; that is the stream service's job.
func NewStream(
	id string,
	name string,
	kind StreamKind,
	subject valueobject.SubjectKind,
	ownerID string,
	filters valueobject.FilterGroup,
) (*Stream, error) {
	if id == "" {
		return nil, fmt.Errorf("stream ID cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("stream name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown stream kind %q", kind)
	}
	if !subject.IsValid() {
		return nil, fmt.Errorf("unknown stream subject %q", subject)
	}

	now := time.Now().UTC()
	return &Stream{
		id:        id,
		name:      name,
		kind:      kind,
		subject:   subject,
		ownerID:   ownerID,
		filters:   filters.Clone(),
		status:    StreamStatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ID returns the stream ID.
func (s *Stream) ID() string { return s.id }

// Name returns the stream name.
func (s *Stream) Name() string { return s.name }

// Kind returns the feature owning the stream.
func (s *Stream) Kind() StreamKind { return s.kind }

// Subject returns the subject shape the filters apply to.
func (s *Stream) Subject() valueobject.SubjectKind { return s.subject }

// OwnerID returns the id of the user the stream evaluates as.
func (s *Stream) OwnerID() string { return s.ownerID }

// Filters returns a copy of the stored filter group.
func (s *Stream) Filters() valueobject.FilterGroup { return s.filters.Clone() }

// Status returns the current stream status.
func (s *Stream) Status() StreamStatus { return s.status }

// CreatedAt returns the creation timestamp.
func (s *Stream) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last update timestamp.
func (s *Stream) UpdatedAt() time.Time { return s.updatedAt }

// Activate makes the stream receive events.
func (s *Stream) Activate() {
	s.status = StreamStatusActive
	s.updatedAt = time.Now().UTC()
}

// Deactivate stops the stream from receiving events.
func (s *Stream) Deactivate() {
	s.status = StreamStatusInactive
	s.updatedAt = time.Now().UTC()
}

// UpdateFilters replaces the stored filter group.
func (s *Stream) UpdateFilters(filters valueobject.FilterGroup) {
	s.filters = filters.Clone()
	s.updatedAt = time.Now().UTC()
}

// IsActive returns true if the stream is in Active status.
func (s *Stream) IsActive() bool {
	return s.status == StreamStatusActive
}
