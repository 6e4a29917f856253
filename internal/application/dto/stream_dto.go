package dto

import (
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// RegisterStreamRequest is a DTO for registering a stream definition.
type RegisterStreamRequest struct {
	ID      string                  `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string                  `json:"name" yaml:"name"`
	Kind    string                  `json:"kind" yaml:"kind"`
	Subject string                  `json:"subject" yaml:"subject"`
	OwnerID string                  `json:"owner_id" yaml:"owner_id"`
	Filters valueobject.FilterGroup `json:"filters" yaml:"-"`
}

// StreamResponse is a DTO for stream details in responses.
type StreamResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Kind      string                  `json:"kind"`
	Subject   string                  `json:"subject"`
	OwnerID   string                  `json:"owner_id"`
	Status    string                  `json:"status"`
	Filters   valueobject.FilterGroup `json:"filters"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// FromEntityStream creates a StreamResponse from a domain Stream entity.
func FromEntityStream(stream *entity.Stream) *StreamResponse {
	return &StreamResponse{
		ID:        stream.ID(),
		Name:      stream.Name(),
		Kind:      string(stream.Kind()),
		Subject:   string(stream.Subject()),
		OwnerID:   stream.OwnerID(),
		Status:    stream.Status().String(),
		Filters:   stream.Filters(),
		CreatedAt: stream.CreatedAt(),
		UpdatedAt: stream.UpdatedAt(),
	}
}

// FromEntityStreams creates multiple StreamResponse DTOs from domain Stream entities.
func FromEntityStreams(streams []*entity.Stream) []*StreamResponse {
	responses := make([]*StreamResponse, len(streams))
	for i, stream := range streams {
		responses[i] = FromEntityStream(stream)
	}
	return responses
}
