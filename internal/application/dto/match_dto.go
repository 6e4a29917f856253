package dto

import (
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// ValidateRequest is a DTO for checking a filter group at authoring time.
type ValidateRequest struct {
	Subject valueobject.SubjectKind `json:"subject"`
	Filters valueobject.FilterGroup `json:"filters"`
}

// ValidateResponse is a DTO for validation results.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// DispatchResult summarises the processing of one stream event.
type DispatchResult struct {
	EventID   string   `json:"event_id"`
	Evaluated int      `json:"evaluated"`
	Matched   []string `json:"matched"`
	Failed    int      `json:"failed"`
}
