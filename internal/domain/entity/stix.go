package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OpenCTIExtensionID is the extension definition under which the platform
// stores its own attributes on every STIX object.
const OpenCTIExtensionID = "extension-definition--ea279b3e-5c71-4632-ac08-831c66a786ba"

// OpenCTIExtension holds the platform attributes carried in the STIX extension.
type OpenCTIExtension struct {
	ID             string   `json:"id,omitempty"`
	Type           string   `json:"type,omitempty"`
	CreatorIDs     []string `json:"creator_ids,omitempty"`
	AssigneeIDs    []string `json:"assignee_ids,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	WorkflowID     string   `json:"workflow_id,omitempty"`
	GrantedRefs    []string `json:"granted_refs,omitempty"`
	StixIDs        []string `json:"stix_ids,omitempty"`
	ParentTypes    []string `json:"parent_types,omitempty"`
	SourceRef      string   `json:"source_ref,omitempty"`
	SourceType     string   `json:"source_type,omitempty"`
	SourceParents  []string `json:"source_ref_object_parent_types,omitempty"`
	TargetRef      string   `json:"target_ref,omitempty"`
	TargetType     string   `json:"target_type,omitempty"`
	TargetParents  []string `json:"target_ref_object_parent_types,omitempty"`
}

// StixObject is a threat-intelligence object as received on the live stream.
// Only the attributes used for filtering are typed; the full document stays
// available through Raw.
type StixObject struct {
	ID                         string   `json:"id"`
	Type                       string   `json:"type"`
	SpecVersion                string   `json:"spec_version,omitempty"`
	Name                       string   `json:"name,omitempty"`
	CreatedByRef               string   `json:"created_by_ref,omitempty"`
	Labels                     []string `json:"labels,omitempty"`
	ObjectMarkingRefs          []string `json:"object_marking_refs,omitempty"`
	ObjectRefs                 []string `json:"object_refs,omitempty"`
	Revoked                    *bool    `json:"revoked,omitempty"`
	Confidence                 *float64 `json:"confidence,omitempty"`
	PatternType                string   `json:"pattern_type,omitempty"`
	IndicatorTypes             []string `json:"indicator_types,omitempty"`
	RelationshipType           string   `json:"relationship_type,omitempty"`
	SourceRef                  string   `json:"source_ref,omitempty"`
	TargetRef                  string   `json:"target_ref,omitempty"`
	SightingOfRef              string   `json:"sighting_of_ref,omitempty"`
	WhereSightedRefs           []string `json:"where_sighted_refs,omitempty"`
	Priority                   string   `json:"priority,omitempty"`
	Severity                   string   `json:"severity,omitempty"`
	XOpenCTIScore              *float64 `json:"x_opencti_score,omitempty"`
	XOpenCTIDetection          *bool    `json:"x_opencti_detection,omitempty"`
	XOpenCTIMainObservableType string   `json:"x_opencti_main_observable_type,omitempty"`

	Extension OpenCTIExtension `json:"-"`

	raw map[string]any
}

// UnmarshalJSON decodes the typed attributes, the platform extension and keeps the raw document.
func (s *StixObject) UnmarshalJSON(data []byte) error {
	type plain StixObject
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var envelope struct {
		Extensions map[string]json.RawMessage `json:"extensions"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if ext, ok := envelope.Extensions[OpenCTIExtensionID]; ok {
		if err := json.Unmarshal(ext, &decoded.Extension); err != nil {
			return fmt.Errorf("invalid platform extension: %w", err)
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = StixObject(decoded)
	s.raw = raw
	return nil
}

// MarshalJSON encodes the object with its platform extension.
func (s StixObject) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return json.Marshal(s.raw)
	}
	type plain StixObject
	body, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	doc["extensions"] = map[string]any{OpenCTIExtensionID: s.Extension}
	return json.Marshal(doc)
}

// ParseStixObject decodes and validates a STIX object.
func ParseStixObject(data []byte) (*StixObject, error) {
	var s StixObject
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode stix object: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the minimal STIX identity rules.
func (s *StixObject) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("stix object id cannot be empty")
	}
	if s.Type == "" {
		return fmt.Errorf("stix object type cannot be empty")
	}
	if !strings.HasPrefix(s.ID, s.Type+"--") {
		return fmt.Errorf("stix object id %q does not match type %q", s.ID, s.Type)
	}
	return nil
}

// Raw returns the decoded JSON document. Objects built in code get a
// document derived from their typed attributes.
func (s *StixObject) Raw() map[string]any {
	if s.raw != nil {
		return s.raw
	}
	body, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return map[string]any{}
	}
	return doc
}

// EntityType returns the platform entity type, falling back to the STIX type.
func (s *StixObject) EntityType() string {
	if s.Extension.Type != "" {
		return s.Extension.Type
	}
	return s.Type
}

// IsRelationship returns true for relationships and sightings.
func (s *StixObject) IsRelationship() bool {
	return s.Type == "relationship" || s.Type == "sighting"
}

// FromRef returns the source side of a relationship or sighting.
func (s *StixObject) FromRef() string {
	switch {
	case s.SourceRef != "":
		return s.SourceRef
	case s.SightingOfRef != "":
		return s.SightingOfRef
	default:
		return s.Extension.SourceRef
	}
}

// ToRefs returns the target side(s) of a relationship or sighting.
func (s *StixObject) ToRefs() []string {
	switch {
	case s.TargetRef != "":
		return []string{s.TargetRef}
	case len(s.WhereSightedRefs) > 0:
		return s.WhereSightedRefs
	case s.Extension.TargetRef != "":
		return []string{s.Extension.TargetRef}
	default:
		return nil
	}
}

// Identifiers returns every id the object is known under.
func (s *StixObject) Identifiers() []string {
	ids := make([]string, 0, 2+len(s.Extension.StixIDs))
	if s.ID != "" {
		ids = append(ids, s.ID)
	}
	if s.Extension.ID != "" {
		ids = append(ids, s.Extension.ID)
	}
	return append(ids, s.Extension.StixIDs...)
}
