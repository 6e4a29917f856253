package stixfilter

import (
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// STIX filter keys not requiring resolution.
const (
	KeyEntityType         = "entity_type"
	KeyCreatorID          = "creator_id"
	KeyWorkflowID         = "workflow_id"
	KeyConfidence         = "confidence"
	KeyScore              = "x_opencti_score"
	KeyRevoked            = "revoked"
	KeyDetection          = "x_opencti_detection"
	KeyPatternType        = "pattern_type"
	KeyMainObservableType = "x_opencti_main_observable_type"
	KeyFromTypes          = "fromTypes"
	KeyToTypes            = "toTypes"
	KeyRelationshipType   = "relationship_type"
	KeyPriority           = "priority"
	KeySeverity           = "severity"
	KeyIDs                = "ids"
)

// StixTesters is the registry used to match STIX objects.
var StixTesters = TesterRegistry[*entity.StixObject]{
	KeyEntityType: stixStrings(true, func(s *entity.StixObject) []string {
		return append([]string{s.EntityType(), s.Type}, s.Extension.ParentTypes...)
	}),
	KeyObjectLabel:        stixStrings(true, func(s *entity.StixObject) []string { return s.Labels }),
	KeyLabelledBy:         stixStrings(true, func(s *entity.StixObject) []string { return s.Labels }),
	KeyObjectMarking:      stixStrings(false, func(s *entity.StixObject) []string { return s.ObjectMarkingRefs }),
	KeyCreatedBy:          stixStrings(false, func(s *entity.StixObject) []string { return single(s.CreatedByRef) }),
	KeyCreatorID:          stixStrings(false, func(s *entity.StixObject) []string { return s.Extension.CreatorIDs }),
	KeyObjectAssignee:     stixStrings(false, func(s *entity.StixObject) []string { return s.Extension.AssigneeIDs }),
	KeyObjectParticipant:  stixStrings(false, func(s *entity.StixObject) []string { return s.Extension.ParticipantIDs }),
	KeyWorkflowID:         stixStrings(false, func(s *entity.StixObject) []string { return single(s.Extension.WorkflowID) }),
	KeyConfidence:         stixNumber(func(s *entity.StixObject) *float64 { return s.Confidence }),
	KeyScore:              stixNumber(func(s *entity.StixObject) *float64 { return s.XOpenCTIScore }),
	KeyRevoked:            stixBool(func(s *entity.StixObject) *bool { return s.Revoked }),
	KeyDetection:          stixBool(func(s *entity.StixObject) *bool { return s.XOpenCTIDetection }),
	KeyPatternType:        stixStrings(true, func(s *entity.StixObject) []string { return single(s.PatternType) }),
	KeyIndicatorTypes:     stixStrings(true, func(s *entity.StixObject) []string { return s.IndicatorTypes }),
	KeyMainObservableType: stixStrings(true, func(s *entity.StixObject) []string { return single(s.XOpenCTIMainObservableType) }),
	KeyObjects:            stixStrings(false, func(s *entity.StixObject) []string { return s.ObjectRefs }),
	KeyFromID:             stixStrings(false, func(s *entity.StixObject) []string { return single(s.FromRef()) }),
	KeyToID:               stixStrings(false, func(s *entity.StixObject) []string { return s.ToRefs() }),
	KeyFromTypes: stixStrings(true, func(s *entity.StixObject) []string {
		return append(single(s.Extension.SourceType), s.Extension.SourceParents...)
	}),
	KeyToTypes: stixStrings(true, func(s *entity.StixObject) []string {
		return append(single(s.Extension.TargetType), s.Extension.TargetParents...)
	}),
	KeyRelationshipType: stixStrings(true, func(s *entity.StixObject) []string { return single(s.RelationshipType) }),
	KeyPriority:         stixStrings(false, func(s *entity.StixObject) []string { return single(s.Priority) }),
	KeySeverity:         stixStrings(false, func(s *entity.StixObject) []string { return single(s.Severity) }),
	KeyIDs:              stixStrings(false, func(s *entity.StixObject) []string { return s.Identifiers() }),
}

func stixStrings(fold bool, read func(*entity.StixObject) []string) Tester[*entity.StixObject] {
	return func(s *entity.StixObject, filter valueobject.Filter) bool {
		var candidates []string
		if s != nil {
			candidates = read(s)
		}
		if fold {
			return testStringFilterFold(filter, candidates)
		}
		return testStringFilter(filter, candidates)
	}
}

func stixNumber(read func(*entity.StixObject) *float64) Tester[*entity.StixObject] {
	return func(s *entity.StixObject, filter valueobject.Filter) bool {
		if s == nil {
			return testNumericFilter(filter, nil)
		}
		return testNumericFilter(filter, read(s))
	}
}

// stixBool treats a missing attribute as false for eq/not_eq.
func stixBool(read func(*entity.StixObject) *bool) Tester[*entity.StixObject] {
	return func(s *entity.StixObject, filter valueobject.Filter) bool {
		if s == nil {
			return testBooleanFilter(filter, nil)
		}
		return testBooleanFilter(filter, read(s))
	}
}
