package stixfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

func TestStixTesters_Indicator(t *testing.T) {
	stix := newIndicator()

	tests := []struct {
		name   string
		filter valueobject.Filter
		want   bool
	}{
		{"entity type", filter(KeyEntityType, "", "indicator"), true},
		{"entity parent type", filter(KeyEntityType, "", "Stix-Core-Object"), true},
		{"entity type mismatch", filter(KeyEntityType, "", "Malware"), false},
		{"label", filter(KeyObjectLabel, "", "tlp:red"), true},
		{"legacy label key", filter(KeyLabelledBy, "", "malware"), true},
		{"label not_eq", filter(KeyObjectLabel, valueobject.OperatorNotEq, "TLP:RED"), false},
		{"marking", filter(KeyObjectMarking, "", "marking-definition--5e57c739-391a-4eb3-b6be-7d15ca92d5ed"), true},
		{"created by", filter(KeyCreatedBy, "", "identity--c017f212-546b-4f21-999e-8ba8f6c6ea8e"), true},
		{"creator", filter(KeyCreatorID, "", "user-1"), true},
		{"assignee", filter(KeyObjectAssignee, "", "user-1"), false},
		{"participant nil", filter(KeyObjectParticipant, valueobject.OperatorNil), true},
		{"workflow", filter(KeyWorkflowID, "", "status-new"), true},
		{"confidence", filter(KeyConfidence, valueobject.OperatorGte, "80"), true},
		{"score", filter(KeyScore, valueobject.OperatorLt, "50"), false},
		{"revoked", filter(KeyRevoked, "", "false"), true},
		{"detection missing", filter(KeyDetection, valueobject.OperatorNil), true},
		{"pattern type", filter(KeyPatternType, "", "STIX"), true},
		{"indicator types", filter(KeyIndicatorTypes, "", "malicious-activity"), true},
		{"main observable type", filter(KeyMainObservableType, valueobject.OperatorNotNil), false},
		{"ids standard", filter(KeyIDs, "", "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001"), true},
		{"ids internal", filter(KeyIDs, "", "9c2c8ef0-3b3c-4c4b-9d2d-aaaaaaaaaaaa"), true},
		{"objects on non container", filter(KeyObjects, "", "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tester, ok := StixTesters.Lookup(tt.filter.Key[0])
			require.True(t, ok)
			assert.Equal(t, tt.want, tester(stix, tt.filter))
		})
	}
}

func TestStixTesters_Relationship(t *testing.T) {
	rel := newRelationship()

	tests := []struct {
		name   string
		filter valueobject.Filter
		want   bool
	}{
		{"from id", filter(KeyFromID, "", "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001"), true},
		{"to id", filter(KeyToID, "", "malware--31b940d4-6f7f-459a-80ea-9c1f17b5891b"), true},
		{"to id mismatch", filter(KeyToID, "", "malware--other"), false},
		{"from types", filter(KeyFromTypes, "", "indicator"), true},
		{"to types parent", filter(KeyToTypes, "", "Stix-Domain-Object"), true},
		{"relationship type", filter(KeyRelationshipType, "", "indicates"), true},
		{"relationship type mismatch", filter(KeyRelationshipType, "", "uses"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TestFilter(rel, tt.filter, StixTesters))
		})
	}
}

func TestStixTesters_Sighting(t *testing.T) {
	sighting := &entity.StixObject{
		ID:               "sighting--ee20065d-2555-424f-ad9e-0f8428623c75",
		Type:             "sighting",
		SightingOfRef:    "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001",
		WhereSightedRefs: []string{"identity--a", "identity--b"},
	}

	assert.True(t, TestFilter(sighting, filter(KeyFromID, "", "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001"), StixTesters))
	assert.True(t, TestFilter(sighting, filter(KeyToID, "", "identity--b"), StixTesters))
}

func TestStixTesters_NilSubject(t *testing.T) {
	for _, key := range StixTesters.Keys() {
		tester, _ := StixTesters.Lookup(key)
		assert.NotPanics(t, func() {
			tester(nil, filter(key, "", "x"))
		}, key)
	}
}

func TestStixTesters_DecodedObject(t *testing.T) {
	stix, err := entity.ParseStixObject([]byte(`{
		"id": "report--5e4e2e8f-1b5a-4c9a-9c1b-000000000001",
		"type": "report",
		"object_refs": ["malware--31b940d4-6f7f-459a-80ea-9c1f17b5891b"],
		"extensions": {
			"extension-definition--ea279b3e-5c71-4632-ac08-831c66a786ba": {
				"type": "Report",
				"participant_ids": ["user-9"]
			}
		}
	}`))
	require.NoError(t, err)

	group := and(
		filter(KeyObjects, "", "malware--31b940d4-6f7f-459a-80ea-9c1f17b5891b"),
		filter(KeyObjectParticipant, "", "user-9"),
		filter(KeyEntityType, "", "Report"),
	)
	assert.True(t, TestFilterGroup(stix, group, StixTesters))
}
