package stixfilter

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

type fakeAccess struct {
	allowed bool
	err     error
	calls   atomic.Int32
}

func (f *fakeAccess) IsUserCanAccessStixElement(_ context.Context, _ *entity.User, _ *entity.StixObject) (bool, error) {
	f.calls.Add(1)
	return f.allowed, f.err
}

var errAccessDown = errors.New("access service down")

func newIndicator() *entity.StixObject {
	confidence := 80.0
	score := 55.0
	revoked := false
	return &entity.StixObject{
		ID:                "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001",
		Type:              "indicator",
		Name:              "evil.example",
		CreatedByRef:      "identity--c017f212-546b-4f21-999e-8ba8f6c6ea8e",
		Labels:            []string{"TLP:RED", "malware"},
		ObjectMarkingRefs: []string{"marking-definition--5e57c739-391a-4eb3-b6be-7d15ca92d5ed"},
		Confidence:        &confidence,
		XOpenCTIScore:     &score,
		Revoked:           &revoked,
		PatternType:       "stix",
		IndicatorTypes:    []string{"malicious-activity"},
		Extension: entity.OpenCTIExtension{
			ID:          "9c2c8ef0-3b3c-4c4b-9d2d-aaaaaaaaaaaa",
			Type:        "Indicator",
			CreatorIDs:  []string{"user-1"},
			AssigneeIDs: []string{"user-2"},
			ParentTypes: []string{"Stix-Domain-Object", "Stix-Core-Object"},
			WorkflowID:  "status-new",
		},
	}
}

func newRelationship() *entity.StixObject {
	return &entity.StixObject{
		ID:               "relationship--44298a74-ba52-4f0c-87a3-1824e67d7fad",
		Type:             "relationship",
		RelationshipType: "indicates",
		SourceRef:        "indicator--0b6a5b2f-6e4d-4b4e-8f43-c6d8f0f1a001",
		TargetRef:        "malware--31b940d4-6f7f-459a-80ea-9c1f17b5891b",
		Extension: entity.OpenCTIExtension{
			SourceType:    "Indicator",
			SourceParents: []string{"Stix-Domain-Object"},
			TargetType:    "Malware",
			TargetParents: []string{"Stix-Domain-Object"},
		},
	}
}

func filter(key string, operator valueobject.FilterOperator, values ...string) valueobject.Filter {
	return valueobject.NewFilter(key, values, operator, "")
}

func and(filters ...valueobject.Filter) valueobject.FilterGroup {
	if filters == nil {
		filters = []valueobject.Filter{}
	}
	return valueobject.NewFilterGroup(valueobject.FilterModeAnd, filters, []valueobject.FilterGroup{})
}

func or(filters ...valueobject.Filter) valueobject.FilterGroup {
	if filters == nil {
		filters = []valueobject.Filter{}
	}
	return valueobject.NewFilterGroup(valueobject.FilterModeOr, filters, []valueobject.FilterGroup{})
}
