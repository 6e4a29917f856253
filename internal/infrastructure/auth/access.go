package auth

import (
	"context"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
)

// MarkingAccessChecker grants access from data markings and organization
// sharing. It is the gate applied before any STIX filter evaluation.
type MarkingAccessChecker struct{}

// NewMarkingAccessChecker creates a new MarkingAccessChecker.
func NewMarkingAccessChecker() *MarkingAccessChecker {
	return &MarkingAccessChecker{}
}

// IsUserCanAccessStixElement returns true when the user may see the object.
func (MarkingAccessChecker) IsUserCanAccessStixElement(_ context.Context, user *entity.User, stix *entity.StixObject) (bool, error) {
	if user == nil || stix == nil {
		return false, nil
	}
	if user.IsBypass() {
		return true, nil
	}
	for _, marking := range stix.ObjectMarkingRefs {
		if !user.CanSeeMarking(marking) {
			return false, nil
		}
	}
	if granted := stix.Extension.GrantedRefs; len(granted) > 0 && !user.BelongsToAny(granted) {
		return false, nil
	}
	return true, nil
}
