package stixfilter

import (
	"fmt"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// ValidateFilter fails if the filter does not carry exactly one key or if
// that key has no tester in the registry.
func ValidateFilter[S any](filter valueobject.Filter, registry TesterRegistry[S]) error {
	key, ok := filter.SingleKey()
	if !ok {
		return &UnsupportedFilterShapeError{Key: append([]string(nil), filter.Key...)}
	}
	if _, ok := registry.Lookup(key); !ok {
		return &UnknownFilterKeyError{Key: key, Available: registry.Keys()}
	}
	if !filter.Mode.IsValid() {
		return fmt.Errorf("%w %q on filter %s", ErrUnsupportedFilterMode, filter.Mode, key)
	}
	return nil
}

// ValidateFilterGroup checks every filter of the tree, own filters first then
// nested groups, and returns the first failure. Unrecognized filters are
// never skipped.
func ValidateFilterGroup[S any](group valueobject.FilterGroup, registry TesterRegistry[S]) error {
	return group.WalkGroups(func(g valueobject.FilterGroup) error {
		if !g.Mode.IsValid() {
			return fmt.Errorf("%w %q on filter group", ErrUnsupportedFilterMode, g.Mode)
		}
		for _, f := range g.Filters {
			if err := ValidateFilter(f, registry); err != nil {
				return err
			}
		}
		return nil
	})
}

// ValidateFilterGroupForStixMatch validates a group against the STIX testers.
func ValidateFilterGroupForStixMatch(group valueobject.FilterGroup) error {
	return ValidateFilterGroup(group, StixTesters)
}

// ValidateFilterGroupForEventMatch validates a group against the activity event testers.
func ValidateFilterGroupForEventMatch(group valueobject.FilterGroup) error {
	return ValidateFilterGroup(group, EventTesters)
}
