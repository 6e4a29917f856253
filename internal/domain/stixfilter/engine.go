package stixfilter

import (
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// TestFilter evaluates a single filter with the tester registered for its
// key. A filter without a tester evaluates to false.
func TestFilter[S any](subject S, filter valueobject.Filter, registry TesterRegistry[S]) bool {
	key, ok := filter.SingleKey()
	if !ok {
		return false
	}
	tester, ok := registry.Lookup(key)
	if !ok {
		return false
	}
	return tester(subject, filter)
}

// TestFilterGroup evaluates the group against the subject. Own filters are
// evaluated before nested groups. An "and" group stops at the first false
// member and is true when empty; an "or" group stops at the first true
// member and is false when empty.
func TestFilterGroup[S any](subject S, group valueobject.FilterGroup, registry TesterRegistry[S]) bool {
	if group.EffectiveMode() == valueobject.FilterModeOr {
		for _, f := range group.Filters {
			if TestFilter(subject, f, registry) {
				return true
			}
		}
		for _, sub := range group.FilterGroups {
			if TestFilterGroup(subject, sub, registry) {
				return true
			}
		}
		return false
	}

	for _, f := range group.Filters {
		if !TestFilter(subject, f, registry) {
			return false
		}
	}
	for _, sub := range group.FilterGroups {
		if !TestFilterGroup(subject, sub, registry) {
			return false
		}
	}
	return true
}
