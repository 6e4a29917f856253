package stixfilter

import (
	"errors"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

var errStopWalk = errors.New("stop walk")

// ResolveFilter returns a copy of the filter whose values are replaced by
// their resolution, unmapped values passing through unchanged.
func ResolveFilter(filter valueobject.Filter, resolution valueobject.FilterResolutionMap) valueobject.Filter {
	out := filter.Clone()
	for i, v := range out.Values {
		out.Values[i] = resolution.Resolve(v)
	}
	return out
}

// ResolveFilterGroup applies ResolveFilter to the whole tree. The mode and
// the shape of the group are preserved and the input is never mutated.
func ResolveFilterGroup(group valueobject.FilterGroup, resolution valueobject.FilterResolutionMap) valueobject.FilterGroup {
	out := valueobject.FilterGroup{Mode: group.Mode}
	if group.Filters != nil {
		out.Filters = make([]valueobject.Filter, len(group.Filters))
		for i, f := range group.Filters {
			out.Filters[i] = ResolveFilter(f, resolution)
		}
	}
	if group.FilterGroups != nil {
		out.FilterGroups = make([]valueobject.FilterGroup, len(group.FilterGroups))
		for i, sub := range group.FilterGroups {
			out.FilterGroups[i] = ResolveFilterGroup(sub, resolution)
		}
	}
	return out
}
