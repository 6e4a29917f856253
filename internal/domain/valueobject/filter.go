package valueobject

import (
	"encoding/json"
	"fmt"
)

// FilterMode tells how the members of a filter group, or the values of a
// single filter, combine with each other.
type FilterMode string

// FilterMode constants define the supported logical modes.
const (
	FilterModeAnd FilterMode = "and"
	FilterModeOr  FilterMode = "or"
)

// IsValid returns true for the empty mode and the two supported modes.
func (m FilterMode) IsValid() bool {
	return m == "" || m == FilterModeAnd || m == FilterModeOr
}

// FilterOperator is the comparison a tester applies between the filter
// values and the attribute observed on the subject.
type FilterOperator string

// FilterOperator constants define the operators understood by the built-in testers.
const (
	OperatorEq            FilterOperator = "eq"
	OperatorNotEq         FilterOperator = "not_eq"
	OperatorGt            FilterOperator = "gt"
	OperatorGte           FilterOperator = "gte"
	OperatorLt            FilterOperator = "lt"
	OperatorLte           FilterOperator = "lte"
	OperatorNil           FilterOperator = "nil"
	OperatorNotNil        FilterOperator = "not_nil"
	OperatorContains      FilterOperator = "contains"
	OperatorNotContains   FilterOperator = "not_contains"
	OperatorStartsWith    FilterOperator = "starts_with"
	OperatorNotStartsWith FilterOperator = "not_starts_with"
	OperatorEndsWith      FilterOperator = "ends_with"
	OperatorNotEndsWith   FilterOperator = "not_ends_with"
)

// Filter is a single typed predicate over one semantic key.
type Filter struct {
	Key      []string       `json:"key"`
	Values   []string       `json:"values"`
	Operator FilterOperator `json:"operator,omitempty"`
	Mode     FilterMode     `json:"mode,omitempty"`
}

// NewFilter builds a single-key filter.
func NewFilter(key string, values []string, operator FilterOperator, mode FilterMode) Filter {
	return Filter{
		Key:      []string{key},
		Values:   append([]string(nil), values...),
		Operator: operator,
		Mode:     mode,
	}
}

// UnmarshalJSON accepts both `"key": ["k"]` and the shorthand `"key": "k"`.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key      json.RawMessage `json:"key"`
		Values   []string        `json:"values"`
		Operator FilterOperator  `json:"operator"`
		Mode     FilterMode      `json:"mode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var keys []string
	if len(raw.Key) > 0 && string(raw.Key) != "null" {
		if raw.Key[0] == '"' {
			var single string
			if err := json.Unmarshal(raw.Key, &single); err != nil {
				return fmt.Errorf("invalid filter key: %w", err)
			}
			keys = []string{single}
		} else if err := json.Unmarshal(raw.Key, &keys); err != nil {
			return fmt.Errorf("invalid filter key: %w", err)
		}
	}

	f.Key = keys
	f.Values = raw.Values
	f.Operator = raw.Operator
	f.Mode = raw.Mode
	return nil
}

// SingleKey returns the only key of the filter, or false when the filter
// does not carry exactly one key.
func (f Filter) SingleKey() (string, bool) {
	if len(f.Key) != 1 {
		return "", false
	}
	return f.Key[0], true
}

// EffectiveOperator returns the operator, defaulting to eq.
func (f Filter) EffectiveOperator() FilterOperator {
	if f.Operator == "" {
		return OperatorEq
	}
	return f.Operator
}

// EffectiveMode returns the mode combining the filter values, defaulting to or.
func (f Filter) EffectiveMode() FilterMode {
	if f.Mode == "" {
		return FilterModeOr
	}
	return f.Mode
}

// Clone returns a deep copy of the filter.
func (f Filter) Clone() Filter {
	return Filter{
		Key:      append([]string(nil), f.Key...),
		Values:   append([]string(nil), f.Values...),
		Operator: f.Operator,
		Mode:     f.Mode,
	}
}

// FilterGroup is a boolean combination of filters and nested groups.
type FilterGroup struct {
	Mode         FilterMode    `json:"mode"`
	Filters      []Filter      `json:"filters"`
	FilterGroups []FilterGroup `json:"filterGroups"`
}

// NewFilterGroup builds a group from its members.
func NewFilterGroup(mode FilterMode, filters []Filter, groups []FilterGroup) FilterGroup {
	return FilterGroup{
		Mode:         mode,
		Filters:      filters,
		FilterGroups: groups,
	}
}

// EffectiveMode returns the group mode, defaulting to and.
func (g FilterGroup) EffectiveMode() FilterMode {
	if g.Mode == "" {
		return FilterModeAnd
	}
	return g.Mode
}

// IsEmpty returns true if the group has neither filters nor nested groups.
func (g FilterGroup) IsEmpty() bool {
	return len(g.Filters) == 0 && len(g.FilterGroups) == 0
}

// Walk visits every filter of the tree depth-first, own filters before nested
// groups, in declaration order. Walking stops at the first error returned by fn.
func (g FilterGroup) Walk(fn func(Filter) error) error {
	for _, f := range g.Filters {
		if err := fn(f); err != nil {
			return err
		}
	}
	for _, sub := range g.FilterGroups {
		if err := sub.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkGroups visits the group itself and every nested group depth-first.
func (g FilterGroup) WalkGroups(fn func(FilterGroup) error) error {
	if err := fn(g); err != nil {
		return err
	}
	for _, sub := range g.FilterGroups {
		if err := sub.WalkGroups(fn); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the distinct keys used in the tree, in first-seen order.
func (g FilterGroup) Keys() []string {
	seen := make(map[string]bool)
	keys := make([]string, 0)
	_ = g.Walk(func(f Filter) error {
		for _, k := range f.Key {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		return nil
	})
	return keys
}

// Clone returns a deep copy of the group.
func (g FilterGroup) Clone() FilterGroup {
	out := FilterGroup{Mode: g.Mode}
	if g.Filters != nil {
		out.Filters = make([]Filter, len(g.Filters))
		for i, f := range g.Filters {
			out.Filters[i] = f.Clone()
		}
	}
	if g.FilterGroups != nil {
		out.FilterGroups = make([]FilterGroup, len(g.FilterGroups))
		for i, sub := range g.FilterGroups {
			out.FilterGroups[i] = sub.Clone()
		}
	}
	return out
}

// FilterResolutionMap translates raw filter values (usually internal ids)
// into the literal observed on the subject representation.
type FilterResolutionMap map[string]string

// Resolve returns the mapped value, or v itself when no mapping exists.
func (m FilterResolutionMap) Resolve(v string) string {
	if resolved, ok := m[v]; ok && resolved != "" {
		return resolved
	}
	return v
}
