package stixfilter

import (
	"strconv"
	"strings"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// stringMatcher compares one filter value with one candidate attribute.
type stringMatcher func(candidate, value string) bool

var positiveStringMatchers = map[valueobject.FilterOperator]stringMatcher{
	valueobject.OperatorEq:         func(c, v string) bool { return c == v },
	valueobject.OperatorContains:   strings.Contains,
	valueobject.OperatorStartsWith: strings.HasPrefix,
	valueobject.OperatorEndsWith:   strings.HasSuffix,
}

// negatedOperators maps every negative operator to its positive counterpart.
var negatedOperators = map[valueobject.FilterOperator]valueobject.FilterOperator{
	valueobject.OperatorNotEq:         valueobject.OperatorEq,
	valueobject.OperatorNotContains:   valueobject.OperatorContains,
	valueobject.OperatorNotStartsWith: valueobject.OperatorStartsWith,
	valueobject.OperatorNotEndsWith:   valueobject.OperatorEndsWith,
}

// testStringFilter matches the filter values against the candidates read off
// the subject. With mode "or" one satisfied value is enough, with mode "and"
// every value must be satisfied. A value is satisfied by a positive operator
// when some candidate matches it, and by its negation when none does.
func testStringFilter(filter valueobject.Filter, candidates []string) bool {
	return testStringFilterWith(filter, candidates, false)
}

// testStringFilterFold is testStringFilter with case-insensitive comparison.
func testStringFilterFold(filter valueobject.Filter, candidates []string) bool {
	return testStringFilterWith(filter, candidates, true)
}

func testStringFilterWith(filter valueobject.Filter, candidates []string, fold bool) bool {
	present := nonEmpty(candidates)

	operator := filter.EffectiveOperator()
	switch operator {
	case valueobject.OperatorNil:
		return len(present) == 0
	case valueobject.OperatorNotNil:
		return len(present) > 0
	}

	negate := false
	if positive, ok := negatedOperators[operator]; ok {
		negate = true
		operator = positive
	}
	matcher, ok := positiveStringMatchers[operator]
	if !ok {
		return false
	}
	if fold {
		present = lowerAll(present)
	}

	satisfied := func(value string) bool {
		if fold {
			value = strings.ToLower(value)
		}
		for _, c := range present {
			if matcher(c, value) {
				return !negate
			}
		}
		return negate
	}

	return combineValues(filter, satisfied)
}

// combineValues folds the per-value outcome with the filter mode. A filter
// without values never matches.
func combineValues(filter valueobject.Filter, satisfied func(string) bool) bool {
	if len(filter.Values) == 0 {
		return false
	}
	if filter.EffectiveMode() == valueobject.FilterModeAnd {
		for _, v := range filter.Values {
			if !satisfied(v) {
				return false
			}
		}
		return true
	}
	for _, v := range filter.Values {
		if satisfied(v) {
			return true
		}
	}
	return false
}

// testNumericFilter compares a numeric attribute. Filter values that do not
// parse as numbers never match and a missing attribute only matches nil.
func testNumericFilter(filter valueobject.Filter, candidate *float64) bool {
	operator := filter.EffectiveOperator()
	switch operator {
	case valueobject.OperatorNil:
		return candidate == nil
	case valueobject.OperatorNotNil:
		return candidate != nil
	}
	if candidate == nil {
		return false
	}

	compare, ok := numericComparators[operator]
	if !ok {
		return false
	}
	return combineValues(filter, func(value string) bool {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		return compare(*candidate, parsed)
	})
}

var numericComparators = map[valueobject.FilterOperator]func(candidate, value float64) bool{
	valueobject.OperatorEq:    func(c, v float64) bool { return c == v },
	valueobject.OperatorNotEq: func(c, v float64) bool { return c != v },
	valueobject.OperatorGt:    func(c, v float64) bool { return c > v },
	valueobject.OperatorGte:   func(c, v float64) bool { return c >= v },
	valueobject.OperatorLt:    func(c, v float64) bool { return c < v },
	valueobject.OperatorLte:   func(c, v float64) bool { return c <= v },
}

// testBooleanFilter compares a boolean attribute with "true"/"false" values.
func testBooleanFilter(filter valueobject.Filter, candidate *bool) bool {
	operator := filter.EffectiveOperator()
	switch operator {
	case valueobject.OperatorNil:
		return candidate == nil
	case valueobject.OperatorNotNil:
		return candidate != nil
	case valueobject.OperatorEq, valueobject.OperatorNotEq:
	default:
		return false
	}

	var actual bool
	if candidate != nil {
		actual = *candidate
	}
	return combineValues(filter, func(value string) bool {
		expected, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		if operator == valueobject.OperatorNotEq {
			return actual != expected
		}
		return actual == expected
	})
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func single(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
