package stixfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

func TestTestStringFilter(t *testing.T) {
	candidates := []string{"alpha", "beta"}

	tests := []struct {
		name   string
		filter valueobject.Filter
		want   bool
	}{
		{"eq any value", valueobject.NewFilter("k", []string{"x", "beta"}, "", ""), true},
		{"eq no value", valueobject.NewFilter("k", []string{"x", "y"}, valueobject.OperatorEq, ""), false},
		{"eq and all present", valueobject.NewFilter("k", []string{"alpha", "beta"}, "", valueobject.FilterModeAnd), true},
		{"eq and one missing", valueobject.NewFilter("k", []string{"alpha", "x"}, "", valueobject.FilterModeAnd), false},
		{"not_eq or some absent", valueobject.NewFilter("k", []string{"alpha", "x"}, valueobject.OperatorNotEq, ""), true},
		{"not_eq or all present", valueobject.NewFilter("k", []string{"alpha", "beta"}, valueobject.OperatorNotEq, ""), false},
		{"not_eq and all absent", valueobject.NewFilter("k", []string{"x", "y"}, valueobject.OperatorNotEq, valueobject.FilterModeAnd), true},
		{"not_eq and one present", valueobject.NewFilter("k", []string{"x", "beta"}, valueobject.OperatorNotEq, valueobject.FilterModeAnd), false},
		{"contains", valueobject.NewFilter("k", []string{"ph"}, valueobject.OperatorContains, ""), true},
		{"not_contains", valueobject.NewFilter("k", []string{"zz"}, valueobject.OperatorNotContains, ""), true},
		{"starts_with", valueobject.NewFilter("k", []string{"be"}, valueobject.OperatorStartsWith, ""), true},
		{"not_starts_with", valueobject.NewFilter("k", []string{"al"}, valueobject.OperatorNotStartsWith, ""), false},
		{"ends_with", valueobject.NewFilter("k", []string{"ta"}, valueobject.OperatorEndsWith, ""), true},
		{"not_ends_with", valueobject.NewFilter("k", []string{"xx"}, valueobject.OperatorNotEndsWith, ""), true},
		{"nil", valueobject.NewFilter("k", nil, valueobject.OperatorNil, ""), false},
		{"not_nil", valueobject.NewFilter("k", nil, valueobject.OperatorNotNil, ""), true},
		{"no values", valueobject.NewFilter("k", nil, valueobject.OperatorEq, ""), false},
		{"numeric operator", valueobject.NewFilter("k", []string{"alpha"}, valueobject.OperatorGt, ""), false},
		{"case sensitive", valueobject.NewFilter("k", []string{"ALPHA"}, "", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testStringFilter(tt.filter, candidates))
		})
	}
}

func TestTestStringFilter_MissingAttribute(t *testing.T) {
	assert.True(t, testStringFilter(valueobject.NewFilter("k", nil, valueobject.OperatorNil, ""), nil))
	assert.True(t, testStringFilter(valueobject.NewFilter("k", nil, valueobject.OperatorNil, ""), []string{""}))
	assert.False(t, testStringFilter(valueobject.NewFilter("k", []string{"a"}, "", ""), nil))
	assert.True(t, testStringFilter(valueobject.NewFilter("k", []string{"a"}, valueobject.OperatorNotEq, ""), nil))
}

func TestTestStringFilterFold(t *testing.T) {
	assert.True(t, testStringFilterFold(valueobject.NewFilter("k", []string{"tlp:red"}, "", ""), []string{"TLP:RED"}))
	assert.True(t, testStringFilterFold(valueobject.NewFilter("k", []string{"TLP"}, valueobject.OperatorStartsWith, ""), []string{"tlp:clear"}))
}

func TestTestNumericFilter(t *testing.T) {
	score := 50.0

	tests := []struct {
		name      string
		filter    valueobject.Filter
		candidate *float64
		want      bool
	}{
		{"eq", valueobject.NewFilter("k", []string{"50"}, "", ""), &score, true},
		{"not_eq", valueobject.NewFilter("k", []string{"50"}, valueobject.OperatorNotEq, ""), &score, false},
		{"gt", valueobject.NewFilter("k", []string{"49.5"}, valueobject.OperatorGt, ""), &score, true},
		{"gte", valueobject.NewFilter("k", []string{"50"}, valueobject.OperatorGte, ""), &score, true},
		{"lt", valueobject.NewFilter("k", []string{"50"}, valueobject.OperatorLt, ""), &score, false},
		{"lte", valueobject.NewFilter("k", []string{" 50 "}, valueobject.OperatorLte, ""), &score, true},
		{"or over values", valueobject.NewFilter("k", []string{"10", "60"}, valueobject.OperatorGt, ""), &score, true},
		{"and over values", valueobject.NewFilter("k", []string{"10", "60"}, valueobject.OperatorGt, valueobject.FilterModeAnd), &score, false},
		{"unparsable", valueobject.NewFilter("k", []string{"high"}, valueobject.OperatorGt, ""), &score, false},
		{"missing attribute", valueobject.NewFilter("k", []string{"0"}, valueobject.OperatorGte, ""), nil, false},
		{"missing attribute not_eq", valueobject.NewFilter("k", []string{"0"}, valueobject.OperatorNotEq, ""), nil, false},
		{"nil", valueobject.NewFilter("k", nil, valueobject.OperatorNil, ""), nil, true},
		{"not_nil", valueobject.NewFilter("k", nil, valueobject.OperatorNotNil, ""), &score, true},
		{"string operator", valueobject.NewFilter("k", []string{"5"}, valueobject.OperatorContains, ""), &score, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testNumericFilter(tt.filter, tt.candidate))
		})
	}
}

func TestTestBooleanFilter(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name      string
		filter    valueobject.Filter
		candidate *bool
		want      bool
	}{
		{"eq true", valueobject.NewFilter("k", []string{"true"}, "", ""), &yes, true},
		{"eq false", valueobject.NewFilter("k", []string{"false"}, "", ""), &no, true},
		{"not_eq", valueobject.NewFilter("k", []string{"true"}, valueobject.OperatorNotEq, ""), &no, true},
		{"missing is false", valueobject.NewFilter("k", []string{"false"}, "", ""), nil, true},
		{"invalid value", valueobject.NewFilter("k", []string{"maybe"}, "", ""), &yes, false},
		{"nil", valueobject.NewFilter("k", nil, valueobject.OperatorNil, ""), nil, true},
		{"not_nil", valueobject.NewFilter("k", nil, valueobject.OperatorNotNil, ""), &no, true},
		{"gt unsupported", valueobject.NewFilter("k", []string{"true"}, valueobject.OperatorGt, ""), &yes, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testBooleanFilter(tt.filter, tt.candidate))
		})
	}
}
