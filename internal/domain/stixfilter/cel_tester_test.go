package stixfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

func TestCELCompiler_StixTester(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	tester, err := compiler.StixTester(`"name" in stix && stix.name in values`)
	require.NoError(t, err)

	stix := newIndicator()
	assert.True(t, tester(stix, filter("x_name", "", "evil.example")))
	assert.False(t, tester(stix, filter("x_name", "", "benign.example")))
	assert.False(t, tester(nil, filter("x_name", "", "evil.example")))
}

func TestCELCompiler_OperatorVariable(t *testing.T) {
	compiler, err := NewCELCompiler(0)
	require.NoError(t, err)

	tester, err := compiler.StixTester(`operator == "not_nil" ? has(stix.labels) : false`)
	require.NoError(t, err)

	assert.True(t, tester(newIndicator(), filter("has_labels", valueobject.OperatorNotNil)))
	assert.False(t, tester(newIndicator(), filter("has_labels", valueobject.OperatorEq, "x")))
}

func TestCELCompiler_RuntimeErrorDoesNotMatch(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	tester, err := compiler.StixTester(`stix.does_not_exist == "x"`)
	require.NoError(t, err)

	assert.False(t, tester(newIndicator(), filter("k", "", "x")))
}

func TestCELCompiler_CompileErrors(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	_, err = compiler.StixTester(`stix.name ==`)
	assert.Error(t, err)

	_, err = compiler.StixTester(`"not a bool"`)
	assert.Error(t, err)
}

func TestCELCompiler_CachesPrograms(t *testing.T) {
	compiler, err := NewCELCompiler(2)
	require.NoError(t, err)

	for _, expr := range []string{"true", "true", "false", "1 == 1"} {
		_, err := compiler.StixTester(expr)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, compiler.CachedPrograms())
}

func TestCELCompiler_EventTester(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	tester, err := compiler.EventTester(`event.origin.user_id in values`)
	require.NoError(t, err)

	assert.True(t, tester(newActivityEvent(), filter("origin_user", "", "user-1")))
	assert.False(t, tester(newActivityEvent(), filter("origin_user", "", "user-2")))
}

func TestWithCustomStixTesters(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	registry, err := WithCustomStixTesters(StixTesters, compiler, []valueobject.CustomTester{
		{Key: "x_high_score", Expression: `stix.x_opencti_score >= 50.0`},
	})
	require.NoError(t, err)

	assert.NoError(t, ValidateFilterGroup(and(filter("x_high_score", "")), registry))
	assert.ErrorIs(t, ValidateFilterGroupForStixMatch(and(filter("x_high_score", ""))), ErrUnknownFilterKey)
	assert.True(t, TestFilterGroup(newIndicator(), and(filter("x_high_score", "")), registry))

	_, err = WithCustomStixTesters(StixTesters, compiler, []valueobject.CustomTester{{Key: KeyObjectLabel, Expression: "true"}})
	assert.Error(t, err)
}

func TestWithCustomEventTesters(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	registry, err := WithCustomEventTesters(EventTesters, compiler, []valueobject.CustomTester{
		{Key: "event_version", Expression: `event.version in values`},
	})
	require.NoError(t, err)
	assert.True(t, TestFilter(newActivityEvent(), filter("event_version", "", "1"), registry))
}

func TestWithCustomTesters_DuplicateKey(t *testing.T) {
	compiler, err := NewCELCompiler(8)
	require.NoError(t, err)

	_, err = WithCustomStixTesters(StixTesters, compiler, []valueobject.CustomTester{
		{Key: "x", Expression: "true"},
		{Key: "x", Expression: "false"},
	})
	assert.ErrorContains(t, err, "duplicate custom tester x")

	_, err = WithCustomEventTesters(EventTesters, compiler, []valueobject.CustomTester{
		{Key: "x", Expression: "true"},
		{Key: "x", Expression: "false"},
	})
	assert.ErrorContains(t, err, "duplicate custom tester x")

	_, err = NewCustomMatcher("x=true;x=false", "", 8)
	assert.Error(t, err)
}

func TestNewCustomMatcher(t *testing.T) {
	m, err := NewCustomMatcher("", "", 0)
	require.NoError(t, err)
	assert.Same(t, DefaultMatcher, m)

	m, err = NewCustomMatcher(`x_name="name" in stix && stix.name in values`, "", 8)
	require.NoError(t, err)
	_, ok := m.StixTesters().Lookup("x_name")
	assert.True(t, ok)
	_, ok = m.EventTesters().Lookup("x_name")
	assert.False(t, ok)

	_, err = NewCustomMatcher("entity_type=true", "", 8)
	assert.Error(t, err)

	_, err = NewCustomMatcher("", "no-separator", 8)
	assert.Error(t, err)
}
