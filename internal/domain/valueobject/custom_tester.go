package valueobject

import (
	"fmt"
	"strings"
)

// SubjectKind identifies which subject shape a filter is evaluated against.
type SubjectKind string

// SubjectKind constants define the two subject shapes.
const (
	SubjectStix  SubjectKind = "stix"
	SubjectEvent SubjectKind = "event"
)

// IsValid returns true for a known subject kind.
func (k SubjectKind) IsValid() bool {
	return k == SubjectStix || k == SubjectEvent
}

// CustomTester is a value object describing a deployment-specific filter key
// whose match semantics are given by a CEL expression over the STIX object.
type CustomTester struct {
	Key        string
	Expression string
}

// NewCustomTester creates a CustomTester and validates it.
func NewCustomTester(key, expression string) (CustomTester, error) {
	ct := CustomTester{
		Key:        strings.TrimSpace(key),
		Expression: strings.TrimSpace(expression),
	}
	if err := ct.Validate(); err != nil {
		return CustomTester{}, err
	}
	return ct, nil
}

// Validate checks that the key and expression are usable.
func (ct CustomTester) Validate() error {
	if ct.Key == "" {
		return fmt.Errorf("custom tester key cannot be empty")
	}
	if strings.ContainsAny(ct.Key, " =;") {
		return fmt.Errorf("custom tester key %q contains invalid characters", ct.Key)
	}
	if ct.Expression == "" {
		return fmt.Errorf("custom tester expression cannot be empty for key %s", ct.Key)
	}
	return nil
}

// ParseCustomTesters parses a `key=expression;key=expression` specification.
func ParseCustomTesters(spec string) ([]CustomTester, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	testers := make([]CustomTester, 0)
	for _, part := range strings.Split(spec, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		key, expr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid custom tester %q: expected key=expression", part)
		}
		ct, err := NewCustomTester(key, expr)
		if err != nil {
			return nil, err
		}
		testers = append(testers, ct)
	}
	return testers, nil
}

// String returns a string representation of the custom tester.
func (ct CustomTester) String() string {
	return fmt.Sprintf("CustomTester{Key: %s, Expression: %s}", ct.Key, ct.Expression)
}
