package stixfilter

import (
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// DefaultCELCacheSize is the number of compiled programs kept by default.
const DefaultCELCacheSize = 256

// CELCompiler builds testers from CEL expressions. Expressions see the
// subject as `stix` or `event` (a map), the filter values as `values` and
// the operator as `operator`, and must evaluate to a bool.
type CELCompiler struct {
	stixEnv  *cel.Env
	eventEnv *cel.Env
	programs *lru.Cache[string, cel.Program]
}

// NewCELCompiler creates a compiler caching up to cacheSize programs.
func NewCELCompiler(cacheSize int) (*CELCompiler, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCELCacheSize
	}

	stixEnv, err := newCELEnv("stix")
	if err != nil {
		return nil, err
	}
	eventEnv, err := newCELEnv("event")
	if err != nil {
		return nil, err
	}
	programs, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program cache: %w", err)
	}

	return &CELCompiler{
		stixEnv:  stixEnv,
		eventEnv: eventEnv,
		programs: programs,
	}, nil
}

func newCELEnv(subject string) (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(subject, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("values", cel.ListType(cel.StringType)),
		cel.Variable("operator", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// program returns the cached program for the expression, compiling it on a miss.
func (c *CELCompiler) program(env *cel.Env, subject, expression string) (cel.Program, error) {
	cacheKey := subject + "\x00" + expression
	if p, ok := c.programs.Get(cacheKey); ok {
		return p, nil
	}

	ast, issues := env.Compile(expression)
	if issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must evaluate to bool, got %s", out)
	}

	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	c.programs.Add(cacheKey, p)
	return p, nil
}

// CachedPrograms returns the number of programs currently cached.
func (c *CELCompiler) CachedPrograms() int {
	return c.programs.Len()
}

// StixTester compiles a tester over STIX objects.
func (c *CELCompiler) StixTester(expression string) (Tester[*entity.StixObject], error) {
	if _, err := c.program(c.stixEnv, "stix", expression); err != nil {
		return nil, err
	}
	return func(s *entity.StixObject, filter valueobject.Filter) bool {
		if s == nil {
			return false
		}
		return c.eval(c.stixEnv, "stix", expression, s.Raw(), filter)
	}, nil
}

// EventTester compiles a tester over activity events.
func (c *CELCompiler) EventTester(expression string) (Tester[*entity.ActivityEvent], error) {
	if _, err := c.program(c.eventEnv, "event", expression); err != nil {
		return nil, err
	}
	return func(e *entity.ActivityEvent, filter valueobject.Filter) bool {
		if e == nil {
			return false
		}
		doc, err := toDocument(e)
		if err != nil {
			return false
		}
		return c.eval(c.eventEnv, "event", expression, doc, filter)
	}, nil
}

// eval runs the expression. Errors and non-bool results never match.
func (c *CELCompiler) eval(env *cel.Env, subject, expression string, doc map[string]any, filter valueobject.Filter) bool {
	p, err := c.program(env, subject, expression)
	if err != nil {
		return false
	}

	values := filter.Values
	if values == nil {
		values = []string{}
	}
	out, _, err := p.Eval(map[string]any{
		subject:    doc,
		"values":   values,
		"operator": string(filter.EffectiveOperator()),
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}

func toDocument(v any) (map[string]any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// WithCustomStixTesters returns a copy of the registry extended with the
// given CEL testers. Built-in keys cannot be overridden and a key may be
// defined once.
func WithCustomStixTesters(registry TesterRegistry[*entity.StixObject], compiler *CELCompiler, testers []valueobject.CustomTester) (TesterRegistry[*entity.StixObject], error) {
	out := registry
	for _, ct := range testers {
		if _, exists := registry.Lookup(ct.Key); exists {
			return nil, fmt.Errorf("custom tester %s overrides a built-in filter key", ct.Key)
		}
		if _, exists := out.Lookup(ct.Key); exists {
			return nil, fmt.Errorf("duplicate custom tester %s", ct.Key)
		}
		tester, err := compiler.StixTester(ct.Expression)
		if err != nil {
			return nil, fmt.Errorf("custom tester %s: %w", ct.Key, err)
		}
		out = out.With(ct.Key, tester)
	}
	return out, nil
}

// WithCustomEventTesters is WithCustomStixTesters for activity events.
func WithCustomEventTesters(registry TesterRegistry[*entity.ActivityEvent], compiler *CELCompiler, testers []valueobject.CustomTester) (TesterRegistry[*entity.ActivityEvent], error) {
	out := registry
	for _, ct := range testers {
		if _, exists := registry.Lookup(ct.Key); exists {
			return nil, fmt.Errorf("custom tester %s overrides a built-in filter key", ct.Key)
		}
		if _, exists := out.Lookup(ct.Key); exists {
			return nil, fmt.Errorf("duplicate custom tester %s", ct.Key)
		}
		tester, err := compiler.EventTester(ct.Expression)
		if err != nil {
			return nil, fmt.Errorf("custom tester %s: %w", ct.Key, err)
		}
		out = out.With(ct.Key, tester)
	}
	return out, nil
}

// NewCustomMatcher builds a matcher whose registries are the built-in ones
// extended with the `key=expression;...` tester specifications.
func NewCustomMatcher(stixSpec, eventSpec string, cacheSize int) (*Matcher, error) {
	stixTesters, err := valueobject.ParseCustomTesters(stixSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid stix testers: %w", err)
	}
	eventTesters, err := valueobject.ParseCustomTesters(eventSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid event testers: %w", err)
	}
	if len(stixTesters) == 0 && len(eventTesters) == 0 {
		return DefaultMatcher, nil
	}

	compiler, err := NewCELCompiler(cacheSize)
	if err != nil {
		return nil, err
	}
	stix, err := WithCustomStixTesters(StixTesters, compiler, stixTesters)
	if err != nil {
		return nil, err
	}
	event, err := WithCustomEventTesters(EventTesters, compiler, eventTesters)
	if err != nil {
		return nil, err
	}
	return NewMatcher(stix, event), nil
}
