package stixfilter

import (
	"context"
	"fmt"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// AccessChecker decides whether a user may see a STIX object.
type AccessChecker interface {
	IsUserCanAccessStixElement(ctx context.Context, user *entity.User, stix *entity.StixObject) (bool, error)
}

// AccessCheckerFunc adapts a function to AccessChecker.
type AccessCheckerFunc func(ctx context.Context, user *entity.User, stix *entity.StixObject) (bool, error)

// IsUserCanAccessStixElement calls f.
func (f AccessCheckerFunc) IsUserCanAccessStixElement(ctx context.Context, user *entity.User, stix *entity.StixObject) (bool, error) {
	return f(ctx, user, stix)
}

// Matcher binds the tester registries used for both subject kinds.
type Matcher struct {
	stix  TesterRegistry[*entity.StixObject]
	event TesterRegistry[*entity.ActivityEvent]
}

// NewMatcher creates a matcher. Nil registries fall back to the built-in ones.
func NewMatcher(stix TesterRegistry[*entity.StixObject], event TesterRegistry[*entity.ActivityEvent]) *Matcher {
	if stix == nil {
		stix = StixTesters
	}
	if event == nil {
		event = EventTesters
	}
	return &Matcher{stix: stix, event: event}
}

// DefaultMatcher uses the built-in registries.
var DefaultMatcher = NewMatcher(nil, nil)

// StixTesters returns the registry used for STIX objects.
func (m *Matcher) StixTesters() TesterRegistry[*entity.StixObject] {
	return m.stix
}

// EventTesters returns the registry used for activity events.
func (m *Matcher) EventTesters() TesterRegistry[*entity.ActivityEvent] {
	return m.event
}

// ValidateStix validates a group against the STIX registry of the matcher.
func (m *Matcher) ValidateStix(group valueobject.FilterGroup) error {
	return ValidateFilterGroup(group, m.stix)
}

// ValidateEvent validates a group against the event registry of the matcher.
func (m *Matcher) ValidateEvent(group valueobject.FilterGroup) error {
	return ValidateFilterGroup(group, m.event)
}

// Validate validates a group for the given subject kind.
func (m *Matcher) Validate(kind valueobject.SubjectKind, group valueobject.FilterGroup) error {
	switch kind {
	case valueobject.SubjectStix:
		return m.ValidateStix(group)
	case valueobject.SubjectEvent:
		return m.ValidateEvent(group)
	default:
		return fmt.Errorf("unknown subject kind %q", kind)
	}
}

// ResolutionLoader produces the resolution map of a group. It is only called
// once validation and the access gate have passed.
type ResolutionLoader func(ctx context.Context, group valueobject.FilterGroup) (valueobject.FilterResolutionMap, error)

// StaticResolution returns a loader always yielding the given map.
func StaticResolution(resolution valueobject.FilterResolutionMap) ResolutionLoader {
	return func(context.Context, valueobject.FilterGroup) (valueobject.FilterResolutionMap, error) {
		return resolution, nil
	}
}

// MatchStix validates the group, checks that the user can access the object,
// loads the resolution map and evaluates the resolved group. An inaccessible
// object never matches, whatever the group.
func (m *Matcher) MatchStix(
	ctx context.Context,
	access AccessChecker,
	user *entity.User,
	stix *entity.StixObject,
	group valueobject.FilterGroup,
	load ResolutionLoader,
) (bool, error) {
	if err := m.ValidateStix(group); err != nil {
		return false, err
	}
	if stix == nil {
		return false, fmt.Errorf("stix object cannot be nil")
	}
	if access == nil {
		return false, fmt.Errorf("access checker cannot be nil")
	}

	allowed, err := access.IsUserCanAccessStixElement(ctx, user, stix)
	if err != nil {
		return false, fmt.Errorf("failed to check access to %s: %w", stix.ID, err)
	}
	if !allowed {
		return false, nil
	}

	resolution, err := load(ctx, group)
	if err != nil {
		return false, err
	}
	return m.EvaluateStix(stix, ResolveFilterGroup(group, resolution)), nil
}

// MatchEvent validates the group, loads the resolution map and evaluates the
// resolved group against the activity event.
func (m *Matcher) MatchEvent(
	ctx context.Context,
	event *entity.ActivityEvent,
	group valueobject.FilterGroup,
	load ResolutionLoader,
) (bool, error) {
	if err := m.ValidateEvent(group); err != nil {
		return false, err
	}
	if event == nil {
		return false, fmt.Errorf("activity event cannot be nil")
	}

	resolution, err := load(ctx, group)
	if err != nil {
		return false, err
	}
	return m.EvaluateEvent(event, ResolveFilterGroup(group, resolution)), nil
}

// IsStixMatchFilterGroupWithResolutionMap is MatchStix with a prebuilt map.
func (m *Matcher) IsStixMatchFilterGroupWithResolutionMap(
	ctx context.Context,
	access AccessChecker,
	user *entity.User,
	stix *entity.StixObject,
	group valueobject.FilterGroup,
	resolution valueobject.FilterResolutionMap,
) (bool, error) {
	return m.MatchStix(ctx, access, user, stix, group, StaticResolution(resolution))
}

// IsEventMatchFilterGroupWithResolutionMap is MatchEvent with a prebuilt map.
func (m *Matcher) IsEventMatchFilterGroupWithResolutionMap(
	event *entity.ActivityEvent,
	group valueobject.FilterGroup,
	resolution valueobject.FilterResolutionMap,
) (bool, error) {
	return m.MatchEvent(context.Background(), event, group, StaticResolution(resolution))
}

// EvaluateStix runs the boolean engine on an already resolved group.
func (m *Matcher) EvaluateStix(stix *entity.StixObject, resolved valueobject.FilterGroup) bool {
	return TestFilterGroup(stix, resolved, m.stix)
}

// EvaluateEvent runs the boolean engine on an already resolved group.
func (m *Matcher) EvaluateEvent(event *entity.ActivityEvent, resolved valueobject.FilterGroup) bool {
	return TestFilterGroup(event, resolved, m.event)
}

// IsStixMatchFilterGroupWithResolutionMap uses the DefaultMatcher.
func IsStixMatchFilterGroupWithResolutionMap(
	ctx context.Context,
	access AccessChecker,
	user *entity.User,
	stix *entity.StixObject,
	group valueobject.FilterGroup,
	resolution valueobject.FilterResolutionMap,
) (bool, error) {
	return DefaultMatcher.IsStixMatchFilterGroupWithResolutionMap(ctx, access, user, stix, group, resolution)
}

// IsEventMatchFilterGroupWithResolutionMap uses the DefaultMatcher.
func IsEventMatchFilterGroupWithResolutionMap(
	event *entity.ActivityEvent,
	group valueobject.FilterGroup,
	resolution valueobject.FilterResolutionMap,
) (bool, error) {
	return DefaultMatcher.IsEventMatchFilterGroupWithResolutionMap(event, group, resolution)
}
