package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// ResolvedFiltersEntityType is the cache entry holding the entities referenced by stored filters.
const ResolvedFiltersEntityType = "ResolvedFilters"

// MatchService implements the MatchUseCase interface.
// It binds the filtering engine to the resolved filters cache and the access gate.
type MatchService struct {
	matcher          *stixfilter.Matcher
	entityCache      port.EntityCache
	accessChecker    port.AccessChecker
	metricsCollector port.MetricsCollector
	logger           logging.Logger
}

// NewMatchService creates a new MatchService with the specified dependencies.
// A nil matcher uses the built-in tester registries.
func NewMatchService(
	matcher *stixfilter.Matcher,
	entityCache port.EntityCache,
	accessChecker port.AccessChecker,
	metricsCollector port.MetricsCollector,
	logger logging.Logger,
) *MatchService {
	if matcher == nil {
		matcher = stixfilter.DefaultMatcher
	}
	return &MatchService{
		matcher:          matcher,
		entityCache:      entityCache,
		accessChecker:    accessChecker,
		metricsCollector: metricsCollector,
		logger:           logger,
	}
}

// Matcher returns the engine used by the service.
func (s *MatchService) Matcher() *stixfilter.Matcher {
	return s.matcher
}

// IsStixMatchFilterGroup tells if the STIX object satisfies the group for user.
// The group is validated first, then the access gate runs, and only then is
// the cache read to resolve filter values.
func (s *MatchService) IsStixMatchFilterGroup(
	ctx context.Context,
	user *entity.User,
	stix *entity.StixObject,
	group valueobject.FilterGroup,
) (bool, error) {
	startTime := time.Now()
	subject := string(valueobject.SubjectStix)

	matched, err := s.matcher.MatchStix(ctx, s.accessChecker, user, stix, group, s.loadResolution)
	if err != nil {
		s.recordFailure(subject, err)
		return false, err
	}

	s.metricsCollector.RecordMatch(subject, matched, time.Since(startTime))
	s.logger.Debug(
		"STIX match evaluated",
		logging.Field{Key: "stixID", Value: stix.ID},
		logging.Field{Key: "userID", Value: userID(user)},
		logging.Field{Key: "matched", Value: matched},
	)
	return matched, nil
}

// IsEventMatchFilterGroup tells if the activity event satisfies the group.
func (s *MatchService) IsEventMatchFilterGroup(
	ctx context.Context,
	event *entity.ActivityEvent,
	group valueobject.FilterGroup,
) (bool, error) {
	startTime := time.Now()
	subject := string(valueobject.SubjectEvent)

	matched, err := s.matcher.MatchEvent(ctx, event, group, s.loadResolution)
	if err != nil {
		s.recordFailure(subject, err)
		return false, err
	}

	s.metricsCollector.RecordMatch(subject, matched, time.Since(startTime))
	s.logger.Debug(
		"Activity event match evaluated",
		logging.Field{Key: "eventType", Value: event.Type},
		logging.Field{Key: "eventScope", Value: event.EventScope},
		logging.Field{Key: "matched", Value: matched},
	)
	return matched, nil
}

// Validate checks a group against the testers of the requested subject kind.
// An invalid group is reported in the response, not as an error.
func (s *MatchService) Validate(ctx context.Context, request *dto.ValidateRequest) (*dto.ValidateResponse, error) {
	if !request.Subject.IsValid() {
		return nil, fmt.Errorf("unknown subject kind %q", request.Subject)
	}

	if err := s.matcher.Validate(request.Subject, request.Filters); err != nil {
		s.metricsCollector.RecordValidationError(string(request.Subject), validationReason(err))
		s.logger.Warn(
			"Filter group rejected",
			logging.Subject(request.Subject),
			logging.Err(err),
		)
		return &dto.ValidateResponse{Valid: false, Error: err.Error()}, nil
	}
	return &dto.ValidateResponse{Valid: true}, nil
}

// loadResolution builds the resolution map from the cache, read as the
// system user. Groups without resolvable keys skip the cache entirely.
func (s *MatchService) loadResolution(ctx context.Context, group valueobject.FilterGroup) (valueobject.FilterResolutionMap, error) {
	if !stixfilter.RequiresResolution(group) {
		return valueobject.FilterResolutionMap{}, nil
	}

	entities, err := s.entityCache.GetEntitiesMap(ctx, entity.SystemUser(), ResolvedFiltersEntityType)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolved filters cache: %w", err)
	}
	return stixfilter.BuildResolutionMap(group, entities), nil
}

// recordFailure classifies a match failure for metrics and logs.
func (s *MatchService) recordFailure(subject string, err error) {
	if stixfilter.IsValidationError(err) {
		s.metricsCollector.RecordValidationError(subject, validationReason(err))
		s.logger.Warn(
			"Filter group rejected at match time",
			logging.Subject(valueobject.SubjectKind(subject)),
			logging.Err(err),
		)
		return
	}

	s.metricsCollector.RecordError("match", subject)
	s.logger.Error(
		"Match failed",
		logging.Subject(valueobject.SubjectKind(subject)),
		logging.Err(err),
	)
}

// validationReason maps a validation error to a metrics label.
func validationReason(err error) string {
	switch {
	case errors.Is(err, stixfilter.ErrUnsupportedFilterShape):
		return "shape"
	case errors.Is(err, stixfilter.ErrUnknownFilterKey):
		return "unknown_key"
	case errors.Is(err, stixfilter.ErrUnsupportedFilterMode):
		return "mode"
	default:
		return "other"
	}
}

func userID(user *entity.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
