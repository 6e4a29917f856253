package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// Mock implementations
type MockEntityCache struct {
	GetEntitiesMapFunc func(ctx context.Context, user *entity.User, entityType string) (stixfilter.EntityMap, error)
	calls              int
}

func (m *MockEntityCache) GetEntitiesMap(ctx context.Context, user *entity.User, entityType string) (stixfilter.EntityMap, error) {
	m.calls++
	if m.GetEntitiesMapFunc != nil {
		return m.GetEntitiesMapFunc(ctx, user, entityType)
	}
	return stixfilter.EntityMap{}, nil
}

type MockAccessChecker struct {
	Allowed bool
	Err     error
	calls   int
}

func (m *MockAccessChecker) IsUserCanAccessStixElement(ctx context.Context, user *entity.User, stix *entity.StixObject) (bool, error) {
	m.calls++
	return m.Allowed, m.Err
}

type MockMetricsCollector struct {
	mu               sync.Mutex
	matches          int
	validationErrors []string
	errors           []string
	published        int
	consumed         int
}

func (m *MockMetricsCollector) RecordMatch(subject string, matched bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches++
}

func (m *MockMetricsCollector) RecordValidationError(subject, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrors = append(m.validationErrors, reason)
}

func (m *MockMetricsCollector) RecordCacheRefresh(success bool, entries int) {}

func (m *MockMetricsCollector) RecordEventConsumed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed++
}

func (m *MockMetricsCollector) RecordEventPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
}

func (m *MockMetricsCollector) RecordError(component, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, component+":"+errorType)
}

type MockStreamRepository struct {
	mu      sync.Mutex
	streams map[string]*entity.Stream
	ListErr error
	SaveErr error
}

func NewMockStreamRepository(streams ...*entity.Stream) *MockStreamRepository {
	m := &MockStreamRepository{streams: make(map[string]*entity.Stream)}
	for _, s := range streams {
		m.streams[s.ID()] = s
	}
	return m
}

func (m *MockStreamRepository) Save(ctx context.Context, stream *entity.Stream) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[stream.ID()] = stream
	return nil
}

func (m *MockStreamRepository) Get(ctx context.Context, id string) (*entity.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrStreamNotFound, id)
	}
	return s, nil
}

func (m *MockStreamRepository) List(ctx context.Context, subject valueobject.SubjectKind) ([]*entity.Stream, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Stream, 0, len(m.streams))
	for _, s := range m.streams {
		if subject == "" || s.Subject() == subject {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockStreamRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[id]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrStreamNotFound, id)
	}
	delete(m.streams, id)
	return nil
}

type MockUserRepository struct {
	users map[string]*entity.User
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}
	return u, nil
}

type MockMatchPublisher struct {
	mu        sync.Mutex
	published []*entity.MatchedEvent
	Err       error
}

func (m *MockMatchPublisher) Publish(ctx context.Context, matched *entity.MatchedEvent) error {
	return m.PublishBatch(ctx, []*entity.MatchedEvent{matched})
}

func (m *MockMatchPublisher) PublishBatch(ctx context.Context, matched []*entity.MatchedEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, matched...)
	return nil
}

func labelFilter(values ...string) valueobject.FilterGroup {
	return valueobject.NewFilterGroup(valueobject.FilterModeAnd,
		[]valueobject.Filter{valueobject.NewFilter(stixfilter.KeyObjectLabel, values, valueobject.OperatorEq, valueobject.FilterModeOr)},
		[]valueobject.FilterGroup{},
	)
}

func entityTypeFilter(values ...string) valueobject.FilterGroup {
	return valueobject.NewFilterGroup(valueobject.FilterModeAnd,
		[]valueobject.Filter{valueobject.NewFilter(stixfilter.KeyEntityType, values, valueobject.OperatorEq, valueobject.FilterModeOr)},
		[]valueobject.FilterGroup{},
	)
}

func newIndicator(labels ...string) *entity.StixObject {
	return &entity.StixObject{
		ID:     "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f",
		Type:   "indicator",
		Labels: labels,
		Extension: entity.OpenCTIExtension{
			ID:   "3a1b6c2e-0000-4000-8000-000000000001",
			Type: "Indicator",
		},
	}
}

func labelCache() stixfilter.EntityMap {
	return stixfilter.EntityMap{
		"label-id-malware": stixfilter.CachedEntity{"id": "label-id-malware", "value": "malware"},
	}
}
