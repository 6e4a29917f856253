package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

func newTestMatchService(cache *MockEntityCache, access *MockAccessChecker, metrics *MockMetricsCollector) *MatchService {
	return NewMatchService(nil, cache, access, metrics, logging.NewNopLogger())
}

func TestMatchService_IsStixMatchFilterGroup_ResolvesThroughCache(t *testing.T) {
	var gotUser *entity.User
	var gotType string
	cache := &MockEntityCache{
		GetEntitiesMapFunc: func(ctx context.Context, user *entity.User, entityType string) (stixfilter.EntityMap, error) {
			gotUser, gotType = user, entityType
			return labelCache(), nil
		},
	}
	access := &MockAccessChecker{Allowed: true}
	metrics := &MockMetricsCollector{}
	svc := newTestMatchService(cache, access, metrics)

	matched, err := svc.IsStixMatchFilterGroup(context.Background(), &entity.User{ID: "user-1"}, newIndicator("malware"), labelFilter("label-id-malware"))

	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, entity.SystemUserID, gotUser.ID, "cache must be read as the system user")
	assert.Equal(t, ResolvedFiltersEntityType, gotType)
	assert.Equal(t, 1, metrics.matches)
}

func TestMatchService_IsStixMatchFilterGroup_SkipsCacheWithoutResolvableKeys(t *testing.T) {
	cache := &MockEntityCache{}
	svc := newTestMatchService(cache, &MockAccessChecker{Allowed: true}, &MockMetricsCollector{})

	matched, err := svc.IsStixMatchFilterGroup(context.Background(), &entity.User{ID: "user-1"}, newIndicator(), entityTypeFilter("Indicator"))

	require.NoError(t, err)
	assert.True(t, matched)
	assert.Zero(t, cache.calls)
}

func TestMatchService_IsStixMatchFilterGroup_AccessDenied(t *testing.T) {
	cache := &MockEntityCache{}
	svc := newTestMatchService(cache, &MockAccessChecker{Allowed: false}, &MockMetricsCollector{})

	matched, err := svc.IsStixMatchFilterGroup(context.Background(), &entity.User{ID: "user-1"}, newIndicator("malware"), labelFilter("label-id-malware"))

	require.NoError(t, err)
	assert.False(t, matched)
	assert.Zero(t, cache.calls, "cache must not be read for an inaccessible object")
}

func TestMatchService_IsStixMatchFilterGroup_InvalidGroup(t *testing.T) {
	access := &MockAccessChecker{Allowed: true}
	metrics := &MockMetricsCollector{}
	svc := newTestMatchService(&MockEntityCache{}, access, metrics)
	group := valueobject.NewFilterGroup(valueobject.FilterModeAnd,
		[]valueobject.Filter{valueobject.NewFilter("unknown_key", []string{"x"}, "", "")}, nil)

	_, err := svc.IsStixMatchFilterGroup(context.Background(), &entity.User{ID: "user-1"}, newIndicator(), group)

	require.Error(t, err)
	assert.ErrorIs(t, err, stixfilter.ErrUnknownFilterKey)
	assert.Zero(t, access.calls, "access must not be checked for an invalid group")
	assert.Equal(t, []string{"unknown_key"}, metrics.validationErrors)
}

func TestMatchService_IsStixMatchFilterGroup_CacheFailure(t *testing.T) {
	cacheErr := errors.New("redis down")
	cache := &MockEntityCache{
		GetEntitiesMapFunc: func(context.Context, *entity.User, string) (stixfilter.EntityMap, error) {
			return nil, cacheErr
		},
	}
	metrics := &MockMetricsCollector{}
	svc := newTestMatchService(cache, &MockAccessChecker{Allowed: true}, metrics)

	_, err := svc.IsStixMatchFilterGroup(context.Background(), &entity.User{ID: "user-1"}, newIndicator("malware"), labelFilter("label-id-malware"))

	assert.ErrorIs(t, err, cacheErr)
	assert.Equal(t, []string{"match:stix"}, metrics.errors)
}

func TestMatchService_IsEventMatchFilterGroup(t *testing.T) {
	svc := newTestMatchService(&MockEntityCache{}, &MockAccessChecker{}, &MockMetricsCollector{})
	event := &entity.ActivityEvent{Type: entity.ActivityMutation, EventScope: "create"}
	group := valueobject.NewFilterGroup(valueobject.FilterModeAnd,
		[]valueobject.Filter{valueobject.NewFilter(stixfilter.KeyEventScope, []string{"CREATE", "update"}, "", "")}, nil)

	matched, err := svc.IsEventMatchFilterGroup(context.Background(), event, group)

	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchService_Validate(t *testing.T) {
	tests := []struct {
		name      string
		request   *dto.ValidateRequest
		wantValid bool
		wantErr   bool
	}{
		{
			name:      "Valid stix group",
			request:   &dto.ValidateRequest{Subject: valueobject.SubjectStix, Filters: labelFilter("a")},
			wantValid: true,
		},
		{
			name: "Event key on stix subject",
			request: &dto.ValidateRequest{Subject: valueobject.SubjectStix, Filters: valueobject.NewFilterGroup("",
				[]valueobject.Filter{valueobject.NewFilter(stixfilter.KeyEventType, []string{"read"}, "", "")}, nil)},
			wantValid: false,
		},
		{
			name: "Compound key",
			request: &dto.ValidateRequest{Subject: valueobject.SubjectEvent, Filters: valueobject.FilterGroup{
				Filters: []valueobject.Filter{{Key: []string{"event_type", "event_scope"}}},
			}},
			wantValid: false,
		},
		{
			name:    "Unknown subject",
			request: &dto.ValidateRequest{Subject: "bundle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestMatchService(&MockEntityCache{}, &MockAccessChecker{}, &MockMetricsCollector{})

			resp, err := svc.Validate(context.Background(), tt.request)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, resp.Valid)
			if !tt.wantValid {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestValidationReason(t *testing.T) {
	assert.Equal(t, "shape", validationReason(&stixfilter.UnsupportedFilterShapeError{Key: []string{"a", "b"}}))
	assert.Equal(t, "unknown_key", validationReason(&stixfilter.UnknownFilterKeyError{Key: "x"}))
	assert.Equal(t, "other", validationReason(errors.New("boom")))
}
