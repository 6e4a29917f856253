package port

import (
	"context"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// MatchUseCase defines the contract for matching live subjects against filter groups.
type MatchUseCase interface {
	// IsStixMatchFilterGroup tells if the STIX object satisfies the group for user.
	// Returns an error for a malformed group or an upstream failure.
	IsStixMatchFilterGroup(ctx context.Context, user *entity.User, stix *entity.StixObject, group valueobject.FilterGroup) (bool, error)

	// IsEventMatchFilterGroup tells if the activity event satisfies the group.
	IsEventMatchFilterGroup(ctx context.Context, event *entity.ActivityEvent, group valueobject.FilterGroup) (bool, error)

	// Validate checks a group against the testers of the subject kind.
	Validate(ctx context.Context, request *dto.ValidateRequest) (*dto.ValidateResponse, error)
}

// StreamManagementUseCase defines the contract for stream definition operations.
type StreamManagementUseCase interface {
	// Register validates and stores a stream definition.
	// Returns the ID of the registered stream or an error.
	Register(ctx context.Context, request *dto.RegisterStreamRequest) (string, error)

	// Get retrieves a stream by its ID.
	Get(ctx context.Context, streamID string) (*dto.StreamResponse, error)

	// List retrieves the streams of a subject kind, all of them when empty.
	List(ctx context.Context, subject valueobject.SubjectKind) ([]*dto.StreamResponse, error)

	// Delete removes a stream definition.
	Delete(ctx context.Context, streamID string) error
}

// DispatchUseCase defines the contract for routing live stream events to streams.
type DispatchUseCase interface {
	// Dispatch matches the event against every active stream of its kind and
	// publishes the matches.
	Dispatch(ctx context.Context, event *entity.StreamEvent) (*dto.DispatchResult, error)
}
