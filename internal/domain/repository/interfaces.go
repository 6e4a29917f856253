package repository

import (
	"context"
	"errors"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// ErrStreamNotFound is returned when no stream carries the requested id.
var ErrStreamNotFound = errors.New("stream not found")

// ErrUserNotFound is returned when no user carries the requested id.
var ErrUserNotFound = errors.New("user not found")

// StreamRepository defines the contract for stream definition storage.
type StreamRepository interface {
	// Save stores a stream. An existing stream with the same ID is replaced.
	Save(ctx context.Context, stream *entity.Stream) error

	// Get retrieves a stream by its ID.
	// Returns ErrStreamNotFound (wrapped) when it does not exist.
	Get(ctx context.Context, id string) (*entity.Stream, error)

	// List retrieves the streams whose filters apply to the subject kind.
	// An empty kind lists every stream.
	List(ctx context.Context, subject valueobject.SubjectKind) ([]*entity.Stream, error)

	// Delete removes a stream.
	// Returns ErrStreamNotFound (wrapped) when it does not exist.
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the contract for resolving the identity a stream
// evaluates as.
type UserRepository interface {
	// Get retrieves a user by its ID.
	// Returns ErrUserNotFound (wrapped) when it does not exist.
	Get(ctx context.Context, id string) (*entity.User, error)
}
