package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	domainrepo "github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// InMemoryStreamRepository is a simple in-memory implementation of StreamRepository.
// It is thread-safe for concurrent access.
type InMemoryStreamRepository struct {
	sync.RWMutex
	streams map[string]*entity.Stream
}

// NewInMemoryStreamRepository creates a new InMemoryStreamRepository.
func NewInMemoryStreamRepository() *InMemoryStreamRepository {
	return &InMemoryStreamRepository{
		streams: make(map[string]*entity.Stream),
	}
}

// Save stores or updates a stream in the repository.
func (r *InMemoryStreamRepository) Save(ctx context.Context, stream *entity.Stream) error {
	if stream == nil {
		return fmt.Errorf("stream cannot be nil")
	}
	r.Lock()
	defer r.Unlock()
	r.streams[stream.ID()] = stream
	return nil
}

// Get retrieves a stream by its ID.
func (r *InMemoryStreamRepository) Get(ctx context.Context, id string) (*entity.Stream, error) {
	r.RLock()
	defer r.RUnlock()
	if stream, exists := r.streams[id]; exists {
		return stream, nil
	}
	return nil, fmt.Errorf("%w: %s", domainrepo.ErrStreamNotFound, id)
}

// List retrieves the streams of a subject kind ordered by ID, every stream
// when subject is empty.
func (r *InMemoryStreamRepository) List(ctx context.Context, subject valueobject.SubjectKind) ([]*entity.Stream, error) {
	r.RLock()
	defer r.RUnlock()
	result := make([]*entity.Stream, 0, len(r.streams))
	for _, stream := range r.streams {
		if subject == "" || stream.Subject() == subject {
			result = append(result, stream)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result, nil
}

// Delete removes a stream from the repository.
func (r *InMemoryStreamRepository) Delete(ctx context.Context, id string) error {
	r.Lock()
	defer r.Unlock()
	if _, exists := r.streams[id]; !exists {
		return fmt.Errorf("%w: %s", domainrepo.ErrStreamNotFound, id)
	}
	delete(r.streams, id)
	return nil
}
