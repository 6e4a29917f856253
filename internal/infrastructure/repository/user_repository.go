package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	domainrepo "github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
)

// InMemoryUserRepository is a simple in-memory implementation of UserRepository.
// The system user is always resolvable.
type InMemoryUserRepository struct {
	sync.RWMutex
	users map[string]*entity.User
}

// NewInMemoryUserRepository creates a repository holding the given users.
func NewInMemoryUserRepository(users ...*entity.User) *InMemoryUserRepository {
	r := &InMemoryUserRepository{users: make(map[string]*entity.User)}
	system := entity.SystemUser()
	r.users[system.ID] = system
	for _, u := range users {
		if u != nil {
			r.users[u.ID] = u
		}
	}
	return r
}

// Save stores or updates a user.
func (r *InMemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	r.Lock()
	defer r.Unlock()
	r.users[user.ID] = user
	return nil
}

// Get retrieves a user by ID.
func (r *InMemoryUserRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	r.RLock()
	defer r.RUnlock()
	if user, exists := r.users[id]; exists {
		return user, nil
	}
	return nil, fmt.Errorf("%w: %s", domainrepo.ErrUserNotFound, id)
}
