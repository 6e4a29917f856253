package port

import (
	"context"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
)

// EntityCache defines the read-only lookup into the resolved filters cache.
type EntityCache interface {
	// GetEntitiesMap returns the entities of the given type visible to user,
	// keyed by internal id. The returned map must not be modified.
	GetEntitiesMap(ctx context.Context, user *entity.User, entityType string) (stixfilter.EntityMap, error)
}

// AccessChecker defines the access predicate applied before any STIX match.
type AccessChecker interface {
	stixfilter.AccessChecker
}

// StreamRepository defines the contract for stream definition persistence.
// Extends the repository.StreamRepository interface.
type StreamRepository interface {
	repository.StreamRepository
}

// UserRepository defines the contract for resolving stream owners.
type UserRepository interface {
	repository.UserRepository
}

// MatchPublisher defines the contract for publishing matched events to a message broker.
type MatchPublisher interface {
	// Publish sends a single matched event.
	// Returns an error if the event cannot be published.
	Publish(ctx context.Context, matched *entity.MatchedEvent) error

	// PublishBatch sends multiple matched events in a batch.
	// Returns an error if any event in the batch cannot be published.
	PublishBatch(ctx context.Context, matched []*entity.MatchedEvent) error
}

// MetricsCollector defines the contract for recording operational metrics.
type MetricsCollector interface {
	// RecordMatch records the outcome and duration of a match call.
	// subject: "stix" or "event"
	RecordMatch(subject string, matched bool, duration time.Duration)

	// RecordValidationError records a rejected filter group.
	// reason: "shape", "unknown_key" or "mode"
	RecordValidationError(subject, reason string)

	// RecordCacheRefresh records a resolved filters cache refresh.
	RecordCacheRefresh(success bool, entries int)

	// RecordEventConsumed records a live stream event read from the broker.
	RecordEventConsumed()

	// RecordEventPublished records a matched event written to the broker.
	RecordEventPublished()

	// RecordError records that an error occurred.
	// component: name of the component where the error occurred
	// errorType: classification of the error
	RecordError(component, errorType string)
}
