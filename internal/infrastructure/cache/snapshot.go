package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/pkg/circuitbreaker"
	"github.com/dheemanth-hn/stix-filter-gateway/pkg/retry"
)

// ErrNotReady is returned by GetEntitiesMap before the first successful refresh.
var ErrNotReady = errors.New("resolved filters cache is not loaded yet")

// EntityLoader reads every entity of a type from the backing store.
type EntityLoader interface {
	LoadEntities(ctx context.Context, entityType string) (stixfilter.EntityMap, error)
}

// snapshot is an immutable view of the cache content.
type snapshot struct {
	entities    map[string]stixfilter.EntityMap
	refreshedAt time.Time
}

// Options tunes a SnapshotCache.
type Options struct {
	EntityTypes     []string
	RefreshInterval time.Duration
	LoadTimeout     time.Duration
	MaxRetries      int
}

// SnapshotCache implements port.EntityCache on top of periodically reloaded
// snapshots. Readers load the current snapshot atomically and never block on
// a refresh. A failed refresh keeps the previous snapshot.
type SnapshotCache struct {
	loader   EntityLoader
	options  Options
	current  atomic.Pointer[snapshot]
	retry    retry.Config
	breaker  *circuitbreaker.CircuitBreaker
	metrics  port.MetricsCollector
	logger   logging.Logger
	failures atomic.Int64
}

// NewSnapshotCache creates a cache reading through loader. Nothing is loaded
// until Refresh or Run is called.
func NewSnapshotCache(loader EntityLoader, options Options, metrics port.MetricsCollector, logger logging.Logger) (*SnapshotCache, error) {
	if loader == nil {
		return nil, fmt.Errorf("entity loader is required")
	}
	if len(options.EntityTypes) == 0 {
		return nil, fmt.Errorf("at least one entity type is required")
	}
	if options.RefreshInterval <= 0 {
		options.RefreshInterval = 30 * time.Second
	}
	if options.LoadTimeout <= 0 {
		options.LoadTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &SnapshotCache{
		loader:  loader,
		options: options,
		retry: retry.DefaultConfig().
			WithMaxRetries(options.MaxRetries).
			WithMaxBackoff(options.RefreshInterval / 2),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 3,
			ResetTimeout:     options.RefreshInterval,
		}),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// GetEntitiesMap returns the entities of the type from the current snapshot.
// An unknown type yields an empty map. The snapshot is shared: callers must
// not modify the returned map.
func (c *SnapshotCache) GetEntitiesMap(ctx context.Context, user *entity.User, entityType string) (stixfilter.EntityMap, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if entities, ok := snap.entities[entityType]; ok {
		return entities, nil
	}
	return stixfilter.EntityMap{}, nil
}

// Refresh reloads every configured entity type and swaps the snapshot in one
// step. Either all types are replaced or none is.
func (c *SnapshotCache) Refresh(ctx context.Context) error {
	loaded := make(map[string]stixfilter.EntityMap, len(c.options.EntityTypes))
	total := 0

	err := c.breaker.Execute(func() error {
		for _, entityType := range c.options.EntityTypes {
			entities, err := c.load(ctx, entityType)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", entityType, err)
			}
			loaded[entityType] = entities
			total += len(entities)
		}
		return nil
	})
	if err != nil {
		c.failures.Add(1)
		c.recordRefresh(false, 0)
		c.logger.Warn("resolved filters cache refresh failed, keeping previous snapshot", logging.Err(err))
		return err
	}

	c.current.Store(&snapshot{entities: loaded, refreshedAt: time.Now().UTC()})
	c.recordRefresh(true, total)
	c.logger.Debug("resolved filters cache refreshed", logging.Field{Key: "entries", Value: total})
	return nil
}

// load reads one entity type with retries, each attempt bounded by LoadTimeout.
func (c *SnapshotCache) load(ctx context.Context, entityType string) (stixfilter.EntityMap, error) {
	var entities stixfilter.EntityMap
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.options.LoadTimeout)
		defer cancel()

		var err error
		entities, err = c.loader.LoadEntities(attemptCtx, entityType)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = stixfilter.EntityMap{}
	}
	return entities, nil
}

// Run refreshes the cache every RefreshInterval until ctx is done.
func (c *SnapshotCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.options.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// LastRefresh returns when the current snapshot was loaded, zero if never.
func (c *SnapshotCache) LastRefresh() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.refreshedAt
	}
	return time.Time{}
}

// Failures returns the number of failed refreshes since creation.
func (c *SnapshotCache) Failures() int64 {
	return c.failures.Load()
}

// RefreshInterval returns the configured refresh period.
func (c *SnapshotCache) RefreshInterval() time.Duration {
	return c.options.RefreshInterval
}

func (c *SnapshotCache) recordRefresh(success bool, entries int) {
	if c.metrics != nil {
		c.metrics.RecordCacheRefresh(success, entries)
	}
}
