package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// RedisLoader reads cached entities from Redis. The entities of a type live
// in the hash <prefix>:<entityType>, one JSON document per internal id.
type RedisLoader struct {
	client *redis.Client
	prefix string
	logger logging.Logger
}

// NewRedisLoader creates a loader connected to the configured Redis server.
func NewRedisLoader(cfg *config.CacheConfig, logger logging.Logger) *RedisLoader {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisLoader{client: client, prefix: cfg.KeyPrefix, logger: logger}
}

// Key returns the hash holding the entities of a type.
func (l *RedisLoader) Key(entityType string) string {
	if l.prefix == "" {
		return entityType
	}
	return l.prefix + ":" + entityType
}

// LoadEntities implements EntityLoader. Entries that are not valid JSON
// objects are skipped.
func (l *RedisLoader) LoadEntities(ctx context.Context, entityType string) (stixfilter.EntityMap, error) {
	raw, err := l.client.HGetAll(ctx, l.Key(entityType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.Key(entityType), err)
	}

	entities := make(stixfilter.EntityMap, len(raw))
	for id, doc := range raw {
		var cached stixfilter.CachedEntity
		if err := json.Unmarshal([]byte(doc), &cached); err != nil || cached == nil {
			l.logger.Warn(
				"skipping malformed cached entity",
				logging.Field{Key: "entityType", Value: entityType},
				logging.Field{Key: "id", Value: id},
			)
			continue
		}
		entities[id] = cached
	}
	return entities, nil
}

// Store writes one entity so that the next refresh picks it up.
func (l *RedisLoader) Store(ctx context.Context, entityType, id string, cached stixfilter.CachedEntity) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached entity %s: %w", id, err)
	}
	return l.client.HSet(ctx, l.Key(entityType), id, data).Err()
}

// Ping tests the Redis connection.
func (l *RedisLoader) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (l *RedisLoader) Close() error {
	return l.client.Close()
}
