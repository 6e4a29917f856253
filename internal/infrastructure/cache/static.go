package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
)

// StaticLoader serves a fixed set of entities, keyed by entity type.
type StaticLoader map[string]stixfilter.EntityMap

// LoadEntities implements EntityLoader.
func (l StaticLoader) LoadEntities(ctx context.Context, entityType string) (stixfilter.EntityMap, error) {
	return l[entityType], nil
}

// LoadStaticFile reads a JSON document of the form
// {"<entityType>": {"<id>": {...entity...}}}.
func LoadStaticFile(path string) (StaticLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache snapshot: %w", err)
	}

	var loader StaticLoader
	if err := json.Unmarshal(data, &loader); err != nil {
		return nil, fmt.Errorf("failed to decode cache snapshot %s: %w", path, err)
	}
	if loader == nil {
		loader = StaticLoader{}
	}
	return loader, nil
}
