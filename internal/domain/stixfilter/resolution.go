package stixfilter

import (
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// CachedEntity is the JSON-like snapshot of an entity held by the resolved
// filters cache.
type CachedEntity map[string]any

// EntityMap maps internal ids to cached entities. It is read-only for this package.
type EntityMap map[string]CachedEntity

// Filter keys whose values are internal ids that need resolution.
const (
	KeyObjectAssignee    = "objectAssignee"
	KeyCreatedBy         = "createdBy"
	KeyObjectLabel       = "objectLabel"
	KeyLabelledBy        = "labelledBy"
	KeyIndicatorTypes    = "indicator_types"
	KeyObjectMarking     = "objectMarking"
	KeyObjects           = "objects"
	KeyObjectParticipant = "objectParticipant"
	KeyFromID            = "fromId"
	KeyToID              = "toId"
)

// ResolutionPaths is the allow-list of keys requiring resolution, each with
// the field of the cached entity holding the literal. A '.' separates the
// segments of a compound path.
var ResolutionPaths = map[string]string{
	KeyObjectAssignee:    "id",
	KeyCreatedBy:         "id",
	KeyObjectLabel:       "value",
	KeyLabelledBy:        "value",
	KeyIndicatorTypes:    "type",
	KeyObjectMarking:     "id",
	KeyObjects:           "id",
	KeyObjectParticipant: "id",
	KeyFromID:            "id",
	KeyToID:              "id",
}

// resolutionPrograms holds one compiled jq program per allow-listed key.
var resolutionPrograms = mustCompileResolutionPaths(ResolutionPaths)

func mustCompileResolutionPaths(paths map[string]string) map[string]*gojq.Code {
	programs := make(map[string]*gojq.Code, len(paths))
	for key, path := range paths {
		code, err := compilePath(path)
		if err != nil {
			panic(fmt.Sprintf("invalid resolution path %q for key %s: %v", path, key, err))
		}
		programs[key] = code
	}
	return programs
}

// compilePath turns "a.b" into the jq program getpath(["a","b"]).
func compilePath(path string) (*gojq.Code, error) {
	segments := strings.Split(path, ".")
	quoted := make([]string, len(segments))
	for i, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("empty path segment")
		}
		quoted[i] = fmt.Sprintf("%q", s)
	}

	query, err := gojq.Parse("getpath([" + strings.Join(quoted, ",") + "])")
	if err != nil {
		return nil, fmt.Errorf("failed to parse path: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile path: %w", err)
	}
	return code, nil
}

// lookupLiteral runs the compiled path against the entity and returns the
// result when it is a non-empty string.
func lookupLiteral(code *gojq.Code, entity CachedEntity) (string, bool) {
	iter := code.Run(map[string]any(entity))
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if _, isErr := v.(error); isErr {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// BuildResolutionMap collects, for every allow-listed filter value found in
// the cache, the literal the subject is expected to carry. Values without a
// cache hit or without a string at the configured path are left out. Neither
// the group nor the cache is modified.
func BuildResolutionMap(group valueobject.FilterGroup, cache EntityMap) valueobject.FilterResolutionMap {
	resolution := make(valueobject.FilterResolutionMap)
	if len(cache) == 0 {
		return resolution
	}

	_ = group.Walk(func(f valueobject.Filter) error {
		key, ok := f.SingleKey()
		if !ok {
			return nil
		}
		code, ok := resolutionPrograms[key]
		if !ok {
			return nil
		}
		for _, v := range f.Values {
			entity, ok := cache[v]
			if !ok || entity == nil {
				continue
			}
			if literal, ok := lookupLiteral(code, entity); ok {
				resolution[v] = literal
			}
		}
		return nil
	})
	return resolution
}

// RequiresResolution returns true if any filter of the group uses an
// allow-listed key. Callers use it to skip the cache fetch.
func RequiresResolution(group valueobject.FilterGroup) bool {
	found := false
	_ = group.Walk(func(f valueobject.Filter) error {
		if key, ok := f.SingleKey(); ok {
			if _, ok := ResolutionPaths[key]; ok && len(f.Values) > 0 {
				found = true
				return errStopWalk
			}
		}
		return nil
	})
	return found
}
