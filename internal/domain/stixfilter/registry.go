package stixfilter

import (
	"sort"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// Tester implements the match semantics of one filter key for one subject
// shape. Testers must be pure, must not panic on well-typed input and treat
// a missing attribute according to their own documented default.
type Tester[S any] func(subject S, filter valueobject.Filter) bool

// TesterRegistry maps filter keys to their tester. Registries are built once
// at startup and only read afterwards.
type TesterRegistry[S any] map[string]Tester[S]

// Lookup returns the tester registered for key.
func (r TesterRegistry[S]) Lookup(key string) (Tester[S], bool) {
	t, ok := r[key]
	return t, ok && t != nil
}

// Keys returns the registered keys in sorted order.
func (r TesterRegistry[S]) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of the registry with an additional tester. The receiver
// is left untouched.
func (r TesterRegistry[S]) With(key string, tester Tester[S]) TesterRegistry[S] {
	out := make(TesterRegistry[S], len(r)+1)
	for k, t := range r {
		out[k] = t
	}
	out[key] = tester
	return out
}
