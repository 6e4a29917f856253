package stixfilter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by validation.
var (
	// ErrUnsupportedFilterShape is returned for a filter whose key does not hold exactly one element.
	ErrUnsupportedFilterShape = errors.New("unsupported filter shape")
	// ErrUnknownFilterKey is returned for a filter key without a registered tester.
	ErrUnknownFilterKey = errors.New("unknown filter key")
	// ErrUnsupportedFilterMode is returned for a mode other than and/or.
	ErrUnsupportedFilterMode = errors.New("unsupported filter mode")
)

// UnsupportedFilterShapeError reports a filter carrying zero or several keys.
type UnsupportedFilterShapeError struct {
	Key []string
}

func (e *UnsupportedFilterShapeError) Error() string {
	raw, _ := json.Marshal(e.Key)
	return fmt.Sprintf("stix filtering can only be executed on a unique filter key - got %s", raw)
}

// Is makes errors.Is(err, ErrUnsupportedFilterShape) succeed.
func (e *UnsupportedFilterShapeError) Is(target error) bool {
	return target == ErrUnsupportedFilterShape
}

// UnknownFilterKeyError reports a key without tester and lists the supported ones.
type UnknownFilterKeyError struct {
	Key       string
	Available []string
}

func (e *UnknownFilterKeyError) Error() string {
	available, _ := json.Marshal(e.Available)
	return fmt.Sprintf("stix filtering is not compatible with the provided filter key %q - available filter keys: %s", e.Key, available)
}

// Is makes errors.Is(err, ErrUnknownFilterKey) succeed.
func (e *UnknownFilterKeyError) Is(target error) bool {
	return target == ErrUnknownFilterKey
}

// IsValidationError returns true if err comes from filter validation, as
// opposed to an upstream I/O failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnsupportedFilterShape) ||
		errors.Is(err, ErrUnknownFilterKey) ||
		errors.Is(err, ErrUnsupportedFilterMode)
}
