package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// ErrInvalidFilterGroup is returned for a document that is not a FilterGroup.
var ErrInvalidFilterGroup = errors.New("Unrecognized filter format; expecting FilterGroup") //nolint:stylecheck // wording shared with the platform

// ErrInvalidPayload is returned for a STIX object or activity event failing its schema.
var ErrInvalidPayload = errors.New("invalid payload")

// Decoder turns raw JSON into domain values after schema validation.
type Decoder struct {
	validator *SchemaValidator
}

// NewDecoder creates a decoder backed by the built-in schemas.
func NewDecoder() (*Decoder, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Decoder{validator: validator}, nil
}

// Validator returns the schema registry used by the decoder.
func (d *Decoder) Validator() *SchemaValidator {
	return d.validator
}

// DecodeFilterGroup validates and decodes a FilterGroup document.
func (d *Decoder) DecodeFilterGroup(data []byte) (valueobject.FilterGroup, error) {
	if err := d.validator.Validate(SchemaFilterGroup, data); err != nil {
		return valueobject.FilterGroup{}, fmt.Errorf("%w: %v", ErrInvalidFilterGroup, err)
	}

	var group valueobject.FilterGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return valueobject.FilterGroup{}, fmt.Errorf("%w: %v", ErrInvalidFilterGroup, err)
	}
	return group, nil
}

// DecodeFilterGroupValue decodes a FilterGroup already parsed into generic
// values, as produced by YAML or protobuf Struct decoding.
func (d *Decoder) DecodeFilterGroupValue(v interface{}) (valueobject.FilterGroup, error) {
	if s, ok := v.(string); ok {
		return d.DecodeFilterGroup([]byte(s))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return valueobject.FilterGroup{}, fmt.Errorf("%w: %v", ErrInvalidFilterGroup, err)
	}
	return d.DecodeFilterGroup(data)
}

// DecodeStixObject validates and decodes a STIX object.
func (d *Decoder) DecodeStixObject(data []byte) (*entity.StixObject, error) {
	if err := d.validator.Validate(SchemaStixObject, data); err != nil {
		return nil, fmt.Errorf("%w: stix object: %v", ErrInvalidPayload, err)
	}
	return entity.ParseStixObject(data)
}

// DecodeActivityEvent validates and decodes an activity event.
func (d *Decoder) DecodeActivityEvent(data []byte) (*entity.ActivityEvent, error) {
	if err := d.validator.Validate(SchemaActivityEvent, data); err != nil {
		return nil, fmt.Errorf("%w: activity event: %v", ErrInvalidPayload, err)
	}
	return entity.ParseActivityEvent(data)
}
