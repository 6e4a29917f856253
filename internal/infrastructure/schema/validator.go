package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator validates documents against registered JSON schemas.
type SchemaValidator struct { //nolint:revive // established API
	schemas map[string]*jsonschema.Schema
	mu      sync.RWMutex
}

// NewSchemaValidator creates a validator holding the built-in schemas.
func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{schemas: make(map[string]*jsonschema.Schema)}
	for id, doc := range builtinSchemas {
		if err := sv.RegisterSchema(id, []byte(doc)); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

// RegisterSchema compiles and registers a JSON schema by ID, replacing any
// schema already registered under it.
func (sv *SchemaValidator) RegisterSchema(schemaID string, schemaJSON []byte) error {
	if schemaID == "" {
		return fmt.Errorf("schema ID cannot be empty")
	}
	if len(schemaJSON) == 0 {
		return fmt.Errorf("schema JSON cannot be empty")
	}

	url := schemaBaseURL + schemaID + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to load schema %s: %w", schemaID, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", schemaID, err)
	}

	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.schemas[schemaID] = compiled
	return nil
}

// GetSchema retrieves a registered schema by ID.
func (sv *SchemaValidator) GetSchema(schemaID string) (*jsonschema.Schema, error) {
	if schemaID == "" {
		return nil, fmt.Errorf("schema ID cannot be empty")
	}

	sv.mu.RLock()
	defer sv.mu.RUnlock()
	compiled, exists := sv.schemas[schemaID]
	if !exists {
		return nil, fmt.Errorf("schema %q not found", schemaID)
	}
	return compiled, nil
}

// Validate validates raw JSON against a registered schema.
func (sv *SchemaValidator) Validate(schemaID string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("data cannot be empty")
	}

	var doc interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse JSON data: %w", err)
	}
	return sv.ValidateDocument(schemaID, doc)
}

// ValidateDocument validates an already decoded JSON document.
func (sv *SchemaValidator) ValidateDocument(schemaID string, doc interface{}) error {
	compiled, err := sv.GetSchema(schemaID)
	if err != nil {
		return err
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("validation failed: %s", flatten(err))
	}
	return nil
}

// ListSchemas returns the registered schema IDs, sorted.
func (sv *SchemaValidator) ListSchemas() []string {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	ids := make([]string, 0, len(sv.schemas))
	for id := range sv.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CheckBuiltins reports the built-in schemas missing from the validator.
// It backs the readiness check of the decoding path.
func (sv *SchemaValidator) CheckBuiltins(context.Context) error {
	registered := make(map[string]bool)
	for _, id := range sv.ListSchemas() {
		registered[id] = true
	}

	var missing []string
	for id := range builtinSchemas {
		if !registered[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("schemas not registered: %s", strings.Join(missing, ", "))
	}
	return nil
}

// flatten turns a validation error tree into one line, leaves only.
func flatten(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	leaves := make([]string, 0)
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			leaves = append(leaves, location+": "+e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return strings.Join(leaves, "; ")
}
