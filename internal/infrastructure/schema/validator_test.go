package schema

import (
	"context"
	"strings"
	"testing"
)

func TestNewSchemaValidator_RegistersBuiltins(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}

	got := validator.ListSchemas()
	want := []string{SchemaActivityEvent, SchemaFilterGroup, SchemaStixObject}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListSchemas() = %v, want %v", got, want)
	}
}

func TestSchemaValidator_RegisterSchema(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}

	schemaJSON := []byte(`{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`)
	if err := validator.RegisterSchema("named", schemaJSON); err != nil {
		t.Fatalf("RegisterSchema() error = %v, want nil", err)
	}

	if err := validator.Validate("named", []byte(`{"name":"x"}`)); err != nil {
		t.Errorf("Validate(valid) error = %v, want nil", err)
	}
	if err := validator.Validate("named", []byte(`{"name":1}`)); err == nil {
		t.Error("Validate(invalid) expected error, got nil")
	}
}

func TestSchemaValidator_RegisterSchema_Invalid(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}

	tests := []struct {
		name   string
		id     string
		schema string
	}{
		{"Empty ID", "", `{}`},
		{"Empty schema", "x", ``},
		{"Malformed JSON", "x", `{"type":`},
		{"Invalid keyword value", "x", `{"type": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validator.RegisterSchema(tt.id, []byte(tt.schema)); err == nil {
				t.Error("RegisterSchema() expected error, got nil")
			}
		})
	}
}

func TestSchemaValidator_Validate_Errors(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}

	if err := validator.Validate(SchemaFilterGroup, nil); err == nil {
		t.Error("Validate(empty data) expected error, got nil")
	}
	if err := validator.Validate("missing", []byte(`{}`)); err == nil {
		t.Error("Validate(unknown schema) expected error, got nil")
	}
	if err := validator.Validate(SchemaFilterGroup, []byte(`{`)); err == nil {
		t.Error("Validate(malformed JSON) expected error, got nil")
	}
}

func TestSchemaValidator_CheckBuiltins(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}
	if err := validator.CheckBuiltins(context.Background()); err != nil {
		t.Fatalf("CheckBuiltins() error = %v, want nil", err)
	}

	delete(validator.schemas, SchemaStixObject)
	err = validator.CheckBuiltins(context.Background())
	if err == nil || !strings.Contains(err.Error(), SchemaStixObject) {
		t.Errorf("CheckBuiltins() error = %v, want missing %s", err, SchemaStixObject)
	}
}

func TestSchemaValidator_Validate_RawDocument(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator() error = %v", err)
	}
	schemaJSON := []byte(`{"type":"object","properties":{"score":{"type":"integer","maximum":100}}}`)
	if err := validator.RegisterSchema("scored", schemaJSON); err != nil {
		t.Fatalf("RegisterSchema() error = %v", err)
	}

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"Integer in range", `{"score": 50}`, false},
		{"Integer out of range", `{"score": 150}`, true},
		{"Fractional number", `{"score": 50.5}`, true},
		{"Malformed", `{"score":`, true},
		{"Empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate("scored", []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			}
		})
	}
}
