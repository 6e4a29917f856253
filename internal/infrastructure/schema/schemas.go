package schema

// Built-in schema identifiers.
const (
	SchemaFilterGroup   = "filter-group"
	SchemaStixObject    = "stix-object"
	SchemaActivityEvent = "activity-event"
)

const schemaBaseURL = "https://schemas.stix-filter-gateway.local/"

// filterGroupSchema requires filters and filterGroups at every level of the
// tree. Mode values are checked by the filtering engine, not here.
const filterGroupSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$ref": "#/$defs/filterGroup",
  "$defs": {
    "filterGroup": {
      "type": "object",
      "required": ["filters", "filterGroups"],
      "properties": {
        "mode": {"type": "string"},
        "filters": {"type": "array", "items": {"$ref": "#/$defs/filter"}},
        "filterGroups": {"type": "array", "items": {"$ref": "#/$defs/filterGroup"}}
      }
    },
    "filter": {
      "type": "object",
      "required": ["key"],
      "properties": {
        "key": {
          "oneOf": [
            {"type": "string"},
            {"type": "array", "items": {"type": "string"}}
          ]
        },
        "values": {"type": ["array", "null"], "items": {"type": ["string", "null"]}},
        "operator": {"type": "string"},
        "mode": {"type": "string"}
      }
    }
  }
}`

const stixObjectSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "type"],
  "properties": {
    "id": {"type": "string", "pattern": "^[a-z0-9-]+--.+$"},
    "type": {"type": "string", "minLength": 1},
    "labels": {"type": "array", "items": {"type": "string"}},
    "object_marking_refs": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number"},
    "revoked": {"type": "boolean"},
    "extensions": {"type": "object"}
  }
}`

const activityEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "event_scope"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "event_scope": {"type": "string", "minLength": 1},
    "origin": {"type": "object"},
    "data": {"type": "object"}
  }
}`

var builtinSchemas = map[string]string{
	SchemaFilterGroup:   filterGroupSchema,
	SchemaStixObject:    stixObjectSchema,
	SchemaActivityEvent: activityEventSchema,
}
