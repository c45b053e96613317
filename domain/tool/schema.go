package tool

import (
	"encoding/json"
	"fmt"
)

// Schema wraps a JSON Schema describing a tool's accepted input.
type Schema struct {
	raw json.RawMessage
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema that accepts any input.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{}`)}
}

// Property describes a single named field of an object schema.
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Default     any                 `json:"default,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// String returns a string property.
func String(desc string) Property {
	return Property{Type: "string", Description: desc}
}

// StringEnum returns a string property restricted to the given values.
func StringEnum(desc string, values ...string) Property {
	return Property{Type: "string", Description: desc, Enum: values}
}

// Boolean returns a boolean property.
func Boolean(desc string) Property {
	return Property{Type: "boolean", Description: desc}
}

// Number returns a number property.
func Number(desc string) Property {
	return Property{Type: "number", Description: desc}
}

// Array returns an array property with the given item shape.
func Array(desc string, items Property) Property {
	return Property{Type: "array", Description: desc, Items: &items}
}

// Object returns a nested object property.
func Object(desc string, props map[string]Property) Property {
	return Property{Type: "object", Description: desc, Properties: props}
}

// WithDefault attaches a default value to the property.
func (p Property) WithDefault(v any) Property {
	p.Default = v
	return p
}

// ObjectSchema builds an object schema from named properties and the list
// of required field names.
func ObjectSchema(properties map[string]Property, required []string) Schema {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return Schema{raw: raw}
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	return s.raw
}

// IsEmpty returns true if the schema is empty or nil.
func (s Schema) IsEmpty() bool {
	return len(s.raw) == 0 || string(s.raw) == "{}" || string(s.raw) == "null"
}

// Validate validates data against the schema. Empty input is treated as an
// empty object so required-field violations still surface.
func (s Schema) Validate(data json.RawMessage) error {
	if s.IsEmpty() {
		return nil
	}
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("%w: input is not valid JSON", ErrInvalidInput)
	}
	compiled, err := s.compile()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = data
	return nil
}
