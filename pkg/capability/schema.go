package capability

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Param declares a single named input parameter for ObjectSchema.
type Param struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Schema validates raw capability input against a JSON Schema.
type Schema struct {
	doc      map[string]interface{}
	compiled *gojsonschema.Schema
}

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// ObjectSchema builds a Schema for an object input from parameter specs.
func ObjectSchema(params ...Param) (*Schema, error) {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range params {
		if param.Name == "" {
			return nil, fmt.Errorf("parameter name cannot be empty")
		}
		if !validParamTypes[param.Type] {
			return nil, fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}

		paramSchema := map[string]interface{}{
			"type": param.Type,
		}
		if param.Description != "" {
			paramSchema["description"] = param.Description
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	doc := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	return SchemaFromDocument(doc)
}

// SchemaFromDocument builds a Schema from a raw JSON Schema document.
func SchemaFromDocument(doc map[string]interface{}) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Schema{doc: doc, compiled: compiled}, nil
}

// MustObjectSchema is ObjectSchema that panics on an invalid spec.
// Intended for package-level capability declarations.
func MustObjectSchema(params ...Param) *Schema {
	s, err := ObjectSchema(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Document returns the underlying JSON Schema document. Callers must not
// mutate it.
func (s *Schema) Document() map[string]interface{} {
	return s.doc
}

// Validate checks raw input against the schema. On failure it returns a
// *ValidationError carrying the field-level issue list; the name is filled
// in by the engine.
func (s *Schema) Validate(raw interface{}) error {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return &ValidationError{Issues: []Issue{{Description: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		issues = append(issues, Issue{
			Field:       resErr.Field(),
			Description: resErr.Description(),
		})
	}
	return &ValidationError{Issues: issues}
}
