package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/xcono/webexdocs/internal/models"
)

// DocumentSchemaName is the name the persisted document schema is registered under
const DocumentSchemaName = "document"

// documentSchema describes the persisted YAML document
//
//go:embed document.schema.json
var documentSchema string

// SchemaValidator validates JSON data against JSON schemas
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// AddSchema adds a JSON schema to the validator
func (v *SchemaValidator) AddSchema(name string, schemaData interface{}) error {
	var loader gojsonschema.JSONLoader

	switch data := schemaData.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(data)
	case []byte:
		loader = gojsonschema.NewBytesLoader(data)
	case map[string]interface{}:
		loader = gojsonschema.NewGoLoader(data)
	default:
		return fmt.Errorf("unsupported schema data type: %T", schemaData)
	}

	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	v.schemas[name] = schema
	return nil
}

// Validate validates JSON data against a named schema
func (v *SchemaValidator) Validate(schemaName string, data interface{}) (*ValidationResult, error) {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return nil, fmt.Errorf("schema %s not found", schemaName)
	}

	var loader gojsonschema.JSONLoader
	switch d := data.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(d)
	case []byte:
		loader = gojsonschema.NewBytesLoader(d)
	default:
		// round trip through JSON so that decoded YAML and structs look alike
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data to JSON: %w", err)
		}
		loader = gojsonschema.NewBytesLoader(jsonData)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: v.convertErrors(result.Errors()),
	}, nil
}

// ValidateDocument validates a decoded document against the persisted document schema
func (v *SchemaValidator) ValidateDocument(data interface{}) (*ValidationResult, error) {
	if _, ok := v.schemas[DocumentSchemaName]; !ok {
		if err := v.AddSchema(DocumentSchemaName, documentSchema); err != nil {
			return nil, err
		}
	}
	return v.Validate(DocumentSchemaName, data)
}

// ValidationResult represents the result of a validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field       string `json:"field"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       string `json:"value,omitempty"`
}

// convertErrors converts gojsonschema errors to our error format
func (v *SchemaValidator) convertErrors(errors []gojsonschema.ResultError) []ValidationError {
	var validationErrors []ValidationError

	for _, err := range errors {
		validationError := ValidationError{
			Field:       err.Field(),
			Type:        err.Type(),
			Description: err.Description(),
		}

		if err.Value() != nil {
			validationError.Value = fmt.Sprintf("%v", err.Value())
		}

		validationErrors = append(validationErrors, validationError)
	}

	return validationErrors
}

// GenerateSchemaFromParameters generates a JSON schema for an object with the given fields
func (v *SchemaValidator) GenerateSchemaFromParameters(title string, params []*models.Parameter) map[string]interface{} {
	schema := v.objectSchema(params)
	schema["$schema"] = "http://json-schema.org/draft-07/schema#"
	schema["title"] = title
	return schema
}

func (v *SchemaValidator) objectSchema(params []*models.Parameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := []interface{}{}
	for _, p := range params {
		if _, seen := properties[p.Name]; seen {
			continue
		}
		properties[p.Name] = v.generateParameterSchema(p)
		if p.IsRequired() {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// generateParameterSchema generates a JSON schema for a parameter
func (v *SchemaValidator) generateParameterSchema(param *models.Parameter) map[string]interface{} {
	if param.IsArray() {
		items := v.generateParameterSchema(&models.Parameter{
			Type:   param.ElementType(),
			Attrs:  param.Attrs,
			Object: param.Object,
		})
		delete(items, "description")
		return map[string]interface{}{
			"type":        "array",
			"description": param.Doc,
			"items":       items,
		}
	}

	var schema map[string]interface{}
	switch {
	case len(param.Object) > 0:
		schema = v.objectSchema(param.Object)
	case param.IsEnum():
		// enum items must be unique
		values := make([]interface{}, 0, len(param.Attrs))
		seen := make(map[string]bool, len(param.Attrs))
		for _, a := range param.Attrs {
			if !seen[a.Name] {
				seen[a.Name] = true
				values = append(values, a.Name)
			}
		}
		schema = map[string]interface{}{"type": "string", "enum": values}
	case len(param.Attrs) > 0:
		schema = v.objectSchema(param.Attrs)
	default:
		schema = map[string]interface{}{"type": v.mapParameterType(param.Type)}
	}
	schema["description"] = param.Doc
	return schema
}

// mapParameterType maps our parameter types to JSON schema types
func (v *SchemaValidator) mapParameterType(paramType string) string {
	switch paramType {
	case "string", "enum", "":
		return "string"
	case "number":
		return "number"
	case "boolean":
		return "boolean"
	default:
		// object and documented types
		return "object"
	}
}

// Example builds a value that satisfies the schema generated for params
func (v *SchemaValidator) Example(params []*models.Parameter) map[string]interface{} {
	data := make(map[string]interface{}, len(params))
	for _, p := range params {
		if _, seen := data[p.Name]; !seen {
			data[p.Name] = v.exampleValue(p)
		}
	}
	return data
}

func (v *SchemaValidator) exampleValue(p *models.Parameter) interface{} {
	if p.IsArray() {
		return []interface{}{v.exampleValue(&models.Parameter{Type: p.ElementType(), Attrs: p.Attrs, Object: p.Object})}
	}
	switch {
	case len(p.Object) > 0:
		return v.Example(p.Object)
	case p.IsEnum():
		return p.Attrs[0].Name
	case len(p.Attrs) > 0:
		return v.Example(p.Attrs)
	}
	switch v.mapParameterType(p.Type) {
	case "number":
		return 123
	case "boolean":
		return true
	case "object":
		return map[string]interface{}{}
	default:
		return "example"
	}
}

// ValidateParameters checks that the schema generated for a parameter group accepts its own example
func (v *SchemaValidator) ValidateParameters(name string, params []*models.Parameter) (*ValidationResult, error) {
	if err := v.AddSchema(name, v.GenerateSchemaFromParameters(name, params)); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}
	return v.Validate(name, v.Example(params))
}
