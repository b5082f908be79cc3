package validate

import (
	"testing"

	"github.com/xcono/webexdocs/internal/models"
)

func TestSchemaValidator_AddSchema(t *testing.T) {
	validator := NewSchemaValidator()

	// Test adding schema from string
	schemaStr := `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "number"}
		},
		"required": ["name"]
	}`

	err := validator.AddSchema("test_schema", schemaStr)
	if err != nil {
		t.Fatalf("AddSchema failed: %v", err)
	}

	// Test adding schema from map
	schemaMap := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type": "number",
			},
		},
		"required": []string{"id"},
	}

	err = validator.AddSchema("test_schema2", schemaMap)
	if err != nil {
		t.Fatalf("AddSchema failed: %v", err)
	}

	if err := validator.AddSchema("bad", 42); err == nil {
		t.Error("Expected error for unsupported schema type")
	}
}

func TestSchemaValidator_Validate(t *testing.T) {
	validator := NewSchemaValidator()

	schemaStr := `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "number", "minimum": 0}
		},
		"required": ["name"]
	}`

	err := validator.AddSchema("test_schema", schemaStr)
	if err != nil {
		t.Fatalf("AddSchema failed: %v", err)
	}

	validData := map[string]interface{}{
		"name": "John",
		"age":  30,
	}

	result, err := validator.Validate("test_schema", validData)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if !result.Valid {
		t.Error("Expected validation to pass")
	}

	// missing required field
	invalidData := map[string]interface{}{
		"age": 30,
	}

	result, err = validator.Validate("test_schema", invalidData)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if result.Valid {
		t.Error("Expected validation to fail")
	}

	if len(result.Errors) == 0 {
		t.Error("Expected validation errors")
	}
}

func TestSchemaValidator_Validate_NonExistentSchema(t *testing.T) {
	validator := NewSchemaValidator()

	_, err := validator.Validate("non_existent", map[string]interface{}{})
	if err == nil {
		t.Error("Expected error for non-existent schema")
	}
}

func TestSchemaValidator_ValidateDocument(t *testing.T) {
	validator := NewSchemaValidator()

	valid := map[string]interface{}{
		"info": "scraped",
		"docs": map[string]interface{}{
			"Locations": []interface{}{
				map[string]interface{}{
					"header": "List Locations",
					"doc":    "List locations.",
					"parameters_and_response": map[string]interface{}{
						"Query Parameters": []interface{}{
							map[string]interface{}{"name": "max", "type": "number", "attrs": nil},
						},
						"Response Properties": nil,
					},
					"documentation": map[string]interface{}{
						"http_method": "GET",
						"endpoint":    "https://webexapis.com/v1/locations",
						"doc_link":    "https://developer.webex.com/docs/api/v1/locations/list-locations",
					},
				},
			},
			"Video Mesh": []interface{}{},
		},
	}

	result, err := validator.ValidateDocument(valid)
	if err != nil {
		t.Fatalf("ValidateDocument failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected document to be valid, got %+v", result.Errors)
	}

	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"missing docs", map[string]interface{}{"info": "x"}},
		{"section is not a list", map[string]interface{}{"docs": map[string]interface{}{"Locations": "nope"}}},
		{"method without documentation", map[string]interface{}{"docs": map[string]interface{}{
			"Locations": []interface{}{map[string]interface{}{"header": "List"}},
		}}},
		{"parameter without name", map[string]interface{}{"docs": map[string]interface{}{
			"Locations": []interface{}{map[string]interface{}{
				"header":                  "List",
				"documentation":           map[string]interface{}{"http_method": "GET", "endpoint": "/x"},
				"parameters_and_response": map[string]interface{}{"Query Parameters": []interface{}{map[string]interface{}{"type": "string"}}},
			}},
		}}},
		{"unknown field", map[string]interface{}{"docs": map[string]interface{}{}, "extra": true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := validator.ValidateDocument(test.data)
			if err != nil {
				t.Fatalf("ValidateDocument failed: %v", err)
			}
			if result.Valid {
				t.Error("Expected document to be invalid")
			}
		})
	}
}

func TestSchemaValidator_GenerateSchemaFromParameters(t *testing.T) {
	validator := NewSchemaValidator()

	params := []*models.Parameter{
		{Name: "name", Type: "string", TypeSpec: "required", Doc: "Location name."},
		{Name: "max", Type: "number"},
		{Name: "tags", Type: "array[string]"},
		{Name: "status", Type: "enum", Attrs: []*models.Parameter{{Name: "active"}, {Name: "inactive"}}},
		{Name: "address", Type: "object", Object: []*models.Parameter{
			{Name: "city", Type: "string", TypeSpec: "Required"},
		}},
	}

	schema := validator.GenerateSchemaFromParameters("Location", params)

	if schema["title"] != "Location" {
		t.Errorf("Expected title 'Location', got %v", schema["title"])
	}
	if schema["type"] != "object" {
		t.Errorf("Expected type 'object', got %v", schema["type"])
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected properties to be a map")
	}
	if len(properties) != 5 {
		t.Errorf("Expected 5 properties, got %d", len(properties))
	}

	required, ok := schema["required"].([]interface{})
	if !ok || len(required) != 1 || required[0] != "name" {
		t.Errorf("Expected required [name], got %v", schema["required"])
	}

	tags := properties["tags"].(map[string]interface{})
	if tags["type"] != "array" {
		t.Errorf("Expected array type for tags, got %v", tags["type"])
	}

	status := properties["status"].(map[string]interface{})
	if enum, ok := status["enum"].([]interface{}); !ok || len(enum) != 2 {
		t.Errorf("Expected two enum values, got %v", status["enum"])
	}

	address := properties["address"].(map[string]interface{})
	if address["type"] != "object" {
		t.Errorf("Expected object type for address, got %v", address["type"])
	}
	if req, ok := address["required"].([]interface{}); !ok || req[0] != "city" {
		t.Errorf("Expected nested required [city], got %v", address["required"])
	}
}

func TestSchemaValidator_ValidateParameters(t *testing.T) {
	validator := NewSchemaValidator()

	params := []*models.Parameter{
		{Name: "id", Type: "string", TypeSpec: "required"},
		{Name: "enabled", Type: "boolean"},
		{Name: "items", Type: "array[Location]", Object: []*models.Parameter{
			{Name: "max", Type: "number"},
			{Name: "kind", Type: "enum", Attrs: []*models.Parameter{{Name: "a"}, {Name: "b"}}},
		}},
		{Name: "extra", Type: "Unknown"},
	}

	result, err := validator.ValidateParameters("List Locations", params)
	if err != nil {
		t.Fatalf("ValidateParameters failed: %v", err)
	}

	if !result.Valid {
		t.Errorf("Expected generated example to be valid, got errors: %+v", result.Errors)
	}
}

func TestSchemaValidator_ValidateParametersDuplicates(t *testing.T) {
	validator := NewSchemaValidator()

	// pages repeat labels and enum values
	params := []*models.Parameter{
		{Name: "type", Type: "enum", TypeSpec: "required", Attrs: []*models.Parameter{{Name: "a"}, {Name: "a"}, {Name: "b"}}},
		{Name: "type", Type: "number", TypeSpec: "required"},
	}

	result, err := validator.ValidateParameters("Duplicates", params)
	if err != nil {
		t.Fatalf("ValidateParameters failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected generated example to be valid, got errors: %+v", result.Errors)
	}
}

func TestSchemaValidator_mapParameterType(t *testing.T) {
	validator := NewSchemaValidator()

	tests := []struct {
		input    string
		expected string
	}{
		{"string", "string"},
		{"enum", "string"},
		{"", "string"},
		{"number", "number"},
		{"boolean", "boolean"},
		{"object", "object"},
		{"Location", "object"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result := validator.mapParameterType(test.input)
			if result != test.expected {
				t.Errorf("mapParameterType(%s) = %s, expected %s", test.input, result, test.expected)
			}
		})
	}
}
