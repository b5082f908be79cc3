package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/naming"
)

// Section labels of a method page mapped to OpenAPI locations
const (
	LabelURIParameters      = "URI Parameters"
	LabelQueryParameters    = "Query Parameters"
	LabelBodyParameters     = "Body Parameters"
	LabelResponseProperties = "Response Properties"
)

var pathParam = regexp.MustCompile(`\{([^}]*)\}`)

// OpenAPISpec represents an OpenAPI 3.0 specification
type OpenAPISpec struct {
	OpenAPI string               `yaml:"openapi" json:"openapi"`
	Info    OpenAPIInfo          `yaml:"info" json:"info"`
	Servers []Server             `yaml:"servers,omitempty" json:"servers,omitempty"`
	Paths   map[string]*PathItem `yaml:"paths" json:"paths"`
}

// OpenAPIInfo represents the info section of OpenAPI spec
type OpenAPIInfo struct {
	Title       string `yaml:"title" json:"title"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Server represents a server entry of OpenAPI spec
type Server struct {
	URL string `yaml:"url" json:"url"`
}

// PathItem represents a path item in OpenAPI spec
type PathItem struct {
	Get    *Operation `yaml:"get,omitempty" json:"get,omitempty"`
	Post   *Operation `yaml:"post,omitempty" json:"post,omitempty"`
	Put    *Operation `yaml:"put,omitempty" json:"put,omitempty"`
	Patch  *Operation `yaml:"patch,omitempty" json:"patch,omitempty"`
	Delete *Operation `yaml:"delete,omitempty" json:"delete,omitempty"`
}

// Operation represents an operation in OpenAPI spec
type Operation struct {
	OperationID string              `yaml:"operationId" json:"operationId"`
	Summary     string              `yaml:"summary" json:"summary"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  []ParameterObject   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty" json:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses" json:"responses"`
	Tags        []string            `yaml:"tags,omitempty" json:"tags,omitempty"`
	XDocLink    string              `yaml:"x-doc-link,omitempty" json:"x-doc-link,omitempty"`
}

// ParameterObject represents a path or query parameter in OpenAPI spec
type ParameterObject struct {
	Name        string `yaml:"name" json:"name"`
	In          string `yaml:"in" json:"in"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Schema      Schema `yaml:"schema" json:"schema"`
}

// RequestBody represents a request body in OpenAPI spec
type RequestBody struct {
	Required bool                 `yaml:"required" json:"required"`
	Content  map[string]MediaType `yaml:"content" json:"content"`
}

// Response represents a response in OpenAPI spec
type Response struct {
	Description string               `yaml:"description" json:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty" json:"content,omitempty"`
}

// MediaType represents a media type in OpenAPI spec
type MediaType struct {
	Schema Schema `yaml:"schema" json:"schema"`
}

// Schema represents a schema in OpenAPI spec
type Schema struct {
	Type        string            `yaml:"type,omitempty" json:"type,omitempty"`
	Properties  map[string]Schema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Required    []string          `yaml:"required,omitempty" json:"required,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Enum        []interface{}     `yaml:"enum,omitempty" json:"enum,omitempty"`
	Items       *Schema           `yaml:"items,omitempty" json:"items,omitempty"`
}

// OpenAPIGenerator generates OpenAPI 3.0 specifications from scraped method details
type OpenAPIGenerator struct {
	supportedTypes map[string]string
}

// NewOpenAPIGenerator creates a new OpenAPI generator
func NewOpenAPIGenerator() *OpenAPIGenerator {
	return &OpenAPIGenerator{
		supportedTypes: map[string]string{
			"string":  "string",
			"number":  "number",
			"boolean": "boolean",
			"object":  "object",
			"enum":    "string",
			"":        "string",
		},
	}
}

// GenerateAll generates one specification per section that has methods
func (g *OpenAPIGenerator) GenerateAll(schema *models.Schema) (map[string]*OpenAPISpec, error) {
	specs := make(map[string]*OpenAPISpec)
	for _, section := range schema.Sections() {
		methods := schema.Docs[section]
		if len(methods) == 0 {
			continue
		}
		spec, err := g.GenerateSpec(section, methods)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		specs[section] = spec
	}
	return specs, nil
}

// GenerateSpec generates an OpenAPI 3.0 specification for the methods of one section
func (g *OpenAPIGenerator) GenerateSpec(section string, methods []*models.MethodDetails) (*OpenAPISpec, error) {
	if len(methods) == 0 {
		return nil, fmt.Errorf("invalid section %q: no methods", section)
	}

	spec := &OpenAPISpec{
		OpenAPI: "3.0.0",
		Info: OpenAPIInfo{
			Title:       fmt.Sprintf("Webex API - %s", section),
			Version:     "1.0.0",
			Description: fmt.Sprintf("Generated from %d documented methods", len(methods)),
		},
		Paths: make(map[string]*PathItem),
	}

	servers := make(map[string]bool)
	templates := make(map[string]string)
	operationIDs := make(map[string]bool)

	for _, md := range methods {
		server, path := splitEndpoint(md.Documentation.Endpoint)
		if path == "" {
			return nil, fmt.Errorf("method %q has no endpoint", md.Header)
		}
		if server != "" && !servers[server] {
			servers[server] = true
			spec.Servers = append(spec.Servers, Server{URL: server})
		}

		// paths that only differ in parameter names share the first template
		key := pathParam.ReplaceAllString(path, "{}")
		template, ok := templates[key]
		if !ok {
			template = path
			templates[key] = path
		}

		op := g.generateOperation(section, md, path, template)
		op.OperationID = unique(operationIDs, operationID(md))

		item, ok := spec.Paths[template]
		if !ok {
			item = &PathItem{}
			spec.Paths[template] = item
		}
		switch strings.ToLower(md.Documentation.HTTPMethod) {
		case "get":
			item.Get = op
		case "post":
			item.Post = op
		case "put":
			item.Put = op
		case "patch":
			item.Patch = op
		case "delete":
			item.Delete = op
		default:
			return nil, fmt.Errorf("method %q: unsupported HTTP method %q", md.Header, md.Documentation.HTTPMethod)
		}
	}
	sort.Slice(spec.Servers, func(i, j int) bool { return spec.Servers[i].URL < spec.Servers[j].URL })

	return spec, nil
}

// splitEndpoint splits https://host/v1/path?query into the server and the path
func splitEndpoint(endpoint string) (server, path string) {
	endpoint = strings.TrimSpace(endpoint)
	if i := strings.Index(endpoint, "?"); i >= 0 {
		endpoint = endpoint[:i]
	}
	if i := strings.Index(endpoint, "://"); i >= 0 {
		rest := endpoint[i+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return endpoint, "/"
		}
		return endpoint[:i+3+slash], rest[slash:]
	}
	if !strings.HasPrefix(endpoint, "/") && endpoint != "" {
		endpoint = "/" + endpoint
	}
	return "", endpoint
}

func operationID(md *models.MethodDetails) string {
	if id := naming.Identifier(md.Header); id != "" {
		return strings.ToLower(id[:1]) + id[1:]
	}
	return strings.ToLower(md.Documentation.HTTPMethod) + "Operation"
}

// cleanText removes unwanted whitespace and newlines from text content
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// generateOperation generates an operation from method details
func (g *OpenAPIGenerator) generateOperation(section string, md *models.MethodDetails, path, template string) *Operation {
	operation := &Operation{
		Summary:     md.Header,
		Description: cleanText(md.Doc),
		Parameters:  g.generateParameters(md, path, template),
		Responses:   g.generateResponses(md),
		Tags:        []string{section},
		XDocLink:    md.Documentation.DocLink,
	}

	if body := md.ParametersAndResponse[LabelBodyParameters]; len(body) > 0 {
		schema := g.objectSchema(body)
		operation.RequestBody = &RequestBody{
			Required: len(schema.Required) > 0,
			Content: map[string]MediaType{
				"application/json": {Schema: schema},
			},
		}
	}
	return operation
}

// generateParameters lists the template's path parameters followed by the query parameters
func (g *OpenAPIGenerator) generateParameters(md *models.MethodDetails, path, template string) []ParameterObject {
	documented := make(map[string]*models.Parameter)
	for _, p := range md.ParametersAndResponse[LabelURIParameters] {
		documented[p.Name] = p
	}

	var params []ParameterObject
	own := pathParam.FindAllStringSubmatch(path, -1)
	for i, m := range pathParam.FindAllStringSubmatch(template, -1) {
		param := ParameterObject{
			Name:     m[1],
			In:       "path",
			Required: true,
			Schema:   Schema{Type: "string"},
		}
		if i < len(own) {
			if doc, ok := documented[own[i][1]]; ok {
				param.Description = cleanText(doc.Doc)
				param.Schema = g.parameterSchema(doc)
				param.Schema.Description = ""
			}
		}
		params = append(params, param)
	}

	for _, p := range md.ParametersAndResponse[LabelQueryParameters] {
		schema := g.parameterSchema(p)
		schema.Description = ""
		params = append(params, ParameterObject{
			Name:        p.Name,
			In:          "query",
			Required:    p.IsRequired(),
			Description: cleanText(p.Doc),
			Schema:      schema,
		})
	}
	return params
}

// generateResponses generates response schemas
func (g *OpenAPIGenerator) generateResponses(md *models.MethodDetails) map[string]Response {
	responses := make(map[string]Response)

	props := md.ParametersAndResponse[LabelResponseProperties]
	if len(props) == 0 {
		responses["200"] = Response{Description: "Successful response"}
		return responses
	}

	responses["200"] = Response{
		Description: "Successful response",
		Content: map[string]MediaType{
			"application/json": {Schema: g.objectSchema(props)},
		},
	}
	return responses
}

// objectSchema builds an object schema from a list of fields
func (g *OpenAPIGenerator) objectSchema(params []*models.Parameter) Schema {
	schema := Schema{
		Type:       "object",
		Properties: make(map[string]Schema, len(params)),
	}
	for _, p := range params {
		schema.Properties[p.Name] = g.parameterSchema(p)
		if p.IsRequired() {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// parameterSchema generates a schema for a parameter
func (g *OpenAPIGenerator) parameterSchema(param *models.Parameter) Schema {
	if param.IsArray() {
		item := g.parameterSchema(&models.Parameter{
			Type:   param.ElementType(),
			Attrs:  param.Attrs,
			Object: param.Object,
		})
		return Schema{
			Type:        "array",
			Description: cleanText(param.Doc),
			Items:       &item,
		}
	}

	var schema Schema
	switch {
	case len(param.Object) > 0:
		schema = g.objectSchema(param.Object)
	case param.IsEnum():
		schema.Type = "string"
		for _, v := range param.Attrs {
			schema.Enum = append(schema.Enum, v.Name)
		}
	case len(param.Attrs) > 0:
		schema = g.objectSchema(param.Attrs)
	default:
		if t, ok := g.supportedTypes[param.Type]; ok {
			schema.Type = t
		} else {
			// a documented type without fields of its own
			schema.Type = "object"
		}
	}
	schema.Description = cleanText(param.Doc)
	return schema
}

// ToYAML converts the OpenAPI spec to YAML format
func (spec *OpenAPISpec) ToYAML() ([]byte, error) {
	return yaml.Marshal(spec)
}

// ToJSON converts the OpenAPI spec to JSON format
func (spec *OpenAPISpec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// Validate loads the rendered spec with kin-openapi and runs its validation
func (spec *OpenAPISpec) Validate(ctx context.Context) error {
	data, err := spec.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to render spec: %w", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("invalid spec: %w", err)
	}
	return nil
}
