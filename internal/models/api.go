package models

import (
	"fmt"
	"sort"
	"strings"
)

// MethodDoc represents one row of a reference listing: an endpoint and the link to its documentation page
type MethodDoc struct {
	HTTPMethod string `yaml:"http_method" json:"http_method"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	DocLink    string `yaml:"doc_link" json:"doc_link"`
	Doc        string `yaml:"doc" json:"doc"`
}

// Key identifies a method within a section
func (m MethodDoc) Key() string {
	return fmt.Sprintf("%s %s", m.HTTPMethod, m.Endpoint)
}

// SectionDoc is the list of methods found under one menu entry of the reference
type SectionDoc struct {
	MenuText string      `yaml:"menu_text" json:"menu_text"`
	Methods  []MethodDoc `yaml:"methods" json:"methods"`
}

// Parameter represents a single documented field (request parameter or response property)
type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	TypeSpec string `yaml:"type_spec" json:"type_spec"`
	Doc      string `yaml:"doc" json:"doc"`

	// Attrs holds enum values or a flat attribute list parsed from a non-object block
	Attrs []*Parameter `yaml:"attrs" json:"attrs"`

	// Object holds the fields of a nested object
	Object []*Parameter `yaml:"object" json:"object"`

	// ClassRef is the name of the class generated for this parameter. Set during class generation only.
	ClassRef string `yaml:"-" json:"-"`
}

// HasChildren reports whether the parameter carries enum values or object fields
func (p *Parameter) HasChildren() bool {
	return len(p.Attrs) > 0 || len(p.Object) > 0
}

// IsEnum reports whether the parameter's Attrs are enum values: declared as enum,
// or a value list whose entries carry no type
func (p *Parameter) IsEnum() bool {
	if len(p.Object) > 0 || len(p.Attrs) == 0 {
		return false
	}
	if p.Type == "enum" {
		return true
	}
	for _, a := range p.Attrs {
		if a.Type != "" {
			return false
		}
	}
	return true
}

// IsRequired reports whether the type qualifier marks the parameter as required
func (p *Parameter) IsRequired() bool {
	return strings.Contains(strings.ToLower(p.TypeSpec), "required")
}

// IsArray reports whether the type tag has the form array[<elem>]
func (p *Parameter) IsArray() bool {
	return strings.HasPrefix(p.Type, "array[") && strings.HasSuffix(p.Type, "]")
}

// ElementType returns the element type of an array type tag, or the type tag itself
func (p *Parameter) ElementType() string {
	return ElementType(p.Type)
}

// ElementType strips an array[...] wrapper from a type tag
func ElementType(typeTag string) string {
	if strings.HasPrefix(typeTag, "array[") && strings.HasSuffix(typeTag, "]") {
		return typeTag[len("array[") : len(typeTag)-1]
	}
	return typeTag
}

// AttributeInfo is one parameter together with its path in the schema tree
type AttributeInfo struct {
	Path      string
	Parameter *Parameter
}

// Attributes returns the parameter and all of its descendants in pre-order
func (p *Parameter) Attributes(path string) []AttributeInfo {
	own := path + "/" + p.Name
	result := []AttributeInfo{{Path: own, Parameter: p}}
	for _, a := range p.Attrs {
		result = append(result, a.Attributes(own+"/attrs")...)
	}
	for _, o := range p.Object {
		result = append(result, o.Attributes(own+"/object")...)
	}
	return result
}

// MethodDetails represents one fully scraped documentation page
type MethodDetails struct {
	Header                string                  `yaml:"header" json:"header"`
	Doc                   string                  `yaml:"doc" json:"doc"`
	ParametersAndResponse map[string][]*Parameter `yaml:"parameters_and_response" json:"parameters_and_response"`
	Documentation         MethodDoc               `yaml:"documentation" json:"documentation"`
}

// Labels returns the section labels ("Body Parameters", "Response Properties", ...) in sorted order
func (md *MethodDetails) Labels() []string {
	labels := make([]string, 0, len(md.ParametersAndResponse))
	for label := range md.ParametersAndResponse {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Attributes walks all parameters of the method
func (md *MethodDetails) Attributes(path string) []AttributeInfo {
	var result []AttributeInfo
	for _, label := range md.Labels() {
		for _, p := range md.ParametersAndResponse[label] {
			result = append(result, p.Attributes(path+"/"+md.Header+"/"+label)...)
		}
	}
	return result
}

// Schema is the persisted document: all scraped methods grouped by menu section
type Schema struct {
	Info string                      `yaml:"-" json:"info,omitempty"`
	Docs map[string][]*MethodDetails `yaml:"docs" json:"docs"`
}

// NewSchema creates an empty schema
func NewSchema() *Schema {
	return &Schema{Docs: make(map[string][]*MethodDetails)}
}

// Sections returns the section names in sorted order
func (s *Schema) Sections() []string {
	names := make([]string, 0, len(s.Docs))
	for name := range s.Docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionMethod pairs a method with the section it was found in
type SectionMethod struct {
	Section string
	Method  *MethodDetails
}

// Methods returns all methods ordered by section, endpoint and HTTP method
func (s *Schema) Methods() []SectionMethod {
	var result []SectionMethod
	for section, methods := range s.Docs {
		for _, m := range methods {
			result = append(result, SectionMethod{Section: section, Method: m})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		da, db := a.Method.Documentation, b.Method.Documentation
		if da.Endpoint != db.Endpoint {
			return da.Endpoint < db.Endpoint
		}
		return da.HTTPMethod < db.HTTPMethod
	})
	return result
}

// Attributes walks every parameter in the schema
func (s *Schema) Attributes() []AttributeInfo {
	var result []AttributeInfo
	for _, section := range s.Sections() {
		for _, md := range s.Docs[section] {
			result = append(result, md.Attributes(section)...)
		}
	}
	return result
}

// Normalize replaces empty parameter lists with nil and missing maps and section lists
// with empty ones so that loaded and parsed schemas compare equal
func (s *Schema) Normalize() {
	if s.Docs == nil {
		s.Docs = make(map[string][]*MethodDetails)
	}
	for section, methods := range s.Docs {
		if methods == nil {
			s.Docs[section] = []*MethodDetails{}
		}
		for _, md := range methods {
			if md.ParametersAndResponse == nil {
				md.ParametersAndResponse = make(map[string][]*Parameter)
			}
			for label, params := range md.ParametersAndResponse {
				if len(params) == 0 {
					md.ParametersAndResponse[label] = nil
					continue
				}
				for _, p := range params {
					p.normalize()
				}
			}
		}
	}
}

func (p *Parameter) normalize() {
	if len(p.Attrs) == 0 {
		p.Attrs = nil
	}
	if len(p.Object) == 0 {
		p.Object = nil
	}
	for _, a := range p.Attrs {
		a.normalize()
	}
	for _, o := range p.Object {
		o.normalize()
	}
}
