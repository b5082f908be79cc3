package generate

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcono/webexdocs/internal/classgen"
	"github.com/xcono/webexdocs/internal/models"
)

func register(t *testing.T, r *classgen.Registry, name string, c *classgen.Class) *classgen.Class {
	t.Helper()
	_, err := r.Register(name, c)
	require.NoError(t, err)
	return c
}

func definitionNames(defs []Definition) []string {
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

func TestDefinitionsOrder(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Person", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "address", Type: "object", ClassRef: "Address"},
		{Name: "emails", Type: "array[Email]"},
	}})
	register(t, r, "Company", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "address", Type: "object", ClassRef: "Address"},
	}})
	register(t, r, "Address", &classgen.Class{Attributes: []*models.Parameter{{Name: "city", Type: "string"}}})
	register(t, r, "Email", &classgen.Class{Attributes: []*models.Parameter{{Name: "value", Type: "string"}}})
	register(t, r, "Empty", &classgen.Class{})

	defs := NewSourceEmitter(r).Definitions()
	assert.Equal(t, []string{"Address", "Email", "Person", "Company"}, definitionNames(defs))

	// a second run starts a fresh emission pass
	assert.Len(t, NewSourceEmitter(r).Definitions(), 4)
}

func TestDefinitionsBaseAndAlias(t *testing.T) {
	r := classgen.NewRegistry()
	holder := register(t, r, "Holder", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "item", Type: "object", ClassRef: "Alias"},
		{Name: "items", Type: "array[Alias]", ClassRef: "Alias"},
	}})
	register(t, r, "Alias", &classgen.Class{Base: "Base"})
	register(t, r, "Base", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "id", Type: "string"},
		{Name: "name", Type: "string"},
	}})
	register(t, r, "Derived", &classgen.Class{Base: "Base", Attributes: []*models.Parameter{
		{Name: "enabled", Type: "boolean", Doc: "Whether it is enabled.\nDefaults to false."},
	}})

	defs := NewSourceEmitter(r).Definitions()
	assert.Equal(t, []string{"Base", "Holder", "Derived"}, definitionNames(defs))

	holderSrc := defs[1].Source
	assert.Contains(t, holderSrc, "Item *Base `json:\"item,omitempty\"`")
	assert.Contains(t, holderSrc, "Items []Base `json:\"items,omitempty\"`")
	assert.True(t, holder.SourceGenerated)

	derived := defs[2].Source
	assert.Contains(t, derived, "type Derived struct {\n\tBase\n")
	assert.Contains(t, derived, "\t// Whether it is enabled.\n\t// Defaults to false.\n\tEnabled *bool `json:\"enabled,omitempty\"`")
}

func TestRenderEnum(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Status", &classgen.Class{IsEnum: true, Attributes: []*models.Parameter{
		{Name: "active", Doc: "active - The user is active."},
		{Name: "in-active"},
		{Name: "inActive"},
		{Name: "7days"},
	}})

	defs := NewSourceEmitter(r).Definitions()
	require.Len(t, defs, 1)
	src := defs[0].Source

	assert.Contains(t, src, "type Status string")
	assert.Contains(t, src, "\t// active - The user is active.\n\tStatusActive Status = \"active\"")
	assert.Contains(t, src, "StatusInActive Status = \"in-active\"")
	assert.Contains(t, src, "StatusInActive1 Status = \"inActive\"")
	assert.Contains(t, src, "StatusSevenDays Status = \"7days\"")
}

func TestRenderStructFields(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Location", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "id", Type: "string"},
		{Name: "orgId", Type: "string"},
		{Name: "max", Type: "number"},
		{Name: "tags", Type: "array[string]"},
		{Name: "extra", Type: "object"},
		{Name: "owner", Type: "Person"},
		{Name: "first name", Type: "string"},
		{Name: "first_name", Type: "string"},
		{Name: "status", Type: "enum"},
	}})

	defs := NewSourceEmitter(r).Definitions()
	require.Len(t, defs, 1)
	src := defs[0].Source

	for _, line := range []string{
		"ID *string `json:\"id,omitempty\"`",
		"OrgID *string `json:\"orgId,omitempty\"`",
		"Max *int `json:\"max,omitempty\"`",
		"Tags []string `json:\"tags,omitempty\"`",
		"Extra map[string]any `json:\"extra,omitempty\"`",
		"Owner any `json:\"owner,omitempty\"`",
		"FirstName *string `json:\"first name,omitempty\"`",
		"FirstName1 *string `json:\"first_name,omitempty\"`",
		"Status *string `json:\"status,omitempty\"`",
	} {
		assert.Contains(t, src, line)
	}
}

func TestResolveTag(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Location", &classgen.Class{Attributes: []*models.Parameter{{Name: "id", Type: "string"}}})
	e := NewSourceEmitter(r)

	tests := map[string]string{
		"number":                "int",
		"boolean":               "bool",
		"":                      "string",
		"enum":                  "string",
		"object":                "map[string]any",
		"array[number]":         "[]int",
		"array[array[boolean]]": "[][]bool",
		"Location":              "Location",
		"array[Location]":       "[]Location",
		"Unknown":               "any",
	}
	for tag, expected := range tests {
		assert.Equal(t, expected, e.resolveTag(tag), tag)
	}
}

func TestFile(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Location", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "id", Type: "string", Doc: "Unique identifier."},
		{Name: "status", Type: "enum", ClassRef: "Status"},
	}})
	register(t, r, "Status", &classgen.Class{IsEnum: true, Attributes: []*models.Parameter{{Name: "active"}, {Name: "inactive"}}})
	// constants of different enums may derive the same name
	register(t, r, "Call", &classgen.Class{IsEnum: true, Attributes: []*models.Parameter{{Name: "typeA"}}})
	register(t, r, "CallType", &classgen.Class{IsEnum: true, Attributes: []*models.Parameter{{Name: "A"}}})
	register(t, r, "StatusActive", &classgen.Class{Attributes: []*models.Parameter{{Name: "note", Type: "string"}}})

	src, err := NewSourceEmitter(r).File("models")
	require.NoError(t, err)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "models.go", src, parser.ParseComments)
	require.NoError(t, err)
	_, err = new(types.Config).Check("models", fset, []*ast.File{file}, nil)
	require.NoError(t, err, string(src))

	out := string(src)
	assert.Contains(t, out, "CallTypeA Call = \"typeA\"")
	assert.Regexp(t, `StatusActive1\s+Status = "active"`, out)
	assert.Contains(t, out, "CallTypeA1 CallType = \"A\"")
	assert.True(t, strings.HasPrefix(out, "// Code generated by webexdocs. DO NOT EDIT.\n\npackage models\n"))
	assert.Less(t, strings.Index(out, "type Status string"), strings.Index(out, "type Location struct"))
	assert.Contains(t, out, "// Unique identifier.")
}

func TestRenderStructLossyLabel(t *testing.T) {
	r := classgen.NewRegistry()
	register(t, r, "Filter", &classgen.Class{Attributes: []*models.Parameter{
		{Name: "from,to", Type: "string"},
		{Name: `say "hi"`, Type: "string"},
		{Name: "plain", Type: "string"},
	}})

	defs := NewSourceEmitter(r).Definitions()
	require.Len(t, defs, 1)
	src := defs[0].Source

	assert.Contains(t, src, "\t// documented as \"from,to\"\n\tFromTo *string `json:\"fromto,omitempty\"`")
	assert.Contains(t, src, "\t// documented as \"say \\\"hi\\\"\"\n\tSayHi *string `json:\"say hi,omitempty\"`")
	assert.NotContains(t, src, "documented as \"plain\"")
}
