package generate

import (
	"fmt"
	"go/format"
	"log/slog"
	"strings"

	"github.com/xcono/webexdocs/internal/classgen"
	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/naming"
)

// tagLabel drops characters encoding/json does not accept in a tag name
var tagLabel = strings.NewReplacer("`", "", `"`, "", ",", "", `\`, "")

var scalars = map[string]string{
	"":        "string",
	"string":  "string",
	"enum":    "string",
	"number":  "int",
	"boolean": "bool",
	"object":  "map[string]any",
}

// Definition is the emitted source of one class
type Definition struct {
	Name   string
	Source string
}

// SourceEmitter renders registered classes as Go type definitions
type SourceEmitter struct {
	registry *classgen.Registry

	// package level identifiers declared so far
	decls map[string]bool
}

// NewSourceEmitter creates an emitter over a registry
func NewSourceEmitter(registry *classgen.Registry) *SourceEmitter {
	return &SourceEmitter{registry: registry}
}

// Definitions returns one definition per class with attributes, referenced classes
// and bases before the classes using them
func (e *SourceEmitter) Definitions() []Definition {
	e.registry.ResetEmission()

	classes := e.registry.Classes()
	e.decls = make(map[string]bool, len(classes))
	for _, c := range classes {
		e.decls[c.Name] = true
	}

	var defs []Definition
	for _, c := range classes {
		defs = e.emit(c, defs)
	}
	return defs
}

// File renders all definitions as a formatted Go file of the given package
func (e *SourceEmitter) File(pkg string) ([]byte, error) {
	var b strings.Builder
	b.WriteString("// Code generated by webexdocs. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n", pkg)
	for _, def := range e.Definitions() {
		b.WriteString("\n")
		b.WriteString(def.Source)
	}

	src := []byte(b.String())
	formatted, err := format.Source(src)
	if err != nil {
		return src, fmt.Errorf("failed to format generated source: %w", err)
	}
	return formatted, nil
}

func (e *SourceEmitter) emit(c *classgen.Class, defs []Definition) []Definition {
	if c.SourceGenerated {
		return defs
	}
	c.SourceGenerated = true

	for _, attr := range c.Attributes {
		if ref := e.referenced(attr); ref != nil {
			defs = e.emit(ref, defs)
		}
	}
	if c.Base != "" {
		if base := e.registry.Get(c.Base); base != nil {
			defs = e.emit(base, defs)
		}
	}

	if len(c.Attributes) == 0 {
		return defs
	}

	var src string
	if c.IsEnum {
		src = e.renderEnum(c)
	} else {
		src = e.renderStruct(c)
	}
	return append(defs, Definition{Name: c.Name, Source: src})
}

// referenced returns the class an attribute's type points to, if any
func (e *SourceEmitter) referenced(attr *models.Parameter) *classgen.Class {
	if attr.ClassRef != "" {
		return e.registry.Get(attr.ClassRef)
	}
	elem := strings.TrimSpace(models.ElementType(attr.Type))
	if _, ok := scalars[strings.ToLower(elem)]; ok {
		return nil
	}
	if name := naming.Identifier(elem); name != "" {
		return e.registry.Get(name)
	}
	return nil
}

// resolve returns the Go type of an attribute
func (e *SourceEmitter) resolve(attr *models.Parameter) string {
	if attr.ClassRef != "" {
		name := e.finalName(attr.ClassRef)
		if attr.IsArray() {
			return "[]" + name
		}
		return name
	}
	return e.resolveTag(attr.Type)
}

func (e *SourceEmitter) resolveTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if elem := models.ElementType(tag); elem != tag {
		return "[]" + e.resolveTag(elem)
	}

	if goType, ok := scalars[strings.ToLower(tag)]; ok {
		return goType
	}
	if name := naming.Identifier(tag); name != "" && e.registry.Get(name) != nil {
		return e.finalName(name)
	}
	return "any"
}

// finalName follows pure alias classes (a base and no own attributes) to their base
func (e *SourceEmitter) finalName(name string) string {
	c := e.registry.Get(name)
	for c != nil && c.Base != "" && len(c.Attributes) == 0 {
		base := e.registry.Get(c.Base)
		if base == nil {
			break
		}
		c = base
	}
	if c == nil {
		return name
	}
	return c.Name
}

func (e *SourceEmitter) renderStruct(c *classgen.Class) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s struct {\n", c.Name)

	used := make(map[string]bool)
	if c.Base != "" {
		base := e.finalName(c.Base)
		fmt.Fprintf(&b, "\t%s\n", base)
		used[base] = true
	}

	for _, attr := range c.Attributes {
		writeDoc(&b, "\t", attr.Doc)
		field := unique(used, fieldName(attr.Name))
		goType := e.resolve(attr)
		if pointable(goType) {
			goType = "*" + goType
		}
		label := tagLabel.Replace(attr.Name)
		if label != attr.Name {
			slog.Warn("label cannot be kept in json tag", "class", c.Name, "label", attr.Name, "tag", label)
			fmt.Fprintf(&b, "\t// documented as %q\n", attr.Name)
		}
		fmt.Fprintf(&b, "\t%s %s `json:\"%s,omitempty\"`\n", field, goType, label)
	}

	b.WriteString("}\n")
	return b.String()
}

func (e *SourceEmitter) renderEnum(c *classgen.Class) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s string\n\nconst (\n", c.Name)

	for i, attr := range c.Attributes {
		writeDoc(&b, "\t", attr.Doc)
		value := naming.Identifier(attr.Name)
		if value == "" {
			value = fmt.Sprintf("Value%d", i)
		}
		constName := unique(e.decls, c.Name+value)
		fmt.Fprintf(&b, "\t%s %s = %q\n", constName, c.Name, attr.Name)
	}

	b.WriteString(")\n")
	return b.String()
}

func fieldName(label string) string {
	if name := naming.Identifier(label); name != "" {
		return name
	}
	return "Field"
}

// unique appends the first free numeric suffix to name
func unique(used map[string]bool, name string) string {
	candidate := name
	for i := 1; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	used[candidate] = true
	return candidate
}

func pointable(goType string) bool {
	return !strings.HasPrefix(goType, "[]") && !strings.HasPrefix(goType, "map[") && goType != "any"
}

func writeDoc(b *strings.Builder, indent, doc string) {
	for _, line := range strings.Split(strings.TrimSpace(doc), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fmt.Fprintf(b, "%s// %s\n", indent, line)
	}
}
