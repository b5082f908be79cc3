package classgen

import (
	"errors"
	"log/slog"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/naming"
)

// ErrBuildInProgress is returned when Build is called while another build is running
var ErrBuildInProgress = errors.New("class build already in progress")

var scalarTypes = map[string]bool{
	"":        true,
	"string":  true,
	"number":  true,
	"boolean": true,
	"enum":    true,
	"object":  true,
}

// Builder registers a class for every parameter that carries children
type Builder struct {
	mu       sync.Mutex
	registry *Registry
	log      *slog.Logger
}

// NewBuilder creates a builder over a registry
func NewBuilder(registry *Registry, log *slog.Logger) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		registry: registry,
		log:      log.With("component", "classgen"),
	}
}

// Registry returns the registry classes are registered in
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build walks all parameters of the schema and sets their ClassRef.
// Only one build may run at a time.
func (b *Builder) Build(schema *models.Schema) error {
	if !b.mu.TryLock() {
		return ErrBuildInProgress
	}
	defer b.mu.Unlock()

	before := b.registry.Len()
	for _, sm := range schema.Methods() {
		md := sm.Method
		for _, label := range md.Labels() {
			for _, p := range md.ParametersAndResponse[label] {
				if err := b.visit(p, md.Header); err != nil {
					return err
				}
			}
		}
	}
	b.log.Info("classes registered", "count", b.registry.Len()-before)
	return nil
}

// Optimize runs subclass inference on the registry
func (b *Builder) Optimize() (int, error) {
	if !b.mu.TryLock() {
		return 0, ErrBuildInProgress
	}
	defer b.mu.Unlock()

	inferred := b.registry.Optimize()
	b.log.Info("base classes inferred", "count", inferred)
	return inferred, nil
}

// Generate builds the classes of a schema into a fresh registry and infers base classes.
// It returns the registry and the number of inferred subclasses.
func Generate(schema *models.Schema, log *slog.Logger) (*Registry, int, error) {
	b := NewBuilder(nil, log)
	if err := b.Build(schema); err != nil {
		return nil, 0, err
	}
	inferred, err := b.Optimize()
	if err != nil {
		return nil, 0, err
	}
	return b.Registry(), inferred, nil
}

// visit registers classes for the children of p before p itself
func (b *Builder) visit(p *models.Parameter, header string) error {
	for _, child := range p.Attrs {
		if err := b.visit(child, header); err != nil {
			return err
		}
	}
	for _, child := range p.Object {
		if err := b.visit(child, header); err != nil {
			return err
		}
	}
	if !p.HasChildren() {
		return nil
	}

	c := &Class{}
	if len(p.Object) > 0 {
		c.Attributes = p.Object
	} else {
		c.Attributes = p.Attrs
		c.IsEnum = p.IsEnum()
	}

	requested := className(p, header)
	if existing := b.registry.FindEquivalent(requested, c); existing != nil {
		p.ClassRef = existing.Name
		return nil
	}

	name, err := b.registry.Register(requested, c)
	if err != nil {
		return err
	}
	if name != requested {
		b.log.Debug("class renamed", "requested", requested, "name", name)
	}
	p.ClassRef = name
	return nil
}

// className prefers a referenced type name, then the parameter name, then the method header
func className(p *models.Parameter, header string) string {
	if elem := p.ElementType(); isTypeReference(elem) {
		if name := naming.Identifier(elem); name != "" {
			return name
		}
	}
	if name := naming.Identifier(p.Name); name != "" {
		return name
	}
	return naming.Identifier(header) + "Item"
}

// isTypeReference reports whether a type tag names another documented type, like Location
func isTypeReference(tag string) bool {
	if scalarTypes[tag] {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tag)
	return unicode.IsUpper(r)
}
