// Package classgen derives deduplicated classes (structs and enums) from the parameter trees of a schema.
package classgen

import (
	"errors"
	"fmt"
	"slices"

	"github.com/xcono/webexdocs/internal/models"
)

// maxSuffix bounds the numeric suffixes tried for a colliding class name
const maxSuffix = 99

// ErrNameSpaceExhausted is returned when all suffixes for a class name are taken
var ErrNameSpaceExhausted = errors.New("class name suffixes exhausted")

// Class is a named object or enum shape
type Class struct {
	Name       string              `json:"name"`
	Attributes []*models.Parameter `json:"attributes"`
	IsEnum     bool                `json:"is_enum"`
	Base       string              `json:"base,omitempty"`

	// SourceGenerated marks classes already emitted in the current emission pass
	SourceGenerated bool `json:"-"`

	requested string
}

// Requested returns the name asked for at registration, before any suffix
func (c *Class) Requested() string {
	return c.requested
}

// Registry owns all classes of one build
type Registry struct {
	classes     map[string]*Class
	order       []*Class
	byRequested map[string][]*Class
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		classes:     make(map[string]*Class),
		byRequested: make(map[string][]*Class),
	}
}

// Register assigns the requested name, or the first free suffixed variant, to c
func (r *Registry) Register(requested string, c *Class) (string, error) {
	name := requested
	if _, taken := r.classes[name]; taken {
		name = ""
		for i := 1; i <= maxSuffix; i++ {
			candidate := fmt.Sprintf("%s%d", requested, i)
			if _, taken := r.classes[candidate]; !taken {
				name = candidate
				break
			}
		}
		if name == "" {
			return "", fmt.Errorf("%w: %s", ErrNameSpaceExhausted, requested)
		}
	}

	c.Name = name
	c.requested = requested
	r.classes[name] = c
	r.order = append(r.order, c)
	r.byRequested[requested] = append(r.byRequested[requested], c)
	return name, nil
}

// Get returns a class by its registered name
func (r *Registry) Get(name string) *Class {
	return r.classes[name]
}

// Classes returns a copy of all classes in registration order
func (r *Registry) Classes() []*Class {
	return slices.Clone(r.order)
}

// Len returns the number of registered classes
func (r *Registry) Len() int {
	return len(r.order)
}

// FindEquivalent returns a class registered under the same requested name that is equivalent to c
func (r *Registry) FindEquivalent(requested string, c *Class) *Class {
	for _, existing := range r.byRequested[requested] {
		if r.Equivalent(existing, c) {
			return existing
		}
	}
	return nil
}

// Equivalent reports whether two classes describe the same shape
func (r *Registry) Equivalent(a, b *Class) bool {
	if a == b {
		return true
	}
	if (a.Base != "" && a.Base == b.Name) || (b.Base != "" && b.Base == a.Name) {
		return true
	}
	if a.Base != b.Base || a.IsEnum != b.IsEnum || len(a.Attributes) != len(b.Attributes) {
		return false
	}

	others := make(map[string]*models.Parameter, len(b.Attributes))
	for _, attr := range b.Attributes {
		others[attr.Name] = attr
	}
	for _, attr := range a.Attributes {
		other, ok := others[attr.Name]
		if !ok || other.Type != attr.Type {
			return false
		}
		if (attr.ClassRef == "") != (other.ClassRef == "") {
			return false
		}
		if attr.ClassRef != "" && attr.ClassRef != other.ClassRef {
			ca, cb := r.Get(attr.ClassRef), r.Get(other.ClassRef)
			if ca == nil || cb == nil || !r.Equivalent(ca, cb) {
				return false
			}
		}
	}
	return true
}

// CommonAttributes returns the attributes of a that b has with the same name and type
func CommonAttributes(a, b *Class) []*models.Parameter {
	types := make(map[string]string, len(b.Attributes))
	for _, attr := range b.Attributes {
		types[attr.Name] = attr.Type
	}
	var common []*models.Parameter
	for _, attr := range a.Attributes {
		if t, ok := types[attr.Name]; ok && t == attr.Type {
			common = append(common, attr)
		}
	}
	return common
}

// Optimize infers base classes in a single pass: when every attribute of A (more than one)
// also appears in B, B derives from A and keeps only its remaining attributes.
// The first matching A wins and classes that got a base are not used as bases.
// Enums take no part. It returns the number of inferred bases.
func (r *Registry) Optimize() int {
	inferred := 0
	for _, a := range r.order {
		if a.IsEnum || a.Base != "" || len(a.Attributes) < 2 {
			continue
		}
		for _, b := range r.order {
			if b == a || b.IsEnum || b.Base != "" {
				continue
			}
			common := CommonAttributes(a, b)
			if len(common) != len(a.Attributes) {
				continue
			}
			b.Base = a.Name
			b.Attributes = without(b.Attributes, common)
			inferred++
		}
	}
	return inferred
}

// ResetEmission clears the emission marks of all classes
func (r *Registry) ResetEmission() {
	for _, c := range r.order {
		c.SourceGenerated = false
	}
}

func without(attrs, remove []*models.Parameter) []*models.Parameter {
	names := make(map[string]bool, len(remove))
	for _, attr := range remove {
		names[attr.Name] = true
	}
	var kept []*models.Parameter
	for _, attr := range attrs {
		if !names[attr.Name] {
			kept = append(kept, attr)
		}
	}
	return kept
}
