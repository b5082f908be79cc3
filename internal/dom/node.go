// Package dom is a thin navigation facade over goquery used by the documentation parsers.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a single HTML element. The zero value is a missing element.
type Node struct {
	sel *goquery.Selection
}

// Parse parses a markup fragment or page and returns its document root
func Parse(markup string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Node{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return Node{sel: doc.Selection}, nil
}

// Wrap turns the first element of a selection into a Node
func Wrap(sel *goquery.Selection) Node {
	if sel == nil || sel.Length() == 0 {
		return Node{}
	}
	return Node{sel: sel.First()}
}

// IsZero reports whether the node refers to no element
func (n Node) IsZero() bool {
	return n.sel == nil || n.sel.Length() == 0
}

// Selection exposes the underlying goquery selection
func (n Node) Selection() *goquery.Selection {
	return n.sel
}

// Tag returns the element name
func (n Node) Tag() string {
	if n.IsZero() {
		return ""
	}
	return goquery.NodeName(n.sel)
}

// HasClassAttr reports whether the element carries a class attribute at all
func (n Node) HasClassAttr() bool {
	if n.IsZero() {
		return false
	}
	_, ok := n.sel.Attr("class")
	return ok
}

// Classes returns the element's class set in document order
func (n Node) Classes() []string {
	if n.IsZero() {
		return nil
	}
	class, _ := n.sel.Attr("class")
	return strings.Fields(class)
}

// HasClass reports whether the element has the given class
func (n Node) HasClass(class string) bool {
	return !n.IsZero() && n.sel.HasClass(class)
}

// Attr returns an attribute value
func (n Node) Attr(name string) (string, bool) {
	if n.IsZero() {
		return "", false
	}
	return n.sel.Attr(name)
}

// Text returns the combined text of the element and its descendants
func (n Node) Text() string {
	if n.IsZero() {
		return ""
	}
	return n.sel.Text()
}

// Children returns the direct element children with the given tag name; an empty tag matches any element
func (n Node) Children(tag string) []Node {
	if n.IsZero() {
		return nil
	}
	var children *goquery.Selection
	if tag == "" {
		children = n.sel.Children()
	} else {
		children = n.sel.ChildrenFiltered(tag)
	}
	return nodes(children)
}

// FirstChild returns the first direct child with the given tag name
func (n Node) FirstChild(tag string) Node {
	if children := n.Children(tag); len(children) > 0 {
		return children[0]
	}
	return Node{}
}

// HasChild reports whether there is a direct child with the given tag name
func (n Node) HasChild(tag string) bool {
	return !n.FirstChild(tag).IsZero()
}

// ChildrenWithClass returns the direct children carrying the given class
func (n Node) ChildrenWithClass(class string) []Node {
	if n.IsZero() {
		return nil
	}
	return nodes(n.sel.ChildrenFiltered("." + class))
}

// Find returns the first descendant matching the selector
func (n Node) Find(selector string) Node {
	if n.IsZero() {
		return Node{}
	}
	return Wrap(n.sel.Find(selector))
}

// FindAll returns all descendants matching the selector
func (n Node) FindAll(selector string) []Node {
	if n.IsZero() {
		return nil
	}
	return nodes(n.sel.Find(selector))
}

// FindClass returns the first descendant carrying the given class
func (n Node) FindClass(class string) Node {
	return n.Find("." + class)
}

// OuterHTML renders the element including its own tag
func (n Node) OuterHTML() string {
	if n.IsZero() {
		return ""
	}
	html, err := goquery.OuterHtml(n.sel)
	if err != nil {
		return ""
	}
	return html
}

// String is a short diagnostic representation like <div class=a b>
func (n Node) String() string {
	if n.IsZero() {
		return "None"
	}
	if classes := n.Classes(); len(classes) > 0 {
		return fmt.Sprintf("<%s class=%s>", n.Tag(), strings.Join(classes, " "))
	}
	return fmt.Sprintf("<%s>", n.Tag())
}

// Reprs joins the diagnostic representation of several nodes
func Reprs(list []Node) string {
	parts := make([]string, len(list))
	for i, n := range list {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func nodes(sel *goquery.Selection) []Node {
	result := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		result = append(result, Node{sel: s})
	})
	return result
}
