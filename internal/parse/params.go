package parse

import (
	"regexp"
	"strings"

	"github.com/xcono/webexdocs/internal/dom"
	"github.com/xcono/webexdocs/internal/models"
)

const (
	classObject    = "params-type-object"
	classNonObject = "params-type-non-object"
)

// validName accepts names that do not start with a digit or '#' and contain only word characters, spaces and slashes
var validName = regexp.MustCompile(`^[^0-9#][\p{L}\p{M}\p{N}\p{Pc}\s\p{Zs}/]*$`)

// shapeKind labels a boundary element before it is dispatched to a handler
type shapeKind int

const (
	shapeUnparsable shapeKind = iota
	shapeClasslessWrapper
	shapeTwoSpanLeaf
	shapeStandardPair
	shapeFlat
)

func (k shapeKind) String() string {
	switch k {
	case shapeClasslessWrapper:
		return "classless-wrapper"
	case shapeTwoSpanLeaf:
		return "two-span-leaf"
	case shapeStandardPair:
		return "standard-pair"
	case shapeFlat:
		return "flat"
	default:
		return "unparsable"
	}
}

// ParseParameters parses one group of sibling elements into parameters, in source order.
// level is used for diagnostics only.
func (p *Parser) ParseParameters(elems []dom.Node, level int) []*models.Parameter {
	log := p.log.With("level", level)
	bounds := p.boundaries(elems)

	var result []*models.Parameter
	for i := 0; i < len(bounds); i++ {
		el := bounds[i]
		kind := classify(el)
		log.Debug("boundary", "element", el.String(), "shape", kind.String())

		var param *models.Parameter
		switch kind {
		case shapeClasslessWrapper:
			result = append(result, p.ParseParameters(el.Children("div"), level)...)
			continue
		case shapeTwoSpanLeaf:
			spans := el.Children("span")
			name := spans[0].Text()
			result = append(result, &models.Parameter{
				Name: name,
				Doc:  name + spans[1].Text(),
			})
			p.observer.ParameterParsed()
			continue
		case shapeStandardPair:
			param = p.parseStandard(el, level)
		case shapeFlat:
			param = parseFlat(el)
		default:
			log.Debug("unparsable element", "element", el.String(), "children", dom.Reprs(el.Children("")))
			p.observer.ParseMiss("unparsable")
			continue
		}

		// an object marker right after a parameter carries its nested fields or values
		if i+1 < len(bounds) {
			next := bounds[i+1]
			object, nonObject := markers(next)
			if object || nonObject {
				i++
				children := p.ParseParameters(next.Children("div"), level+1)
				if nonObject {
					if len(param.Attrs) > 0 {
						log.Warn("appending non-object block to existing attrs", "name", param.Name)
					}
					param.Attrs = append(param.Attrs, children...)
				} else {
					param.Object = children
				}
			}
		}

		name, ok := sanitizeName(param.Name)
		if !ok {
			log.Warn("dropping parameter with invalid name", "name", param.Name)
			p.observer.ParseMiss("name")
			continue
		}
		param.Name = name

		if param.Type == "enum" && !param.HasChildren() {
			param.Type = "string"
		}

		result = append(result, param)
		p.observer.ParameterParsed()
	}
	return result
}

// boundaries descends through wrapper layers of each element and returns the parameter boundary elements
func (p *Parser) boundaries(elems []dom.Node) []dom.Node {
	var result []dom.Node
	for _, el := range elems {
		div := el
		emit := true
		for {
			if !div.HasClassAttr() {
				break
			}
			if object, nonObject := markers(div); object || nonObject {
				break
			}
			children := div.Children("div")
			if len(children) == 1 {
				div = children[0]
				continue
			}
			if div.HasChild("button") {
				if len(children) == 0 {
					break
				}
				div = children[0]
				continue
			}
			if len(children) > 0 && allClassless(children) {
				for _, child := range children {
					result = append(result, child.Children("div")...)
				}
				emit = false
			}
			break
		}
		if emit {
			result = append(result, div)
		}
	}
	return result
}

func classify(n dom.Node) shapeKind {
	if !n.HasClassAttr() {
		return shapeClasslessWrapper
	}

	divs := n.Children("div")
	switch {
	case len(divs) == 0:
		if len(n.Children("span")) == 2 {
			return shapeTwoSpanLeaf
		}
		return shapeUnparsable
	case len(divs) == 2:
		cells := divs[0].Children("div")
		if len(cells) != 2 {
			return shapeUnparsable
		}
		if spans := cells[1].Children("span"); len(spans) == 0 || len(spans) > 2 {
			return shapeUnparsable
		}
		return shapeStandardPair
	case len(divs) < 3:
		return shapeUnparsable
	default:
		if len(divs[1].Children("span")) == 0 {
			return shapeUnparsable
		}
		return shapeFlat
	}
}

// parseStandard handles a name/type pair followed by a doc cell
func (p *Parser) parseStandard(n dom.Node, level int) *models.Parameter {
	divs := n.Children("div")
	cells := divs[0].Children("div")
	specDiv := divs[1]

	name := strings.TrimSpace(cells[0].Text())
	paramType, typeSpec := typeCell(cells[1])
	if paramType == "boolean" {
		// qualifiers sometimes bleed into the name cell
		if words := strings.Fields(name); len(words) > 1 {
			name = words[0]
		}
	}

	param := &models.Parameter{
		Name:     name,
		Type:     paramType,
		TypeSpec: typeSpec,
		Doc:      paragraphs(specDiv),
	}

	if children := specDiv.Children("div"); len(children) > 0 {
		attrs := p.ParseParameters(children, level+1)
		switch {
		case len(attrs) == 1 && !attrs[0].HasChildren():
			param.Doc = strings.TrimSpace(param.Doc) + "\n" + strings.TrimSpace(attrs[0].Doc)
		case len(attrs) > 0:
			param.Attrs = attrs
		}
	}
	return param
}

// parseFlat handles name, type cell, doc cell and an optional possible values footer
func parseFlat(n dom.Node) *models.Parameter {
	divs := n.Children("div")
	paramType, typeSpec := typeCell(divs[1])
	param := &models.Parameter{
		Name:     strings.TrimSpace(divs[0].Text()),
		Type:     paramType,
		TypeSpec: typeSpec,
		Doc:      paragraphs(divs[2]),
	}
	if len(divs) > 3 {
		if line, ok := possibleValues(divs[3]); ok {
			param.Doc = param.Doc + "\n" + line
		}
	}
	return param
}

func typeCell(cell dom.Node) (paramType, typeSpec string) {
	spans := cell.Children("span")
	if len(spans) > 0 {
		paramType = strings.TrimSpace(spans[0].Text())
	}
	if len(spans) > 1 {
		typeSpec = strings.TrimSpace(spans[1].Text())
	}
	return paramType, typeSpec
}

// possibleValues renders a footer like "Possible values: a, b"
func possibleValues(footer dom.Node) (string, bool) {
	spans := footer.Children("span")
	if len(spans) == 0 {
		return "", false
	}
	var values []string
	for _, s := range spans[1:] {
		if t := s.Text(); t != "" {
			values = append(values, t)
		}
	}
	return spans[0].Text() + strings.Join(values, ", "), true
}

func markers(n dom.Node) (object, nonObject bool) {
	return n.HasClass(classObject), n.HasClass(classNonObject)
}

func allClassless(nodes []dom.Node) bool {
	for _, n := range nodes {
		if n.HasClassAttr() {
			return false
		}
	}
	return true
}

// sanitizeName maps names that fail validName; ok is false when the name must be dropped
func sanitizeName(name string) (string, bool) {
	if validName.MatchString(name) {
		return name, true
	}
	switch {
	case name == "#":
		return "hash", true
	case len(name) == 1 && name[0] >= '0' && name[0] <= '9':
		return "digit_" + name, true
	case len(strings.Fields(name)) > 1:
		return "", false
	}
	return name, true
}
