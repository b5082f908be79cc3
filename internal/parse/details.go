package parse

import (
	"errors"
	"strings"

	"github.com/xcono/webexdocs/internal/dom"
	"github.com/xcono/webexdocs/internal/models"
)

const (
	classDescription = "api-reference__description"
	classGroup       = "vertical-up"
)

var (
	// ErrNoDescription is returned when the page carries no API reference description
	ErrNoDescription = errors.New("api reference description not found")
	// ErrNoHeader is returned when the description has no header heading
	ErrNoHeader = errors.New("method header not found")
)

// ExtractMethodDetails extracts header, long description and parameter sections of one method page
func (p *Parser) ExtractMethodDetails(root dom.Node, doc models.MethodDoc) (*models.MethodDetails, error) {
	container := root.FindClass(classDescription)
	if container.IsZero() {
		return nil, ErrNoDescription
	}

	intro := container.FirstChild("div")
	if intro.IsZero() {
		intro = container.Find("div")
	}
	header := intro.Find("h4")
	if header.IsZero() {
		return nil, ErrNoHeader
	}

	// first and last child divs are the intro and the response codes
	var sections []dom.Node
	if divs := container.Children("div"); len(divs) > 2 {
		sections = divs[1 : len(divs)-1]
	}

	return &models.MethodDetails{
		Header:                strings.TrimSpace(header.Text()),
		Doc:                   paragraphs(intro.Find("div")),
		ParametersAndResponse: p.ExtractParametersAndResponse(sections),
		Documentation:         doc,
	}, nil
}

// ExtractParametersAndResponse maps section labels like "Body Parameters" to their parameters
func (p *Parser) ExtractParametersAndResponse(sections []dom.Node) map[string][]*models.Parameter {
	result := make(map[string][]*models.Parameter)
	for _, section := range sections {
		if !section.HasClassAttr() {
			// optional extra wrapper, e.g. around Response Properties
			section = section.Find("div")
			if section.IsZero() {
				continue
			}
		}

		headings := section.Children("h6")
		groups := section.ChildrenWithClass(classGroup)
		if len(headings) != len(groups) {
			p.log.Warn("section headings do not match parameter groups",
				"section", section.String(), "headings", len(headings), "groups", len(groups))
			p.observer.ParseMiss("section")
			continue
		}

		for i, h := range headings {
			label := strings.TrimSpace(h.Text())
			result[label] = p.ParseParameters(groups[i].Children("div"), 0)
		}
	}
	return result
}
