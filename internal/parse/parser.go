package parse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xcono/webexdocs/internal/dom"
	"github.com/xcono/webexdocs/internal/models"
)

// Observer receives parse diagnostics, e.g. to feed metrics
type Observer interface {
	ParameterParsed()
	ParseMiss(reason string)
}

type nopObserver struct{}

func (nopObserver) ParameterParsed() {}
func (nopObserver) ParseMiss(string) {}

// Parser handles HTML parsing and data extraction from documentation pages.
// It keeps no per-document state.
type Parser struct {
	log      *slog.Logger
	observer Observer
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for parse diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithObserver registers an observer for parse diagnostics
func WithObserver(o Observer) Option {
	return func(p *Parser) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewParser creates a new parser instance
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		log:      slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "parse")
	return p
}

// ParseHTML parses a method documentation page and extracts its details
func (p *Parser) ParseHTML(htmlContent string, doc models.MethodDoc) (*models.MethodDetails, error) {
	root, err := dom.Parse(htmlContent)
	if err != nil {
		return nil, err
	}

	details, err := p.ExtractMethodDetails(root, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract method details: %w", err)
	}
	return details, nil
}

// ParseParameterGroup parses the parameter divs of one group container given as markup
func (p *Parser) ParseParameterGroup(markup string) ([]*models.Parameter, error) {
	root, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}
	group := root.Find("body").FirstChild("div")
	if group.IsZero() {
		return nil, fmt.Errorf("no parameter group found")
	}
	return p.ParseParameters(group.Children("div"), 0), nil
}

// paragraphs joins the text of the direct <p> children of a cell
func paragraphs(cell dom.Node) string {
	ps := cell.Children("p")
	lines := make([]string, len(ps))
	for i, para := range ps {
		lines[i] = strings.TrimSpace(para.Text())
	}
	return strings.Join(lines, "\n")
}
