package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xcono/webexdocs/internal/dom"
	"github.com/xcono/webexdocs/internal/models"
)

const (
	// ClassReferenceContainer marks the method listing of one menu section
	ClassReferenceContainer = "api_reference_entry__container"
	// ClassMenuItem marks an entry of the reference side menu
	ClassMenuItem = "md-submenu__item"
)

// ErrNoReference is returned when a page has no method listing
var ErrNoReference = errors.New("api reference listing not found")

// MenuItem is one entry of the reference side menu
type MenuItem struct {
	Text string
	Href string
}

// ParseMenu returns the side menu entries of the reference page in document order
func ParseMenu(markup string) ([]MenuItem, error) {
	root, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}

	var items []MenuItem
	for _, n := range root.FindAll("." + ClassMenuItem) {
		href, ok := n.Attr("href")
		if !ok {
			href, _ = n.Find("a[href]").Attr("href")
		}
		items = append(items, MenuItem{
			Text: strings.TrimSpace(n.Text()),
			Href: href,
		})
	}
	return items, nil
}

// ContainerHeader returns the heading of the method listing, if the page shows one
func ContainerHeader(markup string) (string, bool) {
	root, err := dom.Parse(markup)
	if err != nil {
		return "", false
	}
	h3 := root.FindClass(ClassReferenceContainer).Find("h3")
	if h3.IsZero() {
		return "", false
	}
	return strings.TrimSpace(h3.Text()), true
}

// ParseReference extracts the method rows of a section listing
func (p *Parser) ParseReference(markup, section, baseURL string) ([]models.MethodDoc, error) {
	root, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}

	container := root.FindClass(ClassReferenceContainer)
	if container.IsZero() {
		return nil, ErrNoReference
	}
	parts := container.FirstChild("div").Children("div")
	if len(parts) < 2 {
		return nil, fmt.Errorf("section %q: %w", section, ErrNoReference)
	}

	log := p.log.With("section", section)
	rows := parts[1].Children("div")
	var docs []models.MethodDoc
	for i, row := range rows {
		// table header
		if i == 0 {
			continue
		}
		cells := row.FirstChild("div")
		endpointCell := cells.FirstChild("div")
		method := strings.TrimSpace(endpointCell.Find("span").Text())
		anchor := endpointCell.Find("a")
		href, ok := anchor.Attr("href")
		if method == "" || !ok {
			log.Debug("skipping reference row", "row", row.String())
			p.observer.ParseMiss("reference_row")
			continue
		}

		var doc string
		if descr := cells.Children("div"); len(descr) > 1 {
			doc = strings.TrimSpace(descr[1].Text())
		}

		docs = append(docs, models.MethodDoc{
			HTTPMethod: method,
			Endpoint:   strings.Join(strings.Fields(anchor.Text()), ""),
			DocLink:    resolveLink(baseURL, href),
			Doc:        doc,
		})
	}
	log.Debug("parsed reference", "methods", len(docs))
	return docs, nil
}

func resolveLink(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(href, "/")
}
