package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/parse"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultStaleRetries = 3
)

// DefaultIgnore lists menu groups that do not follow the standard reference layout
var DefaultIgnore = []string{
	"BroadWorks Billing Reports",
	"BroadWorks Device Provisioning",
	"BroadWorks Enterprises",
	"BroadWorks Subscribers",
	"Recording Report",
	"Video Mesh",
	"Wholesale Billing Reports",
	"Wholesale Customers",
	"Wholesale Subscribers",
}

// Options configures a Scraper
type Options struct {
	ReferenceURL string
	BaseURL      string
	Timeout      time.Duration
	StaleRetries int

	// Ignore is used when there is no baseline; nil means DefaultIgnore
	Ignore []string
	// Only restricts scraping to the named sections when there is no baseline
	Only []string

	Baseline *models.Schema
	NewOnly  bool

	Logger   *slog.Logger
	Recorder Recorder
}

// Recorder receives scrape progress, e.g. to feed metrics
type Recorder interface {
	SectionDone(status string)
	MethodDone(status string)
}

type nopRecorder struct{}

func (nopRecorder) SectionDone(string) {}
func (nopRecorder) MethodDone(string)  {}

// Scraper walks the reference menu and collects method details into a schema
type Scraper struct {
	browser  Browser
	parser   *parse.Parser
	opts     Options
	log      *slog.Logger
	recorder Recorder
}

// New creates a scraper
func New(browser Browser, parser *parse.Parser, opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StaleRetries <= 0 {
		opts.StaleRetries = DefaultStaleRetries
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	if parser == nil {
		parser = parse.NewParser()
	}

	s := &Scraper{
		browser:  browser,
		parser:   parser,
		opts:     opts,
		log:      opts.Logger,
		recorder: opts.Recorder,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	s.log = s.log.With("component", "scrape")
	return s
}

// Skip reports whether a section is left out of the scrape
func (s *Scraper) Skip(section string) bool {
	baseline := s.opts.Baseline
	if baseline == nil {
		if slices.Contains(s.opts.Ignore, section) {
			return true
		}
		return len(s.opts.Only) > 0 && !slices.Contains(s.opts.Only, section)
	}

	methods, ok := baseline.Docs[section]
	if s.opts.NewOnly {
		return ok
	}
	// an empty list marks a group the baseline excluded on purpose
	return ok && len(methods) == 0
}

// Sections reads the reference menu and lists the methods of every section.
// Skipped sections are returned without methods; sections that fail to load are omitted.
func (s *Scraper) Sections(ctx context.Context) ([]models.SectionDoc, error) {
	page, err := s.browser.Fetch(ctx, s.opts.ReferenceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference page: %w", err)
	}

	items, err := parse.ParseMenu(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference menu: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no menu items found on %s", s.opts.ReferenceURL)
	}

	previous, _ := parse.ContainerHeader(page)

	var sections []models.SectionDoc
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := s.log.With("section", item.Text)
		if s.Skip(item.Text) {
			log.Info("skipping section")
			sections = append(sections, models.SectionDoc{MenuText: item.Text})
			s.recorder.SectionDone("skipped")
			continue
		}

		markup, err := s.openSection(ctx, item, previous)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrTimeout) {
				log.Error("section did not load", "error", err)
				s.recorder.SectionDone("timeout")
			} else {
				log.Error("failed to open section", "error", err)
				s.recorder.SectionDone("failed")
			}
			continue
		}
		if header, ok := parse.ContainerHeader(markup); ok {
			previous = header
		}

		methods, err := s.parser.ParseReference(markup, item.Text, s.opts.BaseURL)
		if err != nil {
			log.Error("failed to parse method listing", "error", err)
			s.recorder.SectionDone("failed")
			continue
		}

		log.Info("section listed", "methods", len(methods))
		sections = append(sections, models.SectionDoc{MenuText: item.Text, Methods: methods})
		s.recorder.SectionDone("scraped")
	}
	return sections, nil
}

// openSection clicks a menu item and waits for the listing header to change
func (s *Scraper) openSection(ctx context.Context, item parse.MenuItem, previous string) (string, error) {
	loc := Locator{Class: parse.ClassMenuItem, Text: item.Text}
	changed := func(markup string) (bool, error) {
		header, ok := parse.ContainerHeader(markup)
		return ok && header != previous, nil
	}

	var err error
	for attempt := 1; attempt <= s.opts.StaleRetries; attempt++ {
		var markup string
		markup, err = s.browser.ClickAndWait(ctx, loc, changed, s.opts.Timeout)
		if err == nil {
			return markup, nil
		}
		if !errors.Is(err, ErrStaleElement) {
			return "", err
		}
		s.log.Debug("stale element", "section", item.Text, "attempt", attempt)
	}
	return "", fmt.Errorf("%w: still stale after %d attempts: %v", ErrTimeout, s.opts.StaleRetries, err)
}

// MethodDetails fetches and parses the documentation page of one method
func (s *Scraper) MethodDetails(ctx context.Context, doc models.MethodDoc) (*models.MethodDetails, error) {
	details, err := s.methodDetails(ctx, doc.DocLink, doc)
	if err != nil && ctx.Err() == nil && strings.HasSuffix(doc.DocLink, ".") {
		// some listing links carry a spurious trailing period; the dotted page either
		// fails to load or renders without a description
		link := strings.TrimRight(doc.DocLink, ".")
		s.log.Info("retrying without trailing dot", "link", link, "error", err)
		details, err = s.methodDetails(ctx, link, doc)
	}
	return details, err
}

func (s *Scraper) methodDetails(ctx context.Context, link string, doc models.MethodDoc) (*models.MethodDetails, error) {
	page, err := s.browser.Fetch(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	details, err := s.parser.ParseHTML(page, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", link, err)
	}
	return details, nil
}

// Run scrapes all sections and their methods into a schema
func (s *Scraper) Run(ctx context.Context) (*models.Schema, error) {
	sections, err := s.Sections(ctx)
	if err != nil {
		return nil, err
	}

	schema := models.NewSchema()
	for _, section := range sections {
		log := s.log.With("section", section.MenuText)
		details := make([]*models.MethodDetails, 0, len(section.Methods))
		for _, m := range section.Methods {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			md, err := s.MethodDetails(ctx, m)
			if err != nil {
				log.Error("dropping method", "method", m.Key(), "error", err)
				s.recorder.MethodDone("failed")
				continue
			}
			details = append(details, md)
			s.recorder.MethodDone("ok")
		}
		schema.Docs[section.MenuText] = details
		log.Info("section scraped", "methods", len(details))
	}
	return schema, nil
}
