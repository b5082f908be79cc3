package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xcono/webexdocs/internal/models"
)

// SectionDiff lists the methods added to and removed from one section
type SectionDiff struct {
	Section string   `json:"section"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// DiffReport compares two documents
type DiffReport struct {
	AddedSections   []string      `json:"added_sections,omitempty"`
	RemovedSections []string      `json:"removed_sections,omitempty"`
	Changed         []SectionDiff `json:"changed,omitempty"`
}

// Empty reports whether both documents list the same sections and methods
func (r *DiffReport) Empty() bool {
	return len(r.AddedSections) == 0 && len(r.RemovedSections) == 0 && len(r.Changed) == 0
}

// Format renders the report for the terminal
func (r *DiffReport) Format() string {
	if r.Empty() {
		return "no changes\n"
	}
	var b strings.Builder
	for _, s := range r.AddedSections {
		fmt.Fprintf(&b, "+ section %s\n", s)
	}
	for _, s := range r.RemovedSections {
		fmt.Fprintf(&b, "- section %s\n", s)
	}
	for _, c := range r.Changed {
		fmt.Fprintf(&b, "~ section %s\n", c.Section)
		for _, m := range c.Added {
			fmt.Fprintf(&b, "  + %s\n", m)
		}
		for _, m := range c.Removed {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	return b.String()
}

// Diff compares the sections and methods of two documents. Methods are keyed by HTTP method and endpoint.
func Diff(baseline, current *models.Schema) *DiffReport {
	report := &DiffReport{}

	for _, section := range current.Sections() {
		if _, ok := baseline.Docs[section]; !ok {
			report.AddedSections = append(report.AddedSections, section)
		}
	}
	for _, section := range baseline.Sections() {
		methods, ok := current.Docs[section]
		if !ok {
			report.RemovedSections = append(report.RemovedSections, section)
			continue
		}

		before := methodKeys(baseline.Docs[section])
		after := methodKeys(methods)
		sd := SectionDiff{Section: section}
		for key := range after {
			if !before[key] {
				sd.Added = append(sd.Added, key)
			}
		}
		for key := range before {
			if !after[key] {
				sd.Removed = append(sd.Removed, key)
			}
		}
		if len(sd.Added) > 0 || len(sd.Removed) > 0 {
			sort.Strings(sd.Added)
			sort.Strings(sd.Removed)
			report.Changed = append(report.Changed, sd)
		}
	}
	return report
}

func methodKeys(methods []*models.MethodDetails) map[string]bool {
	keys := make(map[string]bool, len(methods))
	for _, m := range methods {
		keys[m.Documentation.Key()] = true
	}
	return keys
}

// Merge combines a fresh scrape with a baseline. Sections scraped with methods replace
// the baseline's; sections the scrape only carries as empty placeholders keep the baseline's methods.
func Merge(baseline, current *models.Schema) *models.Schema {
	merged := models.NewSchema()
	merged.Info = current.Info
	for section, methods := range baseline.Docs {
		merged.Docs[section] = methods
	}
	for section, methods := range current.Docs {
		if len(methods) == 0 {
			if _, ok := merged.Docs[section]; ok {
				continue
			}
		}
		merged.Docs[section] = methods
	}
	return merged
}
