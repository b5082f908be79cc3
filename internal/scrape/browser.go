package scrape

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a page state predicate did not hold within the timeout
	ErrTimeout = errors.New("timed out waiting for page state")
	// ErrStaleElement is returned when the located element went away while the page re-rendered
	ErrStaleElement = errors.New("stale element reference")
)

// Locator identifies a clickable element by class and visible text
type Locator struct {
	Class string
	Text  string
}

// Predicate reports whether a page snapshot is in the expected state
type Predicate func(markup string) (bool, error)

// Browser yields static page snapshots
type Browser interface {
	// Fetch loads a page and returns its markup
	Fetch(ctx context.Context, url string) (string, error)
	// ClickAndWait activates the located element of the current page and waits until pred holds
	// for the resulting page, returning its markup. It returns ErrTimeout or ErrStaleElement.
	ClickAndWait(ctx context.Context, loc Locator, pred Predicate, timeout time.Duration) (string, error)
}
