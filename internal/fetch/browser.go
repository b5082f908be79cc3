package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xcono/webexdocs/internal/dom"
	"github.com/xcono/webexdocs/internal/scrape"
)

// DefaultPollInterval is the delay between two predicate checks in ClickAndWait
const DefaultPollInterval = 250 * time.Millisecond

// Recorder is notified about every page load
type Recorder interface {
	PageFetched()
}

// Browser implements scrape.Browser over a Source. Clicking an element follows its link.
type Browser struct {
	src          Source
	pollInterval time.Duration
	log          *slog.Logger
	recorder     Recorder

	mu         sync.Mutex
	currentURL string
	current    string
}

var _ scrape.Browser = (*Browser)(nil)

type BrowserOption func(*Browser)

func WithPollInterval(d time.Duration) BrowserOption {
	return func(b *Browser) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

func WithLogger(log *slog.Logger) BrowserOption {
	return func(b *Browser) {
		if log != nil {
			b.log = log
		}
	}
}

func WithRecorder(r Recorder) BrowserOption {
	return func(b *Browser) {
		b.recorder = r
	}
}

func NewBrowser(src Source, opts ...BrowserOption) *Browser {
	b := &Browser{
		src:          src,
		pollInterval: DefaultPollInterval,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("component", "browser")
	return b
}

// Fetch loads a page and makes it the current page
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	markup, err := b.get(ctx, url)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.currentURL, b.current = url, markup
	b.mu.Unlock()
	return markup, nil
}

// ClickAndWait finds the element matching loc in the current page, follows its link and
// polls the target until pred holds or timeout elapses
func (b *Browser) ClickAndWait(ctx context.Context, loc scrape.Locator, pred scrape.Predicate, timeout time.Duration) (string, error) {
	b.mu.Lock()
	base, page := b.currentURL, b.current
	b.mu.Unlock()

	target, err := b.locate(base, page, loc)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(timeout)
	for {
		markup, err := b.get(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			b.log.Debug("poll failed", "url", target, "error", err)
		} else {
			ok, err := pred(markup)
			if err != nil {
				return "", err
			}
			if ok {
				b.mu.Lock()
				b.currentURL, b.current = target, markup
				b.mu.Unlock()
				return markup, nil
			}
		}

		if !time.Now().Add(b.pollInterval).Before(deadline) {
			return "", fmt.Errorf("%w: %s after %s", scrape.ErrTimeout, target, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.pollInterval):
		}
	}
}

// locate returns the absolute link of the first element with the locator's class and text
func (b *Browser) locate(base, page string, loc scrape.Locator) (string, error) {
	root, err := dom.Parse(page)
	if err != nil {
		return "", err
	}
	for _, n := range root.FindAll("." + loc.Class) {
		if strings.TrimSpace(n.Text()) != loc.Text {
			continue
		}
		href, ok := n.Attr("href")
		if !ok {
			href, ok = n.Find("a[href]").Attr("href")
		}
		if !ok {
			return "", fmt.Errorf("%w: %q has no link", scrape.ErrStaleElement, loc.Text)
		}
		return resolve(base, href)
	}
	return "", fmt.Errorf("%w: %q not found", scrape.ErrStaleElement, loc.Text)
}

func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if ref.IsAbs() || base == "" {
		return href, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

func (b *Browser) get(ctx context.Context, url string) (string, error) {
	markup, err := b.src.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if b.recorder != nil {
		b.recorder.PageFetched()
	}
	return markup, nil
}
