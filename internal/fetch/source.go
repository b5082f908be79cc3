// Package fetch provides page snapshot sources and a Browser that navigates them.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xcono/webexdocs/internal/store"
)

// DefaultUserAgent is sent by HTTPSource when none is configured
const DefaultUserAgent = "webexdocs/1.0"

// Source returns the markup of a page
type Source interface {
	Get(ctx context.Context, url string) (string, error)
}

// HTTPSource fetches pages over HTTP
type HTTPSource struct {
	client    *http.Client
	userAgent string
}

func NewHTTPSource(client *http.Client, userAgent string) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPSource{client: client, userAgent: userAgent}
}

func (s *HTTPSource) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// DirSource serves saved page snapshots from a directory. The URL path /a/b maps to
// <root>/a/b.html or <root>/a/b/index.html.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

func (s *DirSource) Get(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.Path(rawURL)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	return string(data), nil
}

// Path resolves the snapshot file for a URL
func (s *DirSource) Path(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	rel := strings.Trim(u.Path, "/")
	if rel == "" {
		rel = "index"
	}
	rel = filepath.FromSlash(rel)

	candidates := []string{
		filepath.Join(s.root, rel+".html"),
		filepath.Join(s.root, rel, "index.html"),
	}
	if strings.HasSuffix(rel, ".html") {
		candidates = append([]string{filepath.Join(s.root, rel)}, candidates...)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("no snapshot for %s: %w", rawURL, os.ErrNotExist)
}

// CachedSource serves pages from the store while they are younger than ttl
type CachedSource struct {
	src   Source
	store store.Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedSource(src Source, st store.Store, ttl time.Duration, log *slog.Logger) *CachedSource {
	if log == nil {
		log = slog.Default()
	}
	return &CachedSource{src: src, store: st, ttl: ttl, log: log.With("component", "cache")}
}

func (s *CachedSource) Get(ctx context.Context, url string) (string, error) {
	page, err := s.store.GetPage(ctx, url)
	switch {
	case err == nil && time.Since(page.FetchedAt) < s.ttl:
		s.log.Debug("cache hit", "url", url)
		return page.Body, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.log.Warn("cache read failed", "url", url, "error", err)
	}

	body, err := s.src.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if err := s.store.SavePage(ctx, url, body); err != nil {
		s.log.Warn("cache write failed", "url", url, "error", err)
	}
	return body, nil
}
