package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/scrape"
	"github.com/xcono/webexdocs/internal/store"
)

const menu = `<ul>
<li class="md-submenu__item"><a href="/docs/api/v1/locations">Locations</a></li>
<li class="md-submenu__item" href="/docs/api/v1/rooms">Rooms</li>
<li class="md-submenu__item">Broken</li>
</ul>`

func page(header string) string {
	return fmt.Sprintf(`<html><body>%s<div class="api_reference_entry__container"><h3>%s</h3></div></body></html>`, menu, header)
}

func hasHeader(header string) scrape.Predicate {
	return func(markup string) (bool, error) {
		return strings.Contains(markup, "<h3>"+header+"</h3>"), nil
	}
}

type countingRecorder struct{ pages int32 }

func (r *countingRecorder) PageFetched() { atomic.AddInt32(&r.pages, 1) }

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != DefaultUserAgent {
			http.Error(w, "unexpected user agent", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page("Reference"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.Client(), "")
	markup, err := src.Get(context.Background(), srv.URL+"/docs")
	require.NoError(t, err)
	assert.Contains(t, markup, "<h3>Reference</h3>")

	_, err = src.Get(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status code: 404")
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "api", "v1", "rooms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "api", "v1", "locations.html"), []byte("locations"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "api", "v1", "rooms", "index.html"), []byte("rooms"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("home"), 0o644))

	src := NewDirSource(root)
	ctx := context.Background()

	tests := map[string]string{
		"https://developer.webex.com/docs/api/v1/locations":  "locations",
		"https://developer.webex.com/docs/api/v1/rooms/":     "rooms",
		"https://developer.webex.com/":                       "home",
		"https://developer.webex.com/docs/api/v1/locations#": "locations",
	}
	for u, expected := range tests {
		got, err := src.Get(ctx, u)
		require.NoError(t, err, u)
		assert.Equal(t, expected, got, u)
	}

	_, err := src.Get(ctx, "https://developer.webex.com/docs/api/v1/people")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBrowserClickAndWait(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/docs/api/v1/locations":
			// the listing only renders on the third request
			if atomic.AddInt32(&hits, 1) < 3 {
				fmt.Fprint(w, page("Reference"))
				return
			}
			fmt.Fprint(w, page("Locations"))
		default:
			fmt.Fprint(w, page("Reference"))
		}
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	b := NewBrowser(NewHTTPSource(srv.Client(), ""), WithPollInterval(time.Millisecond), WithRecorder(rec))
	ctx := context.Background()

	_, err := b.Fetch(ctx, srv.URL+"/docs/api/getting-started")
	require.NoError(t, err)

	markup, err := b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Locations"}, hasHeader("Locations"), time.Second)
	require.NoError(t, err)
	assert.Contains(t, markup, "<h3>Locations</h3>")
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.EqualValues(t, 4, atomic.LoadInt32(&rec.pages))

	// the element's own href is followed too
	_, err = b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Rooms"}, hasHeader("Reference"), time.Second)
	require.NoError(t, err)
}

func TestBrowserTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Reference"))
	}))
	defer srv.Close()

	b := NewBrowser(NewHTTPSource(srv.Client(), ""), WithPollInterval(5*time.Millisecond))
	ctx := context.Background()
	_, err := b.Fetch(ctx, srv.URL+"/docs")
	require.NoError(t, err)

	_, err = b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Locations"}, hasHeader("Never"), 30*time.Millisecond)
	assert.ErrorIs(t, err, scrape.ErrTimeout)
}

func TestBrowserStaleElement(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs.html"), []byte(page("Reference")), 0o644))

	b := NewBrowser(NewDirSource(root))
	ctx := context.Background()
	_, err := b.Fetch(ctx, "https://developer.webex.com/docs")
	require.NoError(t, err)

	_, err = b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Webhooks"}, hasHeader("Webhooks"), time.Second)
	assert.ErrorIs(t, err, scrape.ErrStaleElement)

	_, err = b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Broken"}, hasHeader("Broken"), time.Second)
	assert.ErrorIs(t, err, scrape.ErrStaleElement)
}

func TestBrowserCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Reference"))
	}))
	defer srv.Close()

	b := NewBrowser(NewHTTPSource(srv.Client(), ""), WithPollInterval(10*time.Millisecond))
	_, err := b.Fetch(context.Background(), srv.URL+"/docs")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = b.ClickAndWait(ctx, scrape.Locator{Class: "md-submenu__item", Text: "Locations"}, hasHeader("Never"), time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCachedSource(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		fmt.Fprintf(w, "body %d", n)
	}))
	defer srv.Close()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	cached := NewCachedSource(NewHTTPSource(srv.Client(), ""), st, time.Hour, nil)

	first, err := cached.Get(ctx, srv.URL+"/a")
	require.NoError(t, err)
	second, err := cached.Get(ctx, srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, "body 1", first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	expired := NewCachedSource(NewHTTPSource(srv.Client(), ""), st, 0, nil)
	third, err := expired.Get(ctx, srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, "body 2", third)
}

const roomPage = `<div class="api-reference__description"><div class="intro"><h4>Get Room Details</h4><div><p>Shows details for a room.</p></div></div>` +
	`<div class="section"><h6>URI Parameters</h6><div class="vertical-up">` +
	`<div class="param"><div class="nt"><div class="n">roomId</div><div class="t"><span>string</span></div></div><div class="spec"><p>The room.</p></div></div>` +
	`</div></div><div class="codes"></div></div>`

func TestScraperTrailingDotDirSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "api", "v1", "rooms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "api", "v1", "rooms", "get-room-details.html"), []byte(roomPage), 0o644))

	s := scrape.New(NewBrowser(NewDirSource(root)), nil, scrape.Options{})
	md, err := s.MethodDetails(context.Background(), models.MethodDoc{
		HTTPMethod: "GET",
		Endpoint:   "https://webexapis.com/v1/rooms/{roomId}",
		DocLink:    "https://developer.webex.com/docs/api/v1/rooms/get-room-details.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Get Room Details", md.Header)
	assert.Len(t, md.ParametersAndResponse["URI Parameters"], 1)
}

func TestScraperTrailingDotHTTPSource(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/docs/api/v1/rooms/get-room-details" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, roomPage)
	}))
	defer srv.Close()

	s := scrape.New(NewBrowser(NewHTTPSource(srv.Client(), "")), nil, scrape.Options{})
	md, err := s.MethodDetails(context.Background(), models.MethodDoc{DocLink: srv.URL + "/docs/api/v1/rooms/get-room-details."})
	require.NoError(t, err)
	assert.Equal(t, "Get Room Details", md.Header)
	assert.Equal(t, []string{"/docs/api/v1/rooms/get-room-details.", "/docs/api/v1/rooms/get-room-details"}, paths)

	// links without the trailing period are fetched once
	paths = nil
	_, err = s.MethodDetails(context.Background(), models.MethodDoc{DocLink: srv.URL + "/docs/api/v1/rooms/missing"})
	assert.ErrorContains(t, err, "status code: 404")
	assert.Len(t, paths, 1)
}
