package store

import (
	"context"
	"errors"
	"time"
)

// ErrMissingID is returned when an operation needs a run id and none was given
var ErrMissingID = errors.New("missing run id")

// ErrNotFound is returned when a cached page does not exist
var ErrNotFound = errors.New("not found")

// Page is a cached page snapshot
type Page struct {
	URL       string    `json:"url"`
	Body      string    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Run records one scrape run
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	Sections   int        `json:"sections"`
	Methods    int        `json:"methods"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type Store interface {
	GetPage(ctx context.Context, url string) (*Page, error)
	SavePage(ctx context.Context, url, body string) error

	CreateRun(ctx context.Context, source string) (*Run, error)
	FinishRun(ctx context.Context, id, status string, sections, methods int) error
	ListRuns(ctx context.Context) ([]Run, error)

	Close() error
}
