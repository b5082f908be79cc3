package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			url TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			sections INTEGER NOT NULL DEFAULT 0,
			methods INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetPage(ctx context.Context, url string) (*Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT url,body,fetched_at FROM pages WHERE url=?`, url)
	var p Page
	if err := row.Scan(&p.URL, &p.Body, &p.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading page %s: %w", url, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SavePage(ctx context.Context, url, body string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pages(url,body,fetched_at) VALUES(?,?,?)
	ON CONFLICT(url) DO UPDATE SET body=excluded.body,fetched_at=excluded.fetched_at`,
		url, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error saving page %s: %w", url, err)
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*Run, error) {
	run := &Run{ID: uuid.New().String(), Source: source, Status: "running", StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(id,source,status,started_at) VALUES(?,?,?,?)`,
		run.ID, run.Source, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id, status string, sections, methods int) error {
	if id == "" {
		return ErrMissingID
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, sections=?, methods=?, finished_at=? WHERE id=?`,
		status, sections, methods, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error finishing run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,source,status,sections,methods,started_at,finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.Sections, &r.Methods, &r.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
