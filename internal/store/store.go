// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists articles in SQLite, keyed by article ID.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibmine/pkg/types"
)

const (
	defaultPath        = "data/bibmine.db"
	defaultBusyTimeout = 5 * time.Second
	defaultListLimit   = 100

	// stampLayout is fixed width so timestamps sort lexically.
	stampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the article database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the article database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT,
			raw_xml BLOB NOT NULL,
			acquired_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_updated_at ON articles(updated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert writes articles in a single transaction. An existing article with
// the same ID is refreshed in place and keeps its original acquisition time.
// Nothing is written if any row fails. The stored timestamps are written
// back into articles.
func (s *Store) Upsert(ctx context.Context, articles []types.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, source, title, raw_xml, acquired_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, title=excluded.title,
			raw_xml=excluded.raw_xml, updated_at=excluded.updated_at
		 RETURNING acquired_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	stamp := now.Format(stampLayout)
	for i := range articles {
		a := &articles[i]
		if a.ID == "" {
			return fmt.Errorf("upserting article %d: empty id", i)
		}
		if len(a.RawXML) == 0 {
			return fmt.Errorf("upserting article %s: empty raw representation", a.ID)
		}

		var acquired string
		if err := stmt.QueryRowContext(ctx, a.ID, a.Source, a.Title, a.RawXML, stamp, stamp).Scan(&acquired); err != nil {
			return fmt.Errorf("upserting article %s: %w", a.ID, err)
		}
		a.AcquiredAt = parseStamp(acquired)
		a.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing articles: %w", err)
	}
	return nil
}

// Get returns the article with the given ID, or *types.NotFoundError.
func (s *Store) Get(ctx context.Context, id string) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, title, raw_xml, acquired_at, updated_at FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading article %s: %w", id, err)
	}
	return a, nil
}

// Delete removes the article with the given ID. It reports whether a row
// existed; deleting an absent article is not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting article %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting article %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns up to limit articles, most recently updated first. The raw
// representation is not loaded.
func (s *Store) List(ctx context.Context, limit int) ([]types.Article, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, acquired_at, updated_at FROM articles
		 ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var articles []types.Article
	for rows.Next() {
		a, err := scanArticle(rows.Scan, false)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

func scanArticle(scan func(dest ...any) error, withRaw bool) (*types.Article, error) {
	var (
		a                 types.Article
		title             sql.NullString
		acquired, updated string
	)
	var err error
	if withRaw {
		err = scan(&a.ID, &a.Source, &title, &a.RawXML, &acquired, &updated)
	} else {
		err = scan(&a.ID, &a.Source, &title, &acquired, &updated)
	}
	if err != nil {
		return nil, err
	}
	a.Title = title.String
	a.AcquiredAt = parseStamp(acquired)
	a.UpdatedAt = parseStamp(updated)
	return &a, nil
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
