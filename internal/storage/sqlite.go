package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"feedshelf/internal/model"
	"feedshelf/internal/store"
	"feedshelf/migrations"
)

const timeLayout = time.RFC3339Nano

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every source and entry in stored order.
func (s *SQLite) Load(ctx context.Context) (*store.Store, error) {
	st := store.New()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, alias, title, added_at, last_fetched_at, last_error
		 FROM sources ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		st.Sources = append(st.Sources, src)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT source_id, title, link, published_at, updated_at, summary, first_seen_at
		 FROM entries ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		st.Entries = append(st.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return st, nil
}

// Save replaces both tables with the contents of st in one transaction.
func (s *SQLite) Save(ctx context.Context, st *store.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (position, id, url, alias, title, added_at, last_fetched_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare source insert: %w", err)
	}
	defer func() { _ = srcStmt.Close() }()

	for i, src := range st.Sources {
		_, err := srcStmt.ExecContext(ctx,
			i, src.ID, src.URL, src.Alias, src.Title,
			formatTime(src.AddedAt), formatOptionalTime(src.LastFetchedAt), src.LastError,
		)
		if err != nil {
			return fmt.Errorf("insert source %s: %w", src.ID, err)
		}
	}

	entryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (position, source_id, title, link, published_at, updated_at, summary, first_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer func() { _ = entryStmt.Close() }()

	for i, e := range st.Entries {
		_, err := entryStmt.ExecContext(ctx,
			i, e.SourceID, e.Title, e.Link,
			formatOptionalTime(e.PublishedAt), formatOptionalTime(e.UpdatedAt),
			e.Summary, formatTime(e.FirstSeenAt),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (model.Source, error) {
	var src model.Source
	var added string
	var lastFetched sql.NullString
	err := row.Scan(&src.ID, &src.URL, &src.Alias, &src.Title, &added, &lastFetched, &src.LastError)
	if err != nil {
		return src, fmt.Errorf("scan source: %w", err)
	}
	if src.AddedAt, err = time.Parse(timeLayout, added); err != nil {
		return src, fmt.Errorf("parse added_at of %s: %w", src.ID, err)
	}
	if src.LastFetchedAt, err = parseOptionalTime(lastFetched); err != nil {
		return src, fmt.Errorf("parse last_fetched_at of %s: %w", src.ID, err)
	}
	return src, nil
}

func scanEntry(row scannable) (model.Entry, error) {
	var e model.Entry
	var published, updated sql.NullString
	var firstSeen string
	err := row.Scan(&e.SourceID, &e.Title, &e.Link, &published, &updated, &e.Summary, &firstSeen)
	if err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	if e.PublishedAt, err = parseOptionalTime(published); err != nil {
		return e, fmt.Errorf("parse published_at: %w", err)
	}
	if e.UpdatedAt, err = parseOptionalTime(updated); err != nil {
		return e, fmt.Errorf("parse updated_at: %w", err)
	}
	if e.FirstSeenAt, err = time.Parse(timeLayout, firstSeen); err != nil {
		return e, fmt.Errorf("parse first_seen_at: %w", err)
	}
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseOptionalTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
