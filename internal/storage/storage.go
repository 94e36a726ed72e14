// Package storage persists the whole state document. It is read once at
// start-up and written once at the end of a run.
package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"feedshelf/internal/store"
)

// Storage loads and saves the full set of sources and entries.
type Storage interface {
	Load(ctx context.Context) (*store.Store, error)
	Save(ctx context.Context, st *store.Store) error
	Close() error
}

// Open picks a backend by file extension: .db, .sqlite and .sqlite3 use
// SQLite, anything else is a JSON document.
func Open(ctx context.Context, path string, log *slog.Logger) (Storage, error) {
	if IsSQLite(path) {
		log.Debug("opening sqlite state", "path", path)
		return NewSQLite(ctx, path)
	}
	log.Debug("opening json state", "path", path)
	return NewJSON(path), nil
}

// IsSQLite reports whether path names a SQLite state file.
func IsSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}
