package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"feedshelf/internal/model"
	"feedshelf/internal/store"
)

type document struct {
	Sources []model.Source `json:"sources"`
	Entries []model.Entry  `json:"entries"`
}

// JSON implements Storage as a single JSON file.
type JSON struct {
	path string
}

// NewJSON returns a JSON backend for path. The file is not touched until
// Load or Save.
func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

// Load reads the document. A missing or blank file yields an empty store.
func (j *JSON) Load(_ context.Context) (*store.Store, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return store.New(), nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", j.path, err)
	}
	return &store.Store{Sources: doc.Sources, Entries: doc.Entries}, nil
}

// Save writes the document to a temp file next to the target and renames it
// into place.
func (j *JSON) Save(_ context.Context, st *store.Store) error {
	doc := document{Sources: st.Sources, Entries: st.Entries}
	if doc.Sources == nil {
		doc.Sources = []model.Source{}
	}
	if doc.Entries == nil {
		doc.Entries = []model.Entry{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(j.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (j *JSON) Close() error {
	return nil
}
