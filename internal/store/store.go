// Package store holds the in-memory state of subscribed sources and their
// entries for the lifetime of a single run.
package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"feedshelf/internal/model"
)

// Errors returned by store operations.
var (
	ErrDuplicateFeed = errors.New("feed already exists")
	ErrNotFound      = errors.New("no matching feed")
	ErrEmptyAlias    = errors.New("alias cannot be empty")
	ErrAliasInUse    = errors.New("alias is already in use")
	ErrInvalidURL    = errors.New("feed URL looks invalid")
)

// Store is the full document: every source and every entry. It is loaded once,
// mutated by commands and the refresh scheduler, and saved once.
type Store struct {
	Sources []model.Source
	Entries []model.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// NewSource builds a source for url. The id is the alias when one is given,
// otherwise a slug of the URL.
func NewSource(rawURL, alias string, now time.Time) (model.Source, error) {
	feedURL := strings.TrimSpace(rawURL)
	u, err := url.ParseRequestURI(feedURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return model.Source{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	alias = strings.TrimSpace(alias)
	id := alias
	if id == "" {
		id = SlugURL(feedURL)
	}

	return model.Source{
		ID:      id,
		URL:     feedURL,
		Alias:   alias,
		AddedAt: now.UTC(),
	}, nil
}

// SlugURL derives a source id from a feed URL: the scheme is dropped, a
// trailing slash is trimmed and the remaining slashes become dashes.
func SlugURL(feedURL string) string {
	s := strings.TrimPrefix(feedURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	return strings.ReplaceAll(s, "/", "-")
}

// Add appends src. It fails with ErrDuplicateFeed when another source has the
// same URL or id, or an alias equal to src's ignoring case.
func (s *Store) Add(src model.Source) error {
	for i := range s.Sources {
		existing := &s.Sources[i]
		if existing.URL == src.URL || existing.ID == src.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateFeed, src.URL)
		}
		if src.Alias != "" && strings.EqualFold(existing.Alias, src.Alias) {
			return fmt.Errorf("%w: alias %q", ErrDuplicateFeed, src.Alias)
		}
	}
	s.Sources = append(s.Sources, src)
	return nil
}

// Remove deletes the source matching key together with all of its entries.
func (s *Store) Remove(key string) (model.Source, error) {
	idx, err := s.Resolve(key)
	if err != nil {
		return model.Source{}, err
	}

	removed := s.Sources[idx]
	s.Sources = append(s.Sources[:idx], s.Sources[idx+1:]...)
	s.deleteEntries(removed.ID)
	return removed, nil
}

// Rename sets the alias and id of the source matching key to newAlias and
// repoints every entry owned by the old id.
func (s *Store) Rename(key, newAlias string) (model.Source, error) {
	newAlias = strings.TrimSpace(newAlias)
	if newAlias == "" {
		return model.Source{}, ErrEmptyAlias
	}

	idx, err := s.Resolve(key)
	if err != nil {
		return model.Source{}, err
	}

	for i := range s.Sources {
		if i == idx {
			continue
		}
		other := &s.Sources[i]
		if strings.EqualFold(other.Alias, newAlias) || other.ID == newAlias {
			return model.Source{}, fmt.Errorf("%w: %q", ErrAliasInUse, newAlias)
		}
	}

	target := &s.Sources[idx]
	oldID := target.ID
	target.Alias = newAlias
	target.ID = newAlias

	for i := range s.Entries {
		if s.Entries[i].SourceID == oldID {
			s.Entries[i].SourceID = newAlias
		}
	}
	return *target, nil
}

// All returns the index of every source, in order.
func (s *Store) All() []int {
	indices := make([]int, len(s.Sources))
	for i := range s.Sources {
		indices[i] = i
	}
	return indices
}

// EntriesFor returns a copy of the entries owned by sourceID, in stored order.
func (s *Store) EntriesFor(sourceID string) []model.Entry {
	var out []model.Entry
	for _, e := range s.Entries {
		if e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out
}

// CountFor returns how many entries sourceID owns.
func (s *Store) CountFor(sourceID string) int {
	n := 0
	for i := range s.Entries {
		if s.Entries[i].SourceID == sourceID {
			n++
		}
	}
	return n
}

// ReplaceEntries drops every entry owned by sourceID and appends entries.
// Entries of other sources keep their relative order.
func (s *Store) ReplaceEntries(sourceID string, entries []model.Entry) {
	s.deleteEntries(sourceID)
	s.Entries = append(s.Entries, entries...)
}

// Failing returns the sources among indices that carry a last error.
func (s *Store) Failing(indices []int) []model.Source {
	var out []model.Source
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.Sources) {
			continue
		}
		if s.Sources[idx].LastError != "" {
			out = append(out, s.Sources[idx])
		}
	}
	return out
}

// LabelFor returns the display label of the source owning sourceID, or the id
// itself when no such source exists.
func (s *Store) LabelFor(sourceID string) string {
	for i := range s.Sources {
		if s.Sources[i].ID == sourceID {
			return s.Sources[i].Label()
		}
	}
	return sourceID
}

func (s *Store) deleteEntries(sourceID string) {
	kept := s.Entries[:0]
	for _, e := range s.Entries {
		if e.SourceID != sourceID {
			kept = append(kept, e)
		}
	}
	clear(s.Entries[len(kept):])
	s.Entries = kept
}
