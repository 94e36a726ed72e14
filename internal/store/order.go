package store

import (
	"slices"

	"feedshelf/internal/model"
)

// SortNewestFirst orders entries by effective date, newest first. Entries
// with equal dates keep their relative order.
func SortNewestFirst(entries []model.Entry) {
	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		return b.EffectiveDate().Compare(a.EffectiveDate())
	})
}

// Newest returns up to limit entries across all sources, newest first. A
// non-positive limit returns everything.
func (s *Store) Newest(limit int) []model.Entry {
	out := slices.Clone(s.Entries)
	SortNewestFirst(out)
	return truncate(out, limit)
}

// NewestFor is Newest restricted to one source.
func (s *Store) NewestFor(sourceID string, limit int) []model.Entry {
	out := s.EntriesFor(sourceID)
	SortNewestFirst(out)
	return truncate(out, limit)
}

func truncate(entries []model.Entry, limit int) []model.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
