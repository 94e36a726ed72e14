package store

import (
	"cmp"
	"slices"

	"feedshelf/internal/model"
)

// Trim keeps only the newest maxHistory entries of sourceID, ranked by
// effective date. Between equal dates the entry stored earlier is kept.
// Entries of other sources are untouched. It returns how many were dropped.
func (s *Store) Trim(sourceID string, maxHistory int) int {
	if maxHistory < 0 {
		maxHistory = 0
	}

	var positions []int
	for i := range s.Entries {
		if s.Entries[i].SourceID == sourceID {
			positions = append(positions, i)
		}
	}
	if len(positions) <= maxHistory {
		return 0
	}

	ranked := slices.Clone(positions)
	slices.SortFunc(ranked, func(a, b int) int {
		if c := s.Entries[b].EffectiveDate().Compare(s.Entries[a].EffectiveDate()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	drop := make(map[int]struct{}, len(ranked)-maxHistory)
	for _, pos := range ranked[maxHistory:] {
		drop[pos] = struct{}{}
	}

	kept := make([]model.Entry, 0, len(s.Entries)-len(drop))
	for i, e := range s.Entries {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, e)
	}
	s.Entries = kept
	return len(drop)
}
