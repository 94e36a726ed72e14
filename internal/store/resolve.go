package store

import (
	"fmt"
	"strings"

	"feedshelf/internal/model"
)

type matcher func(src *model.Source, key string) bool

// resolveOrder lists the match rules in precedence order. The first rule that
// matches any source wins.
var resolveOrder = []matcher{
	func(src *model.Source, key string) bool {
		return src.Alias != "" && strings.EqualFold(src.Alias, key)
	},
	func(src *model.Source, key string) bool {
		return src.Title != "" && strings.EqualFold(src.Title, key)
	},
	func(src *model.Source, key string) bool {
		return src.ID == key
	},
	func(src *model.Source, key string) bool {
		return src.URL == key
	},
}

// Resolve maps a user-supplied key (alias, title, id or url) to a source index.
func (s *Store) Resolve(key string) (int, error) {
	for _, match := range resolveOrder {
		for i := range s.Sources {
			if match(&s.Sources[i], key) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w for %q", ErrNotFound, key)
}
