// Package filter narrows the entries shown by the read path. It never touches
// the store.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"feedshelf/internal/model"
)

type rule struct {
	kind  model.FilterKind
	scope model.FilterScope
	word  string
	re    *regexp.Regexp
}

// Rules is a compiled set of filters.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
type Rules struct {
	rules       []rule
	hasIncludes bool
}

// Compile validates filters and prepares them for matching. Regex values are
// matched case-insensitively.
func Compile(filters []model.Filter) (*Rules, error) {
	r := &Rules{rules: make([]rule, 0, len(filters))}
	for _, f := range filters {
		scope, err := ParseScope(string(f.Scope))
		if err != nil {
			return nil, err
		}
		c := rule{kind: f.Kind, scope: scope}

		switch f.Kind {
		case model.FilterInclude, model.FilterExclude:
			c.word = strings.ToLower(f.Value)
		case model.FilterIncludeRe, model.FilterExcludeRe:
			re, err := regexp.Compile("(?i)" + f.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", f.Value, err)
			}
			c.re = re
		default:
			return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
		}

		if f.Kind == model.FilterInclude || f.Kind == model.FilterIncludeRe {
			r.hasIncludes = true
		}
		r.rules = append(r.rules, c)
	}
	return r, nil
}

// ParseScope maps a flag value onto a scope. Empty means all.
func ParseScope(s string) (model.FilterScope, error) {
	switch scope := model.FilterScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case "", model.ScopeAll:
		return model.ScopeAll, nil
	case model.ScopeTitle, model.ScopeContent:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown filter scope %q", s)
	}
}

// Empty reports whether no rules are set.
func (r *Rules) Empty() bool {
	return r == nil || len(r.rules) == 0
}

// Match checks whether an entry passes the rules. With no rules every entry
// passes.
func (r *Rules) Match(e *model.Entry) bool {
	if r.Empty() {
		return true
	}

	anyIncludeMatched := false
	for i := range r.rules {
		c := &r.rules[i]
		hit := c.matches(e)
		switch c.kind {
		case model.FilterInclude, model.FilterIncludeRe:
			if hit {
				anyIncludeMatched = true
			}
		case model.FilterExclude, model.FilterExcludeRe:
			if hit {
				return false
			}
		}
	}

	return !r.hasIncludes || anyIncludeMatched
}

// Apply returns the entries that pass, keeping their order.
func (r *Rules) Apply(entries []model.Entry) []model.Entry {
	if r.Empty() {
		return entries
	}
	out := make([]model.Entry, 0, len(entries))
	for i := range entries {
		if r.Match(&entries[i]) {
			out = append(out, entries[i])
		}
	}
	return out
}

func (c *rule) matches(e *model.Entry) bool {
	text := textForScope(e, c.scope)
	if c.re != nil {
		return c.re.MatchString(text)
	}
	return strings.Contains(text, c.word)
}

func textForScope(e *model.Entry, scope model.FilterScope) string {
	switch scope {
	case model.ScopeTitle:
		return strings.ToLower(e.Title)
	case model.ScopeContent:
		return strings.ToLower(e.Summary)
	default:
		return strings.ToLower(e.Title + " " + e.Summary)
	}
}
