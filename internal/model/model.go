// Package model defines the domain types used across the application.
package model

import "time"

// Source represents a subscribed feed.
type Source struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Alias         string     `json:"alias,omitempty"`
	Title         string     `json:"title,omitempty"`
	AddedAt       time.Time  `json:"added_at"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// Label returns the name shown for a source: alias, else title, else id.
func (s *Source) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}

// Entry is a single article belonging to a source.
type Entry struct {
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
}

// EffectiveDate returns the published time, else the updated time, else the
// time the entry was first seen.
func (e *Entry) EffectiveDate() time.Time {
	if e.PublishedAt != nil {
		return *e.PublishedAt
	}
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	return e.FirstSeenAt
}

// FilterKind defines the type of filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of an entry a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeTitle   FilterScope = "title"
	ScopeContent FilterScope = "content"
	ScopeAll     FilterScope = "all"
)

// Filter is a single read-side matching rule applied when showing entries.
type Filter struct {
	Kind  FilterKind
	Scope FilterScope
	Value string
}
