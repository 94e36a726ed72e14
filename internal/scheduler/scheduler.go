// Package scheduler refreshes stale sources with a bounded number of
// concurrent fetches and applies the results back to the store.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"feedshelf/internal/fetcher"
	"feedshelf/internal/model"
	"feedshelf/internal/store"
)

// Defaults used when a Config field is left at zero.
const (
	DefaultRefreshAge  = 60 * time.Minute
	DefaultMaxHistory  = 200
	DefaultConcurrency = 20

	maxErrorLen = 300
)

// Fetcher downloads and parses a single feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Result, error)
}

// Config controls staleness, retention and the fetch ceiling.
type Config struct {
	RefreshAge  time.Duration
	MaxHistory  int
	Concurrency int
}

// Options alter a single Refresh call.
type Options struct {
	// Force treats every candidate as stale.
	Force bool
}

// Failure describes a source whose fetch failed.
type Failure struct {
	SourceID string
	Err      string
}

// Report summarizes a Refresh call.
type Report struct {
	Checked   int
	Refreshed []string
	Failed    []Failure
	Fresh     int
}

// Scheduler decides which sources need fetching and merges the results.
type Scheduler struct {
	fetcher Fetcher
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Scheduler. Non-positive MaxHistory and Concurrency fall back
// to the defaults.
func New(f Fetcher, cfg Config, log *slog.Logger) *Scheduler {
	if cfg.RefreshAge < 0 {
		cfg.RefreshAge = 0
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Scheduler{
		fetcher: f,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the time source used for staleness and timestamps.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// job is the immutable snapshot a worker needs; workers never see the store.
type job struct {
	index int
	id    string
	url   string
}

type outcome struct {
	index int
	res   *fetcher.Result
	err   error
}

// Stale reports whether src needs a refresh at now.
func (s *Scheduler) Stale(src *model.Source, now time.Time) bool {
	if src.LastFetchedAt == nil {
		return true
	}
	return now.Sub(*src.LastFetchedAt) >= s.cfg.RefreshAge
}

// Refresh fetches the stale sources among indices and applies the results to
// st. Fetch failures are recorded on their source and in the report; they
// never abort the batch. Sources that are fresh are left untouched.
//
// When ctx is cancelled while fetching, nothing is applied and the context
// error is returned.
func (s *Scheduler) Refresh(ctx context.Context, st *store.Store, indices []int, opts Options) (Report, error) {
	now := s.now().UTC()
	jobs := s.plan(st, indices, now, opts)

	report := Report{Checked: len(jobs.all)}
	report.Fresh = len(jobs.all) - len(jobs.stale)
	if len(jobs.stale) == 0 {
		return report, nil
	}

	s.log.Info("refreshing sources", "count", len(jobs.stale), "fresh", report.Fresh)
	outcomes := s.fetchAll(ctx, jobs.stale)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("refresh interrupted: %w", err)
	}

	for _, o := range outcomes {
		src := &st.Sources[o.index]
		if o.err != nil {
			src.LastError = truncateError(o.err.Error())
			report.Failed = append(report.Failed, Failure{SourceID: src.ID, Err: src.LastError})
			continue
		}
		s.apply(st, src, o.res, now)
		report.Refreshed = append(report.Refreshed, src.ID)
	}

	s.log.Info("refresh complete",
		"refreshed", len(report.Refreshed),
		"failed", len(report.Failed),
	)
	return report, nil
}

type batch struct {
	all   []int
	stale []job
}

func (s *Scheduler) plan(st *store.Store, indices []int, now time.Time, opts Options) batch {
	var p batch
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(st.Sources) {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		p.all = append(p.all, idx)

		src := &st.Sources[idx]
		if !opts.Force && !s.Stale(src, now) {
			continue
		}
		p.stale = append(p.stale, job{index: idx, id: src.ID, url: src.URL})
	}
	return p
}

func (s *Scheduler) fetchAll(ctx context.Context, jobs []job) []outcome {
	results := make(chan outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			start := time.Now()
			res, err := s.fetcher.Fetch(ctx, j.url)
			if err != nil {
				s.log.Warn("fetch feed", "source_id", j.id, "url", j.url, "error", err)
			} else {
				s.log.Debug("fetched feed",
					"source_id", j.id,
					"count", len(res.Entries),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
			results <- outcome{index: j.index, res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	outcomes := make([]outcome, 0, len(jobs))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	slices.SortFunc(outcomes, func(a, b outcome) int { return cmp.Compare(a.index, b.index) })
	return outcomes
}

func (s *Scheduler) apply(st *store.Store, src *model.Source, res *fetcher.Result, now time.Time) {
	if res.Title != "" {
		src.Title = res.Title
	}
	fetched := now
	src.LastFetchedAt = &fetched
	src.LastError = ""

	entries := make([]model.Entry, len(res.Entries))
	for i, e := range res.Entries {
		e.SourceID = src.ID
		e.FirstSeenAt = now
		entries[i] = e
	}
	st.ReplaceEntries(src.ID, entries)

	if dropped := st.Trim(src.ID, s.cfg.MaxHistory); dropped > 0 {
		s.log.Debug("trimmed history", "source_id", src.ID, "count", dropped)
	}
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
