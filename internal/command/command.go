// Package command implements the user-facing operations on a loaded store.
// Every method mutates the in-memory store only; persisting it is up to the
// caller.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"feedshelf/internal/filter"
	"feedshelf/internal/model"
	"feedshelf/internal/opml"
	"feedshelf/internal/render"
	"feedshelf/internal/scheduler"
	"feedshelf/internal/store"
)

const exportTitle = "feedshelf subscriptions"

// ErrPushDisabled is returned by Push when no Telegram chat is configured.
var ErrPushDisabled = errors.New("telegram push is not configured: set telegram.bot_token and telegram.chat_id")

// Pusher delivers entries to an external chat.
type Pusher interface {
	Push(ctx context.Context, entries []model.Entry, labelFor func(sourceID string) string) (int, error)
}

// Runner executes commands against a single store.
type Runner struct {
	st        *store.Store
	sched     *scheduler.Scheduler
	out       *render.Printer
	log       *slog.Logger
	pusher    Pusher
	stateFile string
	now       func() time.Time
}

// Deps groups the collaborators of a Runner. Pusher may be nil.
type Deps struct {
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Printer   *render.Printer
	Log       *slog.Logger
	Pusher    Pusher
	StateFile string
}

// New creates a Runner.
func New(d Deps) *Runner {
	return &Runner{
		st:        d.Store,
		sched:     d.Scheduler,
		out:       d.Printer,
		log:       d.Log,
		pusher:    d.Pusher,
		stateFile: d.StateFile,
		now:       time.Now,
	}
}

// Subscribe adds a source for url with an optional alias.
func (r *Runner) Subscribe(url, alias string) error {
	src, err := store.NewSource(url, alias, r.now())
	if err != nil {
		return err
	}
	if err := r.st.Add(src); err != nil {
		return err
	}
	r.log.Info("subscribed", "source_id", src.ID, "url", src.URL)
	r.out.Printf("Subscribed to %s", src.URL)
	return nil
}

// Unsubscribe removes the source matching key and all of its entries.
func (r *Runner) Unsubscribe(key string) error {
	removed, err := r.st.Remove(key)
	if err != nil {
		return err
	}
	r.log.Info("unsubscribed", "source_id", removed.ID)
	r.out.Printf("Unsubscribed %s", key)
	return nil
}

// List prints every source with its fetch status.
func (r *Runner) List() {
	r.out.Sources(r.st.Sources)
}

// Show refreshes what is stale and prints the newest entries. With an empty
// key it covers all sources, otherwise only the source matching key. rules
// filter the printed entries without touching the store.
func (r *Runner) Show(ctx context.Context, key string, limit int, rules *filter.Rules) error {
	if key == "" {
		if len(r.st.Sources) == 0 {
			r.out.Hint()
			return nil
		}
		all := r.st.All()
		if _, err := r.sched.Refresh(ctx, r.st, all, scheduler.Options{}); err != nil {
			return err
		}
		r.out.Entries(head(rules.Apply(r.st.Newest(0)), limit), r.st.LabelFor)
		r.out.Warnings(r.st.Failing(all))
		return nil
	}

	idx, err := r.st.Resolve(key)
	if err != nil {
		return err
	}
	if _, err := r.sched.Refresh(ctx, r.st, []int{idx}, scheduler.Options{}); err != nil {
		return err
	}
	id := r.st.Sources[idx].ID
	r.out.Entries(head(rules.Apply(r.st.NewestFor(id, 0)), limit), r.st.LabelFor)
	r.out.Warnings(r.st.Failing([]int{idx}))
	return nil
}

// Refresh fetches the stale sources among keys, or among all sources when
// keys is empty. Every key is resolved before anything is fetched, and keys
// naming the same source count once.
func (r *Runner) Refresh(ctx context.Context, keys []string, force bool) error {
	if len(r.st.Sources) == 0 {
		r.out.Printf("No feeds subscribed.")
		return nil
	}

	indices := r.st.All()
	if len(keys) > 0 {
		indices = indices[:0]
		for _, key := range keys {
			idx, err := r.st.Resolve(key)
			if err != nil {
				return err
			}
			if !slices.Contains(indices, idx) {
				indices = append(indices, idx)
			}
		}
	}

	report, err := r.sched.Refresh(ctx, r.st, indices, scheduler.Options{Force: force})
	if err != nil {
		return err
	}
	r.out.Printf("Refreshed %d source(s), %d failed, %d already fresh.",
		len(report.Refreshed), len(report.Failed), report.Fresh)
	r.out.Warnings(r.st.Failing(indices))
	return nil
}

// Rename changes the alias and id of the source matching key.
func (r *Runner) Rename(key, alias string) error {
	src, err := r.st.Rename(key, alias)
	if err != nil {
		return err
	}
	r.out.Printf("Renamed %s to alias %s", key, src.Alias)
	return nil
}

// Import subscribes to every feed outline in the OPML file at path. Outlines
// that are already subscribed or carry an unusable URL are skipped.
func (r *Runner) Import(path string) error {
	f, err := os.Open(path) //nolint:gosec // user-supplied import path
	if err != nil {
		return fmt.Errorf("open opml: %w", err)
	}
	defer func() { _ = f.Close() }()

	subs, err := opml.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	now := r.now()
	added, skipped := 0, 0
	for _, sub := range subs {
		src, err := store.NewSource(sub.URL, sub.Title, now)
		if err == nil {
			err = r.st.Add(src)
		}
		if err != nil {
			r.log.Debug("skip outline", "url", sub.URL, "error", err)
			skipped++
			continue
		}
		added++
	}

	r.log.Info("imported opml", "path", path, "count", added, "skipped", skipped)
	r.out.Printf("Imported %d feed(s). %d skipped because they already exist or are invalid.", added, skipped)
	return nil
}

// Export writes all sources to path as OPML. An empty path means
// subscriptions.opml next to the state file.
func (r *Runner) Export(path string) error {
	if len(r.st.Sources) == 0 {
		r.out.Printf("No feeds subscribed.")
		return nil
	}
	if path == "" {
		path = r.DefaultExportPath()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	subs := make([]opml.Subscription, len(r.st.Sources))
	for i := range r.st.Sources {
		src := &r.st.Sources[i]
		subs[i] = opml.Subscription{Title: src.Label(), URL: src.URL}
	}

	f, err := os.Create(path) //nolint:gosec // user-supplied export path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := opml.Write(f, exportTitle, subs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	r.out.Printf("Exported %d feed(s) to %s", len(subs), path)
	return nil
}

// DefaultExportPath is subscriptions.opml in the state file's directory.
func (r *Runner) DefaultExportPath() string {
	return filepath.Join(filepath.Dir(r.stateFile), "subscriptions.opml")
}

// Push sends the newest limit entries, of all sources or of the one matching
// key, to the configured chat. It does not refresh.
func (r *Runner) Push(ctx context.Context, key string, limit int) error {
	if r.pusher == nil {
		return ErrPushDisabled
	}

	var entries []model.Entry
	if key == "" {
		entries = r.st.Newest(limit)
	} else {
		idx, err := r.st.Resolve(key)
		if err != nil {
			return err
		}
		entries = r.st.NewestFor(r.st.Sources[idx].ID, limit)
	}

	if len(entries) == 0 {
		r.out.Printf("Nothing to push.")
		return nil
	}

	n, err := r.pusher.Push(ctx, entries, r.st.LabelFor)
	if err != nil {
		return fmt.Errorf("push entries (%d sent): %w", n, err)
	}
	r.out.Printf("Pushed %d entries.", n)
	return nil
}

func head(entries []model.Entry, limit int) []model.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
