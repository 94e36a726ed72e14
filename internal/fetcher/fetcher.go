// Package fetcher downloads feeds and parses them into entries.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"feedshelf/internal/model"
)

const (
	// DefaultTimeout bounds a single fetch when none is configured.
	DefaultTimeout = 10 * time.Second

	maxBodySize = 5 * 1024 * 1024
	userAgent   = "feedshelf/1.0"
	noTitle     = "(no title)"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result holds a parsed feed. Title is empty when the feed has none.
// Entries carry neither SourceID nor FirstSeenAt; the caller stamps both.
type Result struct {
	Title   string
	Entries []model.Entry
}

// Fetcher downloads and parses RSS, Atom and JSON feeds.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client and per-fetch timeout.
func New(client HTTPClient, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  client,
		timeout: timeout,
	}
}

// Fetch downloads and parses the feed at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return Convert(feed), nil
}

// Convert maps a parsed feed onto a Result.
func Convert(feed *gofeed.Feed) *Result {
	res := &Result{
		Title:   strings.TrimSpace(feed.Title),
		Entries: make([]model.Entry, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		res.Entries = append(res.Entries, convertItem(item))
	}
	return res
}

func convertItem(item *gofeed.Item) model.Entry {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = noTitle
	}

	return model.Entry{
		Title:       title,
		Link:        itemLink(item),
		PublishedAt: utc(item.PublishedParsed),
		UpdatedAt:   utc(item.UpdatedParsed),
		Summary:     firstNonEmpty(item.Description, item.Content),
	}
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	return ""
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
