package fetcher

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"

	"feedshelf/internal/model"
)

const feedHost = "https://infra.example.com"

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func newInterceptedFetcher(t *testing.T) *Fetcher {
	t.Helper()
	client := &http.Client{}
	gock.InterceptClient(client)
	t.Cleanup(func() {
		gock.RestoreClient(client)
		gock.Off()
	})
	return New(client, time.Second)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "testdata/sample.xml")

	tests := []struct {
		name      string
		mock      func()
		wantTitle string
		wantCount int
		wantErr   bool
	}{
		{
			name: "successful fetch",
			mock: func() {
				gock.New(feedHost).Get("/rss").MatchHeader("User-Agent", "feedshelf").
					Reply(http.StatusOK).BodyString(xml)
			},
			wantTitle: "Infra Notes",
			wantCount: 3,
		},
		{
			name: "http error status",
			mock: func() {
				gock.New(feedHost).Get("/rss").Reply(http.StatusNotFound).BodyString("not found")
			},
			wantErr: true,
		},
		{
			name: "network error",
			mock: func() {
				gock.New(feedHost).Get("/rss").ReplyError(errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "invalid xml",
			mock: func() {
				gock.New(feedHost).Get("/rss").Reply(http.StatusOK).BodyString("not xml at all")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInterceptedFetcher(t)
			tt.mock()

			res, err := f.Fetch(context.Background(), feedHost+"/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !gock.IsDone() {
				t.Error("expected every mocked request to be consumed")
			}

			if diff := cmp.Diff(tt.wantTitle, res.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCount, len(res.Entries)); diff != "" {
				t.Errorf("entry count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchMapsEntries(t *testing.T) {
	f := newInterceptedFetcher(t)
	gock.New(feedHost).Get("/rss").Reply(http.StatusOK).BodyString(loadFixture(t, "testdata/sample.xml"))

	res, err := f.Fetch(context.Background(), feedHost+"/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []model.Entry{
		{
			Title:       "Kubernetes 1.32 Released",
			Link:        "https://infra.example.com/k8s-132",
			PublishedAt: timePtr(time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)),
			Summary:     "<p>New scheduler features.</p>",
		},
		{
			Title:       "Docker Desktop Update",
			Link:        "https://infra.example.com/docker",
			PublishedAt: timePtr(time.Date(2024, 12, 9, 14, 30, 0, 0, time.UTC)),
			Summary:     "Faster file sharing.",
		},
		{
			Title: "(no title)",
			Link:  "https://infra.example.com/untitled",
		},
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchAtomUpdatedOnly(t *testing.T) {
	f := newInterceptedFetcher(t)
	gock.New("https://atom.example.com").Get("/feed").Reply(http.StatusOK).
		BodyString(loadFixture(t, "testdata/atom.xml"))

	res, err := f.Fetch(context.Background(), "https://atom.example.com/feed")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(res.Entries))
	}

	got := res.Entries[0]
	if diff := cmp.Diff("https://atom.example.com/only-updated", got.Link); diff != "" {
		t.Errorf("link mismatch (-want +got):\n%s", diff)
	}
	if got.UpdatedAt == nil {
		t.Fatal("expected updated time to be set")
	}
	if diff := cmp.Diff(time.Date(2024, 12, 11, 18, 30, 2, 0, time.UTC), *got.UpdatedAt); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
}

type blockingClient struct{}

func (blockingClient) Do(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestFetchTimeout(t *testing.T) {
	f := New(blockingClient{}, 20*time.Millisecond)

	start := time.Now()
	_, err := f.Fetch(context.Background(), "https://slow.example.com/rss")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch took %v, timeout not applied", elapsed)
	}
}
