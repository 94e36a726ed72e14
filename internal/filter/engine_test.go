package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedshelf/internal/model"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		entry   model.Entry
		filters []model.Filter
		want    bool
	}{
		{
			name:    "no filters passes everything",
			entry:   model.Entry{Title: "anything", Summary: "whatever"},
			filters: nil,
			want:    true,
		},
		{
			name:  "include word matches",
			entry: model.Entry{Title: "Kubernetes 1.32 released", Summary: "New features"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "include word no match",
			entry: model.Entry{Title: "Python update", Summary: "New features"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
			},
			want: false,
		},
		{
			name:  "include is case insensitive",
			entry: model.Entry{Title: "KUBERNETES release", Summary: ""},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "exclude word blocks match",
			entry: model.Entry{Title: "Job vacancy at Google", Summary: "Apply now"},
			filters: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "vacancy"},
			},
			want: false,
		},
		{
			name:  "exclude word does not block non-match",
			entry: model.Entry{Title: "Kubernetes update", Summary: "New features"},
			filters: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "vacancy"},
			},
			want: true,
		},
		{
			name:  "include + exclude: include matches, exclude does not",
			entry: model.Entry{Title: "Kubernetes 1.32", Summary: "sidecar support"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "vacancy"},
			},
			want: true,
		},
		{
			name:  "include + exclude: both match, exclude wins",
			entry: model.Entry{Title: "Kubernetes vacancy", Summary: "Apply now"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "vacancy"},
			},
			want: false,
		},
		{
			name:  "multiple includes OR logic: first matches",
			entry: model.Entry{Title: "Docker update", Summary: ""},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "docker"},
			},
			want: true,
		},
		{
			name:  "multiple includes OR logic: none match",
			entry: model.Entry{Title: "Python news", Summary: ""},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "docker"},
			},
			want: false,
		},
		{
			name:  "regex include matches",
			entry: model.Entry{Title: "Helm chart v3.15", Summary: ""},
			filters: []model.Filter{
				{Kind: model.FilterIncludeRe, Scope: model.ScopeAll, Value: "helm|docker"},
			},
			want: true,
		},
		{
			name:  "regex exclude blocks",
			entry: model.Entry{Title: "Online course on K8s training", Summary: ""},
			filters: []model.Filter{
				{Kind: model.FilterExcludeRe, Scope: model.ScopeAll, Value: "course.*training"},
			},
			want: false,
		},
		{
			name:  "unicode cyrillic include",
			entry: model.Entry{Title: "Деплой в Kubernetes", Summary: "Руководство"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "деплой"},
			},
			want: true,
		},
		{
			name:  "scope title: word in title matches",
			entry: model.Entry{Title: "Kubernetes release", Summary: "Nothing here"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeTitle, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "scope title: word only in description does not match",
			entry: model.Entry{Title: "Release notes", Summary: "Kubernetes update"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeTitle, Value: "kubernetes"},
			},
			want: false,
		},
		{
			name:  "scope content: word in description matches",
			entry: model.Entry{Title: "Release notes", Summary: "Kubernetes sidecar support"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeContent, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "scope content: word only in title does not match",
			entry: model.Entry{Title: "Kubernetes 1.32", Summary: "General improvements"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeContent, Value: "kubernetes"},
			},
			want: false,
		},
		{
			name:  "scope all: matches word in title",
			entry: model.Entry{Title: "Kubernetes release", Summary: "Improvements"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "scope all: matches word in description",
			entry: model.Entry{Title: "Release notes", Summary: "Kubernetes sidecar"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "kubernetes"},
			},
			want: true,
		},
		{
			name:  "mixed scopes: title include + content exclude",
			entry: model.Entry{Title: "Kubernetes release", Summary: "Sponsored promo content"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeTitle, Value: "kubernetes"},
				{Kind: model.FilterExclude, Scope: model.ScopeContent, Value: "promo"},
			},
			want: false,
		},
		{
			name:  "mixed scopes: title include + content exclude (no exclude hit)",
			entry: model.Entry{Title: "Kubernetes release", Summary: "Great improvements"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeTitle, Value: "kubernetes"},
				{Kind: model.FilterExclude, Scope: model.ScopeContent, Value: "promo"},
			},
			want: true,
		},
		{
			name:  "exclude scope content: word in title is not excluded",
			entry: model.Entry{Title: "Promo for Kubernetes", Summary: "Great article"},
			filters: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeContent, Value: "promo"},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := Compile(tt.filters)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			got := rules.Match(&tt.entry)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		filter  model.Filter
		wantErr bool
	}{
		{name: "valid simple", filter: model.Filter{Kind: model.FilterIncludeRe, Value: "hello"}},
		{name: "valid alternation", filter: model.Filter{Kind: model.FilterExcludeRe, Value: "k8s|docker|helm"}},
		{name: "valid group", filter: model.Filter{Kind: model.FilterIncludeRe, Value: "(?i)release.*v\\d+"}},
		{name: "invalid unclosed bracket", filter: model.Filter{Kind: model.FilterIncludeRe, Value: "[invalid"}, wantErr: true},
		{name: "invalid bad repetition", filter: model.Filter{Kind: model.FilterExcludeRe, Value: "*bad"}, wantErr: true},
		{name: "unknown kind", filter: model.Filter{Kind: "maybe", Value: "x"}, wantErr: true},
		{name: "unknown scope", filter: model.Filter{Kind: model.FilterInclude, Scope: "body", Value: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]model.Filter{tt.filter})
			gotErr := err != nil
			if diff := cmp.Diff(tt.wantErr, gotErr); diff != "" {
				t.Errorf("Compile() error mismatch (-want +got):\n%s\nerr: %v", diff, err)
			}
		})
	}
}

func TestApplyKeepsOrder(t *testing.T) {
	rules, err := Compile([]model.Filter{
		{Kind: model.FilterExclude, Scope: model.ScopeTitle, Value: "sponsored"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	entries := []model.Entry{
		{Title: "Go 1.24"},
		{Title: "Sponsored: cloud credits"},
		{Title: "Rust 1.80"},
	}
	got := rules.Apply(entries)

	want := []model.Entry{{Title: "Go 1.24"}, {Title: "Rust 1.80"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}

	var none *Rules
	if diff := cmp.Diff(entries, none.Apply(entries)); diff != "" {
		t.Errorf("nil rules changed entries (-want +got):\n%s", diff)
	}
}
