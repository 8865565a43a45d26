package repo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		link    string
		want    Ref
		wantErr bool
	}{
		{link: "https://github.com/acme/widgets", want: Ref{"acme", "widgets"}},
		{link: "https://github.com/acme/widgets.git", want: Ref{"acme", "widgets"}},
		{link: "https://github.com/acme/widgets/tree/main/docs", want: Ref{"acme", "widgets"}},
		{link: "github.com/acme/widgets/", want: Ref{"acme", "widgets"}},
		{link: "git@github.com:acme/widgets.git", want: Ref{"acme", "widgets"}},
		{link: "acme/widgets", want: Ref{"acme", "widgets"}},
		{link: "  acme/widgets  ", want: Ref{"acme", "widgets"}},
		{link: "", wantErr: true},
		{link: "widgets", wantErr: true},
		{link: "a/b/c", wantErr: true},
		{link: "https://github.com/acme", wantErr: true},
		{link: "acme/wid gets", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := ParseLink(tt.link)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLink) {
					t.Fatalf("expected ErrInvalidLink, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLink(%q) = %+v, want %+v", tt.link, got, tt.want)
			}
		})
	}
}

// fakeAPI serves a fixed set of branches and counts every call.
type fakeAPI struct {
	mu            sync.Mutex
	branches      map[string]string // name -> commit sha
	defaultBranch string
	repoErr       error
	entries       []Entry
	commits       []Commit
	lookups       []string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, call)
}

func (f *fakeAPI) Repository(ctx context.Context, ref Ref) (RepoInfo, error) {
	f.record("repo")
	if f.repoErr != nil {
		return RepoInfo{}, f.repoErr
	}
	return RepoInfo{FullName: ref.String(), DefaultBranch: f.defaultBranch}, nil
}

func (f *fakeAPI) Branch(ctx context.Context, ref Ref, name string) (BranchInfo, error) {
	f.record("branch:" + name)
	sha, ok := f.branches[name]
	if !ok {
		return BranchInfo{}, ErrNotFound
	}
	return BranchInfo{Name: name, CommitSHA: sha}, nil
}

func (f *fakeAPI) Tree(ctx context.Context, ref Ref, treeish string) ([]Entry, bool, error) {
	f.record("tree:" + treeish)
	return f.entries, false, nil
}

func (f *fakeAPI) Commits(ctx context.Context, ref Ref, branch string, page, perPage int) ([]Commit, error) {
	f.record("commits:" + branch)
	return f.commits, nil
}

func TestResolveFallsBackToDefaultWithThreeLookups(t *testing.T) {
	api := &fakeAPI{branches: map[string]string{"dev": "abc"}, defaultBranch: "dev"}

	res, err := Resolve(context.Background(), api, Ref{"acme", "widgets"}, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Branch != "dev" || res.Source != SourceDefault {
		t.Errorf("expected dev/default, got %+v", res)
	}
	if diff := cmp.Diff([]string{"branch:main", "branch:master", "repo"}, api.lookups); diff != "" {
		t.Errorf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOrder(t *testing.T) {
	tests := []struct {
		name        string
		branches    map[string]string
		hint        string
		wantBranch  string
		wantSource  Source
		wantLookups []string
	}{
		{
			name:        "hint wins",
			branches:    map[string]string{"feature": "1", "main": "2"},
			hint:        "feature",
			wantBranch:  "feature",
			wantSource:  SourceRequested,
			wantLookups: []string{"branch:feature"},
		},
		{
			name:        "missing hint falls to main",
			branches:    map[string]string{"main": "2"},
			hint:        "gone",
			wantBranch:  "main",
			wantSource:  SourceMain,
			wantLookups: []string{"branch:gone", "branch:main"},
		},
		{
			name:        "master",
			branches:    map[string]string{"master": "3"},
			wantBranch:  "master",
			wantSource:  SourceMaster,
			wantLookups: []string{"branch:main", "branch:master"},
		},
		{
			name:        "hint equal to main is looked up once",
			branches:    map[string]string{"master": "3"},
			hint:        "main",
			wantBranch:  "master",
			wantSource:  SourceMaster,
			wantLookups: []string{"branch:main", "branch:master"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{branches: tt.branches, defaultBranch: "main"}
			res, err := Resolve(context.Background(), api, Ref{"o", "r"}, tt.hint)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if res.Branch != tt.wantBranch || res.Source != tt.wantSource {
				t.Errorf("got %+v", res)
			}
			if diff := cmp.Diff(tt.wantLookups, api.lookups); diff != "" {
				t.Errorf("lookups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveExhaustedListsEveryName(t *testing.T) {
	api := &fakeAPI{branches: map[string]string{}, defaultBranch: "main"}

	_, err := Resolve(context.Background(), api, Ref{"o", "r"}, "dev")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	for _, name := range []string{"dev", "main", "master"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %q", err, name)
		}
	}
	if len(api.lookups) != 4 {
		t.Errorf("expected default branch main not to be looked up again, got %v", api.lookups)
	}
}

func TestResolveFailedMetadataFetch(t *testing.T) {
	api := &fakeAPI{branches: map[string]string{}, repoErr: ErrNotFound}

	_, err := Resolve(context.Background(), api, Ref{"o", "r"}, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "main, master") {
		t.Errorf("error should list tried names: %v", err)
	}
}

func TestProviderStructureAndCommits(t *testing.T) {
	api := &fakeAPI{
		branches: map[string]string{"main": "deadbeef"},
		entries: []Entry{
			{Path: "src/main.go", Type: "file", Size: 120},
			{Path: "README.md", Type: "file", Size: 40},
			{Path: "src", Type: "dir"},
			{Path: "srcgen/x.go", Type: "file", Size: 1},
		},
		commits: []Commit{{
			SHA:     "0123456789abcdef",
			Message: "Add parser\n\nLonger body",
			Author:  "Ada",
			Date:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)),
		}},
	}
	provider, err := NewProvider(api, "https://github.com/acme/widgets", "", nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	ctx := context.Background()

	listing, err := provider.Structure(ctx, "", "src", 0)
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	want := []Entry{{Path: "src", Type: "dir"}, {Path: "src/main.go", Type: "file", Size: 120}}
	if diff := cmp.Diff(want, listing.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	page, err := provider.Commits(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("Commits failed: %v", err)
	}
	wantCommit := CommitSummary{SHA: "0123456", Message: "Add parser", Author: "Ada", Date: "2024-03-01T11:00:00Z"}
	if diff := cmp.Diff([]CommitSummary{wantCommit}, page.Commits); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if page.Page != 1 || page.PerPage != DefaultPerPage || page.HasMore {
		t.Errorf("unexpected paging: %+v", page)
	}

	// The resolution is cached: main was looked up once across both calls.
	if diff := cmp.Diff([]string{"branch:main", "tree:deadbeef", "commits:main"}, api.lookups); diff != "" {
		t.Errorf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderStructureCap(t *testing.T) {
	api := &fakeAPI{
		branches: map[string]string{"main": "1"},
		entries:  []Entry{{Path: "a"}, {Path: "b"}, {Path: "c"}},
	}
	provider, err := NewProvider(api, "o/r", "", nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	listing, err := provider.Structure(context.Background(), "", "", 2)
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	if len(listing.Entries) != 2 || listing.Total != 3 || !listing.Truncated {
		t.Errorf("unexpected listing: %+v", listing)
	}
}

func TestGitHubClient(t *testing.T) {
	var sawAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"full_name": "acme/widgets", "default_branch": "dev"})
	})
	mux.HandleFunc("/repos/acme/widgets/branches/dev", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"dev","commit":{"sha":"c0ffee","commit":{"tree":{"sha":"7ree"}}}}`))
	})
	mux.HandleFunc("/repos/acme/widgets/branches/main", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Branch not found"}`))
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/c0ffee", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "1" {
			t.Errorf("expected recursive listing")
		}
		w.Write([]byte(`{"tree":[{"path":"docs","type":"tree"},{"path":"docs/a.md","type":"blob","size":12},{"path":"vendor/x","type":"commit"}],"truncated":false}`))
	})
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sha") != "dev" || q.Get("page") != "2" || q.Get("per_page") != "5" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`[{"sha":"abcdef0123","commit":{"message":"Fix","author":{"name":"","date":"2024-01-02T03:04:05Z"}},"author":{"login":"octo"}}]`))
	})
	mux.HandleFunc("/repos/acme/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewGitHubClient(GitHubOptions{BaseURL: server.URL, Token: "secret", RequestsPerSecond: 1000})
	ctx := context.Background()
	ref := Ref{"acme", "widgets"}

	info, err := client.Repository(ctx, ref)
	if err != nil {
		t.Fatalf("Repository failed: %v", err)
	}
	if info.DefaultBranch != "dev" {
		t.Errorf("expected default branch dev, got %q", info.DefaultBranch)
	}
	if sawAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", sawAuth)
	}

	if _, err := client.Branch(ctx, ref, "main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing branch, got %v", err)
	}

	branch, err := client.Branch(ctx, ref, "dev")
	if err != nil {
		t.Fatalf("Branch failed: %v", err)
	}
	if branch.CommitSHA != "c0ffee" || branch.TreeSHA != "7ree" {
		t.Errorf("unexpected branch: %+v", branch)
	}

	entries, _, err := client.Tree(ctx, ref, "c0ffee")
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	wantEntries := []Entry{{Path: "docs", Type: "dir"}, {Path: "docs/a.md", Type: "file", Size: 12}}
	if diff := cmp.Diff(wantEntries, entries); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	commits, err := client.Commits(ctx, ref, "dev", 2, 5)
	if err != nil {
		t.Fatalf("Commits failed: %v", err)
	}
	if len(commits) != 1 || commits[0].Author != "octo" {
		t.Errorf("unexpected commits: %+v", commits)
	}

	_, err = client.Repository(ctx, Ref{"acme", "private"})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected surfaced API message, got %v", err)
	}
}
