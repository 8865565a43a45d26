package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/kongjiyu/dotivra-sub004/document"
	"github.com/kongjiyu/dotivra-sub004/markup"
	"github.com/kongjiyu/dotivra-sub004/repo"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

func TestMain(m *testing.M) {
	// genai starts an opencensus stats worker at init
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func newDocumentRegistry(t *testing.T, content string) (*Registry, *storage.InMemoryStorage) {
	t.Helper()
	store := storage.NewInMemoryStorage()
	ctx := context.Background()
	if err := store.Put(ctx, storage.Document{ID: "doc", Name: "Guide", Content: content}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	engine := document.NewEngine(store, document.WithJournal(store))
	if _, err := engine.Bind(ctx, "doc"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	registry, err := NewRegistry(nil, DocumentTools(engine)...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return registry, store
}

func content(t *testing.T, store storage.DocumentStore) string {
	t.Helper()
	doc, err := store.Get(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return doc.Content
}

func TestDocumentToolNamesSorted(t *testing.T) {
	registry, _ := newDocumentRegistry(t, "")

	want := []string{
		AppendContent, AppendSummary, InsertAtLocation, InsertContent, InsertSummary,
		RemoveContent, RemoveSummary, ReplaceContent, ReplaceSummary,
		ScanDocument, SearchDocument, SearchSummary, UndoLastEdit,
	}
	if diff := cmp.Diff(want, registry.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteInsertThroughRegistry(t *testing.T) {
	registry, store := newDocumentRegistry(t, "Hello world")

	result := registry.Execute(context.Background(), InsertContent, json.RawMessage(`{"position": 5, "content": " there"}`))
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Operation != InsertContent {
		t.Errorf("expected operation %q, got %q", InsertContent, result.Operation)
	}
	edit, ok := result.Data.(document.EditResult)
	if !ok {
		t.Fatalf("expected EditResult data, got %T", result.Data)
	}
	if edit.After != (markup.Range{From: 5, To: 11}) {
		t.Errorf("expected after-range {5,11}, got %+v", edit.After)
	}
	if got := content(t, store); got != "Hello there world" {
		t.Errorf("expected 'Hello there world', got %q", got)
	}
}

func TestExecuteFailuresAreResults(t *testing.T) {
	registry, store := newDocumentRegistry(t, "Hello")

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr string
	}{
		{name: "unknown tool", tool: "delete_everything", args: `{}`, wantErr: "unknown tool"},
		{name: "malformed json", tool: AppendContent, args: `{"content":`, wantErr: "invalid arguments"},
		{name: "missing content", tool: AppendContent, args: `{}`, wantErr: "content is required"},
		{name: "missing position", tool: InsertContent, args: `{"content":"x"}`, wantErr: "position is required"},
		{name: "fractional position", tool: InsertContent, args: `{"position":1.5,"content":"x"}`, wantErr: "integer"},
		{name: "position past end", tool: InsertContent, args: `{"position":99,"content":"x"}`, wantErr: "exceeds content length"},
		{name: "bad placement", tool: InsertAtLocation, args: `{"target":"Hello","position":"inside","content":"x"}`, wantErr: "position must be"},
		{name: "blank replacement", tool: ReplaceContent, args: `{"from":0,"to":1,"content":"  "}`, wantErr: "content is required"},
		{name: "missing range", tool: RemoveContent, args: `{"from":0}`, wantErr: "to is required"},
		{name: "nothing to undo", tool: UndoLastEdit, args: ``, wantErr: "nothing to undo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := registry.Execute(context.Background(), tt.tool, json.RawMessage(tt.args))
			if result.Success {
				t.Fatalf("expected failure, got success with %+v", result.Data)
			}
			if !strings.Contains(result.Error, tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, result.Error)
			}
			if result.Operation != tt.tool {
				t.Errorf("expected operation %q, got %q", tt.tool, result.Operation)
			}
		})
	}

	if got := content(t, store); got != "Hello" {
		t.Errorf("failed calls must not mutate, content is %q", got)
	}
}

func TestOffsetAcceptsNumericForms(t *testing.T) {
	for _, raw := range []string{`3`, `3.0`, `"3"`} {
		var args InsertArgs
		if err := json.Unmarshal([]byte(`{"position":`+raw+`,"content":"x"}`), &args); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if !args.Position.Set || args.Position.Value != 3 {
			t.Errorf("decode %s gave %+v", raw, args.Position)
		}
	}
}

func TestPanickingToolIsContained(t *testing.T) {
	boom := newTool(Metadata{Name: "boom"}, nil, func(ctx context.Context, _ NoArgs) (any, error) {
		panic("kaboom")
	})
	failing := newTool(Metadata{Name: "failing"}, nil, func(ctx context.Context, _ NoArgs) (any, error) {
		return nil, errors.New("backend down")
	})
	registry, err := NewRegistry(nil, boom, failing)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	result := registry.Execute(context.Background(), "boom", nil)
	if result.Success || !strings.Contains(result.Error, "kaboom") {
		t.Errorf("expected contained panic, got %+v", result)
	}

	result = registry.Execute(context.Background(), "failing", nil)
	if result.Success || result.Error != "backend down" {
		t.Errorf("expected handler error as failure, got %+v", result)
	}
}

func TestDuplicateToolRejected(t *testing.T) {
	a := newTool(Metadata{Name: "same"}, nil, func(ctx context.Context, _ NoArgs) (any, error) { return nil, nil })
	b := newTool(Metadata{Name: "same"}, nil, func(ctx context.Context, _ NoArgs) (any, error) { return nil, nil })

	if _, err := NewRegistry(nil, a, b); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestResultJSONShape(t *testing.T) {
	ok := SuccessResult("scan_document", map[string]int{"lines": 2})
	if got := ok.JSON(); got != `{"success":true,"operation":"scan_document","data":{"lines":2}}` {
		t.Errorf("unexpected success JSON: %s", got)
	}
	fail := FailureResultf("append_content", "content is required")
	if got := fail.JSON(); got != `{"success":false,"operation":"append_content","error":"content is required"}` {
		t.Errorf("unexpected failure JSON: %s", got)
	}
}

func TestDefinitionsAndDescription(t *testing.T) {
	registry, _ := newDocumentRegistry(t, "")

	var found bool
	for _, def := range registry.Definitions() {
		if def.Name != InsertAtLocation {
			continue
		}
		found = true
		required, _ := def.Parameters["required"].([]string)
		if diff := cmp.Diff([]string{"target", "position", "content"}, required); diff != "" {
			t.Errorf("required mismatch (-want +got):\n%s", diff)
		}
	}
	if !found {
		t.Fatal("insert_at_location definition missing")
	}

	desc := registry.Description()
	if !strings.Contains(desc, "Tool: scan_document") || !strings.Contains(desc, "one of: before, after") {
		t.Errorf("description missing expected entries:\n%s", desc)
	}
}

type stubRepoAPI struct{}

func (stubRepoAPI) Repository(ctx context.Context, ref repo.Ref) (repo.RepoInfo, error) {
	return repo.RepoInfo{DefaultBranch: "main"}, nil
}

func (stubRepoAPI) Branch(ctx context.Context, ref repo.Ref, name string) (repo.BranchInfo, error) {
	if name != "main" {
		return repo.BranchInfo{}, repo.ErrNotFound
	}
	return repo.BranchInfo{Name: "main", CommitSHA: "abc"}, nil
}

func (stubRepoAPI) Tree(ctx context.Context, ref repo.Ref, treeish string) ([]repo.Entry, bool, error) {
	return []repo.Entry{{Path: "README.md", Type: "file", Size: 10}}, false, nil
}

func (stubRepoAPI) Commits(ctx context.Context, ref repo.Ref, branch string, page, perPage int) ([]repo.Commit, error) {
	return nil, nil
}

func TestRepositoryTools(t *testing.T) {
	provider, err := repo.NewProvider(stubRepoAPI{}, "acme/widgets", "", nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	registry, err := NewRegistry(nil, RepositoryTools(provider)...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	ctx := context.Background()

	result := registry.Execute(ctx, GetRepositoryStructure, json.RawMessage(`{}`))
	if !result.Success {
		t.Fatalf("structure failed: %s", result.Error)
	}
	listing := result.Data.(repo.Listing)
	if listing.Resolution.Branch != "main" || len(listing.Entries) != 1 {
		t.Errorf("unexpected listing: %+v", listing)
	}

	result = registry.Execute(ctx, GetCommitHistory, json.RawMessage(`{"per_page": 500}`))
	if result.Success || !strings.Contains(result.Error, "per_page") {
		t.Errorf("expected per_page validation failure, got %+v", result)
	}

	result = registry.Execute(ctx, GetCommitHistory, json.RawMessage(`{"branch": "missing-branch", "page": 1}`))
	if !result.Success {
		t.Fatalf("history failed: %s", result.Error)
	}
}
