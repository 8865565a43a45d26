package pathtree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTree(paths ...string) *Tree[string] {
	tree := New[string]()
	for _, p := range paths {
		tree.Insert(p, p)
	}
	return tree
}

func TestUnderRespectsSegments(t *testing.T) {
	tree := newTree("docs/intro.md", "docsite/index.html", "docs", "README.md", "docs/api/ref.md")

	tests := []struct {
		dir  string
		want []string
	}{
		{dir: "", want: []string{"README.md", "docs", "docs/api/ref.md", "docs/intro.md", "docsite/index.html"}},
		{dir: "docs", want: []string{"docs", "docs/api/ref.md", "docs/intro.md"}},
		{dir: "/docs/", want: []string{"docs", "docs/api/ref.md", "docs/intro.md"}},
		{dir: "docs/api", want: []string{"docs/api/ref.md"}},
		{dir: "doc", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tree.Under(tt.dir)); diff != "" {
				t.Errorf("Under(%q) mismatch (-want +got):\n%s", tt.dir, diff)
			}
		})
	}
}

func TestInsertReplaces(t *testing.T) {
	tree := New[int]()
	tree.Insert("a/b", 1)
	tree.Insert("/a/b", 2)

	if tree.Len() != 1 {
		t.Errorf("expected 1 path, got %d", tree.Len())
	}
	if v, ok := tree.Get("a/b"); !ok || v != 2 {
		t.Errorf("expected replaced value 2, got %d (found=%v)", v, ok)
	}
	if _, ok := tree.Get("a"); ok {
		t.Error("expected no value at a")
	}
}
