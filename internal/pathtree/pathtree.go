// Package pathtree indexes slash-separated paths in a radix tree.
// Uses go-radix for a compressed prefix tree.
//
// Repository trees share long directory prefixes, so a radix tree keeps
// one node per shared segment run instead of one per character.
package pathtree

import (
	"strings"

	"github.com/armon/go-radix"
)

// Tree maps paths to values. Iteration is in lexical path order.
type Tree[V any] struct {
	tree *radix.Tree
	size int
}

// New creates an empty tree.
func New[V any]() *Tree[V] {
	return &Tree[V]{tree: radix.New()}
}

// Insert adds or replaces the value at path. Leading and trailing slashes
// are ignored.
// Time Complexity: O(k) where k is path length.
func (t *Tree[V]) Insert(path string, value V) {
	if _, updated := t.tree.Insert(clean(path), value); !updated {
		t.size++
	}
}

// Get looks up the value stored at path.
func (t *Tree[V]) Get(path string) (V, bool) {
	val, found := t.tree.Get(clean(path))
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Len returns the number of paths in the tree.
func (t *Tree[V]) Len() int {
	return t.size
}

// Under returns the values at dir and every path below it, in lexical
// order. An empty dir returns everything. "docs" matches "docs" and
// "docs/intro.md" but not "docsite".
// Time Complexity: O(k + m) where k is dir length, m is number of matches.
func (t *Tree[V]) Under(dir string) []V {
	dir = clean(dir)
	var out []V
	collect := func(_ string, v interface{}) bool {
		if val, ok := v.(V); ok {
			out = append(out, val)
		}
		return false
	}

	if dir == "" {
		t.tree.Walk(collect)
		return out
	}
	if v, ok := t.tree.Get(dir); ok {
		collect(dir, v)
	}
	t.tree.WalkPrefix(dir+"/", collect)
	return out
}

func clean(path string) string {
	return strings.Trim(path, "/")
}
