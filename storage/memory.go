// Package storage provides in-memory document storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"
	"time"
)

// InMemoryStorage implements DocumentStore and Journal using in-memory maps.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu        sync.RWMutex
	documents map[string]Document
	revisions map[string][]Revision // document id -> revisions, oldest first
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		documents: make(map[string]Document),
		revisions: make(map[string][]Revision),
	}
}

// Get returns the document with the given id.
func (s *InMemoryStorage) Get(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Put creates or replaces a whole document.
func (s *InMemoryStorage) Put(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	s.documents[doc.ID] = doc
	return nil
}

// Update applies a partial patch and bumps the revision marker.
func (s *InMemoryStorage) Update(ctx context.Context, id string, patch Patch) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc = applyPatch(doc, patch, time.Now().UTC())
	s.documents[id] = doc
	return doc, nil
}

// Record appends a revision.
func (s *InMemoryStorage) Record(ctx context.Context, rev Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revisions[rev.DocumentID] = append(s.revisions[rev.DocumentID], rev)
	return nil
}

// History returns the most recent revisions of a document, newest first.
// A non-positive limit returns all revisions.
func (s *InMemoryStorage) History(ctx context.Context, documentID string, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revs := s.revisions[documentID]
	if limit <= 0 || limit > len(revs) {
		limit = len(revs)
	}
	out := make([]Revision, 0, limit)
	for i := len(revs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, revs[i])
	}
	return out, nil
}

// Discard removes a revision.
func (s *InMemoryStorage) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for docID, revs := range s.revisions {
		for i, rev := range revs {
			if rev.ID == id {
				s.revisions[docID] = append(revs[:i:i], revs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

var (
	_ DocumentStore = (*InMemoryStorage)(nil)
	_ Journal       = (*InMemoryStorage)(nil)
)
