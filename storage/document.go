// Package storage provides the persistent document store used by the
// mutation engine.
//
// Information Hiding:
// - Storage backend implementation details hidden behind DocumentStore
// - Allows swapping between memory and SQLite without API changes
// - Revision bookkeeping ("updated at" marker) maintained by each backend

package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id does not exist in the store.
var ErrNotFound = errors.New("document not found")

// Document is a stored document record. Content and Summary are always
// defined strings; an empty field is "", never absent.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	RepoLink  string    `json:"repo_link,omitempty"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is a partial-field update. Nil fields are left untouched.
type Patch struct {
	Content *string
	Summary *string
}

// ContentPatch creates a patch that only updates the content field.
func ContentPatch(content string) Patch {
	return Patch{Content: &content}
}

// SummaryPatch creates a patch that only updates the summary field.
func SummaryPatch(summary string) Patch {
	return Patch{Summary: &summary}
}

// Empty reports whether the patch touches no field.
func (p Patch) Empty() bool {
	return p.Content == nil && p.Summary == nil
}

// DocumentStore defines the interface for reading and writing documents.
type DocumentStore interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Update applies a partial patch, bumps Revision and UpdatedAt, and
	// returns the stored record. An empty patch leaves the record as is.
	// Returns ErrNotFound for unknown ids.
	Update(ctx context.Context, id string, patch Patch) (Document, error)

	// Put creates or replaces a whole document.
	Put(ctx context.Context, doc Document) error
}

// applyPatch applies p to doc and advances its revision marker.
func applyPatch(doc Document, p Patch, now time.Time) Document {
	if p.Empty() {
		return doc
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	if p.Summary != nil {
		doc.Summary = *p.Summary
	}
	doc.Revision++
	doc.UpdatedAt = now
	return doc
}
