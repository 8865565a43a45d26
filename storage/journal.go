package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kongjiyu/dotivra-sub004/markup"
)

// Field names recorded in revisions.
const (
	FieldContent = "content"
	FieldSummary = "summary"
)

// Revision is one journaled edit of a document field.
// Patch turns the pre-edit value into the post-edit value; UndoPatch does the
// reverse and tolerates surrounding text having shifted since.
// DocumentRevision is the document's revision marker right after the edit.
type Revision struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Field      string       `json:"field"`
	Operation  string       `json:"operation"`
	Before     markup.Range `json:"before"`
	After      markup.Range `json:"after"`
	Removed    string       `json:"removed"`
	Inserted   string       `json:"inserted"`
	Patch      string       `json:"patch"`
	UndoPatch  string       `json:"undo_patch"`
	CreatedAt  time.Time    `json:"created_at"`

	DocumentRevision int64 `json:"document_revision"`
}

// Journal records revisions for audit and undo.
type Journal interface {
	// Record appends a revision.
	Record(ctx context.Context, rev Revision) error

	// History returns the most recent revisions of a document, newest first.
	History(ctx context.Context, documentID string, limit int) ([]Revision, error)

	// Discard removes a revision (used after it has been undone).
	Discard(ctx context.Context, id string) error
}

// NewRevision builds a revision for an edit of field from before to after.
func NewRevision(documentID, field, operation string, beforeRange, afterRange markup.Range, removed, inserted, before, after string) Revision {
	dmp := diffmatchpatch.New()
	return Revision{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Field:      field,
		Operation:  operation,
		Before:     beforeRange,
		After:      afterRange,
		Removed:    removed,
		Inserted:   inserted,
		Patch:      dmp.PatchToText(dmp.PatchMake(before, after)),
		UndoPatch:  dmp.PatchToText(dmp.PatchMake(after, before)),
		CreatedAt:  time.Now().UTC(),
	}
}

// Revert undoes the revision against current, the field value at document
// revision marker revision. When nothing was written since the edit the
// recorded ranges still hold and the removed text is spliced back exactly;
// otherwise the undo patch is applied with fuzzy matching.
func (r Revision) Revert(current string, revision int64) (string, error) {
	if r.DocumentRevision != 0 && revision == r.DocumentRevision && r.After.To <= markup.Length(current) {
		reverted, _ := markup.Splice(current, r.After.From, r.After.To, r.Removed)
		return reverted, nil
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(r.UndoPatch)
	if err != nil {
		return "", fmt.Errorf("invalid undo patch for revision %s: %w", r.ID, err)
	}
	reverted, applied := dmp.PatchApply(patches, current)
	for _, ok := range applied {
		if !ok {
			return "", fmt.Errorf("revision %s no longer applies to the current text", r.ID)
		}
	}
	return reverted, nil
}
