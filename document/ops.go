package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kongjiyu/dotivra-sub004/markup"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

// Operation names reported in EditResult and the usage log.
const (
	OpScan             = "scan"
	OpSearch           = "search"
	OpAppend           = "append"
	OpInsert           = "insert"
	OpInsertAtLocation = "insert_at_location"
	OpReplace          = "replace"
	OpRemove           = "remove"
	OpUndo             = "undo"
	OpAppendSummary    = "append_summary"
	OpInsertSummary    = "insert_summary"
	OpReplaceSummary   = "replace_summary"
	OpRemoveSummary    = "remove_summary"
	OpSearchSummary    = "search_summary"
)

// Placement selects which side of a located target receives new content.
type Placement string

const (
	Before Placement = "before"
	After  Placement = "after"
)

// ErrNothingToUndo is returned by Undo when the journal holds no content edit
// for the bound document.
var ErrNothingToUndo = errors.New("nothing to undo")

// normalized validates and normalizes content to be written.
func normalized(op, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", invalid(op, "content is required")
	}
	out := markup.Normalize(content)
	if out == "" {
		return "", invalid(op, "content is empty after normalization")
	}
	return out, nil
}

// Append adds content at the end of the document.
func (e *Engine) Append(ctx context.Context, content string) (EditResult, error) {
	return e.appendTo(ctx, OpAppend, storage.FieldContent, content)
}

// Insert adds content at a rune position. Positions outside the document are
// rejected rather than clamped.
func (e *Engine) Insert(ctx context.Context, position int, content string) (EditResult, error) {
	return e.insertInto(ctx, OpInsert, storage.FieldContent, position, content)
}

// InsertAtLocation inserts content before or after the first exact occurrence
// of target. Inserting after a heading tag places the content at the end of
// that heading's section.
func (e *Engine) InsertAtLocation(ctx context.Context, target string, where Placement, content string) (EditResult, error) {
	op := OpInsertAtLocation
	return e.edit(ctx, op, storage.FieldContent, func(_ context.Context, current string) (splice, error) {
		if target == "" {
			return splice{}, invalid(op, "target is required")
		}
		if where != Before && where != After {
			return splice{}, invalid(op, "position must be %q or %q, got %q", Before, After, where)
		}
		text, err := normalized(op, content)
		if err != nil {
			return splice{}, err
		}

		idx := strings.Index(current, target)
		if idx < 0 {
			return splice{}, invalid(op, "target %q not found", target)
		}
		start := markup.RuneOffset(current, idx)

		pos := start
		if where == After {
			pos = start + markup.Length(target)
			if level, ok := markup.HeadingLevel(target); ok {
				pos = markup.SectionEnd(current, pos, level)
			}
		}
		return splice{from: pos, to: pos, insert: text}, nil
	})
}

// Replace swaps the clamped range [from, to) for content and returns the
// removed segment.
func (e *Engine) Replace(ctx context.Context, from, to int, content string) (EditResult, error) {
	return e.replaceIn(ctx, OpReplace, storage.FieldContent, from, to, content)
}

// Remove deletes the clamped range [from, to) and returns the removed
// segment.
func (e *Engine) Remove(ctx context.Context, from, to int) (EditResult, error) {
	return e.removeFrom(ctx, OpRemove, storage.FieldContent, from, to)
}

// AppendSummary adds content at the end of the summary.
func (e *Engine) AppendSummary(ctx context.Context, content string) (EditResult, error) {
	return e.appendTo(ctx, OpAppendSummary, storage.FieldSummary, content)
}

// InsertSummary adds content to the summary at a rune position.
func (e *Engine) InsertSummary(ctx context.Context, position int, content string) (EditResult, error) {
	return e.insertInto(ctx, OpInsertSummary, storage.FieldSummary, position, content)
}

// ReplaceSummary swaps a clamped summary range for content.
func (e *Engine) ReplaceSummary(ctx context.Context, from, to int, content string) (EditResult, error) {
	return e.replaceIn(ctx, OpReplaceSummary, storage.FieldSummary, from, to, content)
}

// RemoveSummary deletes a clamped summary range.
func (e *Engine) RemoveSummary(ctx context.Context, from, to int) (EditResult, error) {
	return e.removeFrom(ctx, OpRemoveSummary, storage.FieldSummary, from, to)
}

func (e *Engine) appendTo(ctx context.Context, op, field, content string) (EditResult, error) {
	return e.edit(ctx, op, field, func(_ context.Context, current string) (splice, error) {
		text, err := normalized(op, content)
		if err != nil {
			return splice{}, err
		}
		end := markup.Length(current)
		return splice{from: end, to: end, insert: text}, nil
	})
}

func (e *Engine) insertInto(ctx context.Context, op, field string, position int, content string) (EditResult, error) {
	return e.edit(ctx, op, field, func(_ context.Context, current string) (splice, error) {
		length := markup.Length(current)
		if position < 0 {
			return splice{}, invalid(op, "position %d must not be negative", position)
		}
		if position > length {
			return splice{}, invalid(op, "position %d exceeds content length %d", position, length)
		}
		text, err := normalized(op, content)
		if err != nil {
			return splice{}, err
		}
		return splice{from: position, to: position, insert: text}, nil
	})
}

func (e *Engine) replaceIn(ctx context.Context, op, field string, from, to int, content string) (EditResult, error) {
	return e.edit(ctx, op, field, func(_ context.Context, current string) (splice, error) {
		text, err := normalized(op, content)
		if err != nil {
			return splice{}, err
		}
		r := markup.ClampRange(from, to, markup.Length(current))
		return splice{from: r.From, to: r.To, insert: text}, nil
	})
}

func (e *Engine) removeFrom(ctx context.Context, op, field string, from, to int) (EditResult, error) {
	return e.edit(ctx, op, field, func(_ context.Context, current string) (splice, error) {
		r := markup.ClampRange(from, to, markup.Length(current))
		return splice{from: r.From, to: r.To}, nil
	})
}

// Undo reverts the most recent journaled content edit of the bound document.
// The undo itself is not journaled.
func (e *Engine) Undo(ctx context.Context) (EditResult, error) {
	if e.journal == nil {
		return EditResult{}, invalid(OpUndo, "edit journal not configured")
	}

	var undone storage.Revision
	result, err := e.mutate(ctx, OpUndo, storage.FieldContent, false, func(ctx context.Context, current string) (splice, error) {
		h, _ := e.bound()
		history, err := e.journal.History(ctx, h.ID, 0)
		if err != nil {
			return splice{}, fmt.Errorf("undo: load history: %w", err)
		}
		for _, rev := range history {
			if rev.Field == storage.FieldContent {
				undone = rev
				break
			}
		}
		if undone.ID == "" {
			return splice{}, ErrNothingToUndo
		}

		if undone.DocumentRevision != 0 && h.Revision == undone.DocumentRevision {
			return splice{from: undone.After.From, to: undone.After.To, insert: undone.Removed}, nil
		}
		reverted, err := undone.Revert(current, h.Revision)
		if err != nil {
			return splice{}, invalid(OpUndo, "%v", err)
		}
		return splice{from: 0, to: markup.Length(current), insert: reverted}, nil
	})
	if err != nil {
		return EditResult{}, err
	}

	if err := e.journal.Discard(ctx, undone.ID); err != nil {
		return result, fmt.Errorf("undo: discard revision %s: %w", undone.ID, err)
	}
	return result, nil
}
