// Package document implements the offset-addressed document mutation engine.
//
// Information Hiding:
// - The bound document handle and its refresh bookkeeping are private
// - Every edit runs the same refresh, validate, normalize, splice, persist,
//   log pipeline; callers only see EditResult ranges
// - Offsets are rune offsets; byte arithmetic stays inside markup
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/markup"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

// Handle is the engine's in-memory copy of the bound document.
type Handle struct {
	ID        string
	Name      string
	Content   string
	Summary   string
	RepoLink  string
	Revision  int64
	UpdatedAt time.Time
}

// BindResult is returned when a document is bound.
type BindResult struct {
	Content      string `json:"content"`
	DocumentName string `json:"documentName"`
}

// EditResult describes exactly what an edit changed. Before is the range
// replaced in the old text; After is the range the new text occupies.
type EditResult struct {
	Operation string       `json:"operation"`
	Field     string       `json:"field"`
	Before    markup.Range `json:"before"`
	After     markup.Range `json:"after"`
	Removed   string       `json:"removed"`
	Inserted  string       `json:"inserted"`
	Length    int          `json:"length"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every edit as a revision.
func WithJournal(journal storage.Journal) Option {
	return func(e *Engine) { e.journal = journal }
}

// WithLocks shares a per-document lock table with other engines.
func WithLocks(locks *Locks) Option {
	return func(e *Engine) {
		if locks != nil {
			e.locks = locks
		}
	}
}

// WithUsageLog sets the usage ring the engine appends to.
func WithUsageLog(usage *UsageLog) Option {
	return func(e *Engine) {
		if usage != nil {
			e.usage = usage
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// Engine applies edits to one bound document at a time.
// An Engine belongs to a single session; engines of different sessions
// coordinate through a shared Locks table.
type Engine struct {
	store   storage.DocumentStore
	journal storage.Journal
	locks   *Locks
	usage   *UsageLog
	logger  *zap.Logger

	mu     sync.Mutex
	handle *Handle
}

// NewEngine creates an engine over store. A nil store is allowed; every
// operation then fails with ErrNotInitialized.
func NewEngine(store storage.DocumentStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locks:  NewLocks(),
		usage:  NewUsageLog(DefaultUsageCapacity),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bind loads the document id from the store and makes it the active
// document. An empty id clears the binding.
func (e *Engine) Bind(ctx context.Context, id string) (BindResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return BindResult{}, ErrNotInitialized
	}
	if id == "" {
		e.handle = nil
		return BindResult{}, nil
	}

	doc, err := e.store.Get(ctx, id)
	if err != nil {
		return BindResult{}, fmt.Errorf("bind document %q: %w", id, err)
	}
	e.adopt(doc)
	e.logger.Debug("document bound", zap.String("document", id), zap.Int("length", markup.Length(doc.Content)))
	return BindResult{Content: doc.Content, DocumentName: doc.Name}, nil
}

// Reset clears the active document.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = nil
}

// Current returns a copy of the bound handle.
func (e *Engine) Current() (Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return Handle{}, false
	}
	return *e.handle, true
}

// Usage returns the retained usage entries, oldest first.
func (e *Engine) Usage() []UsageEntry {
	return e.usage.Entries()
}

// bound returns the handle or the reason there is none. Callers hold e.mu.
func (e *Engine) bound() (*Handle, error) {
	if e.store == nil {
		return nil, ErrNotInitialized
	}
	if e.handle == nil {
		return nil, ErrNoDocument
	}
	return e.handle, nil
}

func (e *Engine) adopt(doc storage.Document) {
	e.handle = &Handle{
		ID:        doc.ID,
		Name:      doc.Name,
		Content:   doc.Content,
		Summary:   doc.Summary,
		RepoLink:  doc.RepoLink,
		Revision:  doc.Revision,
		UpdatedAt: doc.UpdatedAt,
	}
}

// refresh re-reads the bound document and replaces the in-memory copy when
// the stored revision marker moved. Callers hold e.mu.
func (e *Engine) refresh(ctx context.Context, h *Handle) error {
	doc, err := e.store.Get(ctx, h.ID)
	if err != nil {
		return fmt.Errorf("refresh document %q: %w", h.ID, err)
	}
	if doc.Revision != h.Revision || !doc.UpdatedAt.Equal(h.UpdatedAt) {
		e.logger.Debug("document changed in store",
			zap.String("document", h.ID),
			zap.Int64("seen_revision", h.Revision),
			zap.Int64("stored_revision", doc.Revision))
		e.adopt(doc)
	}
	return nil
}

// read returns the current value of field. Content comes from the refreshed
// handle; summary is always read straight from the store.
func (e *Engine) read(ctx context.Context, h *Handle, field string) (string, error) {
	if field == storage.FieldSummary {
		doc, err := e.store.Get(ctx, h.ID)
		if err != nil {
			return "", fmt.Errorf("read summary of %q: %w", h.ID, err)
		}
		return doc.Summary, nil
	}
	if err := e.refresh(ctx, h); err != nil {
		return "", err
	}
	return e.handle.Content, nil
}

// splice is a planned edit in rune offsets of the current field value.
type splice struct {
	from, to int
	insert   string
}

// planFunc validates arguments against the current field value and returns
// the edit to apply.
type planFunc func(ctx context.Context, current string) (splice, error)

// edit runs the mutation pipeline for one field.
func (e *Engine) edit(ctx context.Context, op, field string, plan planFunc) (EditResult, error) {
	return e.mutate(ctx, op, field, true, plan)
}

func (e *Engine) mutate(ctx context.Context, op, field string, journal bool, plan planFunc) (EditResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.bound()
	if err != nil {
		return EditResult{}, err
	}
	id := h.ID

	unlock := e.locks.Lock(id)
	defer unlock()

	current, err := e.read(ctx, h, field)
	if err != nil {
		return EditResult{}, err
	}

	sp, err := plan(ctx, current)
	if err != nil {
		if IsValidation(err) {
			e.logger.Debug("edit rejected", zap.String("document", id), zap.String("operation", op), zap.Error(err))
		}
		return EditResult{}, err
	}

	updated, removed := markup.Splice(current, sp.from, sp.to, sp.insert)
	from := markup.Clamp(sp.from, markup.Length(current))
	result := EditResult{
		Operation: op,
		Field:     field,
		Before:    markup.ClampRange(sp.from, sp.to, markup.Length(current)),
		After:     markup.Range{From: from, To: from + markup.Length(sp.insert)},
		Removed:   removed,
		Inserted:  sp.insert,
		Length:    markup.Length(updated),
	}

	patch := storage.ContentPatch(updated)
	if field == storage.FieldSummary {
		patch = storage.SummaryPatch(updated)
	}
	doc, err := e.store.Update(ctx, id, patch)
	if err != nil {
		return EditResult{}, fmt.Errorf("%s: persist document %q: %w", op, id, err)
	}
	e.adopt(doc)

	if journal && e.journal != nil {
		rev := storage.NewRevision(id, field, op, result.Before, result.After, removed, sp.insert, current, updated)
		rev.DocumentRevision = doc.Revision
		if err := e.journal.Record(ctx, rev); err != nil {
			// Already persisted; only undo is affected.
			e.logger.Warn("failed to journal edit", zap.String("document", id), zap.Error(err))
		}
	}

	e.logUsage(id, op, field, markup.Length(sp.insert), markup.Length(removed), result.Length)
	return result, nil
}

func (e *Engine) logUsage(id, op, field string, inserted, removed, length int) {
	e.usage.Add(UsageEntry{
		Time:       time.Now().UTC(),
		DocumentID: id,
		Operation:  op,
		Field:      field,
		Inserted:   inserted,
		Removed:    removed,
		Length:     length,
	})
	e.logger.Debug("document operation",
		zap.String("document", id),
		zap.String("operation", op),
		zap.String("field", field),
		zap.Int("inserted", inserted),
		zap.Int("removed", removed),
		zap.Int("length", length))
}

// IsNotFound reports whether err means the document is unbound or missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoDocument) || errors.Is(err, storage.ErrNotFound)
}
