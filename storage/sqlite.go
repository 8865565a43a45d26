// Package storage provides SQLite document storage.
//
// Information Hiding:
// - SQLite connection management hidden behind DocumentStore and Journal
// - Schema and migration details encapsulated
// - Driver choice (cgo mattn or pure-Go modernc) is a constructor argument

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite driver names accepted by OpenSqlite.
const (
	DriverCgo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SqliteStorage implements DocumentStore and Journal using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access, and
// updates run inside a transaction.
type SqliteStorage struct {
	db *sql.DB
}

var (
	_ DocumentStore = (*SqliteStorage)(nil)
	_ Journal       = (*SqliteStorage)(nil)
)

// OpenSqlite opens or creates a SQLite database at the given path using the
// named driver (DriverCgo or DriverPureGo; empty selects DriverCgo).
// Creates parent directories if they don't exist.
func OpenSqlite(driver, path string) (*SqliteStorage, error) {
	if driver == "" {
		driver = DriverCgo
	}
	if driver != DriverCgo && driver != DriverPureGo {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(driver string) (*SqliteStorage, error) {
	if driver == "" {
		driver = DriverCgo
	}
	db, err := sql.Open(driver, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			repo_link TEXT NOT NULL DEFAULT '',
			revision INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS revisions (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			field TEXT NOT NULL,
			operation TEXT NOT NULL,
			before_from INTEGER NOT NULL,
			before_to INTEGER NOT NULL,
			after_from INTEGER NOT NULL,
			after_to INTEGER NOT NULL,
			removed TEXT NOT NULL,
			inserted TEXT NOT NULL,
			patch TEXT NOT NULL,
			undo_patch TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			document_revision INTEGER NOT NULL DEFAULT 0,
			seq INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revisions_document
		ON revisions(document_id, seq DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var updatedAt int64
	err := row.Scan(&doc.ID, &doc.Name, &doc.Content, &doc.Summary, &doc.RepoLink, &doc.Revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return doc, nil
}

const selectDocument = `SELECT id, name, content, summary, repo_link, revision, updated_at
	FROM documents WHERE id = ?`

// Get returns the document with the given id.
func (s *SqliteStorage) Get(ctx context.Context, id string) (Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, selectDocument, id))
}

// Put creates or replaces a whole document.
func (s *SqliteStorage) Put(ctx context.Context, doc Document) error {
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, content, summary, repo_link, revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content = excluded.content,
			summary = excluded.summary,
			repo_link = excluded.repo_link,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, doc.Content, doc.Summary, doc.RepoLink, doc.Revision, doc.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Update applies a partial patch inside a transaction.
func (s *SqliteStorage) Update(ctx context.Context, id string, patch Patch) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	doc, err := scanDocument(tx.QueryRowContext(ctx, selectDocument, id))
	if err != nil {
		return Document{}, err
	}

	doc = applyPatch(doc, patch, time.Now().UTC())
	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET content = ?, summary = ?, revision = ?, updated_at = ? WHERE id = ?",
		doc.Content, doc.Summary, doc.Revision, doc.UpdatedAt.UnixNano(), id)
	if err != nil {
		return Document{}, fmt.Errorf("failed to update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return doc, nil
}

// Record appends a revision to the journal.
func (s *SqliteStorage) Record(ctx context.Context, rev Revision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revisions (id, document_id, field, operation,
			before_from, before_to, after_from, after_to,
			removed, inserted, patch, undo_patch, created_at, document_revision, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM revisions))`,
		rev.ID, rev.DocumentID, rev.Field, rev.Operation,
		rev.Before.From, rev.Before.To, rev.After.From, rev.After.To,
		rev.Removed, rev.Inserted, rev.Patch, rev.UndoPatch, rev.CreatedAt.UnixNano(),
		rev.DocumentRevision,
	)
	if err != nil {
		return fmt.Errorf("failed to record revision: %w", err)
	}
	return nil
}

// History returns the most recent revisions of a document, newest first.
// A non-positive limit returns all revisions.
func (s *SqliteStorage) History(ctx context.Context, documentID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, field, operation,
			before_from, before_to, after_from, after_to,
			removed, inserted, patch, undo_patch, created_at, document_revision
		FROM revisions
		WHERE document_id = ?
		ORDER BY seq DESC
		LIMIT ?`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		var createdAt int64
		if err := rows.Scan(&rev.ID, &rev.DocumentID, &rev.Field, &rev.Operation,
			&rev.Before.From, &rev.Before.To, &rev.After.From, &rev.After.To,
			&rev.Removed, &rev.Inserted, &rev.Patch, &rev.UndoPatch, &createdAt,
			&rev.DocumentRevision); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		rev.CreatedAt = time.Unix(0, createdAt).UTC()
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}
	return revisions, nil
}

// Discard removes a revision from the journal.
func (s *SqliteStorage) Discard(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM revisions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to discard revision: %w", err)
	}
	return nil
}
