// Package store keeps the local workflow library: drafts saved on this
// machine, independent of the backend. Saving or loading a draft never
// touches the live scene; the UI routes loaded documents through the normal
// import path.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"flow-studio/internal/workflow"
)

// ErrNotFound is returned when a draft id is absent from the library.
var ErrNotFound = errors.New("draft not found")

// DraftInfo describes one saved workflow without its document body.
type DraftInfo struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Library is the sqlite-backed draft store.
type Library struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS workflows (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		document   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workflows_updated ON workflows(updated_at)`,
}

// Open opens the library database at path, creating it and its schema as
// needed. Use ":memory:" in tests.
func Open(path string) (*Library, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open library database: %w", err)
	}
	// One connection: the modernc driver serializes access and an editor
	// has no concurrent writers anyway.
	db.SetMaxOpenConns(1)

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("library migration %d: %w", i, err)
		}
	}
	return &Library{db: db}, nil
}

// Close closes the underlying database.
func (l *Library) Close() error {
	return l.db.Close()
}

// SaveDraft stores the document under the given id, generating a fresh id
// when it is empty. Saving an existing id overwrites the document and name
// but keeps the original creation time.
func (l *Library) SaveDraft(id string, doc workflow.Document) (DraftInfo, error) {
	data, err := doc.Encode()
	if err != nil {
		return DraftInfo{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = l.db.Exec(`INSERT INTO workflows (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		id, doc.Name, string(data), now, now)
	if err != nil {
		return DraftInfo{}, fmt.Errorf("save draft: %w", err)
	}
	return l.Info(id)
}

// Info returns the metadata of one draft.
func (l *Library) Info(id string) (DraftInfo, error) {
	row := l.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM workflows WHERE id = ?`, id)
	return scanInfo(row)
}

// ListDrafts returns all drafts, most recently updated first.
func (l *Library) ListDrafts() ([]DraftInfo, error) {
	rows, err := l.db.Query(
		`SELECT id, name, created_at, updated_at FROM workflows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []DraftInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadDraft returns the stored document for the given id.
func (l *Library) LoadDraft(id string) (workflow.Document, error) {
	var data string
	err := l.db.QueryRow(`SELECT document FROM workflows WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.Document{}, ErrNotFound
	}
	if err != nil {
		return workflow.Document{}, fmt.Errorf("load draft %s: %w", id, err)
	}
	return workflow.Parse([]byte(data))
}

// DeleteDraft removes a draft. Deleting an absent id returns ErrNotFound.
func (l *Library) DeleteDraft(id string) error {
	res, err := l.db.Exec(`DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(row rowScanner) (DraftInfo, error) {
	var info DraftInfo
	var created, updated string
	err := row.Scan(&info.ID, &info.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return DraftInfo{}, ErrNotFound
	}
	if err != nil {
		return DraftInfo{}, fmt.Errorf("scan draft: %w", err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return DraftInfo{}, fmt.Errorf("parse draft created_at: %w", err)
	}
	if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return DraftInfo{}, fmt.Errorf("parse draft updated_at: %w", err)
	}
	return info, nil
}
