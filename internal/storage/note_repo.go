package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks grimoire-editor/internal/storage NoteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// NoteStore defines the interface for note storage operations.
type NoteStore interface {
	// Get returns a note by id, content included.
	// Returns nil and ErrNotFound if not found.
	Get(ctx context.Context, id string) (*NoteRecord, error)
	// Upsert inserts a new note or updates an existing one's title and content.
	Upsert(ctx context.Context, note *NoteRecord) error
	// List returns all notes ordered by id, contents omitted.
	List(ctx context.Context) ([]*NoteRecord, error)
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Get returns a note by id, content included.
// Returns nil and ErrNotFound if not found.
func (r *NoteRepo) Get(ctx context.Context, id string) (*NoteRecord, error) {
	var note NoteRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, content, updated_at FROM notes WHERE id = ?",
		id,
	).Scan(&note.ID, &note.Title, &note.Content, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	note.UpdatedAt, err = parseTimestamp(updatedAtStr)
	if err != nil {
		return nil, err
	}

	return &note, nil
}

// Upsert inserts a new note or updates an existing one's title and content,
// refreshing updated_at either way.
func (r *NoteRepo) Upsert(ctx context.Context, note *NoteRecord) error {
	if note.ID == "" {
		return fmt.Errorf("note id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		 title = excluded.title, content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		note.ID, note.Title, note.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}

	return nil
}

// List returns all notes ordered by id. Contents are omitted so the listing
// stays cheap for large collections.
func (r *NoteRepo) List(ctx context.Context) ([]*NoteRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, updated_at FROM notes ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var notes []*NoteRecord
	for rows.Next() {
		var note NoteRecord
		var updatedAtStr string
		if err := rows.Scan(&note.ID, &note.Title, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.UpdatedAt, err = parseTimestamp(updatedAtStr)
		if err != nil {
			return nil, err
		}
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

// parseTimestamp reads a DATETIME column. SQLite may hand back either its
// default format or RFC3339 depending on how the value was written.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	return t, nil
}
