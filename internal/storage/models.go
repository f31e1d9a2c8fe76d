package storage

import "time"

// NoteRecord represents a persisted note. ID is the slashed path-like
// identifier the editor and the retrieval backend both address the note by.
// Content is the saved document, chunk markers included when the note was
// ever explicitly split.
type NoteRecord struct {
	ID        string
	Title     string
	Content   string
	UpdatedAt time.Time
}
