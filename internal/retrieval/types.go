// Package retrieval defines the contract with the semantic-retrieval backend:
// the cursor-conditioned context query sent out while editing, the snippets
// that come back, and the reveal request the backend issues to open a note at
// a previously retrieved excerpt.
package retrieval

// ContextQuery carries the cleaned document text and cursor position. Offsets
// are Unicode scalar counts into the cleaned document.
type ContextQuery struct {
	NoteID       string `json:"note_id"`
	Text         string `json:"text"`
	CursorOffset int    `json:"cursor_offset"`
	Limit        int    `json:"limit,omitempty"`
}

// Snippet is one retrieved excerpt. ChunkID uses the external
// "<noteId>:<start>:<end>:<idx>" form.
type Snippet struct {
	NoteID  string  `json:"note_id"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Concept string  `json:"concept,omitempty"`
}

// RevealRequest asks the editor to open a note and place the caret at a
// retrieved excerpt. Issued once per user action; resolution is idempotent
// per ID.
type RevealRequest struct {
	ID             string `json:"id"`
	NoteID         string `json:"note_id"`
	ContextChunkID string `json:"context_chunk_id,omitempty"`
	Excerpt        string `json:"excerpt,omitempty"`
}
