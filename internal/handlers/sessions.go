package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"grimoire-editor/internal/contextutil"
	"grimoire-editor/internal/importer"
	"grimoire-editor/internal/retrieval"
	"grimoire-editor/internal/session"
	"grimoire-editor/internal/storage"
)

// SessionHandler handles HTTP requests for editing sessions.
type SessionHandler struct {
	registry     *session.Registry
	notes        storage.NoteStore
	querier      session.ContextQuerier
	contextLimit int
}

// NewSessionHandler creates a new SessionHandler. querier may be nil, in
// which case sessions run without context queries.
func NewSessionHandler(registry *session.Registry, notes storage.NoteStore, querier session.ContextQuerier, contextLimit int) *SessionHandler {
	return &SessionHandler{
		registry:     registry,
		notes:        notes,
		querier:      querier,
		contextLimit: contextLimit,
	}
}

// OpenSessionRequest represents the HTTP request payload for opening a session.
type OpenSessionRequest struct {
	NoteID string `json:"note_id"`
}

// ChunkPayload represents one chunk of a note in HTTP responses.
type ChunkPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CaretPayload names the chunk and rune offset where the caret sits.
type CaretPayload struct {
	ChunkID string `json:"chunk_id"`
	Offset  int    `json:"offset"`
}

// SessionResponse represents the full editing state of a session.
type SessionResponse struct {
	SessionID     string         `json:"session_id"`
	NoteID        string         `json:"note_id"`
	ActiveChunkID string         `json:"active_chunk_id"`
	Caret         CaretPayload   `json:"caret"`
	Chunks        []ChunkPayload `json:"chunks"`
}

// EditRequest represents the HTTP request payload for a chunk edit.
type EditRequest struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
	Cursor  int    `json:"cursor"`
}

// EditResponse reports where the caret landed after an edit. Chunks carries
// the full chunk list because compaction or re-chunking may have changed it.
type EditResponse struct {
	Caret     CaretPayload   `json:"caret"`
	Rechunked bool           `json:"rechunked"`
	Chunks    []ChunkPayload `json:"chunks"`
}

// ClickRequest represents a render-mode click at a rune index into the
// composite visible buffer.
type ClickRequest struct {
	Index int `json:"index"`
}

// CaretResponse represents the caret placement after click, split or merge.
type CaretResponse struct {
	Caret  CaretPayload   `json:"caret"`
	Chunks []ChunkPayload `json:"chunks,omitempty"`
}

// SplitRequest represents the HTTP request payload for a manual chunk split.
type SplitRequest struct {
	ChunkID string `json:"chunk_id"`
	Offset  int    `json:"offset"`
}

// MergeRequest represents the HTTP request payload for merging a chunk into
// its predecessor.
type MergeRequest struct {
	ChunkID string `json:"chunk_id"`
}

// RevealRequest represents the HTTP request payload for revealing a
// previously retrieved excerpt. This mirrors retrieval.RevealRequest but is
// defined here for HTTP layer separation.
type RevealRequest struct {
	ID             string `json:"id"`
	NoteID         string `json:"note_id"`
	ContextChunkID string `json:"context_chunk_id,omitempty"`
	Excerpt        string `json:"excerpt,omitempty"`
}

// RevealResponse reports whether the reveal resolved to a chunk.
type RevealResponse struct {
	Matched bool          `json:"matched"`
	Caret   *CaretPayload `json:"caret,omitempty"`
}

// SaveResponse represents the HTTP response payload after persisting a
// session's document.
type SaveResponse struct {
	NoteID string `json:"note_id"`
}

// SnippetPayload represents one retrieved snippet in HTTP responses. This
// mirrors retrieval.Snippet but is defined here for HTTP layer separation.
type SnippetPayload struct {
	NoteID  string  `json:"note_id"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Concept string  `json:"concept,omitempty"`
}

// ContextResponse represents the latest snippets retrieved for a session.
type ContextResponse struct {
	Snippets []SnippetPayload `json:"snippets"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Open handles POST /api/sessions. It loads the note, parses it into chunks
// and registers a new session.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	noteID := strings.TrimSpace(req.NoteID)
	if noteID == "" {
		logger.WarnContext(ctx, "empty note id in request")
		h.writeError(w, http.StatusBadRequest, "Note id is required")
		return
	}

	note, err := h.notes.Get(ctx, noteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load note", "note_id", noteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load note")
		return
	}

	s := session.NewSession(note.ID, note.Content, h.querier, h.contextLimit)
	h.registry.Add(s)
	logger.InfoContext(ctx, "session opened", "session_id", s.ID, "note_id", note.ID)

	h.writeJSON(w, r, sessionState(s))
}

// Get handles GET /api/sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, r, sessionState(s))
}

// Edit handles POST /api/sessions/{sessionID}/edit.
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, ok := s.ApplyEdit(req.ChunkID, req.Text, req.Cursor)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Chunk not found")
		return
	}

	h.writeJSON(w, r, EditResponse{
		Caret:     CaretPayload{ChunkID: res.Caret.ChunkID, Offset: res.Caret.Offset},
		Rechunked: res.Rechunked,
		Chunks:    chunkPayloads(s),
	})
}

// Click handles POST /api/sessions/{sessionID}/click.
func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caret, ok := s.Click(req.Index)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "Nothing to click")
		return
	}

	h.writeJSON(w, r, CaretResponse{
		Caret: CaretPayload{ChunkID: caret.ChunkID, Offset: caret.Offset},
	})
}

// Split handles POST /api/sessions/{sessionID}/split.
func (h *SessionHandler) Split(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caret, ok := s.SplitChunk(req.ChunkID, req.Offset)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Chunk not found")
		return
	}

	h.writeJSON(w, r, CaretResponse{
		Caret:  CaretPayload{ChunkID: caret.ChunkID, Offset: caret.Offset},
		Chunks: chunkPayloads(s),
	})
}

// Merge handles POST /api/sessions/{sessionID}/merge.
func (h *SessionHandler) Merge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caret, ok := s.MergeChunk(req.ChunkID)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "Nothing to merge")
		return
	}

	h.writeJSON(w, r, CaretResponse{
		Caret:  CaretPayload{ChunkID: caret.ChunkID, Offset: caret.Offset},
		Chunks: chunkPayloads(s),
	})
}

// Reveal handles POST /api/sessions/{sessionID}/reveal. An unresolvable
// reveal is not an error; the response carries matched=false.
func (h *SessionHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caret, matched := s.Reveal(retrieval.RevealRequest{
		ID:             req.ID,
		NoteID:         req.NoteID,
		ContextChunkID: req.ContextChunkID,
		Excerpt:        req.Excerpt,
	})
	if !matched {
		logger.DebugContext(ctx, "reveal did not resolve", "session_id", s.ID, "reveal_id", req.ID)
		h.writeJSON(w, r, RevealResponse{Matched: false})
		return
	}

	h.writeJSON(w, r, RevealResponse{
		Matched: true,
		Caret:   &CaretPayload{ChunkID: caret.ChunkID, Offset: caret.Offset},
	})
}

// Save handles POST /api/sessions/{sessionID}/save. It persists the joined
// document, markers included, preserving the stored title.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	title := importer.TitleFromID(s.NoteID)
	if existing, err := h.notes.Get(ctx, s.NoteID); err == nil {
		title = existing.Title
	} else if !errors.Is(err, storage.ErrNotFound) {
		logger.ErrorContext(ctx, "failed to load note for save", "note_id", s.NoteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save note")
		return
	}

	record := &storage.NoteRecord{
		ID:      s.NoteID,
		Title:   title,
		Content: s.Document(),
	}
	if err := h.notes.Upsert(ctx, record); err != nil {
		logger.ErrorContext(ctx, "failed to save note", "note_id", s.NoteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save note")
		return
	}
	logger.InfoContext(ctx, "note saved", "session_id", s.ID, "note_id", s.NoteID)

	h.writeJSON(w, r, SaveResponse{NoteID: s.NoteID})
}

// Context handles GET /api/sessions/{sessionID}/context. It returns the
// snippets from the most recent completed context query.
func (h *SessionHandler) Context(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snippets := s.Snippets()
	payload := make([]SnippetPayload, len(snippets))
	for i, sn := range snippets {
		payload[i] = SnippetPayload{
			NoteID:  sn.NoteID,
			ChunkID: sn.ChunkID,
			Text:    sn.Text,
			Score:   sn.Score,
			Concept: sn.Concept,
		}
	}

	h.writeJSON(w, r, ContextResponse{Snippets: payload})
}

// Close handles DELETE /api/sessions/{sessionID}. It cancels any in-flight
// context query and removes the session from the registry.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.registry.Close(sessionID); err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	logger.InfoContext(ctx, "session closed", "session_id", sessionID)

	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the sessionID route parameter, writing a 404 on a miss.
func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

func sessionState(s *session.Session) SessionResponse {
	caret := s.Caret()
	return SessionResponse{
		SessionID:     s.ID,
		NoteID:        s.NoteID,
		ActiveChunkID: s.ActiveID(),
		Caret:         CaretPayload{ChunkID: caret.ChunkID, Offset: caret.Offset},
		Chunks:        chunkPayloads(s),
	}
}

func chunkPayloads(s *session.Session) []ChunkPayload {
	chunks := s.Chunks()
	payload := make([]ChunkPayload, len(chunks))
	for i, c := range chunks {
		payload[i] = ChunkPayload{ID: c.ID, Text: c.Text}
	}
	return payload
}

// writeJSON writes a JSON response.
func (h *SessionHandler) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := contextutil.LoggerFromContext(r.Context())
		logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (h *SessionHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
