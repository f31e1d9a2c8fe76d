package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"grimoire-editor/internal/contextutil"
	"grimoire-editor/internal/importer"
	"grimoire-editor/internal/storage"
)

// NotesHandler handles HTTP requests for stored notes.
type NotesHandler struct {
	notes storage.NoteStore
}

// NewNotesHandler creates a new NotesHandler.
func NewNotesHandler(notes storage.NoteStore) *NotesHandler {
	return &NotesHandler{notes: notes}
}

// NoteSummary represents a note without its content.
type NoteSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

// NoteResponse represents a full note.
type NoteResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at"`
}

// ListNotesResponse represents the note listing.
type ListNotesResponse struct {
	Notes []NoteSummary `json:"notes"`
}

// PutNoteRequest represents the HTTP request payload for writing a note.
type PutNoteRequest struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// List handles GET /api/notes.
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	records, err := h.notes.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list notes", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	resp := ListNotesResponse{Notes: make([]NoteSummary, len(records))}
	for i, rec := range records {
		resp.Notes[i] = NoteSummary{
			ID:        rec.ID,
			Title:     rec.Title,
			UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}

	h.writeJSON(w, r, resp)
}

// Get handles GET /api/notes/*.
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, err := noteIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	rec, err := h.notes.Get(ctx, noteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load note", "note_id", noteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load note")
		return
	}

	h.writeJSON(w, r, NoteResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Content:   rec.Content,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Put handles PUT /api/notes/*. It creates the note if it does not exist.
// An empty title derives one from the note id.
func (h *NotesHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, err := noteIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	var req PutNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = importer.TitleFromID(noteID)
	}

	record := &storage.NoteRecord{
		ID:      noteID,
		Title:   title,
		Content: req.Content,
	}
	if err := h.notes.Upsert(ctx, record); err != nil {
		logger.ErrorContext(ctx, "failed to write note", "note_id", noteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to write note")
		return
	}

	rec, err := h.notes.Get(ctx, noteID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to reload note", "note_id", noteID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to write note")
		return
	}

	h.writeJSON(w, r, NoteResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Content:   rec.Content,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// noteIDParam extracts and cleans the slashed note id from the wildcard
// route parameter. Traversal segments are rejected.
func noteIDParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(decoded)
	if trimmed == "" {
		return "", errors.New("empty note id")
	}

	cleaned := path.Clean("/" + trimmed)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", errors.New("invalid note id")
	}

	for _, segment := range strings.Split(cleaned, "/") {
		if segment == ".." {
			return "", errors.New("path traversal detected")
		}
	}

	return cleaned, nil
}

// writeJSON writes a JSON response.
func (h *NotesHandler) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := contextutil.LoggerFromContext(r.Context())
		logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (h *NotesHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
