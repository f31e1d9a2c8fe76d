package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"grimoire-editor/internal/contextutil"
	"grimoire-editor/internal/session"
)

// PreviewHandler renders a session's cleaned document as HTML for render
// mode. Chunk markers never reach the renderer; the cleaned document has
// them removed already.
type PreviewHandler struct {
	registry *session.Registry
	parser   goldmark.Markdown
}

// NewPreviewHandler creates a new PreviewHandler.
func NewPreviewHandler(registry *session.Registry) *PreviewHandler {
	return &PreviewHandler{
		registry: registry,
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
				extension.TaskList,
				extension.Strikethrough,
				extension.Linkify,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithUnsafe(),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// ServeHTTP handles GET /api/sessions/{sessionID}/preview.
func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	html, err := h.renderMarkdown([]byte(s.Cleaned()))
	if err != nil {
		logger.ErrorContext(ctx, "failed to render preview", "session_id", s.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *PreviewHandler) renderMarkdown(content []byte) (string, error) {
	var buf bytes.Buffer
	if err := h.parser.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// writeError writes an error response.
func (h *PreviewHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
