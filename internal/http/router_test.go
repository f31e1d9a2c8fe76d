package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"grimoire-editor/internal/session"
	"grimoire-editor/internal/storage"
	"grimoire-editor/internal/storage/mocks"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()

	ctrl := gomock.NewController(t)
	notes := mocks.NewMockNoteStore(ctrl)
	notes.EXPECT().
		Get(gomock.Any(), "note1").
		Return(&storage.NoteRecord{
			ID:      "note1",
			Title:   "Note One",
			Content: "Hello world.\n\nSecond block.",
		}, nil).
		AnyTimes()
	notes.EXPECT().
		List(gomock.Any()).
		Return([]*storage.NoteRecord{}, nil).
		AnyTimes()

	db, err := storage.New(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &Deps{
		DB:           db,
		Notes:        notes,
		Registry:     session.NewRegistry(),
		ContextLimit: 7,
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(testDeps(t))
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(testDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		body       []byte
		wantStatus int
	}{
		{
			name:       "GET /api/health exists",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/sessions opens a session",
			method:     http.MethodPost,
			path:       "/api/sessions",
			body:       []byte(`{"note_id":"note1"}`),
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/sessions rejects an empty body",
			method:     http.MethodPost,
			path:       "/api/sessions",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET unknown session is a 404",
			method:     http.MethodGet,
			path:       "/api/sessions/unknown",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "DELETE unknown session is a 404",
			method:     http.MethodDelete,
			path:       "/api/sessions/unknown",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "GET /api/notes exists",
			method:     http.MethodGet,
			path:       "/api/notes",
			wantStatus: http.StatusOK,
		},
		{
			name:       "DELETE /api/notes method not allowed",
			method:     http.MethodDelete,
			path:       "/api/notes",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_SessionLifecycle(t *testing.T) {
	router := NewRouter(testDeps(t))

	openReq := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{"note_id":"note1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, openReq)

	if w.Code != http.StatusOK {
		t.Fatalf("open session status = %d, want %d", w.Code, http.StatusOK)
	}

	var opened struct {
		SessionID string `json:"session_id"`
		Chunks    []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	if len(opened.Chunks) != 2 {
		t.Fatalf("open session chunks = %d, want 2", len(opened.Chunks))
	}

	editBody, _ := json.Marshal(map[string]interface{}{
		"chunk_id": opened.Chunks[0].ID,
		"text":     "Hello world!",
		"cursor":   12,
	})
	editReq := httptest.NewRequest(http.MethodPost, "/api/sessions/"+opened.SessionID+"/edit", bytes.NewReader(editBody))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, editReq)

	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, want %d", w.Code, http.StatusOK)
	}

	previewReq := httptest.NewRequest(http.MethodGet, "/api/sessions/"+opened.SessionID+"/preview", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, previewReq)

	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Hello world!")) {
		t.Errorf("preview body = %q, want the edited text", body)
	}

	closeReq := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+opened.SessionID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, closeReq)

	if w.Code != http.StatusNoContent {
		t.Fatalf("close status = %d, want %d", w.Code, http.StatusNoContent)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/sessions/"+opened.SessionID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, getReq)

	if w.Code != http.StatusNotFound {
		t.Errorf("get after close status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}

func TestRouter_Preflight(t *testing.T) {
	router := NewRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("preflight Allow-Origin = %q", got)
	}
}
