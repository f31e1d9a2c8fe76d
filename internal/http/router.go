package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grimoire-editor/internal/handlers"
	"grimoire-editor/internal/session"
	"grimoire-editor/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB           *sql.DB
	Notes        storage.NoteStore
	Registry     *session.Registry
	Querier      session.ContextQuerier
	Retrieval    handlers.RetrievalPinger
	ContextLimit int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)

	// Add CORS middleware
	r.Use(CORS)

	sessionHandler := handlers.NewSessionHandler(deps.Registry, deps.Notes, deps.Querier, deps.ContextLimit)
	notesHandler := handlers.NewNotesHandler(deps.Notes)
	previewHandler := handlers.NewPreviewHandler(deps.Registry)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Retrieval)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Open)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Close)
				r.Post("/edit", sessionHandler.Edit)
				r.Post("/click", sessionHandler.Click)
				r.Post("/split", sessionHandler.Split)
				r.Post("/merge", sessionHandler.Merge)
				r.Post("/reveal", sessionHandler.Reveal)
				r.Post("/save", sessionHandler.Save)
				r.Get("/context", sessionHandler.Context)
				r.Method(http.MethodGet, "/preview", previewHandler)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", notesHandler.List)
			r.Get("/*", notesHandler.Get)
			r.Put("/*", notesHandler.Put)
		})
	})

	return r
}
