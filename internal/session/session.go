// Package session holds the editing state for open notes. A session owns one
// note's chunk sequence and caret, applies edits, clicks, splits and merges
// synchronously, and issues the outbound cursor-conditioned context query
// whenever the caret's cleaned-document offset changes.
package session

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_context_querier.go -package=mocks grimoire-editor/internal/session ContextQuerier

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"grimoire-editor/internal/chunk"
	"grimoire-editor/internal/contextutil"
	"grimoire-editor/internal/offset"
	"grimoire-editor/internal/overlay"
	"grimoire-editor/internal/retrieval"
)

// ContextQuerier issues cursor-conditioned context queries to the retrieval
// backend. *retrieval.Client satisfies it.
type ContextQuerier interface {
	Context(ctx context.Context, query retrieval.ContextQuery) ([]retrieval.Snippet, error)
}

// Caret names the chunk and rune offset where the caret should sit after the
// most recent operation.
type Caret struct {
	ChunkID string
	Offset  int
}

// EditResult reports where the caret landed after an edit and whether the
// chunk was re-segmented on the way.
type EditResult struct {
	Caret     Caret
	Rechunked bool
}

// Session is the single owner of one open note's editing state. Operations
// are serialized by the session mutex and run to completion before returning;
// the only asynchronous edge is the outbound context query.
type Session struct {
	ID     string
	NoteID string

	mu       sync.Mutex
	store    *chunk.Store
	chunker  *chunk.AutoChunker
	caret    Caret
	consumed map[string]bool
	snippets []retrieval.Snippet

	querier ContextQuerier
	limit   int
	seq     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSession opens a session on a note's document. querier may be nil, in
// which case no context queries are issued. limit caps how many snippets the
// backend is asked for.
func NewSession(noteID, document string, querier ContextQuerier, limit int) *Session {
	s := &Session{
		ID:       uuid.New().String(),
		NoteID:   noteID,
		store:    chunk.NewStore(document),
		chunker:  chunk.NewAutoChunker(),
		consumed: make(map[string]bool),
		querier:  querier,
		limit:    limit,
	}
	s.caret = Caret{ChunkID: s.store.Active()}
	return s
}

// ApplyEdit replaces one chunk's text from a keystroke and reports where the
// caret landed. cursor is a rune offset into the new text. Compaction of an
// all-blank document and re-chunking of an overgrown chunk both run before
// this returns, so the caret target already accounts for them. Unknown chunk
// ids are a no-op.
func (s *Session) ApplyEdit(chunkID, text string, cursor int) (EditResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.SetText(chunkID, text) {
		return EditResult{}, false
	}
	s.store.Activate(chunkID)

	cursor = clamp(cursor, 0, utf8.RuneCountInString(text))
	s.caret = Caret{ChunkID: chunkID, Offset: cursor}

	if s.store.Compact() {
		s.caret = Caret{ChunkID: s.store.Active()}
	}

	res := EditResult{}
	if c, ok := s.store.Get(s.caret.ChunkID); ok && s.chunker.NeedsSplit(c.Text) {
		if parts, cursorPart, local, ok := s.chunker.Split(c, s.caret.Offset); ok {
			s.store.Replace(c.ID, parts)
			s.store.Activate(parts[cursorPart].ID)
			s.caret = Caret{ChunkID: parts[cursorPart].ID, Offset: local}
			res.Rechunked = true
		}
	}

	res.Caret = s.caret
	s.dispatchContext()
	return res, true
}

// Click maps a render-mode click in the composite visible buffer to a chunk
// and raw offset, activates that chunk and records the caret there.
func (s *Session) Click(index int) (Caret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hit, ok := overlay.Build(s.store.Chunks()).HitTest(index)
	if !ok {
		return Caret{}, false
	}

	s.store.Activate(hit.ChunkID)
	s.caret = Caret{ChunkID: hit.ChunkID, Offset: hit.RawOffset}
	s.dispatchContext()
	return s.caret, true
}

// SplitChunk cuts a chunk at a rune offset. The new chunk holding the text
// after the cut becomes active with the caret at its head. Unknown ids are a
// no-op.
func (s *Session) SplitChunk(chunkID string, at int) (Caret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.store.Split(chunkID, at)
	if !ok {
		return Caret{}, false
	}

	s.caret = Caret{ChunkID: next.ID}
	s.dispatchContext()
	return s.caret, true
}

// MergeChunk folds a chunk onto its previous sibling, placing the caret at
// the junction where the removed text begins. Merging the first chunk, or an
// unknown id, is a no-op.
func (s *Session) MergeChunk(chunkID string) (Caret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	junction, ok := s.store.MergeWithPrevious(chunkID)
	if !ok {
		return Caret{}, false
	}

	s.caret = Caret{ChunkID: s.store.Active(), Offset: junction}
	s.dispatchContext()
	return s.caret, true
}

// Reveal resolves an external request to place the caret at a previously
// retrieved excerpt. Resolution is idempotent per request id: once a request
// resolves successfully its id is consumed and later deliveries of the same
// id are no-ops. A failed resolution does not consume the id, so the request
// may succeed later once the note content catches up. Requests addressed to
// another note are rejected.
func (s *Session) Reveal(req retrieval.RevealRequest) (Caret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.NoteID != "" && req.NoteID != s.NoteID {
		return Caret{}, false
	}
	if req.ID != "" && s.consumed[req.ID] {
		return Caret{}, false
	}

	target, ok := offset.ResolveTarget(s.store.Chunks(), req.ContextChunkID, req.Excerpt)
	if !ok {
		return Caret{}, false
	}

	if req.ID != "" {
		s.consumed[req.ID] = true
	}
	s.store.Activate(target.ChunkID)
	s.caret = Caret{ChunkID: target.ChunkID, Offset: target.Offset}
	s.dispatchContext()
	return s.caret, true
}

// Chunks returns a copy of the chunk sequence in document order.
func (s *Session) Chunks() []chunk.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Chunks()
}

// ActiveID returns the id of the active chunk.
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Active()
}

// Caret returns the current caret target.
func (s *Session) Caret() Caret {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caret
}

// Document reassembles the note into its saved form.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Document()
}

// Cleaned returns the marker-free document the retrieval backend addresses.
func (s *Session) Cleaned() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return offset.Cleaned(s.store.Chunks())
}

// Overlay builds the render-mode hit-testing model for the current chunks.
func (s *Session) Overlay() *overlay.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return overlay.Build(s.store.Chunks())
}

// Snippets returns the snippets from the most recent completed context query
// that was still current when its response arrived.
func (s *Session) Snippets() []retrieval.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]retrieval.Snippet, len(s.snippets))
	copy(out, s.snippets)
	return out
}

// Close cancels any in-flight context query and waits for it to settle. The
// session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.querier = nil
	s.mu.Unlock()
	s.wg.Wait()
}

// dispatchContext issues the outbound context query for the current caret.
// Callers hold the lock. Issuing a new query cancels the in-flight one, and a
// response arriving for a superseded query is discarded, so the stored
// snippets always belong to the most recently issued query.
func (s *Session) dispatchContext() {
	if s.querier == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq

	chunks := s.store.Chunks()
	cursor, ok := offset.CleanedOffset(chunks, s.caret.ChunkID, s.caret.Offset)
	if !ok {
		cursor = 0
	}
	query := retrieval.ContextQuery{
		NoteID:       s.NoteID,
		Text:         offset.Cleaned(chunks),
		CursorOffset: cursor,
		Limit:        s.limit,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	querier := s.querier

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		snippets, err := querier.Context(ctx, query)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger := contextutil.LoggerFromContext(ctx)
				logger.WarnContext(ctx, "context query failed", "note_id", query.NoteID, "error", err)
			}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.seq {
			return
		}
		s.snippets = snippets
	}()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
