package chunk

import (
	"strings"
	"unicode/utf8"
)

// Store owns the ordered chunk sequence for one open note, plus the active
// chunk id. All mutation goes through the store; callers only ever see
// copies, so no chunk is aliased outside it.
type Store struct {
	chunks   []Chunk
	activeID string
	explicit bool
}

// NewStore parses a document and activates its first chunk.
func NewStore(document string) *Store {
	chunks, explicit := Parse(document)
	return &Store{
		chunks:   chunks,
		activeID: chunks[0].ID,
		explicit: explicit,
	}
}

// Chunks returns a copy of the chunk sequence in document order.
func (s *Store) Chunks() []Chunk {
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Len returns the number of chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Active returns the id of the active chunk.
func (s *Store) Active() string {
	return s.activeID
}

// Explicit reports whether the document carries markers, either because it
// was parsed with them or because a split happened in this session.
func (s *Store) Explicit() bool {
	return s.explicit
}

// Get returns the chunk with the given id.
func (s *Store) Get(id string) (Chunk, bool) {
	i := s.index(id)
	if i < 0 {
		return Chunk{}, false
	}
	return s.chunks[i], true
}

// Index returns the position of the chunk with the given id, or -1.
func (s *Store) Index(id string) int {
	return s.index(id)
}

func (s *Store) index(id string) int {
	for i, c := range s.chunks {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Activate marks the chunk with the given id active. Unknown ids are a no-op.
func (s *Store) Activate(id string) bool {
	if s.index(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// SetText replaces the text of the chunk with the given id, keeping the id.
// Unknown ids are a no-op.
func (s *Store) SetText(id, text string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.chunks[i].Text = text
	return true
}

// Split divides the chunk at a rune offset into two siblings. The original
// id stays with the text before the offset; the text at and after it moves
// to a freshly minted chunk inserted immediately after, which becomes
// active. Offsets outside the text are clamped, so splitting at 0 or past
// the end yields an empty first or second part rather than failing. Unknown
// ids are a no-op.
func (s *Store) Split(id string, offset int) (Chunk, bool) {
	i := s.index(id)
	if i < 0 {
		return Chunk{}, false
	}

	runes := []rune(s.chunks[i].Text)
	offset = clamp(offset, 0, len(runes))

	next := New(string(runes[offset:]))
	s.chunks[i].Text = string(runes[:offset])

	s.chunks = append(s.chunks, Chunk{})
	copy(s.chunks[i+2:], s.chunks[i+1:])
	s.chunks[i+1] = next

	s.activeID = next.ID
	s.explicit = true
	return next, true
}

// MergeWithPrevious concatenates the chunk's text onto the end of its
// previous sibling and removes it, transferring activation to the previous
// chunk. A newline is inserted at the junction only when both texts are
// non-empty and the previous one does not already end in a newline. The
// returned junction is the rune offset in the merged chunk where the removed
// chunk's text begins. Merging the first chunk, or an unknown id, is a no-op.
func (s *Store) MergeWithPrevious(id string) (junction int, ok bool) {
	i := s.index(id)
	if i <= 0 {
		return 0, false
	}

	prev := s.chunks[i-1].Text
	cur := s.chunks[i].Text

	merged := prev
	if prev != "" && cur != "" && !strings.HasSuffix(prev, "\n") {
		merged += "\n"
	}
	junction = utf8.RuneCountInString(merged)
	merged += cur

	s.chunks[i-1].Text = merged
	s.activeID = s.chunks[i-1].ID
	s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
	return junction, true
}

// Replace substitutes the chunk with the given id by the supplied parts,
// splicing them in at its position. The re-chunked boundaries are not
// recoverable from blank lines, so the document becomes explicit. Unknown
// ids, or an empty parts slice, are a no-op.
func (s *Store) Replace(id string, parts []Chunk) bool {
	i := s.index(id)
	if i < 0 || len(parts) == 0 {
		return false
	}

	out := make([]Chunk, 0, len(s.chunks)+len(parts)-1)
	out = append(out, s.chunks[:i]...)
	out = append(out, parts...)
	out = append(out, s.chunks[i+1:]...)
	s.chunks = out

	if s.index(s.activeID) < 0 {
		s.activeID = parts[0].ID
	}
	s.explicit = true
	return true
}

// Compact collapses the sequence to a single chunk with empty text when
// every chunk is whitespace-only, keeping the first chunk's id. It prevents
// unbounded accumulation of blank chunks from repeated empty splits. Returns
// whether anything changed.
func (s *Store) Compact() bool {
	if len(s.chunks) == 1 && s.chunks[0].Text == "" {
		return false
	}
	for _, c := range s.chunks {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	s.chunks = []Chunk{{ID: s.chunks[0].ID, Text: ""}}
	s.activeID = s.chunks[0].ID
	return true
}

// Document reassembles the chunks into their saved form. Documents that were
// explicitly split carry the canonical marker separator; legacy documents
// that were never split are rejoined with blank lines so markers never
// appear behind the user's back.
func (s *Store) Document() string {
	if s.explicit {
		return Join(s.chunks)
	}
	return joinLegacy(s.chunks)
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
