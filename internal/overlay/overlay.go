// Package overlay composes the visible text of every chunk into a single
// buffer for render-mode hit testing. A click position in the composite
// buffer maps back to the chunk under it and a raw offset inside that
// chunk's Markdown.
package overlay

import (
	"strings"
	"unicode/utf8"

	"grimoire-editor/internal/chunk"
	"grimoire-editor/internal/flatten"
)

// Segment records where one chunk's visible text landed in the composite
// buffer, along with the mapping back into its raw Markdown. Start and End
// are scalar positions; End is the insertion point at the chunk's tail.
type Segment struct {
	ChunkID string
	Start   int
	End     int
	Mapping flatten.Mapping
}

// Hit names the chunk under a click and the raw offset to place the caret
// at inside it.
type Hit struct {
	ChunkID   string
	RawOffset int
}

// Model is a snapshot built from the current chunk sequence. It is only
// consulted while no chunk is being edited; rebuild it after any chunk
// mutation.
type Model struct {
	segments []Segment
	text     string
}

// Build flattens every chunk and joins the visible texts with a single
// newline between chunks.
func Build(chunks []chunk.Chunk) *Model {
	var b strings.Builder
	segments := make([]Segment, 0, len(chunks))

	pos := 0
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n")
			pos++
		}
		m := flatten.Flatten(c.Text)
		n := utf8.RuneCountInString(m.Visible)
		segments = append(segments, Segment{
			ChunkID: c.ID,
			Start:   pos,
			End:     pos + n,
			Mapping: m,
		})
		b.WriteString(m.Visible)
		pos += n
	}

	return &Model{segments: segments, text: b.String()}
}

// Text returns the composite visible buffer.
func (m *Model) Text() string {
	return m.text
}

// Segments returns the recorded chunk placements in document order.
func (m *Model) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// HitTest maps a scalar index in the composite buffer to a chunk and raw
// offset. An index on an inter-chunk separator or past the end selects the
// nearest preceding chunk and lands at its tail, so clicking just past a
// block edits at the block's end. Returns false only for an empty model.
func (m *Model) HitTest(index int) (Hit, bool) {
	if len(m.segments) == 0 {
		return Hit{}, false
	}

	for _, s := range m.segments {
		if index >= s.Start && index <= s.End {
			return Hit{ChunkID: s.ChunkID, RawOffset: s.Mapping.RawOffset(index - s.Start)}, true
		}
	}

	pick := m.segments[0]
	for _, s := range m.segments[1:] {
		if s.Start > index {
			break
		}
		pick = s
	}
	return Hit{ChunkID: pick.ChunkID, RawOffset: pick.Mapping.Tail()}, true
}
