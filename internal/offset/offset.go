// Package offset converts between per-chunk rune offsets and the cleaned
// document space: the chunk texts joined with a two-character paragraph
// separator and no markers. External references address excerpts in that
// space, so every count here is in Unicode scalar units.
package offset

import (
	"strings"
	"unicode/utf8"

	"grimoire-editor/internal/chunk"
)

// separator joins chunk texts in the cleaned document. It is what remains
// of the canonical chunk separator once the marker is deleted.
const separator = "\n\n"

const separatorLen = 2

// Range is one chunk's span in the cleaned document, end exclusive.
type Range struct {
	ChunkID string
	Start   int
	End     int
}

// Ranges computes every chunk's cleaned-document span in order. Adjacent
// ranges are separated by the separator width, so no two ranges touch.
func Ranges(chunks []chunk.Chunk) []Range {
	ranges := make([]Range, len(chunks))
	pos := 0
	for i, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		ranges[i] = Range{ChunkID: c.ID, Start: pos, End: pos + n}
		pos += n + separatorLen
	}
	return ranges
}

// Cleaned returns the cleaned document: chunk texts joined with the
// separator. This must stay byte-identical to what the retrieval backend
// derives from the saved note, since its excerpt offsets index into it.
func Cleaned(chunks []chunk.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, separator)
}

// CleanedOffset maps a rune offset within one chunk to the cleaned-document
// space. The local offset is clamped into the chunk. Returns false when the
// chunk id is unknown.
func CleanedOffset(chunks []chunk.Chunk, chunkID string, local int) (int, bool) {
	pos := 0
	for _, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		if c.ID == chunkID {
			if local < 0 {
				local = 0
			}
			if local > n {
				local = n
			}
			return pos + local, true
		}
		pos += n + separatorLen
	}
	return 0, false
}
