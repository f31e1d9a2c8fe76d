package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/sentences"
	"github.com/google/uuid"
)

const (
	minPartTokens    = 80
	targetPartTokens = 140
	maxPartTokens    = 220 // hard maximum; exceeding it triggers re-chunking
)

// AutoChunker re-segments a chunk whose token count has grown past the hard
// maximum, packing sentences greedily into parts within the configured
// budgets. Budgets are whitespace-delimited token counts.
type AutoChunker struct {
	Min    int
	Target int
	Max    int
}

// NewAutoChunker creates an AutoChunker with the default budgets.
func NewAutoChunker() *AutoChunker {
	return &AutoChunker{
		Min:    minPartTokens,
		Target: targetPartTokens,
		Max:    maxPartTokens,
	}
}

// NeedsSplit reports whether a text has outgrown the hard maximum.
func (a *AutoChunker) NeedsSplit(text string) bool {
	return Tokens(text) > a.Max
}

// Split re-segments a chunk into budgeted parts. The sentence segments are
// contiguous slices of the original text, so concatenating the parts
// reproduces it exactly; no character is lost or reordered. The original
// chunk id stays with the part containing the cursor (a rune offset into the
// chunk text, clamped), and the cursor's position inside that part is
// returned so the caret does not jump. When the text packs into a single
// part the split is a no-op and ok is false.
func (a *AutoChunker) Split(c Chunk, cursor int) (parts []Chunk, cursorPart, localCursor int, ok bool) {
	texts := a.pack(sentenceSegments(c.Text))
	if len(texts) <= 1 {
		return nil, 0, 0, false
	}

	cursor = clamp(cursor, 0, utf8.RuneCountInString(c.Text))

	// Walk cumulative rune lengths to find the part holding the cursor. A
	// cursor sitting exactly on a boundary stays with the earlier part, so
	// typing at the end of a part keeps the caret with the typed text.
	cursorPart = len(texts) - 1
	localCursor = cursor
	sum := 0
	for i, t := range texts {
		n := utf8.RuneCountInString(t)
		if cursor <= sum+n {
			cursorPart = i
			localCursor = cursor - sum
			break
		}
		sum += n
	}

	parts = make([]Chunk, len(texts))
	for i, t := range texts {
		parts[i] = Chunk{ID: uuid.New().String(), Text: t}
	}
	parts[cursorPart].ID = c.ID

	return parts, cursorPart, localCursor, true
}

// pack accumulates sentence segments greedily: a part is closed once adding
// the next sentence would push it past the target (provided the minimum is
// met) or past the hard maximum, and a part that reaches the hard maximum on
// its own is closed immediately.
func (a *AutoChunker) pack(segments []string) []string {
	var parts []string
	var cur strings.Builder
	curTokens := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		parts = append(parts, cur.String())
		cur.Reset()
		curTokens = 0
	}

	for _, seg := range segments {
		n := Tokens(seg)
		if cur.Len() > 0 && (curTokens+n > a.Max || (curTokens >= a.Min && curTokens+n > a.Target)) {
			flush()
		}
		cur.WriteString(seg)
		curTokens += n
		if curTokens >= a.Max {
			flush()
		}
	}
	flush()

	return parts
}

// sentenceSegments partitions text at UAX #29 sentence boundaries. The
// segmenter never drops or alters bytes, which the cursor arithmetic above
// depends on.
func sentenceSegments(text string) []string {
	var segs []string
	iter := sentences.FromString(text)
	for iter.Next() {
		segs = append(segs, iter.Value())
	}
	if len(segs) == 0 && text != "" {
		segs = []string{text}
	}
	return segs
}
