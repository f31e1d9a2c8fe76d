package chunk

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Marker is the literal token embedded between chunks when a document is
// saved after an explicit split. It must survive round trips through editors
// that know nothing about chunking, which is why it is a plain HTML comment.
const Marker = "<!-- grimoire-chunk -->"

// Separator is the canonical on-disk form: the marker on its own line,
// padded by one blank line on each side.
const Separator = "\n\n" + Marker + "\n\n"

// blankRun matches the blank-line runs legacy documents are segmented on.
var blankRun = regexp.MustCompile(`\n\s*\n`)

// Chunk is one independently editable block of a note. The id is opaque and
// stable for the lifetime of the editing session; it never derives from
// content or position.
type Chunk struct {
	ID   string
	Text string
}

// New creates a chunk with a fresh id.
func New(text string) Chunk {
	return Chunk{ID: uuid.New().String(), Text: text}
}

// Parse splits a document into chunks. Documents containing the marker are
// split on marker lines; anything else falls back to blank-line segmentation
// with each segment trimmed and empty segments dropped. The returned explicit
// flag reports whether markers were present. Parse never returns an empty
// slice: an all-blank document yields a single chunk with empty text.
func Parse(document string) (chunks []Chunk, explicit bool) {
	document = strings.ReplaceAll(document, "\r\n", "\n")

	if strings.Contains(document, Marker) {
		for _, text := range splitOnMarkers(document) {
			chunks = append(chunks, New(text))
		}
		return chunks, true
	}

	for _, seg := range blankRun.Split(document, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		chunks = append(chunks, New(seg))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, New(""))
	}
	return chunks, false
}

// splitOnMarkers segments a document on marker lines. The canonical padding
// (one blank line on each side of the marker) belongs to the separator, so
// exactly one empty line is stripped from each segment edge adjacent to a
// marker; everything else is chunk text verbatim.
func splitOnMarkers(document string) []string {
	lines := strings.Split(document, "\n")

	var segments []string
	var current []string
	afterMarker := false

	flush := func(beforeMarker bool) {
		if afterMarker && len(current) > 0 && current[0] == "" {
			current = current[1:]
		}
		if beforeMarker && len(current) > 0 && current[len(current)-1] == "" {
			current = current[:len(current)-1]
		}
		segments = append(segments, strings.Join(current, "\n"))
		current = nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == Marker {
			flush(true)
			afterMarker = true
			continue
		}
		current = append(current, line)
	}
	flush(false)

	return segments
}

// Join reassembles chunk texts into the canonical saved form, with the
// marker separator between adjacent chunks.
func Join(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, Separator)
}

// joinLegacy reassembles a never-split document without introducing markers.
func joinLegacy(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// Tokens counts whitespace-delimited tokens, the unit all chunking budgets
// are expressed in.
func Tokens(text string) int {
	return len(strings.Fields(text))
}
