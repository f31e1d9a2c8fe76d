package offset

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"grimoire-editor/internal/chunk"
)

// excerptProbeLen caps how much of an excerpt is used for the fallback
// substring search. Retrieval snippets can be long; their openings are
// stable enough to locate the source chunk.
const excerptProbeLen = 120

// ContextChunkID is a parsed external excerpt reference. Start and End are
// cleaned-document offsets; Index is the block disambiguator, -1 when the
// reference omits it.
type ContextChunkID struct {
	NoteID string
	Start  int
	End    int
	Index  int
}

// ParseContextChunkID parses the "noteID:start:end:idx" reference format.
// Note ids are path-like and may themselves contain colons, so the numeric
// fields are taken from the right; the trailing idx is optional.
func ParseContextChunkID(s string) (ContextChunkID, bool) {
	parts := strings.Split(s, ":")

	if len(parts) >= 4 {
		start, err1 := strconv.Atoi(parts[len(parts)-3])
		end, err2 := strconv.Atoi(parts[len(parts)-2])
		idx, err3 := strconv.Atoi(parts[len(parts)-1])
		if err1 == nil && err2 == nil && err3 == nil && start >= 0 && end >= start {
			return ContextChunkID{
				NoteID: strings.Join(parts[:len(parts)-3], ":"),
				Start:  start,
				End:    end,
				Index:  idx,
			}, true
		}
	}

	if len(parts) >= 3 {
		start, err1 := strconv.Atoi(parts[len(parts)-2])
		end, err2 := strconv.Atoi(parts[len(parts)-1])
		if err1 == nil && err2 == nil && start >= 0 && end >= start {
			return ContextChunkID{
				NoteID: strings.Join(parts[:len(parts)-2], ":"),
				Start:  start,
				End:    end,
				Index:  -1,
			}, true
		}
	}

	return ContextChunkID{}, false
}

// Target is a resolved reveal destination: the chunk to activate and the
// rune offset within it where the caret should land.
type Target struct {
	ChunkID string
	Offset  int
}

// ResolveTarget locates the chunk an external reference points at. A
// parseable contextChunkID is matched by maximal overlap between its
// cleaned-offset range and each chunk's range, with an exact boundary hit
// counting as a weak match when nothing overlaps. Otherwise the head of the
// excerpt is searched case-insensitively in each chunk's raw text. Returns
// false when both strategies come up empty; the caller leaves the caret
// where it was.
func ResolveTarget(chunks []chunk.Chunk, contextChunkID, excerpt string) (Target, bool) {
	if ref, ok := ParseContextChunkID(contextChunkID); ok {
		if t, ok := resolveByRange(chunks, ref); ok {
			return t, true
		}
	}
	return resolveByExcerpt(chunks, excerpt)
}

func resolveByRange(chunks []chunk.Chunk, ref ContextChunkID) (Target, bool) {
	ranges := Ranges(chunks)

	best := -1
	bestOverlap := 0
	for i, r := range ranges {
		o := overlap(r.Start, r.End, ref.Start, ref.End)
		if o > bestOverlap {
			bestOverlap = o
			best = i
		}
	}

	if best < 0 {
		// Zero-width or stale references can still land exactly on a
		// chunk edge; take that chunk as a weak match.
		for i, r := range ranges {
			if ref.Start == r.Start || ref.Start == r.End {
				best = i
				break
			}
		}
	}

	if best < 0 {
		return Target{}, false
	}

	r := ranges[best]
	local := ref.Start - r.Start
	if local < 0 {
		local = 0
	}
	if max := r.End - r.Start; local > max {
		local = max
	}
	return Target{ChunkID: r.ChunkID, Offset: local}, true
}

func resolveByExcerpt(chunks []chunk.Chunk, excerpt string) (Target, bool) {
	probe := strings.TrimSpace(excerpt)
	if probe == "" {
		return Target{}, false
	}
	if runes := []rune(probe); len(runes) > excerptProbeLen {
		probe = string(runes[:excerptProbeLen])
	}
	probe = strings.ToLower(probe)

	for _, c := range chunks {
		low := strings.ToLower(c.Text)
		i := strings.Index(low, probe)
		if i < 0 {
			continue
		}
		return Target{ChunkID: c.ID, Offset: utf8.RuneCountInString(low[:i])}, true
	}
	return Target{}, false
}

// overlap returns the width of the intersection of [aStart,aEnd) and
// [bStart,bEnd), or 0 when they are disjoint.
func overlap(aStart, aEnd, bStart, bEnd int) int {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
