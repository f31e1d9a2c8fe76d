package offset

import (
	"strings"
	"testing"
	"unicode/utf8"

	"grimoire-editor/internal/chunk"
)

func testChunks(texts ...string) []chunk.Chunk {
	chunks := make([]chunk.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = chunk.New(text)
	}
	return chunks
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  [][2]int // start, end per chunk
	}{
		{
			name:  "single chunk",
			texts: []string{"hello"},
			want:  [][2]int{{0, 5}},
		},
		{
			name:  "two chunks separated by two scalars",
			texts: []string{"hello", "world!"},
			want:  [][2]int{{0, 5}, {7, 13}},
		},
		{
			name:  "empty chunk still occupies a position",
			texts: []string{"ab", "", "cd"},
			want:  [][2]int{{0, 2}, {4, 4}, {6, 8}},
		},
		{
			name:  "multibyte text counted in scalars",
			texts: []string{"héllo", "wörld"},
			want:  [][2]int{{0, 5}, {7, 12}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := testChunks(tt.texts...)
			ranges := Ranges(chunks)

			if len(ranges) != len(tt.want) {
				t.Fatalf("Ranges() returned %d ranges, want %d", len(ranges), len(tt.want))
			}
			for i, r := range ranges {
				if r.Start != tt.want[i][0] || r.End != tt.want[i][1] {
					t.Errorf("Ranges()[%d] = [%d,%d), want [%d,%d)", i, r.Start, r.End, tt.want[i][0], tt.want[i][1])
				}
				if r.ChunkID != chunks[i].ID {
					t.Errorf("Ranges()[%d] chunk id = %v, want %v", i, r.ChunkID, chunks[i].ID)
				}
			}
		})
	}
}

func TestCleaned(t *testing.T) {
	chunks := testChunks("first block", "second block")
	want := "first block\n\nsecond block"
	if got := Cleaned(chunks); got != want {
		t.Errorf("Cleaned() = %q, want %q", got, want)
	}
}

func TestCleanedOffset(t *testing.T) {
	chunks := testChunks("héllo", "world")

	tests := []struct {
		name    string
		chunkID string
		local   int
		want    int
		wantOK  bool
	}{
		{name: "start of first chunk", chunkID: chunks[0].ID, local: 0, want: 0, wantOK: true},
		{name: "inside first chunk", chunkID: chunks[0].ID, local: 3, want: 3, wantOK: true},
		{name: "start of second chunk", chunkID: chunks[1].ID, local: 0, want: 7, wantOK: true},
		{name: "inside second chunk", chunkID: chunks[1].ID, local: 4, want: 11, wantOK: true},
		{name: "negative offset clamps to chunk start", chunkID: chunks[1].ID, local: -5, want: 7, wantOK: true},
		{name: "oversized offset clamps to chunk end", chunkID: chunks[0].ID, local: 99, want: 5, wantOK: true},
		{name: "unknown chunk", chunkID: "nope", local: 0, want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanedOffset(chunks, tt.chunkID, tt.local)
			if ok != tt.wantOK {
				t.Fatalf("CleanedOffset() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CleanedOffset() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Cleaned offsets must increase strictly with the local offset and never
// reach the next chunk's start.
func TestCleanedOffset_Monotonic(t *testing.T) {
	chunks := testChunks("short", "a longer chunk with ünïcode", "tail")

	for i, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		prev := -1
		for local := 0; local <= n; local++ {
			got, ok := CleanedOffset(chunks, c.ID, local)
			if !ok {
				t.Fatalf("CleanedOffset(chunk %d, %d) not ok", i, local)
			}
			if got <= prev {
				t.Fatalf("CleanedOffset(chunk %d, %d) = %d, not greater than %d", i, local, got, prev)
			}
			prev = got
		}
		if i+1 < len(chunks) {
			nextStart, _ := CleanedOffset(chunks, chunks[i+1].ID, 0)
			if prev >= nextStart {
				t.Errorf("chunk %d end offset %d not below next chunk start %d", i, prev, nextStart)
			}
		}
	}
}

func TestParseContextChunkID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   ContextChunkID
		wantOK bool
	}{
		{
			name:   "full form",
			input:  "note1:10:25:0",
			want:   ContextChunkID{NoteID: "note1", Start: 10, End: 25, Index: 0},
			wantOK: true,
		},
		{
			name:   "without index",
			input:  "note1:10:25",
			want:   ContextChunkID{NoteID: "note1", Start: 10, End: 25, Index: -1},
			wantOK: true,
		},
		{
			name:   "note id containing colons",
			input:  "folder:note:3:9:2",
			want:   ContextChunkID{NoteID: "folder:note", Start: 3, End: 9, Index: 2},
			wantOK: true,
		},
		{
			name:   "path-like note id",
			input:  "projects/roadmap:0:42:1",
			want:   ContextChunkID{NoteID: "projects/roadmap", Start: 0, End: 42, Index: 1},
			wantOK: true,
		},
		{name: "inverted range", input: "note:25:10:0", wantOK: false},
		{name: "negative start", input: "note:-1:10:0", wantOK: false},
		{name: "not numeric", input: "note:a:b:c", wantOK: false},
		{name: "too few fields", input: "note:10", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseContextChunkID(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseContextChunkID(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("ParseContextChunkID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveTarget_ByRange(t *testing.T) {
	// Cleaned ranges: [0,12) and [12,40) per the reference scenario; texts
	// are sized so chunk 0 spans [0,10) and chunk 1 spans [12,40).
	chunks := testChunks("aaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	tests := []struct {
		name       string
		ref        string
		wantChunk  int
		wantOffset int
		wantOK     bool
	}{
		{
			name:       "overlap favors the second chunk",
			ref:        "note1:10:25:0",
			wantChunk:  1,
			wantOffset: 0, // start 10 precedes the chunk, clamped to its head
			wantOK:     true,
		},
		{
			name:       "fully inside first chunk",
			ref:        "note1:2:8:0",
			wantChunk:  0,
			wantOffset: 2,
			wantOK:     true,
		},
		{
			name:       "maximal overlap wins over partial",
			ref:        "note1:8:30:0",
			wantChunk:  1,
			wantOffset: 0,
			wantOK:     true,
		},
		{
			name:       "zero-width ref at chunk boundary is a weak match",
			ref:        "note1:12:12:0",
			wantChunk:  1,
			wantOffset: 0,
			wantOK:     true,
		},
		{
			name:       "zero-width ref at chunk end is a weak match",
			ref:        "note1:10:10:0",
			wantChunk:  0,
			wantOffset: 10,
			wantOK:     true,
		},
		{
			name:   "range beyond the document",
			ref:    "note1:100:120:0",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := ResolveTarget(chunks, tt.ref, "")
			if ok != tt.wantOK {
				t.Fatalf("ResolveTarget() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if target.ChunkID != chunks[tt.wantChunk].ID {
				t.Errorf("ResolveTarget() chunk = %v, want chunk %d", target.ChunkID, tt.wantChunk)
			}
			if target.Offset != tt.wantOffset {
				t.Errorf("ResolveTarget() offset = %d, want %d", target.Offset, tt.wantOffset)
			}
		})
	}
}

func TestResolveTarget_ByExcerpt(t *testing.T) {
	chunks := testChunks(
		"The quick brown fox jumps over the lazy dog.",
		"Chunking keeps long notes responsive while editing.",
	)

	tests := []struct {
		name       string
		ref        string
		excerpt    string
		wantChunk  int
		wantOffset int
		wantOK     bool
	}{
		{
			name:       "unparseable ref falls back to excerpt",
			ref:        "garbage",
			excerpt:    "keeps long notes",
			wantChunk:  1,
			wantOffset: 9,
			wantOK:     true,
		},
		{
			name:       "excerpt match is case-insensitive",
			excerpt:    "THE QUICK BROWN",
			wantChunk:  0,
			wantOffset: 0,
			wantOK:     true,
		},
		{
			name:       "first matching chunk wins",
			excerpt:    "the",
			wantChunk:  0,
			wantOffset: 0,
			wantOK:     true,
		},
		{name: "no match anywhere", excerpt: "absent text", wantOK: false},
		{name: "empty everything", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := ResolveTarget(chunks, tt.ref, tt.excerpt)
			if ok != tt.wantOK {
				t.Fatalf("ResolveTarget() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if target.ChunkID != chunks[tt.wantChunk].ID {
				t.Errorf("ResolveTarget() chunk = %v, want chunk %d", target.ChunkID, tt.wantChunk)
			}
			if target.Offset != tt.wantOffset {
				t.Errorf("ResolveTarget() offset = %d, want %d", target.Offset, tt.wantOffset)
			}
		})
	}
}

func TestResolveTarget_LongExcerptTruncated(t *testing.T) {
	body := strings.Repeat("alpha beta gamma delta epsilon ", 8)
	chunks := testChunks(body)

	// Probing uses the first 120 scalars of the excerpt; a divergent tail
	// beyond that must not prevent a match.
	excerpt := body[:150] + "zzz never in the chunk zzz"

	target, ok := ResolveTarget(chunks, "", excerpt)
	if !ok {
		t.Fatal("ResolveTarget() expected the truncated excerpt to match")
	}
	if target.ChunkID != chunks[0].ID || target.Offset != 0 {
		t.Errorf("ResolveTarget() = %+v, want chunk 0 at offset 0", target)
	}
}
