package chunk

import (
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	s := NewStore("Hello world.\n\nSecond block.")

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.Explicit() {
		t.Error("Explicit() = true for a legacy document")
	}
	chunks := s.Chunks()
	if s.Active() != chunks[0].ID {
		t.Error("Active() should start at the first chunk")
	}

	s = NewStore("one" + Separator + "two")
	if !s.Explicit() {
		t.Error("Explicit() = false for a marker document")
	}
}

func TestStore_Document_LegacyNeverGainsMarkers(t *testing.T) {
	document := "Hello world.\n\nSecond block."
	s := NewStore(document)

	if got := s.Document(); got != document {
		t.Errorf("Document() = %q, want %q", got, document)
	}

	// Plain edits keep the legacy form.
	chunks := s.Chunks()
	s.SetText(chunks[0].ID, "Hello there.")
	got := s.Document()
	if strings.Contains(got, Marker) {
		t.Errorf("Document() = %q, markers appeared without a split", got)
	}
	if got != "Hello there.\n\nSecond block." {
		t.Errorf("Document() = %q", got)
	}
}

func TestStore_Document_ExplicitAfterSplit(t *testing.T) {
	s := NewStore("alpha beta")
	chunks := s.Chunks()

	if _, ok := s.Split(chunks[0].ID, 5); !ok {
		t.Fatal("Split() failed")
	}

	got := s.Document()
	if !strings.Contains(got, Marker) {
		t.Errorf("Document() = %q, want marker separators after a split", got)
	}
	if got != "alpha"+Separator+" beta" {
		t.Errorf("Document() = %q", got)
	}
}

func TestStore_SplitThenMerge(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		offset   int
		wantText string
	}{
		{
			name:     "split at start is exact",
			text:     "alpha beta",
			offset:   0,
			wantText: "alpha beta",
		},
		{
			name:     "split at end is exact",
			text:     "alpha beta",
			offset:   10,
			wantText: "alpha beta",
		},
		{
			name:     "split after a newline is exact",
			text:     "line one\nline two",
			offset:   9,
			wantText: "line one\nline two",
		},
		{
			name:     "mid-text split gains the junction newline",
			text:     "alpha beta",
			offset:   5,
			wantText: "alpha\n beta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.text)
			original := s.Chunks()[0].ID

			next, ok := s.Split(original, tt.offset)
			if !ok {
				t.Fatal("Split() failed")
			}
			if s.Len() != 2 {
				t.Fatalf("Len() after split = %d, want 2", s.Len())
			}
			if s.Active() != next.ID {
				t.Error("Split() should activate the new chunk")
			}

			if _, ok := s.MergeWithPrevious(next.ID); !ok {
				t.Fatal("MergeWithPrevious() failed")
			}
			if s.Len() != 1 {
				t.Fatalf("Len() after merge = %d, want 1", s.Len())
			}

			merged := s.Chunks()[0]
			if merged.ID != original {
				t.Error("merge should keep the previous chunk's id")
			}
			if merged.Text != tt.wantText {
				t.Errorf("merged text = %q, want %q", merged.Text, tt.wantText)
			}
			if s.Active() != original {
				t.Error("merge should activate the surviving chunk")
			}
		})
	}
}

func TestStore_Split_KeepsIDWithBefore(t *testing.T) {
	s := NewStore("alpha beta")
	original := s.Chunks()[0].ID

	next, ok := s.Split(original, 5)
	if !ok {
		t.Fatal("Split() failed")
	}

	chunks := s.Chunks()
	if chunks[0].ID != original || chunks[0].Text != "alpha" {
		t.Errorf("before part = %+v, want original id with %q", chunks[0], "alpha")
	}
	if chunks[1].ID != next.ID || chunks[1].Text != " beta" {
		t.Errorf("after part = %+v", chunks[1])
	}
	if next.ID == original {
		t.Error("Split() reused the original id for the new chunk")
	}
}

func TestStore_Split_ClampsOffset(t *testing.T) {
	s := NewStore("abc")
	id := s.Chunks()[0].ID

	next, ok := s.Split(id, 99)
	if !ok {
		t.Fatal("Split() failed")
	}
	if next.Text != "" {
		t.Errorf("past-end split second part = %q, want empty", next.Text)
	}

	s = NewStore("abc")
	id = s.Chunks()[0].ID
	next, _ = s.Split(id, -4)
	if next.Text != "abc" {
		t.Errorf("negative split second part = %q, want %q", next.Text, "abc")
	}
	if s.Chunks()[0].Text != "" {
		t.Errorf("negative split first part = %q, want empty", s.Chunks()[0].Text)
	}
}

func TestStore_Split_UnknownID(t *testing.T) {
	s := NewStore("abc")
	if _, ok := s.Split("nope", 1); ok {
		t.Error("Split() with an unknown id should be a no-op")
	}
	if s.Len() != 1 {
		t.Error("Split() with an unknown id changed the sequence")
	}
}

func TestStore_MergeFirstChunkIsNoOp(t *testing.T) {
	s := NewStore("first\n\nsecond")
	chunks := s.Chunks()

	if _, ok := s.MergeWithPrevious(chunks[0].ID); ok {
		t.Error("MergeWithPrevious() on the first chunk should be a no-op")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, the chunk list must be unchanged", s.Len())
	}
	after := s.Chunks()
	for i := range chunks {
		if after[i].ID != chunks[i].ID || after[i].Text != chunks[i].Text {
			t.Errorf("chunk %d changed: %+v != %+v", i, after[i], chunks[i])
		}
	}
}

func TestStore_Merge_EmptyTexts(t *testing.T) {
	tests := []struct {
		name         string
		prev, cur    string
		wantText     string
		wantJunction int
	}{
		{"empty previous", "", "tail", "tail", 0},
		{"empty target", "head", "", "head", 4},
		{"both empty", "", "", "", 0},
		{"previous ends in newline", "head\n", "tail", "head\ntail", 5},
		{"plain join", "head", "tail", "head\ntail", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore("x" + Separator + "y")
			chunks := s.Chunks()
			s.SetText(chunks[0].ID, tt.prev)
			s.SetText(chunks[1].ID, tt.cur)

			junction, ok := s.MergeWithPrevious(chunks[1].ID)
			if !ok {
				t.Fatal("MergeWithPrevious() failed")
			}
			if junction != tt.wantJunction {
				t.Errorf("junction = %d, want %d", junction, tt.wantJunction)
			}
			if got := s.Chunks()[0].Text; got != tt.wantText {
				t.Errorf("merged text = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestStore_Compact(t *testing.T) {
	s := NewStore("a" + Separator + "b" + Separator + "c")
	chunks := s.Chunks()
	first := chunks[0].ID

	for _, c := range chunks {
		s.SetText(c.ID, "   ")
	}

	if !s.Compact() {
		t.Fatal("Compact() = false for an all-blank sequence")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() after compact = %d, want 1", s.Len())
	}
	got := s.Chunks()[0]
	if got.ID != first {
		t.Error("Compact() should keep the first chunk's id")
	}
	if got.Text != "" {
		t.Errorf("Compact() text = %q, want empty", got.Text)
	}
	if s.Active() != first {
		t.Error("Compact() should activate the surviving chunk")
	}
}

func TestStore_Compact_NoOpWithContent(t *testing.T) {
	s := NewStore("a" + Separator + " ")
	if s.Compact() {
		t.Error("Compact() = true while a chunk still has content")
	}
	if s.Len() != 2 {
		t.Error("Compact() changed a sequence with content")
	}

	s = NewStore("")
	if s.Compact() {
		t.Error("Compact() = true for an already-compact store")
	}
}

func TestStore_Activate(t *testing.T) {
	s := NewStore("a\n\nb")
	chunks := s.Chunks()

	if !s.Activate(chunks[1].ID) {
		t.Fatal("Activate() failed for a known id")
	}
	if s.Active() != chunks[1].ID {
		t.Error("Active() did not move")
	}
	if s.Activate("nope") {
		t.Error("Activate() succeeded for an unknown id")
	}
	if s.Active() != chunks[1].ID {
		t.Error("failed Activate() moved the active chunk")
	}
}

func TestStore_Get(t *testing.T) {
	s := NewStore("a\n\nb")
	chunks := s.Chunks()

	c, ok := s.Get(chunks[1].ID)
	if !ok || c.Text != "b" {
		t.Errorf("Get() = %+v, %v", c, ok)
	}
	if _, ok := s.Get("nope"); ok {
		t.Error("Get() found an unknown id")
	}
}

func TestStore_Replace(t *testing.T) {
	s := NewStore("a\n\nb\n\nc")
	chunks := s.Chunks()

	parts := []Chunk{New("b1"), New("b2")}
	if !s.Replace(chunks[1].ID, parts) {
		t.Fatal("Replace() failed")
	}
	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}
	got := texts(s.Chunks())
	want := []string{"a", "b1", "b2", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
	if !s.Explicit() {
		t.Error("Replace() should make the document explicit")
	}

	if s.Replace("nope", parts) {
		t.Error("Replace() succeeded for an unknown id")
	}
	if s.Replace(s.Chunks()[0].ID, nil) {
		t.Error("Replace() succeeded with no parts")
	}
}

func TestStore_Replace_MovesActivation(t *testing.T) {
	s := NewStore("a\n\nb")
	chunks := s.Chunks()
	s.Activate(chunks[1].ID)

	parts := []Chunk{New("b1"), New("b2")}
	s.Replace(chunks[1].ID, parts)

	if s.Active() != parts[0].ID {
		t.Errorf("Active() = %q, want the first replacement part", s.Active())
	}
}
