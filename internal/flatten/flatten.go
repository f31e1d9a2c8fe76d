package flatten

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Mapping ties a chunk's visible text to its raw Markdown. VisibleToMarkdown
// has exactly one entry per visible rune plus one for the end insertion
// point; entry i is the raw rune offset a caret at visible position i should
// land on. Offsets always point immediately after the raw run that produced
// the visible unit, so a caret can never land inside stripped markup.
type Mapping struct {
	Visible           string
	VisibleToMarkdown []int
}

// RawOffset returns the raw rune offset for a visible rune position,
// clamping out-of-range positions instead of failing.
func (m Mapping) RawOffset(visibleIndex int) int {
	if len(m.VisibleToMarkdown) == 0 {
		return 0
	}
	if visibleIndex < 0 {
		visibleIndex = 0
	}
	if visibleIndex >= len(m.VisibleToMarkdown) {
		visibleIndex = len(m.VisibleToMarkdown) - 1
	}
	return m.VisibleToMarkdown[visibleIndex]
}

// Tail returns the raw offset of the end insertion point.
func (m Mapping) Tail() int {
	return m.RawOffset(len(m.VisibleToMarkdown) - 1)
}

// Flatten reduces one chunk's raw Markdown to its visible approximation and
// the position map back into the raw text. It is a single left-to-right scan
// over grapheme clusters, deliberately permissive: markers are stripped
// without pairing validation, malformed input degrades to pass-through, and
// the scan always terminates because the cursor is forced forward on every
// step.
func Flatten(raw string) Mapping {
	s := &scanner{atLineStart: true}
	s.clusters, s.starts = clustersOf(raw)

	n := len(s.clusters)
	for i := 0; i < n; {
		next := s.step(i)
		if next <= i {
			next = i + 1
		}
		i = next
	}

	return s.finish()
}

type scanner struct {
	clusters []string
	starts   []int // rune offset of each cluster, plus the total at the end

	vis     strings.Builder
	offsets []int

	inCodeBlock bool
	inCodeSpan  bool
	atLineStart bool
}

// step consumes one source run beginning at cluster index i and returns the
// index of the next unconsumed cluster.
func (s *scanner) step(i int) int {
	c := s.clusters[i]

	// A fence line is consumed whole, even inside a code block, since it is
	// the only way back out of one.
	if s.atLineStart && s.isFence(i) {
		s.inCodeBlock = !s.inCodeBlock
		s.inCodeSpan = false
		return s.consumeLine(i)
	}
	if s.atLineStart && !s.inCodeBlock && !s.inCodeSpan {
		if end, ok := s.linePrefixEnd(i); ok {
			s.atLineStart = false
			return end
		}
	}
	s.atLineStart = false

	if c == "\n" {
		return s.stepNewline(i)
	}

	if s.inCodeBlock {
		s.emit(c, s.starts[i+1])
		return i + 1
	}

	if c == "`" {
		s.inCodeSpan = !s.inCodeSpan
		return i + 1
	}
	if s.inCodeSpan {
		s.emit(c, s.starts[i+1])
		return i + 1
	}

	switch c {
	case "\\":
		// The escape emits the following composed character verbatim and
		// maps it past both units. A trailing backslash is plain text.
		if i+1 < len(s.clusters) {
			s.emit(s.clusters[i+1], s.starts[i+2])
			return i + 2
		}
		s.emit(c, s.starts[i+1])
		return i + 1
	case "!":
		if i+1 < len(s.clusters) && s.clusters[i+1] == "[" {
			return i + 1 // image bang; the bracket is dropped on the next step
		}
		s.emit(c, s.starts[i+1])
		return i + 1
	case "[":
		return i + 1
	case "]":
		if i+1 < len(s.clusters) && s.clusters[i+1] == "(" {
			if close, ok := s.matchParen(i + 1); ok {
				return close + 1 // drop the destination, keep the bracketed text
			}
		}
		return i + 1
	case "*", "_", "~":
		return i + 1
	}

	s.emit(c, s.starts[i+1])
	return i + 1
}

// stepNewline handles every newline form: verbatim inside code blocks,
// paragraph breaks for runs of blank lines, hard breaks after two trailing
// spaces, and soft breaks that become a single space.
func (s *scanner) stepNewline(i int) int {
	s.atLineStart = true

	if s.inCodeBlock {
		s.emit("\n", s.starts[i+1])
		return i + 1
	}

	// Count newlines in the contiguous whitespace run. Horizontal space
	// after the final newline is the next line's indentation and stays.
	newlines := 0
	lastNL := i
	for j := i; j < len(s.clusters); j++ {
		c := s.clusters[j]
		if c == "\n" {
			newlines++
			lastNL = j
			continue
		}
		if c != " " && c != "\t" {
			break
		}
	}

	if newlines >= 2 {
		s.emit("\n", s.starts[lastNL+1])
		return lastNL + 1
	}

	if i >= 2 && s.clusters[i-1] == " " && s.clusters[i-2] == " " {
		s.emit("\n", s.starts[i+1])
	} else {
		s.emit(" ", s.starts[i+1])
	}
	return i + 1
}

// linePrefixEnd recognizes the block prefixes that are dropped at the start
// of a line: ATX headings, blockquote markers, and list bullets. It returns
// the cluster index just past the prefix.
func (s *scanner) linePrefixEnd(i int) (int, bool) {
	c := s.clusters[i]

	if c == "#" {
		hashes := 0
		j := i
		for j < len(s.clusters) && s.clusters[j] == "#" {
			hashes++
			j++
		}
		if hashes <= 6 && j < len(s.clusters) && s.clusters[j] == " " {
			return j + 1, true
		}
		return 0, false
	}

	if c == ">" {
		if i+1 < len(s.clusters) && s.clusters[i+1] == " " {
			return i + 2, true
		}
		return i + 1, true
	}

	if c == "-" || c == "*" || c == "+" {
		if i+1 < len(s.clusters) && s.clusters[i+1] == " " {
			return i + 2, true
		}
		return 0, false
	}

	if isDigit(c) {
		j := i
		for j < len(s.clusters) && isDigit(s.clusters[j]) {
			j++
		}
		if j+1 < len(s.clusters) && s.clusters[j] == "." && s.clusters[j+1] == " " {
			return j + 2, true
		}
	}

	return 0, false
}

// isDigit reports whether a cluster is a single ASCII digit.
func isDigit(c string) bool {
	return len(c) == 1 && c[0] >= '0' && c[0] <= '9'
}

// isFence reports whether a triple backtick opens the line at cluster i.
func (s *scanner) isFence(i int) bool {
	return i+2 < len(s.clusters) &&
		s.clusters[i] == "`" && s.clusters[i+1] == "`" && s.clusters[i+2] == "`"
}

// consumeLine advances past the rest of the line, including its newline.
func (s *scanner) consumeLine(i int) int {
	for ; i < len(s.clusters); i++ {
		if s.clusters[i] == "\n" {
			return i + 1
		}
	}
	return i
}

// matchParen returns the index of the closing paren matching the opener at
// index open, tracking nesting depth.
func (s *scanner) matchParen(open int) (int, bool) {
	depth := 0
	for j := open; j < len(s.clusters); j++ {
		switch s.clusters[j] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// emit appends a visible unit and records the raw offset following the
// source run that produced it, one entry per rune of the unit.
func (s *scanner) emit(unit string, after int) {
	s.vis.WriteString(unit)
	for range []rune(unit) {
		s.offsets = append(s.offsets, after)
	}
}

// finish clamps every recorded offset into the raw text and pads or trims
// the map so it is exactly one entry longer than the visible rune count.
func (s *scanner) finish() Mapping {
	total := s.starts[len(s.starts)-1]
	visible := s.vis.String()

	for i, off := range s.offsets {
		if off < 0 {
			s.offsets[i] = 0
		} else if off > total {
			s.offsets[i] = total
		}
	}

	want := utf8.RuneCountInString(visible) + 1
	for len(s.offsets) < want {
		s.offsets = append(s.offsets, total)
	}
	s.offsets = s.offsets[:want]

	return Mapping{Visible: visible, VisibleToMarkdown: s.offsets}
}

// clustersOf splits text into grapheme clusters alongside each cluster's
// rune offset; the final entry of starts is the total rune count.
func clustersOf(text string) ([]string, []int) {
	var clusters []string
	var starts []int
	off := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		clusters = append(clusters, g.Str())
		starts = append(starts, off)
		off += len(g.Runes())
	}
	starts = append(starts, off)
	return clusters, starts
}
