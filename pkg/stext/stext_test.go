package stext

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/geom"
)

func charQuad(x0, y0, x1, y1 float64) geom.Quad {
	return geom.QuadFromRect(geom.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1})
}

func TestRecordTextGroupsIntoOneLine(t *testing.T) {
	p := NewPage(DefaultTolerances)
	text := []rune("HI")
	quads := []geom.Quad{charQuad(0, 0, 5, 10), charQuad(5, 0, 10, 10)}
	p.RecordText(text, quads, "F1", 10, Horizontal)

	lines := p.Lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0].Chars) != 2 {
		t.Fatalf("line has %d chars, want 2", len(lines[0].Chars))
	}
}

func TestRecordTextSplitsOnBaselineJump(t *testing.T) {
	p := NewPage(DefaultTolerances)
	text := []rune("AB")
	// Second char's baseline (Y0) jumps by far more than BaselineAgreement.
	quads := []geom.Quad{charQuad(0, 0, 5, 10), charQuad(0, 100, 5, 110)}
	p.RecordText(text, quads, "F1", 10, Horizontal)

	lines := p.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (baseline jump should split)", len(lines))
	}
}

func TestRecordTextSplitsOnLargeHorizontalGap(t *testing.T) {
	p := NewPage(DefaultTolerances)
	text := []rune("AB")
	quads := []geom.Quad{charQuad(0, 0, 5, 10), charQuad(500, 0, 505, 10)}
	p.RecordText(text, quads, "F1", 10, Horizontal)

	lines := p.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (large horizontal gap should split)", len(lines))
	}
}

func TestBlocksGroupVerticallyContiguousLines(t *testing.T) {
	p := NewPage(DefaultTolerances)
	// PDF user space has Y increasing upward: the first text line on a
	// page sits higher (larger Y) than the line below it. Line 1 spans
	// y=[12,22], line 2 (below it) spans y=[0,10] — a gap of 2, within
	// BlockVerticalGap 6 — both spanning x=[0,10] so they overlap
	// horizontally too.
	p.RecordText([]rune("A"), []geom.Quad{charQuad(0, 12, 10, 22)}, "F1", 10, Horizontal)
	p.RecordText([]rune("B"), []geom.Quad{charQuad(0, 0, 10, 10)}, "F1", 10, Horizontal)

	blocks := p.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 (lines are vertically contiguous)", len(blocks))
	}
	if len(blocks[0].Lines) != 2 {
		t.Fatalf("block has %d lines, want 2", len(blocks[0].Lines))
	}
}

func TestBlocksSplitOnLargeVerticalGap(t *testing.T) {
	p := NewPage(DefaultTolerances)
	p.RecordText([]rune("A"), []geom.Quad{charQuad(0, 200, 10, 210)}, "F1", 10, Horizontal)
	p.RecordText([]rune("B"), []geom.Quad{charQuad(0, 0, 10, 10)}, "F1", 10, Horizontal)

	blocks := p.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (large vertical gap should split)", len(blocks))
	}
}

func TestTextJoinsLinesAndBlocks(t *testing.T) {
	p := NewPage(DefaultTolerances)
	p.RecordText([]rune("HI"), []geom.Quad{charQuad(0, 0, 5, 10), charQuad(5, 0, 10, 10)}, "F1", 10, Horizontal)
	if got := p.Text(); got != "HI" {
		t.Fatalf("Text() = %q, want %q", got, "HI")
	}
}

func TestSearchCaseSensitive(t *testing.T) {
	p := NewPage(DefaultTolerances)
	text := []rune("Hello")
	quads := make([]geom.Quad, len(text))
	for i := range text {
		quads[i] = charQuad(float64(i*5), 0, float64(i*5+5), 10)
	}
	p.RecordText(text, quads, "F1", 10, Horizontal)

	if matches := p.Search("hello", false); len(matches) != 0 {
		t.Fatalf("case-sensitive search for lowercase found %d matches in \"Hello\", want 0", len(matches))
	}
	if matches := p.Search("Hello", false); len(matches) != 1 {
		t.Fatalf("case-sensitive exact search found %d matches, want 1", len(matches))
	}
}

func TestSearchFoldCase(t *testing.T) {
	p := NewPage(DefaultTolerances)
	text := []rune("Hello")
	quads := make([]geom.Quad, len(text))
	for i := range text {
		quads[i] = charQuad(float64(i*5), 0, float64(i*5+5), 10)
	}
	p.RecordText(text, quads, "F1", 10, Horizontal)

	matches := p.Search("hello", true)
	if len(matches) != 1 {
		t.Fatalf("fold-case search found %d matches, want 1", len(matches))
	}
}

func TestSearchEmptyNeedleReturnsNoMatches(t *testing.T) {
	p := NewPage(DefaultTolerances)
	p.RecordText([]rune("x"), []geom.Quad{charQuad(0, 0, 5, 10)}, "F1", 10, Horizontal)
	if matches := p.Search("", false); matches != nil {
		t.Fatalf("Search(\"\") = %v, want nil", matches)
	}
}
