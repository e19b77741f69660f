// Package stext implements the Structured-Text Device of spec.md
// §4.10: a Device that consumes only text calls and groups characters
// into lines and blocks for extraction and search. Like pkg/device
// and pkg/draw, pdfcpu has no rendering-side analogue to adapt, so
// this is built directly from the spec's block/line/char tree and
// search contract, in the same small-struct style as the rest of the
// new rendering packages.
package stext

import (
	"strings"
	"unicode"

	"github.com/Lexmata/micropdf-sub000/pkg/device"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
)

// WritingMode mirrors PDF's /WMode: 0 horizontal, 1 vertical.
type WritingMode int

const (
	Horizontal WritingMode = iota
	Vertical
)

// Char is one rendered glyph's extracted identity and placement.
type Char struct {
	Rune        rune
	FontName    string
	Size        float64
	WritingMode WritingMode
	Quad        geom.Quad
}

// Line is a run of Chars whose baselines agree within Tolerances.Baseline
// and whose horizontal advance is continuous.
type Line struct {
	Chars  []Char
	Bounds geom.Rect
}

// Block is a set of vertically contiguous, alignment-compatible Lines.
type Block struct {
	Lines  []Line
	Bounds geom.Rect
}

// Tolerances are the tunables spec.md §9's open question leaves to the
// implementation: how close two baselines must be to count as the
// same line, and how large a vertical gap may separate two lines
// before they start a new block.
type Tolerances struct {
	BaselineAgreement   float64 // device-space units
	AdvanceContinuity   float64 // device-space units
	BlockVerticalGap    float64 // device-space units
}

// DefaultTolerances are generous enough for typical 10-14pt body text
// at a 1:1 device scale.
var DefaultTolerances = Tolerances{
	BaselineAgreement: 1.5,
	AdvanceContinuity: 4.0,
	BlockVerticalGap:  6.0,
}

// Page accumulates the text calls issued while rendering one page.
type Page struct {
	tol   Tolerances
	chars []Char
}

// NewPage returns a Page device using tol's grouping tolerances.
func NewPage(tol Tolerances) *Page {
	return &Page{tol: tol}
}

// Device returns a pkg/device.Device that feeds every FillText/
// StrokeText call's glyphs into p, ignoring all non-text calls per
// spec.md §4.8's "Structured-text device... consumes only text calls".
func (p *Page) Device() device.Device {
	return &textOnlyDevice{page: p}
}

type textOnlyDevice struct {
	device.Null
	page *Page
}

func (t *textOnlyDevice) FillText(txt device.Text, ctm geom.Matrix, c device.Color, alpha float64) {
	t.page.record(txt)
}
func (t *textOnlyDevice) StrokeText(txt device.Text, ctm geom.Matrix, c device.Color, alpha float64) {
	t.page.record(txt)
}
func (t *textOnlyDevice) ClipText(txt device.Text, ctm geom.Matrix) { t.page.record(txt) }

func (p *Page) record(txt device.Text) {
	for _, g := range txt.Glyphs {
		p.chars = append(p.chars, Char{
			Rune:     glyphRune(g.GID),
			FontName: txt.FontID,
			Size:     txt.Size,
			Quad:     g.Quad,
		})
	}
}

// glyphRune is the placeholder used for glyphs that arrive through the
// Device calls: this device has no access to the font's /ToUnicode
// CMap, so every such glyph is recorded as U+FFFD. Real Unicode text
// reaches a Page only through RecordText.
func glyphRune(gid int) rune {
	return rune(0xFFFD)
}

// RecordText appends already-Unicode-resolved characters with their
// device-space quads, bypassing the GID placeholder above, for callers
// that have resolved each glyph's Unicode text themselves. pkg/content
// does not call it.
func (p *Page) RecordText(text []rune, quads []geom.Quad, fontName string, size float64, wm WritingMode) {
	for i, r := range text {
		if i >= len(quads) {
			break
		}
		p.chars = append(p.chars, Char{Rune: r, FontName: fontName, Size: size, WritingMode: wm, Quad: quads[i]})
	}
}

// Lines groups the page's accumulated chars into Lines: chars are
// appended to the current line while their baseline (quad's LL.Y)
// agrees with the line's within BaselineAgreement and the horizontal
// gap since the previous char's right edge is within
// AdvanceContinuity; otherwise a new line starts.
func (p *Page) Lines() []Line {
	var lines []Line
	var cur *Line
	var lastRight float64
	var lastBaseline float64

	for _, c := range p.chars {
		baseline := c.Quad.LL.Y
		left := c.Quad.LL.X
		if cur != nil && absf(baseline-lastBaseline) <= p.tol.BaselineAgreement &&
			left-lastRight <= p.tol.AdvanceContinuity {
			cur.Chars = append(cur.Chars, c)
		} else {
			if cur != nil {
				finishLine(cur)
				lines = append(lines, *cur)
			}
			cur = &Line{Chars: []Char{c}}
		}
		lastBaseline = baseline
		lastRight = c.Quad.LR.X
	}
	if cur != nil {
		finishLine(cur)
		lines = append(lines, *cur)
	}
	return lines
}

func finishLine(l *Line) {
	b := geom.Empty
	for _, c := range l.Chars {
		b = b.Union(c.Quad.Bounds())
	}
	l.Bounds = b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Blocks groups Lines into Blocks: vertically contiguous lines (gap
// between one line's bottom and the next's top within
// BlockVerticalGap) with compatible horizontal alignment (overlapping
// X extents) join the same block.
func (p *Page) Blocks() []Block {
	lines := p.Lines()
	var blocks []Block
	var cur *Block

	for _, ln := range lines {
		if cur != nil && blockCompatible(cur.Bounds, ln.Bounds, p.tol.BlockVerticalGap) {
			cur.Lines = append(cur.Lines, ln)
			cur.Bounds = cur.Bounds.Union(ln.Bounds)
		} else {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &Block{Lines: []Line{ln}, Bounds: ln.Bounds}
		}
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

func blockCompatible(a, b geom.Rect, maxGap float64) bool {
	gap := b.Y1 - a.Y0
	if gap < 0 {
		gap = a.Y0 - b.Y1
	}
	overlap := minf(a.X1, b.X1) - maxf(a.X0, b.X0)
	return gap <= maxGap && overlap > 0
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Text returns the page's plain-text content, lines separated by "\n"
// and blocks by a blank line.
func (p *Page) Text() string {
	var sb strings.Builder
	for bi, b := range p.Blocks() {
		if bi > 0 {
			sb.WriteString("\n\n")
		}
		for li, ln := range b.Lines {
			if li > 0 {
				sb.WriteByte('\n')
			}
			for _, c := range ln.Chars {
				sb.WriteRune(c.Rune)
			}
		}
	}
	return sb.String()
}

// Match is one search hit. Search compares within one line at a time,
// so an occurrence that continues onto the next line is not found, and
// Quads always holds a single quad bounding the matched chars.
type Match struct {
	Quads []geom.Quad
}

// Search finds every occurrence of needle across the page's lines,
// matching case-sensitively unless foldCase is set.
func (p *Page) Search(needle string, foldCase bool) []Match {
	if needle == "" {
		return nil
	}
	needleRunes := []rune(needle)
	if foldCase {
		needleRunes = foldRunes(needleRunes)
	}

	var matches []Match
	for _, ln := range p.Lines() {
		lineRunes := make([]rune, len(ln.Chars))
		for i, c := range ln.Chars {
			lineRunes[i] = c.Rune
		}
		compare := lineRunes
		if foldCase {
			compare = foldRunes(lineRunes)
		}
		for start := 0; start+len(needleRunes) <= len(compare); start++ {
			if runesEqual(compare[start:start+len(needleRunes)], needleRunes) {
				quad := ln.Chars[start].Quad
				for i := start + 1; i < start+len(needleRunes); i++ {
					quad = unionQuad(quad, ln.Chars[i].Quad)
				}
				matches = append(matches, Match{Quads: []geom.Quad{quad}})
			}
		}
	}
	return matches
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionQuad(a, b geom.Quad) geom.Quad {
	r := a.Bounds().Union(b.Bounds())
	return geom.QuadFromRect(r)
}
