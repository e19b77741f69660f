// Package device implements the Device capability set of spec.md
// §4.8: the polymorphic sink every drawing operator in pkg/content
// ultimately calls into. There is no teacher analogue (pdfcpu never
// rasterizes a page), so the interface is built directly from the
// spec's call list; the Null, BBox and List variants below are built
// in the small-struct, no-dependency style pkg/geom already
// establishes, since none of them need a third-party library.
package device

import (
	"github.com/Lexmata/micropdf-sub000/pkg/color"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/path"
)

// Color is a color value in a given colorspace's native components.
type Color struct {
	Space *color.Colorspace
	Comps []float64
}

// Text is one text-showing call's payload: a run of positioned
// glyphs sharing a font, size and render mode, per spec.md §4.7's
// "one fill_text/stroke_text call per text run".
type Text struct {
	FontID   string
	Size     float64
	Mode     int // PDF text render mode 0-7
	Glyphs   []Glyph
}

// Glyph is one glyph's id and its quad in device space (already
// transformed by the text + CTM matrices).
type Glyph struct {
	GID  int
	Quad geom.Quad
}

// Image is the minimal image payload a Device needs to composite: a
// decoded pixmap and, if present, a soft/stencil mask.
type Image struct {
	Width, Height int
	Colorspace    *color.Colorspace
	Samples       []byte
	Alpha         []byte // per-pixel soft mask, nil if none
}

// Shade describes a `sh` shading-pattern fill, carrying just enough
// for a Device to evaluate or approximate it; full function/shading
// dictionary evaluation happens in pkg/content.
type Shade struct {
	Colorspace *color.Colorspace
	Domain     [2]float64
	Eval       func(t float64) []float64
}

// BlendMode enumerates PDF's 16 separable/non-separable blend modes.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
)

// Device is the capability set of spec.md §4.8. A drawing operator in
// the content interpreter issues one call here, except the
// fill-and-stroke painting operators (B, B*, b, b*) and the text render
// modes that combine fill, stroke or clip, which issue one call each.
type Device interface {
	BeginPage(mediaBox geom.Rect, ctm geom.Matrix)
	EndPage()

	FillPath(p *path.Path, evenOdd bool, ctm geom.Matrix, c Color, alpha float64)
	StrokePath(p *path.Path, st path.StrokeState, ctm geom.Matrix, c Color, alpha float64)
	ClipPath(p *path.Path, evenOdd bool, ctm geom.Matrix)
	ClipStrokePath(p *path.Path, st path.StrokeState, ctm geom.Matrix)

	FillText(t Text, ctm geom.Matrix, c Color, alpha float64)
	StrokeText(t Text, ctm geom.Matrix, c Color, alpha float64)
	IgnoreText(t Text, ctm geom.Matrix)
	ClipText(t Text, ctm geom.Matrix)
	ClipStrokeText(t Text, ctm geom.Matrix)

	FillShade(s Shade, ctm geom.Matrix, alpha float64)
	FillImage(img Image, ctm geom.Matrix, alpha float64)
	FillImageMask(img Image, ctm geom.Matrix, c Color, alpha float64)
	ClipImageMask(img Image, ctm geom.Matrix)

	BeginGroup(bbox geom.Rect, cs *color.Colorspace, isolated, knockout bool, blend BlendMode, alpha float64)
	EndGroup()
	BeginTile(area, view geom.Rect, xstep, ystep float64, ctm geom.Matrix, id string)
	EndTile()
	PopClip()

	Close()
}

// Null is a Device that ignores every call, for bounds-only or
// timing walks per spec.md §4.8's "Null device" variant.
type Null struct{}

func (Null) BeginPage(geom.Rect, geom.Matrix)                                       {}
func (Null) EndPage()                                                               {}
func (Null) FillPath(*path.Path, bool, geom.Matrix, Color, float64)                  {}
func (Null) StrokePath(*path.Path, path.StrokeState, geom.Matrix, Color, float64)    {}
func (Null) ClipPath(*path.Path, bool, geom.Matrix)                                  {}
func (Null) ClipStrokePath(*path.Path, path.StrokeState, geom.Matrix)                {}
func (Null) FillText(Text, geom.Matrix, Color, float64)                              {}
func (Null) StrokeText(Text, geom.Matrix, Color, float64)                            {}
func (Null) IgnoreText(Text, geom.Matrix)                                            {}
func (Null) ClipText(Text, geom.Matrix)                                              {}
func (Null) ClipStrokeText(Text, geom.Matrix)                                        {}
func (Null) FillShade(Shade, geom.Matrix, float64)                                   {}
func (Null) FillImage(Image, geom.Matrix, float64)                                   {}
func (Null) FillImageMask(Image, geom.Matrix, Color, float64)                        {}
func (Null) ClipImageMask(Image, geom.Matrix)                                        {}
func (Null) BeginGroup(geom.Rect, *color.Colorspace, bool, bool, BlendMode, float64) {}
func (Null) EndGroup()                                                               {}
func (Null) BeginTile(geom.Rect, geom.Rect, float64, float64, geom.Matrix, string)    {}
func (Null) EndTile()                                                                {}
func (Null) PopClip()                                                                {}
func (Null) Close()                                                                  {}

// BBox is a Device that accumulates the union bounding box of every
// drawing call it sees, per spec.md §4.8's "Bounding-box device".
type BBox struct {
	Bounds geom.Rect
}

// NewBBox returns a BBox device with an empty initial bound.
func NewBBox() *BBox {
	return &BBox{Bounds: geom.Empty}
}

func (b *BBox) union(r geom.Rect, ctm geom.Matrix) {
	b.Bounds = b.Bounds.Union(r.Transform(ctm))
}

func (b *BBox) BeginPage(geom.Rect, geom.Matrix) {}
func (b *BBox) EndPage()                         {}

func (b *BBox) FillPath(p *path.Path, _ bool, ctm geom.Matrix, _ Color, _ float64) {
	b.union(p.Bounds(), ctm)
}
func (b *BBox) StrokePath(p *path.Path, _ path.StrokeState, ctm geom.Matrix, _ Color, _ float64) {
	b.union(p.Bounds(), ctm)
}
func (b *BBox) ClipPath(*path.Path, bool, geom.Matrix)                       {}
func (b *BBox) ClipStrokePath(*path.Path, path.StrokeState, geom.Matrix)     {}
func (b *BBox) FillText(t Text, ctm geom.Matrix, _ Color, _ float64) {
	for _, g := range t.Glyphs {
		b.union(g.Quad.Bounds(), ctm)
	}
}
func (b *BBox) StrokeText(t Text, ctm geom.Matrix, c Color, a float64) { b.FillText(t, ctm, c, a) }
func (b *BBox) IgnoreText(Text, geom.Matrix)                           {}
func (b *BBox) ClipText(Text, geom.Matrix)                             {}
func (b *BBox) ClipStrokeText(Text, geom.Matrix)                       {}
func (b *BBox) FillShade(Shade, geom.Matrix, float64)                  {}
func (b *BBox) FillImage(img Image, ctm geom.Matrix, _ float64) {
	b.union(geom.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}, ctm)
	_ = img
}
func (b *BBox) FillImageMask(img Image, ctm geom.Matrix, _ Color, _ float64) {
	b.union(geom.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}, ctm)
	_ = img
}
func (b *BBox) ClipImageMask(Image, geom.Matrix) {}
func (b *BBox) BeginGroup(geom.Rect, *color.Colorspace, bool, bool, BlendMode, float64) {}
func (b *BBox) EndGroup()                                                              {}
func (b *BBox) BeginTile(geom.Rect, geom.Rect, float64, float64, geom.Matrix, string)  {}
func (b *BBox) EndTile()                                                              {}
func (b *BBox) PopClip()                                                             {}
func (b *BBox) Close()                                                               {}

// callKind tags a recorded List call, named after its Device method.
type callKind int

const (
	CallBeginPage callKind = iota
	CallEndPage
	CallFillPath
	CallStrokePath
	CallClipPath
	CallClipStrokePath
	CallFillText
	CallStrokeText
	CallIgnoreText
	CallClipText
	CallClipStrokeText
	CallFillShade
	CallFillImage
	CallFillImageMask
	CallClipImageMask
	CallBeginGroup
	CallEndGroup
	CallBeginTile
	CallEndTile
	CallPopClip
	CallClose
)

// Call is one recorded Device invocation with its arguments, for the
// "Display-list device" variant of spec.md §4.8.
type Call struct {
	Kind  callKind
	Path  *path.Path
	Stroke path.StrokeState
	EvenOdd bool
	CTM   geom.Matrix
	Color Color
	Alpha float64
	Text  Text
	Shade Shade
	Image Image
	GroupBBox geom.Rect
	GroupCS   *color.Colorspace
	Isolated, Knockout bool
	Blend BlendMode
	TileArea, TileView geom.Rect
	XStep, YStep float64
	TileID string
	MediaBox geom.Rect
}

// List is a Device that records every call for later replay, per
// spec.md §4.8's "Display-list device" variant. Replaying a List
// against another Device reproduces the identical call sequence,
// which is exactly the invariant spec.md §8's seed test #9 checks
// (Null vs Draw device call-sequence equality).
type List struct {
	Calls []Call
}

func (l *List) BeginPage(mb geom.Rect, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallBeginPage, MediaBox: mb, CTM: ctm})
}
func (l *List) EndPage() { l.Calls = append(l.Calls, Call{Kind: CallEndPage}) }

func (l *List) FillPath(p *path.Path, eo bool, ctm geom.Matrix, c Color, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallFillPath, Path: p, EvenOdd: eo, CTM: ctm, Color: c, Alpha: a})
}
func (l *List) StrokePath(p *path.Path, st path.StrokeState, ctm geom.Matrix, c Color, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallStrokePath, Path: p, Stroke: st, CTM: ctm, Color: c, Alpha: a})
}
func (l *List) ClipPath(p *path.Path, eo bool, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallClipPath, Path: p, EvenOdd: eo, CTM: ctm})
}
func (l *List) ClipStrokePath(p *path.Path, st path.StrokeState, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallClipStrokePath, Path: p, Stroke: st, CTM: ctm})
}
func (l *List) FillText(t Text, ctm geom.Matrix, c Color, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallFillText, Text: t, CTM: ctm, Color: c, Alpha: a})
}
func (l *List) StrokeText(t Text, ctm geom.Matrix, c Color, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallStrokeText, Text: t, CTM: ctm, Color: c, Alpha: a})
}
func (l *List) IgnoreText(t Text, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallIgnoreText, Text: t, CTM: ctm})
}
func (l *List) ClipText(t Text, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallClipText, Text: t, CTM: ctm})
}
func (l *List) ClipStrokeText(t Text, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallClipStrokeText, Text: t, CTM: ctm})
}
func (l *List) FillShade(s Shade, ctm geom.Matrix, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallFillShade, Shade: s, CTM: ctm, Alpha: a})
}
func (l *List) FillImage(img Image, ctm geom.Matrix, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallFillImage, Image: img, CTM: ctm, Alpha: a})
}
func (l *List) FillImageMask(img Image, ctm geom.Matrix, c Color, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallFillImageMask, Image: img, CTM: ctm, Color: c, Alpha: a})
}
func (l *List) ClipImageMask(img Image, ctm geom.Matrix) {
	l.Calls = append(l.Calls, Call{Kind: CallClipImageMask, Image: img, CTM: ctm})
}
func (l *List) BeginGroup(bbox geom.Rect, cs *color.Colorspace, iso, knock bool, blend BlendMode, a float64) {
	l.Calls = append(l.Calls, Call{Kind: CallBeginGroup, GroupBBox: bbox, GroupCS: cs, Isolated: iso, Knockout: knock, Blend: blend, Alpha: a})
}
func (l *List) EndGroup() { l.Calls = append(l.Calls, Call{Kind: CallEndGroup}) }
func (l *List) BeginTile(area, view geom.Rect, xstep, ystep float64, ctm geom.Matrix, id string) {
	l.Calls = append(l.Calls, Call{Kind: CallBeginTile, TileArea: area, TileView: view, XStep: xstep, YStep: ystep, CTM: ctm, TileID: id})
}
func (l *List) EndTile()  { l.Calls = append(l.Calls, Call{Kind: CallEndTile}) }
func (l *List) PopClip()  { l.Calls = append(l.Calls, Call{Kind: CallPopClip}) }
func (l *List) Close()    { l.Calls = append(l.Calls, Call{Kind: CallClose}) }

// Replay issues every recorded call against dst, in order.
func (l *List) Replay(dst Device) {
	for _, c := range l.Calls {
		switch c.Kind {
		case CallBeginPage:
			dst.BeginPage(c.MediaBox, c.CTM)
		case CallEndPage:
			dst.EndPage()
		case CallFillPath:
			dst.FillPath(c.Path, c.EvenOdd, c.CTM, c.Color, c.Alpha)
		case CallStrokePath:
			dst.StrokePath(c.Path, c.Stroke, c.CTM, c.Color, c.Alpha)
		case CallClipPath:
			dst.ClipPath(c.Path, c.EvenOdd, c.CTM)
		case CallClipStrokePath:
			dst.ClipStrokePath(c.Path, c.Stroke, c.CTM)
		case CallFillText:
			dst.FillText(c.Text, c.CTM, c.Color, c.Alpha)
		case CallStrokeText:
			dst.StrokeText(c.Text, c.CTM, c.Color, c.Alpha)
		case CallIgnoreText:
			dst.IgnoreText(c.Text, c.CTM)
		case CallClipText:
			dst.ClipText(c.Text, c.CTM)
		case CallClipStrokeText:
			dst.ClipStrokeText(c.Text, c.CTM)
		case CallFillShade:
			dst.FillShade(c.Shade, c.CTM, c.Alpha)
		case CallFillImage:
			dst.FillImage(c.Image, c.CTM, c.Alpha)
		case CallFillImageMask:
			dst.FillImageMask(c.Image, c.CTM, c.Color, c.Alpha)
		case CallClipImageMask:
			dst.ClipImageMask(c.Image, c.CTM)
		case CallBeginGroup:
			dst.BeginGroup(c.GroupBBox, c.GroupCS, c.Isolated, c.Knockout, c.Blend, c.Alpha)
		case CallEndGroup:
			dst.EndGroup()
		case CallBeginTile:
			dst.BeginTile(c.TileArea, c.TileView, c.XStep, c.YStep, c.CTM, c.TileID)
		case CallEndTile:
			dst.EndTile()
		case CallPopClip:
			dst.PopClip()
		case CallClose:
			dst.Close()
		}
	}
}
