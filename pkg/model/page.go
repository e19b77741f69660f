package model

import (
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// Page is one leaf of a document's flattened page tree: its own
// dictionary plus the inheritable attributes (/Resources, /MediaBox,
// /CropBox, /Rotate) merged down from ancestor /Pages nodes, per
// spec.md §3.
type Page struct {
	doc        *Document
	Num        int
	Dict       types.Dict
	Inherited  types.Dict
}

// Document returns the Page's owning Document, for callers (the
// content interpreter, the C-ABI layer) that hold only a *Page handle
// but need the resolver a content.Interpreter requires.
func (p *Page) Document() *Document { return p.doc }

// LoadPage returns the n'th page (0-indexed) of the flattened tree.
func (d *Document) LoadPage(n int) (*Page, error) {
	if d.NeedsPassword() {
		return nil, New(AuthRequired, "micropdf: document requires a password")
	}
	if n < 0 || n >= len(d.pages) {
		return nil, New(Argument, "micropdf: page index %d out of range [0,%d)", n, len(d.pages))
	}
	leaf := d.pages[n]
	return &Page{doc: d, Num: leaf.num, Dict: leaf.dict, Inherited: leaf.inheritable}, nil
}

// attr looks up key on the page's own dict, falling back to the
// inherited attributes.
func (p *Page) attr(key string) (types.Object, bool) {
	if v, ok := p.Dict[types.Name(key)]; ok {
		return v, true
	}
	v, ok := p.Inherited[types.Name(key)]
	return v, ok
}

// defaultMediaBox is US Letter in points, the fallback pdfcpu and most
// viewers use when a page's /MediaBox is missing entirely.
var defaultMediaBox = geom.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

// MediaBox returns the page's physical media box.
func (p *Page) MediaBox() (geom.Rect, error) {
	v, ok := p.attr("MediaBox")
	if !ok {
		return defaultMediaBox, nil
	}
	return p.doc.rectFrom(v)
}

// Bounds returns the page's effective visible bounds: the /CropBox
// intersected with the /MediaBox when both are present, or the
// /MediaBox alone otherwise, per spec.md §3 ("a page's bounds default
// to its media box unless narrowed by a crop box").
func (p *Page) Bounds() (geom.Rect, error) {
	media, err := p.MediaBox()
	if err != nil {
		return geom.Rect{}, err
	}
	cropV, ok := p.attr("CropBox")
	if !ok {
		return media, nil
	}
	crop, err := p.doc.rectFrom(cropV)
	if err != nil {
		return media, nil
	}
	return media.Intersect(crop), nil
}

// Rotation returns the page's /Rotate value, normalized into [0, 360)
// and snapped to a multiple of 90 per spec.md §3 (a malformed
// non-multiple-of-90 value is rounded down to the nearest multiple).
func (p *Page) Rotation() int {
	v, ok := p.attr("Rotate")
	if !ok {
		return 0
	}
	i, ok := v.(types.Int)
	if !ok {
		return 0
	}
	r := int(i) % 360
	if r < 0 {
		r += 360
	}
	return (r / 90) * 90
}

// Resources returns the page's resource dictionary, resolving an
// indirect reference if present.
func (p *Page) Resources() (types.Dict, error) {
	v, ok := p.attr("Resources")
	if !ok {
		return types.Dict{}, nil
	}
	d, ok, err := p.doc.ResolveDict(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Dict{}, nil
	}
	return d, nil
}

// ContentBytes concatenates and decodes the page's /Contents, which
// may be a single stream or an array of streams treated as one
// logical content stream with a space inserted between each, per
// spec.md §4.7.
func (p *Page) ContentBytes() ([]byte, error) {
	v, ok := p.Dict[types.Name("Contents")]
	if !ok {
		return nil, nil
	}
	resolved, err := p.doc.Resolve(v)
	if err != nil {
		return nil, err
	}

	switch t := resolved.(type) {
	case *types.Stream:
		return p.doc.DecodedStream(t)
	case types.Array:
		var out []byte
		for i, ref := range t {
			s, err := p.doc.Resolve(ref)
			if err != nil {
				return nil, err
			}
			stm, ok := s.(*types.Stream)
			if !ok {
				continue
			}
			dec, err := p.doc.DecodedStream(stm)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				out = append(out, ' ')
			}
			out = append(out, dec...)
		}
		return out, nil
	}
	return nil, New(Format, "micropdf: /Contents is neither a stream nor an array")
}

// rectFrom resolves obj (an Array of 4 numbers, possibly containing
// indirect refs) into a geom.Rect, swapping corners as needed so that
// X0 <= X1 and Y0 <= Y1 for an out-of-order /MediaBox.
func (d *Document) rectFrom(obj types.Object) (geom.Rect, error) {
	resolved, err := d.Resolve(obj)
	if err != nil {
		return geom.Rect{}, err
	}
	arr, ok := resolved.(types.Array)
	if !ok || len(arr) != 4 {
		return geom.Rect{}, New(Format, "micropdf: expected a 4-element rectangle array")
	}
	vals := make([]float64, 4)
	for i, o := range arr {
		ro, err := d.Resolve(o)
		if err != nil {
			return geom.Rect{}, err
		}
		switch t := ro.(type) {
		case types.Int:
			vals[i] = float64(t)
		case types.Real:
			vals[i] = float64(t)
		default:
			return geom.Rect{}, New(Format, "micropdf: non-numeric rectangle component")
		}
	}
	x0, x1 := vals[0], vals[2]
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := vals[1], vals[3]
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return geom.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}, nil
}
