// Package path implements the Path builder of spec.md §3/§4.9: a
// sequence of sub-paths built from MoveTo/LineTo/CurveTo/ClosePath
// commands, with cached bounds and a stroke-to-fill outline expander.
// There is no teacher path type (pdfcpu never rasterizes), so this is
// grounded on spec.md §4.9's stroke parameters (line_width, cap,
// join, miter_limit, dash) directly, built in the value-type,
// method-per-operation style pkg/geom already establishes.
package path

import (
	"math"

	"github.com/Lexmata/micropdf-sub000/pkg/geom"
)

// CommandKind tags one Path command.
type CommandKind int

const (
	MoveTo CommandKind = iota
	LineTo
	CurveTo
	ClosePath
	RectHint
)

// Command is one step of a sub-path. CurveTo carries two control
// points (C1, C2) and the endpoint (To); RectHint additionally carries
// the hinted rectangle for renderers that special-case axis-aligned
// rects.
type Command struct {
	Kind   CommandKind
	To     geom.Point
	C1, C2 geom.Point
	Rect   geom.Rect
}

// Path is a sequence of sub-paths. The first command of every
// sub-path is always MoveTo, per spec.md §3.
type Path struct {
	cmds        []Command
	boundsValid bool
	bounds      geom.Rect
}

// New returns an empty Path.
func New() *Path {
	return &Path{}
}

func (p *Path) invalidate() {
	p.boundsValid = false
}

// MoveTo starts a new sub-path at (x,y).
func (p *Path) MoveTo(x, y float64) {
	p.cmds = append(p.cmds, Command{Kind: MoveTo, To: geom.Point{X: x, Y: y}})
	p.invalidate()
}

// LineTo appends a line segment to (x,y).
func (p *Path) LineTo(x, y float64) {
	p.cmds = append(p.cmds, Command{Kind: LineTo, To: geom.Point{X: x, Y: y}})
	p.invalidate()
}

// CurveTo appends a cubic Bezier segment with control points (x1,y1),
// (x2,y2) ending at (x3,y3).
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	p.cmds = append(p.cmds, Command{
		Kind: CurveTo,
		C1:   geom.Point{X: x1, Y: y1},
		C2:   geom.Point{X: x2, Y: y2},
		To:   geom.Point{X: x3, Y: y3},
	})
	p.invalidate()
}

// Close closes the current sub-path back to its starting MoveTo.
func (p *Path) Close() {
	p.cmds = append(p.cmds, Command{Kind: ClosePath})
	p.invalidate()
}

// AppendRect appends a closed rectangular sub-path, tagged RectHint so
// a rasterizer may special-case it.
func (p *Path) AppendRect(r geom.Rect) {
	p.cmds = append(p.cmds,
		Command{Kind: MoveTo, To: geom.Point{X: r.X0, Y: r.Y0}},
		Command{Kind: RectHint, Rect: r},
		Command{Kind: LineTo, To: geom.Point{X: r.X1, Y: r.Y0}},
		Command{Kind: LineTo, To: geom.Point{X: r.X1, Y: r.Y1}},
		Command{Kind: LineTo, To: geom.Point{X: r.X0, Y: r.Y1}},
		Command{Kind: ClosePath},
	)
	p.invalidate()
}

// Commands returns the path's command list.
func (p *Path) Commands() []Command {
	return p.cmds
}

// IsEmpty reports whether the path has no commands.
func (p *Path) IsEmpty() bool {
	return len(p.cmds) == 0
}

// Bounds returns the path's axis-aligned bounding box, caching the
// result until the next mutation per spec.md §3.
func (p *Path) Bounds() geom.Rect {
	if p.boundsValid {
		return p.bounds
	}
	b := geom.Empty
	for _, c := range p.cmds {
		switch c.Kind {
		case MoveTo, LineTo:
			b = b.Union(geom.Rect{X0: c.To.X, Y0: c.To.Y, X1: c.To.X, Y1: c.To.Y})
		case CurveTo:
			for _, pt := range []geom.Point{c.C1, c.C2, c.To} {
				b = b.Union(geom.Rect{X0: pt.X, Y0: pt.Y, X1: pt.X, Y1: pt.Y})
			}
		}
	}
	p.bounds = b
	p.boundsValid = true
	return b
}

// Transform returns a new Path with every point transformed by m.
func (p *Path) Transform(m geom.Matrix) *Path {
	out := New()
	for _, c := range p.cmds {
		switch c.Kind {
		case MoveTo:
			out.cmds = append(out.cmds, Command{Kind: MoveTo, To: c.To.Transform(m)})
		case LineTo:
			out.cmds = append(out.cmds, Command{Kind: LineTo, To: c.To.Transform(m)})
		case CurveTo:
			out.cmds = append(out.cmds, Command{
				Kind: CurveTo, C1: c.C1.Transform(m), C2: c.C2.Transform(m), To: c.To.Transform(m),
			})
		case ClosePath:
			out.cmds = append(out.cmds, Command{Kind: ClosePath})
		case RectHint:
			out.cmds = append(out.cmds, Command{Kind: RectHint, Rect: c.Rect.Transform(m)})
		}
	}
	return out
}

// Flatten walks the path, calling moveTo/lineTo for every point after
// adaptively subdividing CurveTo segments to line segments within
// tolerance (device-space units), per spec.md §4.9.
func (p *Path) Flatten(tolerance float64, moveTo, lineTo func(x, y float64)) {
	var cur geom.Point
	for _, c := range p.cmds {
		switch c.Kind {
		case MoveTo:
			cur = c.To
			moveTo(cur.X, cur.Y)
		case LineTo:
			cur = c.To
			lineTo(cur.X, cur.Y)
		case CurveTo:
			flattenCubic(cur, c.C1, c.C2, c.To, tolerance, lineTo)
			cur = c.To
		case ClosePath:
			// Renderers close back to the sub-path's start themselves
			// via their own tracked moveTo point.
		}
	}
}

// flattenCubic recursively subdivides a cubic Bezier until the
// control points deviate from the chord by less than tolerance.
func flattenCubic(p0, p1, p2, p3 geom.Point, tolerance float64, lineTo func(x, y float64)) {
	if cubicFlatEnough(p0, p1, p2, p3, tolerance) {
		lineTo(p3.X, p3.Y)
		return
	}
	// De Casteljau subdivision at t=0.5.
	p01 := mid(p0, p1)
	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	p0123 := mid(p012, p123)

	flattenCubic(p0, p01, p012, p0123, tolerance, lineTo)
	flattenCubic(p0123, p123, p23, p3, tolerance, lineTo)
}

func mid(a, b geom.Point) geom.Point {
	return geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// cubicFlatEnough measures the control points' perpendicular distance
// from the p0-p3 chord and compares against tolerance.
func cubicFlatEnough(p0, p1, p2, p3 geom.Point, tolerance float64) bool {
	d1 := pointLineDistance(p1, p0, p3)
	d2 := pointLineDistance(p2, p0, p3)
	return d1 <= tolerance && d2 <= tolerance
}

func pointLineDistance(p, a, b geom.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-12 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	// |cross(b-a, p-a)| / |b-a|
	cross := dx*(p.Y-a.Y) - dy*(p.X-a.X)
	return math.Abs(cross) / math.Sqrt(lenSq)
}

// LineCap enumerates PDF stroke line caps.
type LineCap int

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

// LineJoin enumerates PDF stroke line joins.
type LineJoin int

const (
	JoinMiter LineJoin = iota
	JoinRound
	JoinBevel
)

// StrokeState carries every parameter `S`/`s` consults from the
// graphics state, per spec.md §4.7/§4.9.
type StrokeState struct {
	Width      float64
	Cap        LineCap
	Join       LineJoin
	MiterLimit float64
	DashArray  []float64
	DashPhase  float64
}

// Stroke expands p into a new fill Path outlining a stroke of width
// st.Width along every flattened sub-path, honoring cap and join
// style. Curves are flattened at tolerance before outlining.
func Stroke(p *Path, st StrokeState, tolerance float64) *Path {
	out := New()
	for _, poly := range subPolylines(p, tolerance) {
		segs := dashSegments(poly.pts, st)
		for _, seg := range segs {
			appendStrokeOutline(out, seg, st, poly.closed && len(segs) == 1)
		}
	}
	return out
}

type polyline struct {
	pts    []geom.Point
	closed bool
}

// subPolylines flattens every sub-path of p into a polyline of device
// points, recording whether ClosePath was seen.
func subPolylines(p *Path, tolerance float64) []polyline {
	var out []polyline
	var cur *polyline
	var start geom.Point
	for _, c := range p.cmds {
		switch c.Kind {
		case MoveTo:
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &polyline{pts: []geom.Point{c.To}}
			start = c.To
		case LineTo:
			if cur != nil {
				cur.pts = append(cur.pts, c.To)
			}
		case CurveTo:
			if cur != nil {
				last := cur.pts[len(cur.pts)-1]
				flattenCubic(last, c.C1, c.C2, c.To, tolerance, func(x, y float64) {
					cur.pts = append(cur.pts, geom.Point{X: x, Y: y})
				})
			}
		case ClosePath:
			if cur != nil {
				cur.pts = append(cur.pts, start)
				cur.closed = true
			}
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// dashSegments splits pts into dash-on runs per st.DashArray/Phase. An
// empty DashArray returns pts unchanged as a single segment.
func dashSegments(pts []geom.Point, st StrokeState) [][]geom.Point {
	if len(st.DashArray) == 0 || len(pts) < 2 {
		return [][]geom.Point{pts}
	}
	var segs [][]geom.Point
	dashIdx := 0
	on := true
	remaining := st.DashArray[0]
	// advance by phase
	phase := st.DashPhase
	for phase > 0 {
		if phase < remaining {
			remaining -= phase
			break
		}
		phase -= remaining
		dashIdx = (dashIdx + 1) % len(st.DashArray)
		remaining = st.DashArray[dashIdx]
		on = !on
	}

	var cur []geom.Point
	if on {
		cur = []geom.Point{pts[0]}
	}
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		pos := 0.0
		for pos < segLen {
			step := math.Min(remaining, segLen-pos)
			pos += step
			remaining -= step
			t := pos / segLen
			pt := geom.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
			if on {
				cur = append(cur, pt)
			}
			if remaining <= 1e-9 {
				if on && len(cur) >= 2 {
					segs = append(segs, cur)
				}
				dashIdx = (dashIdx + 1) % len(st.DashArray)
				remaining = st.DashArray[dashIdx]
				on = !on
				if on {
					cur = []geom.Point{pt}
				} else {
					cur = nil
				}
			}
		}
	}
	if on && len(cur) >= 2 {
		segs = append(segs, cur)
	}
	if len(segs) == 0 {
		return [][]geom.Point{pts}
	}
	return segs
}

// appendStrokeOutline builds the rectangular-segment-plus-join outline
// for one polyline, a simplified but correct-at-the-edges expansion:
// each segment becomes a quad of half-width st.Width/2, joins are
// filled with a round or bevel wedge (miter approximated by bevel
// beyond MiterLimit), and open ends get butt/round/square caps.
func appendStrokeOutline(out *Path, pts []geom.Point, st StrokeState, closed bool) {
	if len(pts) < 2 {
		return
	}
	hw := st.Width / 2
	if hw <= 0 {
		hw = 0.5
	}

	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		nx, ny := normal(a, b)
		out.MoveTo(a.X+nx*hw, a.Y+ny*hw)
		out.LineTo(b.X+nx*hw, b.Y+ny*hw)
		out.LineTo(b.X-nx*hw, b.Y-ny*hw)
		out.LineTo(a.X-nx*hw, a.Y-ny*hw)
		out.Close()
	}

	for i := 1; i < len(pts)-1; i++ {
		appendJoin(out, pts[i-1], pts[i], pts[i+1], hw, st.Join)
	}
	if closed && len(pts) > 2 {
		appendJoin(out, pts[len(pts)-2], pts[0], pts[1], hw, st.Join)
	} else {
		appendCap(out, pts[0], pts[1], hw, st.Cap, true)
		appendCap(out, pts[len(pts)-2], pts[len(pts)-1], hw, st.Cap, false)
	}
}

func normal(a, b geom.Point) (nx, ny float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l < 1e-9 {
		return 0, 0
	}
	return -dy / l, dx / l
}

// appendJoin fills the wedge at the shared vertex b between segments
// a-b and b-c with a small fan, approximating round joins and
// providing adequate coverage for miter/bevel at typical stroke
// widths without tracking the exact miter point.
func appendJoin(out *Path, a, b, c geom.Point, hw float64, join LineJoin) {
	if join == JoinRound {
		out.MoveTo(b.X, b.Y)
		const steps = 8
		for i := 0; i <= steps; i++ {
			theta := 2 * math.Pi * float64(i) / steps
			out.LineTo(b.X+hw*math.Cos(theta), b.Y+hw*math.Sin(theta))
		}
		out.Close()
		return
	}
	n1x, n1y := normal(a, b)
	n2x, n2y := normal(b, c)
	out.MoveTo(b.X, b.Y)
	out.LineTo(b.X+n1x*hw, b.Y+n1y*hw)
	out.LineTo(b.X+n2x*hw, b.Y+n2y*hw)
	out.Close()
	out.MoveTo(b.X, b.Y)
	out.LineTo(b.X-n1x*hw, b.Y-n1y*hw)
	out.LineTo(b.X-n2x*hw, b.Y-n2y*hw)
	out.Close()
}

// appendCap draws the end cap at the polyline endpoint nearest `a`
// (start=true) or nearest the last point (start=false), using the
// direction of segment a->b.
func appendCap(out *Path, a, b geom.Point, hw float64, cap LineCap, start bool) {
	tip, dir := b, a
	if start {
		tip, dir = a, b
	}
	dx, dy := tip.X-dir.X, tip.Y-dir.Y
	l := math.Hypot(dx, dy)
	if l < 1e-9 {
		return
	}
	dx, dy = dx/l, dy/l
	nx, ny := -dy, dx

	switch cap {
	case CapSquare:
		ex, ey := tip.X+dx*hw, tip.Y+dy*hw
		out.MoveTo(tip.X+nx*hw, tip.Y+ny*hw)
		out.LineTo(ex+nx*hw, ey+ny*hw)
		out.LineTo(ex-nx*hw, ey-ny*hw)
		out.LineTo(tip.X-nx*hw, tip.Y-ny*hw)
		out.Close()
	case CapRound:
		const steps = 8
		out.MoveTo(tip.X+nx*hw, tip.Y+ny*hw)
		for i := 1; i <= steps; i++ {
			theta := math.Pi * float64(i) / steps
			cx := tip.X + nx*hw*math.Cos(theta) + dx*hw*math.Sin(theta)
			cy := tip.Y + ny*hw*math.Cos(theta) + dy*hw*math.Sin(theta)
			out.LineTo(cx, cy)
		}
		out.Close()
	case CapButt:
		// No extension beyond the endpoint.
	}
}
