package path

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/geom"
)

func TestRectBounds(t *testing.T) {
	p := New()
	p.AppendRect(geom.Rect{X0: 1, Y0: 2, X1: 5, Y1: 9})
	b := p.Bounds()
	want := geom.Rect{X0: 1, Y0: 2, X1: 5, Y1: 9}
	if b != want {
		t.Fatalf("Bounds() = %v, want %v", b, want)
	}
}

func TestBoundsCacheInvalidatedByMutation(t *testing.T) {
	p := New()
	p.MoveTo(0, 0)
	p.LineTo(1, 1)
	if got := p.Bounds(); got.X1 != 1 || got.Y1 != 1 {
		t.Fatalf("initial bounds = %v", got)
	}
	p.LineTo(5, 5)
	if got := p.Bounds(); got.X1 != 5 || got.Y1 != 5 {
		t.Fatalf("bounds after mutation = %v, want extended to 5,5", got)
	}
}

func TestIsEmpty(t *testing.T) {
	p := New()
	if !p.IsEmpty() {
		t.Fatal("fresh path is not reported empty")
	}
	p.MoveTo(0, 0)
	if p.IsEmpty() {
		t.Fatal("path with a command reported empty")
	}
}

func TestTransformAppliesToEveryPoint(t *testing.T) {
	p := New()
	p.MoveTo(1, 1)
	p.LineTo(2, 2)
	out := p.Transform(geom.Translate(10, 20))
	cmds := out.Commands()
	if cmds[0].To != (geom.Point{X: 11, Y: 21}) {
		t.Fatalf("transformed MoveTo = %v, want {11,21}", cmds[0].To)
	}
	if cmds[1].To != (geom.Point{X: 12, Y: 22}) {
		t.Fatalf("transformed LineTo = %v, want {12,22}", cmds[1].To)
	}
}

func TestFlattenStraightLineProducesNoExtraPoints(t *testing.T) {
	p := New()
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	var pts []geom.Point
	p.Flatten(0.1, func(x, y float64) { pts = append(pts, geom.Point{X: x, Y: y}) },
		func(x, y float64) { pts = append(pts, geom.Point{X: x, Y: y}) })
	if len(pts) != 2 {
		t.Fatalf("flattened straight line got %d points, want 2", len(pts))
	}
}

func TestFlattenCurveStaysWithinTolerance(t *testing.T) {
	p := New()
	p.MoveTo(0, 0)
	p.CurveTo(0, 50, 50, 50, 50, 0)
	var last geom.Point
	var n int
	p.Flatten(0.5,
		func(x, y float64) { last = geom.Point{X: x, Y: y}; n++ },
		func(x, y float64) { last = geom.Point{X: x, Y: y}; n++ },
	)
	if n < 3 {
		t.Fatalf("curved path flattened to only %d points, expected subdivision", n)
	}
	if last != (geom.Point{X: 50, Y: 0}) {
		t.Fatalf("flatten final point = %v, want {50,0}", last)
	}
}

func TestStrokeProducesNonEmptyFillPath(t *testing.T) {
	p := New()
	p.MoveTo(0, 0)
	p.LineTo(100, 0)
	out := Stroke(p, StrokeState{Width: 4, Cap: CapButt, Join: JoinMiter}, 0.1)
	if out.IsEmpty() {
		t.Fatal("Stroke produced an empty outline")
	}
	b := out.Bounds()
	if b.Height() < 3 {
		t.Fatalf("stroked outline height = %v, want roughly the stroke width", b.Height())
	}
}

func TestStrokeDashedLineSplitsIntoSegments(t *testing.T) {
	p := New()
	p.MoveTo(0, 0)
	p.LineTo(100, 0)
	solid := Stroke(p, StrokeState{Width: 2, Cap: CapButt}, 0.1)
	dashed := Stroke(p, StrokeState{Width: 2, Cap: CapButt, DashArray: []float64{5, 5}}, 0.1)
	// Each dash-on run becomes its own independent outline quad, so a
	// dashed stroke of the same line emits strictly more path commands
	// than one continuous outline.
	if len(dashed.Commands()) <= len(solid.Commands()) {
		t.Fatalf("dashed stroke has %d commands, want more than solid's %d (each dash run outlines separately)",
			len(dashed.Commands()), len(solid.Commands()))
	}
}
