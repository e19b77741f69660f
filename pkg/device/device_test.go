package device

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/path"
)

func rectPath(r geom.Rect) *path.Path {
	p := path.New()
	p.AppendRect(r)
	return p
}

func TestNullDeviceIgnoresEverything(t *testing.T) {
	var n Null
	// Must not panic on any call with zero-value arguments.
	n.BeginPage(geom.Rect{}, geom.Identity)
	n.FillPath(rectPath(geom.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}), false, geom.Identity, Color{}, 1)
	n.FillText(Text{}, geom.Identity, Color{}, 1)
	n.EndPage()
	n.Close()
}

func TestBBoxAccumulatesUnionOfFills(t *testing.T) {
	b := NewBBox()
	b.FillPath(rectPath(geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}), false, geom.Identity, Color{}, 1)
	b.FillPath(rectPath(geom.Rect{X0: 20, Y0: 20, X1: 30, Y1: 30}), false, geom.Identity, Color{}, 1)
	want := geom.Rect{X0: 0, Y0: 0, X1: 30, Y1: 30}
	if b.Bounds != want {
		t.Fatalf("BBox.Bounds = %v, want %v", b.Bounds, want)
	}
}

func TestBBoxStartsEmpty(t *testing.T) {
	b := NewBBox()
	if !b.Bounds.IsEmpty() {
		t.Fatalf("fresh BBox.Bounds = %v, want empty", b.Bounds)
	}
}

func TestListRecordsCallsInOrder(t *testing.T) {
	l := &List{}
	l.BeginPage(geom.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}, geom.Identity)
	l.FillPath(rectPath(geom.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}), false, geom.Identity, Color{}, 1)
	l.EndPage()

	wantKinds := []callKind{CallBeginPage, CallFillPath, CallEndPage}
	if len(l.Calls) != len(wantKinds) {
		t.Fatalf("recorded %d calls, want %d", len(l.Calls), len(wantKinds))
	}
	for i, k := range wantKinds {
		if l.Calls[i].Kind != k {
			t.Fatalf("Calls[%d].Kind = %v, want %v", i, l.Calls[i].Kind, k)
		}
	}
}

// TestReplayReproducesCallSequence checks that replaying a recorded
// List into a second List reproduces the same calls in the same order.
func TestReplayReproducesCallSequence(t *testing.T) {
	src := &List{}
	src.BeginPage(geom.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}, geom.Identity)
	src.FillPath(rectPath(geom.Rect{X0: 1, Y0: 1, X1: 2, Y1: 2}), false, geom.Identity, Color{}, 1)
	src.StrokePath(rectPath(geom.Rect{X0: 3, Y0: 3, X1: 4, Y1: 4}), path.StrokeState{Width: 1}, geom.Identity, Color{}, 1)
	src.EndPage()
	src.Close()

	dst := &List{}
	src.Replay(dst)

	if len(dst.Calls) != len(src.Calls) {
		t.Fatalf("replayed %d calls, want %d", len(dst.Calls), len(src.Calls))
	}
	for i := range src.Calls {
		if dst.Calls[i].Kind != src.Calls[i].Kind {
			t.Fatalf("Calls[%d].Kind = %v, want %v", i, dst.Calls[i].Kind, src.Calls[i].Kind)
		}
	}
}
