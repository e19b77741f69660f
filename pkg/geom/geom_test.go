package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-5
}

func matrixAlmostEqual(a, b Matrix) bool {
	return almostEqual(a.A, b.A) && almostEqual(a.B, b.B) &&
		almostEqual(a.C, b.C) && almostEqual(a.D, b.D) &&
		almostEqual(a.E, b.E) && almostEqual(a.F, b.F)
}

func TestRectTransformMatchesQuadBounds(t *testing.T) {
	r := Rect{X0: 10, Y0: 20, X1: 110, Y1: 220}
	m := Concat(Rotate(37), Translate(5, -3))

	got := r.Transform(m)
	want := QuadFromRect(r).Transform(m).Bounds()

	if !matrixAlmostEqual(Matrix{A: got.X0, B: got.Y0, C: got.X1, D: got.Y1}, Matrix{A: want.X0, B: want.Y0, C: want.X1, D: want.Y1}) {
		t.Fatalf("rect.Transform = %+v, quad bounds = %+v", got, want)
	}
}

func TestMatrixInvertConcatIsIdentity(t *testing.T) {
	cases := []Matrix{
		Identity,
		Rotate(30),
		Concat(Scale(2, 3), Translate(7, -9)),
		{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6},
	}
	for _, m := range cases {
		if m.Det() == 0 {
			continue
		}
		inv, ok := m.Invert()
		if !ok {
			t.Fatalf("Invert() reported !ok for non-singular %+v", m)
		}
		got := m.Concat(inv)
		if !matrixAlmostEqual(got, Identity) {
			t.Errorf("%+v concat inverse = %+v, want identity", m, got)
		}
	}
}

func TestMatrixInvertSingular(t *testing.T) {
	m := Matrix{A: 1, B: 2, C: 2, D: 4}
	if _, ok := m.Invert(); ok {
		t.Fatal("Invert() reported ok for a singular matrix")
	}
}

func TestRectUnionIntersectWithEmpty(t *testing.T) {
	r := Rect{X0: 1, Y0: 1, X1: 5, Y1: 5}
	if u := r.Union(Empty); u != r {
		t.Fatalf("r.Union(Empty) = %+v, want %+v", u, r)
	}
	if i := r.Intersect(Empty); !i.IsEmpty() {
		t.Fatalf("r.Intersect(Empty) = %+v, want empty", i)
	}
}

func TestRotateExactMultiplesOf90(t *testing.T) {
	cases := map[float64]Matrix{
		0:   {A: 1, D: 1},
		90:  {B: 1, C: -1},
		180: {A: -1, D: -1},
		270: {B: -1, C: 1},
	}
	for deg, want := range cases {
		got := Rotate(deg)
		if got != want {
			t.Errorf("Rotate(%v) = %+v, want exact %+v", deg, got, want)
		}
	}
}

func TestRotateSnapsNearMultiple(t *testing.T) {
	got := Rotate(90 + 1e-8)
	want := Matrix{B: 1, C: -1}
	if got != want {
		t.Errorf("Rotate(90+1e-8) = %+v, want snapped %+v", got, want)
	}
}
