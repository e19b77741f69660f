// Package geom provides the pure value types shared by every other
// package: points, rectangles, affine matrices and quads.
package geom

import "math"

// Point is a location in 2D space.
type Point struct {
	X, Y float64
}

// Transform applies matrix m to p.
func (p Point) Transform(m Matrix) Point {
	return Point{
		X: p.X*m.A + p.Y*m.C + m.E,
		Y: p.X*m.B + p.Y*m.D + m.F,
	}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Rect is an axis-aligned rectangle with X0<=X1 and Y0<=Y1 in the
// canonical (non-empty, non-infinite) case.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Empty is the canonical empty rectangle.
var Empty = Rect{X0: 1, Y0: 1, X1: 0, Y1: 0}

// Infinite is the sentinel rectangle covering the whole plane.
var Infinite = Rect{
	X0: math.Inf(-1), Y0: math.Inf(-1),
	X1: math.Inf(1), Y1: math.Inf(1),
}

// IsEmpty reports whether r is the empty rectangle.
func (r Rect) IsEmpty() bool {
	return r.X0 > r.X1 || r.Y0 > r.Y1
}

// IsInfinite reports whether r is the infinite sentinel.
func (r Rect) IsInfinite() bool {
	return r == Infinite
}

// Width returns X1-X0, or 0 for an empty rect.
func (r Rect) Width() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.X1 - r.X0
}

// Height returns Y1-Y0, or 0 for an empty rect.
func (r Rect) Height() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Y1 - r.Y0
}

// Union returns the smallest rect containing both r and s. A union
// with Empty returns the other operand unchanged.
func (r Rect) Union(s Rect) Rect {
	if r.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, s.X0),
		Y0: math.Min(r.Y0, s.Y0),
		X1: math.Max(r.X1, s.X1),
		Y1: math.Max(r.Y1, s.Y1),
	}
}

// Intersect returns the overlap of r and s, or Empty if they don't overlap.
func (r Rect) Intersect(s Rect) Rect {
	x0, y0 := math.Max(r.X0, s.X0), math.Max(r.Y0, s.Y0)
	x1, y1 := math.Min(r.X1, s.X1), math.Min(r.Y1, s.Y1)
	out := Rect{x0, y0, x1, y1}
	if out.IsEmpty() {
		return Empty
	}
	return out
}

// Contains reports whether p lies within r (inclusive of the boundary).
func (r Rect) Contains(p Point) bool {
	if r.IsEmpty() {
		return false
	}
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

// Transform computes the axis-aligned bounding box of r's four corners
// after applying m. Under rotation the result is never smaller than r.
func (r Rect) Transform(m Matrix) Rect {
	if r.IsEmpty() {
		return Empty
	}
	return QuadFromRect(r).Transform(m).Bounds()
}

// Quad is a four-corner region, possibly non-axis-aligned.
type Quad struct {
	UL, UR, LL, LR Point
}

// QuadFromRect builds an axis-aligned quad from a canonical rect.
func QuadFromRect(r Rect) Quad {
	return Quad{
		UL: Point{r.X0, r.Y1},
		UR: Point{r.X1, r.Y1},
		LL: Point{r.X0, r.Y0},
		LR: Point{r.X1, r.Y0},
	}
}

// Transform applies m to every corner of q.
func (q Quad) Transform(m Matrix) Quad {
	return Quad{
		UL: q.UL.Transform(m),
		UR: q.UR.Transform(m),
		LL: q.LL.Transform(m),
		LR: q.LR.Transform(m),
	}
}

// Bounds returns the axis-aligned hull of q's four corners.
func (q Quad) Bounds() Rect {
	xs := [4]float64{q.UL.X, q.UR.X, q.LL.X, q.LR.X}
	ys := [4]float64{q.UL.Y, q.UR.Y, q.LL.Y, q.LR.Y}
	r := Rect{xs[0], ys[0], xs[0], ys[0]}
	for i := 1; i < 4; i++ {
		r.X0 = math.Min(r.X0, xs[i])
		r.X1 = math.Max(r.X1, xs[i])
		r.Y0 = math.Min(r.Y0, ys[i])
		r.Y1 = math.Max(r.Y1, ys[i])
	}
	return r
}

// Matrix is a 2x3 affine transform: x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity is the identity matrix.
var Identity = Matrix{A: 1, D: 1}

// rotateSnapThreshold bounds how close an angle must be to a multiple
// of 90 degrees before it snaps to the exact integer-coefficient form.
const rotateSnapThreshold = 1e-6

// Rotate returns the matrix that rotates by degrees counterclockwise
// in PDF user space (Y up): Rotate(90) maps (1,0) to (0,1). Exact multiples of 90 (within rotateSnapThreshold)
// produce exact integer coefficients with no trig drift.
func Rotate(degrees float64) Matrix {
	norm := math.Mod(degrees, 360)
	if norm < 0 {
		norm += 360
	}
	quarter := norm / 90
	if frac := quarter - math.Round(quarter); math.Abs(frac) < rotateSnapThreshold {
		switch int(math.Round(quarter)) % 4 {
		case 0:
			return Identity
		case 1:
			return Matrix{A: 0, B: 1, C: -1, D: 0}
		case 2:
			return Matrix{A: -1, B: 0, C: 0, D: -1}
		case 3:
			return Matrix{A: 0, B: -1, C: 1, D: 0}
		}
	}
	rad := norm * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Scale returns a matrix that scales by (sx, sy).
func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Translate returns a matrix that translates by (dx, dy).
func Translate(dx, dy float64) Matrix {
	return Matrix{A: 1, D: 1, E: dx, F: dy}
}

// Concat returns the matrix that applies a first, then b
// (row-vector convention: p' = p . a . b).
func Concat(a, b Matrix) Matrix {
	return Matrix{
		A: a.A*b.A + a.B*b.C,
		B: a.A*b.B + a.B*b.D,
		C: a.C*b.A + a.D*b.C,
		D: a.C*b.B + a.D*b.D,
		E: a.E*b.A + a.F*b.C + b.E,
		F: a.E*b.B + a.F*b.D + b.F,
	}
}

// Concat returns m.Concat(other) — apply m first, then other.
func (m Matrix) Concat(other Matrix) Matrix {
	return Concat(m, other)
}

// Det returns the determinant of the linear part of m.
func (m Matrix) Det() float64 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the inverse of m. ok is false iff det(m) == 0.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Det()
	if det == 0 {
		return Identity, false
	}
	invDet := 1 / det
	inv = Matrix{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
	}
	inv.E = -(m.E*inv.A + m.F*inv.C)
	inv.F = -(m.E*inv.B + m.F*inv.D)
	return inv, true
}
