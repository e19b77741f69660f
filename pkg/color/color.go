// Package color implements the Colorspace family of spec.md §3/§4.8:
// component-count-aware color spaces and their conversion to a
// device's RGB boundary. It follows pdfcpu's pkg/pdfcpu read-side
// colorspace resolution (the /ColorSpace resource dict's family tags)
// but adds the RGB conversion math a rendering core needs and the
// teacher's write-only library does not.
package color

import "math"

// Family identifies a Colorspace's PDF family, per spec.md §3.
type Family int

const (
	DeviceGray Family = iota
	DeviceRGB
	DeviceCMYK
	CalGray
	CalRGB
	Lab
	ICCBased
	Indexed
	Pattern
	Separation
	DeviceN
)

func (f Family) String() string {
	names := [...]string{
		"DeviceGray", "DeviceRGB", "DeviceCMYK", "CalGray", "CalRGB",
		"Lab", "ICCBased", "Indexed", "Pattern", "Separation", "DeviceN",
	}
	if int(f) < len(names) {
		return names[f]
	}
	return "Unknown"
}

// Colorspace is a shared, immutable color space description. N is the
// number of color components a Color value for this space carries
// (the "component count" spec.md §3 names).
type Colorspace struct {
	Family Family
	N      int

	// Base is the underlying space for Indexed/Separation/DeviceN,
	// nil otherwise.
	Base *Colorspace
	// Lookup is the Indexed palette: N(Base) bytes per table entry.
	Lookup []byte
	// HiVal is the Indexed space's highest valid index.
	HiVal int
	// WhitePoint/Range are Lab's tristimulus parameters.
	WhitePoint [3]float64
	Range      [4]float64
}

// Gray, RGB and CMYK are the three constant Device colorspaces;
// they're safe to share since a Colorspace is immutable once built.
var (
	Gray = &Colorspace{Family: DeviceGray, N: 1}
	RGB  = &Colorspace{Family: DeviceRGB, N: 3}
	CMYK = &Colorspace{Family: DeviceCMYK, N: 4}
)

// NewIndexed builds an Indexed colorspace over base with hival entries
// (0..hival inclusive) and the given raw lookup table.
func NewIndexed(base *Colorspace, hival int, lookup []byte) *Colorspace {
	return &Colorspace{Family: Indexed, N: 1, Base: base, Lookup: lookup, HiVal: hival}
}

// NewSeparation builds a Separation/DeviceN colorspace: n named
// colorants mapped through a tint-transform function onto base. The
// transform itself is a PDF Function object, resolved and evaluated
// by the caller (pkg/content); this type only records the arity and
// alternate space so pixel conversion has somewhere to land.
func NewSeparation(n int, base *Colorspace) *Colorspace {
	family := Separation
	if n > 1 {
		family = DeviceN
	}
	return &Colorspace{Family: family, N: n, Base: base}
}

// NewLab builds a CIE L*a*b* colorspace with the given white point
// and component range (amin,amax,bmin,bmax).
func NewLab(whitePoint [3]float64, rng [4]float64) *Colorspace {
	return &Colorspace{Family: Lab, N: 3, WhitePoint: whitePoint, Range: rng}
}

// Default returns the number of components a comp slice must have to
// be valid for cs — the identity for every family except Indexed,
// which always normalizes through a single index component.
func (cs *Colorspace) Components() int {
	if cs == nil {
		return 1
	}
	return cs.N
}

// ToRGB converts comps (already normalized to [0,1] per spec.md §3's
// device-boundary rule, except Indexed whose single component is a
// raw palette index) into an RGB triple in [0,1].
func (cs *Colorspace) ToRGB(comps []float64) [3]float64 {
	if cs == nil {
		return grayToRGB(clamp01(first(comps)))
	}
	switch cs.Family {
	case DeviceGray, CalGray:
		return grayToRGB(clamp01(first(comps)))
	case DeviceRGB, CalRGB:
		return clampRGB(comps)
	case DeviceCMYK:
		return cmykToRGB(comps)
	case Lab:
		return labToRGB(comps, cs.WhitePoint)
	case Indexed:
		return cs.indexedToRGB(comps)
	case Separation, DeviceN:
		// Without the tint-transform function evaluated, approximate
		// by treating the first colorant as subtractive ink coverage
		// over white, the same fallback pdfcpu's validator uses when
		// it only needs a representative preview color.
		t := clamp01(first(comps))
		return [3]float64{1 - t, 1 - t, 1 - t}
	case ICCBased:
		// No ICC profile engine; fall back to the component count's
		// natural Device space, matching pdfcpu's own ICCBased
		// handling (it reads N and otherwise defers to Device*).
		switch cs.N {
		case 1:
			return grayToRGB(clamp01(first(comps)))
		case 4:
			return cmykToRGB(comps)
		default:
			return clampRGB(comps)
		}
	default:
		return clampRGB(comps)
	}
}

func first(c []float64) float64 {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRGB(c []float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3 && i < len(c); i++ {
		out[i] = clamp01(c[i])
	}
	return out
}

func grayToRGB(g float64) [3]float64 {
	return [3]float64{g, g, g}
}

func cmykToRGB(c []float64) [3]float64 {
	var cc, m, y, k float64
	if len(c) >= 4 {
		cc, m, y, k = clamp01(c[0]), clamp01(c[1]), clamp01(c[2]), clamp01(c[3])
	}
	return [3]float64{
		(1 - cc) * (1 - k),
		(1 - m) * (1 - k),
		(1 - y) * (1 - k),
	}
}

// indexedToRGB treats comps[0] as a raw palette index (not normalized
// to [0,1], per spec.md's note that Indexed is the one family whose
// component is resolved against a lookup table rather than scaled).
func (cs *Colorspace) indexedToRGB(comps []float64) [3]float64 {
	if cs.Base == nil || len(comps) == 0 {
		return [3]float64{}
	}
	idx := int(comps[0])
	if idx < 0 {
		idx = 0
	}
	if idx > cs.HiVal {
		idx = cs.HiVal
	}
	n := cs.Base.Components()
	start := idx * n
	if start+n > len(cs.Lookup) {
		return [3]float64{}
	}
	base := make([]float64, n)
	for i := 0; i < n; i++ {
		base[i] = float64(cs.Lookup[start+i]) / 255
	}
	return cs.Base.ToRGB(base)
}

// labToRGB implements the standard CIE L*a*b* -> CIE XYZ -> linear
// sRGB -> gamma-encoded sRGB pipeline, per spec.md's Lab entry (N=3,
// components normalized to the space's declared Range/whitepoint).
func labToRGB(comps []float64, wp [3]float64) [3]float64 {
	if len(comps) < 3 {
		return [3]float64{}
	}
	l, a, b := comps[0], comps[1], comps[2]
	if wp == [3]float64{} {
		wp = [3]float64{0.9505, 1.0, 1.089} // D65
	}

	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	x := wp[0] * labInv(fx)
	y := wp[1] * labInv(fy)
	z := wp[2] * labInv(fz)

	r := 3.2406*x - 1.5372*y - 0.4986*z
	g := -0.9689*x + 1.8758*y + 0.0415*z
	bl := 0.0557*x - 0.2040*y + 1.0570*z

	return [3]float64{gammaEncode(r), gammaEncode(g), gammaEncode(bl)}
}

func labInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

func gammaEncode(c float64) float64 {
	c = clamp01(c)
	if c <= 0.0031308 {
		return clamp01(12.92 * c)
	}
	return clamp01(1.055*math.Pow(c, 1/2.4) - 0.055)
}
