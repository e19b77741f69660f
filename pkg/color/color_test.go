package color

import "testing"

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestDeviceGrayToRGB(t *testing.T) {
	got := Gray.ToRGB([]float64{0.5})
	want := [3]float64{0.5, 0.5, 0.5}
	if got != want {
		t.Fatalf("Gray.ToRGB(0.5) = %v, want %v", got, want)
	}
}

func TestDeviceRGBClampsOutOfRange(t *testing.T) {
	got := RGB.ToRGB([]float64{1.5, -0.2, 0.4})
	want := [3]float64{1, 0, 0.4}
	if got != want {
		t.Fatalf("RGB.ToRGB clamp = %v, want %v", got, want)
	}
}

func TestDeviceCMYKBlackAndWhite(t *testing.T) {
	black := CMYK.ToRGB([]float64{0, 0, 0, 1})
	if black != (([3]float64{0, 0, 0})) {
		t.Fatalf("CMYK black = %v, want {0,0,0}", black)
	}
	white := CMYK.ToRGB([]float64{0, 0, 0, 0})
	if white != (([3]float64{1, 1, 1})) {
		t.Fatalf("CMYK white = %v, want {1,1,1}", white)
	}
}

func TestIndexedLookup(t *testing.T) {
	lookup := []byte{
		255, 0, 0, // index 0: red
		0, 255, 0, // index 1: green
	}
	idx := NewIndexed(RGB, 1, lookup)
	if idx.Components() != 1 {
		t.Fatalf("Indexed.Components() = %d, want 1", idx.Components())
	}
	got := idx.ToRGB([]float64{1})
	want := [3]float64{0, 1, 0}
	if got != want {
		t.Fatalf("Indexed.ToRGB(1) = %v, want %v", got, want)
	}
}

func TestIndexedClampsOutOfRangeIndex(t *testing.T) {
	lookup := []byte{255, 0, 0, 0, 255, 0}
	idx := NewIndexed(RGB, 1, lookup)
	got := idx.ToRGB([]float64{99})
	want := [3]float64{0, 1, 0} // clamped to HiVal=1
	if got != want {
		t.Fatalf("out-of-range index = %v, want clamped %v", got, want)
	}
}

func TestSeparationArityPicksDeviceNFamily(t *testing.T) {
	sep := NewSeparation(1, CMYK)
	if sep.Family != Separation {
		t.Fatalf("NewSeparation(1, ...) family = %v, want Separation", sep.Family)
	}
	devN := NewSeparation(3, CMYK)
	if devN.Family != DeviceN {
		t.Fatalf("NewSeparation(3, ...) family = %v, want DeviceN", devN.Family)
	}
}

func TestLabWhiteRoundTrips(t *testing.T) {
	lab := NewLab([3]float64{0.9505, 1.0, 1.089}, [4]float64{-100, 100, -100, 100})
	got := lab.ToRGB([]float64{100, 0, 0})
	for i, c := range got {
		if !approxEqual(c, 1, 0.01) {
			t.Fatalf("Lab white component %d = %v, want ~1", i, c)
		}
	}
}

func TestNilColorspaceDefaultsToGray(t *testing.T) {
	var cs *Colorspace
	if cs.Components() != 1 {
		t.Fatalf("nil Colorspace.Components() = %d, want 1", cs.Components())
	}
	got := cs.ToRGB([]float64{0.25})
	want := [3]float64{0.25, 0.25, 0.25}
	if got != want {
		t.Fatalf("nil Colorspace.ToRGB = %v, want %v", got, want)
	}
}

func TestFamilyString(t *testing.T) {
	if DeviceRGB.String() != "DeviceRGB" {
		t.Fatalf("DeviceRGB.String() = %q", DeviceRGB.String())
	}
	if Family(999).String() != "Unknown" {
		t.Fatalf("out-of-range Family.String() = %q, want Unknown", Family(999).String())
	}
}
