package draw

import (
	"testing"

	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
	"github.com/Lexmata/micropdf-sub000/pkg/device"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/path"
	"github.com/Lexmata/micropdf-sub000/pkg/pixmap"
)

func newTestDevice(w, h int) (*Device, *pixmap.Pixmap) {
	px := pixmap.New(w, h, pdfcolor.RGB, false)
	px.Clear(0xff)
	return New(px, AAHigh), px
}

func TestFillPathPaintsInsideRect(t *testing.T) {
	d, px := newTestDevice(10, 10)
	p := path.New()
	p.AppendRect(geom.Rect{X0: 2, Y0: 2, X1: 8, Y1: 8})
	d.FillPath(p, false, geom.Identity, device.Color{Space: pdfcolor.RGB, Comps: []float64{0, 0, 0}}, 1)

	r, g, b, _ := px.RGBA8At(5, 5)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("center pixel = (%d,%d,%d), want black", r, g, b)
	}
	r, g, b, _ = px.RGBA8At(0, 0)
	if r != 0xff || g != 0xff || b != 0xff {
		t.Fatalf("corner pixel outside fill = (%d,%d,%d), want white (untouched)", r, g, b)
	}
}

func TestClipPathRestrictsSubsequentFill(t *testing.T) {
	d, px := newTestDevice(10, 10)
	clip := path.New()
	clip.AppendRect(geom.Rect{X0: 0, Y0: 0, X1: 5, Y1: 10})
	d.ClipPath(clip, false, geom.Identity)

	full := path.New()
	full.AppendRect(geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10})
	d.FillPath(full, false, geom.Identity, device.Color{Space: pdfcolor.RGB, Comps: []float64{0, 0, 0}}, 1)

	// Inside the clip region: painted black.
	r, _, _, _ := px.RGBA8At(2, 5)
	if r != 0 {
		t.Fatalf("pixel inside clip = %d, want 0 (painted)", r)
	}
	// Outside the clip region: untouched white.
	r, _, _, _ = px.RGBA8At(8, 5)
	if r != 0xff {
		t.Fatalf("pixel outside clip = %d, want 255 (unpainted)", r)
	}
}

func TestPopClipRestoresPreviousClip(t *testing.T) {
	d, px := newTestDevice(10, 10)
	clip := path.New()
	clip.AppendRect(geom.Rect{X0: 0, Y0: 0, X1: 5, Y1: 10})
	d.ClipPath(clip, false, geom.Identity)
	d.PopClip()

	full := path.New()
	full.AppendRect(geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10})
	d.FillPath(full, false, geom.Identity, device.Color{Space: pdfcolor.RGB, Comps: []float64{0, 0, 0}}, 1)

	r, _, _, _ := px.RGBA8At(8, 5)
	if r != 0 {
		t.Fatalf("pixel outside the popped clip = %d, want 0 (clip no longer restricts)", r)
	}
}

func TestPopClipOnEmptyStackIsNoop(t *testing.T) {
	d, _ := newTestDevice(4, 4)
	d.PopClip() // must not panic or underflow the base full-page clip
	if len(d.clipStack) != 1 {
		t.Fatalf("clipStack length after popping the base clip = %d, want 1", len(d.clipStack))
	}
}

func TestApplyBlendMultiplyBlackIsBlack(t *testing.T) {
	got := applyBlend(device.BlendMultiply, [3]float64{1, 1, 1}, [3]float64{0, 0, 0})
	if got != (([3]float64{0, 0, 0})) {
		t.Fatalf("Multiply(white, black) = %v, want black", got)
	}
}

func TestApplyBlendNormalReturnsSource(t *testing.T) {
	src := [3]float64{0.2, 0.4, 0.6}
	got := applyBlend(device.BlendNormal, [3]float64{0.9, 0.9, 0.9}, src)
	if got != src {
		t.Fatalf("Normal blend = %v, want source %v unchanged", got, src)
	}
}

func TestApplyBlendScreenWhiteStaysWhite(t *testing.T) {
	got := applyBlend(device.BlendScreen, [3]float64{1, 1, 1}, [3]float64{0.5, 0.5, 0.5})
	if got != (([3]float64{1, 1, 1})) {
		t.Fatalf("Screen(white, anything) = %v, want white", got)
	}
}

func TestApplyBlendLuminosityPreservesBackdropHue(t *testing.T) {
	cb := [3]float64{1, 0, 0} // red backdrop
	cs := [3]float64{0, 0, 0} // black source, luminosity 0
	got := applyBlend(device.BlendLuminosity, cb, cs)
	// Luminosity blend keeps backdrop hue/sat but source luminosity;
	// a black source luminosity should darken the result toward black.
	if got[0] >= cb[0] {
		t.Fatalf("Luminosity with a darker source luminosity did not darken: got %v from backdrop %v", got, cb)
	}
}

func TestFillImageMaskPaintsOnlySetBits(t *testing.T) {
	d, px := newTestDevice(4, 4)
	img := device.Image{Width: 2, Height: 2, Samples: []byte{1, 0, 0, 1}}
	d.FillImageMask(img, geom.Scale(4, 4), device.Color{Space: pdfcolor.RGB, Comps: []float64{0, 0, 0}}, 1)
	// At least one pixel should have been painted black, and not all of
	// them (the mask has both set and unset samples).
	var painted, unpainted int
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, _, _, _ := px.RGBA8At(x, y)
			if r == 0 {
				painted++
			} else {
				unpainted++
			}
		}
	}
	if painted == 0 || unpainted == 0 {
		t.Fatalf("expected a mix of painted/unpainted pixels, got painted=%d unpainted=%d", painted, unpainted)
	}
}
