package pixmap

import (
	"bytes"
	"image/png"
	"testing"

	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
)

func TestNewAllocatesStrideAndSamples(t *testing.T) {
	px := New(4, 3, pdfcolor.RGB, false)
	if px.Stride != 4*3 {
		t.Fatalf("Stride = %d, want %d", px.Stride, 4*3)
	}
	if len(px.Samples) != px.Stride*3 {
		t.Fatalf("len(Samples) = %d, want %d", len(px.Samples), px.Stride*3)
	}
}

func TestNewWithAlphaWidensStride(t *testing.T) {
	px := New(2, 2, pdfcolor.RGB, true)
	if px.Stride != 2*4 {
		t.Fatalf("Stride with alpha = %d, want %d", px.Stride, 2*4)
	}
}

func TestClearFillsEverySample(t *testing.T) {
	px := New(2, 2, pdfcolor.Gray, false)
	px.Clear(0xff)
	for i, b := range px.Samples {
		if b != 0xff {
			t.Fatalf("Samples[%d] = %#x, want 0xff", i, b)
		}
	}
}

func TestRGBA8AtRoundTripsRGB(t *testing.T) {
	px := New(1, 1, pdfcolor.RGB, false)
	px.SetRGBA8(0, 0, 10, 20, 30, 255)
	r, g, b, a := px.RGBA8At(0, 0)
	if r != 10 || g != 20 || b != 30 || a != 0xff {
		t.Fatalf("RGBA8At = (%d,%d,%d,%d), want (10,20,30,255)", r, g, b, a)
	}
}

func TestSetRGBA8RecordsAlphaChannel(t *testing.T) {
	px := New(1, 1, pdfcolor.RGB, true)
	px.SetRGBA8(0, 0, 1, 2, 3, 128)
	_, _, _, a := px.RGBA8At(0, 0)
	if a != 128 {
		t.Fatalf("alpha = %d, want 128", a)
	}
}

func TestSetRGBA8ConvertsToGray(t *testing.T) {
	px := New(1, 1, pdfcolor.Gray, false)
	px.SetRGBA8(0, 0, 90, 90, 90, 255)
	r, g, b, _ := px.RGBA8At(0, 0)
	if r != g || g != b {
		t.Fatalf("gray pixmap channels not equal: (%d,%d,%d)", r, g, b)
	}
}

func TestEncodePNGProducesValidPNG(t *testing.T) {
	px := New(2, 2, pdfcolor.RGB, false)
	px.Clear(0x80)
	data, err := px.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("decoded PNG size = %v, want 2x2", img.Bounds())
	}
}

func TestIndexedRGBA8AtUsesRawIndex(t *testing.T) {
	idx := pdfcolor.NewIndexed(pdfcolor.RGB, 1, []byte{255, 0, 0, 0, 255, 0})
	px := New(1, 1, idx, false)
	px.Samples[0] = 1 // raw index, not a scaled sample
	r, g, b, _ := px.RGBA8At(0, 0)
	if r != 0 || g != 0xff || b != 0 {
		t.Fatalf("Indexed RGBA8At(index=1) = (%d,%d,%d), want green", r, g, b)
	}
}
