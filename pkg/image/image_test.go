package image

import (
	"testing"

	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
)

func TestDecodeRaw8BitGray(t *testing.T) {
	d := &Descriptor{Width: 2, Height: 1, Bpc: 8, Colorspace: pdfcolor.Gray, Raw: []byte{10, 200}}
	px, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := px.At(0, 0)[0]; got != 10 {
		t.Fatalf("px(0,0) = %d, want 10", got)
	}
	if got := px.At(1, 0)[0]; got != 200 {
		t.Fatalf("px(1,0) = %d, want 200", got)
	}
}

func TestDecodeRawImageMaskUnpacksBits(t *testing.T) {
	d := &Descriptor{Width: 2, Height: 1, Bpc: 1, IsMask: true, Raw: []byte{0x80}}
	px, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := px.At(0, 0)[0]; got != 1 {
		t.Fatalf("masked pixel (0,0) = %d, want 1 (masked out)", got)
	}
	if got := px.At(1, 0)[0]; got != 0 {
		t.Fatalf("masked pixel (1,0) = %d, want 0 (painted)", got)
	}
}

func TestDecodeRawImageMaskDecodeInversion(t *testing.T) {
	d := &Descriptor{Width: 2, Height: 1, Bpc: 1, IsMask: true, Decode: []float64{1, 0}, Raw: []byte{0x80}}
	px, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := px.At(0, 0)[0]; got != 0 {
		t.Fatalf("inverted masked pixel (0,0) = %d, want 0", got)
	}
}

func TestDecodeIsIdempotent(t *testing.T) {
	d := &Descriptor{Width: 1, Height: 1, Bpc: 8, Colorspace: pdfcolor.Gray, Raw: []byte{42}}
	px1, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	px2, err := d.Decode()
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if px1 != px2 {
		t.Fatal("Decode did not cache and return the same Pixmap on a second call")
	}
}

func TestDecodeIndexedKeepsRawIndex(t *testing.T) {
	idx := pdfcolor.NewIndexed(pdfcolor.RGB, 255, make([]byte, 256*3))
	d := &Descriptor{Width: 1, Height: 1, Bpc: 8, Colorspace: idx, Raw: []byte{7}}
	px, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := px.At(0, 0)[0]; got != 7 {
		t.Fatalf("indexed sample = %d, want raw index 7", got)
	}
}

func TestJPXDecodeIsUnsupported(t *testing.T) {
	d := &Descriptor{Filter: FilterJPX}
	if _, err := d.Decode(); err == nil {
		t.Fatal("JPX Decode() should return an error")
	}
}
