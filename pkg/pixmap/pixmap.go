// Package pixmap implements the Pixmap type of spec.md §3: a
// rectangular sample buffer in a given colorspace, optionally with
// alpha, plus PNG encoding. It follows pdfcpu's writeImage.go choice
// of color-type-by-colorspace when emitting raster output, adapted
// from a write-only helper into the draw device's render target.
package pixmap

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/pkg/errors"

	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
)

// Pixmap is a rectangular buffer of samples in Colorspace, optionally
// carrying an alpha channel, per spec.md §3's invariants: stride is at
// least width*(N+alpha) and Samples has exactly stride*height bytes.
type Pixmap struct {
	Width, Height int
	Stride        int
	Colorspace    *pdfcolor.Colorspace
	Alpha         bool
	X, Y          int // origin, for pixmaps representing a sub-region
	Samples       []byte
}

// New allocates a zeroed Pixmap of the given size and colorspace.
func New(width, height int, cs *pdfcolor.Colorspace, alpha bool) *Pixmap {
	n := cs.Components()
	comps := n
	if alpha {
		comps++
	}
	stride := width * comps
	return &Pixmap{
		Width:      width,
		Height:     height,
		Stride:     stride,
		Colorspace: cs,
		Alpha:      alpha,
		Samples:    make([]byte, stride*height),
	}
}

// components returns the per-pixel sample count including alpha.
func (p *Pixmap) components() int {
	n := p.Colorspace.Components()
	if p.Alpha {
		n++
	}
	return n
}

// At returns the raw sample bytes for pixel (x,y), a components()-long
// slice sharing the Pixmap's backing array.
func (p *Pixmap) At(x, y int) []byte {
	n := p.components()
	off := y*p.Stride + x*n
	return p.Samples[off : off+n]
}

// Clear fills every sample with v (0 for black/transparent, 0xff for
// white/opaque, depending on colorspace polarity).
func (p *Pixmap) Clear(v byte) {
	for i := range p.Samples {
		p.Samples[i] = v
	}
}

// RGBA64At converts pixel (x,y) to straight (non-premultiplied)
// 8-bit-per-channel RGBA, via the pixmap's colorspace conversion.
func (p *Pixmap) RGBA8At(x, y int) (r, g, b, a uint8) {
	px := p.At(x, y)
	n := p.Colorspace.Components()
	comps := make([]float64, n)
	for i := 0; i < n; i++ {
		comps[i] = float64(px[i]) / 255
	}
	if p.Colorspace.Family == pdfcolor.Indexed {
		comps[0] = float64(px[0])
	}
	rgb := p.Colorspace.ToRGB(comps)
	alpha := uint8(0xff)
	if p.Alpha {
		alpha = px[n]
	}
	return f2b(rgb[0]), f2b(rgb[1]), f2b(rgb[2]), alpha
}

func f2b(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}

// image converts the Pixmap into a stdlib image.Image for PNG
// encoding, choosing NRGBA when alpha is present and RGBA (opaque) PNG
// output otherwise, mirroring pdfcpu's writeImage.go color-type choice
// by colorspace/alpha.
func (p *Pixmap) image() image.Image {
	bounds := image.Rect(0, 0, p.Width, p.Height)
	if p.Alpha {
		img := image.NewNRGBA(bounds)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				r, g, b, a := p.RGBA8At(x, y)
				img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
			}
		}
		return img
	}
	img := image.NewRGBA(bounds)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			r, g, b, _ := p.RGBA8At(x, y)
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return img
}

// EncodePNG writes the pixmap as a PNG, per spec.md §6's "Pixmaps...
// PNG (color-type chosen by pixmap's colorspace/alpha)".
func (p *Pixmap) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.image()); err != nil {
		return nil, errors.Wrap(err, "micropdf: pixmap: PNG encode")
	}
	return buf.Bytes(), nil
}

// SetRGBA8 writes an opaque or translucent RGBA sample directly into
// an RGB or RGBA pixmap, for devices compositing in RGB regardless of
// the pixmap's final colorspace.
func (p *Pixmap) SetRGBA8(x, y int, r, g, b, a uint8) {
	px := p.At(x, y)
	switch p.Colorspace.Family {
	case pdfcolor.DeviceGray, pdfcolor.CalGray:
		px[0] = byte((int(r) + int(g) + int(b)) / 3)
	case pdfcolor.DeviceCMYK:
		c, m, y2, k := rgbToCMYK(r, g, b)
		px[0], px[1], px[2], px[3] = c, m, y2, k
	default:
		px[0], px[1], px[2] = r, g, b
	}
	if p.Alpha {
		px[len(px)-1] = a
	}
}

func rgbToCMYK(r, g, b uint8) (c, m, y, k uint8) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	kf := 1 - maxf(rf, gf, bf)
	if kf >= 1 {
		return 0, 0, 0, 255
	}
	cf := (1 - rf - kf) / (1 - kf)
	mf := (1 - gf - kf) / (1 - kf)
	yf := (1 - bf - kf) / (1 - kf)
	return f2b(cf), f2b(mf), f2b(yf), f2b(kf)
}

func maxf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
