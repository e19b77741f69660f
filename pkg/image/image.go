// Package image implements the Image entity of spec.md §3/§4.9: an
// /Image XObject's decoded sample data, lazily materialized into a
// pkg/pixmap.Pixmap exactly once. It follows pdfcpu's model/image.go
// for which codec handles which filter (stdlib image/jpeg for
// DCTDecode, github.com/hhrutter/tiff for the TIFF-shaped bitstream
// CCITTFaxDecode needs) but inverts the direction: the teacher only
// ever *writes* pixels into a PDF image stream, this package *reads*
// one back out.
package image

import (
	"bytes"
	"encoding/binary"
	stdimage "image"
	"image/jpeg"

	"github.com/hhrutter/tiff"
	"github.com/pkg/errors"

	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
	"github.com/Lexmata/micropdf-sub000/pkg/pixmap"
)

// Filter identifies the single image-specific filter (if any) still
// applied to Raw. With no image filter, Raw has been through the
// document's filter chain (pkg/model.DecodedStream); for DCT and CCITT
// data, pkg/content passes the stream's raw bytes, with no earlier
// filter of the chain removed.
type Filter int

const (
	FilterNone Filter = iota
	FilterDCT
	FilterCCITT
	FilterJPX
)

// Descriptor is an /Image XObject's metadata plus its still-encoded
// (for DCT/CCITT/JPX) or fully raw (for everything else) sample
// bytes. Decode() turns it into a Pixmap exactly once; repeat calls
// return the cached result, per spec.md §3's "lazy decode is
// idempotent" invariant.
type Descriptor struct {
	Width, Height int
	Bpc           int
	Colorspace    *pdfcolor.Colorspace
	IsMask        bool // /ImageMask true: 1bpc stencil, painted in the current fill color
	Decode        []float64
	Filter        Filter
	Raw           []byte

	// CCITT parameters (spec.md §4.9's "Image" entry: filter-specific
	// decode parameters travel with the descriptor).
	CCITTColumns     int
	CCITTRows        int
	CCITTK           int
	CCITTBlackIs1    bool
	CCITTByteAligned bool

	decoded *pixmap.Pixmap
}

// Decode materializes px exactly once, caching the result.
func (d *Descriptor) Decode() (*pixmap.Pixmap, error) {
	if d.decoded != nil {
		return d.decoded, nil
	}
	var px *pixmap.Pixmap
	var err error
	switch d.Filter {
	case FilterDCT:
		px, err = d.decodeDCT()
	case FilterCCITT:
		px, err = d.decodeCCITT()
	case FilterJPX:
		return nil, errors.New("micropdf: image: JPXDecode is not supported")
	default:
		px, err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	d.decoded = px
	return px, nil
}

// decodeDCT decodes a baseline/progressive JPEG via the standard
// library, per pdfcpu's own reliance on image/jpeg for DCT content.
func (d *Descriptor) decodeDCT() (*pixmap.Pixmap, error) {
	img, err := jpeg.Decode(bytes.NewReader(d.Raw))
	if err != nil {
		return nil, errors.Wrap(err, "micropdf: image: DCTDecode")
	}
	return pixmapFromImage(img, d.Colorspace), nil
}

// decodeCCITT wraps the raw CCITTFaxDecode bitstream in a minimal
// single-strip baseline TIFF container and hands it to
// github.com/hhrutter/tiff, the same decoder pdfcpu links for TIFF
// source images (model/image.go's tiff.DecodeAt), reused here in
// reverse: synthesizing just enough of a TIFF IFD for the library to
// recognize the G3/G4 bitstream it already knows how to unpack.
func (d *Descriptor) decodeCCITT() (*pixmap.Pixmap, error) {
	cols, rows := d.CCITTColumns, d.CCITTRows
	if cols == 0 {
		cols = d.Width
	}
	if rows == 0 {
		rows = d.Height
	}
	compression := uint16(4) // Group 4
	if d.CCITTK > 0 {
		compression = 2 // Group 3 2D — closest baseline tag for K>0
	} else if d.CCITTK == 0 {
		compression = 2 // Group 3 1D
	}
	photometric := uint16(0) // WhiteIsZero
	if d.CCITTBlackIs1 {
		photometric = 1 // BlackIsZero
	}

	tiffBytes := wrapCCITTAsTIFF(d.Raw, cols, rows, compression, photometric)
	img, err := tiff.DecodeAt(bytes.NewReader(tiffBytes), 0)
	if err != nil {
		return nil, errors.Wrap(err, "micropdf: image: CCITTFaxDecode")
	}
	return pixmapFromImage(img, d.Colorspace), nil
}

// wrapCCITTAsTIFF builds a minimal little-endian baseline TIFF: an
// 8-byte header, one IFD with the tags a single-strip image needs
// (ImageWidth, ImageLength, BitsPerSample, Compression,
// PhotometricInterpretation, StripOffsets, RowsPerStrip,
// StripByteCounts, SamplesPerPixel), and the fax bitstream as that
// one strip's data.
func wrapCCITTAsTIFF(fax []byte, cols, rows int, compression, photometric uint16) []byte {
	const numTags = 9
	const ifdStart = 8
	const tagBytes = 2 + 2 + 12*numTags + 4
	dataStart := ifdStart + tagBytes

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(ifdStart))

	binary.Write(&buf, binary.LittleEndian, uint16(numTags))

	writeTag := func(tag, typ uint16, count, value uint32) {
		binary.Write(&buf, binary.LittleEndian, tag)
		binary.Write(&buf, binary.LittleEndian, typ)
		binary.Write(&buf, binary.LittleEndian, count)
		binary.Write(&buf, binary.LittleEndian, value)
	}
	const (
		typeShort = 3
		typeLong  = 4
	)
	writeTag(256, typeLong, 1, uint32(cols))        // ImageWidth
	writeTag(257, typeLong, 1, uint32(rows))        // ImageLength
	writeTag(258, typeShort, 1, 1)                  // BitsPerSample
	writeTag(259, typeShort, 1, uint32(compression))
	writeTag(262, typeShort, 1, uint32(photometric))
	writeTag(273, typeLong, 1, uint32(dataStart))   // StripOffsets
	writeTag(277, typeShort, 1, 1)                  // SamplesPerPixel
	writeTag(278, typeLong, 1, uint32(rows))        // RowsPerStrip
	writeTag(279, typeLong, 1, uint32(len(fax)))    // StripByteCounts

	binary.Write(&buf, binary.LittleEndian, uint32(0)) // next IFD offset

	buf.Write(fax)
	return buf.Bytes()
}

// decodeRaw unpacks an already-filter-decoded (Flate/LZW/etc. or
// unfiltered) sample buffer directly into a Pixmap, expanding
// sub-byte bit depths (1/2/4 bpc) per PDF 32000-1 §8.9.5.2's
// row-padded-to-byte-boundary packing.
func (d *Descriptor) decodeRaw() (*pixmap.Pixmap, error) {
	cs := d.Colorspace
	if d.IsMask {
		cs = pdfcolor.Gray
	}
	px := pixmap.New(d.Width, d.Height, cs, false)
	n := cs.Components()
	rowBits := d.Width * n * d.Bpc
	rowBytes := (rowBits + 7) / 8

	maxVal := float64((uint32(1) << uint(d.Bpc)) - 1)
	for y := 0; y < d.Height; y++ {
		rowStart := y * rowBytes
		if rowStart+rowBytes > len(d.Raw) {
			break
		}
		row := d.Raw[rowStart : rowStart+rowBytes]
		br := bitReader{buf: row}
		for x := 0; x < d.Width; x++ {
			px8 := px.At(x, y)
			for c := 0; c < n; c++ {
				v := br.read(d.Bpc)
				var sample byte
				switch {
				case d.IsMask:
					// 1 = masked out, 0 = paint, per PDF 32000-1 §8.9.6.2,
					// unless Decode inverts it ([1 0]).
					sample = byte(v)
					if len(d.Decode) == 2 && d.Decode[0] == 1 {
						sample = byte(1 - v)
					}
				case cs.Family == pdfcolor.Indexed:
					// Indexed samples are raw palette indices, stored
					// byte-for-byte — never rescaled to 0..255.
					sample = byte(v)
				case d.Bpc == 8:
					sample = byte(v)
				default:
					sample = byte(float64(v) / maxVal * 255)
				}
				px8[c] = sample
			}
		}
	}
	return px, nil
}

// bitReader reads successive n-bit big-endian fields from buf.
type bitReader struct {
	buf    []byte
	bitPos int
}

func (r *bitReader) read(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.bitPos / 8
		bitIdx := 7 - (r.bitPos % 8)
		var bit uint32
		if byteIdx < len(r.buf) {
			bit = uint32(r.buf[byteIdx]>>uint(bitIdx)) & 1
		}
		v = v<<1 | bit
		r.bitPos++
	}
	return v
}

// pixmapFromImage copies a decoded stdlib/tiff image.Image into a
// Pixmap, converting through the image's native color model.
func pixmapFromImage(img stdimage.Image, cs *pdfcolor.Colorspace) *pixmap.Pixmap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if cs == nil {
		cs = pdfcolor.RGB
	}
	px := pixmap.New(w, h, pdfcolor.RGB, false)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px.SetRGBA8(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8), 0xff)
		}
	}
	return px
}
