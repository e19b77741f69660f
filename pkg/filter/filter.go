// Package filter implements the PDF stream filter chain: Flate, LZW,
// ASCII85, ASCIIHex, RunLength and the PNG/TIFF Predictor
// post-processing step, following pdfcpu's pkg/filter (same filter
// name constants, same Predictor algorithm constants and PNG row
// filter maths) adapted to wrap pstream.Stream instead of io.Reader so
// a chain of filters is itself a Stream, per spec.md §4.2-§4.3.
package filter

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/Lexmata/micropdf-sub000/pkg/log"
	"github.com/Lexmata/micropdf-sub000/pkg/pstream"
)

// Filter names as they appear in a stream dictionary's /Filter entry.
const (
	ASCII85   = "ASCII85Decode"
	ASCIIHex  = "ASCIIHexDecode"
	RunLength = "RunLengthDecode"
	LZW       = "LZWDecode"
	Flate     = "FlateDecode"
	CCITTFax  = "CCITTFaxDecode"
	JBIG2     = "JBIG2Decode"
	DCT       = "DCTDecode"
	JPX       = "JPXDecode"
	Brotli    = "BrotliDecode"
	Crypt     = "Crypt"
)

// ErrUnsupportedFilter signals an unsupported filter type, mapped to
// model.Unsupported at the document boundary.
var ErrUnsupportedFilter = errors.New("micropdf: filter not supported")

// Params is a stream's /DecodeParms dictionary, reduced to the integer
// parameters every built-in filter understands.
type Params map[string]int

// Codec decodes (and, where meaningful, encodes) one filter layer.
type Codec interface {
	Decode(r io.Reader) (*bytes.Buffer, error)
	Encode(r io.Reader) (*bytes.Buffer, error)
}

// New returns the Codec for filterName with the given parameters.
// Unrecognized/unavailable filters return ErrUnsupportedFilter — the
// caller surfaces this as model.Unsupported rather than failing the
// whole document open, per spec.md §4.3.
func New(filterName string, parms Params) (Codec, error) {
	switch filterName {
	case ASCII85:
		return ascii85Codec{}, nil
	case ASCIIHex:
		return asciiHexCodec{}, nil
	case RunLength:
		return runLengthCodec{}, nil
	case LZW:
		return lzwCodec{parms: parms}, nil
	case Flate:
		return flateCodec{parms: parms}, nil
	case CCITTFax, JBIG2, DCT, JPX, Brotli, Crypt:
		log.Info.Printf("filter not supported: <%s>", filterName)
		return nil, ErrUnsupportedFilter
	default:
		log.Info.Printf("filter not recognized: <%s>", filterName)
		return nil, ErrUnsupportedFilter
	}
}

// SupportedFilters lists filters with a full Decode implementation.
func SupportedFilters() []string {
	return []string{ASCII85, ASCIIHex, RunLength, LZW, Flate}
}

// Chain builds a decoding pstream.Stream from an ordered list of
// filter names/params pairs, each wrapping the previous stream exactly
// once, per spec.md §4.3 ("The chain is constructed from the stream
// dictionary's Filter/DecodeParms arrays in order").
func Chain(src *pstream.Stream, names []string, parms []Params) (*pstream.Stream, error) {
	if len(parms) != 0 && len(parms) != len(names) {
		return nil, errors.New("micropdf: filter: mismatched Filter/DecodeParms arity")
	}
	cur := src
	for i, name := range names {
		var p Params
		if i < len(parms) {
			p = parms[i]
		}
		codec, err := New(name, p)
		if err != nil {
			return nil, err
		}
		decoded, err := codec.Decode(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "micropdf: filter %s", name)
		}
		cur = pstream.OpenMemory(decoded.Bytes())
	}
	return cur, nil
}

func readAllInput(r io.Reader) ([]byte, error) {
	var b bytes.Buffer
	_, err := io.Copy(&b, r)
	return b.Bytes(), err
}
