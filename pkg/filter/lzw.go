package filter

import (
	"bytes"
	"io"

	"github.com/hhrutter/lzw"
	"github.com/pkg/errors"
)

// lzwCodec implements the PDF variant of LZW, honoring the
// EarlyChange parameter (default 1) that compress/lzw cannot express,
// using github.com/hhrutter/lzw the way pdfcpu's pkg/filter does.
type lzwCodec struct {
	parms Params
}

func (f lzwCodec) earlyChange() bool {
	ec, ok := f.parms["EarlyChange"]
	if !ok {
		return true
	}
	return ec == 1
}

func (f lzwCodec) Encode(r io.Reader) (*bytes.Buffer, error) {
	var b bytes.Buffer
	w := lzw.NewWriter(&b, f.earlyChange())
	defer w.Close()
	if _, err := io.Copy(w, r); err != nil {
		return nil, err
	}
	return &b, nil
}

func (f lzwCodec) Decode(r io.Reader) (*bytes.Buffer, error) {
	if p, found := f.parms["Predictor"]; found && p > 1 {
		decoded, err := f.decodeRaw(r)
		if err != nil {
			return nil, err
		}
		return applyPredictor(decoded.Bytes(), f.parms, p)
	}
	return f.decodeRaw(r)
}

func (f lzwCodec) decodeRaw(r io.Reader) (*bytes.Buffer, error) {
	rc := lzw.NewReader(r, f.earlyChange())
	defer rc.Close()
	var b bytes.Buffer
	if _, err := io.Copy(&b, rc); err != nil {
		return nil, errors.Wrap(err, "micropdf: LZWDecode")
	}
	return &b, nil
}
