package filter

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

type flateCodec struct {
	parms Params
}

func (f flateCodec) Encode(r io.Reader) (*bytes.Buffer, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Decode implements zlib inflation. A stream that ends early
// (io.ErrUnexpectedEOF: a truncated body or missing checksum) is
// always accepted and the bytes inflated so far are returned; there is
// no strict mode that rejects truncation.
func (f flateCodec) Decode(r io.Reader) (*bytes.Buffer, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "micropdf: FlateDecode: bad zlib header")
	}
	defer zr.Close()

	var b bytes.Buffer
	_, err = io.Copy(&b, zr)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "micropdf: FlateDecode")
	}
	return f.postProcess(&b)
}

func (f flateCodec) postProcess(b *bytes.Buffer) (*bytes.Buffer, error) {
	predictor, found := f.parms["Predictor"]
	if !found || predictor == PredictorNo {
		return b, nil
	}
	return applyPredictor(b.Bytes(), f.parms, predictor)
}
