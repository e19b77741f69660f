package filter

import (
	"bytes"
	"compress/zlib"
	"crypto/rand"
	"testing"
)

func roundTrip(t *testing.T, name string, parms Params, data []byte) []byte {
	t.Helper()
	codec, err := New(name, parms)
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	enc, err := codec.Encode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Encode(%s): %v", name, err)
	}
	dec, err := codec.Decode(bytes.NewReader(enc.Bytes()))
	if err != nil {
		t.Fatalf("Decode(%s): %v", name, err)
	}
	return dec.Bytes()
}

func TestRoundTripBinarySafeFilters(t *testing.T) {
	data := make([]byte, 2048)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{ASCII85, ASCIIHex, RunLength, LZW, Flate} {
		got := roundTrip(t, name, Params{}, data)
		if !bytes.Equal(got, data) {
			t.Errorf("%s: round trip mismatch (got %d bytes, want %d)", name, len(got), len(data))
		}
	}
}

func TestUnsupportedFilterReturnsSentinel(t *testing.T) {
	if _, err := New(JBIG2, nil); err != ErrUnsupportedFilter {
		t.Fatalf("New(JBIG2) err = %v, want ErrUnsupportedFilter", err)
	}
}

func TestFlateDecodeRejectsBadHeader(t *testing.T) {
	codec, _ := New(Flate, Params{})
	if _, err := codec.Decode(bytes.NewReader([]byte("not zlib"))); err == nil {
		t.Fatal("expected error decoding non-zlib data")
	}
}

func TestFlateWithPNGUpPredictor(t *testing.T) {
	// 2 rows x 3 bytes, PNGUp filter tag, over Colors=3 BitsPerComponent=8 Columns=1.
	row0 := []byte{0x02, 10, 20, 30} // tag=Up
	row1 := []byte{0x02, 1, 1, 1}    // tag=Up: cumulative add of row0
	raw := append(append([]byte{}, row0...), row1...)

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(raw)
	zw.Close()

	codec, _ := New(Flate, Params{"Predictor": PredictorUp, "Colors": 3, "BitsPerComponent": 8, "Columns": 1})
	out, err := codec.Decode(bytes.NewReader(z.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{10, 20, 30, 11, 21, 31}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("predictor output = %v, want %v", out.Bytes(), want)
	}
}

func TestRunLengthDecodeMissingEODIsError(t *testing.T) {
	codec, _ := New(RunLength, nil)
	if _, err := codec.Decode(bytes.NewReader([]byte{0x00, 'A'})); err == nil {
		t.Fatal("expected error for missing EOD marker")
	}
}
