package filter

import (
	"bytes"
	"encoding/ascii85"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const eodASCII85 = "~>"

type ascii85Codec struct{}

func (ascii85Codec) Encode(r io.Reader) (*bytes.Buffer, error) {
	p, err := readAllInput(r)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	enc := ascii85.NewEncoder(&b)
	enc.Write(p)
	enc.Close()
	b.WriteString(eodASCII85)
	return &b, nil
}

// Decode tolerates interspersed whitespace and ends at the "~>" marker
// per spec.md §4.3.
func (ascii85Codec) Decode(r io.Reader) (*bytes.Buffer, error) {
	p, err := readAllInput(r)
	if err != nil {
		return nil, err
	}
	if idx := bytes.Index(p, []byte(eodASCII85)); idx >= 0 {
		p = p[:idx]
	}
	var clean bytes.Buffer
	for _, c := range p {
		if c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20 {
			continue
		}
		clean.WriteByte(c)
	}
	dec := ascii85.NewDecoder(bytes.NewReader(clean.Bytes()))
	var out bytes.Buffer
	if _, err := io.Copy(&out, dec); err != nil && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "micropdf: ASCII85Decode")
	}
	return &out, nil
}

const eodASCIIHex = '>'

type asciiHexCodec struct{}

func (asciiHexCodec) Encode(r io.Reader) (*bytes.Buffer, error) {
	p, err := readAllInput(r)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, hex.EncodedLen(len(p)))
	hex.Encode(dst, p)
	dst = append(dst, eodASCIIHex)
	return bytes.NewBuffer(dst), nil
}

// Decode tolerates whitespace and ends at the '>' marker per spec.md §4.3.
func (asciiHexCodec) Decode(r io.Reader) (*bytes.Buffer, error) {
	p, err := readAllInput(r)
	if err != nil {
		return nil, err
	}
	var digits []byte
	for _, c := range p {
		if c == eodASCIIHex {
			break
		}
		if c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20 {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	dst := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(dst, digits); err != nil {
		return nil, errors.Wrap(err, "micropdf: ASCIIHexDecode")
	}
	return bytes.NewBuffer(dst), nil
}
