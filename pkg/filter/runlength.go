package filter

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const eodRunLength = 0x80

type runLengthCodec struct{}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return errors.New("micropdf: RunLengthDecode: missing EOD marker")
	}
	return err
}

// Decode ends at byte 128 per spec.md §4.3.
func (runLengthCodec) Decode(r io.Reader) (*bytes.Buffer, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var out bytes.Buffer
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if b == eodRunLength {
			return &out, nil
		}
		if b < 0x80 {
			count := int(b) + 1
			for j := 0; j < count; j++ {
				c, err := br.ReadByte()
				if err != nil {
					return nil, unexpectedEOF(err)
				}
				out.WriteByte(c)
			}
			continue
		}
		count := 257 - int(b)
		c, err := br.ReadByte()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		for j := 0; j < count; j++ {
			out.WriteByte(c)
		}
	}
}

func (runLengthCodec) Encode(r io.Reader) (*bytes.Buffer, error) {
	p, err := readAllInput(r)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if len(p) == 0 {
		out.WriteByte(eodRunLength)
		return &out, nil
	}

	const maxLen = 0x80
	i, start := 0, 0
	b := p[0]
	for {
		for i < len(p) && p[i] == b && i-start < maxLen {
			i++
		}
		if c := i - start; c > 1 {
			out.WriteByte(byte(257 - c))
			out.WriteByte(b)
			if i == len(p) {
				out.WriteByte(eodRunLength)
				return &out, nil
			}
			b, start = p[i], i
			continue
		}

		for i < len(p) && p[i] != b && i-start < maxLen {
			b = p[i]
			i++
		}
		if i == len(p) || i-start == maxLen {
			c := i - start
			out.WriteByte(byte(c - 1))
			out.Write(p[start : start+c])
			if i == len(p) {
				out.WriteByte(eodRunLength)
				return &out, nil
			}
		} else {
			c := i - 1 - start
			out.WriteByte(byte(c - 1))
			out.Write(p[start : start+c])
			i--
		}
		b, start = p[i], i
	}
}
