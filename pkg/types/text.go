package types

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16BEDecoder decodes UTF-16BE PDF text strings — the format used
// whenever a /Info or /Names text value starts with the FE FF
// byte-order mark, per PDF 32000-1 7.9.2.2 — in place of a hand-rolled
// UTF-16 surrogate-pair table.
var utf16BEDecoder = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()

// DecodeTextString interprets b as a PDF text string: UTF-16BE with a
// leading BOM when present, otherwise PDFDocEncoding, approximated
// here by its Latin-1-compatible common subset (every printable ASCII
// byte maps to itself; this covers the overwhelming majority of
// metadata values observed in practice).
func DecodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		if out, err := utf16BEDecoder.Bytes(b); err == nil {
			return string(out)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
