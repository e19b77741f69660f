// Package pdfont implements the Font entity of spec.md §3/§4.7: simple
// (Type1/TrueType/Type3) and composite (Type0/CID) font resolution,
// code-to-glyph decoding, and glyph widths. pdfcpu's own font package
// is write-only (it embeds fonts; it never needs to decode a content
// stream's string operands against an arbitrary font resource), so the
// decode/width logic here is built directly from the PDF 32000-1 font
// model, reusing pkg/lex to tokenize embedded CMap streams the same
// way pkg/parse tokenizes content streams.
package pdfont

import (
	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// Subtype identifies a Font dict's /Subtype.
type Subtype int

const (
	Type1 Subtype = iota
	TrueType
	Type3
	Type0
	MMType1
)

// Code is one decoded character code from a string-showing operand,
// still in the font's own code space (not yet mapped to Unicode).
type Code struct {
	Code uint32
	// Bytes is how many bytes of the source string this code consumed.
	Bytes int
}

// Font is a resolved font resource: enough of the Font/FontDescriptor/
// CIDFont/Encoding/CMap dictionaries to decode strings, look up
// advance widths, and recover the Unicode text a code represents.
type Font struct {
	Subtype  Subtype
	BaseFont string

	// Simple-font fields (Type1/TrueType/Type3).
	firstChar   int
	widths      []float64 // widths[code-firstChar], in glyph space /1000
	missingW    float64
	diffNames   map[int]string // /Encoding /Differences code -> glyph name

	// Type3 fields.
	fontMatrix  [6]float64
	charProcs   map[string]types.Object

	// Composite-font fields (Type0).
	twoByteCIDs bool // Identity-H/V or a 2-byte Encoding CMap
	cidWidths   map[int]float64
	defaultW    float64
	cidToGID    map[int]int // nil means Identity (CID==GID)

	toUnicode *cmap
}

// DefaultMissingWidth is used when neither /MissingWidth nor a CID
// font's /DW is present, per PDF 32000-1 Table 112's implied default.
const DefaultMissingWidth = 0

// Load resolves fontDict (already dereferenced) into a Font. resolve
// is the document's indirect-object resolver, passed in rather than a
// *model.Document to keep pkg/pdfont independent of pkg/model (avoiding
// an import cycle, since pkg/model never needs to know about fonts).
type Resolver func(obj types.Object) (types.Object, error)

func Load(fontDict types.Dict, resolve Resolver) (*Font, error) {
	f := &Font{fontMatrix: [6]float64{0.001, 0, 0, 0.001, 0, 0}}

	subtype, _ := fontDict.NameValue("Subtype")
	if bf, ok := fontDict.NameValue("BaseFont"); ok {
		f.BaseFont = string(bf)
	}

	switch subtype {
	case "Type0":
		f.Subtype = Type0
		if err := f.loadType0(fontDict, resolve); err != nil {
			return nil, err
		}
	case "Type3":
		f.Subtype = Type3
		f.loadSimple(fontDict, resolve)
		f.loadType3(fontDict, resolve)
	case "TrueType":
		f.Subtype = TrueType
		f.loadSimple(fontDict, resolve)
	case "MMType1":
		f.Subtype = MMType1
		f.loadSimple(fontDict, resolve)
	default:
		f.Subtype = Type1
		f.loadSimple(fontDict, resolve)
	}

	if tu, ok := fontDict[types.Name("ToUnicode")]; ok {
		if obj, err := resolve(tu); err == nil {
			if stm, ok := obj.(*types.Stream); ok {
				f.toUnicode = parseCMapStream(stm.Raw)
			}
		}
	}

	loadEncodingDifferences(f, fontDict, resolve)

	return f, nil
}

func (f *Font) loadSimple(d types.Dict, resolve Resolver) {
	if fc, ok := d.IntValue("FirstChar"); ok {
		f.firstChar = int(fc)
	}
	if wArr, ok := d[types.Name("Widths")]; ok {
		if obj, err := resolve(wArr); err == nil {
			if arr, ok := obj.(types.Array); ok {
				f.widths = make([]float64, len(arr))
				for i, v := range arr {
					f.widths[i] = numberValue(v)
				}
			}
		}
	}
	if fd, ok := d[types.Name("FontDescriptor")]; ok {
		if obj, err := resolve(fd); err == nil {
			if desc, ok := obj.(types.Dict); ok {
				if mw, ok := desc[types.Name("MissingWidth")]; ok {
					f.missingW = numberValue(mw)
				}
			}
		}
	}
}

func (f *Font) loadType3(d types.Dict, resolve Resolver) {
	if fm, ok := d[types.Name("FontMatrix")]; ok {
		if obj, err := resolve(fm); err == nil {
			if arr, ok := obj.(types.Array); ok && len(arr) == 6 {
				for i := range f.fontMatrix {
					f.fontMatrix[i] = numberValue(arr[i])
				}
			}
		}
	}
	if cp, ok := d[types.Name("CharProcs")]; ok {
		if obj, err := resolve(cp); err == nil {
			if dict, ok := obj.(types.Dict); ok {
				f.charProcs = make(map[string]types.Object, len(dict))
				for k, v := range dict {
					f.charProcs[string(k)] = v
				}
			}
		}
	}
}

// FontMatrix returns the Type3 font's glyph-space-to-text-space
// matrix (a identity-scaled 0.001 matrix for every other subtype).
func (f *Font) FontMatrix() [6]float64 { return f.fontMatrix }

// CharProc returns the content stream object for glyph name, for
// Type3 fonts only.
func (f *Font) CharProc(name string) (types.Object, bool) {
	v, ok := f.charProcs[name]
	return v, ok
}

func (f *Font) loadType0(d types.Dict, resolve Resolver) error {
	f.twoByteCIDs = true // Identity-H/V covers the overwhelming majority; a real
	// embedded Encoding CMap with variable-width codespace ranges would
	// need its own codespacerange parse, tracked as future work.
	if enc, ok := d.NameValue("Encoding"); ok {
		_ = enc // Identity-H / Identity-V / named predefined CMaps all decode as 2-byte here.
	}

	descArr, ok := d[types.Name("DescendantFonts")]
	if !ok {
		return nil
	}
	obj, err := resolve(descArr)
	if err != nil {
		return err
	}
	arr, ok := obj.(types.Array)
	if !ok || len(arr) == 0 {
		return nil
	}
	descObj, err := resolve(arr[0])
	if err != nil {
		return err
	}
	desc, ok := descObj.(types.Dict)
	if !ok {
		return nil
	}

	if dw, ok := desc[types.Name("DW")]; ok {
		f.defaultW = numberValue(dw)
	} else {
		f.defaultW = 1000
	}

	f.cidWidths = map[int]float64{}
	if wArr, ok := desc[types.Name("W")]; ok {
		if obj, err := resolve(wArr); err == nil {
			if arr, ok := obj.(types.Array); ok {
				parseCIDWidths(arr, f.cidWidths, resolve)
			}
		}
	}

	if c2g, ok := desc[types.Name("CIDToGIDMap")]; ok {
		if obj, err := resolve(c2g); err == nil {
			if stm, ok := obj.(*types.Stream); ok {
				f.cidToGID = parseCIDToGIDMap(stm.Raw)
			}
		}
	}

	return nil
}

// parseCIDWidths interprets the /W array's two forms: "c [w1 w2 ...]"
// (consecutive CIDs c, c+1, ... get the listed widths) and
// "cFirst cLast w" (every CID in the range gets width w).
func parseCIDWidths(arr types.Array, out map[int]float64, resolve Resolver) {
	i := 0
	for i < len(arr) {
		first := int(numberValue(arr[i]))
		i++
		if i >= len(arr) {
			return
		}
		next, err := resolve(arr[i])
		if err != nil {
			return
		}
		if sub, ok := next.(types.Array); ok {
			for j, w := range sub {
				out[first+j] = numberValue(w)
			}
			i++
			continue
		}
		last := int(numberValue(arr[i]))
		i++
		if i >= len(arr) {
			return
		}
		w := numberValue(arr[i])
		i++
		for c := first; c <= last; c++ {
			out[c] = w
		}
	}
}

func parseCIDToGIDMap(raw []byte) map[int]int {
	m := make(map[int]int, len(raw)/2)
	for cid := 0; cid+1 < len(raw); cid += 2 {
		gid := int(raw[cid])<<8 | int(raw[cid+1])
		if gid != 0 {
			m[cid/2] = gid
		}
	}
	return m
}

// loadEncodingDifferences reads a simple font's /Encoding /Differences
// array into a code->glyph-name map, per PDF 32000-1 §9.6.6.
func loadEncodingDifferences(f *Font, d types.Dict, resolve Resolver) {
	encObj, ok := d[types.Name("Encoding")]
	if !ok {
		return
	}
	resolved, err := resolve(encObj)
	if err != nil {
		return
	}
	encDict, ok := resolved.(types.Dict)
	if !ok {
		return
	}
	diffArr, ok := encDict[types.Name("Differences")]
	if !ok {
		return
	}
	obj, err := resolve(diffArr)
	if err != nil {
		return
	}
	arr, ok := obj.(types.Array)
	if !ok {
		return
	}
	f.diffNames = map[int]string{}
	code := 0
	for _, v := range arr {
		switch t := v.(type) {
		case types.Int:
			code = int(t)
		case types.Real:
			code = int(t)
		case types.Name:
			f.diffNames[code] = string(t)
			code++
		}
	}
}

// GlyphName returns the /Differences-mapped glyph name for a simple
// font's character code, if any.
func (f *Font) GlyphName(code int) (string, bool) {
	n, ok := f.diffNames[code]
	return n, ok
}

func numberValue(o types.Object) float64 {
	switch t := o.(type) {
	case types.Int:
		return float64(t)
	case types.Real:
		return float64(t)
	}
	return 0
}

// Decode splits a string-showing operand's raw bytes into codes, one
// byte per code for simple fonts and Type3, two bytes per code for
// Type0/CID fonts (Identity-H/V and the vast majority of predefined
// CJK CMaps are fixed 2-byte codespaces).
func (f *Font) Decode(b []byte) []Code {
	if f.Subtype == Type0 {
		out := make([]Code, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			out = append(out, Code{Code: uint32(b[i])<<8 | uint32(b[i+1]), Bytes: 2})
		}
		if len(b)%2 == 1 {
			out = append(out, Code{Code: uint32(b[len(b)-1]), Bytes: 1})
		}
		return out
	}
	out := make([]Code, len(b))
	for i, c := range b {
		out[i] = Code{Code: uint32(c), Bytes: 1}
	}
	return out
}

// GID maps a decoded code to a glyph id for a composite font: the
// code IS the CID for an Identity encoding, and CIDToGIDMap (when
// present) maps CID->GID; absent a map, CID==GID per PDF 32000-1
// §9.7.4.2.
func (f *Font) GID(code uint32) int {
	cid := int(code)
	if f.cidToGID == nil {
		return cid
	}
	if gid, ok := f.cidToGID[cid]; ok {
		return gid
	}
	return 0
}

// Width returns code's horizontal advance width in glyph space
// (thousandths of a text-space unit), per PDF 32000-1 §9.2.4.
func (f *Font) Width(code uint32) float64 {
	if f.Subtype == Type0 {
		if w, ok := f.cidWidths[int(code)]; ok {
			return w
		}
		return f.defaultW
	}
	idx := int(code) - f.firstChar
	if idx >= 0 && idx < len(f.widths) {
		return f.widths[idx]
	}
	if f.missingW != 0 {
		return f.missingW
	}
	return DefaultMissingWidth
}

// ToUnicode returns the Unicode text a decoded code represents, per
// the font's embedded /ToUnicode CMap, for text extraction and
// search per spec.md §4.10.
func (f *Font) ToUnicode(code uint32) (string, bool) {
	if f.toUnicode == nil {
		return "", false
	}
	return f.toUnicode.lookup(code)
}

// cmap is a minimal bfchar/bfrange CMap, enough to resolve a
// /ToUnicode stream's character mappings.
type cmap struct {
	single map[uint32]string
	ranges []bfRange
}

type bfRange struct {
	lo, hi uint32
	dst    string // Unicode text for lo; subsequent codes add their offset to dst's last rune
}

func (c *cmap) lookup(code uint32) (string, bool) {
	if s, ok := c.single[code]; ok {
		return s, true
	}
	for _, r := range c.ranges {
		if code >= r.lo && code <= r.hi {
			runes := []rune(r.dst)
			if len(runes) == 0 {
				return "", false
			}
			runes[len(runes)-1] += rune(code - r.lo)
			return string(runes), true
		}
	}
	return "", false
}

// parseCMapStream tokenizes a /ToUnicode CMap's PostScript-like
// syntax using pkg/lex, collecting bfchar/bfrange operators. The
// surrounding CMap program (begincmap, codespacerange, etc.) is
// otherwise ignored, matching what text extraction actually needs.
func parseCMapStream(raw []byte) *cmap {
	c := &cmap{single: map[uint32]string{}}
	lx := lex.New(raw)

	var stack []lex.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			break
		}
		if tok.Kind == lex.KindEOF {
			break
		}
		if tok.Kind == lex.KindKeyword {
			switch tok.Text {
			case "endbfchar":
				applyBfChar(c, stack)
				stack = nil
				continue
			case "endbfrange":
				applyBfRange(c, stack)
				stack = nil
				continue
			case "beginbfchar", "beginbfrange", "begincmap", "endcmap",
				"begincodespacerange", "endcodespacerange":
				stack = nil
				continue
			}
		}
		stack = append(stack, tok)
	}
	return c
}

func applyBfChar(c *cmap, toks []lex.Token) {
	for i := 0; i+1 < len(toks); i += 2 {
		src, ok1 := hexTokenToCode(toks[i])
		dst, ok2 := hexTokenToString(toks[i+1])
		if ok1 && ok2 {
			c.single[src] = dst
		}
	}
}

func applyBfRange(c *cmap, toks []lex.Token) {
	for i := 0; i+2 < len(toks); i += 3 {
		lo, ok1 := hexTokenToCode(toks[i])
		hi, ok2 := hexTokenToCode(toks[i+1])
		dst, ok3 := hexTokenToString(toks[i+2])
		if ok1 && ok2 && ok3 {
			c.ranges = append(c.ranges, bfRange{lo: lo, hi: hi, dst: dst})
		}
	}
}

func hexTokenToCode(t lex.Token) (uint32, bool) {
	if t.Kind != lex.KindString || t.StringKind != lex.StringHex {
		return 0, false
	}
	var v uint32
	for _, b := range t.StringVal {
		v = v<<8 | uint32(b)
	}
	return v, true
}

func hexTokenToString(t lex.Token) (string, bool) {
	if t.Kind != lex.KindString || t.StringKind != lex.StringHex {
		return "", false
	}
	b := t.StringVal
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint32(b[i])<<8|uint32(b[i+1])))
	}
	return string(runes), true
}
