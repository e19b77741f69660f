package model

import (
	"regexp"
	"strconv"

	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/parse"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// startxrefPattern finds the last `startxref` keyword and its operand,
// the entry point for walking the xref chain per spec.md §4.5.
var startxrefPattern = regexp.MustCompile(`(?s)startxref\s+(\d+)\s+%%EOF`)

// classicEntryPattern matches one 20-byte classic xref subsection
// entry: a 10-digit offset, 5-digit generation, and 'n'/'f' flag.
var classicEntryPattern = regexp.MustCompile(`(?m)^(\d{10}) (\d{5}) ([nf])\s*$`)

// subsectionHeaderPattern matches a classic xref subsection header
// "first count".
var subsectionHeaderPattern = regexp.MustCompile(`(?m)^(\d+) (\d+)\s*$`)

// loadXrefChain walks the /Prev chain of xref sections starting from
// the last `startxref` offset, merging entries newest-first so an
// incremental update's table shadows the base file's, per spec.md
// §4.5. Each section may be a classic table (optionally followed by a
// `trailer` dict) or a cross-reference stream (PDF 1.5+); both forms
// may appear in the same chain via a hybrid-reference file's /XRefStm.
func (d *Document) loadXrefChain() (*XRefTable, types.Dict, error) {
	all := startxrefPattern.FindAllSubmatch(lastBytes(d.data, 2048), -1)
	if all == nil {
		all = startxrefPattern.FindAllSubmatch(d.data, -1)
	}
	if all == nil {
		return nil, nil, New(Format, "micropdf: no startxref found")
	}
	m := all[len(all)-1]
	offset, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return nil, nil, Wrap(Format, err, "micropdf: malformed startxref operand")
	}

	xref := NewXRefTable()
	var mainTrailer types.Dict
	seen := make(map[int64]bool)

	for offset != 0 {
		if seen[offset] || offset < 0 || int(offset) >= len(d.data) {
			break
		}
		seen[offset] = true

		trailer, prev, hybrid, err := d.loadXrefSectionAt(offset, xref)
		if err != nil {
			return nil, nil, err
		}
		if mainTrailer == nil {
			mainTrailer = trailer
		}
		if hybrid != 0 && !seen[hybrid] {
			if _, _, _, err := d.loadXrefSectionAt(hybrid, xref); err != nil {
				return nil, nil, err
			}
		}
		offset = prev
	}

	if mainTrailer == nil {
		return nil, nil, New(Format, "micropdf: empty xref chain")
	}
	if size, ok := mainTrailer.IntValue("Size"); ok && int(size) > xref.Size {
		xref.Size = int(size)
	}
	return xref, mainTrailer, nil
}

// lastBytes returns the trailing n bytes of b (or all of b if shorter).
func lastBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}

// loadXrefSectionAt parses one section, classic or stream, merging
// newly-seen object numbers into xref via AddIfAbsent (so an earlier,
// more recent call always wins). It returns the section's trailer
// dict, the /Prev offset (0 if none) and the /XRefStm hybrid offset
// (0 if none, classic sections only).
func (d *Document) loadXrefSectionAt(offset int64, xref *XRefTable) (types.Dict, int64, int64, error) {
	src := d.data[offset:]
	lx := lex.New(src)

	save := lx.Pos()
	tok, err := lx.Next()
	if err == nil && tok.Kind == lex.KindKeyword && tok.Text == "xref" {
		return d.loadClassicSection(src[lx.Pos():], offset+int64(lx.Pos()), xref)
	}
	lx.SeekTo(save)

	return d.loadXrefStreamSection(offset, xref)
}

func (d *Document) loadClassicSection(rest []byte, baseOffset int64, xref *XRefTable) (types.Dict, int64, int64, error) {
	trailerLoc := trailerKeyword.FindIndex(rest)
	body := rest
	if trailerLoc != nil {
		body = rest[:trailerLoc[0]]
	}

	subsections := subsectionHeaderPattern.FindAllSubmatchIndex(body, -1)
	for si, sh := range subsections {
		first := atoiRange(body, sh[2], sh[3])
		count := atoiRange(body, sh[4], sh[5])

		entriesStart := sh[1]
		entriesEnd := len(body)
		if si+1 < len(subsections) {
			entriesEnd = subsections[si+1][0]
		}
		entries := classicEntryPattern.FindAllSubmatch(body[entriesStart:entriesEnd], -1)
		for i := 0; i < count && i < len(entries); i++ {
			e := entries[i]
			off, _ := strconv.ParseInt(string(e[1]), 10, 64)
			gen := atoiRange(e[2], 0, len(e[2]))
			num := first + i
			if e[3][0] == 'f' {
				xref.AddIfAbsent(num, &XRefEntry{Kind: KindFree, Generation: gen})
			} else {
				xref.AddIfAbsent(num, &XRefEntry{Kind: KindInUse, Offset: off, Generation: gen})
			}
		}
	}

	if trailerLoc == nil {
		return types.Dict{}, 0, 0, nil
	}
	p := parse.New(lex.New(rest[trailerLoc[0]+len("trailer"):]))
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, 0, Wrap(Format, err, "micropdf: parsing xref trailer")
	}
	dict, ok := obj.(types.Dict)
	if !ok {
		return nil, 0, 0, New(Format, "micropdf: xref trailer is not a dict")
	}

	var prev, hybrid int64
	if v, ok := dict.IntValue("Prev"); ok {
		prev = v
	}
	if v, ok := dict.IntValue("XRefStm"); ok {
		hybrid = v
	}
	return dict, prev, hybrid, nil
}

// loadXrefStreamSection parses a cross-reference stream (PDF 1.5+):
// an indirect Stream object whose dict is itself the trailer and
// whose decoded body packs fixed-width {type, field2, field3} rows
// per the /W array, indexed by /Index (default [0 Size]).
func (d *Document) loadXrefStreamSection(offset int64, xref *XRefTable) (types.Dict, int64, int64, error) {
	obj, err := d.parseAt(offset, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	stm, ok := obj.(*types.Stream)
	if !ok {
		return nil, 0, 0, New(Format, "micropdf: xref stream object is not a stream")
	}
	dict := stm.Dict

	w, ok := dict[types.Name("W")].(types.Array)
	if !ok || len(w) != 3 {
		return nil, 0, 0, New(Format, "micropdf: xref stream missing /W")
	}
	w0, w1, w2 := intOf(w[0]), intOf(w[1]), intOf(w[2])
	rowLen := w0 + w1 + w2

	decoded, err := d.DecodedStream(stm)
	if err != nil {
		return nil, 0, 0, Wrap(Format, err, "micropdf: decoding xref stream")
	}

	var index []int64
	if iv, ok := dict[types.Name("Index")].(types.Array); ok {
		for _, o := range iv {
			index = append(index, int64(intOf(o)))
		}
	} else if size, ok := dict.IntValue("Size"); ok {
		index = []int64{0, size}
	}

	pos := 0
	for si := 0; si+1 < len(index); si += 2 {
		first, count := index[si], index[si+1]
		for i := int64(0); i < count; i++ {
			if pos+rowLen > len(decoded) {
				break
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if w0 > 0 {
				typ = beUint(row[:w0])
			}
			f2 := beUint(row[w0 : w0+w1])
			f3 := beUint(row[w0+w1 : w0+w1+w2])
			num := int(first + i)

			switch typ {
			case 0:
				xref.AddIfAbsent(num, &XRefEntry{Kind: KindFree, Generation: int(f3)})
			case 1:
				xref.AddIfAbsent(num, &XRefEntry{Kind: KindInUse, Offset: f2, Generation: int(f3)})
			case 2:
				xref.AddIfAbsent(num, &XRefEntry{Kind: KindCompressed, ObjStmNum: int(f2), ObjStmIdx: int(f3)})
			}
		}
	}

	var prev int64
	if v, ok := dict.IntValue("Prev"); ok {
		prev = v
	}
	return dict, prev, 0, nil
}

func intOf(o types.Object) int {
	if i, ok := o.(types.Int); ok {
		return int(i)
	}
	return 0
}

func beUint(b []byte) int64 {
	var n int64
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n
}
