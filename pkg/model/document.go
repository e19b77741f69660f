package model

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/Lexmata/micropdf-sub000/pkg/filter"
	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/log"
	"github.com/Lexmata/micropdf-sub000/pkg/parse"
	"github.com/Lexmata/micropdf-sub000/pkg/pstream"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// OpenOptions are the duck-typed parameters for Open, per spec.md §9's
// "enumerate recognized options" redesign note.
type OpenOptions struct {
	Password string
	// Tolerant is accepted but Open does not consult it: a stream
	// whose /Length is wrong is always recovered by searching for
	// endstream, and FlateDecode always accepts a truncated stream.
	Tolerant bool
}

// Document is an opened PDF: its source bytes, cross-reference table,
// encryption state, and cached catalog/page-tree, per spec.md §3.
type Document struct {
	src      *pstream.Stream
	data     []byte
	XRef     *XRefTable
	trailer  types.Dict
	Repaired bool

	enc          *encState
	authenticated bool

	catalog types.Dict
	pages   []pageLeaf

	closed bool
}

type pageLeaf struct {
	num int
	dict types.Dict
	inheritable types.Dict // flattened inherited attrs from ancestor /Pages nodes
}

var indirectObjHeader = regexp.MustCompile(`(?m)^\s*(\d+)\s+(\d+)\s+obj\b`)

// Open loads data as a PDF document. It never mutates data.
func Open(data []byte, opts OpenOptions) (*Document, error) {
	d := &Document{data: data, src: pstream.OpenMemory(data)}

	if err := d.readHeader(); err != nil {
		return nil, err
	}

	xref, trailer, err := d.loadXrefChain()
	if err != nil {
		log.Info.Printf("xref load failed (%v), repairing", err)
		xref, trailer, err = d.repair()
		if err != nil {
			return nil, Wrap(Format, err, "micropdf: could not build cross-reference table")
		}
		d.Repaired = true
	}
	d.XRef = xref
	d.trailer = trailer

	if err := d.setupEncryption(opts.Password); err != nil {
		return nil, err
	}

	if !d.NeedsPassword() {
		if err := d.loadCatalog(); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *Document) readHeader() error {
	if len(d.data) < 8 || string(d.data[:5]) != "%PDF-" {
		return New(Format, "micropdf: missing %%PDF- header")
	}
	return nil
}

// Close releases the document's resources.
func (d *Document) Close() error {
	d.closed = true
	return d.src.Close()
}

// Resolve dereferences obj if it is an IndirectRef, returning the
// materialized object. Non-reference values pass through unchanged.
// Lazy resolution is the only way a cyclic Dict->IndirectRef->Dict
// graph is ever traversed, per spec.md §3.
func (d *Document) Resolve(obj types.Object) (types.Object, error) {
	ref, ok := obj.(types.IndirectRef)
	if !ok {
		return obj, nil
	}
	return d.fetch(ref.Num, ref.Gen)
}

// ResolveDict resolves obj and type-asserts it to a Dict (accepting a
// Stream's Dict too), returning ok=false for anything else.
func (d *Document) ResolveDict(obj types.Object) (types.Dict, bool, error) {
	v, err := d.Resolve(obj)
	if err != nil {
		return nil, false, err
	}
	switch t := v.(type) {
	case types.Dict:
		return t, true, nil
	case *types.Stream:
		return t.Dict, true, nil
	}
	return nil, false, nil
}

func (d *Document) fetch(num, gen int) (types.Object, error) {
	entry, ok := d.XRef.Find(num)
	if !ok || entry.Kind == KindFree {
		return types.Null{}, nil
	}
	if cached, ok := entry.cachedObject(); ok {
		return cached, nil
	}

	var obj types.Object
	var err error
	switch entry.Kind {
	case KindInUse:
		obj, err = d.parseAt(entry.Offset, num)
	case KindCompressed:
		obj, err = d.fetchCompressed(entry.ObjStmNum, entry.ObjStmIdx)
	default:
		obj = types.Null{}
	}
	if err != nil {
		return nil, err
	}

	if d.enc != nil && d.authenticated {
		obj = decryptObject(obj, num, gen, d.enc)
	}

	entry.cache(obj)
	return obj, nil
}

func (d *Document) parseAt(offset int64, wantNum int) (types.Object, error) {
	if offset < 0 || int(offset) >= len(d.data) {
		return nil, New(Format, "micropdf: object %d offset out of range", wantNum)
	}
	p := parse.New(lex.New(d.data[offset:]))
	p.Tolerant = true
	src := d.data[offset:]
	_, _, obj, err := p.ParseIndirectObject(src, d.resolveLength)
	if err != nil {
		return nil, Wrap(Format, err, "micropdf: parsing object %d", wantNum)
	}
	return obj, nil
}

// resolveLength resolves a stream dict's /Length entry, which may
// itself be an indirect reference.
func (d *Document) resolveLength(v types.Object) (int64, bool) {
	resolved, err := d.Resolve(v)
	if err != nil {
		return 0, false
	}
	i, ok := resolved.(types.Int)
	if !ok {
		return 0, false
	}
	return int64(i), true
}

// DecodedStream decodes a stream object's /Filter chain.
func (d *Document) DecodedStream(s *types.Stream) ([]byte, error) {
	names, parms, err := filterSpec(s.Dict, d)
	if err != nil {
		return nil, err
	}
	out, err := filter.Chain(pstream.OpenMemory(s.Raw), names, parms)
	if err != nil {
		return nil, err
	}
	return pstream.ReadAll(out), nil
}

func filterSpec(dict types.Dict, d *Document) ([]string, []filter.Params, error) {
	fv, ok := dict[types.Name("Filter")]
	if !ok {
		return nil, nil, nil
	}
	fv, err := d.Resolve(fv)
	if err != nil {
		return nil, nil, err
	}

	var names []string
	switch t := fv.(type) {
	case types.Name:
		names = []string{string(t)}
	case types.Array:
		for _, o := range t {
			o, err := d.Resolve(o)
			if err != nil {
				return nil, nil, err
			}
			n, ok := o.(types.Name)
			if !ok {
				return nil, nil, New(Format, "micropdf: non-name entry in /Filter array")
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, New(Format, "micropdf: unexpected /Filter type")
	}

	var parms []filter.Params
	if pv, ok := dict[types.Name("DecodeParms")]; ok {
		pv, err := d.Resolve(pv)
		if err != nil {
			return nil, nil, err
		}
		switch t := pv.(type) {
		case types.Dict:
			parms = []filter.Params{dictToParams(t)}
		case types.Array:
			for _, o := range t {
				o, err := d.Resolve(o)
				if err != nil {
					return nil, nil, err
				}
				if dd, ok := o.(types.Dict); ok {
					parms = append(parms, dictToParams(dd))
				} else {
					parms = append(parms, nil)
				}
			}
		case types.Null:
			// no parms
		default:
			return nil, nil, New(Format, "micropdf: unexpected /DecodeParms type")
		}
		if len(parms) != 0 && len(parms) != len(names) {
			return nil, nil, New(Format, "micropdf: mismatched Filter/DecodeParms arity")
		}
	}

	return names, parms, nil
}

func dictToParams(d types.Dict) filter.Params {
	p := filter.Params{}
	for k, v := range d {
		if i, ok := v.(types.Int); ok {
			p[string(k)] = int(i)
		}
	}
	return p
}

// repair performs the best-effort linear scan described in spec.md
// §4.5: it finds every "N G obj" occurrence and its byte offset,
// keeping the last occurrence of each object number (a later
// incremental update shadows an earlier one, same as a /Prev chain).
// Repair is idempotent: running it twice on the same bytes yields the
// same table.
func (d *Document) repair() (*XRefTable, types.Dict, error) {
	xref := NewXRefTable()
	matches := indirectObjHeader.FindAllSubmatchIndex(d.data, -1)
	if len(matches) == 0 {
		return nil, nil, errors.New("micropdf: repair: no objects found")
	}
	for _, m := range matches {
		offset := int64(m[0])
		num := atoiRange(d.data, m[2], m[3])
		gen := atoiRange(d.data, m[4], m[5])
		xref.Add(num, &XRefEntry{Kind: KindInUse, Offset: offset, Generation: gen})
	}

	trailer, err := d.scanForTrailer()
	if err != nil || trailer == nil {
		trailer = d.inferTrailerFromCatalog(xref)
	}
	return xref, trailer, nil
}

func atoiRange(b []byte, start, end int) int {
	n := 0
	for i := start; i < end; i++ {
		n = n*10 + int(b[i]-'0')
	}
	return n
}

var trailerKeyword = regexp.MustCompile(`(?s)trailer\s*<<(.*?)>>`)

func (d *Document) scanForTrailer() (types.Dict, error) {
	loc := trailerKeyword.FindIndex(d.data)
	if loc == nil {
		return nil, errors.New("micropdf: repair: no trailer found")
	}
	p := parse.New(lex.New(d.data[loc[0]+len("trailer"):]))
	obj, err := p.ParseObject()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(types.Dict)
	if !ok {
		return nil, errors.New("micropdf: repair: malformed trailer")
	}
	return dict, nil
}

// inferTrailerFromCatalog falls back to scanning every recovered
// object for a /Type /Catalog dict when no `trailer` keyword survived.
func (d *Document) inferTrailerFromCatalog(xref *XRefTable) types.Dict {
	for _, num := range xref.ObjectNumbers() {
		entry, _ := xref.Find(num)
		obj, err := d.parseAt(entry.Offset, num)
		if err != nil {
			continue
		}
		dict, ok := obj.(types.Dict)
		if !ok {
			continue
		}
		if t, ok := dict.NameValue("Type"); ok && t == "Catalog" {
			return types.Dict{types.Name("Root"): types.IndirectRef{Num: num, Gen: entry.Generation}}
		}
	}
	return types.Dict{}
}
