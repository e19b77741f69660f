package model

import (
	"strings"

	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/parse"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// loadCatalog resolves the trailer's /Root into the document catalog
// and flattens the /Pages tree into pages, inheriting /Resources,
// /MediaBox, /CropBox and /Rotate down from ancestor /Pages nodes per
// spec.md §3 ("a page's effective attributes are its own dict merged
// over every ancestor's inheritable entries").
func (d *Document) loadCatalog() error {
	rootRef, ok := d.trailer[types.Name("Root")]
	if !ok {
		return New(Format, "micropdf: trailer missing /Root")
	}
	cat, ok, err := d.ResolveDict(rootRef)
	if err != nil {
		return Wrap(Format, err, "micropdf: resolving catalog")
	}
	if !ok {
		return New(Format, "micropdf: /Root is not a dictionary")
	}
	d.catalog = cat

	pagesRef, ok := cat[types.Name("Pages")]
	if !ok {
		return New(Format, "micropdf: catalog missing /Pages")
	}
	pagesDict, ok, err := d.ResolveDict(pagesRef)
	if err != nil {
		return Wrap(Format, err, "micropdf: resolving page tree root")
	}
	if !ok {
		return New(Format, "micropdf: /Pages is not a dictionary")
	}

	seen := make(map[int]bool)
	num := 0
	if ref, ok := pagesRef.(types.IndirectRef); ok {
		num = ref.Num
	}
	return d.walkPageTree(num, pagesDict, types.Dict{}, seen)
}

var inheritableKeys = []types.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// walkPageTree recurses through /Pages /Kids, accumulating inheritable
// attributes and appending each /Type /Page leaf to d.pages. seen
// guards against a cyclic tree (a node that is its own ancestor),
// repairing by simply not descending twice.
func (d *Document) walkPageTree(num int, node, inherited types.Dict, seen map[int]bool) error {
	if num != 0 {
		if seen[num] {
			return nil
		}
		seen[num] = true
	}

	merged := mergeInheritable(inherited, node)

	kidsObj, hasKids := node[types.Name("Kids")]
	if !hasKids {
		d.pages = append(d.pages, pageLeaf{num: num, dict: node, inheritable: merged})
		return nil
	}

	kids, err := d.Resolve(kidsObj)
	if err != nil {
		return err
	}
	arr, ok := kids.(types.Array)
	if !ok {
		return nil
	}
	for _, kidRef := range arr {
		kidNum := 0
		if ref, ok := kidRef.(types.IndirectRef); ok {
			kidNum = ref.Num
		}
		kidDict, ok, err := d.ResolveDict(kidRef)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := d.walkPageTree(kidNum, kidDict, merged, seen); err != nil {
			return err
		}
	}
	return nil
}

func mergeInheritable(parent, node types.Dict) types.Dict {
	out := make(types.Dict, len(parent)+len(node))
	for k, v := range parent {
		out[k] = v
	}
	for _, k := range inheritableKeys {
		if v, ok := node[k]; ok {
			out[k] = v
		}
	}
	return out
}

// PageCount returns the number of leaf /Page nodes found while
// flattening the page tree.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// GetMetadata resolves a key from the trailer's /Info dictionary
// (Title, Author, Subject, Keywords, Creator, Producer, CreationDate,
// ModDate), per spec.md §5's metadata supplement. The "xmp:" prefix
// instead returns the raw decoded bytes of /Root/Metadata, the
// catalog's XMP metadata stream, when present.
func (d *Document) GetMetadata(key string) (string, bool) {
	if rest, ok := strings.CutPrefix(key, "xmp:"); ok {
		return d.getXMPMetadata(rest)
	}

	infoRef, ok := d.trailer[types.Name("Info")]
	if !ok {
		return "", false
	}
	info, ok, err := d.ResolveDict(infoRef)
	if err != nil || !ok {
		return "", false
	}
	v, ok := info[types.Name(key)]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case types.StringLiteral:
		return types.DecodeTextString([]byte(t)), true
	case types.HexLiteral:
		b, err := t.Bytes()
		if err != nil {
			return "", false
		}
		return types.DecodeTextString(b), true
	}
	return "", false
}

// getXMPMetadata ignores its key argument (XMP is one RDF/XML
// document, not a keyed dictionary) and returns the catalog's
// /Metadata stream decoded in full.
func (d *Document) getXMPMetadata(string) (string, bool) {
	metaRef, ok := d.catalog[types.Name("Metadata")]
	if !ok {
		return "", false
	}
	obj, err := d.Resolve(metaRef)
	if err != nil {
		return "", false
	}
	stm, ok := obj.(*types.Stream)
	if !ok {
		return "", false
	}
	decoded, err := d.DecodedStream(stm)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// ResolveNamedDest looks up name in the catalog's /Names /Dests name
// tree (a balanced tree of /Kids or a leaf /Names array of
// name/destination pairs sorted by name), per spec.md §5.
func (d *Document) ResolveNamedDest(name string) (types.Object, bool) {
	namesRoot, ok := d.catalog[types.Name("Names")]
	if !ok {
		return nil, false
	}
	namesDict, ok, err := d.ResolveDict(namesRoot)
	if err != nil || !ok {
		return nil, false
	}
	destsRoot, ok := namesDict[types.Name("Dests")]
	if !ok {
		return nil, false
	}
	return d.searchNameTree(destsRoot, name, 0)
}

// nameTreeMaxDepth bounds recursion into a /Names tree; real trees are
// shallow (a handful of levels even for huge destination counts), so
// this only guards against a corrupt, cyclic /Kids chain.
const nameTreeMaxDepth = 64

func (d *Document) searchNameTree(node types.Object, name string, depth int) (types.Object, bool) {
	if depth > nameTreeMaxDepth {
		return nil, false
	}

	dict, ok, err := d.ResolveDict(node)
	if err != nil || !ok {
		return nil, false
	}

	if namesArr, ok := dict[types.Name("Names")].(types.Array); ok {
		for i := 0; i+1 < len(namesArr); i += 2 {
			key, err := d.Resolve(namesArr[i])
			if err != nil {
				continue
			}
			if nameString(key) == name {
				val, err := d.Resolve(namesArr[i+1])
				if err != nil {
					return nil, false
				}
				return val, true
			}
		}
		return nil, false
	}

	kidsArr, ok := dict[types.Name("Kids")].(types.Array)
	if !ok {
		return nil, false
	}
	for _, kid := range kidsArr {
		if v, ok := d.searchNameTree(kid, name, depth+1); ok {
			return v, true
		}
	}
	return nil, false
}

func nameString(o types.Object) string {
	switch t := o.(type) {
	case types.StringLiteral:
		return string(t)
	case types.HexLiteral:
		b, err := t.Bytes()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// fetchCompressed materializes the objIdx'th object stored in object
// stream objStmNum, per spec.md §4.5: an ObjStm's body is N pairs of
// "objNum offset" (relative to /First) followed by the objects
// themselves back to back, each parsed as a bare object (no "N G obj"
// wrapper).
func (d *Document) fetchCompressed(objStmNum, objIdx int) (types.Object, error) {
	objStmObj, err := d.fetch(objStmNum, 0)
	if err != nil {
		return nil, err
	}
	stm, ok := objStmObj.(*types.Stream)
	if !ok {
		return nil, New(Format, "micropdf: object %d is not an object stream", objStmNum)
	}

	n, _ := stm.Dict.IntValue("N")
	first, _ := stm.Dict.IntValue("First")
	if objIdx < 0 || int64(objIdx) >= n {
		return nil, New(Format, "micropdf: compressed object index %d out of range", objIdx)
	}

	decoded, err := d.DecodedStream(stm)
	if err != nil {
		return nil, err
	}

	headerLx := lex.New(decoded)
	var offsets []int64
	for i := int64(0); i < n; i++ {
		numTok, err := headerLx.Next()
		if err != nil || numTok.Kind != lex.KindInt {
			return nil, New(Format, "micropdf: malformed object stream header")
		}
		offTok, err := headerLx.Next()
		if err != nil || offTok.Kind != lex.KindInt {
			return nil, New(Format, "micropdf: malformed object stream header")
		}
		offsets = append(offsets, offTok.Int)
	}

	start := int(first) + int(offsets[objIdx])
	if start < 0 || start >= len(decoded) {
		return nil, New(Format, "micropdf: compressed object offset out of range")
	}
	p := parse.New(lex.New(decoded[start:]))
	obj, err := p.ParseObject()
	if err != nil {
		return nil, Wrap(Format, err, "micropdf: parsing compressed object")
	}
	return obj, nil
}
