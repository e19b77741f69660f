package model

import (
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// EntryKind tags how an XRef entry's object is located, per spec.md §3.
type EntryKind int

const (
	KindFree EntryKind = iota
	KindInUse
	KindCompressed
)

// FreeHeadGeneration is the predefined generation for object 0, the
// head of the free list, per spec.md §3 ("entry 0 is always Free
// gen=65535"), mirroring pdfcpu's FreeHeadGeneration constant.
const FreeHeadGeneration = 65535

// XRefEntry is one row of the cross-reference table: an object number
// maps to {generation, kind, locator}, following pdfcpu's
// XRefTableEntry but reduced to the read-only fields this core needs.
type XRefEntry struct {
	Kind       EntryKind
	Generation int
	Offset     int64 // valid when Kind == KindInUse
	ObjStmNum  int   // valid when Kind == KindCompressed
	ObjStmIdx  int   // valid when Kind == KindCompressed

	cached    types.Object
	hasCached bool
}

// XRefTable maps object numbers to their XRefEntry and caches
// materialized objects, per spec.md §3/§4.5.
type XRefTable struct {
	entries map[int]*XRefEntry
	Size    int // highest object number + 1, from the trailer's /Size
	Repaired bool
}

// NewXRefTable returns an empty table with the mandatory free head at
// object 0.
func NewXRefTable() *XRefTable {
	t := &XRefTable{entries: make(map[int]*XRefEntry)}
	t.entries[0] = &XRefEntry{Kind: KindFree, Generation: FreeHeadGeneration}
	return t
}

// Add inserts or overwrites the entry for objNr. Later entries shadow
// earlier ones, the rule spec.md §4.5 requires when merging a /Prev
// chain of xref sections (a document must call Add for the most
// recent section first, oldest last, so the first write for an object
// number wins — AddIfAbsent is used for that).
func (t *XRefTable) Add(objNr int, e *XRefEntry) {
	t.entries[objNr] = e
	if objNr+1 > t.Size {
		t.Size = objNr + 1
	}
}

// AddIfAbsent inserts e only if objNr has no entry yet, the merge rule
// for walking a /Prev chain newest-first.
func (t *XRefTable) AddIfAbsent(objNr int, e *XRefEntry) {
	if _, exists := t.entries[objNr]; exists {
		return
	}
	t.Add(objNr, e)
}

// Find returns the entry for objNr, if any.
func (t *XRefTable) Find(objNr int) (*XRefEntry, bool) {
	e, ok := t.entries[objNr]
	return e, ok
}

// Exists reports whether objNr has a (non-free) entry.
func (t *XRefTable) Exists(objNr int) bool {
	e, ok := t.entries[objNr]
	return ok && e.Kind != KindFree
}

// Len returns the number of objects with a non-free entry.
func (t *XRefTable) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.Kind != KindFree {
			n++
		}
	}
	return n
}

// ObjectNumbers returns every in-use or compressed object number, for
// diagnostics and the repair path's rebuild.
func (t *XRefTable) ObjectNumbers() []int {
	out := make([]int, 0, len(t.entries))
	for n, e := range t.entries {
		if e.Kind != KindFree {
			out = append(out, n)
		}
	}
	return out
}

func (e *XRefEntry) cache(obj types.Object) {
	e.cached = obj
	e.hasCached = true
}

func (e *XRefEntry) cachedObject() (types.Object, bool) {
	return e.cached, e.hasCached
}
