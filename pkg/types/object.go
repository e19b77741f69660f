// Package types implements the PdfObject value model: the tagged
// variant (Null, Bool, Int, Real, Name, String, Array, Dict,
// IndirectRef, Stream) that every parsed PDF value is represented as,
// following pdfcpu's pkg/pdfcpu Object/Boolean/Integer/Float/Name
// family but consolidated into the single Object interface spec.md's
// data model names.
package types

import (
	"fmt"
	"strconv"
)

// Object is satisfied by every PdfObject variant.
type Object interface {
	fmt.Stringer
	// PDFString renders the object the way it would appear in a PDF
	// byte stream (used by the parser's round-trip tests).
	PDFString() string
}

// Null is the PDF null object.
type Null struct{}

func (Null) String() string    { return "null" }
func (Null) PDFString() string { return "null" }

// Bool is the PDF boolean object.
type Bool bool

func (b Bool) String() string    { return strconv.FormatBool(bool(b)) }
func (b Bool) PDFString() string { return b.String() }
func (b Bool) Value() bool       { return bool(b) }

// Int is the PDF integer object.
type Int int64

func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }
func (i Int) PDFString() string { return i.String() }
func (i Int) Value() int64      { return int64(i) }

// Real is the PDF real (float) object.
type Real float64

func (r Real) String() string    { return strconv.FormatFloat(float64(r), 'f', -1, 64) }
func (r Real) PDFString() string { return strconv.FormatFloat(float64(r), 'f', 12, 64) }
func (r Real) Value() float64    { return float64(r) }

// IndirectRef is a reference to an object in the document's object
// table, identified by object number and generation. It is the only
// way a cycle may be expressed in the object graph: Dict/Array never
// contain a value-level cycle, only an IndirectRef leaf that must be
// resolved through the owning document.
type IndirectRef struct {
	Num int
	Gen int
}

func (r IndirectRef) String() string { return fmt.Sprintf("(%d %d R)", r.Num, r.Gen) }
func (r IndirectRef) PDFString() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

// Array is an ordered list of objects.
type Array []Object

func (a Array) String() string {
	return a.PDFString()
}

func (a Array) PDFString() string {
	s := "["
	for i, o := range a {
		if i > 0 {
			s += " "
		}
		s += o.PDFString()
	}
	return s + "]"
}

// Dict is a PDF dictionary: Name keys to Object values.
type Dict map[Name]Object

func (d Dict) String() string { return d.PDFString() }

func (d Dict) PDFString() string {
	s := "<<"
	for k, v := range d {
		s += k.PDFString() + " " + v.PDFString() + " "
	}
	return s + ">>"
}

// NameValue looks up a Name-valued entry, resolving nothing (callers
// that need indirect resolution go through model.Document).
func (d Dict) NameValue(key string) (Name, bool) {
	v, ok := d[Name(key)]
	if !ok {
		return "", false
	}
	n, ok := v.(Name)
	return n, ok
}

// IntValue looks up an Int-valued entry.
func (d Dict) IntValue(key string) (int64, bool) {
	v, ok := d[Name(key)]
	if !ok {
		return 0, false
	}
	i, ok := v.(Int)
	return int64(i), ok
}

// Stream is a PDF stream object: its dictionary plus the raw
// (still-encoded) byte range from the source. Filter application is
// deferred until the stream is decoded via the filter package.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (s *Stream) String() string { return "stream" }
func (s *Stream) PDFString() string {
	return s.Dict.PDFString() + "\nstream\n...\nendstream"
}
