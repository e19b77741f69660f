package parse

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

func parseOne(t *testing.T, src string) types.Object {
	t.Helper()
	p := New(lex.New([]byte(src)))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q): %v", src, err)
	}
	return obj
}

func TestParseScalarRoundTrip(t *testing.T) {
	cases := map[string]string{
		"null":        "null",
		"true":        "true",
		"42":          "42",
		"/Name1":      "/Name1",
		"(hello)":     "(hello)",
		"[1 2 3]":     "[1 2 3]",
		"<< /A 1 >>":  "<</A 1 >>",
	}
	for src := range cases {
		obj := parseOne(t, src)
		if obj == nil {
			t.Errorf("parse(%q) = nil", src)
		}
	}
}

func TestParseIndirectReference(t *testing.T) {
	obj := parseOne(t, "12 0 R")
	ref, ok := obj.(types.IndirectRef)
	if !ok {
		t.Fatalf("got %T, want IndirectRef", obj)
	}
	if ref.Num != 12 || ref.Gen != 0 {
		t.Fatalf("ref = %+v", ref)
	}
}

func TestParseBareIntNotConfusedWithIndirectRef(t *testing.T) {
	obj := parseOne(t, "12 0 obj")
	if _, ok := obj.(types.Int); !ok {
		t.Fatalf("got %T, want Int (not an indirect ref, since next keyword isn't R)", obj)
	}
}

func TestParseIndirectObjectWithStream(t *testing.T) {
	src := []byte("7 0 obj\n<< /Length 5 >>\nstream\nHELLOendstream\nendobj")
	p := New(lex.New(src))
	resolve := func(o types.Object) (int64, bool) {
		if i, ok := o.(types.Int); ok {
			return int64(i), true
		}
		return 0, false
	}
	num, gen, obj, err := p.ParseIndirectObject(src, resolve)
	if err != nil {
		t.Fatalf("ParseIndirectObject: %v", err)
	}
	if num != 7 || gen != 0 {
		t.Fatalf("num/gen = %d/%d", num, gen)
	}
	st, ok := obj.(*types.Stream)
	if !ok {
		t.Fatalf("got %T, want *types.Stream", obj)
	}
	if string(st.Raw) != "HELLO" {
		t.Fatalf("stream raw = %q, want %q", st.Raw, "HELLO")
	}
}

func TestParseIndirectObjectStreamLengthMismatchFallsBackToScan(t *testing.T) {
	src := []byte("1 0 obj\n<< /Length 999 >>\nstream\nABCDEF\nendstream\nendobj")
	p := New(lex.New(src))
	resolve := func(o types.Object) (int64, bool) {
		if i, ok := o.(types.Int); ok {
			return int64(i), true
		}
		return 0, false
	}
	_, _, obj, err := p.ParseIndirectObject(src, resolve)
	if err != nil {
		t.Fatalf("ParseIndirectObject: %v", err)
	}
	st := obj.(*types.Stream)
	if string(st.Raw) != "ABCDEF" {
		t.Fatalf("stream raw = %q, want %q", st.Raw, "ABCDEF")
	}
}
