package lex

import "testing"

func tokens(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src))
	var out []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next(): %v", err)
		}
		out = append(out, tok)
		if tok.Kind == KindEOF {
			return out
		}
	}
}

func TestScanBasicTokens(t *testing.T) {
	toks := tokens(t, "null true false 12 -3.5 /Name1 (hi) <48656c6c6f> [ ] << >> foo")
	want := []Kind{
		KindNull, KindBool, KindBool, KindInt, KindReal, KindName,
		KindString, KindString, KindArrayOpen, KindArrayClose,
		KindDictOpen, KindDictClose, KindKeyword, KindEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[7].StringKind != StringHex || string(toks[7].StringVal) != "Hello" {
		t.Errorf("hex string decode = %q", toks[7].StringVal)
	}
}

func TestLiteralStringNestedParensAndEscapes(t *testing.T) {
	toks := tokens(t, `(a (b) c\n\101)`)
	if toks[0].Kind != KindString {
		t.Fatalf("kind = %v", toks[0].Kind)
	}
	got := string(toks[0].StringVal)
	want := "a (b) c\nA"
	if got != want {
		t.Fatalf("literal string = %q, want %q", got, want)
	}
}

func TestHexStringPadsTrailingNibble(t *testing.T) {
	toks := tokens(t, "<414>")
	got := toks[0].StringVal
	if len(got) != 2 || got[0] != 0x41 || got[1] != 0x40 {
		t.Fatalf("hex decode = %x, want 4140", got)
	}
}

func TestNameHashEscapeSurvivesAsRawText(t *testing.T) {
	toks := tokens(t, "/Lucida#20Console")
	if toks[0].Kind != KindName || toks[0].Text != "Lucida#20Console" {
		t.Fatalf("name token = %+v", toks[0])
	}
}
