// Package parse implements the recursive-descent parser that turns a
// lex.Lexer's token stream into types.Object values, recognizing the
// `obj`/`endobj`/`stream`/`endstream`/`R`/`true`/`false`/`null`
// keywords per spec.md §4.4. It follows the shape of pdfcpu's
// pkg/pdfcpu/parse.go (parseObject/parseDict/parseArray) but consumes
// a proper token stream instead of re-slicing a string buffer by hand.
package parse

import (
	"bytes"
	"fmt"

	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// Parser turns a Lexer's tokens into types.Object values.
type Parser struct {
	lx       *lex.Lexer
	tok      lex.Token
	hasToken bool
	// Tolerant controls whether minor damage (see ParseObject) is
	// repaired in place rather than surfaced as an error.
	Tolerant bool
}

// New returns a Parser reading from lx.
func New(lx *lex.Lexer) *Parser {
	return &Parser{lx: lx}
}

func (p *Parser) advance() error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	p.hasToken = true
	return nil
}

func (p *Parser) current() (lex.Token, error) {
	if !p.hasToken {
		if err := p.advance(); err != nil {
			return lex.Token{}, err
		}
	}
	return p.tok, nil
}

func (p *Parser) consume() (lex.Token, error) {
	tok, err := p.current()
	if err != nil {
		return tok, err
	}
	p.hasToken = false
	return tok, nil
}

// Peek returns the next token without consuming it, for callers (the
// content-stream interpreter) that must decide between parsing an
// operand object and consuming a bare operator keyword before calling
// ParseObject.
func (p *Parser) Peek() (lex.Token, error) {
	return p.current()
}

// ConsumeKeyword consumes and returns the next token, asserting it is
// a Keyword; it is the content-stream interpreter's counterpart to
// ParseObject for operator tokens, which ParseObject itself rejects.
func (p *Parser) ConsumeKeyword() (string, error) {
	tok, err := p.consume()
	if err != nil {
		return "", err
	}
	if tok.Kind != lex.KindKeyword {
		return "", fmt.Errorf("parse: expected operator keyword, got %v", tok.Kind)
	}
	return tok.Text, nil
}

// AtEOF reports whether the next token is KindEOF, without consuming it.
func (p *Parser) AtEOF() bool {
	tok, err := p.current()
	return err != nil || tok.Kind == lex.KindEOF
}

// InlineImageData scans the raw bytes of a `BI ... ID <data> EI`
// inline image, called immediately after ConsumeKeyword has consumed
// "ID". Per PDF 32000-1 8.9.7, exactly one whitespace byte separates
// "ID" from the raw sample data, which is terminated by "EI" preceded
// by whitespace; the scan mirrors readStreamBody's tolerant forward
// search for a terminator keyword.
func (p *Parser) InlineImageData() []byte {
	src := p.lx.Source()
	pos := p.lx.Pos()
	if pos < len(src) && (src[pos] == ' ' || src[pos] == '\n' || src[pos] == '\r' || src[pos] == '\t') {
		pos++
	}

	start := pos
	end := -1
	for i := pos; i+1 < len(src); i++ {
		if src[i] == 'E' && src[i+1] == 'I' {
			if i > start && !isPDFWhitespace(src[i-1]) {
				continue
			}
			if i+2 < len(src) && !isPDFWhitespace(src[i+2]) && src[i+2] != 0 {
				continue
			}
			end = i
			break
		}
	}
	if end < 0 {
		end = len(src)
	}

	dataEnd := end
	for dataEnd > start && isPDFWhitespace(src[dataEnd-1]) {
		dataEnd--
	}

	p.lx.SeekTo(end)
	p.hasToken = false
	if kw, err := p.consume(); err != nil || kw.Kind != lex.KindKeyword || kw.Text != "EI" {
		// Tolerant: leave the lexer at end regardless; a malformed
		// terminator surfaces as a parse error on the next token.
	}

	return src[start:dataEnd]
}

func isPDFWhitespace(b byte) bool {
	switch b {
	case ' ', '\n', '\r', '\t', '\f', 0:
		return true
	}
	return false
}

// ParseObject parses a single PdfObject, resolving `N G R` indirect
// references via two-token lookahead (an Int followed by another Int
// followed by the Keyword "R").
func (p *Parser) ParseObject() (types.Object, error) {
	tok, err := p.consume()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case lex.KindNull:
		return types.Null{}, nil
	case lex.KindBool:
		return types.Bool(tok.Bool), nil
	case lex.KindReal:
		return types.Real(tok.Real), nil
	case lex.KindInt:
		return p.parseIntOrIndirectRef(tok.Int)
	case lex.KindName:
		return types.Intern(tok.Text), nil
	case lex.KindString:
		if tok.StringKind == lex.StringHex {
			return types.NewHexLiteral(tok.StringVal), nil
		}
		return types.StringLiteral(tok.StringVal), nil
	case lex.KindArrayOpen:
		return p.parseArray()
	case lex.KindDictOpen:
		return p.parseDictOrStream()
	case lex.KindKeyword:
		return nil, fmt.Errorf("parse: unexpected keyword %q", tok.Text)
	case lex.KindEOF:
		return nil, fmt.Errorf("parse: unexpected EOF")
	}
	return nil, fmt.Errorf("parse: unexpected token kind %v", tok.Kind)
}

// parseIntOrIndirectRef disambiguates a bare Int from the start of an
// `N G R` indirect reference by peeking ahead; on anything else the
// lexer position is restored via a saved-offset replay.
func (p *Parser) parseIntOrIndirectRef(first int64) (types.Object, error) {
	mark := p.lx.Pos()
	hadTok, savedTok := p.hasToken, p.tok
	p.hasToken = false

	second, err := p.current()
	if err != nil || second.Kind != lex.KindInt {
		p.lx.SeekTo(mark)
		p.hasToken, p.tok = hadTok, savedTok
		return types.Int(first), nil
	}
	p.hasToken = false

	third, err := p.current()
	if err != nil || third.Kind != lex.KindKeyword || third.Text != "R" {
		p.lx.SeekTo(mark)
		p.hasToken, p.tok = hadTok, savedTok
		return types.Int(first), nil
	}
	p.hasToken = false
	return types.IndirectRef{Num: int(first), Gen: int(second.Int)}, nil
}

func (p *Parser) parseArray() (types.Object, error) {
	var arr types.Array
	for {
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lex.KindArrayClose {
			p.hasToken = false
			return arr, nil
		}
		if tok.Kind == lex.KindEOF {
			return nil, fmt.Errorf("parse: unterminated array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDictOrStream() (types.Object, error) {
	d := types.Dict{}
	for {
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lex.KindDictClose {
			p.hasToken = false
			break
		}
		if tok.Kind == lex.KindEOF {
			return nil, fmt.Errorf("parse: unterminated dict")
		}
		if tok.Kind != lex.KindName {
			if p.Tolerant {
				p.hasToken = false
				continue
			}
			return nil, fmt.Errorf("parse: expected dict key, got %v", tok.Kind)
		}
		p.hasToken = false
		key := types.Intern(tok.Text)
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}
	return d, nil
}

// ParseIndirectObject parses `N G obj ... endobj`, returning the
// object number, generation and value. If the value is a dict
// immediately followed by the `stream` keyword, the stream's raw byte
// range is captured using the dict's declared /Length (falling back,
// in tolerant mode, to scanning forward for `endstream` on mismatch).
func (p *Parser) ParseIndirectObject(src []byte, resolveLength func(types.Object) (int64, bool)) (num, gen int, obj types.Object, err error) {
	numTok, err := p.consume()
	if err != nil || numTok.Kind != lex.KindInt {
		return 0, 0, nil, fmt.Errorf("parse: expected object number")
	}
	genTok, err := p.consume()
	if err != nil || genTok.Kind != lex.KindInt {
		return 0, 0, nil, fmt.Errorf("parse: expected generation number")
	}
	kw, err := p.consume()
	if err != nil || kw.Kind != lex.KindKeyword || kw.Text != "obj" {
		return 0, 0, nil, fmt.Errorf("parse: expected 'obj' keyword")
	}

	val, err := p.ParseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	d, isDict := val.(types.Dict)
	if isDict {
		if streamTok, err := p.current(); err == nil && streamTok.Kind == lex.KindKeyword && streamTok.Text == "stream" {
			p.hasToken = false
			raw, serr := p.readStreamBody(src, d, resolveLength)
			if serr != nil {
				return 0, 0, nil, serr
			}
			val = &types.Stream{Dict: d, Raw: raw}
		}
	}

	return int(numTok.Int), int(genTok.Int), val, nil
}

func (p *Parser) readStreamBody(src []byte, d types.Dict, resolveLength func(types.Object) (int64, bool)) ([]byte, error) {
	pos := p.lx.Pos()
	// Per spec.md §4.4, `stream` is followed by CRLF or LF, never a
	// lone CR.
	if pos < len(src) && src[pos] == '\r' {
		pos++
	}
	if pos < len(src) && src[pos] == '\n' {
		pos++
	}

	length, ok := int64(0), false
	if lv, present := d[types.Name("Length")]; present {
		length, ok = resolveLength(lv)
	}

	end := pos + int(length)
	if !ok || end > len(src) || !hasEndstreamAt(src, end) {
		// Tolerant fallback: search forward for "endstream".
		idx := bytes.Index(src[pos:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("parse: missing endstream")
		}
		end = pos + idx
		// Trim a single trailing EOL before "endstream".
		for end > pos && (src[end-1] == '\n' || src[end-1] == '\r') {
			end--
		}
	}

	raw := src[pos:end]
	p.lx.SeekTo(end)
	p.hasToken = false

	// Skip to and past "endstream" / "endobj".
	kw, err := p.consume()
	if err == nil && kw.Kind == lex.KindKeyword && kw.Text == "endstream" {
		// consumed
	} else {
		idx := bytes.Index(src[end:], []byte("endstream"))
		if idx >= 0 {
			p.lx.SeekTo(end + idx + len("endstream"))
			p.hasToken = false
		}
	}
	return raw, nil
}

func hasEndstreamAt(src []byte, pos int) bool {
	rest := pos
	for rest < len(src) && (src[rest] == '\n' || src[rest] == '\r' || src[rest] == ' ') {
		rest++
	}
	if rest > len(src) {
		rest = len(src)
	}
	return bytes.HasPrefix(src[rest:], []byte("endstream"))
}
