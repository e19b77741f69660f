package pdfont

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

func identityResolve(obj types.Object) (types.Object, error) { return obj, nil }

func TestLoadSimpleFontWidths(t *testing.T) {
	d := types.Dict{
		types.Name("Subtype"):  types.Name("TrueType"),
		types.Name("BaseFont"): types.Name("Helvetica"),
		types.Name("FirstChar"): types.Int(32),
		types.Name("Widths"): types.Array{types.Int(278), types.Int(500), types.Int(556)},
	}
	f, err := Load(d, identityResolve)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Subtype != TrueType {
		t.Fatalf("Subtype = %v, want TrueType", f.Subtype)
	}
	if got := f.Width(32); got != 278 {
		t.Fatalf("Width(32) = %v, want 278", got)
	}
	if got := f.Width(34); got != 556 {
		t.Fatalf("Width(34) = %v, want 556", got)
	}
}

func TestWidthFallsBackToMissingWidth(t *testing.T) {
	d := types.Dict{
		types.Name("Subtype"):   types.Name("Type1"),
		types.Name("FirstChar"): types.Int(65),
		types.Name("Widths"):    types.Array{types.Int(600)},
		types.Name("FontDescriptor"): types.Dict{
			types.Name("MissingWidth"): types.Int(250),
		},
	}
	f, err := Load(d, identityResolve)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := f.Width(90); got != 250 {
		t.Fatalf("Width outside Widths range = %v, want MissingWidth 250", got)
	}
}

func TestDecodeSimpleFontIsOneBytePerCode(t *testing.T) {
	f := &Font{Subtype: Type1}
	codes := f.Decode([]byte("AB"))
	if len(codes) != 2 {
		t.Fatalf("Decode got %d codes, want 2", len(codes))
	}
	if codes[0].Code != 'A' || codes[0].Bytes != 1 {
		t.Fatalf("codes[0] = %+v, want Code='A' Bytes=1", codes[0])
	}
}

func TestDecodeType0IsTwoBytesPerCode(t *testing.T) {
	f := &Font{Subtype: Type0}
	codes := f.Decode([]byte{0x00, 0x41, 0x00, 0x42})
	if len(codes) != 2 {
		t.Fatalf("Decode got %d codes, want 2", len(codes))
	}
	if codes[0].Code != 0x0041 || codes[1].Code != 0x0042 {
		t.Fatalf("codes = %+v, want [0x41, 0x42]", codes)
	}
}

func TestGIDIdentityWithoutCIDToGIDMap(t *testing.T) {
	f := &Font{Subtype: Type0}
	if got := f.GID(42); got != 42 {
		t.Fatalf("GID(42) = %d, want 42 (identity)", got)
	}
}

func TestGIDUsesCIDToGIDMap(t *testing.T) {
	f := &Font{Subtype: Type0, cidToGID: map[int]int{5: 99}}
	if got := f.GID(5); got != 99 {
		t.Fatalf("GID(5) = %d, want 99", got)
	}
	if got := f.GID(6); got != 0 {
		t.Fatalf("GID(6) unmapped = %d, want 0", got)
	}
}

func TestType0DefaultWidthFallsBackTo1000(t *testing.T) {
	d := types.Dict{
		types.Name("Subtype"): types.Name("Type0"),
		types.Name("DescendantFonts"): types.Array{
			types.Dict{},
		},
	}
	f, err := Load(d, identityResolve)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := f.Width(1); got != 1000 {
		t.Fatalf("Width with no /W and no /DW = %v, want default 1000", got)
	}
}

func TestEncodingDifferencesGlyphNames(t *testing.T) {
	d := types.Dict{
		types.Name("Subtype"): types.Name("Type1"),
		types.Name("Encoding"): types.Dict{
			types.Name("Differences"): types.Array{
				types.Int(65), types.Name("A"), types.Name("B"), types.Name("C"),
			},
		},
	}
	f, err := Load(d, identityResolve)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name, ok := f.GlyphName(65); !ok || name != "A" {
		t.Fatalf("GlyphName(65) = %q,%v, want A,true", name, ok)
	}
	if name, ok := f.GlyphName(67); !ok || name != "C" {
		t.Fatalf("GlyphName(67) = %q,%v, want C,true (sequential after A,B)", name, ok)
	}
}

func TestToUnicodeWithoutCMapReturnsFalse(t *testing.T) {
	f := &Font{}
	if _, ok := f.ToUnicode(65); ok {
		t.Fatal("ToUnicode with no CMap reported ok=true")
	}
}

func TestParseCIDWidthsBothForms(t *testing.T) {
	out := map[int]float64{}
	arr := types.Array{
		types.Int(1), types.Array{types.Int(500), types.Int(600)},
		types.Int(10), types.Int(12), types.Int(800),
	}
	parseCIDWidths(arr, out, identityResolve)
	if out[1] != 500 || out[2] != 600 {
		t.Fatalf("consecutive-CID form: out[1]=%v out[2]=%v, want 500,600", out[1], out[2])
	}
	if out[10] != 800 || out[11] != 800 || out[12] != 800 {
		t.Fatalf("range form: out[10..12] = %v,%v,%v, want 800 each", out[10], out[11], out[12])
	}
}
