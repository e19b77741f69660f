// Package capi implements the C-ABI surface of spec.md §6: every
// public core operation exposed as a cgo-exported C function taking
// and returning opaque 64-bit handles (pkg/handle) and primitive
// point/rect/matrix/quad structs with a fixed, predictable field
// order. It is the only package depending on cgo, per SPEC_FULL.md's
// "pkg/capi is the only package depending on cgo; all others are pure
// Go and independently testable". The cgo plumbing (C.CString,
// C.GoBytes, unsafe.Pointer buffer copies) mirrors the direction
// gen2brain-go-fitz's fitz_cgo.go uses to call into libmupdf, reversed
// here to call out of Go into a caller's C/FFI code instead.
package capi

/*
#include <stddef.h>

typedef struct { double x, y; } mp_point;
typedef struct { double x0, y0, x1, y1; } mp_rect;
typedef struct { double a, b, c, d, e, f; } mp_matrix;
typedef struct { mp_point ul, ur, ll, lr; } mp_quad;
*/
import "C"

import (
	"unsafe"

	"github.com/Lexmata/micropdf-sub000/pkg/content"
	"github.com/Lexmata/micropdf-sub000/pkg/cookie"
	"github.com/Lexmata/micropdf-sub000/pkg/draw"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/handle"
	"github.com/Lexmata/micropdf-sub000/pkg/model"
	pdfcolor "github.com/Lexmata/micropdf-sub000/pkg/color"
	"github.com/Lexmata/micropdf-sub000/pkg/pixmap"
	"github.com/Lexmata/micropdf-sub000/pkg/stext"
)

// store is the process-wide handle table backing every exported
// function below. A single Store is safe across concurrent callers,
// per spec.md §4.11 ("Handle store: internally synchronized").
var store = handle.New()

// errCode maps a Go error onto spec.md §6's stable code table.
func errCode(err error) C.int {
	return C.int(model.CodeOf(err))
}

// recoverToGeneric is deferred first in every exported function,
// converting a panic in the rasterizer or elsewhere into GENERIC at
// the FFI boundary rather than letting it cross into C, per spec.md
// §7 ("panic in rasterizer ... must be caught at the FFI boundary").
func recoverToGeneric(out *C.int) {
	if r := recover(); r != nil {
		*out = C.int(model.Generic)
	}
}

func matrixFromC(m C.mp_matrix) geom.Matrix {
	return geom.Matrix{A: float64(m.a), B: float64(m.b), C: float64(m.c), D: float64(m.d), E: float64(m.e), F: float64(m.f)}
}

func rectToC(r geom.Rect) C.mp_rect {
	return C.mp_rect{x0: C.double(r.X0), y0: C.double(r.Y0), x1: C.double(r.X1), y1: C.double(r.Y1)}
}

func pointToC(p geom.Point) C.mp_point {
	return C.mp_point{x: C.double(p.X), y: C.double(p.Y)}
}

func quadToC(q geom.Quad) C.mp_quad {
	return C.mp_quad{ul: pointToC(q.UL), ur: pointToC(q.UR), ll: pointToC(q.LL), lr: pointToC(q.LR)}
}

// writeBytes copies data into the caller-owned buf (capacity bufLen),
// writing the full required length to outLen regardless of whether it
// fit, per spec.md §6's "string returns are written into
// caller-provided buffers with a size argument, returning the
// required length".
func writeBytes(data []byte, buf *C.char, bufLen C.size_t, outLen *C.size_t) C.int {
	if outLen != nil {
		*outLen = C.size_t(len(data))
	}
	if len(data) == 0 {
		return C.int(model.OK)
	}
	if buf == nil || bufLen == 0 {
		return C.int(model.OK)
	}
	n := len(data)
	if C.size_t(n) > bufLen {
		n = int(bufLen)
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), n)
	copy(dst, data[:n])
	return C.int(model.OK)
}

func writeString(s string, buf *C.char, bufLen C.size_t, outLen *C.size_t) C.int {
	return writeBytes([]byte(s), buf, bufLen, outLen)
}

//export mp_open
func mp_open(data *C.char, length C.size_t, password *C.char, outDoc *C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	buf := C.GoBytes(unsafe.Pointer(data), C.int(length))
	doc, err := model.Open(buf, model.OpenOptions{Password: C.GoString(password), Tolerant: true})
	if err != nil {
		return errCode(err)
	}
	*outDoc = C.uint64_t(store.Insert("Document", len(buf), doc))
	return C.int(model.OK)
}

//export mp_close
func mp_close(docHandle C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	if err := store.Drop(uint64(docHandle)); err != nil {
		return errCode(err)
	}
	return C.int(model.OK)
}

//export mp_needs_password
func mp_needs_password(docHandle C.uint64_t, out *C.int) (code C.int) {
	defer recoverToGeneric(&code)
	doc, err := docOf(docHandle)
	if err != nil {
		return errCode(err)
	}
	if doc.NeedsPassword() {
		*out = 1
	} else {
		*out = 0
	}
	return C.int(model.OK)
}

//export mp_authenticate
func mp_authenticate(docHandle C.uint64_t, password *C.char, out *C.int) (code C.int) {
	defer recoverToGeneric(&code)
	doc, err := docOf(docHandle)
	if err != nil {
		return errCode(err)
	}
	ok, err := doc.Authenticate(C.GoString(password))
	if err != nil {
		return errCode(err)
	}
	if ok {
		*out = 1
	} else {
		*out = 0
	}
	return C.int(model.OK)
}

//export mp_page_count
func mp_page_count(docHandle C.uint64_t, out *C.int) (code C.int) {
	defer recoverToGeneric(&code)
	doc, err := docOf(docHandle)
	if err != nil {
		return errCode(err)
	}
	*out = C.int(doc.PageCount())
	return C.int(model.OK)
}

//export mp_load_page
func mp_load_page(docHandle C.uint64_t, n C.int, outPage *C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	doc, err := docOf(docHandle)
	if err != nil {
		return errCode(err)
	}
	page, err := doc.LoadPage(int(n))
	if err != nil {
		return errCode(err)
	}
	*outPage = C.uint64_t(store.Insert("Page", 0, page))
	return C.int(model.OK)
}

//export mp_page_bounds
func mp_page_bounds(pageHandle C.uint64_t, out *C.mp_rect) (code C.int) {
	defer recoverToGeneric(&code)
	page, err := pageOf(pageHandle)
	if err != nil {
		return errCode(err)
	}
	r, err := page.Bounds()
	if err != nil {
		return errCode(err)
	}
	*out = rectToC(r)
	return C.int(model.OK)
}

// mp_render_page rasterizes page into a freshly allocated RGB Pixmap
// under ctm, returning a new pixmap handle. cookieHandle may be 0 for
// an uncancellable render.
//
//export mp_render_page
func mp_render_page(pageHandle C.uint64_t, ctm C.mp_matrix, width, height C.int, cookieHandle C.uint64_t, outPixmap *C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	page, err := pageOf(pageHandle)
	if err != nil {
		return errCode(err)
	}

	ck := cookie.New()
	if cookieHandle != 0 {
		if v, err := store.Get(uint64(cookieHandle)); err == nil {
			if c, ok := v.(*cookie.Cookie); ok {
				ck = c
			}
		}
	}

	px := pixmap.New(int(width), int(height), pdfcolor.RGB, false)
	px.Clear(0xff)
	dev := draw.New(px, draw.AAHigh)

	mb, err := page.Bounds()
	if err != nil {
		return errCode(err)
	}
	m := matrixFromC(ctm)
	dev.BeginPage(mb, m)
	defer dev.EndPage()

	interp := content.New(page.Document(), dev, ck)
	if err := interp.RunPage(page, m); err != nil {
		return errCode(err)
	}

	*outPixmap = C.uint64_t(store.Insert("Pixmap", len(px.Samples), px))
	return C.int(model.OK)
}

//export mp_pixmap_dimensions
func mp_pixmap_dimensions(pixmapHandle C.uint64_t, outW, outH *C.int) (code C.int) {
	defer recoverToGeneric(&code)
	px, err := pixmapOf(pixmapHandle)
	if err != nil {
		return errCode(err)
	}
	*outW = C.int(px.Width)
	*outH = C.int(px.Height)
	return C.int(model.OK)
}

//export mp_pixmap_encode_png
func mp_pixmap_encode_png(pixmapHandle C.uint64_t, buf *C.char, bufLen C.size_t, outLen *C.size_t) (code C.int) {
	defer recoverToGeneric(&code)
	px, err := pixmapOf(pixmapHandle)
	if err != nil {
		return errCode(err)
	}
	png, err := px.EncodePNG()
	if err != nil {
		return errCode(err)
	}
	return writeBytes(png, buf, bufLen, outLen)
}

//export mp_stext_extract
func mp_stext_extract(pageHandle C.uint64_t, outStext *C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	page, err := pageOf(pageHandle)
	if err != nil {
		return errCode(err)
	}

	sp := stext.NewPage(stext.DefaultTolerances)
	dev := sp.Device()
	interp := content.New(page.Document(), dev, cookie.New())
	if err := interp.RunPage(page, geom.Identity); err != nil {
		return errCode(err)
	}

	*outStext = C.uint64_t(store.Insert("StructuredText", 0, sp))
	return C.int(model.OK)
}

//export mp_stext_text
func mp_stext_text(stextHandle C.uint64_t, buf *C.char, bufLen C.size_t, outLen *C.size_t) (code C.int) {
	defer recoverToGeneric(&code)
	sp, err := stextOf(stextHandle)
	if err != nil {
		return errCode(err)
	}
	return writeString(sp.Text(), buf, bufLen, outLen)
}

// mp_stext_search writes up to maxQuads match quads (one per match,
// multi-line matches truncated to their first fragment) into quads
// and returns the total match count in outCount, matching spec.md
// §6's caller-buffer convention.
//
//export mp_stext_search
func mp_stext_search(stextHandle C.uint64_t, needle *C.char, foldCase C.int, quads *C.mp_quad, maxQuads C.int, outCount *C.int) (code C.int) {
	defer recoverToGeneric(&code)
	sp, err := stextOf(stextHandle)
	if err != nil {
		return errCode(err)
	}
	matches := sp.Search(C.GoString(needle), foldCase != 0)
	*outCount = C.int(len(matches))
	if quads == nil || maxQuads == 0 {
		return C.int(model.OK)
	}
	n := len(matches)
	if C.int(n) > maxQuads {
		n = int(maxQuads)
	}
	out := unsafe.Slice(quads, n)
	for i := 0; i < n; i++ {
		if len(matches[i].Quads) > 0 {
			out[i] = quadToC(matches[i].Quads[0])
		}
	}
	return C.int(model.OK)
}

//export mp_cookie_new
func mp_cookie_new(outHandle *C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	ck := cookie.New()
	*outHandle = C.uint64_t(store.Insert("Cookie", 0, ck))
	return C.int(model.OK)
}

//export mp_cookie_abort
func mp_cookie_abort(cookieHandle C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	v, err := store.Get(uint64(cookieHandle))
	if err != nil {
		return errCode(err)
	}
	ck, ok := v.(*cookie.Cookie)
	if !ok {
		return C.int(model.Argument)
	}
	ck.Abort()
	return C.int(model.OK)
}

// mp_drop releases any handle returned by this package, regardless of
// its underlying type, per spec.md §4.11's generic drop/refcount
// contract.
//
//export mp_drop
func mp_drop(h C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	if err := store.Drop(uint64(h)); err != nil {
		return errCode(err)
	}
	return C.int(model.OK)
}

//export mp_keep
func mp_keep(h C.uint64_t) (code C.int) {
	defer recoverToGeneric(&code)
	if err := store.Keep(uint64(h)); err != nil {
		return errCode(err)
	}
	return C.int(model.OK)
}

func docOf(h C.uint64_t) (*model.Document, error) {
	v, err := store.Get(uint64(h))
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*model.Document)
	if !ok {
		return nil, model.New(model.Argument, "capi: handle %d is not a Document", uint64(h))
	}
	return doc, nil
}

func pageOf(h C.uint64_t) (*model.Page, error) {
	v, err := store.Get(uint64(h))
	if err != nil {
		return nil, err
	}
	page, ok := v.(*model.Page)
	if !ok {
		return nil, model.New(model.Argument, "capi: handle %d is not a Page", uint64(h))
	}
	return page, nil
}

func pixmapOf(h C.uint64_t) (*pixmap.Pixmap, error) {
	v, err := store.Get(uint64(h))
	if err != nil {
		return nil, err
	}
	px, ok := v.(*pixmap.Pixmap)
	if !ok {
		return nil, model.New(model.Argument, "capi: handle %d is not a Pixmap", uint64(h))
	}
	return px, nil
}

func stextOf(h C.uint64_t) (*stext.Page, error) {
	v, err := store.Get(uint64(h))
	if err != nil {
		return nil, err
	}
	sp, ok := v.(*stext.Page)
	if !ok {
		return nil, model.New(model.Argument, "capi: handle %d is not a structured-text page", uint64(h))
	}
	return sp, nil
}

