package capi

import "C"

import (
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/cookie"
	"github.com/Lexmata/micropdf-sub000/pkg/model"
)

func TestDocOfRejectsWrongType(t *testing.T) {
	h := store.Insert("NotADocument", 0, 42)
	if _, err := docOf(C.uint64_t(h)); err == nil {
		t.Fatal("docOf on a non-Document handle should error")
	}
	store.Drop(h)
}

func TestPageOfRejectsWrongType(t *testing.T) {
	h := store.Insert("NotAPage", 0, "oops")
	if _, err := pageOf(C.uint64_t(h)); err == nil {
		t.Fatal("pageOf on a non-Page handle should error")
	}
	store.Drop(h)
}

func TestPixmapOfRejectsWrongType(t *testing.T) {
	h := store.Insert("NotAPixmap", 0, 1.5)
	if _, err := pixmapOf(C.uint64_t(h)); err == nil {
		t.Fatal("pixmapOf on a non-Pixmap handle should error")
	}
	store.Drop(h)
}

func TestStextOfRejectsWrongType(t *testing.T) {
	h := store.Insert("NotAStext", 0, []byte("x"))
	if _, err := stextOf(C.uint64_t(h)); err == nil {
		t.Fatal("stextOf on a non-stext handle should error")
	}
	store.Drop(h)
}

func TestMpCookieNewAndAbortRoundTrip(t *testing.T) {
	var h C.uint64_t
	if code := mp_cookie_new(&h); code != C.int(model.OK) {
		t.Fatalf("mp_cookie_new code = %d, want OK", code)
	}
	v, err := store.Get(uint64(h))
	if err != nil {
		t.Fatalf("store.Get(cookie handle): %v", err)
	}
	ck, ok := v.(*cookie.Cookie)
	if !ok {
		t.Fatal("stored value is not a *cookie.Cookie")
	}
	if ck.Aborted() {
		t.Fatal("fresh cookie reports aborted")
	}
	if code := mp_cookie_abort(h); code != C.int(model.OK) {
		t.Fatalf("mp_cookie_abort code = %d, want OK", code)
	}
	if !ck.Aborted() {
		t.Fatal("mp_cookie_abort did not abort the underlying cookie")
	}
	mp_drop(h)
}

func TestMpDropOnInvalidHandleReturnsArgument(t *testing.T) {
	code := mp_drop(C.uint64_t(999999999))
	if code != C.int(model.Argument) {
		t.Fatalf("mp_drop on an invalid handle = %d, want Argument(%d)", code, model.Argument)
	}
}

func TestWriteBytesReportsRequiredLengthOnNilBuffer(t *testing.T) {
	data := []byte("hello world")
	var outLen C.size_t
	code := writeBytes(data, nil, 0, &outLen)
	if code != C.int(model.OK) {
		t.Fatalf("writeBytes code = %d, want OK", code)
	}
	if int(outLen) != len(data) {
		t.Fatalf("outLen = %d, want %d", outLen, len(data))
	}
}
