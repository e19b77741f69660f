package content

import (
	"strings"
	"testing"

	"github.com/Lexmata/micropdf-sub000/pkg/cookie"
	"github.com/Lexmata/micropdf-sub000/pkg/device"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/model"
)

// samplePage builds a real in-memory *model.Document/*model.Page pair
// around the given content-stream body, following
// pkg/model/document_test.go's hand-written-PDF fixture pattern.
func samplePage(t *testing.T, body string) *model.Page {
	t.Helper()
	pdf := "%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Contents 4 0 R /Resources << >> >>\nendobj\n" +
		"4 0 obj\n<< /Length " + itoa(len(body)) + " >>\nstream\n" + body + "\nendstream\nendobj\n" +
		"%%EOF\n"
	d, err := model.Open([]byte(pdf), model.OpenOptions{})
	if err != nil {
		t.Fatalf("model.Open: %v", err)
	}
	p, err := d.LoadPage(0)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	return p
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestRunPageFillsRectAgainstBBox(t *testing.T) {
	page := samplePage(t, "1 0 0 RG 0 0 0 rg 10 10 50 50 re f")
	bbox := device.NewBBox()
	ip := New(page.Document(), bbox, cookie.New())
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	want := geom.Rect{X0: 10, Y0: 10, X1: 60, Y1: 60}
	if bbox.Bounds != want {
		t.Fatalf("BBox.Bounds = %v, want %v", bbox.Bounds, want)
	}
}

func TestRunPageRecordsFillAndClipCallsInOrder(t *testing.T) {
	page := samplePage(t, "q 0 0 100 100 re W n 0 0 0 rg 1 1 2 2 re f Q")
	list := &device.List{}
	ip := New(page.Document(), list, cookie.New())
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	var sawClip, sawFill, sawPopClip bool
	for _, c := range list.Calls {
		switch c.Kind {
		case device.CallClipPath:
			sawClip = true
		case device.CallFillPath:
			sawFill = true
		case device.CallPopClip:
			sawPopClip = true
		}
	}
	if !sawClip || !sawFill {
		t.Fatalf("recorded %d calls, want a ClipPath and a FillPath among them", len(list.Calls))
	}
	// Q pops the graphics state and must issue a matching PopClip.
	if !sawPopClip {
		t.Fatalf("recorded %d calls, want a PopClip from Q", len(list.Calls))
	}
}

func TestRunPageCTMConcatenation(t *testing.T) {
	page := samplePage(t, "2 0 0 2 5 5 cm 0 0 0 rg 0 0 1 1 re f")
	list := &device.List{}
	ip := New(page.Document(), list, cookie.New())
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	var fillCTM *geom.Matrix
	for _, c := range list.Calls {
		if c.Kind == device.CallFillPath {
			m := c.CTM
			fillCTM = &m
			break
		}
	}
	if fillCTM == nil {
		t.Fatal("no FillPath call recorded")
	}
	want := geom.Matrix{A: 2, B: 0, C: 0, D: 2, E: 5, F: 5}
	if *fillCTM != want {
		t.Fatalf("fill CTM = %v, want %v (cm concatenated onto identity base)", *fillCTM, want)
	}
}

func TestQOverflowRecordsErrorAndStopsGrowing(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxGStateDepth+5; i++ {
		b.WriteString("q ")
	}
	page := samplePage(t, b.String())
	ck := cookie.New()
	ip := New(page.Document(), device.NewBBox(), ck)
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	if len(ip.gsStack) != maxGStateDepth {
		t.Fatalf("gsStack depth = %d, want capped at %d", len(ip.gsStack), maxGStateDepth)
	}
	if ck.ErrorCount() == 0 {
		t.Fatal("expected RecordError to have been called for the q overflow")
	}
}

func TestQWithoutMatchingPushRecordsError(t *testing.T) {
	page := samplePage(t, "Q")
	ck := cookie.New()
	ip := New(page.Document(), device.NewBBox(), ck)
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	if ck.ErrorCount() == 0 {
		t.Fatal("expected RecordError to have been called for the unmatched Q")
	}
}

func TestAbortedCookieStopsInterpretationEarly(t *testing.T) {
	page := samplePage(t, "0 0 0 rg 0 0 1 1 re f 0 0 0 rg 10 10 1 1 re f")
	ck := cookie.New()
	ck.Abort()
	list := &device.List{}
	ip := New(page.Document(), list, ck)
	if err := ip.RunPage(page, geom.Identity); err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	if len(list.Calls) != 0 {
		t.Fatalf("aborted interpreter recorded %d calls, want 0", len(list.Calls))
	}
}
