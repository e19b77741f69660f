package cookie

import "testing"

func TestAbortIsOneWay(t *testing.T) {
	c := New()
	if c.Aborted() {
		t.Fatal("fresh cookie reports aborted")
	}
	c.Abort()
	if !c.Aborted() {
		t.Fatal("Abort did not set the flag")
	}
	c.Abort()
	if !c.Aborted() {
		t.Fatal("second Abort cleared the flag")
	}
}

func TestNilCookieIsInert(t *testing.T) {
	var c *Cookie
	if c.Aborted() {
		t.Fatal("nil cookie reports aborted")
	}
	if got := c.AdvanceProgress(5); got != 0 {
		t.Fatalf("AdvanceProgress on nil = %d, want 0", got)
	}
	if got := c.Progress(); got != 0 {
		t.Fatalf("Progress on nil = %d, want 0", got)
	}
	if got := c.RecordError(); got != 0 {
		t.Fatalf("RecordError on nil = %d, want 0", got)
	}
	if got := c.ErrorCount(); got != 0 {
		t.Fatalf("ErrorCount on nil = %d, want 0", got)
	}
	c.Abort() // must not panic
}

func TestProgressAndErrorCounters(t *testing.T) {
	c := New()
	if got := c.AdvanceProgress(3); got != 3 {
		t.Fatalf("AdvanceProgress(3) = %d, want 3", got)
	}
	if got := c.AdvanceProgress(4); got != 7 {
		t.Fatalf("AdvanceProgress(4) = %d, want 7", got)
	}
	if got := c.Progress(); got != 7 {
		t.Fatalf("Progress() = %d, want 7", got)
	}

	c.RecordError()
	c.RecordError()
	if got := c.ErrorCount(); got != 2 {
		t.Fatalf("ErrorCount() = %d, want 2", got)
	}
}
