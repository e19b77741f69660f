package pdfbuf

import "testing"

func TestAppendOnSharedBufferCopiesFirst(t *testing.T) {
	b := FromData([]byte("hello"))
	shared := b.Share()
	before := shared.Bytes()

	snapshot := make([]byte, len(before))
	copy(snapshot, before)

	shared.Append([]byte(" world"))

	for i := range snapshot {
		if before[i] != snapshot[i] {
			t.Fatalf("append on shared buffer mutated the pre-append view at %d", i)
		}
	}
	if got := string(shared.Bytes()); got != "hello world" {
		t.Fatalf("Bytes() = %q, want %q", got, "hello world")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := FromData([]byte("abc"))
	c := b.Clone()
	c.Append([]byte("def"))
	if b.Len() != 3 {
		t.Fatalf("original buffer mutated by clone append: len=%d", b.Len())
	}
	if c.Len() != 6 {
		t.Fatalf("clone not extended: len=%d", c.Len())
	}
}
