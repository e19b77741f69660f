// Package pdfbuf implements a growable, copy-on-write byte buffer used
// as the backing store for in-memory PDF sources and decoded streams.
package pdfbuf

// Buffer is a byte container that may be shared by multiple owners.
// Appending to a shared Buffer clones the backing array first, so a
// mutation never becomes visible through another sharer's view.
type Buffer struct {
	data   []byte
	shared bool
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// FromData returns a buffer that owns a copy of data.
func FromData(data []byte) *Buffer {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Buffer{data: cp}
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the buffer's current capacity.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Bytes returns the buffer's contents. Callers must not mutate the
// returned slice; use Clone or CloneBytes to get a private copy.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Clone returns a new Buffer holding a private copy of b's contents.
func (b *Buffer) Clone() *Buffer {
	return FromData(b.data)
}

// CloneBytes returns a private copy of b's contents as a plain slice.
func (b *Buffer) CloneBytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

// Share marks b as shared: the next Append will clone before mutating.
// Share returns b itself so a second owner can hold the same pointer;
// true copy-on-write sharing between independent owners additionally
// requires each owner to hold its own *Buffer wrapping the same Bytes
// via FromData, which is why Append always checks the shared flag
// rather than a reference count.
func (b *Buffer) Share() *Buffer {
	b.shared = true
	return b
}

// Append adds p to the buffer, cloning the backing array first if the
// buffer has been marked shared (copy-on-write).
func (b *Buffer) Append(p []byte) {
	if b.shared {
		cp := make([]byte, len(b.data), len(b.data)+len(p))
		copy(cp, b.data)
		b.data = cp
		b.shared = false
	}
	b.data = append(b.data, p...)
}

// Reset empties the buffer without releasing its capacity.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.shared = false
}
