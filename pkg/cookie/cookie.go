// Package cookie implements the cancellation/progress token threaded
// through long-running operations (page rendering, text extraction):
// a monotonic progress counter and a one-way abort flag, per spec.md
// §5's "Cancellation & timeouts" concurrency model. It mirrors
// pdfcpu's configuration-struct idiom (a small, internally
// synchronized value passed by pointer to long walks) rather than any
// single teacher file, since the teacher has no cancellation concept
// of its own.
package cookie

import "sync/atomic"

// Cookie carries cross-goroutine cancellation state into the content
// interpreter and rasterizer. The interpreter polls Aborted at
// operator boundaries; the rasterizer polls it between scanlines.
type Cookie struct {
	progress   atomic.Int64
	errorCount atomic.Int64
	aborted    atomic.Bool
}

// New returns a fresh, non-aborted Cookie.
func New() *Cookie {
	return &Cookie{}
}

// Abort sets the abort flag. Once set it is never cleared, per
// spec.md §5 ("setting abort is one-way").
func (c *Cookie) Abort() {
	if c == nil {
		return
	}
	c.aborted.Store(true)
}

// Aborted reports whether Abort has been called. A nil Cookie is
// never aborted, so callers may pass nil to mean "no cancellation".
func (c *Cookie) Aborted() bool {
	return c != nil && c.aborted.Load()
}

// AdvanceProgress increments the progress counter by n and returns
// the new value.
func (c *Cookie) AdvanceProgress(n int64) int64 {
	if c == nil {
		return 0
	}
	return c.progress.Add(n)
}

// Progress returns the current progress counter value.
func (c *Cookie) Progress() int64 {
	if c == nil {
		return 0
	}
	return c.progress.Load()
}

// RecordError increments the error count, for operations that keep
// going after a recoverable failure (spec.md §7's "local recovery").
func (c *Cookie) RecordError() int64 {
	if c == nil {
		return 0
	}
	return c.errorCount.Add(1)
}

// ErrorCount returns the number of recorded recoverable errors.
func (c *Cookie) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorCount.Load()
}
