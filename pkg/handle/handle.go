// Package handle implements the Handle / FFI layer of spec.md §4.11:
// a process-wide, sharded-mutex store mapping opaque 64-bit ids to
// refcounted owners, so the C-ABI surface (pkg/capi) can hand foreign
// callers an id instead of a raw pointer. pdfcpu has no FFI layer to
// adapt (it's a pure Go library), so this is built directly from the
// spec's insert/get/drop/keep contract. The store's own sharded locks
// synchronize concurrent callers; pkg/model takes no locks of its own.
package handle

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lexmata/micropdf-sub000/pkg/model"
)

const shardCount = 32

// entry is one live handle: its value, a refcount, and (when leak
// detection is enabled) enough provenance to report it as a leak.
type entry struct {
	value    interface{}
	typeName string
	size     int
	refs     int64
	created  time.Time
	stack    []uintptr
}

type shard struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

// Store is the process-wide handle table. The zero value is not
// usable; construct with New.
type Store struct {
	shards     [shardCount]shard
	nextID     uint64
	leakDetect int32 // atomic bool
}

// New returns an empty Store. Ids start at 1 so the zero value of a
// uint64 handle field is never a valid, live id.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[uint64]*entry)
	}
	s.nextID = 0
	return s
}

// EnableLeakDetection turns on per-handle stack-trace capture, per
// spec.md §4.11's "Leak detection, when enabled in a debug mode,
// records the resource type, size, and a stack trace for each live
// handle". It is off by default since capturing a stack on every
// insert is not free.
func (s *Store) EnableLeakDetection(on bool) {
	v := int32(0)
	if on {
		v = 1
	}
	atomic.StoreInt32(&s.leakDetect, v)
}

func (s *Store) shardFor(id uint64) *shard {
	return &s.shards[id%shardCount]
}

// Insert stores value under a new id, unique for the process
// lifetime, with refcount 1. typeName and size are advisory, used
// only for leak reporting.
func (s *Store) Insert(typeName string, size int, value interface{}) uint64 {
	id := atomic.AddUint64(&s.nextID, 1)
	e := &entry{value: value, typeName: typeName, size: size, refs: 1, created: time.Now()}
	if atomic.LoadInt32(&s.leakDetect) != 0 {
		e.stack = captureStack()
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.entries[id] = e
	sh.mu.Unlock()
	return id
}

func captureStack() []uintptr {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

// Get returns the shared value stored under id, or an Argument error
// if id is missing or was already dropped, per spec.md §4.11's
// "missing/invalid id returns a sentinel and surfaces Argument".
func (s *Store) Get(id uint64) (interface{}, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	sh.mu.Unlock()
	if !ok {
		return nil, model.New(model.Argument, "handle: invalid or dropped handle %d", id)
	}
	return e.value, nil
}

// Keep increments id's refcount without allocating a new id, for
// bindings that need independent drop tracking of a shared owner.
func (s *Store) Keep(id uint64) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[id]
	if !ok {
		return model.New(model.Argument, "handle: invalid or dropped handle %d", id)
	}
	atomic.AddInt64(&e.refs, 1)
	return nil
}

// closer is implemented by core values that own a resource needing
// explicit release (e.g. an open Document's file handle).
type closer interface {
	Close() error
}

// Drop decrements id's refcount, destructing the owner (calling
// Close if it implements closer) when it reaches zero. Per spec.md
// §8's property 12, the id is never reused: a later Insert always
// returns a strictly greater id, and any further op on a dropped id
// returns Argument.
func (s *Store) Drop(id uint64) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if !ok {
		sh.mu.Unlock()
		return model.New(model.Argument, "handle: invalid or dropped handle %d", id)
	}
	remaining := atomic.AddInt64(&e.refs, -1)
	if remaining <= 0 {
		delete(sh.entries, id)
	}
	sh.mu.Unlock()

	if remaining <= 0 {
		if c, ok := e.value.(closer); ok {
			return c.Close()
		}
	}
	return nil
}

// Len returns the number of live handles, for diagnostics and tests.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += len(s.shards[i].entries)
		s.shards[i].mu.Unlock()
	}
	return n
}

// LiveHandle is one leak report entry.
type LiveHandle struct {
	ID    uint64
	Type  string
	Size  int
	Age   time.Duration
	Stack []uintptr
}

// LiveHandles reports every handle older than minAge, for a debug
// build's leak report. Populating Stack requires EnableLeakDetection
// to have been on at insert time; otherwise Stack is nil.
func (s *Store) LiveHandles(minAge time.Duration) []LiveHandle {
	now := time.Now()
	var out []LiveHandle
	for i := range s.shards {
		s.shards[i].mu.Lock()
		for id, e := range s.shards[i].entries {
			age := now.Sub(e.created)
			if age >= minAge {
				out = append(out, LiveHandle{ID: id, Type: e.typeName, Size: e.size, Age: age, Stack: e.stack})
			}
		}
		s.shards[i].mu.Unlock()
	}
	return out
}

// FormatStack renders a captured stack trace the way a leak report
// would print it, one function name per frame (file and line are not
// included).
func FormatStack(pcs []uintptr) []string {
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	var out []string
	for {
		f, more := frames.Next()
		out = append(out, f.Function)
		if !more {
			break
		}
	}
	return out
}
