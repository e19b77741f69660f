package handle

import (
	"testing"
	"time"

	"github.com/Lexmata/micropdf-sub000/pkg/model"
)

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := New()
	id := s.Insert("string", 0, "hello")
	v, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "hello" {
		t.Fatalf("Get returned %v, want %q", v, "hello")
	}
}

func TestGetOnMissingHandleReturnsArgument(t *testing.T) {
	s := New()
	_, err := s.Get(999)
	if model.CodeOf(err) != model.Argument {
		t.Fatalf("CodeOf(Get on missing handle) = %v, want Argument", model.CodeOf(err))
	}
}

func TestDropDestructsOnZeroRefcount(t *testing.T) {
	s := New()
	rec := &closeRecorder{}
	id := s.Insert("closer", 0, rec)
	if err := s.Drop(id); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if !rec.closed {
		t.Fatal("Drop at refcount 0 did not call Close")
	}
	if _, err := s.Get(id); err == nil {
		t.Fatal("Get on a dropped handle should error")
	}
}

func TestKeepDelaysDestructionUntilBothDropsHappen(t *testing.T) {
	s := New()
	rec := &closeRecorder{}
	id := s.Insert("closer", 0, rec)
	if err := s.Keep(id); err != nil {
		t.Fatalf("Keep: %v", err)
	}
	if err := s.Drop(id); err != nil {
		t.Fatalf("first Drop: %v", err)
	}
	if rec.closed {
		t.Fatal("Close called after only one of two Drops")
	}
	if err := s.Drop(id); err != nil {
		t.Fatalf("second Drop: %v", err)
	}
	if !rec.closed {
		t.Fatal("Close not called after refcount reached zero")
	}
}

func TestDropOnUnknownHandleReturnsArgument(t *testing.T) {
	s := New()
	err := s.Drop(12345)
	if model.CodeOf(err) != model.Argument {
		t.Fatalf("CodeOf(Drop on unknown handle) = %v, want Argument", model.CodeOf(err))
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	s := New()
	id1 := s.Insert("a", 0, 1)
	if err := s.Drop(id1); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	id2 := s.Insert("b", 0, 2)
	if id2 <= id1 {
		t.Fatalf("second Insert returned id %d, want strictly greater than dropped id %d", id2, id1)
	}
}

func TestLenTracksLiveHandles(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("fresh Store.Len() = %d, want 0", s.Len())
	}
	id := s.Insert("a", 0, 1)
	if s.Len() != 1 {
		t.Fatalf("Store.Len() after one Insert = %d, want 1", s.Len())
	}
	s.Drop(id)
	if s.Len() != 0 {
		t.Fatalf("Store.Len() after Drop = %d, want 0", s.Len())
	}
}

func TestLiveHandlesReportsOldEnoughEntries(t *testing.T) {
	s := New()
	id := s.Insert("widget", 7, "v")
	live := s.LiveHandles(0)
	var found bool
	for _, h := range live {
		if h.ID == id {
			found = true
			if h.Type != "widget" || h.Size != 7 {
				t.Fatalf("LiveHandle = %+v, want Type=widget Size=7", h)
			}
		}
	}
	if !found {
		t.Fatalf("LiveHandles(0) did not include handle %d", id)
	}
	if future := s.LiveHandles(time.Hour); len(future) != 0 {
		t.Fatalf("LiveHandles(1h) = %d entries, want 0 for a freshly inserted handle", len(future))
	}
}

func TestLiveHandlesStackNilWithoutLeakDetection(t *testing.T) {
	s := New()
	s.Insert("a", 0, 1)
	for _, h := range s.LiveHandles(0) {
		if h.Stack != nil {
			t.Fatalf("Stack = %v, want nil with leak detection disabled", h.Stack)
		}
	}
}

func TestLiveHandlesStackPopulatedWithLeakDetection(t *testing.T) {
	s := New()
	s.EnableLeakDetection(true)
	s.Insert("a", 0, 1)
	var sawStack bool
	for _, h := range s.LiveHandles(0) {
		if len(h.Stack) > 0 {
			sawStack = true
		}
	}
	if !sawStack {
		t.Fatal("no live handle had a captured stack with leak detection enabled")
	}
}

func TestFormatStackEmptyForNilStack(t *testing.T) {
	if got := FormatStack(nil); got != nil {
		t.Fatalf("FormatStack(nil) = %v, want nil", got)
	}
}

func TestFormatStackRendersFrames(t *testing.T) {
	s := New()
	s.EnableLeakDetection(true)
	s.Insert("a", 0, 1)
	live := s.LiveHandles(0)
	if len(live) == 0 {
		t.Fatal("no live handles to format")
	}
	frames := FormatStack(live[0].Stack)
	if len(frames) == 0 {
		t.Fatal("FormatStack produced no frames for a captured stack")
	}
}
