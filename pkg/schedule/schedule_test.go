package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCoalescesTriggersWithinFrame(t *testing.T) {
	frames := NewManualFrames()
	runs := 0
	c := NewCoalescer(frames, func() { runs++ })

	if !c.Schedule() {
		t.Fatal("first trigger should schedule")
	}
	for i := 0; i < 5; i++ {
		if c.Schedule() {
			t.Error("triggers while pending must be absorbed")
		}
	}
	if frames.Pending() != 1 {
		t.Errorf("expected one frame request, got %d", frames.Pending())
	}

	frames.Flush()
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if c.Pending() {
		t.Error("pending flag must clear after firing")
	}

	c.Schedule()
	frames.Flush()
	if runs != 2 {
		t.Errorf("runs = %d after second frame, want 2", runs)
	}
}

func TestWorkCanRescheduleItself(t *testing.T) {
	frames := NewManualFrames()
	runs := 0
	var c *Coalescer
	c = NewCoalescer(frames, func() {
		runs++
		if runs == 1 {
			if !c.Schedule() {
				t.Error("rescheduling from inside the work must succeed")
			}
		}
	})

	c.Schedule()
	frames.Flush()
	if !c.Pending() {
		t.Fatal("expected the rescheduled frame to be pending")
	}
	frames.Flush()
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestCancelDropsPendingRun(t *testing.T) {
	frames := NewManualFrames()
	runs := 0
	c := NewCoalescer(frames, func() { runs++ })

	c.Schedule()
	c.Cancel()
	if c.Pending() {
		t.Error("cancel must clear the pending flag")
	}
	if n := frames.Flush(); n != 0 {
		t.Errorf("cancelled callback ran (%d)", n)
	}
	if runs != 0 {
		t.Errorf("runs = %d, want 0", runs)
	}
}

func TestStaleFrameAfterCancelIsIgnored(t *testing.T) {
	// A source whose cancel is a no-op, like a frame already in flight.
	var queued []func()
	src := frameFunc(func(fn func()) func() {
		queued = append(queued, fn)
		return func() {}
	})
	runs := 0
	c := NewCoalescer(src, func() { runs++ })

	c.Schedule()
	c.Cancel()
	c.Schedule()
	for _, fn := range queued {
		fn()
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

type frameFunc func(fn func()) func()

func (f frameFunc) Request(fn func()) func() { return f(fn) }

func TestTimerFramesFire(t *testing.T) {
	var runs int32
	done := make(chan struct{})
	c := NewCoalescer(TimerFrames{Interval: time.Millisecond}, func() {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(done)
		}
	})
	c.Schedule()
	c.Schedule()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer frame never fired")
	}
	time.Sleep(10 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestTimerFramesCancel(t *testing.T) {
	var runs int32
	c := NewCoalescer(TimerFrames{Interval: 20 * time.Millisecond}, func() {
		atomic.AddInt32(&runs, 1)
	})
	c.Schedule()
	c.Cancel()
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 0 {
		t.Errorf("cancelled timer ran %d times", got)
	}
}

func TestEvents(t *testing.T) {
	for _, name := range Events() {
		if !Triggers(name) {
			t.Errorf("%s should trigger a recompute", name)
		}
	}
	if Triggers("draw.selectionchange") {
		t.Error("selection changes must not trigger")
	}
	if !IsEditEnd(EventDragEnd) || !IsEditEnd(EventEditEnd) {
		t.Error("drag end and edit end commit the layer")
	}
	if IsEditEnd(EventVertexDrag) {
		t.Error("vertex drag must not commit")
	}
}
