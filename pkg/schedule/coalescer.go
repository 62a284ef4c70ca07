// Package schedule batches edit events into at most one recomputation per
// frame.
package schedule

import (
	"sync"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
)

// Coalescer is a trailing debounce to the next frame. Triggers while a frame
// is pending are dropped. The pending flag is cleared before work runs, so
// work may schedule the next frame itself.
type Coalescer struct {
	frames FrameSource
	work   func()

	mu      sync.Mutex
	pending bool
	gen     uint64
	cancel  func()
}

// NewCoalescer returns a coalescer running work on frames.
func NewCoalescer(frames FrameSource, work func()) *Coalescer {
	if frames == nil {
		frames = TimerFrames{}
	}
	return &Coalescer{frames: frames, work: work}
}

// Schedule requests a run on the next frame. It reports false when a run was
// already pending and this trigger was absorbed.
func (c *Coalescer) Schedule() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		metrics.CoalescedTriggers.Inc()
		return false
	}
	c.pending = true
	c.gen++
	gen := c.gen
	c.cancel = c.frames.Request(func() { c.fire(gen) })
	return true
}

func (c *Coalescer) fire(gen uint64) {
	c.mu.Lock()
	if !c.pending || gen != c.gen {
		// cancelled, or superseded after a cancel
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.cancel = nil
	c.mu.Unlock()

	c.work()
}

// Cancel drops the pending run, if any.
func (c *Coalescer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending = false
	c.gen++
}

// Pending reports whether a run is scheduled.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
