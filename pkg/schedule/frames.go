package schedule

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameSource runs a callback on the next frame. The returned cancel stops
// the callback if it has not run yet.
type FrameSource interface {
	Request(fn func()) (cancel func())
}

// TimerFrames fires frames from a timer goroutine.
type TimerFrames struct {
	Interval time.Duration
}

func (t TimerFrames) Request(fn func()) func() {
	d := t.Interval
	if d <= 0 {
		d = DefaultFrameInterval
	}
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

// ManualFrames queues callbacks until Flush. It drives frames in tests and
// in the CLI, where there is no display.
type ManualFrames struct {
	mu    sync.Mutex
	next  int
	queue map[int]func()
	order []int
}

func NewManualFrames() *ManualFrames {
	return &ManualFrames{queue: make(map[int]func())}
}

func (m *ManualFrames) Request(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := m.next
	m.queue[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.queue, id)
	}
}

// Flush runs every callback requested before the call and returns how many
// ran. Callbacks requested while flushing wait for the next Flush.
func (m *ManualFrames) Flush() int {
	m.mu.Lock()
	order := m.order
	m.order = nil
	fns := make([]func(), 0, len(order))
	for _, id := range order {
		if fn, ok := m.queue[id]; ok {
			fns = append(fns, fn)
			delete(m.queue, id)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of callbacks waiting for Flush.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
