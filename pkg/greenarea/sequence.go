package greenarea

import "sync"

// Category names an id sequence.
type Category string

const (
	CategoryGreen     Category = "green"
	CategoryCut       Category = "cut"
	CategoryBuildable Category = "buildable"
)

// Sequence hands out _uid values per category. Values only grow and are never
// reused, even after the feature holding them is removed.
type Sequence struct {
	mu   sync.Mutex
	last map[Category]int
}

func NewSequence() *Sequence {
	return &Sequence{last: make(map[Category]int)}
}

// Next returns the next id of c.
func (s *Sequence) Next(c Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[c]++
	return s.last[c]
}

// Observe moves c past an id assigned elsewhere, such as one read back from a
// live layer, so Next never returns it.
func (s *Sequence) Observe(c Category, uid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid > s.last[c] {
		s.last[c] = uid
	}
}
