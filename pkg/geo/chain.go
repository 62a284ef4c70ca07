package geo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
)

// Step is one named attempt of a fallback chain. Run reports false when it
// produced no usable result.
type Step[T any] struct {
	Name string
	Run  func() (T, bool)
}

// Chain is an ordered list of strategies where the first acceptable result
// wins. Accept may be nil, in which case any result a step reports as ok is
// taken.
type Chain[T any] struct {
	Name   string
	Steps  []Step[T]
	Accept func(T) bool
}

// Run tries each step in order and returns the first accepted result together
// with the name of the step that produced it. A panicking step counts as a
// failed step.
func (c Chain[T]) Run() (T, string, bool) {
	for _, s := range c.Steps {
		out, ok := attempt(c.Name, s)
		if !ok {
			continue
		}
		if c.Accept != nil && !c.Accept(out) {
			continue
		}
		metrics.ChainOutcomes.WithLabelValues(c.Name, s.Name).Inc()
		return out, s.Name, true
	}
	metrics.ChainOutcomes.WithLabelValues(c.Name, "none").Inc()
	logger.Get().Debug("fallback chain exhausted", zap.String("chain", c.Name), zap.Int("steps", len(c.Steps)))
	var zero T
	return zero, "", false
}

func attempt[T any](chain string, s Step[T]) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Debug("fallback step panicked",
				zap.String("chain", chain),
				zap.String("step", s.Name),
				zap.String("panic", fmt.Sprint(r)))
			var zero T
			out, ok = zero, false
		}
	}()
	return s.Run()
}

// safely runs fn and converts a panic into ok == false.
func safely[T any](fn func() T) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, ok = zero, false
		}
	}()
	return fn(), true
}
