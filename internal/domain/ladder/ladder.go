// Package ladder maps a numeric score onto an ordered list of threshold bands.
//
// A Ladder is evaluated top-down: the first step whose lower bound is at or
// below the score wins, so bands are mutually exclusive by construction.
package ladder

import (
	"math"
	"sort"
)

// Step pairs an inclusive lower bound with the value selected at or above it.
type Step[T any] struct {
	Min   float64
	Value T
}

// At is a shorthand constructor for Step.
func At[T any](minScore float64, value T) Step[T] {
	return Step[T]{Min: minScore, Value: value}
}

// Ladder is an immutable, descending list of steps with a fallback value.
type Ladder[T any] struct {
	steps    []Step[T]
	fallback T
}

// New builds a Ladder. Steps may be given in any order; they are sorted by
// descending lower bound. The fallback is returned when no step matches.
func New[T any](fallback T, steps ...Step[T]) Ladder[T] {
	sorted := make([]Step[T], len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return Ladder[T]{steps: sorted, fallback: fallback}
}

// Pick returns the value of the highest band whose lower bound is <= score.
func (l Ladder[T]) Pick(score float64) T {
	v, _ := l.Index(score)
	return v
}

// Index returns the picked value and its position in the descending ladder.
// The fallback reports position len(steps).
func (l Ladder[T]) Index(score float64) (T, int) {
	if math.IsNaN(score) {
		return l.fallback, len(l.steps)
	}
	for i, s := range l.steps {
		if score >= s.Min {
			return s.Value, i
		}
	}
	return l.fallback, len(l.steps)
}

// Len reports the number of bands including the fallback.
func (l Ladder[T]) Len() int { return len(l.steps) + 1 }
