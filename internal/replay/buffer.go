// Package replay implements the fixed-capacity experience buffer used by the
// DQN trainer.
package replay

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
)

// Errors returned by the buffer.
var (
	ErrNotEnoughSamples = errors.New("replay: not enough samples")
	ErrInvalidCapacity  = errors.New("replay: capacity must be positive")
	ErrInvalidBatch     = errors.New("replay: batch size must be positive")
)

// Transition is one environment step as seen by the learner.
type Transition struct {
	Obs      flappy.Observation
	Action   flappy.Action
	Reward   float64
	Next     flappy.Observation
	Terminal bool
}

// Buffer is a ring buffer of transitions. Once full, each Add overwrites the
// oldest entry. It is not safe for concurrent use.
type Buffer struct {
	data []Transition
	head int // Next write position
	size int
	rng  *rand.Rand

	// scratch holds the index permutation reused by Sample.
	scratch []int
}

// New creates an empty buffer that holds at most capacity transitions.
// Sampling draws from rng; pass a dedicated seeded source for reproducible runs.
func New(capacity int, rng *rand.Rand) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Buffer{
		data: make([]Transition, capacity),
		rng:  rng,
	}, nil
}

// Add stores t, evicting the oldest transition when the buffer is full.
func (b *Buffer) Add(t Transition) {
	b.data[b.head] = t
	b.head = (b.head + 1) % len(b.data)
	if b.size < len(b.data) {
		b.size++
	}
}

// Sample returns n distinct transitions chosen uniformly at random without
// replacement. It fails instead of returning a short batch.
func (b *Buffer) Sample(n int) ([]Transition, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatch, n)
	}
	if n > b.size {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrNotEnoughSamples, n, b.size)
	}

	if cap(b.scratch) < b.size {
		b.scratch = make([]int, b.size)
	}
	idx := b.scratch[:b.size]
	for i := range idx {
		idx[i] = i
	}

	// Partial Fisher-Yates: the first n positions end up as a uniform sample.
	out := make([]Transition, n)
	for i := 0; i < n; i++ {
		j := i + b.rng.Intn(b.size-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = b.data[idx[i]]
	}
	return out, nil
}

// At returns the i-th stored transition, oldest first.
func (b *Buffer) At(i int) (Transition, bool) {
	if i < 0 || i >= b.size {
		return Transition{}, false
	}
	start := 0
	if b.size == len(b.data) {
		start = b.head
	}
	return b.data[(start+i)%len(b.data)], true
}

// Size returns the number of stored transitions.
func (b *Buffer) Size() int {
	return b.size
}

// Capacity returns the maximum number of stored transitions.
func (b *Buffer) Capacity() int {
	return len(b.data)
}
