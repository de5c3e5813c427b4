// Package policy provides baseline policies for the flappy environment and
// headless evaluation of any registered policy.
package policy

import (
	"math/rand"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/registry"
)

// RandomFlapRate is the per-tick flap probability of the random policy.
// A fair coin pins the bird to the ceiling within a few dozen ticks.
const RandomFlapRate = 0.1

func init() {
	registry.Register("idle", func(int64) registry.Policy { return Idle{} })
	registry.Register("random", func(seed int64) registry.Policy { return NewRandom(seed) })
	registry.Register("hover", func(int64) registry.Policy { return Hover{} })
}

// Idle never flaps.
type Idle struct{}

func (Idle) ID() string                           { return "idle" }
func (Idle) Description() string                  { return "Never flaps; falls to the floor" }
func (Idle) Act(flappy.Observation) flappy.Action { return flappy.ActionIdle }

// Random flaps with a fixed probability each tick.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random policy with its own seeded source.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) ID() string          { return "random" }
func (r *Random) Description() string { return "Flaps at random, 1 tick in 10 on average" }

func (r *Random) Act(flappy.Observation) flappy.Action {
	if r.rng.Float64() < RandomFlapRate {
		return flappy.ActionFlap
	}
	return flappy.ActionIdle
}

// Hover keeps the bird around the middle of the screen. It only sees the
// observation, so it cannot aim for the gap and survives the pipes whose
// gap happens to cover the middle band.
type Hover struct{}

func (Hover) ID() string          { return "hover" }
func (Hover) Description() string { return "Flaps to hold the middle of the screen" }

func (Hover) Act(obs flappy.Observation) flappy.Action {
	mid := (obs[flappy.ObsFloorDist] + obs[flappy.ObsCeilingDist]) / 2
	if obs[flappy.ObsBirdY] > mid && obs[flappy.ObsBirdVel] >= 0 {
		return flappy.ActionFlap
	}
	return flappy.ActionIdle
}
