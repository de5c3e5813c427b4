package dqn

import (
	"math"

	"github.com/vovakirdan/flappy-rl/internal/config"
)

// EpsilonSchedule decays the exploration rate exponentially from Start
// towards End. Decay is the number of steps per e-fold.
type EpsilonSchedule struct {
	Start float64
	End   float64
	Decay float64
}

// NewEpsilonSchedule builds a schedule from the trainer configuration.
func NewEpsilonSchedule(cfg config.EpsilonConfig) EpsilonSchedule {
	return EpsilonSchedule{Start: cfg.Start, End: cfg.End, Decay: cfg.Decay}
}

// Value returns epsilon after step environment steps.
func (s EpsilonSchedule) Value(step int) float64 {
	if s.Decay <= 0 {
		return s.End
	}
	return s.End + (s.Start-s.End)*math.Exp(-float64(step)/s.Decay)
}
