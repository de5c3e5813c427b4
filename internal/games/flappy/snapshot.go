package flappy

import "github.com/vovakirdan/flappy-rl/internal/core"

// Snapshot is a read-only copy of everything a presentation layer needs to
// draw one frame. Mutating it has no effect on the Env.
type Snapshot struct {
	WorldW      float64
	WorldH      float64
	Bird        core.Rect
	BirdVel     float64
	Pipes       []Pipe
	Background  [2]float64
	Score       int
	Tick        int
	SpeedFactor float64
	Terminal    bool
}

// Snapshot captures the current state for rendering.
func (e *Env) Snapshot() Snapshot {
	pipes := make([]Pipe, len(e.pipes.Pipes()))
	copy(pipes, e.pipes.Pipes())

	return Snapshot{
		WorldW:      float64(e.cfg.Screen.Width),
		WorldH:      float64(e.cfg.Screen.Height),
		Bird:        e.bird.Rect(),
		BirdVel:     e.bird.Vel,
		Pipes:       pipes,
		Background:  e.background.Panels(),
		Score:       e.episode.Score,
		Tick:        e.episode.Tick,
		SpeedFactor: e.episode.SpeedFactor,
		Terminal:    e.episode.Terminal,
	}
}
