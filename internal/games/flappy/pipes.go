package flappy

import (
	"math/rand"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/core"
)

// Pipe is an obstacle pair: a ceiling segment from the top of the screen to
// GapTop and a floor segment from GapTop+GapHeight to the bottom.
type Pipe struct {
	X         float64 // Horizontal position (left edge)
	Width     float64
	GapTop    float64 // Y position where the gap starts
	GapHeight float64 // Height of the passable gap, fixed for the pipe's lifetime
	Passed    bool    // Whether the bird has passed this pipe (for scoring)
}

// NewPipe creates a pipe at x with a gap placed uniformly at random inside
// the band that keeps it gap_margin away from both screen edges.
func NewPipe(x float64, cfg config.PipesConfig, screenH int, rng *rand.Rand) Pipe {
	minGapY := cfg.GapMargin
	maxGapY := screenH - cfg.Gap - cfg.GapMargin
	if maxGapY < minGapY {
		maxGapY = minGapY // Edge case for very small screens
	}

	gapY := minGapY + rng.Intn(maxGapY-minGapY+1)

	return Pipe{
		X:         x,
		Width:     float64(cfg.Width),
		GapTop:    float64(gapY),
		GapHeight: float64(cfg.Gap),
	}
}

// Advance moves the pipe left by v.
func (p *Pipe) Advance(v float64) {
	p.X -= v
}

// Right returns the trailing edge of the pipe.
func (p Pipe) Right() float64 {
	return p.X + p.Width
}

// OffScreen reports whether the trailing edge has passed the left boundary.
func (p Pipe) OffScreen() bool {
	return p.Right() < 0
}

// MarkPassed sets Passed once the pipe is entirely left of birdLeft.
// Returns true only on the tick the flag flips.
func (p *Pipe) MarkPassed(birdLeft float64) bool {
	if p.Passed || p.Right() >= birdLeft {
		return false
	}
	p.Passed = true
	return true
}

// TopRect returns the collision rectangle of the ceiling segment.
func (p Pipe) TopRect() core.Rect {
	return core.NewRect(p.X, 0, p.Width, p.GapTop)
}

// BottomRect returns the collision rectangle of the floor segment.
func (p Pipe) BottomRect(screenH float64) core.Rect {
	bottomY := p.GapTop + p.GapHeight
	return core.NewRect(p.X, bottomY, p.Width, screenH-bottomY)
}

// PipeManager handles spawning, movement, scoring and removal of pipes.
// Pipes are kept in creation order, which is also ascending X order.
type PipeManager struct {
	pipes      []Pipe
	rng        *rand.Rand
	cfg        config.PipesConfig
	curve      *config.SpeedCurve
	screenH    int
	spawnX     float64
	spawnTimer int // Ticks since the last spawn
}

// NewPipeManager creates a pipe manager with a single pipe at the spawn x.
func NewPipeManager(cfg config.FlappyConfig, curve *config.SpeedCurve, rng *rand.Rand) *PipeManager {
	pm := &PipeManager{
		pipes:   make([]Pipe, 0, 8),
		rng:     rng,
		cfg:     cfg.Pipes,
		curve:   curve,
		screenH: cfg.Screen.Height,
		spawnX:  cfg.SpawnX(),
	}
	pm.spawnPipe()
	return pm
}

// Advance moves every pipe left by the velocity for the given speed factor.
func (pm *PipeManager) Advance(speed float64) {
	v := pm.curve.PipeVelocity(pm.cfg.Velocity, speed)
	for i := range pm.pipes {
		pm.pipes[i].Advance(v)
	}
}

// Tick counts one tick towards the next spawn and spawns a pipe when the
// counter exceeds the interval for the given speed factor.
// Returns true if a pipe was spawned.
func (pm *PipeManager) Tick(speed float64) bool {
	pm.spawnTimer++
	if float64(pm.spawnTimer) <= pm.curve.SpawnInterval(pm.cfg.SpawnIntervalBase, speed) {
		return false
	}
	pm.spawnPipe()
	pm.spawnTimer = 0
	return true
}

// spawnPipe appends a new pipe at the spawn position.
func (pm *PipeManager) spawnPipe() {
	pm.pipes = append(pm.pipes, NewPipe(pm.spawnX, pm.cfg, pm.screenH, pm.rng))
}

// MarkPassed checks pipes in order and stops at the first one whose pass
// transition fires. Returns whether a pipe was passed this tick.
func (pm *PipeManager) MarkPassed(birdLeft float64) bool {
	for i := range pm.pipes {
		if pm.pipes[i].MarkPassed(birdLeft) {
			return true
		}
	}
	return false
}

// RemoveOffScreen drops pipes that have moved off the left side.
// Returns the number of pipes removed.
func (pm *PipeManager) RemoveOffScreen() int {
	validPipes := pm.pipes[:0]
	for _, p := range pm.pipes {
		if !p.OffScreen() {
			validPipes = append(validPipes, p)
		}
	}
	removed := len(pm.pipes) - len(validPipes)
	pm.pipes = validPipes
	return removed
}

// CheckCollision tests if the given rectangle collides with any pipe.
func (pm *PipeManager) CheckCollision(r core.Rect) bool {
	screenH := float64(pm.screenH)
	for _, p := range pm.pipes {
		if r.Intersects(p.TopRect()) || r.Intersects(p.BottomRect(screenH)) {
			return true
		}
	}
	return false
}

// Nearest returns the first pipe in the queue.
func (pm *PipeManager) Nearest() (Pipe, bool) {
	if len(pm.pipes) == 0 {
		return Pipe{}, false
	}
	return pm.pipes[0], true
}

// Pipes returns the current list of pipes. Callers must not modify it.
func (pm *PipeManager) Pipes() []Pipe {
	return pm.pipes
}
