// Package flappy implements the flying bird simulation and exposes it as a
// learning environment: one deterministic tick per Step, a fixed-size
// observation vector and a scalar reward.
package flappy

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/vovakirdan/flappy-rl/internal/config"
)

// Errors returned by Step.
var (
	ErrInvalidAction     = errors.New("flappy: invalid action")
	ErrEpisodeTerminated = errors.New("flappy: step after episode terminated, call Reset")
)

// Action is a discrete environment action.
type Action int

const (
	ActionIdle Action = 0
	ActionFlap Action = 1
)

// NumActions is the size of the action space.
const NumActions = 2

// Valid reports whether a is inside the action space.
func (a Action) Valid() bool {
	return a == ActionIdle || a == ActionFlap
}

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionFlap:
		return "flap"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// CrashCause describes why an episode terminated.
type CrashCause int

const (
	CauseNone CrashCause = iota
	CausePipe
	CauseCeiling
	CauseFloor
)

func (c CrashCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CausePipe:
		return "pipe"
	case CauseCeiling:
		return "ceiling"
	case CauseFloor:
		return "floor"
	default:
		return "unknown"
	}
}

// EpisodeState is the per-episode bookkeeping owned by the Env.
type EpisodeState struct {
	Tick        int     // Ticks since Reset
	SpeedFactor float64 // Starts at 1.0 and grows every tick
	Score       int     // Pipes passed
	Terminal    bool
}

// Info carries auxiliary per-step data that is not part of the observation.
type Info struct {
	Score       int
	Tick        int
	SpeedFactor float64
	Pipes       int
	PipePassed  bool
	Cause       CrashCause
}

// StepResult is returned by Env.Step after each tick.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminal    bool
	Info        Info
}

// Option configures an Env.
type Option func(*Env)

// WithFlapListener attaches a capability invoked on every flap. If it also
// implements io.Closer it is closed by Env.Close.
func WithFlapListener(l FlapListener) Option {
	return func(e *Env) {
		e.listener = l
	}
}

// Env is the simulation core. It is not safe for concurrent use; parallel
// workers each need their own Env with its own seed.
type Env struct {
	cfg      config.FlappyConfig
	curve    *config.SpeedCurve
	rng      *rand.Rand
	listener FlapListener

	bird       *Bird
	pipes      *PipeManager
	background *Background
	episode    EpisodeState
	obs        Observation
}

// NewEnv validates cfg and returns an environment that is already reset.
// The seed drives gap placement, the only source of randomness.
func NewEnv(cfg config.FlappyConfig, seed int64, opts ...Option) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flappy: %w", err)
	}

	e := &Env{
		cfg:   cfg,
		curve: config.NewSpeedCurve(cfg.Difficulty),
		rng:   rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e, nil
}

// Seed restarts the random stream. It takes effect for pipes spawned from
// now on; call Reset afterwards to replay an episode exactly.
func (e *Env) Seed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Reset starts a new episode and returns the initial observation.
func (e *Env) Reset() Observation {
	e.bird = NewBird(e.cfg, e.listener)
	e.pipes = NewPipeManager(e.cfg, e.curve, e.rng)
	e.background = NewBackground(e.cfg.Screen.Width, e.cfg.Background.Velocity)
	e.episode = EpisodeState{SpeedFactor: config.InitialSpeed}
	e.obs = e.observe()
	return e.obs
}

// Step advances the simulation by one tick.
func (e *Env) Step(a Action) (StepResult, error) {
	if !a.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}
	if e.episode.Terminal {
		return StepResult{}, ErrEpisodeTerminated
	}

	if a == ActionFlap {
		e.bird.Flap()
	}
	e.bird.Advance()
	e.background.Advance()
	e.pipes.Advance(e.episode.SpeedFactor)

	e.episode.Tick++
	e.episode.SpeedFactor = e.curve.Next(e.episode.SpeedFactor)
	e.pipes.Tick(e.episode.SpeedFactor)

	passed := e.pipes.MarkPassed(e.bird.X)
	if passed {
		e.episode.Score++
	}

	e.pipes.RemoveOffScreen()

	cause := e.collision()
	reward := 0.0
	switch {
	case cause != CauseNone:
		e.episode.Terminal = true
		reward = e.cfg.Rewards.Crash
	case passed:
		reward = e.cfg.Rewards.Pass
	}

	e.obs = e.observe()

	return StepResult{
		Observation: e.obs,
		Reward:      reward,
		Terminal:    e.episode.Terminal,
		Info: Info{
			Score:       e.episode.Score,
			Tick:        e.episode.Tick,
			SpeedFactor: e.episode.SpeedFactor,
			Pipes:       len(e.pipes.Pipes()),
			PipePassed:  passed,
			Cause:       cause,
		},
	}, nil
}

// collision checks pipes first, then the screen bounds.
func (e *Env) collision() CrashCause {
	r := e.bird.Rect()
	if e.pipes.CheckCollision(r) {
		return CausePipe
	}
	if r.Y <= 0 {
		return CauseCeiling
	}
	if r.Bottom() >= float64(e.cfg.Screen.Height) {
		return CauseFloor
	}
	return CauseNone
}

// Close releases presentation resources attached through options.
// It is a no-op for pure simulation use.
func (e *Env) Close() error {
	if c, ok := e.listener.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Observation returns the observation of the current state.
func (e *Env) Observation() Observation {
	return e.obs
}

// Episode returns a copy of the episode bookkeeping.
func (e *Env) Episode() EpisodeState {
	return e.episode
}

// Score returns the number of pipes passed this episode.
func (e *Env) Score() int {
	return e.episode.Score
}

// Terminal reports whether the episode has ended.
func (e *Env) Terminal() bool {
	return e.episode.Terminal
}

// Config returns the configuration the environment was built with.
func (e *Env) Config() config.FlappyConfig {
	return e.cfg
}
