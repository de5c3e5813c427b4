// Package config provides YAML-based configuration loading, validation and
// difficulty management for the simulation and the trainer.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// FlappyConfig contains all parameters of the simulation. Values are read
// once when an environment is constructed.
type FlappyConfig struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Bird       BirdConfig       `yaml:"bird"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Pipes      PipesConfig      `yaml:"pipes"`
	Background BackgroundConfig `yaml:"background"`
	Rewards    RewardsConfig    `yaml:"rewards"`
	Difficulty DifficultyConfig `yaml:"difficulty"`
}

// ScreenConfig defines the world dimensions in pixels.
type ScreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// BirdConfig defines the bird's start position (top-left) and hitbox.
type BirdConfig struct {
	StartX float64 `yaml:"start_x"`
	StartY float64 `yaml:"start_y"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// PhysicsConfig defines the bird's kinematics.
type PhysicsConfig struct {
	Gravity      float64 `yaml:"gravity"`       // Added to velocity every tick
	FlapStrength float64 `yaml:"flap_strength"` // Velocity after a flap (negative = up)
}

// PipesConfig defines obstacle pair geometry and cadence.
type PipesConfig struct {
	Width             int     `yaml:"width"`
	Gap               int     `yaml:"gap"`
	GapMargin         int     `yaml:"gap_margin"` // Minimum distance between gap and screen edges
	Velocity          float64 `yaml:"velocity"`
	SpawnOffset       float64 `yaml:"spawn_offset"` // Spawn x is screen width + offset
	SpawnIntervalBase float64 `yaml:"spawn_interval_base"`
}

// BackgroundConfig defines the presentation-only scrolling background.
type BackgroundConfig struct {
	Velocity float64 `yaml:"velocity"`
}

// RewardsConfig defines the learning signal.
type RewardsConfig struct {
	Pass  float64 `yaml:"pass"`
	Crash float64 `yaml:"crash"`
}

// DifficultyConfig defines how the speed factor evolves during an episode.
type DifficultyConfig struct {
	SpeedIncrement    float64 `yaml:"speed_increment"`     // Added to the speed factor every tick
	ScalePipeVelocity bool    `yaml:"scale_pipe_velocity"` // Pipe velocity follows the speed factor too
}

// SpawnX returns the horizontal position at which new pipes appear.
func (c FlappyConfig) SpawnX() float64 {
	return float64(c.Screen.Width) + c.Pipes.SpawnOffset
}

// Validate checks that the configuration describes a playable world.
func (c FlappyConfig) Validate() error {
	switch {
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("%w: screen must be positive, got %dx%d", ErrInvalidConfig, c.Screen.Width, c.Screen.Height)
	case c.Bird.Width <= 0 || c.Bird.Height <= 0:
		return fmt.Errorf("%w: bird size must be positive", ErrInvalidConfig)
	case c.Bird.Height >= c.Screen.Height:
		return fmt.Errorf("%w: bird height %d does not fit screen height %d", ErrInvalidConfig, c.Bird.Height, c.Screen.Height)
	case c.Bird.StartY < 0 || c.Bird.StartY+float64(c.Bird.Height) > float64(c.Screen.Height):
		return fmt.Errorf("%w: bird start y %.1f is off-screen", ErrInvalidConfig, c.Bird.StartY)
	case c.Pipes.Width <= 0 || c.Pipes.Gap <= 0:
		return fmt.Errorf("%w: pipe width and gap must be positive", ErrInvalidConfig)
	case c.Pipes.GapMargin < 0:
		return fmt.Errorf("%w: pipe gap margin must not be negative", ErrInvalidConfig)
	case c.Pipes.Gap+2*c.Pipes.GapMargin > c.Screen.Height:
		return fmt.Errorf("%w: pipe gap %d with margin %d does not fit screen height %d",
			ErrInvalidConfig, c.Pipes.Gap, c.Pipes.GapMargin, c.Screen.Height)
	case c.Pipes.Velocity <= 0:
		return fmt.Errorf("%w: pipe velocity must be positive", ErrInvalidConfig)
	case c.Pipes.SpawnIntervalBase <= 0:
		return fmt.Errorf("%w: spawn interval base must be positive", ErrInvalidConfig)
	case c.Difficulty.SpeedIncrement < 0:
		return fmt.Errorf("%w: speed increment must not be negative", ErrInvalidConfig)
	}
	return nil
}

// TrainConfig contains the DQN hyperparameters.
type TrainConfig struct {
	Episodes           int           `yaml:"episodes"`
	MaxStepsPerEpisode int           `yaml:"max_steps_per_episode"` // 0 = run until terminal
	BufferSize         int           `yaml:"buffer_size"`
	BatchSize          int           `yaml:"batch_size"`
	Gamma              float64       `yaml:"gamma"`
	LearningRate       float64       `yaml:"learning_rate"`
	TargetUpdate       int           `yaml:"target_update"` // Env steps between target syncs
	HiddenSize         int           `yaml:"hidden_size"`
	Epsilon            EpsilonConfig `yaml:"epsilon"`
	EvalEpisodes       int           `yaml:"eval_episodes"`
}

// EpsilonConfig parameterizes the exponential exploration schedule.
type EpsilonConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Decay float64 `yaml:"decay"` // Steps per e-fold
}

// Validate checks the hyperparameters.
func (c TrainConfig) Validate() error {
	switch {
	case c.Episodes <= 0:
		return fmt.Errorf("%w: episodes must be positive", ErrInvalidConfig)
	case c.MaxStepsPerEpisode < 0:
		return fmt.Errorf("%w: max steps per episode must not be negative", ErrInvalidConfig)
	case c.BufferSize <= 0 || c.BatchSize <= 0:
		return fmt.Errorf("%w: buffer and batch size must be positive", ErrInvalidConfig)
	case c.BatchSize > c.BufferSize:
		return fmt.Errorf("%w: batch size %d exceeds buffer size %d", ErrInvalidConfig, c.BatchSize, c.BufferSize)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("%w: gamma must be in [0, 1]", ErrInvalidConfig)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive", ErrInvalidConfig)
	case c.TargetUpdate <= 0:
		return fmt.Errorf("%w: target update must be positive", ErrInvalidConfig)
	case c.HiddenSize <= 0:
		return fmt.Errorf("%w: hidden size must be positive", ErrInvalidConfig)
	case c.Epsilon.Decay <= 0:
		return fmt.Errorf("%w: epsilon decay must be positive", ErrInvalidConfig)
	case c.Epsilon.Start < c.Epsilon.End:
		return fmt.Errorf("%w: epsilon start %.3f below end %.3f", ErrInvalidConfig, c.Epsilon.Start, c.Epsilon.End)
	}
	return nil
}

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed"
)

// ParsePreset converts a flag value to a preset. Empty means normal.
func ParsePreset(s string) (DifficultyPreset, error) {
	switch p := DifficultyPreset(s); p {
	case "":
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyFixed:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q (want easy, normal, hard or fixed)", ErrInvalidConfig, s)
	}
}
