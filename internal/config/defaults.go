package config

import (
	_ "embed"
)

//go:embed defaults/flappy.yaml
var defaultFlappyYAML []byte

//go:embed defaults/train.yaml
var defaultTrainYAML []byte

// DefaultFlappyConfig returns the default simulation configuration.
func DefaultFlappyConfig() FlappyConfig {
	return FlappyConfig{
		Screen: ScreenConfig{
			Width:  400,
			Height: 600,
		},
		Bird: BirdConfig{
			StartX: 50,
			StartY: 300,
			Width:  25,
			Height: 25,
		},
		Physics: PhysicsConfig{
			Gravity:      0.18,
			FlapStrength: -4.5,
		},
		Pipes: PipesConfig{
			Width:             35,
			Gap:               220,
			GapMargin:         100,
			Velocity:          2.7,
			SpawnOffset:       100,
			SpawnIntervalBase: 100,
		},
		Background: BackgroundConfig{
			Velocity: 1.8,
		},
		Rewards: RewardsConfig{
			Pass:  1,
			Crash: -100,
		},
		Difficulty: DifficultyConfig{
			SpeedIncrement:    0.001,
			ScalePipeVelocity: false,
		},
	}
}

// DefaultTrainConfig returns the default DQN hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Episodes:           500,
		MaxStepsPerEpisode: 5000,
		BufferSize:         10000,
		BatchSize:          64,
		Gamma:              0.99,
		LearningRate:       0.0005,
		TargetUpdate:       100,
		HiddenSize:         128,
		Epsilon: EpsilonConfig{
			Start: 1.0,
			End:   0.01,
			Decay: 500,
		},
		EvalEpisodes: 10,
	}
}

// GetDefaultYAML returns the embedded default YAML for a config name.
func GetDefaultYAML(name string) []byte {
	switch name {
	case "flappy":
		return defaultFlappyYAML
	case "train":
		return defaultTrainYAML
	default:
		return nil
	}
}
