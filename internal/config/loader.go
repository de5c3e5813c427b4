package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// validator is implemented by every loadable config.
type validator interface {
	Validate() error
}

// LoadFlappy loads the simulation configuration.
// Search order: customPath -> ~/.flappy/configs/flappy.yaml -> ./configs/flappy.yaml -> embedded default
func LoadFlappy(customPath string) (FlappyConfig, error) {
	return load(customPath, "flappy.yaml", defaultFlappyYAML, DefaultFlappyConfig)
}

// LoadTrain loads the DQN hyperparameters.
// Search order: customPath -> ~/.flappy/configs/train.yaml -> ./configs/train.yaml -> embedded default
func LoadTrain(customPath string) (TrainConfig, error) {
	return load(customPath, "train.yaml", defaultTrainYAML, DefaultTrainConfig)
}

// load decodes YAML on top of the hardcoded defaults, so a file only needs
// the keys it overrides.
func load[T validator](customPath, filename string, embedded []byte, defaults func() T) (T, error) {
	cfg := defaults()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	candidates := []string{userConfigPath(filename), filepath.Join("configs", filename)}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fileCfg := defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			continue
		}
		if err := fileCfg.Validate(); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		return fileCfg, nil
	}

	// Use embedded default YAML
	embeddedCfg := defaults()
	if err := yaml.Unmarshal(embedded, &embeddedCfg); err != nil {
		return cfg, nil // Fallback to hardcoded if embed fails
	}
	return embeddedCfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flappy", "configs", filename)
}

// ApplyFlappyPreset modifies the config based on a difficulty preset.
func ApplyFlappyPreset(cfg *FlappyConfig, preset DifficultyPreset) {
	switch preset {
	case DifficultyEasy:
		cfg.Pipes.Gap += 20
		cfg.Difficulty.SpeedIncrement /= 2
	case DifficultyHard:
		cfg.Pipes.Gap -= 40
		cfg.Difficulty.SpeedIncrement *= 2
		cfg.Difficulty.ScalePipeVelocity = true
	case DifficultyFixed:
		cfg.Difficulty.SpeedIncrement = 0
		cfg.Difficulty.ScalePipeVelocity = false
	}

	// Keep the gap inside the screen after widening it
	if maxGap := cfg.Screen.Height - 2*cfg.Pipes.GapMargin; cfg.Pipes.Gap > maxGap {
		cfg.Pipes.Gap = maxGap
	}
}
