// flappy is a terminal flappy-bird simulation that doubles as a
// reinforcement-learning environment with a built-in DQN trainer.
//
// Usage:
//
//	flappy play               - Play in the terminal
//	flappy watch --policy id  - Watch a registered policy play
//	flappy eval --policy id   - Evaluate a policy headless
//	flappy train              - Train a DQN agent
//	flappy runs [run-id]      - Show recorded training runs
//	flappy scores             - Show high scores
//	flappy policies           - List registered policies
//	flappy serve              - Start SSH server for remote play
//
// Global flags:
//
//	--fps <rate>          - Set tick rate (default: 60)
//	--seed <value>        - Set RNG seed for reproducible runs
//	--db <path>           - Set database path (default: ~/.flappy/flappy.db)
//	--config <path>       - Custom game config YAML
//	--difficulty <preset> - easy, normal, hard or fixed
//	--log-level <level>   - debug, info, warn or error
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/core"
	"github.com/vovakirdan/flappy-rl/internal/storage"

	// Import policies to register them
	_ "github.com/vovakirdan/flappy-rl/internal/policy"
)

var (
	// Global flags
	flagFPS        int
	flagSeed       int64
	flagDBPath     string
	flagConfig     string
	flagDifficulty string
	flagLogLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flappy",
	Short: "Flappy RL - a flappy-bird environment with a DQN trainer",
	Long: `Flappy RL runs a flappy-bird simulation in your terminal. The same
simulation is a learning environment: baseline policies and a deep
Q-network can play it, and training runs are recorded to SQLite.

Available commands:
  play      - Play with the keyboard
  watch     - Watch a registered policy play
  eval      - Evaluate a policy without rendering
  train     - Train a DQN agent
  runs      - Show recorded training runs
  scores    - View high scores
  policies  - List registered policies
  serve     - Start SSH server for remote play

Examples:
  flappy play --difficulty easy
  flappy watch --policy hover
  flappy eval --policy random --episodes 50
  flappy train --episodes 200 --dashboard
  flappy serve --ssh :2222`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 60, "Tick rate (frames per second)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.flappy/flappy.db", "Path to the database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom game config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard, fixed")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(policiesCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the stderr logger at the --log-level level.
func newLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", flagLogLevel)
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// seed returns --seed, or a time-based seed when it is unset.
func seed() int64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return time.Now().UnixNano()
}

// loadGameConfig loads the game config and applies --difficulty.
func loadGameConfig() (config.FlappyConfig, error) {
	cfg, err := config.LoadFlappy(flagConfig)
	if err != nil {
		return cfg, err
	}
	preset, err := config.ParsePreset(flagDifficulty)
	if err != nil {
		return cfg, err
	}
	config.ApplyFlappyPreset(&cfg, preset)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runtimeConfig sizes the screen to the current terminal.
func runtimeConfig(s int64) core.RuntimeConfig {
	cfg := core.DefaultConfig()
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cfg.ScreenW = w
		cfg.ScreenH = h
	}
	cfg.TickRate = flagFPS
	cfg.Seed = s
	return cfg
}

// openStore opens the database, or returns nil with a warning so that play
// continues without persistence.
func openStore(logger *log.Logger) *storage.Store {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open database, continuing without it", "path", flagDBPath, "error", err)
		return nil
	}
	return store
}

// fatal logs err and exits.
func fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
