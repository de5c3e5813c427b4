package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/flappy-rl/internal/platform/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play with the keyboard",
	Long: `Start a game in the terminal.

Controls:
  Space/W/Up - Flap
  P/Esc      - Pause
  R          - Restart (after game over)
  Ctrl+S     - Save a screenshot
  Q/Ctrl+C   - Quit

Difficulty options:
  easy   - Wider gap, slower speed-up
  normal - Default settings
  hard   - Narrower gap, faster speed-up, pipes speed up too
  fixed  - No speed-up

Examples:
  flappy play
  flappy play --difficulty hard
  flappy play --config ./my-flappy.yaml --seed 42`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func runPlay(_ *cobra.Command, _ []string) {
	logger := newLogger("flappy")

	gameCfg, err := loadGameConfig()
	if err != nil {
		fatal(logger, "invalid config", err)
	}

	// Continue without storage if the database is unavailable
	store := openStore(logger)

	m, err := tui.NewModel(gameCfg, store, runtimeConfig(seed()), tui.Options{})
	if err != nil {
		fatal(logger, "cannot create game", err)
	}

	runErr := tui.Run(m)

	// Close store before potential exit
	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fatal(logger, "error running game", runErr)
	}
}
