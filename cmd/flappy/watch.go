package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/flappy-rl/internal/platform/tui"
	"github.com/vovakirdan/flappy-rl/internal/registry"
)

var flagWatchPolicy string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a registered policy play",
	Long: `Let a registered policy play in the terminal. Episodes restart
automatically; scores are stored under the policy id.

Examples:
  flappy watch --policy hover
  flappy watch --policy random --fps 120`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchPolicy, "policy", "hover", "Policy id (see 'flappy policies')")
}

func runWatch(_ *cobra.Command, _ []string) {
	logger := newLogger("flappy")

	gameCfg, err := loadGameConfig()
	if err != nil {
		fatal(logger, "invalid config", err)
	}

	s := seed()
	pol, err := registry.Create(flagWatchPolicy, s)
	if err != nil {
		fatal(logger, "cannot create policy", err)
	}

	store := openStore(logger)

	m, err := tui.NewModel(gameCfg, store, runtimeConfig(s), tui.Options{
		Policy:      pol,
		AutoRestart: true,
	})
	if err != nil {
		fatal(logger, "cannot create game", err)
	}

	runErr := tui.Run(m)
	if store != nil {
		store.Close()
	}
	if runErr != nil {
		fatal(logger, "error running game", runErr)
	}
}
