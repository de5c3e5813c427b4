package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/flappy-rl/internal/storage"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show recorded training runs",
	Long: `Without arguments, list the most recent training runs. With a run id,
show the run's hyperparameters and its per-episode record.

Examples:
  flappy runs
  flappy runs --limit 5
  flappy runs 0b4c7f7e-5d39-4bd4-9d53-1f3a4f0e2a61`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "Number of runs to list")
}

func runRuns(_ *cobra.Command, args []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if len(args) == 1 {
		if err := showRun(store, args[0]); err != nil {
			store.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runs, err := store.ListRuns(flagRunsLimit)
	if err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error retrieving runs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No training runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'flappy train' to start one.")
		return
	}

	fmt.Printf("  %-36s  %-9s  %-8s  %-8s  %-5s  %s\n", "Run", "Status", "Episodes", "Steps", "Best", "Started")
	fmt.Printf("  %-36s  %-9s  %-8s  %-8s  %-5s  %s\n", "---", "------", "--------", "-----", "----", "-------")
	for _, r := range runs {
		fmt.Printf("  %-36s  %-9s  %-8d  %-8d  %-5d  %s\n",
			r.RunID, r.Status, r.Episodes, r.TotalSteps, r.BestScore, r.StartedAt.Format("2006-01-02 15:04"))
	}
}

// showRun prints one run and its episodes.
func showRun(store *storage.Store, runID string) error {
	run, err := store.Run(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run %q", runID)
	}

	episodes, err := store.RunEpisodes(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s)\n", run.RunID, run.Status)
	fmt.Println()
	fmt.Printf("Seed:          %d\n", run.Seed)
	fmt.Printf("Difficulty:    %s\n", run.Difficulty)
	fmt.Printf("Hidden size:   %d\n", run.HiddenSize)
	fmt.Printf("Learning rate: %g\n", run.LearningRate)
	fmt.Printf("Gamma:         %g\n", run.Gamma)
	fmt.Printf("Batch size:    %d\n", run.BatchSize)
	fmt.Printf("Episodes:      %d/%d\n", len(episodes), run.Episodes)
	fmt.Printf("Total steps:   %d\n", run.TotalSteps)
	fmt.Printf("Best score:    %d\n", run.BestScore)
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Duration:      %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	fmt.Println()

	if len(episodes) == 0 {
		fmt.Println("No episodes recorded.")
		return nil
	}

	fmt.Printf("  %-7s  %-6s  %-6s  %-9s  %-7s  %s\n", "Episode", "Steps", "Score", "Reward", "Epsilon", "Loss")
	fmt.Printf("  %-7s  %-6s  %-6s  %-9s  %-7s  %s\n", "-------", "-----", "-----", "------", "-------", "----")
	for _, ep := range episodes {
		marker := ""
		if ep.Truncated {
			marker = " (cap)"
		}
		fmt.Printf("  %-7d  %-6d  %-6d  %-9.1f  %-7.3f  %.4f%s\n",
			ep.Episode, ep.Steps, ep.Score, ep.Reward, ep.Epsilon, ep.Loss, marker)
	}
	return nil
}
