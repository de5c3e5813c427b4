package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/policy"
	"github.com/vovakirdan/flappy-rl/internal/registry"
)

var (
	flagEvalPolicy   string
	flagEvalEpisodes int
	flagEvalMaxSteps int
	flagEvalVerbose  bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a policy without rendering",
	Long: `Play episodes with a registered policy as fast as possible and print
score statistics.

Examples:
  flappy eval --policy hover
  flappy eval --policy random --episodes 100 --seed 7
  flappy eval --policy idle --episodes 5 -v`,
	Args: cobra.NoArgs,
	Run:  runEval,
}

func init() {
	evalCmd.Flags().StringVar(&flagEvalPolicy, "policy", "hover", "Policy id (see 'flappy policies')")
	evalCmd.Flags().IntVar(&flagEvalEpisodes, "episodes", 10, "Number of episodes")
	evalCmd.Flags().IntVar(&flagEvalMaxSteps, "max-steps", 5000, "Step cap per episode (0 = none)")
	evalCmd.Flags().BoolVarP(&flagEvalVerbose, "verbose", "v", false, "Print every episode")
}

func runEval(_ *cobra.Command, _ []string) {
	logger := newLogger("eval")

	gameCfg, err := loadGameConfig()
	if err != nil {
		fatal(logger, "invalid config", err)
	}

	s := seed()
	pol, err := registry.Create(flagEvalPolicy, s)
	if err != nil {
		fatal(logger, "cannot create policy", err)
	}

	env, err := flappy.NewEnv(gameCfg, s)
	if err != nil {
		fatal(logger, "cannot create environment", err)
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Debug("evaluating", "policy", pol.ID(), "episodes", flagEvalEpisodes, "seed", s)
	res, err := policy.Evaluate(ctx, env, pol, flagEvalEpisodes, flagEvalMaxSteps)
	if err != nil {
		fatal(logger, "evaluation failed", err)
	}

	printEvaluation(pol.ID(), res, flagEvalVerbose)
}

// printEvaluation writes an evaluation result as a table.
func printEvaluation(id string, res policy.Result, verbose bool) {
	fmt.Printf("Evaluation - %s\n", id)
	fmt.Println()

	if verbose {
		fmt.Printf("  %-7s  %-6s  %-7s  %-9s  %s\n", "Episode", "Score", "Steps", "Reward", "End")
		fmt.Printf("  %-7s  %-6s  %-7s  %-9s  %s\n", "-------", "-----", "-----", "------", "---")
		for i, ep := range res.Episodes {
			end := ep.Cause.String()
			if ep.Truncated {
				end = "step cap"
			}
			fmt.Printf("  %-7d  %-6d  %-7d  %-9.1f  %s\n", i, ep.Score, ep.Steps, ep.Reward, end)
		}
		fmt.Println()
	}

	fmt.Printf("Episodes:   %d\n", len(res.Episodes))
	fmt.Printf("Mean score: %.2f\n", res.MeanScore)
	fmt.Printf("Min/Max:    %d/%d\n", res.MinScore, res.MaxScore)
	fmt.Printf("Mean steps: %.1f\n", res.MeanSteps)
}
