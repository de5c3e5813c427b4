package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/dqn"
	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/platform/tui"
	"github.com/vovakirdan/flappy-rl/internal/policy"
	"github.com/vovakirdan/flappy-rl/internal/storage"
)

var (
	flagTrainConfig    string
	flagTrainEpisodes  int
	flagTrainDashboard bool
	flagTrainWatch     bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a DQN agent",
	Long: `Train a deep Q-network on the environment. Every episode is recorded
to the database under a generated run id; 'flappy runs' lists them.

After training the greedy agent is evaluated headless. With --watch it
then plays in the terminal.

Hyperparameters come from train.yaml (see --train-config).

Examples:
  flappy train
  flappy train --episodes 100 --dashboard
  flappy train --seed 1 --watch
  flappy train --train-config ./train.yaml --difficulty fixed`,
	Args: cobra.NoArgs,
	Run:  runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&flagTrainConfig, "train-config", "", "Path to custom training config YAML")
	trainCmd.Flags().IntVar(&flagTrainEpisodes, "episodes", 0, "Override the number of episodes")
	trainCmd.Flags().BoolVar(&flagTrainDashboard, "dashboard", false, "Show a progress dashboard instead of log lines")
	trainCmd.Flags().BoolVar(&flagTrainWatch, "watch", false, "Watch the trained agent play afterwards")
}

// storeRecorder writes trainer episodes to the database.
type storeRecorder struct {
	store *storage.Store
}

func (r storeRecorder) RecordEpisode(runID string, s dqn.EpisodeStats) error {
	return r.store.SaveEpisode(runID, storage.EpisodeRecord{
		Episode:   s.Episode,
		Steps:     s.Steps,
		Reward:    s.Reward,
		Score:     s.Score,
		Epsilon:   s.Epsilon,
		Loss:      s.MeanLoss,
		Truncated: s.Truncated,
	})
}

// runStatus maps the trainer's error to a stored run status.
func runStatus(err error) string {
	switch {
	case err == nil:
		return storage.RunFinished
	case errors.Is(err, context.Canceled):
		return storage.RunCancelled
	default:
		return storage.RunFailed
	}
}

func runTrain(_ *cobra.Command, _ []string) {
	logger := newLogger("train")

	gameCfg, err := loadGameConfig()
	if err != nil {
		fatal(logger, "invalid game config", err)
	}
	trainCfg, err := config.LoadTrain(flagTrainConfig)
	if err != nil {
		fatal(logger, "invalid training config", err)
	}
	if flagTrainEpisodes > 0 {
		trainCfg.Episodes = flagTrainEpisodes
	}

	s := seed()
	env, err := flappy.NewEnv(gameCfg, s)
	if err != nil {
		fatal(logger, "cannot create environment", err)
	}
	defer env.Close()

	store := openStore(logger)
	if store != nil {
		defer store.Close()
	}

	// The dashboard owns the terminal; it reports episodes itself
	var onEpisode func(dqn.EpisodeStats)
	opts := []dqn.TrainerOption{
		dqn.WithEpisodeCallback(func(st dqn.EpisodeStats) {
			if onEpisode != nil {
				onEpisode(st)
			}
		}),
	}
	if !flagTrainDashboard {
		opts = append(opts, dqn.WithLogger(logger))
	}
	if store != nil {
		opts = append(opts, dqn.WithRecorder(storeRecorder{store}))
	}

	trainer, err := dqn.NewTrainer(env, trainCfg, s, opts...)
	if err != nil {
		fatal(logger, "cannot create trainer", err)
	}

	if store != nil {
		difficulty := flagDifficulty
		if difficulty == "" {
			difficulty = string(config.DifficultyNormal)
		}
		if _, err := store.CreateRun(storage.TrainingRun{
			RunID:        trainer.RunID(),
			Seed:         s,
			Episodes:     trainCfg.Episodes,
			HiddenSize:   trainCfg.HiddenSize,
			LearningRate: trainCfg.LearningRate,
			Gamma:        trainCfg.Gamma,
			BatchSize:    trainCfg.BatchSize,
			Difficulty:   difficulty,
		}); err != nil {
			logger.Warn("cannot record run", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sum dqn.Summary
	var trainErr error
	if flagTrainDashboard {
		title := fmt.Sprintf("Training %s", trainer.RunID())
		sum, trainErr = tui.RunDashboard(ctx, title, trainCfg.Episodes,
			func(ctx context.Context, fn func(dqn.EpisodeStats)) (dqn.Summary, error) {
				onEpisode = fn
				return trainer.Run(ctx)
			})
	} else {
		sum, trainErr = trainer.Run(ctx)
	}

	if store != nil {
		if err := store.FinishRun(trainer.RunID(), runStatus(trainErr), sum.BestScore, sum.TotalSteps); err != nil {
			logger.Warn("cannot finish run", "error", err)
		}
	}

	switch runStatus(trainErr) {
	case storage.RunFailed:
		fatal(logger, "training failed", trainErr)
	case storage.RunCancelled:
		logger.Warn("training cancelled", "episodes", sum.Episodes)
	}

	fmt.Printf("Run %s: %d episodes, %d steps, best score %d, mean reward %.2f (%s)\n",
		sum.RunID, sum.Episodes, sum.TotalSteps, sum.BestScore, sum.MeanReward, sum.Duration.Round(time.Millisecond))
	fmt.Println()

	if trainCfg.EvalEpisodes > 0 && trainErr == nil {
		evaluateAgent(ctx, logger, gameCfg, trainCfg, trainer.Agent(), s)
	}

	if flagTrainWatch {
		m, err := tui.NewModel(gameCfg, store, runtimeConfig(s), tui.Options{
			Policy:      trainer.Agent(),
			AutoRestart: true,
		})
		if err != nil {
			fatal(logger, "cannot create game", err)
		}
		if err := tui.Run(m); err != nil {
			fatal(logger, "error running game", err)
		}
	}
}

// evaluateAgent plays the greedy agent on a fresh environment.
func evaluateAgent(ctx context.Context, logger *log.Logger, gameCfg config.FlappyConfig, trainCfg config.TrainConfig, agent *dqn.Agent, s int64) {
	env, err := flappy.NewEnv(gameCfg, s+2)
	if err != nil {
		logger.Warn("cannot create evaluation environment", "error", err)
		return
	}
	defer env.Close()

	res, err := policy.Evaluate(ctx, env, agent, trainCfg.EvalEpisodes, trainCfg.MaxStepsPerEpisode)
	if err != nil {
		logger.Warn("evaluation stopped", "error", err)
		return
	}
	printEvaluation(agent.ID(), res, false)
}
