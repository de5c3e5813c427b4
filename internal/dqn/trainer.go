package dqn

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/replay"
)

// EpisodeStats summarizes one training episode.
type EpisodeStats struct {
	Episode    int // Zero-based
	Steps      int
	Reward     float64
	Score      int
	Epsilon    float64 // Exploration rate at the last step
	MeanLoss   float64 // Zero when no learning step ran
	Truncated  bool    // Ended by the step cap rather than a crash
	TotalSteps int     // Environment steps since the run started
	Duration   time.Duration
}

// Summary describes a finished (or cancelled) training run.
type Summary struct {
	RunID      string
	Episodes   int
	TotalSteps int
	BestScore  int
	MeanReward float64
	Duration   time.Duration
}

// EpisodeRecorder persists episode statistics.
type EpisodeRecorder interface {
	RecordEpisode(runID string, stats EpisodeStats) error
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLogger sets the logger for per-episode summaries.
func WithLogger(l *log.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = l }
}

// WithRecorder persists every finished episode.
func WithRecorder(r EpisodeRecorder) TrainerOption {
	return func(t *Trainer) { t.recorder = r }
}

// WithEpisodeCallback is invoked after every finished episode, on the
// trainer's goroutine.
func WithEpisodeCallback(fn func(EpisodeStats)) TrainerOption {
	return func(t *Trainer) { t.onEpisode = fn }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) TrainerOption {
	return func(t *Trainer) { t.runID = id }
}

// Trainer drives an environment with an Agent, feeds the replay buffer and
// runs learning updates.
type Trainer struct {
	env    *flappy.Env
	agent  *Agent
	buffer *replay.Buffer
	cfg    config.TrainConfig

	logger    *log.Logger
	recorder  EpisodeRecorder
	onEpisode func(EpisodeStats)
	runID     string

	totalSteps int
}

// NewTrainer builds the agent and buffer for env. One seed derives both the
// agent's and the buffer's random streams.
func NewTrainer(env *flappy.Env, cfg config.TrainConfig, seed int64, opts ...TrainerOption) (*Trainer, error) {
	agent, err := NewAgent(cfg, seed)
	if err != nil {
		return nil, err
	}
	buffer, err := replay.New(cfg.BufferSize, rand.New(rand.NewSource(seed+1)))
	if err != nil {
		return nil, fmt.Errorf("dqn: %w", err)
	}

	t := &Trainer{
		env:    env,
		agent:  agent,
		buffer: buffer,
		cfg:    cfg,
		logger: log.New(io.Discard),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run trains for the configured number of episodes. Cancelling ctx stops the
// run between steps; the summary of completed episodes is still returned.
func (t *Trainer) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: t.runID}
	var rewardTotal float64

	t.logger.Info("training started",
		"run", t.runID,
		"episodes", t.cfg.Episodes,
		"buffer", t.cfg.BufferSize,
		"batch", t.cfg.BatchSize)

	finish := func() Summary {
		sum.TotalSteps = t.totalSteps
		sum.Duration = time.Since(start)
		if sum.Episodes > 0 {
			sum.MeanReward = rewardTotal / float64(sum.Episodes)
		}
		return sum
	}

	for ep := 0; ep < t.cfg.Episodes; ep++ {
		stats, err := t.RunEpisode(ctx, ep)
		if err != nil {
			return finish(), err
		}

		sum.Episodes++
		rewardTotal += stats.Reward
		if stats.Score > sum.BestScore {
			sum.BestScore = stats.Score
		}

		t.logger.Info("episode",
			"n", ep,
			"steps", stats.Steps,
			"reward", stats.Reward,
			"score", stats.Score,
			"epsilon", fmt.Sprintf("%.3f", stats.Epsilon),
			"loss", fmt.Sprintf("%.4f", stats.MeanLoss))

		if t.recorder != nil {
			if err := t.recorder.RecordEpisode(t.runID, stats); err != nil {
				t.logger.Error("failed to record episode", "n", ep, "err", err)
			}
		}
		if t.onEpisode != nil {
			t.onEpisode(stats)
		}
	}

	sum = finish()
	t.logger.Info("training finished",
		"run", t.runID,
		"steps", sum.TotalSteps,
		"best", sum.BestScore,
		"duration", sum.Duration.Round(time.Millisecond))
	return sum, nil
}

// RunEpisode plays one episode, storing every transition and learning once
// the buffer holds more than a batch.
func (t *Trainer) RunEpisode(ctx context.Context, episode int) (EpisodeStats, error) {
	start := time.Now()
	stats := EpisodeStats{Episode: episode}
	var lossSum float64
	var updates int

	obs := t.env.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if t.cfg.MaxStepsPerEpisode > 0 && stats.Steps >= t.cfg.MaxStepsPerEpisode {
			stats.Truncated = true
			break
		}

		stats.Epsilon = t.agent.Epsilon(t.totalSteps)
		action := t.agent.SelectAction(obs, t.totalSteps)

		res, err := t.env.Step(action)
		if err != nil {
			return stats, fmt.Errorf("dqn: episode %d: %w", episode, err)
		}

		t.buffer.Add(replay.Transition{
			Obs:      obs,
			Action:   action,
			Reward:   res.Reward,
			Next:     res.Observation,
			Terminal: res.Terminal,
		})
		obs = res.Observation
		stats.Steps++
		stats.Reward += res.Reward
		stats.Score = res.Info.Score
		t.totalSteps++

		if t.buffer.Size() > t.cfg.BatchSize {
			batch, err := t.buffer.Sample(t.cfg.BatchSize)
			if err != nil {
				return stats, fmt.Errorf("dqn: %w", err)
			}
			loss, err := t.agent.Learn(batch)
			if err != nil {
				return stats, err
			}
			lossSum += loss
			updates++
		}

		if t.totalSteps%t.cfg.TargetUpdate == 0 {
			if err := t.agent.SyncTarget(); err != nil {
				return stats, err
			}
		}

		if res.Terminal {
			break
		}
	}

	if updates > 0 {
		stats.MeanLoss = lossSum / float64(updates)
	}
	stats.TotalSteps = t.totalSteps
	stats.Duration = time.Since(start)
	return stats, nil
}

// Agent returns the agent being trained.
func (t *Trainer) Agent() *Agent {
	return t.agent
}

// Buffer returns the replay buffer.
func (t *Trainer) Buffer() *replay.Buffer {
	return t.buffer
}

// RunID returns the identifier episodes are recorded under.
func (t *Trainer) RunID() string {
	return t.runID
}

// TotalSteps returns the number of environment steps taken so far.
func (t *Trainer) TotalSteps() int {
	return t.totalSteps
}
