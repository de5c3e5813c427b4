package policy

import (
	"context"
	"fmt"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/registry"
)

// EpisodeResult is the outcome of one evaluation episode.
type EpisodeResult struct {
	Score     int
	Steps     int
	Reward    float64
	Cause     flappy.CrashCause
	Truncated bool
}

// Result aggregates an evaluation run.
type Result struct {
	Episodes  []EpisodeResult
	MeanScore float64
	MaxScore  int
	MinScore  int
	MeanSteps float64
}

// Evaluate plays episodes with p on env, greedily and without learning.
// maxSteps caps each episode; 0 means no cap.
func Evaluate(ctx context.Context, env *flappy.Env, p registry.Policy, episodes, maxSteps int) (Result, error) {
	var res Result
	if episodes <= 0 {
		return res, fmt.Errorf("policy: episodes must be positive, got %d", episodes)
	}

	for i := 0; i < episodes; i++ {
		ep, err := runEpisode(ctx, env, p, maxSteps)
		if err != nil {
			return res, err
		}
		res.Episodes = append(res.Episodes, ep)
	}

	res.MinScore = res.Episodes[0].Score
	var scores, steps int
	for _, ep := range res.Episodes {
		scores += ep.Score
		steps += ep.Steps
		res.MaxScore = max(res.MaxScore, ep.Score)
		res.MinScore = min(res.MinScore, ep.Score)
	}
	res.MeanScore = float64(scores) / float64(len(res.Episodes))
	res.MeanSteps = float64(steps) / float64(len(res.Episodes))
	return res, nil
}

func runEpisode(ctx context.Context, env *flappy.Env, p registry.Policy, maxSteps int) (EpisodeResult, error) {
	var ep EpisodeResult
	obs := env.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return ep, err
		}
		if maxSteps > 0 && ep.Steps >= maxSteps {
			ep.Truncated = true
			return ep, nil
		}

		r, err := env.Step(p.Act(obs))
		if err != nil {
			return ep, fmt.Errorf("policy %s: %w", p.ID(), err)
		}
		obs = r.Observation
		ep.Steps++
		ep.Reward += r.Reward
		ep.Score = r.Info.Score
		if r.Terminal {
			ep.Cause = r.Info.Cause
			return ep, nil
		}
	}
}
