package dqn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/replay"
)

// ErrEmptyBatch is returned by Learn when called without transitions.
var ErrEmptyBatch = errors.New("dqn: empty batch")

// Agent is an epsilon-greedy Q-learning agent with an online network that is
// trained and a target network that supplies bootstrapped estimates.
type Agent struct {
	online   *Network
	target   *Network
	opt      *Adam
	schedule EpsilonSchedule
	gamma    float64
	rng      *rand.Rand
}

// NewAgent creates an agent from the trainer configuration. The seed drives
// weight initialization and exploration.
func NewAgent(cfg config.TrainConfig, seed int64) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dqn: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	online, err := NewQNetwork(cfg.HiddenSize, rng)
	if err != nil {
		return nil, err
	}

	return &Agent{
		online:   online,
		target:   online.Clone(),
		opt:      NewAdam(cfg.LearningRate),
		schedule: NewEpsilonSchedule(cfg.Epsilon),
		gamma:    cfg.Gamma,
		rng:      rng,
	}, nil
}

// ID implements registry.Policy.
func (a *Agent) ID() string { return "dqn" }

// Description implements registry.Policy.
func (a *Agent) Description() string { return "Deep Q-network trained in this session" }

// QValues returns the online network's action values for obs.
func (a *Agent) QValues(obs flappy.Observation) []float64 {
	return a.online.Forward(obs.Float64s())
}

// Act returns the greedy action for obs. Ties go to the lower action.
func (a *Agent) Act(obs flappy.Observation) flappy.Action {
	return flappy.Action(argmax(a.QValues(obs)))
}

// Epsilon returns the exploration rate after step environment steps.
func (a *Agent) Epsilon(step int) float64 {
	return a.schedule.Value(step)
}

// SelectAction picks a uniformly random action with probability
// Epsilon(step) and the greedy action otherwise.
func (a *Agent) SelectAction(obs flappy.Observation, step int) flappy.Action {
	if a.rng.Float64() < a.Epsilon(step) {
		return flappy.Action(a.rng.Intn(flappy.NumActions))
	}
	return a.Act(obs)
}

// Learn performs one gradient step on the squared TD error of batch and
// returns the mean loss before the update. Only the Q-value of the action
// taken receives gradient.
func (a *Agent) Learn(batch []replay.Transition) (float64, error) {
	n := len(batch)
	if n == 0 {
		return 0, ErrEmptyBatch
	}

	states := mat.NewDense(n, flappy.ObservationSize, nil)
	next := mat.NewDense(n, flappy.ObservationSize, nil)
	for i, t := range batch {
		if !t.Action.Valid() {
			return 0, fmt.Errorf("dqn: transition %d: %w", i, flappy.ErrInvalidAction)
		}
		states.SetRow(i, t.Obs.Float64s())
		next.SetRow(i, t.Next.Float64s())
	}

	q, cache := a.online.forward(states)
	nextQ := a.target.ForwardBatch(next)

	grad := mat.NewDense(n, flappy.NumActions, nil)
	var loss float64
	for i, t := range batch {
		target := t.Reward
		if !t.Terminal {
			target += a.gamma * maxOf(nextQ.RawRowView(i))
		}
		diff := q.At(i, int(t.Action)) - target
		loss += diff * diff
		grad.Set(i, int(t.Action), 2*diff/float64(n))
	}

	a.opt.Update(a.online.params(), a.online.backward(cache, grad))
	return loss / float64(n), nil
}

// SyncTarget copies the online network into the target network.
func (a *Agent) SyncTarget() error {
	if err := a.target.CopyFrom(a.online); err != nil {
		return fmt.Errorf("dqn: sync target: %w", err)
	}
	return nil
}

// Online returns the network being trained.
func (a *Agent) Online() *Network {
	return a.online
}

// Target returns the network used for bootstrapped estimates.
func (a *Agent) Target() *Network {
	return a.target
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func maxOf(v []float64) float64 {
	return v[argmax(v)]
}
