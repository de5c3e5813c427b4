package dqn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/replay"
)

func testTrainConfig() config.TrainConfig {
	cfg := config.DefaultTrainConfig()
	cfg.Episodes = 3
	cfg.MaxStepsPerEpisode = 60
	cfg.BufferSize = 200
	cfg.BatchSize = 8
	cfg.TargetUpdate = 10
	cfg.HiddenSize = 8
	return cfg
}

func TestEpsilonSchedule(t *testing.T) {
	s := EpsilonSchedule{Start: 1.0, End: 0.01, Decay: 500}

	tests := []struct {
		step int
		want float64
	}{
		{0, 1.0},
		{500, 0.01 + 0.99*math.Exp(-1)},
		{1000, 0.01 + 0.99*math.Exp(-2)},
	}
	for _, tt := range tests {
		if got := s.Value(tt.step); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Value(%d) = %v, expected %v", tt.step, got, tt.want)
		}
	}

	prev := s.Value(0)
	for step := 1; step < 5000; step += 97 {
		v := s.Value(step)
		if v > prev || v < s.End {
			t.Fatalf("Value(%d) = %v not decreasing towards %v", step, v, s.End)
		}
		prev = v
	}
}

func TestAgentGreedyWithoutExploration(t *testing.T) {
	cfg := testTrainConfig()
	cfg.Epsilon = config.EpsilonConfig{Start: 0, End: 0, Decay: 1}
	a, err := NewAgent(cfg, 1)
	if err != nil {
		t.Fatalf("NewAgent() failed: %v", err)
	}

	obs := flappy.Observation{312.5, 0, 450, 287.5, 312.5}
	want := a.Act(obs)
	for i := 0; i < 50; i++ {
		if got := a.SelectAction(obs, i); got != want {
			t.Fatalf("SelectAction with epsilon 0 = %v, expected greedy %v", got, want)
		}
	}

	q := a.QValues(obs)
	if int(want) != argmax(q) {
		t.Errorf("Act() = %v, argmax of %v", want, q)
	}
}

func TestAgentExploresWithFullEpsilon(t *testing.T) {
	cfg := testTrainConfig()
	cfg.Epsilon = config.EpsilonConfig{Start: 1, End: 1, Decay: 1}
	a, _ := NewAgent(cfg, 1)

	counts := make(map[flappy.Action]int)
	for i := 0; i < 400; i++ {
		act := a.SelectAction(flappy.Observation{}, i)
		if !act.Valid() {
			t.Fatalf("SelectAction returned invalid action %v", act)
		}
		counts[act]++
	}
	if counts[flappy.ActionIdle] == 0 || counts[flappy.ActionFlap] == 0 {
		t.Errorf("exploration should produce both actions, got %v", counts)
	}
}

func TestAgentLearnReducesLoss(t *testing.T) {
	cfg := testTrainConfig()
	cfg.HiddenSize = 16
	cfg.LearningRate = 0.01
	a, _ := NewAgent(cfg, 4)

	// Terminal transitions regress straight onto the reward
	batch := make([]replay.Transition, 16)
	for i := range batch {
		x := float32(i) / 16
		batch[i] = replay.Transition{
			Obs:      flappy.Observation{x, 1 - x, 0.5, x * x, 0.1},
			Action:   flappy.Action(i % 2),
			Reward:   float64(i%3) - 1,
			Terminal: true,
		}
	}

	first, err := a.Learn(batch)
	if err != nil {
		t.Fatalf("Learn() failed: %v", err)
	}
	var last float64
	for i := 0; i < 300; i++ {
		last, err = a.Learn(batch)
		if err != nil {
			t.Fatalf("Learn() failed: %v", err)
		}
	}

	if !(last < first/2) {
		t.Errorf("loss did not drop: first %v, last %v", first, last)
	}
}

func TestAgentLearnUsesTargetForBootstrap(t *testing.T) {
	cfg := testTrainConfig()
	a, _ := NewAgent(cfg, 2)

	tr := replay.Transition{
		Obs:    flappy.Observation{1, 0, 1, 1, 1},
		Action: flappy.ActionIdle,
		Reward: 1,
		Next:   flappy.Observation{2, 0, 2, 2, 2},
	}

	q := a.QValues(tr.Obs)[0]
	next := a.Target().Forward(tr.Next.Float64s())
	want := q - (tr.Reward + cfg.Gamma*maxOf(next))

	loss, err := a.Learn([]replay.Transition{tr})
	if err != nil {
		t.Fatalf("Learn() failed: %v", err)
	}
	if math.Abs(loss-want*want) > 1e-9 {
		t.Errorf("loss = %v, expected %v", loss, want*want)
	}
}

func TestAgentLearnErrors(t *testing.T) {
	a, _ := NewAgent(testTrainConfig(), 1)

	if _, err := a.Learn(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Learn(nil) error = %v, expected ErrEmptyBatch", err)
	}
	bad := []replay.Transition{{Action: 5}}
	if _, err := a.Learn(bad); !errors.Is(err, flappy.ErrInvalidAction) {
		t.Errorf("Learn(bad action) error = %v, expected ErrInvalidAction", err)
	}
}

func TestAgentSyncTarget(t *testing.T) {
	a, _ := NewAgent(testTrainConfig(), 1)
	obs := flappy.Observation{0.1, 0.2, 0.3, 0.4, 0.5}
	batch := []replay.Transition{{Obs: obs, Action: flappy.ActionFlap, Reward: 5, Terminal: true}}

	if _, err := a.Learn(batch); err != nil {
		t.Fatalf("Learn() failed: %v", err)
	}

	online := a.Online().Forward(obs.Float64s())
	target := a.Target().Forward(obs.Float64s())
	if online[1] == target[1] {
		t.Fatal("target should lag the online network before a sync")
	}

	if err := a.SyncTarget(); err != nil {
		t.Fatalf("SyncTarget() failed: %v", err)
	}
	target = a.Target().Forward(obs.Float64s())
	for i := range online {
		if online[i] != target[i] {
			t.Errorf("after sync target[%d] = %v, online %v", i, target[i], online[i])
		}
	}
}

func TestNewAgentRejectsConfig(t *testing.T) {
	cfg := testTrainConfig()
	cfg.HiddenSize = 0
	if _, err := NewAgent(cfg, 1); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewAgent() error = %v, expected ErrInvalidConfig", err)
	}
}

func TestAgentSyncTargetShapeMismatch(t *testing.T) {
	a, _ := NewAgent(testTrainConfig(), 1)
	other, err := NewQNetwork(testTrainConfig().HiddenSize+1, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("NewQNetwork() failed: %v", err)
	}
	a.target = other

	if err := a.SyncTarget(); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("SyncTarget() = %v, expected ErrShapeMismatch", err)
	}
}
