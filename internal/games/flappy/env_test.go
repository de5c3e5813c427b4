package flappy

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/vovakirdan/flappy-rl/internal/config"
)

func newTestEnv(t *testing.T, seed int64, mutate func(*config.FlappyConfig)) *Env {
	t.Helper()
	cfg := config.DefaultFlappyConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	env, err := NewEnv(cfg, seed)
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	return env
}

// followGap flaps when the bird is falling below the middle of the nearest gap.
func followGap(e *Env) Action {
	snap := e.Snapshot()
	if len(snap.Pipes) == 0 {
		return ActionIdle
	}
	p := snap.Pipes[0]
	_, centerY := snap.Bird.Center()
	if centerY > p.GapTop+p.GapHeight/2 && snap.BirdVel >= 0 {
		return ActionFlap
	}
	return ActionIdle
}

func TestEnvResetState(t *testing.T) {
	env := newTestEnv(t, 42, nil)

	// Play a few ticks
	for i := 0; i < 30; i++ {
		a := ActionIdle
		if i%10 == 0 {
			a = ActionFlap
		}
		if _, err := env.Step(a); err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
	}

	obs := env.Reset()
	ep := env.Episode()

	if ep.Score != 0 || ep.Tick != 0 || ep.Terminal {
		t.Errorf("Reset should clear episode state, got %+v", ep)
	}
	if ep.SpeedFactor != 1.0 {
		t.Errorf("Reset speed factor = %v, expected 1", ep.SpeedFactor)
	}
	if len(obs) != ObservationSize || ObservationSize != 5 {
		t.Fatalf("observation has %d elements, expected 5", len(obs))
	}

	want := Observation{312.5, 0, 450, 287.5, 312.5}
	if obs != want {
		t.Errorf("initial observation = %v, expected %v", obs, want)
	}
	if env.Observation() != obs {
		t.Error("Observation() should return the reset observation")
	}
	if n := len(env.Snapshot().Pipes); n != 1 {
		t.Errorf("expected a single pipe after reset, got %d", n)
	}
}

func TestEnvDeterminism(t *testing.T) {
	run := func() ([]Observation, int) {
		env := newTestEnv(t, 12345, nil)
		actions := rand.New(rand.NewSource(9))
		var trace []Observation
		for i := 0; i < 400; i++ {
			a := ActionIdle
			if actions.Intn(12) == 0 {
				a = ActionFlap
			}
			res, err := env.Step(a)
			if err != nil {
				t.Fatalf("Step() failed: %v", err)
			}
			trace = append(trace, res.Observation)
			if res.Terminal {
				break
			}
		}
		return trace, env.Score()
	}

	trace1, score1 := run()
	trace2, score2 := run()

	if len(trace1) != len(trace2) {
		t.Fatalf("episode lengths differ: %d vs %d", len(trace1), len(trace2))
	}
	for i := range trace1 {
		if trace1[i] != trace2[i] {
			t.Fatalf("observations differ at tick %d: %v vs %v", i+1, trace1[i], trace2[i])
		}
	}
	if score1 != score2 {
		t.Errorf("scores differ: %d vs %d", score1, score2)
	}
}

func TestEnvSeedReplaysPipes(t *testing.T) {
	env := newTestEnv(t, 5, nil)
	first := env.Snapshot().Pipes[0].GapTop

	env.Seed(5)
	env.Reset()
	if got := env.Snapshot().Pipes[0].GapTop; got != first {
		t.Errorf("reseeded gap top = %v, expected %v", got, first)
	}
}

func TestEnvInvalidAction(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	for _, a := range []Action{-1, 2, 7} {
		if _, err := env.Step(a); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("Step(%d) error = %v, expected ErrInvalidAction", a, err)
		}
	}
	if env.Episode().Tick != 0 {
		t.Error("rejected actions must not advance the simulation")
	}
}

func TestEnvFallsToFloor(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	cfg := env.Config()

	// Free fall from rest: the tick at which the bird's bottom reaches the floor
	floorY := float64(cfg.Screen.Height - cfg.Bird.Height)
	y, v := cfg.Bird.StartY, 0.0
	expected := 0
	for y < floorY {
		v += cfg.Physics.Gravity
		y += v
		expected++
	}

	var last StepResult
	ticks := 0
	for !last.Terminal {
		res, err := env.Step(ActionIdle)
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		last = res
		ticks++
		if ticks > expected {
			t.Fatalf("no termination after %d ticks, expected by tick %d", ticks, expected)
		}
	}

	if ticks != expected {
		t.Errorf("terminated at tick %d, expected %d", ticks, expected)
	}
	if last.Reward != -100 {
		t.Errorf("terminal reward = %v, expected -100", last.Reward)
	}
	if last.Info.Cause != CauseFloor {
		t.Errorf("crash cause = %v, expected floor", last.Info.Cause)
	}
	if !env.Terminal() {
		t.Error("env should report terminal")
	}
}

func TestEnvFallsToFloorThroughCenteredGap(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	cfg := env.Config()

	// Put the first pipe over the bird with its gap centered on the bird
	_, centerY := env.bird.Rect().Center()
	p := &env.pipes.pipes[0]
	p.X = cfg.Bird.StartX
	p.GapTop = centerY - p.GapHeight/2

	floorY := float64(cfg.Screen.Height - cfg.Bird.Height)
	y, v := cfg.Bird.StartY, 0.0
	expected := 0
	for y < floorY {
		v += cfg.Physics.Gravity
		y += v
		expected++
	}

	var last StepResult
	ticks := 0
	for !last.Terminal {
		res, err := env.Step(ActionIdle)
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		last = res
		ticks++
		if ticks > expected {
			t.Fatalf("no termination after %d ticks, expected by tick %d", ticks, expected)
		}
	}

	if ticks != expected {
		t.Errorf("terminated at tick %d, expected %d", ticks, expected)
	}
	if last.Info.Score != 1 {
		t.Errorf("score = %d, expected the centered pipe to be passed", last.Info.Score)
	}
	if last.Reward != -100 {
		t.Errorf("terminal reward = %v, expected -100", last.Reward)
	}
	if last.Info.Cause != CauseFloor {
		t.Errorf("crash cause = %v, expected floor", last.Info.Cause)
	}
}

func TestEnvHitsCeiling(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	var last StepResult
	for i := 0; i < 200 && !last.Terminal; i++ {
		res, err := env.Step(ActionFlap)
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		last = res
	}

	if !last.Terminal || last.Info.Cause != CauseCeiling {
		t.Fatalf("expected a ceiling crash, got %+v", last.Info)
	}
	if last.Reward != -100 {
		t.Errorf("terminal reward = %v, expected -100", last.Reward)
	}
}

func TestEnvStepAfterTerminal(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	for !env.Terminal() {
		if _, err := env.Step(ActionIdle); err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
	}

	tick := env.Episode().Tick
	if _, err := env.Step(ActionIdle); !errors.Is(err, ErrEpisodeTerminated) {
		t.Errorf("Step after terminal error = %v, expected ErrEpisodeTerminated", err)
	}
	if env.Episode().Tick != tick {
		t.Error("rejected step must not advance the simulation")
	}

	env.Reset()
	if _, err := env.Step(ActionIdle); err != nil {
		t.Errorf("Step after Reset failed: %v", err)
	}
}

func TestEnvScoresWithinFirstSpawnInterval(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		env := newTestEnv(t, seed, func(c *config.FlappyConfig) {
			c.Pipes.SpawnOffset = 0
			c.Pipes.SpawnIntervalBase = 200
			c.Difficulty.SpeedIncrement = 0
		})

		scoredAt := 0
		for i := 1; i <= 200; i++ {
			res, err := env.Step(followGap(env))
			if err != nil {
				t.Fatalf("seed %d: Step() failed: %v", seed, err)
			}
			if res.Terminal {
				t.Fatalf("seed %d: crashed at tick %d (%v)", seed, i, res.Info.Cause)
			}
			if res.Info.PipePassed {
				if res.Reward != 1 {
					t.Errorf("seed %d: pass reward = %v, expected 1", seed, res.Reward)
				}
				if res.Info.Score != 1 {
					t.Errorf("seed %d: score = %d, expected 1", seed, res.Info.Score)
				}
				scoredAt = i
				break
			}
			if res.Reward != 0 {
				t.Fatalf("seed %d: reward %v on an uneventful tick", seed, res.Reward)
			}
		}
		if scoredAt == 0 {
			t.Fatalf("seed %d: no score within the first spawn interval", seed)
		}

		// The same pipe never scores again
		for i := 0; i < 10; i++ {
			res, err := env.Step(followGap(env))
			if err != nil {
				t.Fatalf("seed %d: Step() failed: %v", seed, err)
			}
			if res.Info.Score != 1 || res.Info.PipePassed {
				t.Fatalf("seed %d: score changed after the pass: %+v", seed, res.Info)
			}
		}
	}
}

func TestEnvSpeedFactorGrowsEveryTick(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	for i := 0; i < 10; i++ {
		if _, err := env.Step(ActionIdle); err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
	}
	if got := env.Episode().SpeedFactor; math.Abs(got-1.01) > 1e-9 {
		t.Errorf("speed factor after 10 ticks = %v, expected 1.01", got)
	}
}

func TestEnvObservationWithoutPipes(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	env.pipes.pipes = env.pipes.pipes[:0]

	obs := env.observe()
	if obs[ObsPipeDistance] != 350 {
		t.Errorf("pipe distance without pipes = %v, expected screen width - bird x = 350", obs[ObsPipeDistance])
	}
}

func TestEnvObservationLayout(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	res, err := env.Step(ActionFlap)
	if err != nil {
		t.Fatalf("Step() failed: %v", err)
	}

	obs := res.Observation
	if obs[ObsFloorDist]+obs[ObsCeilingDist] != 600 {
		t.Errorf("floor + ceiling distance = %v, expected screen height", obs[ObsFloorDist]+obs[ObsCeilingDist])
	}
	if obs[ObsBirdVel] >= 0 {
		t.Errorf("velocity after flap should be upward, got %v", obs[ObsBirdVel])
	}
	if obs[ObsBirdY] != obs[ObsCeilingDist] {
		t.Error("ceiling distance should equal bird center y")
	}
	if got := obs.Float64s(); len(got) != ObservationSize || got[ObsPipeDistance] != float64(obs[ObsPipeDistance]) {
		t.Errorf("Float64s() = %v", got)
	}
}

func TestEnvSnapshotIsACopy(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	snap := env.Snapshot()
	snap.Pipes[0].X = -1000

	if env.Snapshot().Pipes[0].X == -1000 {
		t.Error("mutating a snapshot must not affect the env")
	}
}

func TestEnvCloseClosesListener(t *testing.T) {
	l := &countingListener{}
	env, err := NewEnv(config.DefaultFlappyConfig(), 1, WithFlapListener(l))
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}

	if _, err := env.Step(ActionFlap); err != nil {
		t.Fatalf("Step() failed: %v", err)
	}
	if l.flaps != 1 {
		t.Errorf("listener saw %d flaps, expected 1", l.flaps)
	}

	if err := env.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !l.closed {
		t.Error("Close should close the listener")
	}

	plain := newTestEnv(t, 1, nil)
	if err := plain.Close(); err != nil {
		t.Errorf("Close() without listener = %v, expected nil", err)
	}
}

func TestNewEnvRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultFlappyConfig()
	cfg.Pipes.Gap = 1000
	if _, err := NewEnv(cfg, 1); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewEnv() error = %v, expected ErrInvalidConfig", err)
	}
}
