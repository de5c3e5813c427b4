package flappy

// ObservationSize is the length of the observation vector. Its layout is the
// contract with trained policies and must stay stable.
const ObservationSize = 5

// Indices into Observation.
const (
	ObsBirdY        = iota // Bird center y
	ObsBirdVel             // Bird vertical velocity
	ObsPipeDistance        // Nearest pipe left edge minus bird x
	ObsFloorDist           // Screen height minus bird center y
	ObsCeilingDist         // Bird center y
)

// Observation is the fixed-size numeric summary of the simulation state.
type Observation [ObservationSize]float32

// Float64s returns the observation widened to float64.
func (o Observation) Float64s() []float64 {
	out := make([]float64, ObservationSize)
	for i, v := range o {
		out[i] = float64(v)
	}
	return out
}

// observe builds the observation from the current bird and the first pipe in
// the queue. With no pipes, the pipe is assumed at the right screen edge.
func (e *Env) observe() Observation {
	centerY := e.bird.CenterY()
	pipeX := float64(e.cfg.Screen.Width)
	if p, ok := e.pipes.Nearest(); ok {
		pipeX = p.X
	}

	return Observation{
		ObsBirdY:        float32(centerY),
		ObsBirdVel:      float32(e.bird.Vel),
		ObsPipeDistance: float32(pipeX - e.bird.X),
		ObsFloorDist:    float32(float64(e.cfg.Screen.Height) - centerY),
		ObsCeilingDist:  float32(centerY),
	}
}
