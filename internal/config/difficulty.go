package config

// SpeedCurve calculates the per-tick speed factor and the parameters that
// depend on it. The speed factor grows without bound.
type SpeedCurve struct {
	cfg DifficultyConfig
}

// NewSpeedCurve creates a new speed curve.
func NewSpeedCurve(cfg DifficultyConfig) *SpeedCurve {
	return &SpeedCurve{cfg: cfg}
}

// InitialSpeed is the speed factor at the start of every episode.
const InitialSpeed = 1.0

// Next returns the speed factor for the following tick.
func (c *SpeedCurve) Next(speed float64) float64 {
	return speed + c.cfg.SpeedIncrement
}

// SpawnInterval returns the number of ticks between pipe spawns.
func (c *SpeedCurve) SpawnInterval(base, speed float64) float64 {
	if speed <= 0 {
		return base
	}
	return base / speed
}

// PipeVelocity returns the pipe velocity. Unless scale_pipe_velocity is set
// it ignores the speed factor.
func (c *SpeedCurve) PipeVelocity(base, speed float64) float64 {
	if !c.cfg.ScalePipeVelocity {
		return base
	}
	return base * speed
}
