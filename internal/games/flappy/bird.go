package flappy

import (
	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/core"
)

// FlapListener is an optional capability notified whenever the bird flaps.
// The terminal front end uses it for the flap flash; the simulation never
// depends on it.
type FlapListener interface {
	OnFlap()
}

// Bird is the player-controlled entity. X is fixed; Y is the top edge of
// the hitbox and grows downward.
type Bird struct {
	X   float64
	Y   float64
	Vel float64
	W   float64
	H   float64

	gravity      float64
	flapStrength float64
	maxY         float64 // Lowest allowed top edge (screen height - H)
	listener     FlapListener
}

// NewBird creates a bird at the configured start position with zero velocity.
func NewBird(cfg config.FlappyConfig, listener FlapListener) *Bird {
	h := float64(cfg.Bird.Height)
	return &Bird{
		X:            cfg.Bird.StartX,
		Y:            cfg.Bird.StartY,
		W:            float64(cfg.Bird.Width),
		H:            h,
		gravity:      cfg.Physics.Gravity,
		flapStrength: cfg.Physics.FlapStrength,
		maxY:         float64(cfg.Screen.Height) - h,
		listener:     listener,
	}
}

// Flap sets the velocity to the flap strength, whatever it was before.
func (b *Bird) Flap() {
	b.Vel = b.flapStrength
	if b.listener != nil {
		b.listener.OnFlap()
	}
}

// Advance applies gravity, moves the bird and clamps it to the screen.
// Clamping caps the position only; the velocity is left as is.
func (b *Bird) Advance() {
	b.Vel += b.gravity
	b.Y = core.ClampF(b.Y+b.Vel, 0, b.maxY)
}

// Rect returns the bird's collision rectangle.
func (b *Bird) Rect() core.Rect {
	return core.NewRect(b.X, b.Y, b.W, b.H)
}

// CenterY returns the vertical center of the hitbox.
func (b *Bird) CenterY() float64 {
	return b.Y + b.H/2
}
