package flappy

// Background is the two-panel scrolling backdrop. It is presentation-only:
// nothing in the physics or the observation reads it.
type Background struct {
	panels   [2]float64 // Left edge of each panel
	width    float64
	velocity float64
}

// NewBackground creates panels at 0 and one screen width to the right.
func NewBackground(width int, velocity float64) *Background {
	w := float64(width)
	return &Background{
		panels:   [2]float64{0, w},
		width:    w,
		velocity: velocity,
	}
}

// Advance scrolls both panels left, moving a panel that left the screen to
// the back of the strip.
func (bg *Background) Advance() {
	for i := range bg.panels {
		bg.panels[i] -= bg.velocity
		if bg.panels[i]+bg.width <= 0 {
			bg.panels[i] += 2 * bg.width
		}
	}
}

// Panels returns the left edge of both panels.
func (bg *Background) Panels() [2]float64 {
	return bg.panels
}
