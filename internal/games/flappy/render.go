package flappy

import (
	"fmt"
	"math"

	"github.com/vovakirdan/flappy-rl/internal/core"
)

// Visual characters for rendering
const (
	BirdChar      = '●'
	BirdBeakChar  = '▶'
	PipeChar      = '█'
	PipeCapTop    = '▄'
	PipeCapBottom = '▀'
	GroundChar    = '═'
	CloudChar     = '░'
)

// cloudOffsets are cloud positions relative to a background panel, as
// fractions of the panel width and world height.
var cloudOffsets = [][2]float64{{0.1, 0.15}, {0.45, 0.3}, {0.75, 0.1}}

// viewport maps world coordinates to screen cells. The bottom row is
// reserved for the ground line.
type viewport struct {
	sx, sy float64
	rows   int
}

func newViewport(dst *core.Screen, snap Snapshot) viewport {
	rows := dst.Height() - 1
	return viewport{
		sx:   float64(dst.Width()) / snap.WorldW,
		sy:   float64(rows) / snap.WorldH,
		rows: rows,
	}
}

func (v viewport) col(x float64) int { return int(math.Floor(x * v.sx)) }
func (v viewport) row(y float64) int { return int(math.Floor(y * v.sy)) }

// Render draws a snapshot scaled to fit the screen.
func Render(dst *core.Screen, snap Snapshot) {
	dst.Clear()
	if dst.Width() < 2 || dst.Height() < 3 || snap.WorldW <= 0 || snap.WorldH <= 0 {
		return
	}
	v := newViewport(dst, snap)

	drawBackground(dst, v, snap)

	for _, p := range snap.Pipes {
		drawPipe(dst, v, p, snap.WorldH)
	}

	drawBird(dst, v, snap)

	// Ground
	dst.DrawHLine(0, dst.Height()-1, dst.Width(), GroundChar, core.ColorYellow)

	// HUD
	dst.DrawTextColored(2, 0, fmt.Sprintf(" Score: %d ", snap.Score), core.ColorWhite)
}

// drawBackground draws the scrolling clouds of both panels.
func drawBackground(dst *core.Screen, v viewport, snap Snapshot) {
	for _, left := range snap.Background {
		for _, off := range cloudOffsets {
			x := v.col(left + off[0]*snap.WorldW)
			y := v.row(off[1] * snap.WorldH)
			dst.DrawHLine(x, y, 4, CloudChar, core.ColorGray)
		}
	}
}

// drawPipe renders a single pipe with caps at the gap edges.
func drawPipe(dst *core.Screen, v viewport, p Pipe, worldH float64) {
	x := v.col(p.X)
	w := max(1, v.col(p.Right())-x)
	gapTop := v.row(p.GapTop)
	gapBottom := v.row(p.GapTop + p.GapHeight)

	// Ceiling segment
	dst.FillRect(x, 0, w, gapTop, PipeChar, core.ColorGreen)
	if gapTop > 0 {
		dst.DrawHLine(x, gapTop-1, w, PipeCapTop, core.ColorBrightGreen)
	}

	// Floor segment
	dst.FillRect(x, gapBottom, w, v.rows-gapBottom, PipeChar, core.ColorGreen)
	if gapBottom < v.row(worldH) {
		dst.DrawHLine(x, gapBottom, w, PipeCapBottom, core.ColorBrightGreen)
	}
}

// drawBird renders the bird's hitbox with a beak on the leading edge.
func drawBird(dst *core.Screen, v viewport, snap Snapshot) {
	b := snap.Bird
	x0, y0 := v.col(b.X), v.row(b.Y)
	w := max(1, v.col(b.Right())-x0)
	h := max(1, v.row(b.Bottom())-y0)

	color := core.ColorBrightYellow
	if snap.Terminal {
		color = core.ColorRed
	}
	dst.FillRect(x0, y0, w, h, BirdChar, color)
	dst.SetColored(x0+w, y0+h/2, BirdBeakChar, color)
}

// DrawMessage draws a boxed two-line message in the center of the screen.
func DrawMessage(dst *core.Screen, title, subtitle string) {
	w := dst.Width()
	h := dst.Height()

	boxW := core.Max(len([]rune(title)), len([]rune(subtitle))) + 4
	boxH := 5
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	dst.FillRect(boxX, boxY, boxW, boxH, ' ', core.ColorDefault)
	dst.DrawBox(boxX, boxY, boxW, boxH)

	dst.DrawText(boxX+(boxW-len([]rune(title)))/2, boxY+1, title)
	dst.DrawText(boxX+(boxW-len([]rune(subtitle)))/2, boxY+3, subtitle)
}
