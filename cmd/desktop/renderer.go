package main

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/wricardo/tetris3d/game/engine"
	"github.com/wricardo/tetris3d/game/scene"
)

const (
	margin       = 20
	sidebarWidth = 220
	bevel        = 0.18 // fraction of a cube edge drawn as lit/shaded faces
)

var (
	backgroundColor = color.RGBA{18, 18, 28, 255}
	boardColor      = color.RGBA{30, 30, 46, 255}
	frameColor      = color.RGBA{120, 120, 160, 255}
)

// screenRenderer is the engine's render and stats sink. It keeps the latest
// projected scene for Draw; both are called from ebiten's game loop.
type screenRenderer struct {
	maxWidth, maxHeight int
	width, height       int

	state *engine.GameState
	scene *scene.Scene
	stats engine.Stats
}

func newScreenRenderer(maxWidth, maxHeight int) *screenRenderer {
	return &screenRenderer{maxWidth: maxWidth, maxHeight: maxHeight}
}

// Init sizes the window for the board and refuses boards that do not fit.
func (r *screenRenderer) Init(config *engine.GameConfig) error {
	w := int(float64(config.Width)*config.Scale) + sidebarWidth + 3*margin
	h := int(float64(config.Height)*config.Scale) + 2*margin
	if w > r.maxWidth || h > r.maxHeight {
		return fmt.Errorf("%s board %dx%d at scale %g needs a %dx%d window, the limit is %dx%d",
			config.Name, config.Width, config.Height, config.Scale, w, h, r.maxWidth, r.maxHeight)
	}
	r.width, r.height = w, h
	return nil
}

func (r *screenRenderer) Render(state *engine.GameState) {
	r.state = state
	r.scene = scene.Project(state)
}

func (r *screenRenderer) StatsChanged(stats engine.Stats) {
	r.stats = stats
}

// screenPosition returns the top-left pixel of a box. World Y grows upward
// and the screen's grows downward.
func screenPosition(s *scene.Scene, b scene.Box) (float32, float32) {
	x := margin + b.X + s.BoardWidth/2 - b.Size/2
	y := margin + s.BoardHeight/2 - b.Y - b.Size/2
	return float32(x), float32(y)
}

func cellColor(c engine.Cell) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
}

func shade(c color.RGBA, f float64) color.RGBA {
	scale := func(v uint8) uint8 {
		n := float64(v) * f
		if n > 255 {
			n = 255
		}
		return uint8(n)
	}
	return color.RGBA{scale(c.R), scale(c.G), scale(c.B), c.A}
}

func (r *screenRenderer) drawBoard(screen *ebiten.Image) {
	s := r.scene
	if s == nil {
		return
	}
	w, h := float32(s.BoardWidth), float32(s.BoardHeight)
	vector.DrawFilledRect(screen, margin, margin, w, h, boardColor, false)
	vector.StrokeRect(screen, margin-2, margin-2, w+4, h+4, 2, frameColor, false)

	for _, b := range s.Boxes {
		x, y := screenPosition(s, b)
		drawCube(screen, x, y, float32(b.Size), cellColor(b.Color), b.Active)
	}
}

// drawCube draws a cell as a beveled square: lit top and left faces, shaded
// bottom and right faces
func drawCube(screen *ebiten.Image, x, y, size float32, c color.RGBA, active bool) {
	edge := size * bevel
	inner := size - 2*edge
	vector.DrawFilledRect(screen, x, y, size, size, shade(c, 0.55), false)
	vector.DrawFilledRect(screen, x, y, size, edge, shade(c, 1.35), false)
	vector.DrawFilledRect(screen, x, y, edge, size-edge, shade(c, 1.15), false)
	vector.DrawFilledRect(screen, x+edge, y+edge, inner, inner, c, false)
	if active {
		vector.StrokeRect(screen, x+1, y+1, size-2, size-2, 1, color.White, false)
	}
}
