package main

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/wricardo/tetris3d/game/engine"
)

const maxLogLines = 8

// Game runs one engine in-process. ebiten calls Update at 60Hz; the engine
// reads its own clock to decide when gravity is due.
type Game struct {
	engine   *engine.GameEngine
	renderer *screenRenderer
	keys     *keyboard
	startErr error
	log      []string
}

// NewGame builds the engine with the screen renderer and keyboard attached
// and starts it. A renderer that cannot initialize leaves the game on an
// error screen instead of returning an error.
func NewGame(config *engine.GameConfig, renderer *screenRenderer, keys *keyboard, opts ...engine.Option) (*Game, error) {
	opts = append(opts,
		engine.WithRenderSink(renderer),
		engine.WithStatsSink(renderer),
		engine.WithInputSource(keys.queue),
	)
	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		return nil, err
	}

	g := &Game{engine: eng, renderer: renderer, keys: keys}
	g.startErr = eng.Start()
	g.collectEvents()
	return g, nil
}

// Update polls input and advances the engine one frame
func (g *Game) Update() error {
	restart, quit := g.keys.Poll()
	if quit {
		return ebiten.Termination
	}
	if g.startErr != nil {
		return nil
	}
	if restart {
		g.engine.Restart()
	}
	g.engine.Update()
	g.collectEvents()
	return nil
}

func (g *Game) collectEvents() {
	for _, ev := range g.engine.DrainEvents() {
		if ev.Type == engine.EventSpawn {
			continue
		}
		g.log = append(g.log, ev.Message)
	}
	if len(g.log) > maxLogLines {
		g.log = g.log[len(g.log)-maxLogLines:]
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if g.startErr != nil {
		ebitenutil.DebugPrintAt(screen, "Renderer failed to start:", margin, margin)
		ebitenutil.DebugPrintAt(screen, g.startErr.Error(), margin, margin+20)
		ebitenutil.DebugPrintAt(screen, "ESC: quit", margin, margin+60)
		return
	}

	g.renderer.drawBoard(screen)
	g.drawSidebar(screen)

	if state := g.renderer.state; state != nil && (state.GameOver || state.Paused) {
		g.drawOverlay(screen, state)
	}
}

func (g *Game) drawSidebar(screen *ebiten.Image) {
	s := g.renderer.scene
	if s == nil {
		return
	}
	x := int(s.BoardWidth) + 2*margin
	y := margin

	stats := g.renderer.stats
	lines := []string{
		"TETRIS 3D",
		"",
		fmt.Sprintf("Score: %d", stats.Score),
		fmt.Sprintf("Level: %d", stats.Level),
		fmt.Sprintf("Lines: %d", stats.Lines),
	}
	if state := g.renderer.state; state != nil {
		lines = append(lines, fmt.Sprintf("Drop:  %dms", state.DropIntervalMs))
		if state.Piece != nil {
			lines = append(lines, fmt.Sprintf("Piece: %s", state.Piece.Kind))
		}
	}
	lines = append(lines, "", "Recent:")
	lines = append(lines, g.log...)
	ebitenutil.DebugPrintAt(screen, strings.Join(lines, "\n"), x, y)

	help := "Arrows/WASD: move, rotate\nSPACE: drop  P: pause\nR: restart  ESC: quit"
	ebitenutil.DebugPrintAt(screen, help, x, g.renderer.height-margin-48)
}

func (g *Game) drawOverlay(screen *ebiten.Image, state *engine.GameState) {
	s := g.renderer.scene
	w, h := float32(s.BoardWidth), float32(s.BoardHeight)
	vector.DrawFilledRect(screen, margin, margin, w, h, color.RGBA{0, 0, 0, 170}, false)

	text := "PAUSED\nP to resume"
	if state.GameOver {
		text = fmt.Sprintf("GAME OVER\nScore %d\nR to restart", state.Score)
	}
	ebitenutil.DebugPrintAt(screen, text, margin+int(w)/2-36, margin+int(h)/2-20)
}

// Layout keeps the window at the size computed for the board, or a small
// error screen when the renderer never initialized
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.renderer.width == 0 {
		return 640, 200
	}
	return g.renderer.width, g.renderer.height
}
