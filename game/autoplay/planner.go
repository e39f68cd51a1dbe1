package autoplay

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/wricardo/tetris3d/game/engine"
)

// Weights score a board after a placement. Positive weights reward, negative
// weights penalize.
type Weights struct {
	Lines     float64
	Height    float64 // sum of column heights
	Holes     float64
	Bumpiness float64
}

// DefaultWeights favor flat, hole-free stacks
var DefaultWeights = Weights{
	Lines:     0.76,
	Height:    -0.51,
	Holes:     -0.36,
	Bumpiness: -0.18,
}

// Placement is one reachable resting spot for the falling piece
type Placement struct {
	Rotation int
	X, Y     int
	Lines    int
	Score    float64
	Commands []string

	cells []engine.Block
}

// Planner picks placements for the falling piece by trying every rotation
// and column the piece can reach from where it is.
type Planner struct {
	weights Weights
}

// NewPlanner creates a planner with the given weights
func NewPlanner(w Weights) *Planner {
	return &Planner{weights: w}
}

// Best returns the highest-scoring placement. ok is false when there is no
// falling piece.
func (p *Planner) Best(state *engine.GameState) (Placement, bool, error) {
	candidates, err := p.Placements(state)
	if err != nil || len(candidates) == 0 {
		return Placement{}, false, err
	}
	best := lo.MaxBy(candidates, func(a, b Placement) bool { return a.Score > b.Score })
	return best, true, nil
}

// Plan returns the commands that move the piece to its best placement and
// drop it. Without a falling piece it returns nil.
func (p *Planner) Plan(state *engine.GameState) ([]string, error) {
	best, ok, err := p.Best(state)
	if err != nil || !ok {
		return nil, err
	}
	return best.Commands, nil
}

// Placements enumerates every placement reachable by rotating in place, then
// shifting sideways, then hard dropping. Rotations that would collide stop
// the search for that rotation and beyond, since the piece cannot pass
// through them.
func (p *Planner) Placements(state *engine.GameState) ([]Placement, error) {
	if state == nil || state.Piece == nil {
		return nil, nil
	}
	grid, err := engine.GridFromRows(state.Grid)
	if err != nil {
		return nil, fmt.Errorf("placements: %w", err)
	}
	kind, err := engine.ParseKind(state.Piece.Kind)
	if err != nil {
		return nil, fmt.Errorf("placements: %w", err)
	}

	start := state.Piece.Position
	var out []Placement

	for turns := 0; turns < 4; turns++ {
		rotation := (state.Piece.Rotation + turns) % 4
		m, err := engine.ShapeRotation(kind, rotation)
		if err != nil {
			return nil, err
		}
		if !fits(m, start.X, start.Y, grid) {
			break
		}

		rotate := lo.Times(turns, func(int) string { return "rotate" })
		out = append(out, p.evaluate(grid, kind, m, rotation, start.X, start, rotate))
		for _, dir := range []int{-1, 1} {
			for x := start.X + dir; fits(m, x, start.Y, grid); x += dir {
				out = append(out, p.evaluate(grid, kind, m, rotation, x, start, rotate))
			}
		}
	}
	return dedupe(out), nil
}

// evaluate drops matrix m from column x and scores the resulting board
func (p *Planner) evaluate(grid *engine.Grid, kind engine.Kind, m engine.Matrix, rotation, x int, start engine.Position, rotate []string) Placement {
	y := start.Y
	for fits(m, x, y+1, grid) {
		y++
	}

	resting := cells(m, x, y, kind.Color())
	board := grid.Clone()
	board.Lock(resting)
	lines := board.ClearLines()

	rows := board.Snapshot()
	heights := engine.ColumnHeights(rows)

	score := p.weights.Lines*float64(lines) +
		p.weights.Height*float64(lo.Sum(heights)) +
		p.weights.Holes*float64(engine.CountHoles(rows)) +
		p.weights.Bumpiness*float64(bumpiness(heights))

	shift := "right"
	if x < start.X {
		shift = "left"
	}
	commands := append([]string(nil), rotate...)
	commands = append(commands, lo.Times(abs(x-start.X), func(int) string { return shift })...)
	commands = append(commands, "drop")

	return Placement{
		Rotation: rotation,
		X:        x,
		Y:        y,
		Lines:    lines,
		Score:    score,
		Commands: commands,
		cells:    resting,
	}
}

// dedupe keeps the first, shortest, placement among those that leave the
// piece on the same cells (an O piece looks the same in every rotation)
func dedupe(in []Placement) []Placement {
	return lo.UniqBy(in, func(p Placement) string { return fmt.Sprint(p.cells) })
}

func fits(m engine.Matrix, x, y int, grid *engine.Grid) bool {
	for dy, row := range m {
		for dx, filled := range row {
			if filled && (!grid.InBounds(x+dx, y+dy) || !grid.IsEmpty(x+dx, y+dy)) {
				return false
			}
		}
	}
	return true
}

func cells(m engine.Matrix, x, y int, color engine.Cell) []engine.Block {
	var out []engine.Block
	for dy, row := range m {
		for dx, filled := range row {
			if filled {
				out = append(out, engine.Block{X: x + dx, Y: y + dy, Color: color})
			}
		}
	}
	return out
}

func bumpiness(heights []int) int {
	total := 0
	for i := 1; i < len(heights); i++ {
		total += abs(heights[i] - heights[i-1])
	}
	return total
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
