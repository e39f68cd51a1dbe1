package engine

import (
	"fmt"

	"github.com/samber/lo"
)

// Grid is the fixed-size board of locked cells, indexed [y][x] with row 0 at
// the top
type Grid struct {
	width  int
	height int
	cells  [][]Cell
}

// NewGrid allocates an empty width x height grid
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("new grid: dimensions must be positive, got %dx%d", width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  newRows(width, height),
	}, nil
}

func newRows(width, height int) [][]Cell {
	return lo.Times(height, func(int) []Cell {
		return make([]Cell, width)
	})
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) is on the board
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// At returns the cell at (x, y), or Empty when out of bounds
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Empty
	}
	return g.cells[y][x]
}

// Set writes a cell. Out of bounds writes are ignored.
func (g *Grid) Set(x, y int, c Cell) {
	if g.InBounds(x, y) {
		g.cells[y][x] = c
	}
}

// IsEmpty reports whether an in-bounds cell is unoccupied
func (g *Grid) IsEmpty(x, y int) bool {
	return g.At(x, y) == Empty
}

// IsRowFull reports whether every cell of row y is occupied
func (g *Grid) IsRowFull(y int) bool {
	if y < 0 || y >= g.height {
		return false
	}
	return lo.EveryBy(g.cells[y], func(c Cell) bool { return c != Empty })
}

// ClearLines removes every full row, shifting the rows above down by one and
// leaving an empty top row. The scan runs bottom to top and re-examines the
// same index after each clear, so stacked full rows are all removed.
func (g *Grid) ClearLines() int {
	cleared := 0
	for y := g.height - 1; y >= 0; y-- {
		if !g.IsRowFull(y) {
			continue
		}
		g.shiftDown(y)
		cleared++
		y++
	}
	return cleared
}

// shiftDown drops rows 0..y-1 by one, overwriting row y
func (g *Grid) shiftDown(y int) {
	removed := g.cells[y]
	copy(g.cells[1:y+1], g.cells[:y])
	clear(removed)
	g.cells[0] = removed
}

// Lock writes blocks into the grid
func (g *Grid) Lock(blocks []Block) {
	for _, b := range blocks {
		g.Set(b.X, b.Y, b.Color)
	}
}

// Reset empties every cell
func (g *Grid) Reset() {
	for _, row := range g.cells {
		clear(row)
	}
}

// Snapshot returns a detached copy of the cells
func (g *Grid) Snapshot() [][]Cell {
	return lo.Map(g.cells, func(row []Cell, _ int) []Cell {
		return append([]Cell(nil), row...)
	})
}

// Clone returns an independent grid with the same contents
func (g *Grid) Clone() *Grid {
	return &Grid{width: g.width, height: g.height, cells: g.Snapshot()}
}

// GridFromRows builds a grid from a snapshot, used by analysis tools that work
// on GameState values
func GridFromRows(rows [][]Cell) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid from rows: no rows")
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("grid from rows: row %d has %d cells, want %d", i, len(row), width)
		}
	}
	g, err := NewGrid(width, len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		copy(g.cells[y], row)
	}
	return g, nil
}
