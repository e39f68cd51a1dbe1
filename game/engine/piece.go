package engine

import "fmt"

// Piece is the single falling shape. It checks itself against a grid but
// never writes to it.
type Piece struct {
	kind     Kind
	rotation int
	matrix   Matrix
	color    Cell
	x        int
	y        int
}

// NewPiece creates a piece of the given kind centered horizontally on the top
// row of a gridWidth x gridHeight board
func NewPiece(kind Kind, gridWidth, gridHeight int) (*Piece, error) {
	if gridWidth <= 0 || gridHeight <= 0 {
		return nil, fmt.Errorf("new piece: grid dimensions must be positive, got %dx%d", gridWidth, gridHeight)
	}
	matrix, color, err := Shape(kind)
	if err != nil {
		return nil, fmt.Errorf("new piece: %w", err)
	}
	return &Piece{
		kind:   kind,
		matrix: matrix,
		color:  color,
		x:      floorDiv(gridWidth-matrix.Width(), 2),
		y:      0,
	}, nil
}

// Kind returns the tetromino kind
func (p *Piece) Kind() Kind { return p.kind }

// Rotation returns the number of clockwise turns applied, 0-3
func (p *Piece) Rotation() int { return p.rotation }

// Matrix returns the current rotation state
func (p *Piece) Matrix() Matrix { return p.matrix }

// Color returns the color written into the grid on lock
func (p *Piece) Color() Cell { return p.color }

// Position returns the anchor, the grid coordinate of the matrix's top-left cell
func (p *Piece) Position() Position { return Position{X: p.x, Y: p.y} }

// IsValidPosition reports whether the current matrix fits at (x, y)
func (p *Piece) IsValidPosition(x, y int, grid *Grid) bool {
	return fits(p.matrix, x, y, grid)
}

// AttemptMove shifts the anchor by (dx, dy) if the result is valid. Nothing
// changes on failure.
func (p *Piece) AttemptMove(dx, dy int, grid *Grid) bool {
	nx, ny := p.x+dx, p.y+dy
	if !fits(p.matrix, nx, ny, grid) {
		return false
	}
	p.x, p.y = nx, ny
	return true
}

// AttemptRotate turns the piece 90 degrees clockwise in place. There is no
// offset search: if the rotated matrix does not fit at the current anchor the
// piece is left unchanged.
func (p *Piece) AttemptRotate(grid *Grid) bool {
	next := (p.rotation + 1) % 4
	rotated := rotations[p.kind][next]
	if !fits(rotated, p.x, p.y, grid) {
		return false
	}
	p.rotation = next
	p.matrix = rotated
	return true
}

// OccupiedCells returns the absolute grid cells covered by the piece
func (p *Piece) OccupiedCells() []Block {
	cells := make([]Block, 0, 4)
	for dy, row := range p.matrix {
		for dx, filled := range row {
			if filled {
				cells = append(cells, Block{X: p.x + dx, Y: p.y + dy, Color: p.color})
			}
		}
	}
	return cells
}

func (p *Piece) snapshot() *ActivePiece {
	return &ActivePiece{
		Kind:     p.kind.String(),
		Rotation: p.rotation,
		Position: p.Position(),
		Color:    p.color,
		Matrix:   p.matrix.Clone(),
		Cells:    p.OccupiedCells(),
	}
}

// fits is the shared validity predicate: every occupied cell of m anchored at
// (x, y) lies inside the grid and on an empty cell
func fits(m Matrix, x, y int, grid *Grid) bool {
	for dy, row := range m {
		for dx, filled := range row {
			if !filled {
				continue
			}
			gx, gy := x+dx, y+dy
			if !grid.InBounds(gx, gy) || !grid.IsEmpty(gx, gy) {
				return false
			}
		}
	}
	return true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
