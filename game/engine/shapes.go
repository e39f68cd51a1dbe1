package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned for a piece kind outside the seven tetrominoes
var ErrUnknownKind = errors.New("unknown piece kind")

// Kind enumerates the seven tetromino shapes
type Kind int

const (
	KindI Kind = iota
	KindO
	KindT
	KindS
	KindZ
	KindJ
	KindL
)

// KindCount is the number of tetromino kinds
const KindCount = 7

// Matrix is a rotation state; true cells are occupied
type Matrix [][]bool

// Rows returns the matrix height
func (m Matrix) Rows() int {
	return len(m)
}

// Width returns the width of the first row, which is the width used for
// centering a freshly spawned piece
func (m Matrix) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Clone returns a deep copy safe for callers to keep
func (m Matrix) Clone() [][]bool {
	out := make([][]bool, len(m))
	for i, row := range m {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

type shapeDef struct {
	name  string
	color Cell
	rows  []string
}

var shapeTable = [KindCount]shapeDef{
	KindI: {"I", 0x00FFFF, []string{
		"....",
		"####",
		"....",
		"....",
	}},
	KindO: {"O", 0xFFFF00, []string{
		"##",
		"##",
	}},
	KindT: {"T", 0x800080, []string{
		".#.",
		"###",
		"...",
	}},
	KindS: {"S", 0x00FF00, []string{
		".##",
		"##.",
		"...",
	}},
	KindZ: {"Z", 0xFF0000, []string{
		"##.",
		".##",
		"...",
	}},
	KindJ: {"J", 0x0000FF, []string{
		"#..",
		"###",
		"...",
	}},
	KindL: {"L", 0xFF7F00, []string{
		"..#",
		"###",
		"...",
	}},
}

// rotations[k][r] is kind k turned clockwise r times
var rotations [KindCount][4]Matrix

func init() {
	for k, def := range shapeTable {
		rotations[k][0] = parseMatrix(def.rows)
		for r := 1; r < 4; r++ {
			rotations[k][r] = rotateClockwise(rotations[k][r-1])
		}
	}
}

func parseMatrix(rows []string) Matrix {
	m := make(Matrix, len(rows))
	for y, row := range rows {
		m[y] = make([]bool, len(row))
		for x, ch := range row {
			m[y][x] = ch == '#'
		}
	}
	return m
}

// rotateClockwise turns m by 90 degrees over its bounding square:
// new[x][size-1-y] = old[y][x]
func rotateClockwise(m Matrix) Matrix {
	size := max(m.Rows(), m.Width())
	rotated := make(Matrix, size)
	for i := range rotated {
		rotated[i] = make([]bool, size)
	}
	for y, row := range m {
		for x, filled := range row {
			rotated[x][size-1-y] = filled
		}
	}
	return rotated
}

// Kinds returns all seven kinds in table order
func Kinds() []Kind {
	return []Kind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}
}

// Valid reports whether k is one of the seven kinds
func (k Kind) Valid() bool {
	return k >= 0 && k < KindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return shapeTable[k].name
}

// Color returns the fixed color of the kind, or Empty for invalid kinds
func (k Kind) Color() Cell {
	if !k.Valid() {
		return Empty
	}
	return shapeTable[k].color
}

// Shape looks up the initial rotation and color of a kind
func Shape(k Kind) (Matrix, Cell, error) {
	if !k.Valid() {
		return nil, Empty, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return rotations[k][0], shapeTable[k].color, nil
}

// ShapeRotation returns the matrix of kind k after r clockwise turns
func ShapeRotation(k Kind, r int) (Matrix, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return rotations[k][((r%4)+4)%4], nil
}

// ParseKind maps a one-letter name (case-insensitive) to a kind
func ParseKind(name string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for k, def := range shapeTable {
		if def.name == upper {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// KindForColor finds the kind whose color is c
func KindForColor(c Cell) (Kind, bool) {
	for k, def := range shapeTable {
		if def.color == c {
			return Kind(k), true
		}
	}
	return 0, false
}
