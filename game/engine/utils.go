package engine

import "strings"

// ColumnHeights returns the height of the stack in each column, counted from
// the bottom row
func ColumnHeights(grid [][]Cell) []int {
	if len(grid) == 0 {
		return nil
	}
	height := len(grid)
	heights := make([]int, len(grid[0]))
	for x := range heights {
		for y := 0; y < height; y++ {
			if grid[y][x] != Empty {
				heights[x] = height - y
				break
			}
		}
	}
	return heights
}

// CountHoles counts empty cells that have an occupied cell somewhere above them
func CountHoles(grid [][]Cell) int {
	if len(grid) == 0 {
		return 0
	}
	holes := 0
	for x := range grid[0] {
		covered := false
		for y := range grid {
			if grid[y][x] != Empty {
				covered = true
			} else if covered {
				holes++
			}
		}
	}
	return holes
}

// CountFilledCells counts occupied cells
func CountFilledCells(grid [][]Cell) int {
	n := 0
	for _, row := range grid {
		for _, c := range row {
			if c != Empty {
				n++
			}
		}
	}
	return n
}

// RenderASCII draws the board with the active piece overlaid. Locked cells
// show the letter of the kind that left them, the active piece is '@'.
func RenderASCII(state *GameState) string {
	rows := make([][]byte, len(state.Grid))
	for y, row := range state.Grid {
		rows[y] = make([]byte, len(row))
		for x, c := range row {
			rows[y][x] = '.'
			if c == Empty {
				continue
			}
			rows[y][x] = '#'
			if k, ok := KindForColor(c); ok {
				rows[y][x] = k.String()[0]
			}
		}
	}
	if state.Piece != nil {
		for _, b := range state.Piece.Cells {
			if b.Y >= 0 && b.Y < len(rows) && b.X >= 0 && b.X < len(rows[b.Y]) {
				rows[b.Y][b.X] = '@'
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("|")
		sb.Write(row)
		sb.WriteString("|\n")
	}
	if len(rows) > 0 {
		sb.WriteString("+" + strings.Repeat("-", len(rows[0])) + "+\n")
	}
	return sb.String()
}
