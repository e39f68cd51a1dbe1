// Package scene turns engine snapshots into positioned boxes for 3D renderers.
//
// The board is centered on the world origin: column 0 sits at the left edge,
// row 0 at the top, and every cell is a cube whose edge is the configured
// scale factor. Renderers rebuild their meshes from a Scene after each state
// update; the engine never depends on anything here.
package scene

import (
	"fmt"

	"github.com/wricardo/tetris3d/game/engine"
)

// Box is one cube in world space
type Box struct {
	GridX  int         `json:"grid_x"`
	GridY  int         `json:"grid_y"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Z      float64     `json:"z"`
	Size   float64     `json:"size"`
	Color  engine.Cell `json:"color"`
	Hex    string      `json:"hex"`
	Active bool        `json:"active"`
}

// Scene is everything a renderer needs for one frame
type Scene struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
	BoardWidth  float64 `json:"board_width"`
	BoardHeight float64 `json:"board_height"`
	Boxes       []Box   `json:"boxes"`
}

// WorldPosition maps a grid cell to the center of its cube
func WorldPosition(x, y, width, height int, scale float64) (float64, float64, float64) {
	wx := float64(x)*scale - float64(width)*scale/2 + scale/2
	wy := float64(height-y-1)*scale - float64(height)*scale/2 + scale/2
	return wx, wy, 0
}

// HexColor formats a cell color as #rrggbb
func HexColor(c engine.Cell) string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}

// Project converts a snapshot into boxes: locked cells first in row-major
// order, then the active piece
func Project(state *engine.GameState) *Scene {
	if state == nil {
		return &Scene{}
	}
	s := &Scene{
		Width:       state.Width,
		Height:      state.Height,
		Scale:       state.Scale,
		BoardWidth:  float64(state.Width) * state.Scale,
		BoardHeight: float64(state.Height) * state.Scale,
		Boxes:       make([]Box, 0, engine.CountFilledCells(state.Grid)+4),
	}
	for y, row := range state.Grid {
		for x, c := range row {
			if c != engine.Empty {
				s.Boxes = append(s.Boxes, s.box(x, y, c, false))
			}
		}
	}
	if state.Piece != nil {
		for _, b := range state.Piece.Cells {
			s.Boxes = append(s.Boxes, s.box(b.X, b.Y, b.Color, true))
		}
	}
	return s
}

func (s *Scene) box(x, y int, c engine.Cell, active bool) Box {
	wx, wy, wz := WorldPosition(x, y, s.Width, s.Height, s.Scale)
	return Box{
		GridX:  x,
		GridY:  y,
		X:      wx,
		Y:      wy,
		Z:      wz,
		Size:   s.Scale,
		Color:  c,
		Hex:    HexColor(c),
		Active: active,
	}
}
