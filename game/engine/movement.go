package engine

// canAct reports whether the active piece may be moved by player input or
// gravity
func (e *GameEngine) canAct() bool {
	return e.piece != nil && !e.gameOver && !e.paused
}

// MoveLeft shifts the active piece one column left
func (e *GameEngine) MoveLeft() bool {
	return e.shift(-1, 0)
}

// MoveRight shifts the active piece one column right
func (e *GameEngine) MoveRight() bool {
	return e.shift(1, 0)
}

// SoftDrop moves the piece down one row. It never locks; a piece resting on
// the stack stays active until gravity or a hard drop settles it.
func (e *GameEngine) SoftDrop() bool {
	return e.shift(0, 1)
}

func (e *GameEngine) shift(dx, dy int) bool {
	if !e.canAct() {
		return false
	}
	if !e.piece.AttemptMove(dx, dy, e.grid) {
		return false
	}
	e.notify()
	return true
}

// Rotate turns the active piece clockwise when the result fits in place
func (e *GameEngine) Rotate() bool {
	if !e.canAct() {
		return false
	}
	if !e.piece.AttemptRotate(e.grid) {
		return false
	}
	e.notify()
	return true
}

// GravityDrop moves the piece down one row, settling it when it cannot move
func (e *GameEngine) GravityDrop() {
	if !e.canAct() {
		return
	}
	e.gravityDrop()
	e.notify()
}

func (e *GameEngine) gravityDrop() {
	if !e.piece.AttemptMove(0, 1, e.grid) {
		e.settle()
	}
}

// HardDrop moves the piece down until it rests, then settles it. It returns
// the number of rows travelled.
func (e *GameEngine) HardDrop() int {
	if !e.canAct() {
		return 0
	}
	rows := 0
	for rows < e.grid.Height() && e.piece.AttemptMove(0, 1, e.grid) {
		rows++
	}
	e.settle()
	e.notify()
	return rows
}
