// Package engine provides the core game logic for the Tetris 3D game.
//
// The engine package implements the game mechanics including:
//   - The seven tetromino kinds and their precomputed rotation states
//   - Piece movement and rotation under collision constraints
//   - Locking pieces into a fixed-size grid and clearing completed rows
//   - Score, level and drop speed progression
//   - Pause, game over and restart handling
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Piece is the falling shape, Grid the board it
// falls into, and GameState a read-only snapshot handed to renderers and
// transports after every change. GameConfig fixes the board dimensions and
// the rendering scale factor for the lifetime of a session.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig(),
//		engine.WithRenderSink(renderer),
//		engine.WithSeed(42),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := gameEngine.Start(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Called once per frame by the render loop
//	gameEngine.Update()
//
//	// Called by the input layer between frames
//	gameEngine.Apply(engine.CommandRotate)
//
// Game Rules:
//
// A random piece spawns horizontally centered on the top row. Gravity moves
// it down one row every drop interval; when it cannot move down it locks into
// the grid, full rows are cleared and the next piece spawns. Clearing 1-4
// rows scores 100, 300, 500 or 800 points times the current level. Every ten
// cleared lines raise the level, which shortens the drop interval by 100ms
// down to a floor of 100ms. The game ends when a new piece cannot spawn.
//
// Concurrency:
//
// GameEngine is not safe for concurrent use. Callers serialize access, and
// every operation runs to completion before returning.
package engine
