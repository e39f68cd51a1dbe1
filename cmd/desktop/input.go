package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/wricardo/tetris3d/game/engine"
)

// Held movement keys repeat after repeatDelay frames, then every
// repeatInterval frames.
const (
	repeatDelay    = 12
	repeatInterval = 3
)

type binding struct {
	keys   []ebiten.Key
	cmd    engine.Command
	repeat bool
}

var keyBindings = []binding{
	{[]ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, engine.CommandLeft, true},
	{[]ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, engine.CommandRight, true},
	{[]ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, engine.CommandDown, true},
	{[]ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}, engine.CommandRotate, false},
	{[]ebiten.Key{ebiten.KeySpace}, engine.CommandDrop, false},
	{[]ebiten.Key{ebiten.KeyP}, engine.CommandPause, false},
}

// triggered reports whether a key held for d frames fires this frame
func triggered(d int, repeat bool) bool {
	if d == 1 {
		return true
	}
	return repeat && d >= repeatDelay && (d-repeatDelay)%repeatInterval == 0
}

// keyboard turns key presses into engine commands. It is the engine's
// InputSource through its queue.
type keyboard struct {
	queue    *engine.CommandQueue
	duration func(ebiten.Key) int
}

func newKeyboard() *keyboard {
	return &keyboard{
		queue:    engine.NewCommandQueue(0),
		duration: inpututil.KeyPressDuration,
	}
}

// Poll queues commands for this frame and reports the restart and quit keys,
// which act on the game rather than the piece.
func (k *keyboard) Poll() (restart, quit bool) {
	for _, b := range keyBindings {
		for _, key := range b.keys {
			if triggered(k.duration(key), b.repeat) {
				k.queue.Push(b.cmd)
				break
			}
		}
	}
	return k.duration(ebiten.KeyR) == 1, k.duration(ebiten.KeyEscape) == 1
}
