package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognized names
var ErrUnknownCommand = errors.New("unknown command")

// Command is one discrete player input
type Command int

const (
	CommandLeft Command = iota + 1
	CommandRight
	CommandRotate
	CommandDown
	CommandDrop
	CommandPause
)

var commandNames = map[Command]string{
	CommandLeft:   "left",
	CommandRight:  "right",
	CommandRotate: "rotate",
	CommandDown:   "down",
	CommandDrop:   "drop",
	CommandPause:  "pause",
}

var commandAliases = map[string]Command{
	"left":         CommandLeft,
	"l":            CommandLeft,
	"arrowleft":    CommandLeft,
	"right":        CommandRight,
	"r":            CommandRight,
	"arrowright":   CommandRight,
	"rotate":       CommandRotate,
	"up":           CommandRotate,
	"arrowup":      CommandRotate,
	"down":         CommandDown,
	"soft_drop":    CommandDown,
	"arrowdown":    CommandDown,
	"drop":         CommandDrop,
	"hard_drop":    CommandDrop,
	"space":        CommandDrop,
	" ":            CommandDrop,
	"pause":        CommandPause,
	"p":            CommandPause,
	"toggle_pause": CommandPause,
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand maps a wire or key name to a command. Matching is
// case-insensitive.
func ParseCommand(name string) (Command, error) {
	key := strings.ToLower(name)
	if key != " " {
		key = strings.TrimSpace(key)
	}
	if cmd, ok := commandAliases[key]; ok {
		return cmd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// CommandNames lists the canonical command names
func CommandNames() []string {
	return []string{"left", "right", "rotate", "down", "drop", "pause"}
}

// CommandQueue buffers commands between frames. It is the InputSource used by
// clients that collect input on another goroutine.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
	limit   int
}

// NewCommandQueue creates a queue holding at most limit commands; extra
// commands are dropped until the next drain
func NewCommandQueue(limit int) *CommandQueue {
	if limit <= 0 {
		limit = MaxBulkCommands
	}
	return &CommandQueue{limit: limit}
}

// Push enqueues a command, returning false when the queue is full
func (q *CommandQueue) Push(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.limit {
		return false
	}
	q.pending = append(q.pending, cmd)
	return true
}

// Commands drains the queue
func (q *CommandQueue) Commands() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
