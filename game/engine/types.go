package engine

import (
	"fmt"
	"time"
)

// Cell is one grid square: Empty, or the color of the piece that locked there
type Cell uint32

// Empty marks an unoccupied cell
const Empty Cell = 0

const (
	// Validation constants
	MinGridWidth        = 4
	MaxGridWidth        = 50
	MinGridHeight       = 4
	MaxGridHeight       = 100
	MaxBulkCommands     = 50
	WebSocketBufferSize = 256

	// Progression constants
	LinesPerLevel       = 10
	InitialDropInterval = 1000 * time.Millisecond
	MinDropInterval     = 100 * time.Millisecond
	DropIntervalStep    = 100 * time.Millisecond

	maxRecordedEvents = 256
)

// Position represents x,y coordinates. X grows to the right, Y grows downward
// from the top row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Block is an occupied cell at absolute grid coordinates
type Block struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Color Cell `json:"color"`
}

// Phase is the session state machine position
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSpawning
	PhaseActive
	PhaseLocking
	PhaseLineClearing
	PhaseGameOver
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseSpawning:     "spawning",
	PhaseActive:       "active",
	PhaseLocking:      "locking",
	PhaseLineClearing: "line_clearing",
	PhaseGameOver:     "game_over",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// ActivePiece describes the falling piece in a snapshot
type ActivePiece struct {
	Kind     string   `json:"kind"`
	Rotation int      `json:"rotation"`
	Position Position `json:"position"`
	Color    Cell     `json:"color"`
	Matrix   [][]bool `json:"matrix"`
	Cells    []Block  `json:"cells"`
}

// Stats is the display-only progression summary
type Stats struct {
	Score    int  `json:"score"`
	Level    int  `json:"level"`
	Lines    int  `json:"lines"`
	GameOver bool `json:"game_over"`
}

// GameState represents a complete, detached snapshot of a session
type GameState struct {
	ConfigName     string         `json:"config_name"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Scale          float64        `json:"scale"`
	Grid           [][]Cell       `json:"grid"`
	Piece          *ActivePiece   `json:"piece,omitempty"`
	Score          int            `json:"score"`
	Level          int            `json:"level"`
	Lines          int            `json:"lines"`
	DropIntervalMs int64          `json:"drop_interval_ms"`
	Paused         bool           `json:"paused"`
	GameOver       bool           `json:"game_over"`
	Phase          Phase          `json:"phase"`
	LastCleared    int            `json:"last_cleared"`
	PieceCounts    map[string]int `json:"piece_counts"`
	Message        string         `json:"message,omitempty"`
}

// Stats extracts the progression summary from the snapshot
func (gs *GameState) Stats() Stats {
	return Stats{
		Score:    gs.Score,
		Level:    gs.Level,
		Lines:    gs.Lines,
		GameOver: gs.GameOver,
	}
}

// EventType names something that happened during an operation
type EventType string

const (
	EventSpawn     EventType = "spawn"
	EventLock      EventType = "lock"
	EventLineClear EventType = "line_clear"
	EventLevelUp   EventType = "level_up"
	EventGameOver  EventType = "game_over"
	EventRestart   EventType = "restart"
	EventPause     EventType = "pause"
	EventResume    EventType = "resume"
)

// Event is a single entry of the engine's event log
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Lines     int       `json:"lines,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
