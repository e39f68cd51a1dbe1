package service

import (
	"time"

	"github.com/wricardo/tetris3d/game/engine"
)

// Stop reason codes reported by BulkCommand
const (
	StopReasonGameOver       = "game_over"
	StopReasonInvalidCommand = "invalid_command"
	StopReasonPaused         = "paused"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// CommandResult contains the result of a single command
type CommandResult struct {
	Success      bool              `json:"success"`
	Command      string            `json:"command"`
	GameState    *engine.GameState `json:"game_state"`
	Message      string            `json:"message"`
	Events       []engine.Event    `json:"events,omitempty"`
	LinesCleared int               `json:"lines_cleared"`
	ScoreDelta   int               `json:"score_delta"`
}

// BulkCommandResult contains the result of a command sequence
type BulkCommandResult struct {
	// Summary
	CommandsExecuted  int               `json:"commands_executed"`
	RequestedCommands int               `json:"requested_commands"`
	Success           bool              `json:"success"`
	GameState         *engine.GameState `json:"game_state"`
	Events            []engine.Event    `json:"events"`
	StoppedReason     string            `json:"stopped_reason,omitempty"`
	StopReasonCode    string            `json:"stop_reason_code,omitempty"` // game_over|invalid_command|paused
	StoppedOnCommand  int               `json:"stopped_on_command,omitempty"`
	Truncated         bool              `json:"truncated,omitempty"`
	Limit             int               `json:"limit,omitempty"`

	// Start/end deltas
	ScoreDelta   int `json:"score_delta"`
	LinesCleared int `json:"lines_cleared"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	GameOver bool   `json:"game_over"`
	Message  string `json:"message,omitempty"`
	Board    string `json:"board,omitempty"`
}

// StepInfo is a compact record for each executed command in the bulk call
type StepInfo struct {
	Idx      int              `json:"idx"`
	Command  string           `json:"command"`
	Success  bool             `json:"success"`
	Piece    string           `json:"piece,omitempty"`
	Position *engine.Position `json:"position,omitempty"`
	Score    int              `json:"score"`
	Lines    int              `json:"lines"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string  `json:"filename"`
	ConfigID    string  `json:"config_id"` // The identifier to use for session creation
	Name        string  `json:"name"`      // Display name
	Description string  `json:"description"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
}
