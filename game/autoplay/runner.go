package autoplay

import (
	"fmt"
	"time"

	"github.com/wricardo/tetris3d/game/engine"
)

// startTime freezes the clock of seeded games; only differences matter
var startTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result summarizes one automated game
type Result struct {
	Config   string `json:"config"`
	Seed     uint64 `json:"seed"`
	Pieces   int    `json:"pieces"`
	Score    int    `json:"score"`
	Lines    int    `json:"lines"`
	Level    int    `json:"level"`
	GameOver bool   `json:"game_over"`
}

// Play drives a started engine with the planner's placements until the game
// ends or maxPieces pieces have been placed. Commands are applied directly,
// so gravity only runs if the engine's clock moves.
func Play(eng *engine.GameEngine, planner *Planner, maxPieces int) (Result, error) {
	var res Result
	for res.Pieces < maxPieces && !eng.IsGameOver() {
		state := eng.GetState()
		if state.Piece == nil {
			return res, fmt.Errorf("play: no falling piece in phase %s", state.Phase)
		}

		commands, err := planner.Plan(state)
		if err != nil {
			return res, fmt.Errorf("play: piece %d: %w", res.Pieces+1, err)
		}
		for _, name := range commands {
			cmd, err := engine.ParseCommand(name)
			if err != nil {
				return res, fmt.Errorf("play: %w", err)
			}
			eng.Apply(cmd)
		}
		res.Pieces++
	}

	stats := eng.Stats()
	res.Score = stats.Score
	res.Lines = stats.Lines
	res.Level = stats.Level
	res.GameOver = stats.GameOver
	return res, nil
}

// PlaySeeded builds an engine for config with a frozen clock and the given
// seed, starts it and plays it with Play.
func PlaySeeded(config *engine.GameConfig, seed uint64, planner *Planner, maxPieces int, opts ...engine.Option) (Result, error) {
	opts = append([]engine.Option{engine.WithSeed(seed), engine.WithClock(engine.NewManualClock(startTime))}, opts...)
	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		return Result{}, err
	}
	if err := eng.Start(); err != nil {
		return Result{}, err
	}

	res, err := Play(eng, planner, maxPieces)
	res.Config = config.Name
	res.Seed = seed
	return res, err
}
