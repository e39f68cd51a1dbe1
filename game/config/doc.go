// Package config provides configuration management for the Tetris 3D game.
//
// The config package handles:
//   - Loading board definitions from JSON files
//   - Validation through engine.ValidateGameConfig
//   - Default configuration selection
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Board configurations are JSON files in the configs directory:
//
//	{
//	  "name": "classic",
//	  "description": "Classic 10x20 board",
//	  "width": 10,
//	  "height": 20,
//	  "scale": 30
//	}
//
// width and height are measured in cells; scale is the size of one cell in
// world units for the 3D scene. None of them can change after a session starts.
//
// The default configuration is classic.json when present, otherwise the first
// valid file in the directory, otherwise the built-in 10x20 board.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	wide, err := manager.LoadConfig("wide")
//	configs, err := manager.ListConfigs()
package config
