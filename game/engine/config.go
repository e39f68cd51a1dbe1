package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// GameConfig fixes the board dimensions and render scale of a session
type GameConfig struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
}

// DefaultConfig returns the classic 10x20 board at 30 world units per cell
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Classic 10x20 board",
		Width:       10,
		Height:      20,
		Scale:       30,
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	// Grid dimensions
	if config.Width < MinGridWidth || config.Width > MaxGridWidth {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, MinGridWidth, MaxGridWidth, config.Width)
	}
	if config.Height < MinGridHeight || config.Height > MaxGridHeight {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidConfig, MinGridHeight, MaxGridHeight, config.Height)
	}

	if config.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive, got %g", ErrInvalidConfig, config.Scale)
	}
	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
