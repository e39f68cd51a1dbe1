// Command validate checks the board configuration JSON files in a configs
// directory (default ./configs). It checks:
//   - JSON structure, rejecting unknown fields
//   - Name, width, height and scale, with the same rules the server applies
//   - That the name matches the file name the server looks it up by
//   - Playability: a short automated game must spawn and place pieces
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/tetris3d/game/autoplay"
	"github.com/wricardo/tetris3d/game/engine"
)

// trialPieces is the length of the automated playability game
const trialPieces = 40

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if config.Name == "" {
		result.fail("name is required")
	} else if want := strings.TrimSuffix(result.File, ".json"); config.Name != want {
		result.fail("name %q does not match file name %q", config.Name, want)
	}
	if config.Width < engine.MinGridWidth || config.Width > engine.MaxGridWidth {
		result.fail("width must be between %d and %d, got %d", engine.MinGridWidth, engine.MaxGridWidth, config.Width)
	}
	if config.Height < engine.MinGridHeight || config.Height > engine.MaxGridHeight {
		result.fail("height must be between %d and %d, got %d", engine.MinGridHeight, engine.MaxGridHeight, config.Height)
	}
	if config.Scale <= 0 {
		result.fail("scale must be positive, got %g", config.Scale)
	}

	// Anything the engine still rejects
	if result.Valid {
		if err := engine.ValidateGameConfig(&config); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid {
		trial := validatePlayability(&config)
		result.Valid = trial.Valid
		result.Errors = append(result.Errors, trial.Errors...)
	}

	// Add informational data
	if result.Valid {
		result.info("Name: %s", config.Name)
		result.info("Board: %dx%d", config.Width, config.Height)
		result.info("World size: %gx%g (scale %g)", float64(config.Width)*config.Scale, float64(config.Height)*config.Scale, config.Scale)
	}

	return result
}

// validatePlayability plays a short automated game on the board. A board that
// tops out within trialPieces pieces is too small to be playable.
func validatePlayability(config *engine.GameConfig) ValidationResult {
	result := ValidationResult{Valid: true}

	res, err := autoplay.PlaySeeded(config, 1, autoplay.NewPlanner(autoplay.DefaultWeights), trialPieces)
	if err != nil {
		result.fail("Automated game failed: %v", err)
		return result
	}
	if res.GameOver {
		result.fail("Board topped out after %d pieces in an automated game", res.Pieces)
		return result
	}
	result.info("Automated game: %d pieces, %d lines, score %d", res.Pieces, res.Lines, res.Score)
	return result
}

// validateDir validates every *.json file in dir, printing a concise report.
// It reports whether all files are valid.
func validateDir(w io.Writer, dir string) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no config files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate board configuration files",
		ArgsUsage: "[config-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "configs"
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}
			ok, err := validateDir(os.Stdout, dir)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
