// Command analyze plays seeded automated games on every configuration in the
// configs directory and prints a quick, human-readable summary per board:
// average score and lines, the best game, and how many games topped out
// before the piece limit.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tetris3d/game/autoplay"
	"github.com/wricardo/tetris3d/game/config"
	"github.com/wricardo/tetris3d/game/engine"
)

// Summary aggregates the games played on one configuration
type Summary struct {
	Config    string
	Width     int
	Height    int
	Games     int
	AvgScore  float64
	AvgLines  float64
	Best      autoplay.Result
	ToppedOut int
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Play automated games on each board configuration and summarize them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "games", Value: 5, Usage: "Games per configuration"},
			&cli.IntFlag{Name: "pieces", Value: 500, Usage: "Piece limit per game"},
			&cli.UintFlag{Name: "seed", Value: 1, Usage: "Seed of the first game; game i uses seed+i"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			return analyzeAll(os.Stdout, manager, int(cmd.Int("games")), int(cmd.Int("pieces")), uint64(cmd.Uint("seed")))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func analyzeAll(w io.Writer, manager *config.Manager, games, pieces int, seed uint64) error {
	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	planner := autoplay.NewPlanner(autoplay.DefaultWeights)
	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.ConfigID)

		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(w, "Error loading config: %v\n", err)
			continue
		}
		summary, err := analyzeConfig(cfg, planner, games, pieces, seed)
		if err != nil {
			fmt.Fprintf(w, "Error playing: %v\n", err)
			continue
		}
		printSummary(w, summary, pieces)
	}
	return nil
}

func analyzeConfig(cfg *engine.GameConfig, planner *autoplay.Planner, games, pieces int, seed uint64) (Summary, error) {
	results := make([]autoplay.Result, 0, games)
	for i := 0; i < games; i++ {
		res, err := autoplay.PlaySeeded(cfg, seed+uint64(i), planner, pieces)
		if err != nil {
			return Summary{}, fmt.Errorf("seed %d: %w", seed+uint64(i), err)
		}
		results = append(results, res)
	}
	return summarize(cfg, results), nil
}

func summarize(cfg *engine.GameConfig, results []autoplay.Result) Summary {
	s := Summary{
		Config: cfg.Name,
		Width:  cfg.Width,
		Height: cfg.Height,
		Games:  len(results),
	}
	if len(results) == 0 {
		return s
	}
	s.AvgScore = float64(lo.SumBy(results, func(r autoplay.Result) int { return r.Score })) / float64(len(results))
	s.AvgLines = float64(lo.SumBy(results, func(r autoplay.Result) int { return r.Lines })) / float64(len(results))
	s.Best = lo.MaxBy(results, func(a, b autoplay.Result) bool { return a.Score > b.Score })
	s.ToppedOut = lo.CountBy(results, func(r autoplay.Result) bool { return r.GameOver })
	return s
}

func printSummary(w io.Writer, s Summary, pieces int) {
	fmt.Fprintf(w, "Name: %s\n", s.Config)
	fmt.Fprintf(w, "Board: %d x %d\n", s.Width, s.Height)
	fmt.Fprintf(w, "Games: %d (limit %d pieces)\n", s.Games, pieces)
	fmt.Fprintf(w, "Average score: %.1f\n", s.AvgScore)
	fmt.Fprintf(w, "Average lines: %.1f\n", s.AvgLines)
	fmt.Fprintf(w, "Best game: seed %d, score %d, lines %d, level %d\n", s.Best.Seed, s.Best.Score, s.Best.Lines, s.Best.Level)

	if s.ToppedOut > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d of %d games topped out before the piece limit\n", s.ToppedOut, s.Games)
	} else {
		fmt.Fprintf(w, "✅ Every game survived %d pieces\n", pieces)
	}
}
