// Command desktop plays Tetris 3D in a native window. The engine runs
// in-process; no server is involved.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tetris3d/game/config"
	"github.com/wricardo/tetris3d/game/engine"
)

func main() {
	cmd := &cli.Command{
		Name:  "desktop",
		Usage: "Play Tetris 3D in a native window",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Board configuration name", Sources: cli.EnvVars("TETRIS_CONFIG")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.UintFlag{Name: "seed", Usage: "Spawn seed (0 picks a random one)"},
			&cli.IntFlag{Name: "max-width", Value: 1600, Usage: "Largest window width the board may need"},
			&cli.IntFlag{Name: "max-height", Value: 1000, Usage: "Largest window height the board may need"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}

	var opts []engine.Option
	if seed := uint64(cmd.Uint("seed")); seed != 0 {
		opts = append(opts, engine.WithSeed(seed))
	}

	renderer := newScreenRenderer(int(cmd.Int("max-width")), int(cmd.Int("max-height")))
	game, err := NewGame(cfg, renderer, newKeyboard(), opts...)
	if err != nil {
		return err
	}
	if game.startErr != nil {
		log.Printf("Renderer failed to start: %v", game.startErr)
	}

	w, h := game.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(fmt.Sprintf("Tetris 3D - %s", cfg.Name))

	if err := ebiten.RunGame(game); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}

// loadConfig reads a named config, or the directory's default when name is
// empty. A name ending in .json is read as a file path. Without a config
// directory the built-in classic board is used.
func loadConfig(dir, name string) (*engine.GameConfig, error) {
	if strings.HasSuffix(name, ".json") {
		return engine.LoadGameConfig(name)
	}
	manager, err := config.NewManager(dir)
	if err != nil {
		if name != "" {
			return nil, err
		}
		log.Printf("No config directory (%v), using the classic board", err)
		return engine.DefaultConfig(), nil
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadConfig(name)
}
