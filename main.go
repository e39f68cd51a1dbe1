// Command tetris3d starts the Tetris 3D game server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, the
//     WebSocket render channel, the browser client and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if
//     none is reachable at --api-url
//
// Every flag falls back to an environment variable, and a .env file in the
// working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tetris3d/api"
	"github.com/wricardo/tetris3d/game/config"
	"github.com/wricardo/tetris3d/game/service"
	"github.com/wricardo/tetris3d/game/session"
	"github.com/wricardo/tetris3d/transport/mcp"
	"github.com/wricardo/tetris3d/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tetris 3D Server"
)

const (
	sessionMaxAge        = 24 * time.Hour
	sessionCleanupPeriod = time.Hour
)

// options is the parsed process configuration
type options struct {
	Host          string
	Port          int
	ConfigDir     string
	DefaultConfig string
	StaticDir     string
	Debug         bool
	FrameInterval time.Duration
	RateLimit     api.RateLimit
	APIURL        string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// app holds the wired services shared by both modes
type app struct {
	sessions *session.Manager
	configs  *config.Manager
	hub      *websocket.Hub
	service  service.GameService
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newCommand builds the CLI. Flags are declared on the root command and
// shared by the subcommands.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "tetris3d",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "default-config", Usage: "Configuration used when a session names none", Sources: cli.EnvVars("DEFAULT_CONFIG")},
			&cli.StringFlag{Name: "static-dir", Value: "./static/", Usage: "Directory served as the browser client", Sources: cli.EnvVars("STATIC_DIR")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("TETRIS_DEBUG")},
			&cli.DurationFlag{Name: "frame-interval", Value: service.DefaultFrameInterval, Usage: "Gravity driver period", Sources: cli.EnvVars("FRAME_INTERVAL")},
			&cli.IntFlag{Name: "rate-limit-rps", Value: 20, Usage: "Command requests per second per client IP (0 disables)", Sources: cli.EnvVars("RATE_LIMIT_RPS")},
			&cli.IntFlag{Name: "rate-limit-burst", Value: 40, Usage: "Command request burst per client IP", Sources: cli.EnvVars("RATE_LIMIT_BURST")},
			&cli.BoolFlag{Name: "trust-proxy", Usage: "Key rate limits by X-Forwarded-For (only behind a reverse proxy)", Sources: cli.EnvVars("TRUST_PROXY")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, readOptions(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, browser client and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx, readOptions(cmd))
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API when none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "REST API to proxy", Sources: cli.EnvVars("TETRIS_API_URL")},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, readOptions(cmd))
				},
			},
		},
	}
}

func readOptions(cmd *cli.Command) options {
	opts := options{
		Host:          cmd.String("host"),
		Port:          int(cmd.Int("port")),
		ConfigDir:     cmd.String("config-dir"),
		DefaultConfig: cmd.String("default-config"),
		StaticDir:     cmd.String("static-dir"),
		Debug:         cmd.Bool("debug"),
		FrameInterval: cmd.Duration("frame-interval"),
		RateLimit: api.RateLimit{
			RPS:        int(cmd.Int("rate-limit-rps")),
			Burst:      int(cmd.Int("rate-limit-burst")),
			TrustProxy: cmd.Bool("trust-proxy"),
		},
		APIURL: cmd.String("api-url"),
	}

	if opts.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return opts
}

// initializeServices wires config and session managers, the WebSocket hub and
// the game service. The hub is the service's publisher and routes client
// input back into the service.
func initializeServices(opts options) (*app, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if opts.DefaultConfig != "" {
		if err := configManager.SetDefault(opts.DefaultConfig); err != nil {
			return nil, fmt.Errorf("default config %s: %w", opts.DefaultConfig, err)
		}
	}

	hub := websocket.NewHub()
	sessionManager := session.NewManager()
	gameService := service.NewGameService(sessionManager, configManager, service.WithPublisher(hub))
	hub.SetInboundHandler(inboundHandler(gameService, hub))

	log.Printf("Loaded %d configurations from %s", configManager.Count(), opts.ConfigDir)

	return &app{
		sessions: sessionManager,
		configs:  configManager,
		hub:      hub,
		service:  gameService,
	}, nil
}

// inboundHandler applies browser input to a session. Commands and actions
// mutate the engine, which publishes the new state through the hub; failures
// are sent back to the session as an "error" event.
func inboundHandler(svc service.GameService, hub *websocket.Hub) websocket.InboundHandler {
	return func(sessionID string, msg websocket.Inbound) {
		ctx := context.Background()

		var err error
		switch {
		case msg.Command != "":
			_, err = svc.Command(ctx, sessionID, msg.Command)
		case msg.Action == "start":
			_, err = svc.StartSession(ctx, sessionID)
		case msg.Action == "restart":
			_, err = svc.Restart(ctx, sessionID)
		case msg.Action == "state":
			gs, stateErr := svc.GetGameState(ctx, sessionID)
			if stateErr == nil {
				hub.BroadcastToSession(sessionID, gs)
			}
			err = stateErr
		default:
			err = fmt.Errorf("unsupported message (action %q)", msg.Action)
		}

		if err != nil {
			log.Printf("[WS] session=%s input failed: %v", sessionID, err)
			hub.BroadcastEvent(sessionID, "error", map[string]string{"error": err.Error()})
		}
	}
}

// runBackground starts the goroutines every mode needs: hub fan-out, the
// gravity driver and session expiry.
func (a *app) runBackground(ctx context.Context, frame time.Duration) {
	go a.hub.Run(ctx)
	go service.RunGravityLoop(ctx, a.service, frame)
	go sessionCleanupRoutine(ctx, a.sessions, sessionCleanupPeriod, sessionMaxAge)
}

// runServe starts the HTTP server and blocks until SIGINT/SIGTERM.
func runServe(ctx context.Context, opts options) error {
	log.Printf("Starting %s v%s (mode: serve)", AppName, Version)

	a, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.runBackground(ctx, opts.FrameInterval)

	addr := opts.addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newRootHandler(a, opts, "http://"+addr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("Game UI: http://%s/?session=<session_id>", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Server stopped")
	return nil
}

// newRootHandler mounts the API server at / and the MCP JSON-RPC endpoint at
// /mcp. The MCP tools call back into the API at baseURL.
func newRootHandler(a *app, opts options, baseURL string) http.Handler {
	apiServer := api.NewServer(a.service, a.hub,
		api.WithRateLimit(opts.RateLimit),
		api.WithStaticDir(opts.StaticDir),
	)
	mcpClient := mcp.NewClient(baseURL)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mux
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, period, maxAge time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// apiReachable reports whether a Tetris 3D API answers at baseURL.
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at opts.APIURL when
// one answers; otherwise it starts the full service on a random loopback
// port and targets that. Logs go to stderr so stdout stays a clean protocol
// stream.
func runStdioMCP(ctx context.Context, opts options) error {
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := opts.APIURL
	log.Printf("Checking for external API server at %s...", baseURL)

	if apiReachable(ctx, baseURL) {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		a, err := initializeServices(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		a.runBackground(ctx, opts.FrameInterval)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: newRootHandler(a, opts, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		log.Printf("Internal HTTP server on %s (game UI at %s/?session=<id>)", baseURL, baseURL)
	}

	log.Println("MCP stdio server ready")
	if err := mcp.NewClient(baseURL).Run(); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
