package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/tetris3d/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Tetris 3D Server" {
		t.Errorf("Expected app name %q, got %q", "Tetris 3D Server", AppName)
	}
}

func testOptions() options {
	return options{
		Host:      "127.0.0.1",
		Port:      0,
		ConfigDir: "configs",
		StaticDir: "static",
	}
}

// runWithCapture replaces every action with one that records the parsed
// options, then runs the CLI with args.
func runWithCapture(t *testing.T, args ...string) (options, string) {
	t.Helper()

	var got options
	var mode string
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got, mode = readOptions(c), "root"
		return nil
	}
	for _, sub := range cmd.Commands {
		name := sub.Name
		sub.Action = func(ctx context.Context, c *cli.Command) error {
			got, mode = readOptions(c), name
			return nil
		}
	}

	if err := cmd.Run(context.Background(), append([]string{"tetris3d"}, args...)); err != nil {
		t.Fatalf("cli run failed: %v", err)
	}
	return got, mode
}

func TestCommand_Defaults(t *testing.T) {
	opts, mode := runWithCapture(t)

	if mode != "root" {
		t.Errorf("Expected root action, got %s", mode)
	}
	if opts.Port != 8080 || opts.Host != "localhost" {
		t.Errorf("Unexpected address defaults: %s", opts.addr())
	}
	if opts.ConfigDir != "configs" {
		t.Errorf("Expected configs dir, got %s", opts.ConfigDir)
	}
	if opts.FrameInterval != 16*time.Millisecond {
		t.Errorf("Expected 16ms frame, got %v", opts.FrameInterval)
	}
	if opts.RateLimit.RPS != 20 || opts.RateLimit.Burst != 40 {
		t.Errorf("Unexpected rate limit defaults: %+v", opts.RateLimit)
	}
}

func TestCommand_FlagsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_DIR", "/tmp/tetris-configs")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("TRUST_PROXY", "true")

	opts, mode := runWithCapture(t, "--port", "9090", "--frame-interval", "50ms", "serve")

	if mode != "serve" {
		t.Errorf("Expected serve action, got %s", mode)
	}
	if opts.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", opts.Port)
	}
	if opts.FrameInterval != 50*time.Millisecond {
		t.Errorf("Expected 50ms frame, got %v", opts.FrameInterval)
	}
	if opts.ConfigDir != "/tmp/tetris-configs" {
		t.Errorf("Expected CONFIG_DIR to apply, got %s", opts.ConfigDir)
	}
	if opts.RateLimit.RPS != 0 {
		t.Errorf("Expected RATE_LIMIT_RPS to apply, got %d", opts.RateLimit.RPS)
	}
	if !opts.RateLimit.TrustProxy {
		t.Error("Expected TRUST_PROXY to apply")
	}
}

func TestCommand_MCPAPIURL(t *testing.T) {
	opts, mode := runWithCapture(t, "mcp", "--api-url", "http://127.0.0.1:9999")

	if mode != "mcp" {
		t.Errorf("Expected mcp action, got %s", mode)
	}
	if opts.APIURL != "http://127.0.0.1:9999" {
		t.Errorf("Expected api url, got %s", opts.APIURL)
	}
}

func TestInitializeServices(t *testing.T) {
	a, err := initializeServices(testOptions())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	if a.service == nil || a.hub == nil || a.sessions == nil {
		t.Fatal("Expected all services to be wired")
	}
	if a.configs.Count() == 0 {
		t.Error("Expected configurations to be loaded")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	opts := testOptions()
	opts.ConfigDir = "/non/existent/path"

	if _, err := initializeServices(opts); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_DefaultConfig(t *testing.T) {
	opts := testOptions()
	opts.DefaultConfig = "wide"

	a, err := initializeServices(opts)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	info, err := a.service.CreateSession(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.GameConfig.Width != 16 {
		t.Errorf("Expected the wide board by default, got width %d", info.GameConfig.Width)
	}

	opts.DefaultConfig = "nope"
	if _, err := initializeServices(opts); err == nil {
		t.Error("Expected error for unknown default config")
	}
}

func TestInboundHandler(t *testing.T) {
	a, err := initializeServices(testOptions())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx := context.Background()

	info, err := a.service.CreateSession(ctx, "classic", 7)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	handle := inboundHandler(a.service, a.hub)
	handle(info.ID, websocket.Inbound{Action: "start"})

	before, err := a.service.GetGameState(ctx, info.ID)
	if err != nil || before.Piece == nil {
		t.Fatalf("Expected started session with a piece, err=%v", err)
	}

	handle(info.ID, websocket.Inbound{Command: "left"})

	after, _ := a.service.GetGameState(ctx, info.ID)
	if after.Piece.Position.X != before.Piece.Position.X-1 {
		t.Errorf("Expected piece to move left from %d, got %d", before.Piece.Position.X, after.Piece.Position.X)
	}

	handle(info.ID, websocket.Inbound{Command: "pause"})
	handle(info.ID, websocket.Inbound{Action: "restart"})

	restarted, _ := a.service.GetGameState(ctx, info.ID)
	if restarted.Paused || restarted.Score != 0 {
		t.Errorf("Expected fresh unpaused game after restart, got %+v", restarted)
	}

	idle, err := a.service.CreateSession(ctx, "classic", 7)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	handle(idle.ID, websocket.Inbound{Action: "restart"})
	if state, _ := a.service.GetGameState(ctx, idle.ID); state.Piece != nil {
		t.Errorf("Expected restart not to start an idle session, got phase %s", state.Phase)
	}

	// Failures are reported to the session, never panic
	handle("zz99", websocket.Inbound{Command: "left"})
	handle(info.ID, websocket.Inbound{Action: "dance"})
}

func TestNewRootHandler(t *testing.T) {
	a, err := initializeServices(testOptions())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ts := httptest.NewServer(newRootHandler(a, testOptions(), "http://127.0.0.1:0"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /healthz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 from GET /mcp, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from POST /mcp, got %d", resp.StatusCode)
	}
}

func TestAPIReachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	if !apiReachable(context.Background(), ts.URL) {
		t.Error("Expected API to be reachable")
	}
	if apiReachable(context.Background(), "http://127.0.0.1:1") {
		t.Error("Expected closed port to be unreachable")
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	a, err := initializeServices(testOptions())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if _, err := a.service.CreateSession(context.Background(), "", 0); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, a.sessions, 5*time.Millisecond, 0)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for a.sessions.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if a.sessions.Count() != 0 {
		t.Errorf("Expected expired session to be removed, %d left", a.sessions.Count())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("cleanup routine did not stop on cancel")
	}
}
