package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/tetris3d/game/engine"
	"github.com/wricardo/tetris3d/game/scene"
	"github.com/wricardo/tetris3d/game/service"
	"github.com/wricardo/tetris3d/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string, seed uint64) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error
	StartSessionFunc  func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game Operations
	CommandFunc     func(ctx context.Context, sessionID, command string) (*service.CommandResult, error)
	BulkCommandFunc func(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error)
	RestartFunc     func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string, seed uint64) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName, seed)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
		GameState:  &engine.GameState{Phase: engine.PhaseIdle},
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "classic",
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) StartSession(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, sessionID)
	}
	return &engine.GameState{Phase: engine.PhaseActive}, nil
}

// Game Operations
func (m *MockGameService) Command(ctx context.Context, sessionID, command string) (*service.CommandResult, error) {
	if m.CommandFunc != nil {
		return m.CommandFunc(ctx, sessionID, command)
	}
	return &service.CommandResult{
		Success:   true,
		Command:   command,
		GameState: &engine.GameState{},
	}, nil
}

func (m *MockGameService) BulkCommand(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error) {
	if m.BulkCommandFunc != nil {
		return m.BulkCommandFunc(ctx, sessionID, commands)
	}
	return &service.BulkCommandResult{
		Success:           true,
		CommandsExecuted:  len(commands),
		RequestedCommands: len(commands),
		GameState:         &engine.GameState{},
	}, nil
}

func (m *MockGameService) Restart(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, sessionID)
	}
	return &engine.GameState{Level: 1}, nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) AdvanceAll(ctx context.Context) int { return 0 }

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{
		Name:        configName,
		Description: "Test config",
		Width:       10,
		Height:      20,
		Scale:       30,
	}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return engine.ValidateGameConfig(config)
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	return NewServer(mockService, hub, append([]Option{WithStaticDir(t.TempDir())}, opts...)...)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func notFound(what string) error {
	return fmt.Errorf("session %s: %w", what, service.ErrSessionNotFound)
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed uint64) (*service.SessionInfo, error) {
					if configName != "" || seed != 0 {
						t.Errorf("Expected default config and seed, got %q %d", configName, seed)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create with config_name fallback and seed",
			requestBody: map[string]interface{}{"config_name": "wide", "seed": 7},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed uint64) (*service.SessionInfo, error) {
					if configName != "wide" || seed != 7 {
						t.Errorf("Expected wide/7, got %q %d", configName, seed)
					}
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Create and start",
			requestBody: map[string]interface{}{"config_id": "classic", "start": true},
			setupMock: func(m *MockGameService) {
				m.StartSessionFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return &engine.GameState{Phase: engine.PhaseActive, Piece: &engine.ActivePiece{Kind: "T"}}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.GameState == nil || resp.GameState.Piece == nil {
					t.Fatal("Expected started state with a piece")
				}
				if resp.GameState.Phase != engine.PhaseActive {
					t.Errorf("Expected active phase, got %s", resp.GameState.Phase)
				}
			},
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed uint64) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Minute)},
				{ID: "b", CreatedAt: base.Add(time.Minute), LastAccessedAt: base.Add(time.Minute)},
				{ID: "c", CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(2 * time.Minute)},
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"a", "c", "b"}},
		{"?sort=created&order=asc", []string{"a", "b", "c"}},
		{"?sort=created&limit=2", []string{"c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(tt.expected) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expected), resp.Count)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return notFound(sessionID)
			}
			return nil
		},
	}
	server := setupTestServer(t, mock)

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{"GET", "/api/sessions/ab12", http.StatusOK},
		{"GET", "/api/sessions/zzzz", http.StatusNotFound},
		{"DELETE", "/api/sessions/ab12", http.StatusOK},
		{"DELETE", "/api/sessions/zzzz", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

// Game Operation Tests

func TestStartSession(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"started", nil, http.StatusOK},
		{"missing", notFound("x"), http.StatusNotFound},
		{"renderer failure", fmt.Errorf("%w: webgl missing", service.ErrRendererNotReady), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockGameService{
				StartSessionFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &engine.GameState{Phase: engine.PhaseActive}, nil
				},
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/start", nil))
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"valid command", map[string]string{"command": "left"}, nil, http.StatusOK},
		{"unknown command", map[string]string{"command": "jump"}, fmt.Errorf("%w: jump", engine.ErrUnknownCommand), http.StatusBadRequest},
		{"not started", map[string]string{"command": "left"}, fmt.Errorf("session ab12: %w", service.ErrSessionNotStarted), http.StatusConflict},
		{"missing session", map[string]string{"command": "left"}, notFound("ab12"), http.StatusNotFound},
		{"malformed body", "oops", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCommand string
			mock := &MockGameService{
				CommandFunc: func(ctx context.Context, sessionID, command string) (*service.CommandResult, error) {
					gotCommand = command
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.CommandResult{
						Success:   true,
						Command:   command,
						GameState: &engine.GameState{Score: 100, Level: 1, Lines: 1},
					}, nil
				},
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/command", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var resp service.CommandResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.GameState.Score != 100 {
					t.Errorf("Unexpected result: %+v", resp)
				}
				if gotCommand != "left" {
					t.Errorf("Expected command to reach the service, got %q", gotCommand)
				}
			}
		})
	}
}

func TestBulkCommand(t *testing.T) {
	mock := &MockGameService{
		BulkCommandFunc: func(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error) {
			if len(commands) == 0 {
				return nil, service.ErrEmptyCommandList
			}
			return &service.BulkCommandResult{
				CommandsExecuted:  2,
				RequestedCommands: len(commands),
				StopReasonCode:    service.StopReasonInvalidCommand,
				StoppedOnCommand:  3,
				GameState:         &engine.GameState{},
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	t.Run("stopped early", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/commands",
			map[string][]string{"commands": {"left", "rotate", "fly"}}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var resp service.BulkCommandResult
		parseResponse(t, w, &resp)
		if resp.StopReasonCode != service.StopReasonInvalidCommand || resp.StoppedOnCommand != 3 {
			t.Errorf("Unexpected stop info: %+v", resp)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/commands", map[string][]string{"commands": {}}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestRestart(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/restart", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.Level != 1 {
		t.Errorf("Expected restarted state, got %+v", resp.State)
	}
}

func TestRestart_NotStarted(t *testing.T) {
	mock := &MockGameService{
		RestartFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return nil, fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotStarted)
		},
	}
	server := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/restart", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a session that never started, got %d", w.Code)
	}
}

func TestGetGameStateAndScene(t *testing.T) {
	grid := [][]engine.Cell{{0, 0}, {0xFFFF00, 0}}
	state := &engine.GameState{Width: 2, Height: 2, Scale: 10, Grid: grid}
	mock := &MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return state, nil
		},
	}
	server := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/scene", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var sc scene.Scene
	parseResponse(t, w, &sc)
	if len(sc.Boxes) != 1 {
		t.Fatalf("Expected 1 box, got %d", len(sc.Boxes))
	}
	if sc.Boxes[0].X != -5 || sc.Boxes[0].Y != -5 {
		t.Errorf("Expected box at (-5,-5), got (%g,%g)", sc.Boxes[0].X, sc.Boxes[0].Y)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/zzzz/scene", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	mock := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Width: 10, Height: 20, Scale: 30}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName != "classic" {
				return nil, service.ErrConfigNotFound
			}
			return engine.DefaultConfig(), nil
		},
	}
	server := setupTestServer(t, mock)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		var configs []*service.ConfigInfo
		parseResponse(t, w, &configs)
		if len(configs) != 1 || configs[0].Width != 10 {
			t.Errorf("Unexpected configs: %+v", configs)
		}
	})

	t.Run("get with extension", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/classic.json", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/none", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("create valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := engine.GameConfig{Name: "huge", Width: 20, Height: 40, Scale: 15}
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", body))
		if w.Code != http.StatusCreated {
			t.Errorf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("create invalid", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := engine.GameConfig{Name: "flat", Width: 10, Height: 1, Scale: 15}
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("create without name", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", engine.GameConfig{Width: 10}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

// Middleware Tests

func TestRequestID(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(w.Header().Get("X-Request-Id")) != 36 {
		t.Errorf("Expected a generated UUID, got %q", w.Header().Get("X-Request-Id"))
	}

	req := makeRequest("GET", "/api/healthz", nil)
	req.Header.Set("X-Request-Id", "trace-1")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Header().Get("X-Request-Id") != "trace-1" {
		t.Errorf("Expected incoming request ID to be echoed, got %q", w.Header().Get("X-Request-Id"))
	}
}

func TestRateLimit(t *testing.T) {
	server := setupTestServer(t, &MockGameService{}, WithRateLimit(RateLimit{RPS: 1, Burst: 2}))

	send := func(ip string) int {
		req := makeRequest("POST", "/api/sessions/ab12/command", map[string]string{"command": "left"})
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("Expected first request allowed, got %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("Expected burst request allowed, got %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Expected other clients unaffected, got %d", code)
	}

	// Reads are not limited
	req := makeRequest("GET", "/api/sessions/ab12/state", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected state read to bypass the limiter, got %d", w.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	if ip := clientIP(req, false); ip != "192.168.1.5" {
		t.Errorf("Expected remote host, got %s", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := clientIP(req, false); ip != "192.168.1.5" {
		t.Errorf("Expected forwarded header to be ignored without a trusted proxy, got %s", ip)
	}
	if ip := clientIP(req, true); ip != "203.0.113.9" {
		t.Errorf("Expected first forwarded hop behind a trusted proxy, got %s", ip)
	}
}

func TestRateLimit_ForwardedForCannotReset(t *testing.T) {
	server := setupTestServer(t, &MockGameService{}, WithRateLimit(RateLimit{RPS: 1, Burst: 2}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := makeRequest("POST", "/api/sessions/ab12/command", map[string]string{"command": "left"})
		req.RemoteAddr = "10.0.0.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected a new forwarded address not to bypass the limit, got codes %v", codes)
	}
}

func TestIPLimiter_PrunesIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(RateLimit{RPS: 5, Burst: 5})
	l.now = func() time.Time { return now }
	l.lastPrune = now

	l.get("10.0.0.1")
	l.get("10.0.0.2")
	now = now.Add(limiterIdleTTL / 2)
	l.get("10.0.0.2")

	now = now.Add(limiterIdleTTL / 2)
	l.get("10.0.0.3")

	if len(l.limiters) != 2 {
		t.Fatalf("Expected 2 buckets after pruning, got %d", len(l.limiters))
	}
	if _, ok := l.limiters["10.0.0.1"]; ok {
		t.Error("Expected idle client to be evicted")
	}
	if _, ok := l.limiters["10.0.0.2"]; !ok {
		t.Error("Expected recently seen client to be kept")
	}
}

// WebSocket Tests

func TestWebSocket(t *testing.T) {
	t.Run("missing session parameter", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		mock := &MockGameService{
			GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
				return nil, notFound(sessionID)
			},
		}
		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?session=zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("no hub", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil, WithStaticDir(t.TempDir()))
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?session=ab12", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
	})
}
