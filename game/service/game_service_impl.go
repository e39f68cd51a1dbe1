package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/wricardo/tetris3d/game/engine"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrConfigNotFound    = errors.New("configuration not found")
	ErrSessionNotStarted = errors.New("session not started")
	ErrEmptyCommandList  = errors.New("no commands provided")
	ErrRendererNotReady  = errors.New("renderer not ready")
)

// gameServiceImpl implements the GameService interface. One mutex serializes
// every engine call, since engines are single-threaded.
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	publisher Publisher
	mu        sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithPublisher routes render and stats updates of every new session to p
func WithPublisher(p Publisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new idle game session. A zero seed picks pieces
// from the global random source.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, seed uint64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					configIDs := lo.Map(availableConfigs, func(c *ConfigInfo, _ int) string { return c.ConfigID })
					return nil, fmt.Errorf("config '%s' not found, available configs: %v: %w", configName, configIDs, err)
				}
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	var opts []engine.Option
	var sink *sessionSink
	if s.publisher != nil {
		sink = &sessionSink{publisher: s.publisher}
		opts = append(opts, engine.WithRenderSink(sink), engine.WithStatsSink(sink))
	}
	if seed != 0 {
		opts = append(opts, engine.WithSeed(seed))
	}

	session, err := s.sessions.Create("", config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if sink != nil {
		sink.sessionID = session.ID
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		GameConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session), nil
}

func (s *gameServiceImpl) sessionInfo(session *Session) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     s.getConfigID(session.Config.Name),
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		GameConfig:     session.Config,
	}
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.sessions.List(), func(sess *Session, _ int) *SessionInfo {
		return s.sessionInfo(sess)
	}), nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// StartSession spawns the first piece. Starting a running session is a no-op.
func (s *gameServiceImpl) StartSession(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if err := sess.Engine.Start(); err != nil {
		return sess.Engine.GetState(), fmt.Errorf("%w: %v", ErrRendererNotReady, err)
	}
	s.publishEvents(sess.ID, sess.Engine.DrainEvents())
	return sess.Engine.GetState(), nil
}

// Command executes a single player command for a session
func (s *gameServiceImpl) Command(ctx context.Context, sessionID, command string) (*CommandResult, error) {
	cmd, err := engine.ParseCommand(command)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	eng := sess.Engine
	if eng.Phase() == engine.PhaseIdle {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotStarted)
	}

	before := eng.Stats()
	success := eng.Apply(cmd)
	events := eng.DrainEvents()
	s.publishEvents(sess.ID, events)

	state := eng.GetState()
	return &CommandResult{
		Success:      success,
		Command:      cmd.String(),
		GameState:    state,
		Message:      commandMessage(cmd, success, state),
		Events:       events,
		LinesCleared: state.Lines - before.Lines,
		ScoreDelta:   state.Score - before.Score,
	}, nil
}

func commandMessage(cmd engine.Command, success bool, state *engine.GameState) string {
	switch {
	case state.Message != "":
		return state.Message
	case success:
		return fmt.Sprintf("%s ok", cmd)
	default:
		return fmt.Sprintf("%s blocked", cmd)
	}
}

// BulkCommand executes a sequence of commands, stopping at the first invalid
// command, at game over, or at an input rejected because the game is paused
func (s *gameServiceImpl) BulkCommand(ctx context.Context, sessionID string, commands []string) (*BulkCommandResult, error) {
	if len(commands) == 0 {
		return nil, ErrEmptyCommandList
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	eng := sess.Engine
	if eng.Phase() == engine.PhaseIdle {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotStarted)
	}

	result := &BulkCommandResult{
		RequestedCommands: len(commands),
		Events:            []engine.Event{},
	}
	if len(commands) > engine.MaxBulkCommands {
		commands = commands[:engine.MaxBulkCommands]
		result.Truncated = true
		result.Limit = engine.MaxBulkCommands
	}

	before := eng.Stats()
	for i, name := range commands {
		if eng.IsGameOver() {
			result.StopReasonCode = StopReasonGameOver
			result.StoppedReason = "game is over"
			result.StoppedOnCommand = i + 1
			break
		}
		cmd, err := engine.ParseCommand(name)
		if err != nil {
			result.StopReasonCode = StopReasonInvalidCommand
			result.StoppedReason = err.Error()
			result.StoppedOnCommand = i + 1
			break
		}
		if eng.IsPaused() && cmd != engine.CommandPause {
			result.StopReasonCode = StopReasonPaused
			result.StoppedReason = "game is paused"
			result.StoppedOnCommand = i + 1
			break
		}

		ok := eng.Apply(cmd)
		result.CommandsExecuted++
		step := StepInfo{
			Idx:     i + 1,
			Command: cmd.String(),
			Success: ok,
			Score:   eng.Score(),
			Lines:   eng.Lines(),
		}
		if p := eng.Piece(); p != nil {
			pos := p.Position()
			step.Piece = p.Kind().String()
			step.Position = &pos
		}
		result.Steps = append(result.Steps, step)

		if eng.IsGameOver() {
			result.StopReasonCode = StopReasonGameOver
			result.StoppedReason = "game over"
			result.StoppedOnCommand = i + 1
			break
		}
	}

	events := eng.DrainEvents()
	s.publishEvents(sess.ID, events)
	result.Events = append(result.Events, events...)

	state := eng.GetState()
	result.GameState = state
	result.Success = result.StopReasonCode == ""
	result.ScoreDelta = state.Score - before.Score
	result.LinesCleared = state.Lines - before.Lines
	result.GameOver = state.GameOver
	result.Message = state.Message
	result.Board = engine.RenderASCII(state)
	return result, nil
}

// Restart resets a running or finished session to a fresh game. Sessions
// that were never started stay idle.
func (s *gameServiceImpl) Restart(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if sess.Engine.Phase() == engine.PhaseIdle {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotStarted)
	}
	sess.Engine.Restart()
	s.publishEvents(sess.ID, sess.Engine.DrainEvents())
	return sess.Engine.GetState(), nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return sess.Engine.GetState(), nil
}

// AdvanceAll runs one frame of every running session and returns how many
// sessions were advanced
func (s *gameServiceImpl) AdvanceAll(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	advanced := 0
	for _, sess := range s.sessions.List() {
		if ctx.Err() != nil {
			break
		}
		eng := sess.Engine
		if eng.Phase() == engine.PhaseIdle || eng.IsGameOver() || eng.IsPaused() {
			continue
		}
		eng.Update()
		s.publishEvents(sess.ID, eng.DrainEvents())
		advanced++
	}
	return advanced
}

// ListConfigs returns available configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) publishEvents(sessionID string, events []engine.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	s.publisher.BroadcastEvent(sessionID, "events", events)
}

// sessionSink adapts a Publisher to the engine's render and stats sinks
type sessionSink struct {
	sessionID string
	publisher Publisher
}

func (k *sessionSink) Render(state *engine.GameState) {
	if k.sessionID == "" {
		return
	}
	k.publisher.BroadcastToSession(k.sessionID, state)
}

func (k *sessionSink) StatsChanged(stats engine.Stats) {
	if k.sessionID == "" {
		return
	}
	k.publisher.BroadcastEvent(k.sessionID, "stats", stats)
}
