package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kamstrup/intmap"
)

// ErrPieceActive is returned when a spawn would replace the falling piece
var ErrPieceActive = errors.New("a piece is already falling")

// RenderSink receives a full snapshot after every mutating operation
type RenderSink interface {
	Render(state *GameState)
}

// RenderInitializer is implemented by render sinks that need setup before
// the first frame. A failure keeps the engine idle.
type RenderInitializer interface {
	Init(config *GameConfig) error
}

// StatsSink receives score, level and lines whenever they may have changed
type StatsSink interface {
	StatsChanged(stats Stats)
}

// InputSource is drained at the start of every Update
type InputSource interface {
	Commands() []Command
}

// Randomizer picks spawn kinds
type Randomizer interface {
	IntN(n int) int
}

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	Start() error
	Restart()
	Update()
	Tick(elapsed time.Duration)

	// Player input
	Apply(cmd Command) bool
	MoveLeft() bool
	MoveRight() bool
	Rotate() bool
	SoftDrop() bool
	HardDrop() int
	TogglePause() bool

	// State
	GetState() *GameState
	GetConfig() *GameConfig
	Stats() Stats
	Phase() Phase
	IsGameOver() bool
	IsPaused() bool
	DrainEvents() []Event
}

// GameEngine implements the Engine interface
type GameEngine struct {
	config *GameConfig
	grid   *Grid
	piece  *Piece

	score        int
	level        int
	lines        int
	dropInterval time.Duration
	lastDrop     time.Time
	lastCleared  int
	paused       bool
	gameOver     bool
	phase        Phase
	message      string

	pieceCounts *intmap.Map[Kind, int]
	events      []Event

	clock  Clock
	rng    Randomizer
	render RenderSink
	stats  StatsSink
	input  InputSource
}

// Option configures collaborators of a GameEngine
type Option func(*GameEngine)

// WithClock replaces the wall clock used by Update
func WithClock(c Clock) Option {
	return func(e *GameEngine) { e.clock = c }
}

// WithRandomizer replaces the spawn randomizer
func WithRandomizer(r Randomizer) Option {
	return func(e *GameEngine) { e.rng = r }
}

// WithSeed makes spawns deterministic
func WithSeed(seed uint64) Option {
	return func(e *GameEngine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) }
}

// WithRenderSink attaches the renderer
func WithRenderSink(s RenderSink) Option {
	return func(e *GameEngine) { e.render = s }
}

// WithStatsSink attaches the score display
func WithStatsSink(s StatsSink) Option {
	return func(e *GameEngine) { e.stats = s }
}

// WithInputSource attaches a command source drained by Update
func WithInputSource(in InputSource) Option {
	return func(e *GameEngine) { e.input = in }
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// NewEngine creates a new game engine with the provided configuration. The
// engine starts idle; call Start to spawn the first piece.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	grid, err := NewGrid(config.Width, config.Height)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:       config,
		grid:         grid,
		level:        1,
		dropInterval: InitialDropInterval,
		phase:        PhaseIdle,
		pieceCounts:  intmap.New[Kind, int](KindCount),
		clock:        SystemClock{},
		rng:          globalRand{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewEngineWithDefaults creates a new game engine on the classic 10x20 board
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultConfig(), opts...)
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return e
}

// Start initializes the renderer and spawns the first piece. Calling Start on
// a running engine does nothing.
func (e *GameEngine) Start() error {
	if e.phase != PhaseIdle {
		return nil
	}
	if ri, ok := e.render.(RenderInitializer); ok {
		if err := ri.Init(e.config); err != nil {
			e.message = fmt.Sprintf("renderer unavailable: %v", err)
			return fmt.Errorf("start: render init: %w", err)
		}
	}
	e.lastDrop = e.clock.Now()
	e.message = ""
	e.spawn()
	e.notify()
	return nil
}

// Spawn places a random new piece. It does nothing before Start, after game
// over, or while a piece is still falling.
func (e *GameEngine) Spawn() {
	if !e.canSpawn() {
		return
	}
	e.spawn()
	e.notify()
}

// SpawnKind places a new piece of a specific kind under the same conditions
// as Spawn. A falling piece is never replaced.
func (e *GameEngine) SpawnKind(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("spawn: %w: %d", ErrUnknownKind, int(kind))
	}
	if e.piece != nil {
		return fmt.Errorf("spawn %s: %w", kind, ErrPieceActive)
	}
	if !e.canSpawn() {
		return nil
	}
	e.spawnKind(kind)
	e.notify()
	return nil
}

func (e *GameEngine) canSpawn() bool {
	return e.phase != PhaseIdle && !e.gameOver && e.piece == nil
}

func (e *GameEngine) spawn() {
	e.spawnKind(Kind(e.rng.IntN(KindCount)))
}

func (e *GameEngine) spawnKind(kind Kind) {
	e.phase = PhaseSpawning
	piece, err := NewPiece(kind, e.grid.Width(), e.grid.Height())
	if err != nil {
		// Dimensions and kind are validated before reaching here
		panic(err)
	}
	if !piece.IsValidPosition(piece.x, piece.y, e.grid) {
		e.endGame()
		return
	}
	e.piece = piece
	count, _ := e.pieceCounts.Get(kind)
	e.pieceCounts.Put(kind, count+1)
	e.phase = PhaseActive
	e.record(EventSpawn, fmt.Sprintf("%s spawned at (%d,%d)", kind, piece.x, piece.y), 0)
}

func (e *GameEngine) endGame() {
	e.piece = nil
	e.gameOver = true
	e.phase = PhaseGameOver
	e.message = fmt.Sprintf("Game Over! Final score: %d", e.score)
	e.record(EventGameOver, e.message, 0)
	e.publishStats()
}

// Tick advances gravity by one step when more than the drop interval has
// elapsed since the last drop
func (e *GameEngine) Tick(elapsed time.Duration) {
	if e.paused || e.gameOver || e.piece == nil {
		return
	}
	if elapsed <= e.dropInterval {
		return
	}
	e.gravityDrop()
	e.lastDrop = e.clock.Now()
	e.notify()
}

// Update drains pending input and advances gravity against the clock
func (e *GameEngine) Update() {
	if e.input != nil {
		for _, cmd := range e.input.Commands() {
			e.Apply(cmd)
		}
	}
	e.Tick(e.clock.Now().Sub(e.lastDrop))
}

// Apply is the input boundary. Commands are ignored before Start and after
// game over, and only pause gets through while paused.
func (e *GameEngine) Apply(cmd Command) bool {
	if e.phase == PhaseIdle || e.gameOver {
		return false
	}
	if e.paused && cmd != CommandPause {
		return false
	}
	switch cmd {
	case CommandLeft:
		return e.MoveLeft()
	case CommandRight:
		return e.MoveRight()
	case CommandRotate:
		return e.Rotate()
	case CommandDown:
		return e.SoftDrop()
	case CommandDrop:
		e.HardDrop()
		return true
	case CommandPause:
		return e.TogglePause()
	}
	return false
}

// lock writes the active piece into the grid and detaches it
func (e *GameEngine) lock() {
	if e.piece == nil {
		return
	}
	e.phase = PhaseLocking
	e.grid.Lock(e.piece.OccupiedCells())
	e.record(EventLock, fmt.Sprintf("%s locked at (%d,%d)", e.piece.kind, e.piece.x, e.piece.y), 0)
	e.piece = nil
}

// clearLines removes full rows and returns how many were removed
func (e *GameEngine) clearLines() int {
	e.phase = PhaseLineClearing
	n := e.grid.ClearLines()
	e.lastCleared = n
	if n > 0 {
		e.record(EventLineClear, fmt.Sprintf("Cleared %d line(s)", n), n)
	}
	return n
}

// UpdateScore credits a clear of lines rows at the current level, then
// recomputes level and drop interval. Counts below one only republish stats.
func (e *GameEngine) UpdateScore(lines int) {
	if lines <= 0 {
		e.publishStats()
		return
	}
	e.score += PointsForLines(lines, e.level)
	e.lines += lines
	newLevel := LevelForLines(e.lines)
	if newLevel > e.level {
		e.level = newLevel
		e.dropInterval = DropIntervalForLevel(newLevel)
		e.record(EventLevelUp, fmt.Sprintf("Level %d! Drop interval %dms", newLevel, e.dropInterval.Milliseconds()), 0)
	}
	e.publishStats()
}

// settle runs the lock, clear, score and spawn sequence
func (e *GameEngine) settle() {
	e.lock()
	if n := e.clearLines(); n > 0 {
		e.UpdateScore(n)
	}
	e.spawn()
}

// TogglePause flips the paused flag. It has no effect once the game is over.
func (e *GameEngine) TogglePause() bool {
	if e.gameOver || e.phase == PhaseIdle {
		return false
	}
	e.paused = !e.paused
	if e.paused {
		e.message = "Paused"
		e.record(EventPause, e.message, 0)
	} else {
		e.message = ""
		e.lastDrop = e.clock.Now()
		e.record(EventResume, "Resumed", 0)
	}
	e.notify()
	return true
}

// Restart empties the grid, resets progression and spawns a fresh piece. An
// engine that never started, or whose renderer failed to start, stays idle.
func (e *GameEngine) Restart() {
	if e.phase == PhaseIdle {
		return
	}
	e.grid.Reset()
	e.piece = nil
	e.score = 0
	e.level = 1
	e.lines = 0
	e.lastCleared = 0
	e.dropInterval = InitialDropInterval
	e.paused = false
	e.gameOver = false
	e.message = ""
	e.pieceCounts.Clear()
	e.lastDrop = e.clock.Now()
	e.record(EventRestart, "Game restarted", 0)
	e.publishStats()
	e.spawn()
	e.notify()
}

func (e *GameEngine) record(t EventType, msg string, lines int) {
	if len(e.events) >= maxRecordedEvents {
		e.events = e.events[1:]
	}
	e.events = append(e.events, Event{Type: t, Message: msg, Lines: lines, Timestamp: e.clock.Now()})
}

// DrainEvents returns and forgets the events recorded since the last call
func (e *GameEngine) DrainEvents() []Event {
	out := e.events
	e.events = nil
	return out
}

func (e *GameEngine) notify() {
	if e.render != nil {
		e.render.Render(e.GetState())
	}
}

func (e *GameEngine) publishStats() {
	if e.stats != nil {
		e.stats.StatsChanged(e.Stats())
	}
}

// GetState returns a detached snapshot of the session
func (e *GameEngine) GetState() *GameState {
	counts := make(map[string]int, KindCount)
	for _, k := range Kinds() {
		if n, ok := e.pieceCounts.Get(k); ok {
			counts[k.String()] = n
		}
	}
	state := &GameState{
		ConfigName:     e.config.Name,
		Width:          e.grid.Width(),
		Height:         e.grid.Height(),
		Scale:          e.config.Scale,
		Grid:           e.grid.Snapshot(),
		Score:          e.score,
		Level:          e.level,
		Lines:          e.lines,
		DropIntervalMs: e.dropInterval.Milliseconds(),
		Paused:         e.paused,
		GameOver:       e.gameOver,
		Phase:          e.phase,
		LastCleared:    e.lastCleared,
		PieceCounts:    counts,
		Message:        e.message,
	}
	if e.piece != nil {
		state.Piece = e.piece.snapshot()
	}
	return state
}

// GetConfig returns the configuration the engine was built with
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// Stats returns the current progression summary
func (e *GameEngine) Stats() Stats {
	return Stats{Score: e.score, Level: e.level, Lines: e.lines, GameOver: e.gameOver}
}

func (e *GameEngine) Phase() Phase                { return e.phase }
func (e *GameEngine) IsGameOver() bool            { return e.gameOver }
func (e *GameEngine) IsPaused() bool              { return e.paused }
func (e *GameEngine) Score() int                  { return e.score }
func (e *GameEngine) Level() int                  { return e.level }
func (e *GameEngine) Lines() int                  { return e.lines }
func (e *GameEngine) DropInterval() time.Duration { return e.dropInterval }

// Piece returns the active piece, nil between lock and spawn or after game over
func (e *GameEngine) Piece() *Piece {
	return e.piece
}

// Grid returns a copy of the board
func (e *GameEngine) Grid() *Grid {
	return e.grid.Clone()
}

// SetCell writes directly into the board. Test and analysis setups use it to
// build positions; it is not part of normal play.
func (e *GameEngine) SetCell(x, y int, c Cell) {
	e.grid.Set(x, y, c)
}
