package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/tetris3d/game/engine"
	"github.com/wricardo/tetris3d/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tetris 3D",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tetris 3D - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Every session is also visible live in the browser at /?session=<id>.

GAME OBJECTIVE:
Place falling pieces to complete full rows. Completed rows clear and score
points; the game ends when a new piece cannot spawn.

AVAILABLE TOOLS:
- create_session: Create and start a game session
- list_sessions / get_session: Inspect sessions
- game_state: Current board, piece and score
- command: One command (left, right, rotate, down, drop, pause)
- bulk_commands: Up to 50 commands in sequence
- restart_game: Fresh game on the same board
- list_configs: Available board sizes
- game_instructions: Rules and scoring
- describe_board: Column heights, holes and piece statistics

NOTE: The 'intent' parameter on command/bulk_commands serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create and start a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Seed for a reproducible piece sequence (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with an ASCII board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Send one command to the falling piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"command": map[string]interface{}{
					"type":        "string",
					"enum":        engine.CommandNames(),
					"description": "Command to execute",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this command (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, c.handleCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_commands",
		Description: fmt.Sprintf("Execute up to %d commands in sequence; stops at game over, an invalid command, or a paused game", engine.MaxBulkCommands),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"commands": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": engine.CommandNames(),
					},
					"description": "Array of commands",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "commands"},
		},
	}, c.handleBulkCommands)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_game",
		Description: "Restart the game with an empty board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRestart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game rules, scoring and command reference",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_board",
		Description: "Analyze the locked stack: column heights, holes, filled cells and spawn statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDescribeBoard)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Run serves the MCP protocol over stdio until the input closes
func (c *Client) Run() error {
	return server.ServeStdio(c.mcpServer)
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configName, _ := args["config_name"].(string)

	body := map[string]interface{}{"start": true}
	if configName != "" {
		body["config_id"] = configName
	}
	if seed, ok := args["seed"].(float64); ok && seed > 0 {
		body["seed"] = uint64(seed)
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "idle"
		if s.GameState != nil {
			status = s.GameState.Phase.String()
			if s.GameState.Paused {
				status += ", paused"
			}
			status = fmt.Sprintf("%s, score %d", status, s.GameState.Score)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, %s, Created: %s)\n",
			s.ID, s.ConfigName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	command, _ := args["command"].(string)

	var result service.CommandResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/command"), map[string]string{"command": command}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleBulkCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	commandsRaw, _ := args["commands"].([]interface{})

	commands := make([]string, 0, len(commandsRaw))
	for _, raw := range commandsRaw {
		if cmd, ok := raw.(string); ok {
			commands = append(commands, cmd)
		}
	}

	var result service.BulkCommandResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/commands"), map[string]interface{}{"commands": commands}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkCommandResult(sessionID, &result)), nil
}

func (c *Client) handleRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/restart"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_name: %s)\n  %s\n  Board: %dx%d, Scale: %g\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Scale)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions()), nil
}

func (c *Client) handleDescribeBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeBoard(&state)), nil
}

func gameInstructions() string {
	var b strings.Builder
	b.WriteString(`Tetris 3D - Complete Instructions

GAME OBJECTIVE:
Pieces fall from the top of the board. Move and rotate them so that they
fill complete rows. A full row clears, every row above shifts down, and you
score points. The game ends when a new piece cannot be placed at the top.

BOARD:
• Column 0 is on the left, row 0 is at the top
• Pieces spawn centered horizontally at row 0
• In ASCII boards: '.' empty, letters are locked cells by piece kind, '@' is the falling piece

PIECES:
• I (cyan), O (yellow), T (purple), S (green), Z (red), J (blue), L (orange)
• Rotation is 90° clockwise; a rotation that would collide is simply refused (no wall kicks)

COMMANDS:
`)
	fmt.Fprintf(&b, `• left/right: shift one column
• down: one row down (never locks)
• drop: fall to the bottom and lock immediately
• rotate: rotate clockwise
• pause: toggle pause (every other command is refused while paused)

GRAVITY:
The server drops the piece one row every drop interval, even between your
commands. The interval starts at %dms and shortens by %dms per level down to %dms.

SCORING (multiplied by the current level):
• 1 line: 100   • 2 lines: 300   • 3 lines: 500   • 4 lines: 800
Level = lines / %d + 1

STRATEGY:
• Keep the stack flat; use describe_board to check column heights and holes
• Leave one column open for I pieces to clear four rows at once
• bulk_commands is faster than single commands, up to %d per call
`, engine.InitialDropInterval.Milliseconds(), engine.DropIntervalStep.Milliseconds(),
		engine.MinDropInterval.Milliseconds(), engine.LinesPerLevel, engine.MaxBulkCommands)

	return b.String()
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return result
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state"
	}

	var b strings.Builder
	switch {
	case state.GameOver:
		b.WriteString("💀 GAME OVER\n")
	case state.Paused:
		b.WriteString("⏸ PAUSED\n")
	}

	fmt.Fprintf(&b, "Score: %d  Level: %d  Lines: %d\n", state.Score, state.Level, state.Lines)
	fmt.Fprintf(&b, "Phase: %s  Drop interval: %dms\n", state.Phase, state.DropIntervalMs)
	if p := state.Piece; p != nil {
		fmt.Fprintf(&b, "Piece: %s rotation %d at (%d,%d)\n", p.Kind, p.Rotation, p.Position.X, p.Position.Y)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	if len(state.Grid) > 0 {
		b.WriteString("\n")
		b.WriteString(engine.RenderASCII(state))
	}
	return b.String()
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s\n", result.Command)
	} else {
		fmt.Fprintf(&b, "✗ %s refused\n", result.Command)
	}
	if result.LinesCleared > 0 {
		fmt.Fprintf(&b, "Cleared %d line(s), +%d points\n", result.LinesCleared, result.ScoreDelta)
	}
	for _, ev := range result.Events {
		if ev.Type == engine.EventSpawn {
			continue
		}
		fmt.Fprintf(&b, "• %s: %s\n", ev.Type, ev.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkCommandResult(sessionID string, result *service.BulkCommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d/%d commands", sessionID, result.CommandsExecuted, result.RequestedCommands)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on command %d: %s (%s)\n", result.StoppedOnCommand, result.StoppedReason, result.StopReasonCode)
	}
	fmt.Fprintf(&b, "Score Δ: %+d  Lines cleared: %d\n", result.ScoreDelta, result.LinesCleared)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			mark := "✓"
			if !step.Success {
				mark = "✗"
			}
			fmt.Fprintf(&b, "%3d. %s %-6s", step.Idx, mark, step.Command)
			if step.Position != nil {
				fmt.Fprintf(&b, " %s@(%d,%d)", step.Piece, step.Position.X, step.Position.Y)
			}
			fmt.Fprintf(&b, " score=%d lines=%d\n", step.Score, step.Lines)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func describeBoard(state *engine.GameState) string {
	heights := engine.ColumnHeights(state.Grid)
	holes := engine.CountHoles(state.Grid)
	filled := engine.CountFilledCells(state.Grid)

	maxHeight, bumpiness := 0, 0
	for i, h := range heights {
		maxHeight = max(maxHeight, h)
		if i > 0 {
			d := h - heights[i-1]
			if d < 0 {
				d = -d
			}
			bumpiness += d
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Board %dx%d\n", state.Width, state.Height)
	fmt.Fprintf(&b, "Column heights: %v\n", heights)
	fmt.Fprintf(&b, "Max height: %d  Bumpiness: %d  Holes: %d  Filled cells: %d\n", maxHeight, bumpiness, holes, filled)

	if len(state.PieceCounts) > 0 {
		kinds := make([]string, 0, len(state.PieceCounts))
		for kind := range state.PieceCounts {
			kinds = append(kinds, kind)
		}
		slices.Sort(kinds)
		b.WriteString("Pieces spawned:")
		for _, kind := range kinds {
			fmt.Fprintf(&b, " %s=%d", kind, state.PieceCounts[kind])
		}
		b.WriteString("\n")
	}

	if p := state.Piece; p != nil {
		cols := make([]int, 0, len(p.Cells))
		for _, cell := range p.Cells {
			if !slices.Contains(cols, cell.X) {
				cols = append(cols, cell.X)
			}
		}
		slices.Sort(cols)
		fmt.Fprintf(&b, "Falling %s covers columns %v\n", p.Kind, cols)
	}
	return b.String()
}
