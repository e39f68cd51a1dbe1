// Package mcp exposes the Tetris 3D REST API as Model Context Protocol tools.
//
// The client holds no game state of its own. Every tool call is translated
// into an HTTP request against a running server, so sessions created here are
// the same sessions a browser renders at /?session=<id>.
//
// Tools:
//   - create_session: Create and start a session (config_name, seed)
//   - list_sessions / get_session: Inspect sessions
//   - game_state: Score, level, phase and an ASCII board
//   - command: One command (left, right, rotate, down, drop, pause)
//   - bulk_commands: Up to engine.MaxBulkCommands commands in sequence
//   - restart_game: Fresh game on the same board
//   - list_configs: Board sizes available on the server
//   - game_instructions: Rules, gravity and scoring
//   - describe_board: Column heights, bumpiness, holes and piece counts
//
// The server speaks MCP over stdio (see Run). API errors surface as tool
// errors carrying the server's error message.
package mcp
