// Package api provides HTTP REST API handlers for the Tetris 3D game.
//
// Endpoints (all under /api unless noted):
//
// Session Management:
//   - POST   /sessions               Create a session {config_id, seed, start}
//   - GET    /sessions               List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /sessions/{id}          Session info with current state
//   - DELETE /sessions/{id}          Remove a session
//
// Game Operations:
//   - POST /sessions/{id}/start      Spawn the first piece
//   - POST /sessions/{id}/command    {"command":"left"}
//   - POST /sessions/{id}/commands   {"commands":["left","rotate","drop"]}
//   - POST /sessions/{id}/restart    Fresh game on the same board
//   - GET  /sessions/{id}/state      Raw snapshot
//   - GET  /sessions/{id}/scene      Snapshot projected into 3D boxes
//
// Configuration:
//   - GET  /configs, GET /configs/{name}, POST /configs
//
// Other:
//   - GET /healthz (also /api/healthz)
//   - GET /ws?session={id}           WebSocket upgrade (not under /api)
//   - everything else is served from the static directory
//
// Every response carries an X-Request-Id header. The two command endpoints
// are rate limited per client IP when WithRateLimit is set.
//
// Error Handling:
//
// Errors are returned as JSON. The status code comes from errors.Is against
// the service and engine sentinels: 404 for unknown sessions and configs,
// 400 for unknown commands and invalid configs, 409 for commands sent before
// start, 503 when the renderer could not initialize.
//
//	{
//	  "error": "session zz99: session not found",
//	  "code": 404
//	}
package api
