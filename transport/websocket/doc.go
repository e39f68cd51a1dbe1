// Package websocket provides the WebSocket transport for the Tetris 3D game.
//
// The browser client is the render and input collaborator of a session: it
// receives every snapshot the engine publishes and sends keyboard commands
// back over the same connection.
//
// Architecture:
//
// A central Hub owns all connections. Each client has a read goroutine and a
// write goroutine; the hub's Run loop is the only place client sets change.
// Publishers (the service's render and stats sinks) enqueue into a buffered
// channel and never block, because they are called while the service holds
// its lock.
//
// Message Protocol:
//
// Outgoing, one JSON document per frame:
//
//	{"session_id":"ab12","event":"state_update","game_state":{...},"scene":{...}}
//	{"session_id":"ab12","event":"stats","data":{"score":100,"level":1,"lines":1}}
//	{"session_id":"ab12","event":"events","data":[{"type":"lock",...}]}
//
// Incoming:
//
//	{"command":"left"}     any name accepted by engine.ParseCommand
//	{"action":"restart"}   start | restart | state
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	hub.SetInboundHandler(func(sessionID string, msg websocket.Inbound) { ... })
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
