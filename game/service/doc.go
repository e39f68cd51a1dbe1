// Package service provides the business logic layer for the Tetris 3D game.
//
// The service package implements:
//   - Multi-session game management
//   - Command parsing and routing to the right engine
//   - Bulk command execution with stop reasons
//   - The gravity driver that advances every running session
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// Publisher receives render snapshots, stats and events for connected clients.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation and the single lock that
// serializes engine access. Each session owns its own engine; commands, restarts
// and gravity frames for all sessions run under the service mutex, so an engine
// never sees two callers at once.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithPublisher(hub))
//
//	info, err := gameService.CreateSession(ctx, "classic", 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService.StartSession(ctx, info.ID)
//
//	go service.RunGravityLoop(ctx, gameService, service.DefaultFrameInterval)
//
//	result, err := gameService.Command(ctx, info.ID, "rotate")
//
// Errors:
//
// Lookups wrap ErrSessionNotFound and ErrConfigNotFound, command parsing wraps
// engine.ErrUnknownCommand, and commands sent before StartSession return
// ErrSessionNotStarted. Transports map them to status codes with errors.Is.
package service
