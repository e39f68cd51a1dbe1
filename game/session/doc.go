// Package session provides session management for the Tetris 3D game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own engine instance, so games never share a grid,
// a score or a randomizer.
//
// Session Identifiers:
//
// Sessions use 4-character hexadecimal IDs for easy reference, generated
// from crypto/rand and retried on collision. Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config, engine.WithSeed(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
// Lifetime:
//
// State is held in memory only. Sessions disappear on process exit, on
// explicit deletion, or when CleanupExpiredSessions finds them idle.
package session
