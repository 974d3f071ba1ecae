// Package session provides session management for the Sokoban server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to the file system or Redis
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns an engine.GameSession started on a catalog level.
//
// Session Identifiers:
//
// Generated sessions use 4-character hex IDs drawn from a random UUID. Custom
// IDs may use letters, digits, '-' and '_' and are matched case-insensitively.
//
// Persistence:
//
// FilePersistence writes one JSON file per session; RedisPersistence stores
// the same JSON under "<prefix>:session:<id>" and guards writes with a
// redsync lock. Both store the level id and the game snapshot, and restore
// the grid on top of the catalog template when a session is loaded.
//
// Usage:
//
//	catalog, _ := levels.NewCatalog("")
//	persistence, _ := session.NewFilePersistence("sessions", catalog)
//	manager := session.NewManagerWithPersistence(catalog, persistence)
//
//	sess, err := manager.Create("", 1)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Game.AttemptMove(engine.Left)
//	manager.Save(sess.ID)
package session
