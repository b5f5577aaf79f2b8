// Package session provides session management for Mummy Maze games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique 4-character session ID generation
//   - File persistence that restores games by replaying their action path
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session manager that handles all session operations.
// FilePersistence stores one JSON document per session holding the level
// id, the level fingerprint, timestamps and the successful actions played.
// Loading replays those actions on the level; a level whose fingerprint
// changed since the save is rejected with ErrLevelChanged.
//
// Usage:
//
//	levels, _ := level.NewManager("levels")
//	store, _ := session.NewFilePersistence("sessions", levels)
//	manager := session.NewManagerWithPersistence(store)
//
//	classic, _ := levels.LoadLevel("classic")
//	sess, err := manager.Create("", "classic", classic)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Sessions evicted from memory are reloaded from disk on access
//	manager.CleanupExpiredSessions(time.Hour)
//	sess, err = manager.Get(sess.ID)
package session
