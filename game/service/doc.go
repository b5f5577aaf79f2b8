// Package service provides the business logic layer for Mummy Maze.
//
// The service package implements:
//   - Multi-session game management
//   - Level lookup, listing and storage
//   - Move processing, bulk moves, undo and reset
//   - Move history pagination
//   - Solving stored or inline levels with a shared solution cache
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager loads and stores boards.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine instance. Session
// operations are serialized by one service lock; solver runs happen outside
// it so a long search never blocks play.
//
// Usage:
//
//	levels, _ := level.NewManager("levels")
//	sessions := session.NewManager()
//	gameService := service.NewGameService(sessions, levels,
//		service.WithSolutionCache(cache.NewMemoryCache()),
//		service.WithSolveTimeout(10*time.Second),
//	)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := gameService.Move(ctx, info.ID, "east", false)
//
// Solving:
//
// Solve verdicts are keyed by the level fingerprint. Solved and unsolvable
// verdicts get a solution id and are cached; aborted searches are returned
// but never stored. Request options can lower the configured search limits
// but not raise them.
package service
