// Package api provides the HTTP REST API for Mummy Maze.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"level_id": "classic"}; empty for the default level)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info including the level
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current state (?format=text for the drawn board)
//   - POST /api/sessions/{id}/move - {"action": "east", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"actions": ["east", "wait"], "reset": false}
//   - POST /api/sessions/{id}/undo - Revert the last successful move
//   - POST /api/sessions/{id}/reset - Back to the initial state
//   - GET /api/sessions/{id}/history - Paginated history (?page=1&limit=20&order=desc)
//   - GET|POST /api/sessions/{id}/hint - Shortest line from the current state
//
// Levels:
//   - GET /api/levels - List stored levels
//   - POST /api/levels - {"id": "maze7", "level": {...}} or {"id": "maze7.txt", "text": "..."}
//   - GET /api/levels/{id} - Level JSON (?format=text for the text format)
//
// Solver:
//   - POST /api/solve - {"level_id": "classic"} or an inline "level" / "text", with
//     optional "options" {"max_expansions", "max_depth", "algorithm"} and "no_cache"
//   - GET /api/solutions/{id} - A cached verdict by solution id
//
// Other:
//   - GET /health - Liveness probe
//   - GET /ws?session={id} - WebSocket state updates for one session
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status code repeated in the body:
//
//	{"error": "session not found: session not found", "code": 404}
//
// Unknown sessions, levels and solutions map to 404; malformed actions,
// levels and requests to 400; moves or undo on a game that does not allow
// them to 409.
package api
