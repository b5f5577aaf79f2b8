// Package mcp exposes Mummy Maze to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API and the JSON response is rendered as plain text with
// the drawn board, so an agent never needs to parse coordinates out of JSON.
//
// MCP Tools:
//   - list_levels: Stored levels with their sizes and enemy counts
//   - create_session, get_session, list_sessions: Session management
//   - game_state: Current board, enemies and legal actions
//   - move: One action (north/south/east/west/wait)
//   - bulk_move: Several actions, stopping at the first blocked one
//   - undo, reset_game: Step back one move or return to turn 0
//   - move_history: Paginated history
//   - hint: Next action of a shortest winning line from the current state
//   - solve_level: Solve a stored level or an inline text board
//   - get_solution: A cached verdict by solution id
//   - game_instructions: Complete rules and legend
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
