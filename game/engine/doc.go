// Package engine provides the core rules of the Mummy Maze puzzle.
//
// The engine package implements the game mechanics including:
//   - Edge-based walls and gates between grid cells
//   - Level validation and static board geometry
//   - Deterministic pursuer movement (white mummies, red mummies, scorpions)
//   - The full-turn state transition used by both play and search
//   - Interactive play with undo, reset and move history
//
// Core Types:
//
// Level is the serialized board description. NewGeometry validates it and
// derives the immutable Geometry; InitialState builds the first WorldState.
// Advance is a pure function from (Geometry, WorldState, Action) to the next
// WorldState, the ordered event log and the turn Outcome. GameEngine wraps
// Advance for step-by-step play and implements the Engine interface.
//
// Usage:
//
//	geometry, state, err := engine.Prepare(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	next, events, outcome, err := engine.Advance(geometry, state, engine.MoveEast)
//	if errors.Is(err, engine.ErrIllegalAction) {
//		// blocked by a wall, a closed gate or the board edge
//	}
//
// Game Rules:
//
// Each turn the player moves one cell or waits. Stepping on a trap, onto any
// pursuer, or onto the exit ends the game at once; stepping onto a key flips
// every gate. Then every mummy takes two single-cell steps toward the
// player, and every scorpion takes one. White mummies close the column gap
// first, red mummies the row gap, scorpions whichever gap is larger. A
// pursuer only moves if the step brings it strictly closer; otherwise it
// stays. Pursuers landing on keys flip the gates too. A mummy reaching the
// player wins the game for the mummies.
package engine
