// Package solver finds shortest winning action sequences for Mummy Maze
// levels.
//
// Search runs A* over post-turn world states: the cost of a node is the
// number of turns taken and the heuristic is the Manhattan distance from the
// player to the exit. Losing moves are pruned, states are deduplicated on
// their canonical key, and the search stops with a Result that is Solved,
// Unsolvable, or Aborted by a node limit, a depth limit or cancellation.
//
// Usage:
//
//	res, err := solver.Solve(ctx, level, solver.Options{MaxExpansions: 200000})
//	if err != nil {
//		return err // invalid level
//	}
//	if res.Status == solver.Solved {
//		fmt.Println(res.Actions)
//	}
//
// SolveAll solves many levels concurrently.
package solver
