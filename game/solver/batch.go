package solver

import (
	"context"
	"runtime"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"golang.org/x/sync/errgroup"
)

// BatchItem is one named level to solve
type BatchItem struct {
	Name  string
	Level *engine.Level
}

// BatchResult pairs a level name with its result or validation error
type BatchResult struct {
	Name   string  `json:"name"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// SolveAll solves the items concurrently, at most workers at a time
// (GOMAXPROCS when workers <= 0). Results keep the order of items. An
// invalid level is reported in its BatchResult and does not stop the batch.
func SolveAll(ctx context.Context, items []BatchItem, opts Options, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			results[i].Name = item.Name
			res, err := Solve(ctx, item.Level, opts)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
