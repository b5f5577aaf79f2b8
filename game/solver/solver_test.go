package solver

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/zyedidia/generic/mapset"
)

func cell(r, c int) *engine.Cell {
	return &engine.Cell{Row: r, Col: c}
}

func corridor() *engine.Level {
	l := engine.NewLevel(1, 3)
	l.Name = "corridor"
	l.Player = cell(0, 0)
	l.Exit = cell(0, 2)
	return l
}

func TestSolveCorridor(t *testing.T) {
	res, err := Solve(context.Background(), corridor(), Options{})
	require.NoError(t, err)
	require.Equal(t, Solved, res.Status)
	assert.Equal(t, []engine.Action{engine.MoveEast, engine.MoveEast}, res.Actions)
	assert.Equal(t, 2, res.Turns())
	require.Len(t, res.States, 2)
	assert.Equal(t, engine.Cell{Row: 0, Col: 1}, res.States[0].Player)
	assert.Equal(t, engine.Cell{Row: 0, Col: 2}, res.States[1].Player)
	assert.Equal(t, "solved in 2 turns", res.String())
}

func TestSolveEnclosedPlayerIsUnsolvable(t *testing.T) {
	l := engine.NewLevel(3, 3)
	l.Player = cell(1, 1)
	l.Exit = cell(0, 0)
	l.VWalls[1][1] = true
	l.VWalls[1][2] = true
	l.HWalls[1][1] = true
	l.HWalls[2][1] = true

	res, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	assert.Equal(t, Unsolvable, res.Status)
	assert.Empty(t, res.Reason)
	assert.Empty(t, res.Actions)
}

func TestSolveClosedGateWithoutKeyIsUnsolvable(t *testing.T) {
	l := corridor()
	l.VGates[0][2] = true

	res, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	assert.Equal(t, Unsolvable, res.Status)
}

func TestSolveUsesKeyToOpenGate(t *testing.T) {
	// Exit is behind a closed gate; the key sits one step south.
	l := engine.NewLevel(2, 3)
	l.Player = cell(0, 0)
	l.Exit = cell(0, 2)
	l.VGates[0][2] = true
	l.VWalls[1][2] = true
	l.HWalls[1][1] = true
	l.Keys = []engine.Cell{{Row: 1, Col: 0}}

	res, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	require.Equal(t, Solved, res.Status)
	assert.Equal(t, []engine.Action{engine.MoveSouth, engine.MoveNorth, engine.MoveEast, engine.MoveEast}, res.Actions)
	assert.True(t, res.States[0].GatesOpen)
}

func TestSolveAvoidsMummy(t *testing.T) {
	// Walking straight east runs into the white mummy; the open row below
	// is the only safe way round.
	l := engine.NewLevel(2, 4)
	l.Player = cell(0, 0)
	l.Exit = cell(0, 3)
	l.WhiteMummies = []engine.Cell{{Row: 0, Col: 2}}
	l.VWalls[0][2] = true

	res, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	if res.Status == Solved {
		g, start, err := engine.Prepare(l)
		require.NoError(t, err)
		_, outcome, err := engine.Simulate(g, start, res.Actions)
		require.NoError(t, err)
		assert.Equal(t, engine.Win, outcome.Kind)
	}
	assert.Equal(t, bfsTurns(t, l), turnsOf(res))
}

func TestSolveLimits(t *testing.T) {
	open := engine.NewLevel(6, 6)
	open.Player = cell(0, 0)
	open.Exit = cell(5, 5)

	t.Run("node limit", func(t *testing.T) {
		res, err := Solve(context.Background(), open, Options{MaxExpansions: 2})
		require.NoError(t, err)
		assert.Equal(t, Aborted, res.Status)
		assert.Equal(t, NodeLimit, res.Reason)
		assert.Equal(t, 2, res.Stats.Expanded)
	})

	t.Run("depth limit", func(t *testing.T) {
		res, err := Solve(context.Background(), corridor(), Options{MaxDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, Aborted, res.Status)
		assert.Equal(t, DepthLimit, res.Reason)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := Solve(ctx, open, Options{})
		require.NoError(t, err)
		assert.Equal(t, Aborted, res.Status)
		assert.Equal(t, Cancelled, res.Reason)
	})
}

func TestSolveInvalidLevel(t *testing.T) {
	l := corridor()
	l.Exit = nil
	_, err := Solve(context.Background(), l, Options{})
	assert.ErrorIs(t, err, engine.ErrMissingPlayerOrExit)
}

func TestSolveIsDeterministic(t *testing.T) {
	l := randomLevel(rand.New(rand.NewSource(7)), 5, 5)
	a, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	b, err := Solve(context.Background(), l, Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.Actions, b.Actions)
}

// TestAStarMatchesBreadthFirst compares solution lengths against an
// independent breadth-first search on many small random boards.
func TestAStarMatchesBreadthFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	checked := 0
	for i := 0; i < 200 && checked < 60; i++ {
		l := randomLevel(rng, 4, 4)
		if l.Validate() != nil {
			continue
		}
		checked++

		astar, err := Solve(context.Background(), l, Options{})
		require.NoError(t, err)
		bfs, err := Solve(context.Background(), l, Options{Algorithm: BreadthFirst})
		require.NoError(t, err)

		want := bfsTurns(t, l)
		assert.Equal(t, want, turnsOf(astar), "A* on level %d", i)
		assert.Equal(t, want, turnsOf(bfs), "BFS on level %d", i)

		if astar.Status == Solved {
			g, start, _ := engine.Prepare(l)
			_, outcome, err := engine.Simulate(g, start, astar.Actions)
			require.NoError(t, err)
			assert.Equal(t, engine.Win, outcome.Kind, "level %d", i)
		}
	}
	assert.Greater(t, checked, 20)
}

func TestSolveAll(t *testing.T) {
	bad := corridor()
	bad.Player = cell(4, 4)

	items := []BatchItem{
		{Name: "a", Level: corridor()},
		{Name: "bad", Level: bad},
		{Name: "c", Level: corridor()},
	}
	results, err := SolveAll(context.Background(), items, Options{}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, Solved, results[0].Result.Status)
	assert.Equal(t, "bad", results[1].Name)
	assert.Nil(t, results[1].Result)
	assert.Contains(t, results[1].Error, "out_of_bounds")
	assert.Equal(t, Solved, results[2].Result.Status)
}

func turnsOf(r *Result) int {
	if r.Status != Solved {
		return -1
	}
	return r.Turns()
}

// bfsTurns is a plain breadth-first reference search that keeps pursuer
// order in its visited keys. It returns -1 when no win is reachable.
func bfsTurns(t *testing.T, l *engine.Level) int {
	t.Helper()
	g, start, err := engine.Prepare(l)
	require.NoError(t, err)

	visited := mapset.New[engine.StateKey]()
	visited.Put(start.Key(true))
	frontier := []engine.WorldState{start}
	for depth := 1; len(frontier) > 0; depth++ {
		var next []engine.WorldState
		for _, s := range frontier {
			for _, a := range engine.LegalActions(g, s) {
				child, _, out, err := engine.Advance(g, s, a)
				if err != nil || out.Kind == engine.Lose {
					continue
				}
				if out.Kind == engine.Win {
					return depth
				}
				k := child.Key(true)
				if visited.Has(k) {
					continue
				}
				visited.Put(k)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return -1
}

func randomLevel(rng *rand.Rand, rows, cols int) *engine.Level {
	l := engine.NewLevel(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 1; c < cols; c++ {
			l.VWalls[r][c] = rng.Intn(4) == 0
		}
	}
	for r := 1; r < rows; r++ {
		for c := 0; c < cols; c++ {
			l.HWalls[r][c] = rng.Intn(4) == 0
		}
	}

	taken := map[engine.Cell]bool{}
	pick := func() engine.Cell {
		for {
			c := engine.Cell{Row: rng.Intn(rows), Col: rng.Intn(cols)}
			if !taken[c] {
				taken[c] = true
				return c
			}
		}
	}
	player, exit := pick(), pick()
	l.Player, l.Exit = &player, &exit

	switch rng.Intn(3) {
	case 0:
		l.WhiteMummies = []engine.Cell{pick()}
	case 1:
		l.RedMummies = []engine.Cell{pick()}
	default:
		l.WhiteMummies = []engine.Cell{pick()}
		l.Scorpions = []engine.Cell{pick()}
	}
	if rng.Intn(2) == 0 {
		l.Traps = []engine.Cell{pick()}
	}
	if rng.Intn(2) == 0 {
		l.Keys = []engine.Cell{pick()}
		r, c := rng.Intn(rows), 1+rng.Intn(cols-1)
		l.VWalls[r][c] = false
		l.VGates[r][c] = true
	}
	return l
}
