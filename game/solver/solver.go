package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/zyedidia/generic/heap"
)

// Status is the final verdict of a search
type Status string

const (
	Solved     Status = "solved"
	Unsolvable Status = "unsolvable"
	Aborted    Status = "aborted"
)

// AbortReason tells which bound stopped a search
type AbortReason string

const (
	NodeLimit  AbortReason = "node_limit"
	DepthLimit AbortReason = "depth_limit"
	Cancelled  AbortReason = "cancelled"
)

// Algorithm selects the frontier ordering
type Algorithm string

const (
	// AStar orders by turns taken plus Manhattan distance to the exit
	AStar Algorithm = "astar"
	// BreadthFirst orders by turns taken only
	BreadthFirst Algorithm = "bfs"
)

const (
	DefaultMaxExpansions = 1_000_000
	// cancellation is polled every cancelCheckInterval expansions
	cancelCheckInterval = 256
)

// Options bounds a search. Zero values select the defaults.
type Options struct {
	MaxExpansions int       `json:"max_expansions,omitempty"`
	MaxDepth      int       `json:"max_depth,omitempty"`
	Algorithm     Algorithm `json:"algorithm,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = DefaultMaxExpansions
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = engine.DefaultMaxDepth
	}
	if o.Algorithm == "" {
		o.Algorithm = AStar
	}
	return o
}

// Stats reports the work a search did
type Stats struct {
	Expanded    int           `json:"expanded"`
	Generated   int           `json:"generated"`
	Duplicates  int           `json:"duplicates"`
	LosingMoves int           `json:"losing_moves"`
	MaxFrontier int           `json:"max_frontier"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the outcome of a search. Actions and States are set only when
// Status is Solved; States[i] is the world after Actions[i].
type Result struct {
	Status  Status              `json:"status"`
	Reason  AbortReason         `json:"reason,omitempty"`
	Actions []engine.Action     `json:"actions,omitempty"`
	States  []engine.WorldState `json:"states,omitempty"`
	Stats   Stats               `json:"stats"`
}

// Turns returns the number of player actions in the solution
func (r *Result) Turns() int {
	return len(r.Actions)
}

func (r *Result) String() string {
	switch r.Status {
	case Solved:
		return fmt.Sprintf("solved in %d turns", r.Turns())
	case Aborted:
		return fmt.Sprintf("aborted (%s)", r.Reason)
	}
	return string(r.Status)
}

// Solve validates the level and searches it from its initial state
func Solve(ctx context.Context, level *engine.Level, opts Options) (*Result, error) {
	g, start, err := engine.Prepare(level)
	if err != nil {
		return nil, err
	}
	return Search(ctx, g, start, opts), nil
}

// node is one arena slot of the search graph
type node struct {
	state  engine.WorldState
	key    engine.StateKey
	parent int
	action engine.Action
	depth  int
	won    bool
}

// entry is a frontier item; seq keeps ties in insertion order
type entry struct {
	f    int
	seq  int
	node int
}

// Search finds a shortest action sequence from start to a win. The first
// winning node popped from the frontier is optimal because the heuristic
// never overestimates: the player moves at most one cell per turn.
func Search(ctx context.Context, g *engine.Geometry, start engine.WorldState, opts Options) *Result {
	opts = opts.withDefaults()
	began := time.Now()

	s := &search{
		g:     g,
		opts:  opts,
		nodes: []node{{state: start, key: g.KeyFor(start), parent: -1}},
		best:  make(map[engine.StateKey]int),
		open: heap.New(func(a, b entry) bool {
			if a.f != b.f {
				return a.f < b.f
			}
			return a.seq < b.seq
		}),
	}
	s.best[s.nodes[0].key] = 0
	s.push(0)

	res := s.run(ctx)
	res.Stats = s.stats
	res.Stats.Elapsed = time.Since(began)
	return res
}

type search struct {
	g           *engine.Geometry
	opts        Options
	nodes       []node
	best        map[engine.StateKey]int
	open        *heap.Heap[entry]
	seq         int
	depthPruned bool
	stats       Stats
}

func (s *search) heuristic(st engine.WorldState) int {
	if s.opts.Algorithm == BreadthFirst {
		return 0
	}
	return engine.ManhattanDistance(st.Player, s.g.Exit())
}

func (s *search) push(idx int) {
	n := s.nodes[idx]
	h := 0
	if !n.won {
		h = s.heuristic(n.state)
	}
	s.open.Push(entry{f: n.depth + h, seq: s.seq, node: idx})
	s.seq++
	if size := s.open.Size(); size > s.stats.MaxFrontier {
		s.stats.MaxFrontier = size
	}
}

func (s *search) run(ctx context.Context) *Result {
	for {
		e, ok := s.open.Pop()
		if !ok {
			break
		}
		n := s.nodes[e.node]
		if n.won {
			return s.solution(e.node)
		}
		if d, seen := s.best[n.key]; seen && d < n.depth {
			s.stats.Duplicates++
			continue
		}
		if s.stats.Expanded >= s.opts.MaxExpansions {
			return &Result{Status: Aborted, Reason: NodeLimit}
		}
		if s.stats.Expanded%cancelCheckInterval == 0 && ctx.Err() != nil {
			return &Result{Status: Aborted, Reason: Cancelled}
		}
		s.stats.Expanded++
		s.expand(e.node)
	}

	if s.depthPruned {
		return &Result{Status: Aborted, Reason: DepthLimit}
	}
	return &Result{Status: Unsolvable}
}

func (s *search) expand(idx int) {
	parent := s.nodes[idx]
	depth := parent.depth + 1
	for _, a := range engine.LegalActions(s.g, parent.state) {
		next, _, outcome, err := engine.Advance(s.g, parent.state, a)
		if err != nil {
			continue
		}
		s.stats.Generated++
		if outcome.Kind == engine.Lose {
			s.stats.LosingMoves++
			continue
		}
		if depth > s.opts.MaxDepth {
			s.depthPruned = true
			continue
		}

		child := node{state: next, parent: idx, action: a, depth: depth, won: outcome.Kind == engine.Win}
		if !child.won {
			child.key = s.g.KeyFor(next)
			if d, seen := s.best[child.key]; seen && d <= depth {
				s.stats.Duplicates++
				continue
			}
			s.best[child.key] = depth
		}
		s.nodes = append(s.nodes, child)
		s.push(len(s.nodes) - 1)
	}
}

func (s *search) solution(idx int) *Result {
	depth := s.nodes[idx].depth
	actions := make([]engine.Action, depth)
	states := make([]engine.WorldState, depth)
	for i := idx; s.nodes[i].parent >= 0; i = s.nodes[i].parent {
		n := s.nodes[i]
		actions[n.depth-1] = n.action
		states[n.depth-1] = n.state
	}
	return &Result{Status: Solved, Actions: actions, States: states}
}
