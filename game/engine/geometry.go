package engine

import (
	"github.com/zyedidia/generic/mapset"
)

// EdgeOrientation tells whether an edge separates columns or rows
type EdgeOrientation string

const (
	// Vertical edges separate (Row, Col-1) from (Row, Col); Col is in [0, cols]
	Vertical EdgeOrientation = "vertical"
	// Horizontal edges separate (Row-1, Col) from (Row, Col); Row is in [0, rows]
	Horizontal EdgeOrientation = "horizontal"
)

// Edge addresses the boundary between two orthogonally adjacent cells
type Edge struct {
	Orientation EdgeOrientation `json:"orientation"`
	Row         int             `json:"row"`
	Col         int             `json:"col"`
}

// EdgeBetween returns the edge shared by two 4-adjacent cells
func EdgeBetween(a, b Cell) (Edge, bool) {
	switch {
	case a.Row == b.Row && abs(a.Col-b.Col) == 1:
		return Edge{Orientation: Vertical, Row: a.Row, Col: max(a.Col, b.Col)}, true
	case a.Col == b.Col && abs(a.Row-b.Row) == 1:
		return Edge{Orientation: Horizontal, Row: max(a.Row, b.Row), Col: a.Col}, true
	}
	return Edge{}, false
}

// Geometry is the static shape of a board. It is derived once from a Level
// and never mutated, so one Geometry can be shared by concurrent searches.
type Geometry struct {
	rows, cols int

	vWalls [][]bool // rows x (cols+1)
	hWalls [][]bool // (rows+1) x cols
	vGates [][]bool
	hGates [][]bool

	exit      Cell
	traps     mapset.Set[Cell]
	keys      mapset.Set[Cell]
	gateSites []Edge
	rules     Rules
}

// Rows returns the board height
func (g *Geometry) Rows() int { return g.rows }

// Cols returns the board width
func (g *Geometry) Cols() int { return g.cols }

// Exit returns the exit cell
func (g *Geometry) Exit() Cell { return g.exit }

// Rules returns the rule set the board is played with
func (g *Geometry) Rules() Rules { return g.rules }

// InBounds reports whether c lies on the board
func (g *Geometry) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// IsTrap reports whether c is a trap tile
func (g *Geometry) IsTrap(c Cell) bool { return g.traps.Has(c) }

// IsKey reports whether c is a key tile
func (g *Geometry) IsKey(c Cell) bool { return g.keys.Has(c) }

// IsExit reports whether c is the exit
func (g *Geometry) IsExit(c Cell) bool { return c == g.exit }

// HasKeys reports whether any key tile exists
func (g *Geometry) HasKeys() bool { return g.keys.Size() > 0 }

// GateSites returns every edge carrying a gate, vertical edges first
func (g *Geometry) GateSites() []Edge {
	out := make([]Edge, len(g.gateSites))
	copy(out, g.gateSites)
	return out
}

// WallAt reports whether the edge is a wall. Outer boundary edges always are.
func (g *Geometry) WallAt(e Edge) bool {
	switch e.Orientation {
	case Vertical:
		if e.Row < 0 || e.Row >= g.rows || e.Col < 0 || e.Col > g.cols {
			return true
		}
		return e.Col == 0 || e.Col == g.cols || g.vWalls[e.Row][e.Col]
	case Horizontal:
		if e.Row < 0 || e.Row > g.rows || e.Col < 0 || e.Col >= g.cols {
			return true
		}
		return e.Row == 0 || e.Row == g.rows || g.hWalls[e.Row][e.Col]
	}
	return true
}

// GateAt reports whether the edge carries a gate site
func (g *Geometry) GateAt(e Edge) bool {
	switch e.Orientation {
	case Vertical:
		if e.Row < 0 || e.Row >= g.rows || e.Col <= 0 || e.Col >= g.cols {
			return false
		}
		return g.vGates[e.Row][e.Col]
	case Horizontal:
		if e.Row <= 0 || e.Row >= g.rows || e.Col < 0 || e.Col >= g.cols {
			return false
		}
		return g.hGates[e.Row][e.Col]
	}
	return false
}

// CanCross reports whether a single step from one cell to an adjacent one is
// possible under the given gate phase.
func (g *Geometry) CanCross(from, to Cell, gatesOpen bool) bool {
	if !g.InBounds(from) || !g.InBounds(to) {
		return false
	}
	e, ok := EdgeBetween(from, to)
	if !ok {
		return false
	}
	if g.WallAt(e) {
		return false
	}
	if g.GateAt(e) {
		return gatesOpen
	}
	return true
}

// Neighbors returns the in-bounds 4-adjacent cells of c in N, S, E, W order,
// regardless of walls or gates.
func (g *Geometry) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range Directions {
		n := c.Step(d)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Traps returns the trap cells in row-major order
func (g *Geometry) Traps() []Cell { return sortedCells(g.traps) }

// Keys returns the key cells in row-major order
func (g *Geometry) Keys() []Cell { return sortedCells(g.keys) }

func sortedCells(s mapset.Set[Cell]) []Cell {
	out := make([]Cell, 0, s.Size())
	s.Each(func(c Cell) {
		out = append(out, c)
	})
	SortCells(out)
	return out
}
