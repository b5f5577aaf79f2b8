package engine

// Axis selects which coordinate a pursuer tries to close first
type Axis int

const (
	// ColAxis closes the column gap first (horizontal priority)
	ColAxis Axis = iota
	// RowAxis closes the row gap first (vertical priority)
	RowAxis
)

func (a Axis) String() string {
	if a == RowAxis {
		return "vertical"
	}
	return "horizontal"
}

// ChooseMove picks the step a pursuer takes toward the player in state s.
// ok is false when the pursuer stays put.
func ChooseMove(g *Geometry, s WorldState, p Pursuer) (Direction, bool) {
	switch p.Kind {
	case WhiteMummy:
		return whiteMummyMove(g, s, p.Pos)
	case RedMummy:
		return redMummyMove(g, s, p.Pos)
	case Scorpion:
		return scorpionMove(g, s, p.Pos)
	}
	return 0, false
}

func whiteMummyMove(g *Geometry, s WorldState, from Cell) (Direction, bool) {
	return StepToward(g, from, s.Player, s.GatesOpen, ColAxis, g.rules.Precedence)
}

func redMummyMove(g *Geometry, s WorldState, from Cell) (Direction, bool) {
	return StepToward(g, from, s.Player, s.GatesOpen, RowAxis, g.rules.Precedence)
}

// scorpionMove closes the larger gap first, preferring columns on a tie
func scorpionMove(g *Geometry, s WorldState, from Cell) (Direction, bool) {
	axis := ColAxis
	if abs(s.Player.Row-from.Row) > abs(s.Player.Col-from.Col) {
		axis = RowAxis
	}
	return StepToward(g, from, s.Player, s.GatesOpen, axis, g.rules.Precedence)
}

// StepToward returns the traversable step from `from` that strictly reduces
// the Manhattan distance to target, minimizing (priority-axis distance,
// other-axis distance, precedence index). ok is false when no step
// qualifies.
func StepToward(g *Geometry, from, target Cell, gatesOpen bool, axis Axis, precedence [4]Direction) (Direction, bool) {
	current := ManhattanDistance(from, target)
	var (
		best    Direction
		bestKey [3]int
		found   bool
	)
	for rank, d := range precedence {
		to := from.Step(d)
		if ManhattanDistance(to, target) >= current {
			continue
		}
		if !g.CanCross(from, to, gatesOpen) {
			continue
		}
		dr, dc := abs(to.Row-target.Row), abs(to.Col-target.Col)
		key := [3]int{dc, dr, rank}
		if axis == RowAxis {
			key = [3]int{dr, dc, rank}
		}
		if !found || lessKey(key, bestKey) {
			best, bestKey, found = d, key, true
		}
	}
	return best, found
}

func lessKey(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
