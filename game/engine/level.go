package engine

import (
	"github.com/zyedidia/generic/mapset"
)

// Level is the serialized description of a board and its starting entities.
// Matrices follow the board JSON layout: v_walls/v_gates are rows x (cols+1),
// h_walls/h_gates are (rows+1) x cols. A nil matrix means no interior edges.
type Level struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Rows int `json:"rows"`
	Cols int `json:"cols"`

	VWalls [][]bool `json:"v_walls,omitempty"`
	HWalls [][]bool `json:"h_walls,omitempty"`
	VGates [][]bool `json:"v_gates,omitempty"`
	HGates [][]bool `json:"h_gates,omitempty"`

	// GatesOpen is the initial gate phase
	GatesOpen bool `json:"gates_open"`

	Player *Cell `json:"player"`
	Exit   *Cell `json:"exit"`

	WhiteMummies []Cell `json:"white_mummies,omitempty"`
	RedMummies   []Cell `json:"red_mummies,omitempty"`
	Scorpions    []Cell `json:"scorpions,omitempty"`
	Traps        []Cell `json:"traps,omitempty"`
	Keys         []Cell `json:"keys,omitempty"`

	Rules *Rules `json:"rules,omitempty"`
}

// NewLevel returns an empty open board of the given size with boundary
// walls only. Callers add walls, gates and entities before validating.
func NewLevel(rows, cols int) *Level {
	l := &Level{
		Rows:   rows,
		Cols:   cols,
		VWalls: boolMatrix(rows, cols+1),
		HWalls: boolMatrix(rows+1, cols),
		VGates: boolMatrix(rows, cols+1),
		HGates: boolMatrix(rows+1, cols),
	}
	markBoundary(l.VWalls, l.HWalls, rows, cols)
	return l
}

// markBoundary sets the outer edges of well-shaped wall matrices
func markBoundary(vWalls, hWalls [][]bool, rows, cols int) {
	if len(vWalls) == rows {
		for r := range vWalls {
			if len(vWalls[r]) == cols+1 {
				vWalls[r][0], vWalls[r][cols] = true, true
			}
		}
	}
	if len(hWalls) == rows+1 && rows >= 0 {
		if len(hWalls[0]) == cols && len(hWalls[rows]) == cols {
			for c := 0; c < cols; c++ {
				hWalls[0][c], hWalls[rows][c] = true, true
			}
		}
	}
}

// EffectiveRules returns the level's rules or the defaults
func (l *Level) EffectiveRules() Rules {
	if l.Rules == nil {
		return DefaultRules()
	}
	r := *l.Rules
	if r.Precedence == ([4]Direction{}) {
		r.Precedence = Directions
	}
	return r
}

// Validate checks every structural invariant of the level
func (l *Level) Validate() error {
	_, err := NewGeometry(l)
	return err
}

// Clone returns a deep copy of the level
func (l *Level) Clone() *Level {
	c := *l
	c.VWalls = cloneMatrix(l.VWalls)
	c.HWalls = cloneMatrix(l.HWalls)
	c.VGates = cloneMatrix(l.VGates)
	c.HGates = cloneMatrix(l.HGates)
	if l.Player != nil {
		p := *l.Player
		c.Player = &p
	}
	if l.Exit != nil {
		e := *l.Exit
		c.Exit = &e
	}
	c.WhiteMummies = cloneCells(l.WhiteMummies)
	c.RedMummies = cloneCells(l.RedMummies)
	c.Scorpions = cloneCells(l.Scorpions)
	c.Traps = cloneCells(l.Traps)
	c.Keys = cloneCells(l.Keys)
	if l.Rules != nil {
		r := *l.Rules
		c.Rules = &r
	}
	return &c
}

// PursuerCount returns the number of enemies on the board
func (l *Level) PursuerCount() int {
	return len(l.WhiteMummies) + len(l.RedMummies) + len(l.Scorpions)
}

// NewGeometry validates the level and derives its static Geometry
func NewGeometry(l *Level) (*Geometry, error) {
	if l == nil {
		return nil, levelErrorf(MissingPlayerOrExit, "level is nil")
	}
	if l.Rows < MinBoardSize || l.Rows > MaxBoardSize || l.Cols < MinBoardSize || l.Cols > MaxBoardSize {
		return nil, levelErrorf(InvalidDimensions, "rows and cols must be between %d and %d, got %dx%d",
			MinBoardSize, MaxBoardSize, l.Rows, l.Cols)
	}
	if l.Player == nil || l.Exit == nil {
		return nil, levelErrorf(MissingPlayerOrExit, "player and exit are required")
	}

	g := &Geometry{
		rows:  l.Rows,
		cols:  l.Cols,
		exit:  *l.Exit,
		traps: mapset.New[Cell](),
		keys:  mapset.New[Cell](),
		rules: l.EffectiveRules(),
	}
	if err := g.rules.Validate(); err != nil {
		return nil, levelErrorf(InvalidRules, "%v", err)
	}

	var err error
	if g.vWalls, err = matrixOrEmpty("v_walls", l.VWalls, l.Rows, l.Cols+1); err != nil {
		return nil, err
	}
	if g.hWalls, err = matrixOrEmpty("h_walls", l.HWalls, l.Rows+1, l.Cols); err != nil {
		return nil, err
	}
	if g.vGates, err = matrixOrEmpty("v_gates", l.VGates, l.Rows, l.Cols+1); err != nil {
		return nil, err
	}
	if g.hGates, err = matrixOrEmpty("h_gates", l.HGates, l.Rows+1, l.Cols); err != nil {
		return nil, err
	}

	// Gates live on interior edges only, and never share an edge with a wall
	for r := 0; r < l.Rows; r++ {
		for c := 0; c <= l.Cols; c++ {
			if !g.vGates[r][c] {
				continue
			}
			if c == 0 || c == l.Cols {
				return nil, levelErrorf(ConflictingEdge, "vertical gate at (%d,%d) lies on the outer boundary", r, c)
			}
			if g.vWalls[r][c] {
				return nil, levelErrorf(ConflictingEdge, "vertical edge (%d,%d) has both a wall and a gate", r, c)
			}
			g.gateSites = append(g.gateSites, Edge{Orientation: Vertical, Row: r, Col: c})
		}
	}
	for r := 0; r <= l.Rows; r++ {
		for c := 0; c < l.Cols; c++ {
			if !g.hGates[r][c] {
				continue
			}
			if r == 0 || r == l.Rows {
				return nil, levelErrorf(ConflictingEdge, "horizontal gate at (%d,%d) lies on the outer boundary", r, c)
			}
			if g.hWalls[r][c] {
				return nil, levelErrorf(ConflictingEdge, "horizontal edge (%d,%d) has both a wall and a gate", r, c)
			}
			g.gateSites = append(g.gateSites, Edge{Orientation: Horizontal, Row: r, Col: c})
		}
	}

	if !g.InBounds(*l.Player) {
		return nil, levelErrorf(OutOfBounds, "player %s", *l.Player)
	}
	if !g.InBounds(*l.Exit) {
		return nil, levelErrorf(OutOfBounds, "exit %s", *l.Exit)
	}

	groups := []struct {
		name  string
		cells []Cell
	}{
		{"white mummy", l.WhiteMummies},
		{"red mummy", l.RedMummies},
		{"scorpion", l.Scorpions},
		{"trap", l.Traps},
		{"key", l.Keys},
	}
	for _, grp := range groups {
		for _, c := range grp.cells {
			if !g.InBounds(c) {
				return nil, levelErrorf(OutOfBounds, "%s %s", grp.name, c)
			}
		}
	}
	if n := l.PursuerCount(); n > MaxPursuersTotal {
		return nil, levelErrorf(InvalidDimensions, "at most %d pursuers are supported, got %d", MaxPursuersTotal, n)
	}

	for _, c := range l.Traps {
		g.traps.Put(c)
	}
	for _, c := range l.Keys {
		if g.traps.Has(c) {
			return nil, levelErrorf(ConflictingTile, "cell %s is both a trap and a key", c)
		}
		g.keys.Put(c)
	}

	player := *l.Player
	switch {
	case player == g.exit:
		return nil, levelErrorf(ConflictingTile, "player starts on the exit %s", player)
	case g.traps.Has(player):
		return nil, levelErrorf(ConflictingTile, "player starts on a trap %s", player)
	case g.traps.Has(g.exit):
		return nil, levelErrorf(ConflictingTile, "exit %s is a trap", g.exit)
	}
	for _, grp := range groups[:3] {
		for _, c := range grp.cells {
			if c == player {
				return nil, levelErrorf(ConflictingTile, "player starts on a %s at %s", grp.name, c)
			}
		}
	}

	return g, nil
}

// InitialState returns the starting WorldState of a level. The level is
// assumed to be valid; use Prepare to validate and build both at once.
func InitialState(l *Level) WorldState {
	s := WorldState{
		WhiteMummies: cloneCells(l.WhiteMummies),
		RedMummies:   cloneCells(l.RedMummies),
		Scorpions:    cloneCells(l.Scorpions),
		GatesOpen:    l.GatesOpen,
	}
	if l.Player != nil {
		s.Player = *l.Player
	}
	s.Witness = s.computeWitness()
	return s
}

// Prepare validates the level and returns its Geometry and starting state
func Prepare(l *Level) (*Geometry, WorldState, error) {
	g, err := NewGeometry(l)
	if err != nil {
		return nil, WorldState{}, err
	}
	return g, InitialState(l), nil
}

func matrixOrEmpty(name string, m [][]bool, rows, cols int) ([][]bool, error) {
	if m == nil {
		return boolMatrix(rows, cols), nil
	}
	if len(m) != rows {
		return nil, levelErrorf(InvalidDimensions, "%s must have %d rows, got %d", name, rows, len(m))
	}
	for i, row := range m {
		if len(row) != cols {
			return nil, levelErrorf(InvalidDimensions, "%s row %d must have %d entries, got %d", name, i, cols, len(row))
		}
	}
	return cloneMatrix(m), nil
}

func boolMatrix(rows, cols int) [][]bool {
	m := make([][]bool, rows)
	for i := range m {
		m[i] = make([]bool, cols)
	}
	return m
}

func cloneMatrix(m [][]bool) [][]bool {
	if m == nil {
		return nil
	}
	out := make([][]bool, len(m))
	for i, row := range m {
		out[i] = append([]bool(nil), row...)
	}
	return out
}
