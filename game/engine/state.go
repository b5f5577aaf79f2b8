package engine

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// WorldState is an immutable snapshot of the dynamic part of a game. Every
// transition returns a fresh value; slices are never shared between states.
type WorldState struct {
	Player       Cell   `json:"player"`
	WhiteMummies []Cell `json:"white_mummies"`
	RedMummies   []Cell `json:"red_mummies"`
	Scorpions    []Cell `json:"scorpions"`
	GatesOpen    bool   `json:"gates_open"`
	Turn         int    `json:"turn"`
	// Witness hashes the player, pursuers and gate phase for loop detection
	Witness uint64 `json:"witness"`
}

// Clone returns a deep copy of the state
func (s WorldState) Clone() WorldState {
	c := s
	c.WhiteMummies = cloneCells(s.WhiteMummies)
	c.RedMummies = cloneCells(s.RedMummies)
	c.Scorpions = cloneCells(s.Scorpions)
	return c
}

// Pursuers lists every enemy in processing order: white mummies, red
// mummies, then scorpions, each by index.
func (s WorldState) Pursuers() []Pursuer {
	out := make([]Pursuer, 0, len(s.WhiteMummies)+len(s.RedMummies)+len(s.Scorpions))
	for i, c := range s.WhiteMummies {
		out = append(out, Pursuer{Kind: WhiteMummy, Index: i, Pos: c})
	}
	for i, c := range s.RedMummies {
		out = append(out, Pursuer{Kind: RedMummy, Index: i, Pos: c})
	}
	for i, c := range s.Scorpions {
		out = append(out, Pursuer{Kind: Scorpion, Index: i, Pos: c})
	}
	return out
}

// Mummies returns the mummies in processing order
func (s WorldState) Mummies() []Pursuer {
	out := make([]Pursuer, 0, len(s.WhiteMummies)+len(s.RedMummies))
	for _, p := range s.Pursuers() {
		if p.Kind.IsMummy() {
			out = append(out, p)
		}
	}
	return out
}

// GateOpen reports the phase of a gate site. Edges without a gate report false.
func (s WorldState) GateOpen(g *Geometry, e Edge) bool {
	return g.GateAt(e) && s.GatesOpen
}

// MummyAt reports whether any mummy occupies c
func (s WorldState) MummyAt(c Cell) bool {
	return slices.Contains(s.WhiteMummies, c) || slices.Contains(s.RedMummies, c)
}

// ScorpionAt reports whether any scorpion occupies c
func (s WorldState) ScorpionAt(c Cell) bool {
	return slices.Contains(s.Scorpions, c)
}

func (s WorldState) cells(kind PursuerKind) []Cell {
	switch kind {
	case WhiteMummy:
		return s.WhiteMummies
	case RedMummy:
		return s.RedMummies
	case Scorpion:
		return s.Scorpions
	}
	return nil
}

// place moves one pursuer. The state must already own its slices.
func (s *WorldState) place(kind PursuerKind, index int, c Cell) {
	s.cells(kind)[index] = c
}

// StateKey is the canonical identity of a state for search deduplication.
// It is comparable and usable as a map key.
type StateKey string

// Key returns the canonical key of s. When ordered is false the pursuer
// cells of each kind are sorted, which is sound whenever movement order
// cannot be observed (no key tiles). With keys present the order is kept.
func (s WorldState) Key(ordered bool) StateKey {
	buf := make([]byte, 0, 8+8*(len(s.WhiteMummies)+len(s.RedMummies)+len(s.Scorpions))+8)
	buf = appendCell(buf, s.Player)
	for _, group := range [][]Cell{s.WhiteMummies, s.RedMummies, s.Scorpions} {
		cells := group
		if !ordered && len(group) > 1 {
			cells = cloneCells(group)
			SortCells(cells)
		}
		buf = binary.AppendUvarint(buf, uint64(len(cells)))
		for _, c := range cells {
			buf = appendCell(buf, c)
		}
	}
	if s.GatesOpen {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return StateKey(buf)
}

// KeyFor returns the canonical key of s on the given board
func (g *Geometry) KeyFor(s WorldState) StateKey {
	return s.Key(g.HasKeys())
}

func (s WorldState) computeWitness() uint64 {
	return xxhash.Sum64String(string(s.Key(true)))
}

func appendCell(buf []byte, c Cell) []byte {
	buf = binary.AppendVarint(buf, int64(c.Row))
	return binary.AppendVarint(buf, int64(c.Col))
}
