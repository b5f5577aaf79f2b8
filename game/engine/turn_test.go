package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advance(t *testing.T, g *Geometry, s WorldState, a Action) (WorldState, []Event, Outcome) {
	t.Helper()
	next, events, outcome, err := Advance(g, s, a)
	require.NoError(t, err, "advance %s from %s", a, s.Player)
	return next, events, outcome
}

func TestAdvanceCorridorWin(t *testing.T) {
	g, s := mustGeometry(t, openLevel(1, 3, Cell{0, 0}, Cell{0, 2}))

	s1, _, out := advance(t, g, s, MoveEast)
	assert.Equal(t, Continue, out.Kind)
	assert.Equal(t, Cell{0, 1}, s1.Player)
	assert.Equal(t, 1, s1.Turn)

	s2, events, out := advance(t, g, s1, MoveEast)
	assert.Equal(t, Win, out.Kind)
	assert.Equal(t, Cell{0, 2}, s2.Player)
	require.NotEmpty(t, events)
	assert.Equal(t, EventExit, events[len(events)-1].Type)
}

func TestAdvanceIsDeterministic(t *testing.T) {
	l := openLevel(5, 5, Cell{0, 0}, Cell{4, 4})
	l.WhiteMummies = []Cell{{4, 0}}
	l.RedMummies = []Cell{{0, 4}}
	l.Scorpions = []Cell{{2, 2}}
	l.Keys = []Cell{{1, 1}, {3, 3}}
	l.VGates[2][3] = true
	l.HWalls[2][1] = true
	g, start := mustGeometry(t, l)

	plan := []Action{MoveSouth, MoveEast, Wait, MoveNorth, MoveEast, Wait}
	run := func() ([]WorldState, [][]Event) {
		var states []WorldState
		var logs [][]Event
		s := start
		for _, a := range plan {
			next, events, out, err := Advance(g, s, a)
			if err != nil {
				states = append(states, s)
				logs = append(logs, nil)
				continue
			}
			states = append(states, next)
			logs = append(logs, events)
			if out.Terminal() {
				break
			}
			s = next
		}
		return states, logs
	}

	s1, e1 := run()
	s2, e2 := run()
	assert.Equal(t, s1, s2)
	assert.Equal(t, e1, e2)
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	l := openLevel(3, 3, Cell{0, 0}, Cell{2, 2})
	l.WhiteMummies = []Cell{{2, 0}}
	g, s := mustGeometry(t, l)
	before := s.Clone()

	_, _, _ = advance(t, g, s, Wait)
	assert.Equal(t, before, s)
}

func TestAdvanceIllegalMove(t *testing.T) {
	l := openLevel(2, 2, Cell{0, 0}, Cell{1, 1})
	l.VWalls[0][1] = true
	g, s := mustGeometry(t, l)

	for _, a := range []Action{MoveNorth, MoveWest, MoveEast} {
		next, events, _, err := Advance(g, s, a)
		require.Error(t, err, a.String())
		assert.True(t, errors.Is(err, ErrIllegalAction))
		var illegal *IllegalActionError
		require.True(t, errors.As(err, &illegal))
		assert.Equal(t, Cell{0, 0}, illegal.From)
		assert.Nil(t, events)
		assert.Equal(t, s, next)
	}

	_, _, _, err := Advance(g, s, Action(42))
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestAdvanceGateRoundTrip(t *testing.T) {
	l := openLevel(2, 3, Cell{0, 0}, Cell{1, 2})
	l.Keys = []Cell{{0, 1}}
	l.VGates[1][1] = true
	g, s := mustGeometry(t, l)
	require.False(t, s.GatesOpen)

	s1, events, _ := advance(t, g, s, MoveEast)
	assert.True(t, s1.GatesOpen, "stepping onto a key opens the gates")
	assert.Contains(t, eventTypes(events), EventGateToggle)
	assert.True(t, s1.GateOpen(g, Edge{Vertical, 1, 1}))
	assert.False(t, s1.GateOpen(g, Edge{Vertical, 0, 1}), "non-gate edges are never open gates")

	s2, _, _ := advance(t, g, s1, Wait)
	assert.True(t, s2.GatesOpen, "waiting on a key does not toggle")

	s3, _, _ := advance(t, g, s2, MoveWest)
	assert.True(t, s3.GatesOpen)

	s4, _, _ := advance(t, g, s3, MoveEast)
	assert.False(t, s4.GatesOpen, "second key event restores the phase")
}

func TestAdvanceWinBeatsAdjacentMummy(t *testing.T) {
	l := openLevel(2, 3, Cell{0, 1}, Cell{0, 2})
	l.WhiteMummies = []Cell{{1, 2}}
	g, s := mustGeometry(t, l)

	_, _, out := advance(t, g, s, MoveEast)
	assert.Equal(t, Outcome{Kind: Win}, out)
}

func TestAdvanceTrapLoses(t *testing.T) {
	l := openLevel(1, 3, Cell{0, 0}, Cell{0, 2})
	l.Traps = []Cell{{0, 1}}
	g, s := mustGeometry(t, l)

	next, events, out := advance(t, g, s, MoveEast)
	assert.Equal(t, Outcome{Kind: Lose, Reason: SteppedOnTrap}, out)
	assert.Equal(t, Cell{0, 1}, next.Player)
	assert.Equal(t, EventTrap, events[len(events)-1].Type)
	assert.Equal(t, 0, next.Turn, "terminal turns do not advance the counter")
}

func TestAdvanceTrapBeforeMummy(t *testing.T) {
	l := openLevel(1, 3, Cell{0, 0}, Cell{0, 2})
	l.Traps = []Cell{{0, 1}}
	l.WhiteMummies = []Cell{{0, 2}}
	g, s := mustGeometry(t, l)

	_, _, out := advance(t, g, s, MoveEast)
	assert.Equal(t, SteppedOnTrap, out.Reason)
}

func TestAdvancePlayerWalksIntoMummy(t *testing.T) {
	l := openLevel(1, 3, Cell{0, 0}, Cell{0, 2})
	l.RedMummies = []Cell{{0, 1}}
	g, s := mustGeometry(t, l)

	_, events, out := advance(t, g, s, MoveEast)
	assert.Equal(t, Outcome{Kind: Lose, Reason: CaughtByMummy}, out)
	assert.Equal(t, PhasePlayer, events[len(events)-1].Phase)
}

func TestAdvanceMummyTakesTwoSteps(t *testing.T) {
	l := openLevel(2, 5, Cell{0, 0}, Cell{1, 4})
	l.WhiteMummies = []Cell{{0, 4}}
	g, s := mustGeometry(t, l)

	s1, events, out := advance(t, g, s, Wait)
	assert.Equal(t, Continue, out.Kind)
	assert.Equal(t, []Cell{{0, 2}}, s1.WhiteMummies)
	assert.Equal(t, []EventType{EventPlayerWait, EventPursuerMove, EventPursuerMove}, eventTypes(events))

	_, events, out = advance(t, g, s1, Wait)
	assert.Equal(t, Outcome{Kind: Lose, Reason: CaughtByMummy}, out)
	last := events[len(events)-1]
	assert.Equal(t, EventCaught, last.Type)
	assert.Equal(t, PhaseMummy2, last.Phase)
	assert.Equal(t, WhiteMummy, last.Actor)
}

func TestAdvanceMummiesShareCells(t *testing.T) {
	l := openLevel(3, 5, Cell{0, 0}, Cell{2, 4})
	l.WhiteMummies = []Cell{{0, 4}}
	l.RedMummies = []Cell{{0, 4}}
	g, s := mustGeometry(t, l)

	next, _, out := advance(t, g, s, Wait)
	assert.Equal(t, Continue, out.Kind)
	assert.Equal(t, next.WhiteMummies[0], next.RedMummies[0])
	assert.Len(t, next.Pursuers(), 2)
}

func TestAdvanceMummyOnKeyTogglesImmediately(t *testing.T) {
	// The white mummy reaches the key on its first sub-move; the opened gate
	// lets it continue west on the second.
	l := openLevel(1, 5, Cell{0, 0}, Cell{0, 4})
	l.Keys = []Cell{{0, 2}}
	l.VGates[0][2] = true
	l.WhiteMummies = []Cell{{0, 3}}
	g, s := mustGeometry(t, l)

	next, events, out := advance(t, g, s, Wait)
	assert.Equal(t, Continue, out.Kind)
	assert.True(t, next.GatesOpen)
	assert.Equal(t, []Cell{{0, 1}}, next.WhiteMummies)
	assert.Equal(t,
		[]EventType{EventPlayerWait, EventPursuerMove, EventGateToggle, EventPursuerMove},
		eventTypes(events))
}

func TestAdvanceScorpionLethality(t *testing.T) {
	build := func(lethal bool) *Level {
		l := openLevel(1, 4, Cell{0, 0}, Cell{0, 3})
		l.Scorpions = []Cell{{0, 2}}
		rules := DefaultRules()
		rules.ScorpionLethal = lethal
		l.Rules = &rules
		return l
	}

	t.Run("harmless by default", func(t *testing.T) {
		g, s := mustGeometry(t, build(false))
		next, _, out := advance(t, g, s, MoveEast)
		assert.Equal(t, Continue, out.Kind)
		assert.Equal(t, next.Player, next.Scorpions[0])
	})

	t.Run("lethal when enabled", func(t *testing.T) {
		g, s := mustGeometry(t, build(true))
		_, events, out := advance(t, g, s, MoveEast)
		assert.Equal(t, Outcome{Kind: Lose, Reason: StungByScorpion}, out)
		assert.Equal(t, PhaseScorpion, events[len(events)-1].Phase)
	})

	for _, lethal := range []bool{false, true} {
		t.Run(fmt.Sprintf("stepping onto a scorpion lethal=%v", lethal), func(t *testing.T) {
			l := build(lethal)
			l.Scorpions = []Cell{{0, 1}}
			g, s := mustGeometry(t, l)
			next, events, out := advance(t, g, s, MoveEast)
			assert.Equal(t, Outcome{Kind: Lose, Reason: CaughtByMummy}, out)
			assert.Equal(t, Cell{0, 1}, next.Player)
			assert.Equal(t, []Cell{{0, 1}}, next.Scorpions, "pursuers do not move after the player is caught")
			assert.Equal(t, PhasePlayer, events[len(events)-1].Phase)
		})
	}
}

func TestAdvanceScorpionMovesOnce(t *testing.T) {
	l := openLevel(1, 6, Cell{0, 0}, Cell{0, 5})
	l.Scorpions = []Cell{{0, 4}}
	g, s := mustGeometry(t, l)

	next, _, _ := advance(t, g, s, Wait)
	assert.Equal(t, []Cell{{0, 3}}, next.Scorpions)
}

func TestWitnessOfTerminalStates(t *testing.T) {
	l := openLevel(1, 4, Cell{0, 1}, Cell{0, 2})
	l.Traps = []Cell{{0, 0}}
	g, s := mustGeometry(t, l)

	won, _, out := advance(t, g, s, MoveEast)
	require.Equal(t, Win, out.Kind)
	assert.NotEqual(t, s.Witness, won.Witness)
	assert.Equal(t, won.computeWitness(), won.Witness)

	trapped, _, out := advance(t, g, s, MoveWest)
	require.Equal(t, Lose, out.Kind)
	assert.Equal(t, trapped.computeWitness(), trapped.Witness)
}

func TestWitnessTracksState(t *testing.T) {
	g, s := mustGeometry(t, openLevel(1, 3, Cell{0, 0}, Cell{0, 2}))

	waited, _, _ := advance(t, g, s, Wait)
	assert.Equal(t, s.Witness, waited.Witness, "same positions and phase give the same witness")
	assert.NotEqual(t, s.Turn, waited.Turn)

	moved, _, _ := advance(t, g, s, MoveEast)
	assert.NotEqual(t, s.Witness, moved.Witness)
}

func TestStateKeyOrdering(t *testing.T) {
	a := WorldState{Player: Cell{0, 0}, WhiteMummies: []Cell{{1, 1}, {2, 2}}}
	b := WorldState{Player: Cell{0, 0}, WhiteMummies: []Cell{{2, 2}, {1, 1}}}

	assert.Equal(t, a.Key(false), b.Key(false))
	assert.NotEqual(t, a.Key(true), b.Key(true))

	c := a.Clone()
	c.GatesOpen = true
	assert.NotEqual(t, a.Key(false), c.Key(false))

	// a mummy and a red mummy on the same cell are not interchangeable
	d := WorldState{Player: Cell{0, 0}, RedMummies: []Cell{{1, 1}, {2, 2}}}
	assert.NotEqual(t, a.Key(false), d.Key(false))
}

func TestLegalActions(t *testing.T) {
	l := openLevel(2, 2, Cell{0, 0}, Cell{1, 1})
	l.HGates[1][0] = true
	g, s := mustGeometry(t, l)

	assert.Equal(t, []Action{MoveEast, Wait}, LegalActions(g, s))
	s.GatesOpen = true
	assert.Equal(t, []Action{MoveSouth, MoveEast, Wait}, LegalActions(g, s))
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
