package engine

import "fmt"

// Advance applies one full turn: the player's action, two mummy sub-moves,
// then one scorpion move. It is pure; s is never modified. A blocked player
// move returns an *IllegalActionError and no new state.
func Advance(g *Geometry, s WorldState, a Action) (WorldState, []Event, Outcome, error) {
	if !a.Valid() {
		return s, nil, Outcome{}, &IllegalActionError{Action: a, From: s.Player, Reason: "unknown action"}
	}

	t := turn{g: g, next: s.Clone()}
	out, done := t.playerPhase(a)
	if t.err != nil {
		return s, nil, Outcome{}, t.err
	}
	if done {
		return t.finish(out)
	}
	for _, phase := range []Phase{PhaseMummy1, PhaseMummy2} {
		if out, done := t.mummyPhase(phase); done {
			return t.finish(out)
		}
	}
	if out, done := t.scorpionPhase(); done {
		return t.finish(out)
	}

	t.next.Turn++
	return t.finish(Outcome{Kind: Continue})
}

// finish stamps the witness of the state the turn ended in, terminal or not
func (t *turn) finish(out Outcome) (WorldState, []Event, Outcome, error) {
	t.next.Witness = t.next.computeWitness()
	return t.next, t.events, out, nil
}

// SimulateTurn is Advance under the name used by interactive callers
func SimulateTurn(g *Geometry, s WorldState, a Action) (WorldState, []Event, Outcome, error) {
	return Advance(g, s, a)
}

// LegalActions returns the actions the player may take from s, in the
// order the solver expands them. Wait is always legal.
func LegalActions(g *Geometry, s WorldState) []Action {
	out := make([]Action, 0, len(Actions))
	for _, a := range Actions {
		if d, ok := a.Direction(); ok && !g.CanCross(s.Player, s.Player.Step(d), s.GatesOpen) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// turn carries the working copy through the phases of one Advance call
type turn struct {
	g      *Geometry
	next   WorldState
	events []Event
	err    error
}

func (t *turn) emit(e Event) {
	t.events = append(t.events, e)
}

func (t *turn) toggleGates(phase Phase, actor PursuerKind, index int, at Cell) {
	t.next.GatesOpen = !t.next.GatesOpen
	t.emit(Event{Type: EventGateToggle, Phase: phase, Actor: actor, Index: index, From: at, To: at, GatesOpen: t.next.GatesOpen})
}

func (t *turn) playerPhase(a Action) (Outcome, bool) {
	from := t.next.Player
	d, moves := a.Direction()
	if !moves {
		t.emit(Event{Type: EventPlayerWait, Phase: PhasePlayer, From: from, To: from})
		return Outcome{}, false
	}

	to := from.Step(d)
	if !t.g.CanCross(from, to, t.next.GatesOpen) {
		t.err = &IllegalActionError{Action: a, From: from, Reason: t.blockedReason(from, to)}
		return Outcome{}, false
	}
	t.next.Player = to
	t.emit(Event{Type: EventPlayerMove, Phase: PhasePlayer, From: from, To: to})

	switch {
	case t.g.IsTrap(to):
		t.emit(Event{Type: EventTrap, Phase: PhasePlayer, From: to, To: to})
		return lost(SteppedOnTrap), true
	case t.next.MummyAt(to) || t.next.ScorpionAt(to):
		t.emit(Event{Type: EventCaught, Phase: PhasePlayer, From: to, To: to})
		return lost(CaughtByMummy), true
	case t.g.IsExit(to):
		t.emit(Event{Type: EventExit, Phase: PhasePlayer, From: to, To: to})
		return Outcome{Kind: Win}, true
	}
	if t.g.IsKey(to) {
		t.toggleGates(PhasePlayer, "", 0, to)
	}
	return Outcome{}, false
}

func (t *turn) blockedReason(from, to Cell) string {
	if !t.g.InBounds(to) {
		return "edge of the board"
	}
	if e, ok := EdgeBetween(from, to); ok && t.g.GateAt(e) {
		return "gate is closed"
	}
	return "wall"
}

// mummyPhase runs one sub-move for every mummy; the caller invokes it twice
func (t *turn) mummyPhase(phase Phase) (Outcome, bool) {
	for _, p := range t.next.Mummies() {
		t.movePursuer(phase, p)
		if t.next.cells(p.Kind)[p.Index] == t.next.Player {
			t.emit(Event{Type: EventCaught, Phase: phase, Actor: p.Kind, Index: p.Index, From: t.next.Player, To: t.next.Player})
			return lost(CaughtByMummy), true
		}
	}
	return Outcome{}, false
}

func (t *turn) scorpionPhase() (Outcome, bool) {
	for i, c := range t.next.Scorpions {
		p := Pursuer{Kind: Scorpion, Index: i, Pos: c}
		t.movePursuer(PhaseScorpion, p)
		if t.g.rules.ScorpionLethal && t.next.Scorpions[i] == t.next.Player {
			t.emit(Event{Type: EventStung, Phase: PhaseScorpion, Actor: Scorpion, Index: i, From: t.next.Player, To: t.next.Player})
			return lost(StungByScorpion), true
		}
	}
	return Outcome{}, false
}

func (t *turn) movePursuer(phase Phase, p Pursuer) {
	d, ok := ChooseMove(t.g, t.next, p)
	if !ok {
		t.emit(Event{Type: EventPursuerStay, Phase: phase, Actor: p.Kind, Index: p.Index, From: p.Pos, To: p.Pos})
		return
	}
	to := p.Pos.Step(d)
	t.next.place(p.Kind, p.Index, to)
	t.emit(Event{Type: EventPursuerMove, Phase: phase, Actor: p.Kind, Index: p.Index, From: p.Pos, To: to})
	if t.g.IsKey(to) {
		t.toggleGates(phase, p.Kind, p.Index, to)
	}
}

// Simulate applies actions in order and returns the state after each one.
// It stops at the first terminal outcome; trailing actions are an error.
func Simulate(g *Geometry, s WorldState, actions []Action) ([]WorldState, Outcome, error) {
	states := make([]WorldState, 0, len(actions))
	outcome := Outcome{Kind: Continue}
	for i, a := range actions {
		if outcome.Terminal() {
			return states, outcome, fmt.Errorf("action %d (%s): %w", i, a, ErrGameOver)
		}
		next, _, out, err := Advance(g, s, a)
		if err != nil {
			return states, outcome, fmt.Errorf("action %d: %w", i, err)
		}
		states = append(states, next)
		s, outcome = next, out
	}
	return states, outcome, nil
}
