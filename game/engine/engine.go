package engine

import (
	"errors"
	"fmt"
	"time"
)

// Engine provides the main interface for interactive play
type Engine interface {
	// Game state management
	GetState() WorldState
	GetOutcome() Outcome
	Reset() WorldState
	IsGameOver() bool
	IsVictory() bool
	Snapshot() *GameSnapshot

	// Movement operations
	Step(action Action) (*StepResult, error)
	Move(action string) (*StepResult, error)
	CanMove(action Action) bool
	GetPossibleMoves() []Action
	Undo() (WorldState, error)
	Replay(actions []Action) error

	// Level
	GetLevel() *Level
	GetGeometry() *Geometry

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
	GetActions() []Action
	Repeats() int
}

// StepResult describes the effect of one interactive step
type StepResult struct {
	Action  Action     `json:"action"`
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Events  []Event    `json:"events,omitempty"`
	Outcome Outcome    `json:"outcome"`
	State   WorldState `json:"state"`
	// Repeats counts visits of the resulting state on the current path
	Repeats int `json:"repeats"`
}

// GameSnapshot is the presentation view of an interactive game
type GameSnapshot struct {
	LevelName    string             `json:"level_name"`
	Rows         int                `json:"rows"`
	Cols         int                `json:"cols"`
	Exit         Cell               `json:"exit"`
	State        WorldState         `json:"state"`
	Outcome      Outcome            `json:"outcome"`
	GameOver     bool               `json:"game_over"`
	Victory      bool               `json:"victory"`
	Message      string             `json:"message"`
	LegalActions []Action           `json:"legal_actions"`
	Repeats      int                `json:"repeats"`
	PathLength   int                `json:"path_length"`
	TotalMoves   int                `json:"total_moves"`
	CurrentMoves []MoveHistoryEntry `json:"current_moves"`
}

// frame is what Undo needs to restore the position before a step
type frame struct {
	action  Action
	state   WorldState
	outcome Outcome
	message string
}

// GameEngine implements the Engine interface on top of Advance
type GameEngine struct {
	level    *Level
	geometry *Geometry
	initial  WorldState

	state   WorldState
	outcome Outcome
	message string

	path    []frame
	current []MoveHistoryEntry
	history []MoveHistoryEntry
	total   int
	seen    map[uint64]int
}

// NewEngine validates the level and starts a new game on it
func NewEngine(level *Level) (*GameEngine, error) {
	geometry, initial, err := Prepare(level)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		level:    level,
		geometry: geometry,
		initial:  initial,
		history:  []MoveHistoryEntry{},
	}
	e.restart()
	return e, nil
}

func (e *GameEngine) restart() {
	e.state = e.initial.Clone()
	e.outcome = Outcome{Kind: Continue}
	e.message = "Reach the exit without getting caught"
	e.path = nil
	e.current = []MoveHistoryEntry{}
	e.seen = map[uint64]int{e.state.Witness: 1}
}

// GetState returns a copy of the current world state
func (e *GameEngine) GetState() WorldState {
	return e.state.Clone()
}

// GetOutcome returns the outcome of the last step
func (e *GameEngine) GetOutcome() Outcome {
	return e.outcome
}

// GetLevel returns the level being played
func (e *GameEngine) GetLevel() *Level {
	return e.level
}

// GetGeometry returns the static board
func (e *GameEngine) GetGeometry() *Geometry {
	return e.geometry
}

// Reset returns to the initial state. The cumulative history is preserved;
// only the current path is cleared.
func (e *GameEngine) Reset() WorldState {
	e.restart()
	return e.GetState()
}

// IsGameOver returns whether the game has ended
func (e *GameEngine) IsGameOver() bool {
	return e.outcome.Terminal()
}

// IsVictory returns whether the player reached the exit
func (e *GameEngine) IsVictory() bool {
	return e.outcome.Kind == Win
}

// Move parses the action text and steps the game
func (e *GameEngine) Move(action string) (*StepResult, error) {
	a, err := ParseAction(action)
	if err != nil {
		return nil, err
	}
	return e.Step(a)
}

// Step advances the game by one turn. A blocked move is not an error: it is
// reported with Success false and consumes no turn.
func (e *GameEngine) Step(action Action) (*StepResult, error) {
	if e.IsGameOver() {
		return nil, ErrGameOver
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}

	prev := e.state
	next, events, outcome, err := Advance(e.geometry, prev, action)
	if err != nil {
		var illegal *IllegalActionError
		if !errors.As(err, &illegal) {
			return nil, err
		}
		msg := fmt.Sprintf("Can't move %s: %s", action, illegal.Reason)
		e.record(action, prev.Player, prev.Player, e.outcome, prev.Turn, false, nil)
		return &StepResult{
			Action:  action,
			Success: false,
			Message: msg,
			Outcome: e.outcome,
			State:   prev.Clone(),
			Repeats: e.seen[prev.Witness],
		}, nil
	}

	e.path = append(e.path, frame{action: action, state: prev, outcome: e.outcome, message: e.message})
	e.state = next
	e.outcome = outcome
	e.message = describe(outcome, events)
	if outcome.Kind == Continue {
		e.seen[next.Witness]++
	}
	e.record(action, prev.Player, next.Player, outcome, next.Turn, true, events)

	return &StepResult{
		Action:  action,
		Success: true,
		Message: e.message,
		Events:  events,
		Outcome: outcome,
		State:   next.Clone(),
		Repeats: e.Repeats(),
	}, nil
}

func (e *GameEngine) record(action Action, from, to Cell, outcome Outcome, turn int, success bool, events []Event) {
	e.total++
	entry := MoveHistoryEntry{
		Action:       action,
		FromPosition: from,
		ToPosition:   to,
		Outcome:      outcome,
		Turn:         turn,
		Timestamp:    time.Now().Unix(),
		Success:      success,
		MoveNumber:   e.total,
		Events:       events,
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
}

// CanMove reports whether the action is legal from the current state
func (e *GameEngine) CanMove(action Action) bool {
	if e.IsGameOver() || !action.Valid() {
		return false
	}
	d, ok := action.Direction()
	if !ok {
		return true
	}
	return e.geometry.CanCross(e.state.Player, e.state.Player.Step(d), e.state.GatesOpen)
}

// GetPossibleMoves returns the legal actions from the current state
func (e *GameEngine) GetPossibleMoves() []Action {
	if e.IsGameOver() {
		return []Action{}
	}
	return LegalActions(e.geometry, e.state)
}

// Undo reverts the last successful step, including one that ended the game
func (e *GameEngine) Undo() (WorldState, error) {
	if len(e.path) == 0 {
		return e.GetState(), ErrNothingToUndo
	}
	if e.outcome.Kind == Continue {
		if e.seen[e.state.Witness]--; e.seen[e.state.Witness] <= 0 {
			delete(e.seen, e.state.Witness)
		}
	}
	last := e.path[len(e.path)-1]
	e.path = e.path[:len(e.path)-1]
	e.state = last.state
	e.outcome = last.outcome
	e.message = last.message
	return e.GetState(), nil
}

// Replay resets the game and applies the actions in order. It fails on the
// first action that is blocked or follows the end of the game.
func (e *GameEngine) Replay(actions []Action) error {
	e.restart()
	for i, a := range actions {
		res, err := e.Step(a)
		if err != nil {
			return fmt.Errorf("replay action %d (%s): %w", i, a, err)
		}
		if !res.Success {
			return fmt.Errorf("replay action %d (%s): %w", i, a, ErrIllegalAction)
		}
	}
	return nil
}

// GetMoveHistory returns the complete move history, across resets
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// GetActions returns the successful actions leading to the current state
func (e *GameEngine) GetActions() []Action {
	out := make([]Action, len(e.path))
	for i, f := range e.path {
		out[i] = f.action
	}
	return out
}

// Repeats returns how often the current state occurred on the current path
func (e *GameEngine) Repeats() int {
	return e.seen[e.state.Witness]
}

// Snapshot returns the presentation view of the game
func (e *GameEngine) Snapshot() *GameSnapshot {
	return &GameSnapshot{
		LevelName:    e.level.Name,
		Rows:         e.geometry.Rows(),
		Cols:         e.geometry.Cols(),
		Exit:         e.geometry.Exit(),
		State:        e.GetState(),
		Outcome:      e.outcome,
		GameOver:     e.IsGameOver(),
		Victory:      e.IsVictory(),
		Message:      e.message,
		LegalActions: e.GetPossibleMoves(),
		Repeats:      e.Repeats(),
		PathLength:   len(e.path),
		TotalMoves:   e.total,
		CurrentMoves: append([]MoveHistoryEntry{}, e.current...),
	}
}

func describe(outcome Outcome, events []Event) string {
	switch outcome.Kind {
	case Win:
		return "You escaped through the exit!"
	case Lose:
		switch outcome.Reason {
		case SteppedOnTrap:
			return "You stepped on a trap. Game over."
		case StungByScorpion:
			return "A scorpion stung you. Game over."
		default:
			return "A mummy caught you. Game over."
		}
	}
	toggles := 0
	open := false
	for _, ev := range events {
		if ev.Type == EventGateToggle {
			toggles++
			open = ev.GatesOpen
		}
	}
	if toggles > 0 {
		if open {
			return "Gates are now open"
		}
		return "Gates are now closed"
	}
	return "Turn complete"
}
