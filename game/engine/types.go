package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Validation constants
	MinBoardSize     = 1
	MaxBoardSize     = 32
	MaxBulkMoves     = 100
	DefaultMaxDepth  = 500
	MaxPursuersTotal = 16
)

// Cell is a (row, col) board coordinate. It serializes as a [row, col] pair.
type Cell struct {
	Row int
	Col int
}

// MarshalJSON encodes the cell as [row, col]
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON accepts [row, col] as well as {"row": r, "col": c}
func (c *Cell) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("cell must have exactly 2 coordinates, got %d", len(pair))
		}
		c.Row, c.Col = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid cell %s: %w", string(data), err)
	}
	if obj.Row == nil || obj.Col == nil {
		return fmt.Errorf("invalid cell %s: row and col are required", string(data))
	}
	c.Row, c.Col = *obj.Row, *obj.Col
	return nil
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Step returns the adjacent cell in direction d. The result may be out of bounds.
func (c Cell) Step(d Direction) Cell {
	dr, dc := d.Delta()
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

// Direction is one of the four compass moves
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Directions lists the compass moves in the default precedence order
var Directions = [4]Direction{North, South, East, West}

// Delta returns the row and column offsets of the direction
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return -1, 0
	case South:
		return 1, 0
	case East:
		return 0, 1
	case West:
		return 0, -1
	}
	return 0, 0
}

// Valid reports whether d is one of the four compass moves
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// MarshalJSON encodes the direction by name
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a direction name
func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	a, err := ParseAction(s)
	if err != nil {
		return err
	}
	dir, ok := a.Direction()
	if !ok {
		return fmt.Errorf("invalid direction %q", s)
	}
	*d = dir
	return nil
}

// Action is a player's choice for one turn
type Action int

const (
	Wait Action = iota
	MoveNorth
	MoveSouth
	MoveEast
	MoveWest
)

// Actions lists every player action in expansion order
var Actions = [5]Action{MoveNorth, MoveSouth, MoveEast, MoveWest, Wait}

// ActionFor returns the action moving in direction d
func ActionFor(d Direction) Action {
	switch d {
	case North:
		return MoveNorth
	case South:
		return MoveSouth
	case East:
		return MoveEast
	case West:
		return MoveWest
	}
	return Wait
}

// Direction returns the direction of a moving action. ok is false for Wait.
func (a Action) Direction() (Direction, bool) {
	switch a {
	case MoveNorth:
		return North, true
	case MoveSouth:
		return South, true
	case MoveEast:
		return East, true
	case MoveWest:
		return West, true
	}
	return 0, false
}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	return a >= Wait && a <= MoveWest
}

func (a Action) String() string {
	if a == Wait {
		return "wait"
	}
	if d, ok := a.Direction(); ok {
		return d.String()
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalJSON encodes the action by name
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes any name accepted by ParseAction
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts user or agent text into an Action. It accepts compass
// names, screen directions, single letters and an optional "Action:" prefix.
func ParseAction(s string) (Action, error) {
	text := strings.TrimSpace(s)
	if idx := strings.Index(strings.ToLower(text), "action:"); idx >= 0 {
		text = strings.TrimSpace(text[idx+len("action:"):])
	}
	switch strings.ToLower(text) {
	case "north", "up", "n", "u":
		return MoveNorth, nil
	case "south", "down", "s", "d":
		return MoveSouth, nil
	case "east", "right", "e", "r":
		return MoveEast, nil
	case "west", "left", "w", "l":
		return MoveWest, nil
	case "wait", "stay", ".", "x":
		return Wait, nil
	}
	return Wait, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

// ParseActions parses each element with ParseAction
func ParseActions(items []string) ([]Action, error) {
	actions := make([]Action, 0, len(items))
	for i, item := range items {
		a, err := ParseAction(item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// PursuerKind is the closed set of enemy kinds
type PursuerKind string

const (
	WhiteMummy PursuerKind = "white_mummy"
	RedMummy   PursuerKind = "red_mummy"
	Scorpion   PursuerKind = "scorpion"
)

// IsMummy reports whether the kind moves twice per turn
func (k PursuerKind) IsMummy() bool {
	return k == WhiteMummy || k == RedMummy
}

// Pursuer identifies one enemy within a WorldState
type Pursuer struct {
	Kind  PursuerKind `json:"kind"`
	Index int         `json:"index"`
	Pos   Cell        `json:"pos"`
}

// OutcomeKind classifies the result of a turn
type OutcomeKind string

const (
	Continue OutcomeKind = "continue"
	Win      OutcomeKind = "win"
	Lose     OutcomeKind = "lose"
)

// LoseReason explains a lost game
type LoseReason string

const (
	CaughtByMummy   LoseReason = "caught_by_mummy"
	SteppedOnTrap   LoseReason = "stepped_on_trap"
	StungByScorpion LoseReason = "stung_by_scorpion"
)

// Outcome is the result of a single turn
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason LoseReason  `json:"reason,omitempty"`
}

// Terminal reports whether the game has ended
func (o Outcome) Terminal() bool {
	return o.Kind == Win || o.Kind == Lose
}

func (o Outcome) String() string {
	if o.Kind == Lose {
		return fmt.Sprintf("lose(%s)", o.Reason)
	}
	if o.Kind == "" {
		return string(Continue)
	}
	return string(o.Kind)
}

func lost(r LoseReason) Outcome {
	return Outcome{Kind: Lose, Reason: r}
}

// EventType names an entry in the per-turn event log
type EventType string

const (
	EventPlayerMove  EventType = "player_move"
	EventPlayerWait  EventType = "player_wait"
	EventPursuerMove EventType = "pursuer_move"
	EventPursuerStay EventType = "pursuer_stay"
	EventGateToggle  EventType = "gate_toggle"
	EventTrap        EventType = "trap"
	EventCaught      EventType = "caught"
	EventStung       EventType = "stung"
	EventExit        EventType = "exit"
)

// Phase names the part of a turn an event happened in
type Phase string

const (
	PhasePlayer   Phase = "player"
	PhaseMummy1   Phase = "mummy_1"
	PhaseMummy2   Phase = "mummy_2"
	PhaseScorpion Phase = "scorpion"
)

// Event is one observable happening during a turn
type Event struct {
	Type      EventType   `json:"type"`
	Phase     Phase       `json:"phase"`
	Actor     PursuerKind `json:"actor,omitempty"` // empty for the player
	Index     int         `json:"index,omitempty"`
	From      Cell        `json:"from"`
	To        Cell        `json:"to"`
	GatesOpen bool        `json:"gates_open,omitempty"`
}

// MoveHistoryEntry represents a single step in the interactive game history
type MoveHistoryEntry struct {
	Action       Action  `json:"action"`
	FromPosition Cell    `json:"from_position"`
	ToPosition   Cell    `json:"to_position"`
	Outcome      Outcome `json:"outcome"`
	Turn         int     `json:"turn"`
	Timestamp    int64   `json:"timestamp"`
	Success      bool    `json:"success"`
	MoveNumber   int     `json:"move_number"`
	Events       []Event `json:"events,omitempty"`
}
