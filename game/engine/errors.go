package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is returned when text cannot be parsed into an action
	ErrInvalidAction = errors.New("invalid action")
	// ErrIllegalAction is matched by every *IllegalActionError
	ErrIllegalAction = errors.New("illegal action")
	// ErrGameOver is returned when stepping a finished game
	ErrGameOver = errors.New("game is over")
	// ErrNothingToUndo is returned by Undo at the start of a game
	ErrNothingToUndo = errors.New("nothing to undo")
)

// LevelErrorKind classifies a rejected level
type LevelErrorKind string

const (
	OutOfBounds         LevelErrorKind = "out_of_bounds"
	ConflictingEdge     LevelErrorKind = "conflicting_edge"
	MissingPlayerOrExit LevelErrorKind = "missing_player_or_exit"
	InvalidDimensions   LevelErrorKind = "invalid_dimensions"
	ConflictingTile     LevelErrorKind = "conflicting_tile"
	InvalidRules        LevelErrorKind = "invalid_rules"
)

// Sentinels for errors.Is matching on the kind of a *LevelError
var (
	ErrOutOfBounds         = &LevelError{Kind: OutOfBounds}
	ErrConflictingEdge     = &LevelError{Kind: ConflictingEdge}
	ErrMissingPlayerOrExit = &LevelError{Kind: MissingPlayerOrExit}
	ErrInvalidDimensions   = &LevelError{Kind: InvalidDimensions}
	ErrConflictingTile     = &LevelError{Kind: ConflictingTile}
	ErrInvalidRules        = &LevelError{Kind: InvalidRules}
)

// LevelError reports why a level could not be turned into a Geometry
type LevelError struct {
	Kind   LevelErrorKind
	Detail string
}

func (e *LevelError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid level: %s", e.Kind)
	}
	return fmt.Sprintf("invalid level: %s: %s", e.Kind, e.Detail)
}

// Is matches any *LevelError of the same kind
func (e *LevelError) Is(target error) bool {
	t, ok := target.(*LevelError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func levelErrorf(kind LevelErrorKind, format string, args ...interface{}) *LevelError {
	return &LevelError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IllegalActionError is returned by Advance when the player's move is blocked
type IllegalActionError struct {
	Action Action
	From   Cell
	Reason string
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal action %s from %s: %s", e.Action, e.From, e.Reason)
}

// Is makes errors.Is(err, ErrIllegalAction) succeed
func (e *IllegalActionError) Is(target error) bool {
	return target == ErrIllegalAction
}
