package service

import (
	"time"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/solver"
)

// Machine-friendly codes for why a bulk move stopped early
const (
	StopBlocked  = "blocked"
	StopGameOver = "game_over"
	StopWin      = "win"
	StopLose     = "lose"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string         `json:"id"`
	LevelID        string         `json:"level_id"`
	LevelName      string         `json:"level_name"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	GameState      *GameStateView `json:"game_state"`
	Level          *engine.Level  `json:"level,omitempty"`
}

// GameStateView is an engine snapshot enriched with a drawn board
type GameStateView struct {
	*engine.GameSnapshot
	SessionID string   `json:"session_id"`
	LevelID   string   `json:"level_id"`
	Board     []string `json:"board"`
	Legend    string   `json:"legend"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool           `json:"success"`
	Action    engine.Action  `json:"action"`
	Message   string         `json:"message"`
	Outcome   engine.Outcome `json:"outcome"`
	Events    []engine.Event `json:"events,omitempty"`
	Step      *StepInfo      `json:"step,omitempty"`
	WasReset  bool           `json:"was_reset,omitempty"`
	GameState *GameStateView `json:"game_state"`
	Repeats   int            `json:"repeats"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	RequestedMoves int    `json:"requested_moves"`
	MovesExecuted  int    `json:"moves_executed"`
	Success        bool   `json:"success"`
	StoppedReason  string `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string `json:"stop_reason_code,omitempty"` // blocked|game_over|win|lose
	StoppedOnMove  int    `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool   `json:"truncated,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	WasReset       bool   `json:"was_reset,omitempty"`

	// Start/end snapshot
	StartPos engine.Cell `json:"start_pos"`
	EndPos   engine.Cell `json:"end_pos"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	GameOver     bool            `json:"game_over"`
	Outcome      engine.Outcome  `json:"outcome"`
	Message      string          `json:"message,omitempty"`
	LegalActions []engine.Action `json:"legal_actions"`
	GameState    *GameStateView  `json:"game_state"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx         int            `json:"idx"`
	Action      engine.Action  `json:"action"`
	From        engine.Cell    `json:"from"`
	To          engine.Cell    `json:"to"`
	Outcome     engine.Outcome `json:"outcome"`
	GateToggles int            `json:"gate_toggles,omitempty"`
	Repeats     int            `json:"repeats,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// SolveRequest names a stored level or carries one inline. With neither
// the default level is solved.
type SolveRequest struct {
	LevelID string         `json:"level_id,omitempty"`
	Level   *engine.Level  `json:"level,omitempty"`
	Options solver.Options `json:"options"`
	NoCache bool           `json:"no_cache,omitempty"`
}

// SolveResponse is a solver verdict for a level
type SolveResponse struct {
	SolutionID  string             `json:"solution_id,omitempty"`
	LevelID     string             `json:"level_id,omitempty"`
	LevelName   string             `json:"level_name,omitempty"`
	Fingerprint string             `json:"fingerprint"`
	Status      solver.Status      `json:"status"`
	Reason      solver.AbortReason `json:"reason,omitempty"`
	Turns       int                `json:"turns"`
	Actions     []engine.Action    `json:"actions"`
	Stats       solver.Stats       `json:"stats"`
	Cached      bool               `json:"cached"`
	CreatedAt   time.Time          `json:"created_at"`
}

// HintResponse is the solver verdict from a session's current state
type HintResponse struct {
	SessionID  string             `json:"session_id"`
	Status     solver.Status      `json:"status"`
	Reason     solver.AbortReason `json:"reason,omitempty"`
	NextAction *engine.Action     `json:"next_action,omitempty"`
	Actions    []engine.Action    `json:"actions"`
	Turns      int                `json:"turns"`
	Stats      solver.Stats       `json:"stats"`
	Message    string             `json:"message"`
}
