package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrSolutionNotFound = errors.New("solution not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, action string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkMoveResult, error)
	Undo(ctx context.Context, sessionID string) (*GameStateView, error)
	Reset(ctx context.Context, sessionID string) (*GameStateView, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*GameStateView, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Solving
	Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error)
	SolveSession(ctx context.Context, sessionID string) (*HintResponse, error)
	GetSolution(ctx context.Context, solutionID string) (*SolveResponse, error)

	// Levels
	ListLevels(ctx context.Context) ([]*level.LevelInfo, error)
	LoadLevel(ctx context.Context, levelID string) (*engine.Level, error)
	SaveLevel(ctx context.Context, levelID string, l *engine.Level) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelID string, l *engine.Level) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, levelID string, l *engine.Level) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(name string) (*engine.Level, error)
	ListLevels() ([]*level.LevelInfo, error)
	GetDefault() *engine.Level
	DefaultID() string
	SaveLevel(name string, l *engine.Level) error
}

// Session represents an active game session
type Session struct {
	ID             string
	LevelID        string
	Engine         *engine.GameEngine
	Level          *engine.Level
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
