package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/wricardo/mcp-training/mummymaze/game/cache"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
	"github.com/wricardo/mcp-training/mummymaze/game/solver"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    map[string]int
	mu       sync.Mutex
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		saves:    make(map[string]int),
	}
}

func (m *MockSessionManager) Create(id, levelID string, l *engine.Level) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(l)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		LevelID:        levelID,
		Engine:         eng,
		Level:          l,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id, levelID string, l *engine.Level) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, levelID, l)
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

func (m *MockSessionManager) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	m.saves[id]++
	return nil
}

func (m *MockSessionManager) saveCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[id]
}

// corridorLevel is a 1x4 open corridor: three easts win
func corridorLevel() *engine.Level {
	l := engine.NewLevel(1, 4)
	l.Name = "Corridor"
	l.Player = &engine.Cell{Row: 0, Col: 0}
	l.Exit = &engine.Cell{Row: 0, Col: 3}
	return l
}

// trapLevel puts a trap between the player and the exit, so it has no
// winning line
func trapLevel() *engine.Level {
	l := engine.NewLevel(1, 3)
	l.Name = "Trapped"
	l.Player = &engine.Cell{Row: 0, Col: 0}
	l.Exit = &engine.Cell{Row: 0, Col: 2}
	l.Traps = []engine.Cell{{Row: 0, Col: 1}}
	return l
}

func writeLevel(t *testing.T, dir, name string, l *engine.Level) {
	t.Helper()
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Failed to marshal level: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
}

func newTestService(t *testing.T, opts ...service.Option) (service.GameService, *MockSessionManager) {
	t.Helper()
	dir := t.TempDir()
	writeLevel(t, dir, "corridor", corridorLevel())
	writeLevel(t, dir, "trapped", trapLevel())

	levels, err := level.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create level manager: %v", err)
	}
	sessions := NewMockSessionManager()
	return service.NewGameService(sessions, levels, opts...), sessions
}

func TestGameService_CreateSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("default level", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if info.LevelID != "corridor" {
			t.Errorf("Expected default level corridor, got %q", info.LevelID)
		}
		if info.GameState == nil || info.GameState.State.Player != (engine.Cell{Row: 0, Col: 0}) {
			t.Fatalf("Expected player at the start cell, got %+v", info.GameState)
		}
		if len(info.GameState.Board) != 3 || info.GameState.Board[1] != "|P.....E|" {
			t.Errorf("Unexpected board: %q", info.GameState.Board)
		}
		if info.GameState.Legend == "" {
			t.Error("Expected a legend")
		}
	})

	t.Run("named level with extension", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "trapped.json")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if info.LevelID != "trapped" || info.LevelName != "Trapped" {
			t.Errorf("Unexpected level: %s / %s", info.LevelID, info.LevelName)
		}
	})

	t.Run("unknown level lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "nowhere")
		if !errors.Is(err, level.ErrLevelNotFound) {
			t.Fatalf("Expected ErrLevelNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), "corridor") {
			t.Errorf("Expected available levels in error, got %v", err)
		}
	})
}

func TestGameService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, "")
	svc.CreateSession(ctx, "trapped")

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}

	got, err := svc.GetSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got.Level == nil || got.Level.Name != "Corridor" {
		t.Errorf("Expected the level to be attached, got %+v", got.Level)
	}

	if err := svc.DeleteSession(ctx, info.ID); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := svc.GetSession(ctx, info.ID); err == nil {
		t.Error("Expected error for deleted session")
	}
	if err := svc.DeleteSession(ctx, info.ID); err == nil {
		t.Error("Expected error deleting twice")
	}
}

func TestGameService_Move(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "")

	t.Run("successful move", func(t *testing.T) {
		result, err := svc.Move(ctx, info.ID, "east", false)
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if !result.Success || result.Step == nil {
			t.Fatalf("Expected a successful step, got %+v", result)
		}
		if result.Step.From != (engine.Cell{Row: 0, Col: 0}) || result.Step.To != (engine.Cell{Row: 0, Col: 1}) {
			t.Errorf("Unexpected step %+v", result.Step)
		}
		if result.GameState.State.Turn != 1 {
			t.Errorf("Expected turn 1, got %d", result.GameState.State.Turn)
		}
		if sessions.saveCount(info.ID) != 1 {
			t.Errorf("Expected the session to be saved once, got %d", sessions.saveCount(info.ID))
		}
	})

	t.Run("blocked move", func(t *testing.T) {
		result, err := svc.Move(ctx, info.ID, "north", false)
		if err != nil {
			t.Fatalf("Blocked move should not error: %v", err)
		}
		if result.Success || result.Step != nil {
			t.Errorf("Expected a blocked move, got %+v", result)
		}
		if result.GameState.State.Turn != 1 {
			t.Errorf("Blocked move should not consume a turn")
		}
	})

	t.Run("aliases and reset", func(t *testing.T) {
		result, err := svc.Move(ctx, info.ID, "R", true)
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if !result.WasReset || result.GameState.State.Player != (engine.Cell{Row: 0, Col: 1}) {
			t.Errorf("Expected reset then one step east, got %+v", result.GameState.State)
		}
	})

	t.Run("invalid action", func(t *testing.T) {
		if _, err := svc.Move(ctx, info.ID, "jump", false); !errors.Is(err, engine.ErrInvalidAction) {
			t.Errorf("Expected ErrInvalidAction, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.Move(ctx, "missing", "east", false); err == nil {
			t.Error("Expected error for unknown session")
		}
	})

	t.Run("move after game over", func(t *testing.T) {
		svc.Move(ctx, info.ID, "east", false)
		result, err := svc.Move(ctx, info.ID, "east", false)
		if err != nil {
			t.Fatalf("Winning move failed: %v", err)
		}
		if result.Outcome.Kind != engine.Win || !result.GameState.Victory {
			t.Fatalf("Expected a win, got %+v", result.Outcome)
		}
		if _, err := svc.Move(ctx, info.ID, "wait", false); !errors.Is(err, engine.ErrGameOver) {
			t.Errorf("Expected ErrGameOver, got %v", err)
		}
	})
}

func TestGameService_BulkMove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("stops on win", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "")
		result, err := svc.BulkMove(ctx, info.ID, []string{"east", "east", "east", "east"}, false)
		if err != nil {
			t.Fatalf("Bulk move failed: %v", err)
		}
		if result.MovesExecuted != 3 || result.StopReasonCode != service.StopWin {
			t.Errorf("Expected 3 moves and a win, got %d / %s", result.MovesExecuted, result.StopReasonCode)
		}
		if result.StoppedOnMove != 3 || !result.GameOver || !result.Success {
			t.Errorf("Unexpected summary %+v", result)
		}
		if result.EndPos != (engine.Cell{Row: 0, Col: 3}) {
			t.Errorf("Expected to end on the exit, got %s", result.EndPos)
		}
		if len(result.LegalActions) != 0 {
			t.Errorf("Expected no legal actions after the game ended, got %v", result.LegalActions)
		}

		again, err := svc.BulkMove(ctx, info.ID, []string{"west"}, false)
		if err != nil {
			t.Fatalf("Bulk move failed: %v", err)
		}
		if again.Success || again.StopReasonCode != service.StopGameOver || again.StoppedOnMove != 1 {
			t.Errorf("Expected game_over stop on move 1, got %+v", again)
		}
	})

	t.Run("stops on blocked move", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "")
		result, err := svc.BulkMove(ctx, info.ID, []string{"east", "north", "east"}, false)
		if err != nil {
			t.Fatalf("Bulk move failed: %v", err)
		}
		if result.Success || result.StopReasonCode != service.StopBlocked {
			t.Errorf("Expected blocked stop, got %s", result.StopReasonCode)
		}
		if result.MovesExecuted != 1 || result.StoppedOnMove != 2 {
			t.Errorf("Expected 1 executed and stop on move 2, got %d / %d", result.MovesExecuted, result.StoppedOnMove)
		}
		if result.StartPos != (engine.Cell{Row: 0, Col: 0}) || result.EndPos != (engine.Cell{Row: 0, Col: 1}) {
			t.Errorf("Unexpected positions %s -> %s", result.StartPos, result.EndPos)
		}
	})

	t.Run("stops on loss", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "trapped")
		result, err := svc.BulkMove(ctx, info.ID, []string{"east"}, false)
		if err != nil {
			t.Fatalf("Bulk move failed: %v", err)
		}
		if result.Success || result.StopReasonCode != service.StopLose {
			t.Errorf("Expected lose stop, got %+v", result)
		}
		if result.Outcome.Reason != engine.SteppedOnTrap {
			t.Errorf("Expected trap loss, got %s", result.Outcome)
		}
		if result.StoppedOnMove != 0 {
			t.Errorf("Loss on the last move should not mark a stop index, got %d", result.StoppedOnMove)
		}
	})

	t.Run("invalid action rejects the batch", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "")
		_, err := svc.BulkMove(ctx, info.ID, []string{"east", "sideways"}, false)
		if !errors.Is(err, engine.ErrInvalidAction) {
			t.Fatalf("Expected ErrInvalidAction, got %v", err)
		}
		state, _ := svc.GetGameState(ctx, info.ID)
		if state.State.Turn != 0 {
			t.Errorf("No action should be applied, got turn %d", state.State.Turn)
		}
	})

	t.Run("truncates long batches", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "")
		actions := make([]string, engine.MaxBulkMoves+5)
		for i := range actions {
			actions[i] = "wait"
		}
		result, err := svc.BulkMove(ctx, info.ID, actions, false)
		if err != nil {
			t.Fatalf("Bulk move failed: %v", err)
		}
		if !result.Truncated || result.Limit != engine.MaxBulkMoves {
			t.Errorf("Expected truncation at %d", engine.MaxBulkMoves)
		}
		if result.RequestedMoves != engine.MaxBulkMoves+5 || result.MovesExecuted != engine.MaxBulkMoves {
			t.Errorf("Unexpected counts %d / %d", result.RequestedMoves, result.MovesExecuted)
		}
	})
}

func TestGameService_UndoReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "trapped")

	if _, err := svc.Undo(ctx, info.ID); !errors.Is(err, engine.ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}

	svc.Move(ctx, info.ID, "east", false)
	state, err := svc.Undo(ctx, info.ID)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if state.GameOver || state.State.Player != (engine.Cell{Row: 0, Col: 0}) {
		t.Errorf("Expected undo to revert the losing move, got %+v", state.State)
	}

	svc.Move(ctx, info.ID, "wait", false)
	state, err = svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.State.Turn != 0 || state.PathLength != 0 {
		t.Errorf("Expected initial state after reset, got turn %d", state.State.Turn)
	}
	if state.TotalMoves != 2 {
		t.Errorf("Expected history to survive reset, got %d moves", state.TotalMoves)
	}
}

func TestGameService_GetMoveHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "")

	for _, a := range []string{"east", "west", "east", "west", "east"} {
		if _, err := svc.Move(ctx, info.ID, a, false); err != nil {
			t.Fatalf("Move %s failed: %v", a, err)
		}
	}

	t.Run("defaults to newest first", func(t *testing.T) {
		history, err := svc.GetMoveHistory(ctx, info.ID, service.HistoryOptions{Limit: 2})
		if err != nil {
			t.Fatalf("Failed to get history: %v", err)
		}
		if history.TotalMoves != 5 || history.TotalPages != 3 || history.PageSize != 2 {
			t.Errorf("Unexpected pagination %+v", history)
		}
		if len(history.Moves) != 2 || history.Moves[0].MoveNumber != 5 || history.Moves[1].MoveNumber != 4 {
			t.Errorf("Expected moves 5 and 4, got %+v", history.Moves)
		}
		if !history.HasNext || history.HasPrevious {
			t.Error("Expected only a next page")
		}
	})

	t.Run("ascending last page", func(t *testing.T) {
		history, err := svc.GetMoveHistory(ctx, info.ID, service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"})
		if err != nil {
			t.Fatalf("Failed to get history: %v", err)
		}
		if len(history.Moves) != 1 || history.Moves[0].MoveNumber != 5 {
			t.Errorf("Expected move 5 alone, got %+v", history.Moves)
		}
		if history.HasNext || !history.HasPrevious {
			t.Error("Expected only a previous page")
		}
	})

	t.Run("page past the end", func(t *testing.T) {
		history, err := svc.GetMoveHistory(ctx, info.ID, service.HistoryOptions{Page: 9, Limit: 500})
		if err != nil {
			t.Fatalf("Failed to get history: %v", err)
		}
		if len(history.Moves) != 0 || history.PageSize != 100 {
			t.Errorf("Expected empty page capped at 100, got %d / %d", len(history.Moves), history.PageSize)
		}
	})
}

func TestGameService_Solve(t *testing.T) {
	solutions := cache.NewMemoryCache()
	svc, _ := newTestService(t, service.WithSolutionCache(solutions))
	ctx := context.Background()

	first, err := svc.Solve(ctx, service.SolveRequest{LevelID: "corridor"})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if first.Status != solver.Solved || first.Turns != 3 || first.Cached {
		t.Fatalf("Expected a fresh 3-turn solution, got %+v", first)
	}
	for _, a := range first.Actions {
		if a != engine.MoveEast {
			t.Errorf("Expected only east moves, got %v", first.Actions)
		}
	}
	if first.SolutionID == "" || first.LevelID != "corridor" || first.Fingerprint == "" {
		t.Errorf("Missing identity fields: %+v", first)
	}

	t.Run("second call hits the cache", func(t *testing.T) {
		again, err := svc.Solve(ctx, service.SolveRequest{LevelID: "corridor"})
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if !again.Cached || again.SolutionID != first.SolutionID {
			t.Errorf("Expected cached solution %s, got %+v", first.SolutionID, again)
		}
	})

	t.Run("inline level shares the fingerprint", func(t *testing.T) {
		inline, err := svc.Solve(ctx, service.SolveRequest{Level: corridorLevel()})
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if !inline.Cached || inline.Fingerprint != first.Fingerprint || inline.LevelID != "" {
			t.Errorf("Expected a cached hit by fingerprint, got %+v", inline)
		}
	})

	t.Run("no cache forces a search", func(t *testing.T) {
		fresh, err := svc.Solve(ctx, service.SolveRequest{LevelID: "corridor", NoCache: true})
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if fresh.Cached || fresh.Stats.Expanded == 0 {
			t.Errorf("Expected a fresh search, got %+v", fresh)
		}
		if fresh.SolutionID != first.SolutionID {
			t.Errorf("Expected the re-solve to keep solution ID %s, got %s", first.SolutionID, fresh.SolutionID)
		}
		if _, err := svc.GetSolution(ctx, first.SolutionID); err != nil {
			t.Errorf("Earlier solution ID should still resolve: %v", err)
		}
	})

	t.Run("unsolvable verdicts are cached", func(t *testing.T) {
		res, err := svc.Solve(ctx, service.SolveRequest{LevelID: "trapped"})
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if res.Status != solver.Unsolvable || res.SolutionID == "" || len(res.Actions) != 0 {
			t.Errorf("Expected a cached unsolvable verdict, got %+v", res)
		}
	})

	t.Run("get solution by id", func(t *testing.T) {
		got, err := svc.GetSolution(ctx, first.SolutionID)
		if err != nil {
			t.Fatalf("GetSolution failed: %v", err)
		}
		if got.Turns != 3 || got.LevelName != "Corridor" {
			t.Errorf("Unexpected solution %+v", got)
		}
		if _, err := svc.GetSolution(ctx, "missing"); !errors.Is(err, service.ErrSolutionNotFound) {
			t.Errorf("Expected ErrSolutionNotFound, got %v", err)
		}
	})

	t.Run("invalid inline level", func(t *testing.T) {
		broken := corridorLevel()
		broken.Exit = nil
		if _, err := svc.Solve(ctx, service.SolveRequest{Level: broken}); !errors.Is(err, level.ErrInvalidLevel) {
			t.Errorf("Expected ErrInvalidLevel, got %v", err)
		}
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		req := service.SolveRequest{LevelID: "corridor", Options: solver.Options{Algorithm: "dfs"}}
		if _, err := svc.Solve(ctx, req); !errors.Is(err, service.ErrInvalidRequest) {
			t.Errorf("Expected ErrInvalidRequest, got %v", err)
		}
	})
}

func TestGameService_SolveLogsLevelName(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	svc, _ := newTestService(t)

	if _, err := svc.Solve(context.Background(), service.SolveRequest{LevelID: "corridor"}); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	var solved *log.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Level solved" {
			solved = e
		}
	}
	if solved == nil {
		t.Fatal("Expected a 'Level solved' log entry")
	}
	if solved.Data["level_name"] != "Corridor" {
		t.Errorf("Expected level_name=Corridor, got %v", solved.Data)
	}
	if _, clash := solved.Data["level"]; clash {
		t.Error("The level field collides with the logrus level key")
	}
}

func TestGameService_SolveAborted(t *testing.T) {
	solutions := cache.NewMemoryCache()
	svc, _ := newTestService(t, service.WithSolutionCache(solutions))
	ctx := context.Background()

	req := service.SolveRequest{LevelID: "corridor", Options: solver.Options{MaxExpansions: 1}}
	res, err := svc.Solve(ctx, req)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if res.Status != solver.Aborted || res.Reason != solver.NodeLimit {
		t.Fatalf("Expected node limit abort, got %+v", res)
	}
	if res.SolutionID != "" || solutions.Len() != 0 {
		t.Error("Aborted searches should not be cached")
	}
}

func TestGameService_SolverOptionsOnlyTighten(t *testing.T) {
	svc, _ := newTestService(t, service.WithSolverOptions(solver.Options{MaxExpansions: 1}))
	ctx := context.Background()

	req := service.SolveRequest{LevelID: "corridor", Options: solver.Options{MaxExpansions: 1000}}
	res, err := svc.Solve(ctx, req)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if res.Status != solver.Aborted {
		t.Errorf("Request should not raise the server limit, got %s", res.Status)
	}
}

func TestGameService_ConcurrentSolveSharesResult(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Solve(ctx, service.SolveRequest{LevelID: "corridor"})
			if err != nil {
				t.Errorf("Solve failed: %v", err)
				return
			}
			ids[i] = res.SolutionID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("Expected one shared solution, got %v", ids)
		}
	}
}

func TestGameService_SolveSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("hint from current state", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "")
		svc.Move(ctx, info.ID, "east", false)

		hint, err := svc.SolveSession(ctx, info.ID)
		if err != nil {
			t.Fatalf("SolveSession failed: %v", err)
		}
		if hint.Status != solver.Solved || hint.NextAction == nil || *hint.NextAction != engine.MoveEast {
			t.Fatalf("Expected east hint, got %+v", hint)
		}
		if hint.Turns != 2 {
			t.Errorf("Expected 2 turns left, got %d", hint.Turns)
		}

		// Hints never change the session
		state, _ := svc.GetGameState(ctx, info.ID)
		if state.State.Turn != 1 {
			t.Errorf("Hint changed the game state")
		}
	})

	t.Run("no winning line", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "trapped")
		hint, err := svc.SolveSession(ctx, info.ID)
		if err != nil {
			t.Fatalf("SolveSession failed: %v", err)
		}
		if hint.Status != solver.Unsolvable || hint.NextAction != nil {
			t.Errorf("Expected unsolvable hint, got %+v", hint)
		}
	})

	t.Run("finished game", func(t *testing.T) {
		info, _ := svc.CreateSession(ctx, "trapped")
		svc.Move(ctx, info.ID, "east", false)
		if _, err := svc.SolveSession(ctx, info.ID); !errors.Is(err, engine.ErrGameOver) {
			t.Errorf("Expected ErrGameOver, got %v", err)
		}
	})
}

func TestGameService_Levels(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	levels, err := svc.ListLevels(ctx)
	if err != nil {
		t.Fatalf("ListLevels failed: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}

	custom := corridorLevel()
	custom.Name = "Custom"
	custom.WhiteMummies = []engine.Cell{{Row: 0, Col: 2}}
	if err := svc.SaveLevel(ctx, "custom", custom); err != nil {
		t.Fatalf("SaveLevel failed: %v", err)
	}
	loaded, err := svc.LoadLevel(ctx, "custom")
	if err != nil {
		t.Fatalf("LoadLevel failed: %v", err)
	}
	if loaded.Name != "Custom" || len(loaded.WhiteMummies) != 1 {
		t.Errorf("Unexpected level %+v", loaded)
	}

	info, err := svc.CreateSession(ctx, "custom")
	if err != nil {
		t.Fatalf("Failed to create session on saved level: %v", err)
	}
	if info.LevelID != "custom" {
		t.Errorf("Expected level custom, got %s", info.LevelID)
	}
}
