package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/mummymaze/game/cache"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/solver"
)

// DefaultSolveTimeout bounds a single solver run
const DefaultSolveTimeout = 30 * time.Second

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions     SessionManager
	levels       LevelManager
	solutions    cache.SolutionCache
	solverOpts   solver.Options
	solveTimeout time.Duration
	mu           sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithSolutionCache shares solver verdicts through c
func WithSolutionCache(c cache.SolutionCache) Option {
	return func(s *gameServiceImpl) {
		if c != nil {
			s.solutions = c
		}
	}
}

// WithSolverOptions sets the server-side search bounds. Requests may
// tighten them but never raise them.
func WithSolverOptions(opts solver.Options) Option {
	return func(s *gameServiceImpl) { s.solverOpts = opts }
}

// WithSolveTimeout bounds the wall time of one solver run
func WithSolveTimeout(d time.Duration) Option {
	return func(s *gameServiceImpl) {
		if d > 0 {
			s.solveTimeout = d
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:     sessions,
		levels:       levels,
		solutions:    cache.NewMemoryCache(),
		solveTimeout: DefaultSolveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session on a stored level, or on the
// default level when levelID is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, id, err := s.resolveLevel(levelID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create("", id, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{"session": session.ID, "level_id": id}).Info("Session created")
	return s.sessionInfo(session), nil
}

// resolveLevel loads a level by id, listing the available ids when it is
// unknown
func (s *gameServiceImpl) resolveLevel(levelID string) (*engine.Level, string, error) {
	if levelID == "" {
		return s.levels.GetDefault(), s.levels.DefaultID(), nil
	}

	l, err := s.levels.LoadLevel(levelID)
	if err == nil {
		return l, strings.TrimSuffix(strings.TrimSuffix(levelID, level.ExtJSON), level.ExtText), nil
	}
	if errors.Is(err, level.ErrLevelNotFound) {
		if available, listErr := s.levels.ListLevels(); listErr == nil && len(available) > 0 {
			ids := make([]string, 0, len(available))
			for _, info := range available {
				ids = append(ids, info.LevelID)
			}
			return nil, "", fmt.Errorf("%w: level '%s'. Available levels: %v", level.ErrLevelNotFound, levelID, ids)
		}
		return nil, "", fmt.Errorf("%w: level '%s'. Use /api/levels to list available levels", level.ErrLevelNotFound, levelID)
	}
	return nil, "", fmt.Errorf("failed to load level %s: %w", levelID, err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	info := s.sessionInfo(session)
	info.Level = session.Level
	return info, nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	log.WithField("session", sessionID).Info("Session deleted")
	return nil
}

// Move executes a single action for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, action string, reset bool) (*MoveResult, error) {
	a, err := engine.ParseAction(action)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if reset {
		sess.Engine.Reset()
	}

	from := sess.Engine.GetState().Player
	step, err := sess.Engine.Step(a)
	if err != nil {
		return nil, err
	}

	result := &MoveResult{
		Success:  step.Success,
		Action:   a,
		Message:  step.Message,
		Outcome:  step.Outcome,
		Events:   step.Events,
		WasReset: reset,
		Repeats:  step.Repeats,
	}
	if step.Success {
		result.Step = &StepInfo{
			Idx:         1,
			Action:      a,
			From:        from,
			To:          step.State.Player,
			Outcome:     step.Outcome,
			GateToggles: countToggles(step.Events),
			Repeats:     step.Repeats,
		}
	}
	result.GameState = s.stateView(sess)

	s.persist(sessionID)
	return result, nil
}

// BulkMove executes actions in sequence until one is blocked or the game
// ends. All actions are parsed before any is applied.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkMoveResult, error) {
	result := &BulkMoveResult{
		RequestedMoves: len(actions),
		Success:        true,
		WasReset:       reset,
	}

	// Limit moves to prevent abuse
	if len(actions) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		actions = actions[:engine.MaxBulkMoves]
	}
	parsed, err := engine.ParseActions(actions)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if reset {
		sess.Engine.Reset()
	}
	result.StartPos = sess.Engine.GetState().Player

	for i, a := range parsed {
		if sess.Engine.IsGameOver() {
			result.Success = false
			result.StopReasonCode = StopGameOver
			result.StoppedReason = fmt.Sprintf("game already over before move %d", i+1)
			result.StoppedOnMove = i + 1
			break
		}

		from := sess.Engine.GetState().Player
		step, err := sess.Engine.Step(a)
		if err != nil {
			return nil, err
		}
		if !step.Success {
			result.Success = false
			result.StopReasonCode = StopBlocked
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, step.Message)
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, StepInfo{
			Idx:         i + 1,
			Action:      a,
			From:        from,
			To:          step.State.Player,
			Outcome:     step.Outcome,
			GateToggles: countToggles(step.Events),
			Repeats:     step.Repeats,
		})

		if step.Outcome.Terminal() {
			if step.Outcome.Kind == engine.Win {
				result.StopReasonCode = StopWin
			} else {
				result.Success = false
				result.StopReasonCode = StopLose
			}
			result.StoppedReason = step.Message
			if i+1 < len(parsed) {
				result.StoppedOnMove = i + 1
			}
			break
		}
	}

	result.GameState = s.stateView(sess)
	result.EndPos = result.GameState.State.Player
	result.GameOver = result.GameState.GameOver
	result.Outcome = result.GameState.Outcome
	result.Message = result.GameState.Message
	result.LegalActions = result.GameState.LegalActions

	log.WithFields(log.Fields{
		"session":  sessionID,
		"executed": result.MovesExecuted,
		"stop":     result.StopReasonCode,
	}).Debug("Bulk move")

	s.persist(sessionID)
	return result, nil
}

// Undo reverts the last successful move of a session
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*GameStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if _, err := sess.Engine.Undo(); err != nil {
		return nil, err
	}

	s.persist(sessionID)
	return s.stateView(sess), nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*GameStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sess.Engine.Reset()

	s.persist(sessionID)
	return s.stateView(sess), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*GameStateView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return s.stateView(sess), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	moves := make([]engine.MoveHistoryEntry, 0, end-start)
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Solve searches a stored or inline level. Final verdicts are cached by
// level fingerprint; concurrent requests for one fingerprint wait for the
// first search instead of repeating it.
func (s *gameServiceImpl) Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	opts, err := s.mergeOptions(req.Options)
	if err != nil {
		return nil, err
	}

	var (
		l       *engine.Level
		levelID string
	)
	if req.Level != nil {
		if err := req.Level.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", level.ErrInvalidLevel, err)
		}
		l = req.Level
	} else if l, levelID, err = s.resolveLevel(req.LevelID); err != nil {
		return nil, err
	}

	fingerprint, err := engine.Fingerprint(l)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"level_name": l.Name, "fingerprint": fingerprint})

	if !req.NoCache {
		unlock, err := s.solutions.Lock(ctx, fingerprint)
		if err != nil {
			logger.WithError(err).Warn("Solving without the fingerprint lock")
		} else {
			defer unlock()
		}

		if entry, err := s.solutions.Get(ctx, fingerprint); err == nil {
			logger.Debug("Solution cache hit")
			resp := solveResponse(entry)
			resp.LevelID = levelID
			resp.Cached = true
			return resp, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			logger.WithError(err).Warn("Solution cache lookup failed")
		}
	}

	solveCtx, cancel := context.WithTimeout(ctx, s.solveTimeout)
	defer cancel()
	res, err := solver.Solve(solveCtx, l, opts)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"status":   res.Status,
		"turns":    res.Turns(),
		"expanded": res.Stats.Expanded,
		"elapsed":  res.Stats.Elapsed,
	}).Info("Level solved")

	entry := &cache.Entry{
		Fingerprint: fingerprint,
		LevelName:   l.Name,
		Result:      res,
		CreatedAt:   time.Now().UTC(),
	}
	if res.Status != solver.Aborted {
		entry.ID = uuid.NewString()
		if err := s.solutions.Put(ctx, fingerprint, entry); err != nil {
			logger.WithError(err).Warn("Failed to cache solution")
		}
	}

	resp := solveResponse(entry)
	resp.LevelID = levelID
	return resp, nil
}

// SolveSession searches from the session's current state and suggests the
// first action of a shortest winning line
func (s *gameServiceImpl) SolveSession(ctx context.Context, sessionID string) (*HintResponse, error) {
	opts, err := s.mergeOptions(solver.Options{})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Engine.IsGameOver() {
		s.mu.RUnlock()
		return nil, engine.ErrGameOver
	}
	g := sess.Engine.GetGeometry()
	start := sess.Engine.GetState()
	s.mu.RUnlock()

	solveCtx, cancel := context.WithTimeout(ctx, s.solveTimeout)
	defer cancel()
	res := solver.Search(solveCtx, g, start, opts)

	hint := &HintResponse{
		SessionID: sessionID,
		Status:    res.Status,
		Reason:    res.Reason,
		Actions:   res.Actions,
		Turns:     res.Turns(),
		Stats:     res.Stats,
	}
	if hint.Actions == nil {
		hint.Actions = []engine.Action{}
	}
	switch res.Status {
	case solver.Solved:
		next := res.Actions[0]
		hint.NextAction = &next
		hint.Message = fmt.Sprintf("Move %s; the exit is %d turns away", next, res.Turns())
	case solver.Unsolvable:
		hint.Message = "No winning line exists from here. Undo or reset."
	default:
		hint.Message = fmt.Sprintf("Search gave up (%s)", res.Reason)
	}
	return hint, nil
}

// GetSolution returns a cached solution by its ID
func (s *gameServiceImpl) GetSolution(ctx context.Context, solutionID string) (*SolveResponse, error) {
	entry, err := s.solutions.GetByID(ctx, solutionID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSolutionNotFound, solutionID)
	}
	if err != nil {
		return nil, err
	}
	resp := solveResponse(entry)
	resp.Cached = true
	return resp, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*level.LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel loads a specific level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	return s.levels.LoadLevel(levelID)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelID string, l *engine.Level) error {
	if err := s.levels.SaveLevel(levelID, l); err != nil {
		return err
	}
	log.WithField("level_id", levelID).Info("Level saved")
	return nil
}

// mergeOptions applies request bounds on top of the server bounds. A
// request may only lower the limits.
func (s *gameServiceImpl) mergeOptions(req solver.Options) (solver.Options, error) {
	opts := s.solverOpts
	if req.MaxExpansions > 0 && (opts.MaxExpansions <= 0 || req.MaxExpansions < opts.MaxExpansions) {
		opts.MaxExpansions = req.MaxExpansions
	}
	if req.MaxDepth > 0 && (opts.MaxDepth <= 0 || req.MaxDepth < opts.MaxDepth) {
		opts.MaxDepth = req.MaxDepth
	}
	switch req.Algorithm {
	case "":
	case solver.AStar, solver.BreadthFirst:
		opts.Algorithm = req.Algorithm
	default:
		return opts, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidRequest, req.Algorithm)
	}
	return opts, nil
}

// persist saves a session after a change. Failures are logged only.
func (s *gameServiceImpl) persist(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.WithError(err).WithField("session", sessionID).Warn("Failed to persist session")
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		LevelName:      sess.Level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      s.stateView(sess),
	}
}

func (s *gameServiceImpl) stateView(sess *Session) *GameStateView {
	snap := sess.Engine.Snapshot()
	return &GameStateView{
		GameSnapshot: snap,
		SessionID:    sess.ID,
		LevelID:      sess.LevelID,
		Board:        level.RenderLines(sess.Engine.GetGeometry(), snap.State),
		Legend:       level.Legend,
	}
}

func solveResponse(e *cache.Entry) *SolveResponse {
	resp := &SolveResponse{
		SolutionID:  e.ID,
		LevelName:   e.LevelName,
		Fingerprint: e.Fingerprint,
		Status:      e.Result.Status,
		Reason:      e.Result.Reason,
		Turns:       e.Result.Turns(),
		Actions:     e.Result.Actions,
		Stats:       e.Result.Stats,
		CreatedAt:   e.CreatedAt,
	}
	if resp.Actions == nil {
		resp.Actions = []engine.Action{}
	}
	return resp
}

func countToggles(events []engine.Event) int {
	n := 0
	for _, ev := range events {
		if ev.Type == engine.EventGateToggle {
			n++
		}
	}
	return n
}
