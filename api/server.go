package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
	"github.com/wricardo/mcp-training/mummymaze/game/session"
	"github.com/wricardo/mcp-training/mummymaze/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// route is one entry of the API table; paths are relative to /api
type route struct {
	methods []string
	path    string
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{[]string{http.MethodPost}, "/sessions", s.handleCreateSession},
		{[]string{http.MethodGet}, "/sessions", s.handleListSessions},
		{[]string{http.MethodGet}, "/sessions/{id}", s.handleGetSession},
		{[]string{http.MethodDelete}, "/sessions/{id}", s.handleDeleteSession},

		{[]string{http.MethodGet}, "/sessions/{id}/state", s.handleGetGameState},
		{[]string{http.MethodPost}, "/sessions/{id}/move", s.handleMove},
		{[]string{http.MethodPost}, "/sessions/{id}/bulk-move", s.handleBulkMove},
		{[]string{http.MethodPost}, "/sessions/{id}/undo", s.handleUndo},
		{[]string{http.MethodPost}, "/sessions/{id}/reset", s.handleReset},
		{[]string{http.MethodGet}, "/sessions/{id}/history", s.handleGetHistory},
		{[]string{http.MethodGet, http.MethodPost}, "/sessions/{id}/hint", s.handleHint},

		{[]string{http.MethodGet}, "/levels", s.handleListLevels},
		{[]string{http.MethodPost}, "/levels", s.handleCreateLevel},
		{[]string{http.MethodGet}, "/levels/{id}", s.handleGetLevel},

		{[]string{http.MethodPost}, "/solve", s.handleSolve},
		{[]string{http.MethodGet}, "/solutions/{id}", s.handleGetSolution},
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	for _, rt := range s.routes() {
		api.HandleFunc(rt.path, rt.handler).Methods(rt.methods...)
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the status code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// The upgrader needs the raw writer
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  status,
	})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var levelErr *engine.LevelError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, level.ErrLevelNotFound),
		errors.Is(err, service.ErrSolutionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGameOver),
		errors.Is(err, engine.ErrNothingToUndo),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAction),
		errors.Is(err, engine.ErrIllegalAction),
		errors.Is(err, level.ErrInvalidLevel),
		errors.Is(err, level.ErrInvalidText),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.As(err, &levelErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody decodes an optional JSON body into v
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", service.ErrInvalidRequest, err)
	}
	return nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelID string `json:"level_id,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.LevelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

// listQuery is the sorting and paging of GET /api/sessions
type listQuery struct {
	sortBy string // "created" or "accessed"
	order  string // "asc" or "desc"
	limit  int    // 0 means all
}

func parseListQuery(r *http.Request) listQuery {
	q := r.URL.Query()
	lq := listQuery{sortBy: "accessed", order: "desc"}
	if q.Get("sort") == "created" {
		lq.sortBy = "created"
	}
	if q.Get("order") == "asc" {
		lq.order = "asc"
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		lq.limit = n
	}
	return lq
}

func (lq listQuery) apply(sessions []*service.SessionInfo) []*service.SessionInfo {
	stamp := func(si *service.SessionInfo) time.Time {
		if lq.sortBy == "created" {
			return si.CreatedAt
		}
		return si.LastAccessedAt
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if lq.order == "asc" {
			return stamp(sessions[i]).Before(stamp(sessions[j]))
		}
		return stamp(sessions[i]).After(stamp(sessions[j]))
	})
	if lq.limit > 0 && lq.limit < len(sessions) {
		sessions = sessions[:lq.limit]
	}
	return sessions
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	lq := parseListQuery(r)
	page := lq.apply(all)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(page),
		"total":    len(all),
		"sessions": page,
		"sort":     lq.sortBy,
		"order":    lq.order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, strings.Join(state.Board, "\n"))
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Action    string `json:"action"`
		Direction string `json:"direction,omitempty"` // alias of action
		Reset     bool   `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	action := req.Action
	if action == "" {
		action = req.Direction
	}

	result, err := s.service.Move(r.Context(), sessionID, action, req.Reset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.GameState)
	}

	fields := log.Fields{
		"session": sessionID,
		"action":  result.Action,
		"success": result.Success,
		"outcome": result.Outcome,
	}
	if result.Step != nil {
		fields["from"] = result.Step.From
		fields["to"] = result.Step.To
	}
	log.WithFields(fields).Info("Move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Actions []string `json:"actions"`
		Moves   []string `json:"moves,omitempty"` // alias of actions
		Reset   bool     `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actions := req.Actions
	if len(actions) == 0 {
		actions = req.Moves
	}
	if len(actions) == 0 {
		respondError(w, http.StatusBadRequest, "actions must not be empty")
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, actions, req.Reset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.GameState)
	}

	log.WithFields(log.Fields{
		"session":  sessionID,
		"executed": fmt.Sprintf("%d/%d", result.MovesExecuted, result.RequestedMoves),
		"stop":     result.StopReasonCode,
		"end":      result.EndPos,
	}).Info("Bulk move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Undo(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Move undone",
		"state":   state,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	hint, err := s.service.SolveSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventSolved, hint)
	}

	respondJSON(w, http.StatusOK, hint)
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if levels == nil {
		levels = []*level.LevelInfo{}
	}

	respondJSON(w, http.StatusOK, levels)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	levelID := mux.Vars(r)["id"]

	l, err := s.service.LoadLevel(r.Context(), levelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := level.FormatLevel(l)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, text)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// levelRequest carries a board as JSON or in the text format
type levelRequest struct {
	ID    string        `json:"id"`
	Level *engine.Level `json:"level,omitempty"`
	Text  string        `json:"text,omitempty"`
}

func (req levelRequest) decode() (*engine.Level, error) {
	switch {
	case req.Level != nil && req.Text != "":
		return nil, fmt.Errorf("%w: send either level or text, not both", service.ErrInvalidRequest)
	case req.Text != "":
		return level.ParseText(req.Text)
	}
	return req.Level, nil
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "Level id is required")
		return
	}

	l, err := req.decode()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if l == nil {
		respondError(w, http.StatusBadRequest, "Level or text is required")
		return
	}

	if err := s.service.SaveLevel(r.Context(), req.ID, l); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Level saved successfully",
		"level_id": strings.TrimSuffix(strings.TrimSuffix(req.ID, level.ExtJSON), level.ExtText),
		"info":     level.Describe(l),
	})
}

// Solver Handlers

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		service.SolveRequest
		Text string `json:"text,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	if req.Text != "" {
		l, err := levelRequest{Level: req.Level, Text: req.Text}.decode()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		req.Level = l
	}

	resp, err := s.service.Solve(r.Context(), req.SolveRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.WithFields(log.Fields{
		"level_name": resp.LevelName,
		"status":     resp.Status,
		"turns":      resp.Turns,
		"cached":     resp.Cached,
		"solution":   resp.SolutionID,
	}).Info("Solve")

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetSolution(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket updates are disabled", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
