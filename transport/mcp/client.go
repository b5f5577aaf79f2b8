package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
)

// Version is reported to MCP hosts during initialization
const Version = "1.0.0"

var actionNames = []string{"north", "south", "east", "west", "wait"}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// solves may run for the server's full solve timeout
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mummy Maze",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mummy Maze - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Walk the explorer (P) to the exit (E) without being caught by a mummy,
stung by a scorpion or stepping on a trap. Every turn you move once (or
wait), then each mummy moves twice and each scorpion once.

AVAILABLE TOOLS:
- list_levels: Stored levels and their sizes
- create_session / get_session / list_sessions: Session management
- game_state: Current board
- move: One action (north/south/east/west/wait) - requires intent explanation
- bulk_move: Several actions at once - requires intent explanation
- undo / reset_game: Step back or start over
- move_history: Past moves
- hint: Shortest winning line from the current position
- solve_level: Solve a stored or inline level
- get_solution: Fetch a cached solver verdict
- game_instructions: Full rules

NOTE: The 'intent' parameter on move/bulk_move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	sessionParam := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))

	// Levels
	c.mcpServer.AddTool(mcp.NewTool("list_levels",
		mcp.WithDescription("List the stored levels"),
	), c.handleListLevels)

	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new game session on a stored level"),
		mcp.WithString("level_id", mcp.Description("Level to play (optional, defaults to the server default)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active game sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get details of a specific session"),
		sessionParam,
	), c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.NewTool("game_state",
		mcp.WithDescription("Get the current board and status"),
		sessionParam,
	), c.handleGameState)

	c.mcpServer.AddTool(mcp.NewTool("move",
		mcp.WithDescription("Take one turn: move the explorer or wait"),
		sessionParam,
		mcp.WithString("action", mcp.Required(), mcp.Enum(actionNames...), mcp.Description("Action to take")),
		mcp.WithString("intent", mcp.Description("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)")),
		mcp.WithBoolean("reset", mcp.Description("Reset before moving")),
	), c.handleMove)

	c.mcpServer.AddTool(mcp.NewTool("bulk_move",
		mcp.WithDescription(fmt.Sprintf("Take several turns in sequence (at most %d); stops at the first blocked move or when the game ends", engine.MaxBulkMoves)),
		sessionParam,
		mcp.WithArray("actions", mcp.Required(), mcp.WithStringEnumItems(actionNames), mcp.Description("Actions in order")),
		mcp.WithString("intent", mcp.Description("Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)")),
		mcp.WithBoolean("reset", mcp.Description("Reset before moving")),
	), c.handleBulkMove)

	c.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Take back the last successful move"),
		sessionParam,
	), c.handleUndo)

	c.mcpServer.AddTool(mcp.NewTool("reset_game",
		mcp.WithDescription("Reset the game to its initial state"),
		sessionParam,
	), c.handleReset)

	c.mcpServer.AddTool(mcp.NewTool("move_history",
		mcp.WithDescription("Get the move history with pagination"),
		sessionParam,
		mcp.WithNumber("page", mcp.Description("Page number (default: 1)")),
		mcp.WithNumber("limit", mcp.Description("Moves per page (default: 20, max: 100)")),
	), c.handleMoveHistory)

	// Solver
	c.mcpServer.AddTool(mcp.NewTool("hint",
		mcp.WithDescription("Solve from the session's current position and return the next best action"),
		sessionParam,
	), c.handleHint)

	c.mcpServer.AddTool(mcp.NewTool("solve_level",
		mcp.WithDescription("Find the shortest winning line for a stored level or an inline text board"),
		mcp.WithString("level_id", mcp.Description("Stored level to solve")),
		mcp.WithString("text", mcp.Description("Inline board in the text level format (see game_instructions)")),
		mcp.WithNumber("max_expansions", mcp.Description("Lower the search node budget")),
		mcp.WithNumber("max_depth", mcp.Description("Lower the maximum line length in turns")),
		mcp.WithString("algorithm", mcp.Enum("astar", "bfs"), mcp.Description("Search strategy")),
	), c.handleSolveLevel)

	c.mcpServer.AddTool(mcp.NewTool("get_solution",
		mcp.WithDescription("Fetch a cached solver verdict by solution id"),
		mcp.WithString("solution_id", mcp.Required(), mcp.Description("Solution ID returned by solve_level")),
	), c.handleGetSolution)

	c.mcpServer.AddTool(mcp.NewTool("game_instructions",
		mcp.WithDescription("Get the complete rules and board legend"),
	), c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiError is the JSON error body written by the REST API
type apiError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiError
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []level.LevelInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Levels (%d):\n\n", len(levels))
	for _, l := range levels {
		fmt.Fprintf(&b, "• %s - %s\n", l.LevelID, l.Name)
		if l.Description != "" {
			fmt.Fprintf(&b, "  %s\n", l.Description)
		}
		fmt.Fprintf(&b, "  Grid: %dx%d, Mummies: %d white / %d red, Scorpions: %d, Traps: %d, Keys: %d\n\n",
			l.Rows, l.Cols, l.WhiteMummies, l.RedMummies, l.Scorpions, l.Traps, l.Keys)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if levelID := request.GetString("level_id", ""); levelID != "" {
		body["level_id"] = levelID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s (%s)\n\n%s",
		session.ID, session.LevelName, session.LevelID, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.GameState != nil && s.GameState.GameSnapshot != nil && s.GameState.GameOver {
			status = s.GameState.Outcome.String()
		}
		fmt.Fprintf(&b, "- %s (Level: %s, %s, Created: %s)\n",
			s.ID, s.LevelID, status, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state service.GameStateView
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"action": action,
		"reset":  request.GetBool("reset", false),
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actions, err := request.RequireStringSlice("actions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"actions": actions,
		"reset":   request.GetBool("reset", false),
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

// stateMessage is the body of the undo and reset endpoints
type stateMessage struct {
	Message string                 `json:"message"`
	State   *service.GameStateView `json:"state"`
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCommand(ctx, request, "/undo")
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCommand(ctx, request, "/reset")
}

func (c *Client) stateCommand(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response stateMessage
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, suffix), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatGameState(response.State)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var hint service.HintResponse
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/hint"), nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHint(&hint)), nil
}

func (c *Client) handleSolveLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]interface{}{}
	if levelID := request.GetString("level_id", ""); levelID != "" {
		body["level_id"] = levelID
	}
	if text := request.GetString("text", ""); text != "" {
		body["text"] = text
	}
	options := map[string]interface{}{}
	if n := request.GetInt("max_expansions", 0); n > 0 {
		options["max_expansions"] = n
	}
	if n := request.GetInt("max_depth", 0); n > 0 {
		options["max_depth"] = n
	}
	if algo := request.GetString("algorithm", ""); algo != "" {
		options["algorithm"] = algo
	}
	if len(options) > 0 {
		body["options"] = options
	}

	var resp service.SolveResponse
	if err := c.apiCall(ctx, http.MethodPost, "/api/solve", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSolveResponse(&resp)), nil
}

func (c *Client) handleGetSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	solutionID, err := request.RequireString("solution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var resp service.SolveResponse
	if err := c.apiCall(ctx, http.MethodGet, "/api/solutions/"+url.PathEscape(solutionID), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSolveResponse(&resp)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Mummy Maze - Complete Instructions

OBJECTIVE:
Reach the exit (E) alive. The exit sits on the outer wall of the board.

TURN ORDER:
1. You act: step north, south, east or west, or wait in place.
   A step into a wall, a closed gate or the board edge is rejected and
   costs nothing.
2. Stepping onto the exit wins at once. Stepping onto a trap, a mummy or
   a scorpion loses at once.
3. Every mummy takes a first step, then every mummy takes a second step.
   A mummy that reaches you ends the game.
4. Every scorpion takes one step. A scorpion reaching you only stings on
   levels with scorpion_lethal set.

HOW ENEMIES CHASE:
- White mummies close the column gap first, then the row gap.
- Red mummies close the row gap first, then the column gap.
- Scorpions close whichever gap is larger.
- An enemy only steps if the step brings it strictly closer to you.
  Otherwise it stays put. Walls and closed gates block enemies too.
- Enemies may share a cell with each other.

KEYS AND GATES:
- Whenever anyone (you or an enemy) lands on a key cell, every gate on the
  board toggles between open and closed.

BOARD LEGEND:
- P explorer, E exit, W white mummy, R red mummy, S scorpion
- T trap, K key, . empty floor
- | and - are walls, : and = are closed gates between cells
- Coordinates are [row, col] with row 0 at the top

STRATEGY:
- Mummies are fast but predictable. Lure them behind a wall where their
  preferred direction keeps them stuck, then walk around.
- Waiting is a move. Sometimes it is the only safe one.
- Use undo freely; it restores the enemies too.
- The hint tool runs the solver from your current position and names the
  next action of a shortest winning line.

TOOLS:
- bulk_move stops at the first rejected action or when the game ends
- reset_game returns to turn 0; undo steps back one successful move
- solve_level accepts a stored level_id or a text board using the legend above`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nLevel: %s (%s)\nCreated: %s\nLast Accessed: %s\n\n",
		session.ID, session.LevelName, session.LevelID,
		session.CreatedAt.Format("15:04:05"), session.LastAccessedAt.Format("15:04:05"))
	b.WriteString(formatGameState(session.GameState))
	return b.String()
}

func formatGameState(state *service.GameStateView) string {
	if state == nil || state.GameSnapshot == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s (%dx%d)\n", state.LevelName, state.Rows, state.Cols)
	fmt.Fprintf(&b, "Turn: %d | Player: %s | Exit: %s", state.State.Turn, state.State.Player, state.Exit)
	if state.State.GatesOpen {
		b.WriteString(" | Gates: open")
	}
	b.WriteString("\n\n")

	for _, line := range state.Board {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if enemies := formatEnemies(state.State); enemies != "" {
		b.WriteString(enemies)
	}

	switch {
	case state.Victory:
		b.WriteString("🎉 VICTORY! The explorer escaped.\n")
	case state.GameOver:
		fmt.Fprintf(&b, "💀 GAME OVER: %s\n", state.Outcome.Reason)
	default:
		fmt.Fprintf(&b, "Legal actions: %s\n", joinActions(state.LegalActions))
	}
	if state.Repeats > 1 {
		fmt.Fprintf(&b, "Note: this position has occurred %d times\n", state.Repeats)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	return b.String()
}

func formatEnemies(s engine.WorldState) string {
	var parts []string
	for _, c := range s.WhiteMummies {
		parts = append(parts, "white mummy "+c.String())
	}
	for _, c := range s.RedMummies {
		parts = append(parts, "red mummy "+c.String())
	}
	for _, c := range s.Scorpions {
		parts = append(parts, "scorpion "+c.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "Enemies: " + strings.Join(parts, ", ") + "\n"
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✅ %s\n", result.Action)
	} else {
		fmt.Fprintf(&b, "❌ %s blocked\n", result.Action)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.Step != nil && result.Step.GateToggles > 0 {
		fmt.Fprintf(&b, "Gates toggled %d time(s)\n", result.Step.GateToggles)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d of %d action(s)\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Note: the request was truncated to %d actions\n", result.Limit)
	}
	if result.WasReset {
		b.WriteString("Game was reset first\n")
	}
	fmt.Fprintf(&b, "Start: %s -> End: %s\n", result.StartPos, result.EndPos)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			b.WriteString(formatStepLine(step))
		}
	}

	if result.StopReasonCode != "" {
		if result.StoppedOnMove > 0 {
			fmt.Fprintf(&b, "\nStopped on action %d: %s\n", result.StoppedOnMove, result.StoppedReason)
		} else {
			fmt.Fprintf(&b, "\nStopped: %s\n", result.StoppedReason)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatStepLine(step service.StepInfo) string {
	line := fmt.Sprintf("  %d. %-5s %s -> %s", step.Idx, step.Action, step.From, step.To)
	if step.Outcome.Terminal() {
		line += " [" + step.Outcome.String() + "]"
	}
	if step.GateToggles > 0 {
		line += fmt.Sprintf(" gates x%d", step.GateToggles)
	}
	return line + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d)\n\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		mark := "✓"
		if !m.Success {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s #%d turn %d: %s %s -> %s", mark, m.MoveNumber, m.Turn, m.Action, m.FromPosition, m.ToPosition)
		if m.Outcome.Terminal() {
			fmt.Fprintf(&b, " [%s]", m.Outcome)
		}
		b.WriteString("\n")
	}
	if history.HasNext {
		b.WriteString("\n(more moves on the next page)\n")
	}
	return b.String()
}

func formatHint(hint *service.HintResponse) string {
	var b strings.Builder
	b.WriteString(hint.Message)
	b.WriteString("\n")
	if hint.NextAction != nil {
		fmt.Fprintf(&b, "Next action: %s\n", *hint.NextAction)
		fmt.Fprintf(&b, "Full line (%d turns): %s\n", hint.Turns, joinActions(hint.Actions))
	}
	fmt.Fprintf(&b, "Search: %d expanded, %d generated\n", hint.Stats.Expanded, hint.Stats.Generated)
	return b.String()
}

func formatSolveResponse(resp *service.SolveResponse) string {
	var b strings.Builder
	name := resp.LevelName
	if resp.LevelID != "" {
		name = fmt.Sprintf("%s (%s)", resp.LevelName, resp.LevelID)
	}
	fmt.Fprintf(&b, "Level: %s\nFingerprint: %s\nStatus: %s", name, resp.Fingerprint, resp.Status)
	if resp.Reason != "" {
		fmt.Fprintf(&b, " (%s)", resp.Reason)
	}
	b.WriteString("\n")
	if len(resp.Actions) > 0 {
		fmt.Fprintf(&b, "Turns: %d\nActions: %s\n", resp.Turns, joinActions(resp.Actions))
	}
	fmt.Fprintf(&b, "Search: %d expanded, %d generated, %d duplicates, max frontier %d, %s\n",
		resp.Stats.Expanded, resp.Stats.Generated, resp.Stats.Duplicates, resp.Stats.MaxFrontier, resp.Stats.Elapsed)
	if resp.SolutionID != "" {
		fmt.Fprintf(&b, "Solution ID: %s", resp.SolutionID)
		if resp.Cached {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func joinActions(actions []engine.Action) string {
	if len(actions) == 0 {
		return "none"
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}
