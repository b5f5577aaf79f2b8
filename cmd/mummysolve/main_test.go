package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
)

const (
	corridorLevel = `{"name":"Corridor","rows":1,"cols":3,"player":[0,0],"exit":[0,2]}`
	walledLevel   = `{"name":"Walled","rows":1,"cols":3,"v_walls":[[true,false,true,true]],"player":[0,0],"exit":[0,2]}`
	trapLevel     = `{"name":"Trapped","rows":2,"cols":2,"player":[0,0],"exit":[1,1],"traps":[[0,1]]}`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the app with args and returns what it printed
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{AppName}, args...))
	return out.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}

func TestSolve(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "solve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Level:       Corridor (1x3)")
	assert.Contains(t, out, "solved in 2 turns")
	assert.Contains(t, out, "Solution:    east east")
}

func TestSolveShowsEveryTurn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "solve", "--show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Turn 0")
	assert.Contains(t, out, "Turn 1: east")
	assert.Contains(t, out, "Turn 2: east")
}

func TestSolveJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "solve", "--json", "--algorithm", "bfs", path)
	require.NoError(t, err)

	var got struct {
		Level       string   `json:"level"`
		Fingerprint string   `json:"fingerprint"`
		Status      string   `json:"status"`
		Actions     []string `json:"actions"`
		Turns       int      `json:"turns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Corridor", got.Level)
	assert.NotEmpty(t, got.Fingerprint)
	assert.Equal(t, "solved", got.Status)
	assert.Equal(t, []string{"east", "east"}, got.Actions)
	assert.Equal(t, 2, got.Turns)
}

func TestSolveUnsolvable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "walled.json", walledLevel)

	out, err := run(t, "solve", path)
	assert.Equal(t, exitUnsolvable, exitCode(err))
	assert.Contains(t, out, "unsolvable")
}

func TestSolveAborted(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "solve", "--max-depth", "1", path)
	assert.Equal(t, exitAborted, exitCode(err))
	assert.Contains(t, out, "aborted")
}

func TestSolveRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "corridor.json", corridorLevel)
	bad := writeFile(t, dir, "broken.json", `{"rows":0}`)

	_, err := run(t, "solve", "--algorithm", "dfs", good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown algorithm")

	_, err = run(t, "solve", bad)
	assert.Equal(t, 1, exitCode(err))

	_, err = run(t, "solve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly one level file")
}

func TestSimulate(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "simulate", "--actions", "e,east", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Turn 1: east")
	assert.Contains(t, out, "After 2 turn(s): escaped")
}

func TestSimulateIgnoresTrailingActions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "simulate", "-q", "--actions", "e e wait", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 trailing action(s) ignored")
	assert.NotContains(t, out, "Turn 1")
}

func TestSimulateBlockedMove(t *testing.T) {
	path := writeFile(t, t.TempDir(), "walled.json", walledLevel)

	_, err := run(t, "simulate", "--actions", "east,east", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn 2")
}

func TestSimulateUnknownAction(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	_, err := run(t, "simulate", "--actions", "jump", path)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestRender(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corridor.json", corridorLevel)

	out, err := run(t, "render", path)
	require.NoError(t, err)
	assert.Contains(t, out, "|P...E|")

	out, err = run(t, "render", "--format", "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# name: Corridor")

	out, err = run(t, "render", "-f", "json", path)
	require.NoError(t, err)
	var l engine.Level
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	assert.Equal(t, 3, l.Cols)

	_, err = run(t, "render", "-f", "svg", path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "corridor.json", corridorLevel)
	bad := writeFile(t, dir, "broken.json", `{"rows":1,"cols":1}`)

	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	out, err = run(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 level(s) invalid")
	assert.Contains(t, out, "FAIL")
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	trapped, err := loadLevel(writeFile(t, dir, "trapped.json", trapLevel))
	require.NoError(t, err)

	r, err := Analyze(trapped)
	require.NoError(t, err)
	assert.True(t, r.ExitOpen)
	assert.Equal(t, 2, r.ExitDistance)
	assert.Equal(t, []engine.Cell{{Row: 0, Col: 1}}, r.ReachTraps)
	assert.Zero(t, r.Unreachable)

	walled, err := loadLevel(writeFile(t, dir, "walled.json", walledLevel))
	require.NoError(t, err)
	r, err = Analyze(walled)
	require.NoError(t, err)
	assert.False(t, r.ExitOpen)
	assert.Equal(t, -1, r.ExitDistance)
	assert.Equal(t, 1, r.Unreachable)
	assert.Equal(t, []engine.Cell{{Row: 0, Col: 1}}, r.DeadEnds)
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "trapped.json", trapLevel)

	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exit distance:    2 steps")
	assert.Contains(t, out, "Reachable traps:  1: (0,1)")

	out, err = run(t, "analyze", "--json", path)
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 4, r.OpenReach)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_corridor.json", corridorLevel)
	writeFile(t, dir, "b_walled.json", walledLevel)
	writeFile(t, dir, "notes.md", "ignored")

	out, err := run(t, "batch", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "a_corridor.json")
	assert.Contains(t, out, "1 solved, 1 unsolvable, 0 aborted")
	assert.NotContains(t, out, "notes.md")

	writeFile(t, dir, "c_broken.json", `{"rows":-1}`)
	out, err = run(t, "batch", "--json", dir)
	require.Error(t, err)

	var results []struct {
		Name   string `json:"name"`
		Error  string `json:"error"`
		Result *struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "solved", results[0].Result.Status)
	assert.Equal(t, "unsolvable", results[1].Result.Status)
	assert.Equal(t, "c_broken.json", results[2].Name)
	assert.NotEmpty(t, results[2].Error)
}

func TestSplitActions(t *testing.T) {
	assert.Equal(t, []string{"n", "e", "wait", "s"}, splitActions([]string{"n, e", "wait s"}))
	assert.Empty(t, splitActions(nil))
}
