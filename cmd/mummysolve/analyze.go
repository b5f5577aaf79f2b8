package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/zyedidia/generic/mapset"
)

// Report describes the static layout of a level with every pursuer removed
type Report struct {
	Level        string        `json:"level"`
	Rows         int           `json:"rows"`
	Cols         int           `json:"cols"`
	Mummies      int           `json:"mummies"`
	Scorpions    int           `json:"scorpions"`
	Gates        int           `json:"gates"`
	ClosedReach  int           `json:"reachable_gates_closed"`
	OpenReach    int           `json:"reachable_gates_open"`
	ExitClosed   bool          `json:"exit_reachable_gates_closed"`
	ExitOpen     bool          `json:"exit_reachable_gates_open"`
	ExitDistance int           `json:"exit_distance"`
	DeadEnds     []engine.Cell `json:"dead_ends"`
	ReachTraps   []engine.Cell `json:"reachable_traps"`
	ReachKeys    []engine.Cell `json:"reachable_keys"`
	Unreachable  int           `json:"unreachable_cells"`
}

// flood walks every cell the player could reach alone under a fixed gate
// phase and returns the cells with their step distance from start
func flood(g *engine.Geometry, start engine.Cell, gatesOpen bool) (mapset.Set[engine.Cell], map[engine.Cell]int) {
	seen := mapset.New[engine.Cell]()
	dist := map[engine.Cell]int{start: 0}
	seen.Put(start)
	frontier := []engine.Cell{start}
	for len(frontier) > 0 {
		c := frontier[0]
		frontier = frontier[1:]
		for _, n := range g.Neighbors(c) {
			if seen.Has(n) || !g.CanCross(c, n, gatesOpen) {
				continue
			}
			seen.Put(n)
			dist[n] = dist[c] + 1
			frontier = append(frontier, n)
		}
	}
	return seen, dist
}

// Analyze computes the pursuer-free reachability report of l
func Analyze(l *engine.Level) (*Report, error) {
	g, s, err := engine.Prepare(l)
	if err != nil {
		return nil, err
	}

	closed, _ := flood(g, s.Player, false)
	open, dist := flood(g, s.Player, true)

	r := &Report{
		Level:        l.Name,
		Rows:         g.Rows(),
		Cols:         g.Cols(),
		Mummies:      len(s.Mummies()),
		Scorpions:    len(s.Scorpions),
		Gates:        len(g.GateSites()),
		ClosedReach:  closed.Size(),
		OpenReach:    open.Size(),
		ExitClosed:   closed.Has(g.Exit()),
		ExitOpen:     open.Has(g.Exit()),
		ExitDistance: -1,
		Unreachable:  g.Rows()*g.Cols() - open.Size(),
	}
	if d, ok := dist[g.Exit()]; ok {
		r.ExitDistance = d
	}

	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			c := engine.Cell{Row: row, Col: col}
			if !open.Has(c) || c == g.Exit() || c == s.Player {
				continue
			}
			exits := 0
			for _, n := range g.Neighbors(c) {
				if g.CanCross(c, n, true) {
					exits++
				}
			}
			if exits == 1 {
				r.DeadEnds = append(r.DeadEnds, c)
			}
		}
	}
	for _, c := range g.Traps() {
		if open.Has(c) {
			r.ReachTraps = append(r.ReachTraps, c)
		}
	}
	for _, c := range g.Keys() {
		if open.Has(c) {
			r.ReachKeys = append(r.ReachKeys, c)
		}
	}
	return r, nil
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "report which cells, traps and keys the player can reach ignoring enemies",
		ArgsUsage: "<level>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print machine-readable JSON",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	path, err := levelArg(cmd)
	if err != nil {
		return err
	}
	l, err := loadLevel(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	r, err := Analyze(l)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if cmd.Bool("json") {
		return writeJSON(cmd, r)
	}

	yesNo := func(ok bool) string {
		if ok {
			return colorOK.Sprint("yes")
		}
		return colorBad.Sprint("no")
	}
	printf(cmd, "Level:            %s (%dx%d)\n", r.Level, r.Rows, r.Cols)
	printf(cmd, "Enemies:          %d mummies, %d scorpions\n", r.Mummies, r.Scorpions)
	printf(cmd, "Gates:            %d\n", r.Gates)
	printf(cmd, "Reachable cells:  %d with gates closed, %d with gates open\n", r.ClosedReach, r.OpenReach)
	printf(cmd, "Exit reachable:   closed %s, open %s\n", yesNo(r.ExitClosed), yesNo(r.ExitOpen))
	if r.ExitDistance >= 0 {
		printf(cmd, "Exit distance:    %d steps\n", r.ExitDistance)
	}
	printf(cmd, "Dead ends:        %s\n", cellList(r.DeadEnds))
	printf(cmd, "Reachable traps:  %s\n", cellList(r.ReachTraps))
	printf(cmd, "Reachable keys:   %s\n", cellList(r.ReachKeys))
	if r.Unreachable > 0 {
		printf(cmd, "Walled-off cells: %d\n", r.Unreachable)
	}
	return nil
}

func cellList(cells []engine.Cell) string {
	if len(cells) == 0 {
		return "none"
	}
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%d: %s", len(cells), strings.Join(parts, " "))
}
