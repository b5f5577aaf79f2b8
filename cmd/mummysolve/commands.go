package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/solver"
)

func solverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "algorithm",
			Aliases: []string{"a"},
			Value:   string(solver.AStar),
			Usage:   "search strategy: astar or bfs",
			Sources: cli.EnvVars("SOLVER_ALGORITHM"),
		},
		&cli.IntFlag{
			Name:    "max-expansions",
			Value:   solver.DefaultMaxExpansions,
			Usage:   "node budget before the search gives up",
			Sources: cli.EnvVars("SOLVER_MAX_EXPANSIONS"),
		},
		&cli.IntFlag{
			Name:    "max-depth",
			Value:   engine.DefaultMaxDepth,
			Usage:   "longest line considered, in turns",
			Sources: cli.EnvVars("SOLVER_MAX_DEPTH"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Value:   30 * time.Second,
			Usage:   "wall-clock bound per level",
			Sources: cli.EnvVars("SOLVER_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print machine-readable JSON",
		},
	}
}

func solverOptions(cmd *cli.Command) (solver.Options, error) {
	algo := solver.Algorithm(cmd.String("algorithm"))
	if algo != solver.AStar && algo != solver.BreadthFirst {
		return solver.Options{}, cli.Exit(fmt.Sprintf("unknown algorithm %q (want astar or bfs)", algo), 1)
	}
	return solver.Options{
		MaxExpansions: cmd.Int("max-expansions"),
		MaxDepth:      cmd.Int("max-depth"),
		Algorithm:     algo,
	}, nil
}

// statusExit maps a verdict to the command's exit status
func statusExit(res *solver.Result) error {
	switch res.Status {
	case solver.Unsolvable:
		return cli.Exit("", exitUnsolvable)
	case solver.Aborted:
		return cli.Exit("", exitAborted)
	}
	return nil
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "find the shortest winning line of a level",
		ArgsUsage: "<level.json|level.txt>",
		Flags: append(solverFlags(),
			&cli.BoolFlag{
				Name:  "show",
				Usage: "draw the board after every turn of the solution",
			},
			&cli.BoolFlag{
				Name:  "clipboard",
				Usage: "copy the solution to the clipboard",
			},
		),
		Action: runSolve,
	}
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	path, err := levelArg(cmd)
	if err != nil {
		return err
	}
	l, err := loadLevel(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	opts, err := solverOptions(cmd)
	if err != nil {
		return err
	}
	fingerprint, err := engine.Fingerprint(l)
	if err != nil {
		return cli.Exit(err, 1)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	log.WithFields(log.Fields{"level_file": path, "algorithm": opts.Algorithm}).Debug("Solving")
	res, err := solver.Solve(ctx, l, opts)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if cmd.Bool("json") {
		out := struct {
			Level       string `json:"level"`
			Fingerprint string `json:"fingerprint"`
			*solver.Result
			Turns int `json:"turns"`
		}{l.Name, fingerprint, res, res.Turns()}
		out.Result.States = nil
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		printSolveResult(cmd, l, fingerprint, res)
	}

	if res.Status == solver.Solved && cmd.Bool("clipboard") {
		if err := clipboard.WriteAll(joinActions(res.Actions)); err != nil {
			log.WithError(err).Warn("Could not copy the solution to the clipboard")
		} else if !cmd.Bool("json") {
			printf(cmd, "%s\n", colorSubtle.Sprint("(copied to clipboard)"))
		}
	}
	return statusExit(res)
}

func printSolveResult(cmd *cli.Command, l *engine.Level, fingerprint string, res *solver.Result) {
	name := l.Name
	if name == "" {
		name = "(unnamed)"
	}
	printf(cmd, "Level:       %s (%dx%d)\n", name, l.Rows, l.Cols)
	printf(cmd, "Fingerprint: %s\n", fingerprint)

	switch res.Status {
	case solver.Solved:
		printf(cmd, "Status:      %s in %d turns\n", colorOK.Sprint("solved"), res.Turns())
		printf(cmd, "Solution:    %s\n", joinActions(res.Actions))
	case solver.Unsolvable:
		printf(cmd, "Status:      %s\n", colorBad.Sprint("unsolvable"))
	default:
		printf(cmd, "Status:      %s (%s)\n", colorWarn.Sprint("aborted"), res.Reason)
	}
	printf(cmd, "Search:      %d expanded, %d generated, %d duplicates, %d losing, max frontier %d, %s\n",
		res.Stats.Expanded, res.Stats.Generated, res.Stats.Duplicates, res.Stats.LosingMoves,
		res.Stats.MaxFrontier, res.Stats.Elapsed.Round(time.Microsecond))

	if res.Status != solver.Solved || !cmd.Bool("show") {
		return
	}
	g, start, err := engine.Prepare(l)
	if err != nil {
		return
	}
	printf(cmd, "\nTurn 0\n")
	printBoard(cmd, g, start)
	for i, s := range res.States {
		printf(cmd, "\nTurn %d: %s\n", i+1, res.Actions[i])
		printBoard(cmd, g, s)
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "replay a list of actions and draw every turn",
		ArgsUsage: "<level> --actions e,e,s,wait",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "actions",
				Aliases:  []string{"m"},
				Usage:    "actions to play (north/south/east/west/wait or n/s/e/w/x); commas or spaces separate them",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only print the final board",
			},
		},
		Action: runSimulate,
	}
}

// splitActions accepts comma and whitespace separated action lists
func splitActions(items []string) []string {
	var out []string
	for _, item := range items {
		out = append(out, strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})...)
	}
	return out
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	path, err := levelArg(cmd)
	if err != nil {
		return err
	}
	l, err := loadLevel(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	actions, err := engine.ParseActions(splitActions(cmd.StringSlice("actions")))
	if err != nil {
		return cli.Exit(err, 1)
	}
	g, s, err := engine.Prepare(l)
	if err != nil {
		return cli.Exit(err, 1)
	}

	quiet := cmd.Bool("quiet")
	if !quiet {
		printf(cmd, "Turn 0\n")
		printBoard(cmd, g, s)
	}

	outcome := engine.Outcome{Kind: engine.Continue}
	played := 0
	for i, a := range actions {
		if outcome.Terminal() {
			printf(cmd, "%s %d trailing action(s) ignored\n", colorWarn.Sprint("note:"), len(actions)-i)
			break
		}
		next, events, out, err := engine.Advance(g, s, a)
		if errors.Is(err, engine.ErrIllegalAction) {
			return cli.Exit(fmt.Sprintf("turn %d: %v", i+1, err), 1)
		}
		if err != nil {
			return cli.Exit(err, 1)
		}
		s, outcome = next, out
		played++

		if !quiet {
			printf(cmd, "\nTurn %d: %s", played, a)
			if n := countToggles(events); n > 0 {
				printf(cmd, " %s", colorKey.Sprintf("(gates toggled x%d)", n))
			}
			printf(cmd, "\n")
			printBoard(cmd, g, s)
		}
	}

	if quiet {
		printBoard(cmd, g, s)
	}
	printf(cmd, "\nAfter %d turn(s): %s\n", played, outcomeText(outcome))
	return nil
}

func countToggles(events []engine.Event) int {
	n := 0
	for _, e := range events {
		if e.Type == engine.EventGateToggle {
			n++
		}
	}
	return n
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "draw a level or convert it between formats",
		ArgsUsage: "<level>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "board",
				Usage:   "board (coloured drawing), text (level text format) or json",
			},
		},
		Action: runRender,
	}
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	path, err := levelArg(cmd)
	if err != nil {
		return err
	}
	l, err := loadLevel(path)
	if err != nil {
		return cli.Exit(err, 1)
	}

	switch cmd.String("format") {
	case "board":
		g, s, err := engine.Prepare(l)
		if err != nil {
			return cli.Exit(err, 1)
		}
		printBoard(cmd, g, s)
		printf(cmd, "%s\n", colorSubtle.Sprint(level.Legend))
	case "text":
		text, err := level.FormatLevel(l)
		if err != nil {
			return cli.Exit(err, 1)
		}
		printf(cmd, "%s", text)
	case "json":
		return writeJSON(cmd, l)
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want board, text or json)", cmd.String("format")), 1)
	}
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check that level files parse and are well formed",
		ArgsUsage: "<level>...",
		Action:    runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return cli.Exit("validate: expected at least one level file", 1)
	}

	failed := 0
	for _, path := range cmd.Args().Slice() {
		l, err := loadLevel(path)
		if err != nil {
			failed++
			printf(cmd, "%s %s\n", colorBad.Sprint("FAIL"), err)
			continue
		}
		fingerprint, _ := engine.Fingerprint(l)
		printf(cmd, "%s %s %s\n", colorOK.Sprint("OK  "), path, colorSubtle.Sprint(fingerprint))
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d level(s) invalid", failed, cmd.Args().Len()), 1)
	}
	return nil
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "solve every level in a directory concurrently",
		ArgsUsage: "<dir>",
		Flags: append(solverFlags(),
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "concurrent searches (0 uses every CPU)",
			},
		),
		Action: runBatch,
	}
}

// levelFiles lists the level files of dir in name order
func levelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != level.ExtJSON && ext != level.ExtText) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("batch: expected exactly one directory", 1)
	}
	opts, err := solverOptions(cmd)
	if err != nil {
		return err
	}
	files, err := levelFiles(cmd.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	// Unreadable files keep their slot so the report stays in name order
	loadErrs := make(map[int]error)
	var items []solver.BatchItem
	var slots []int
	for i, path := range files {
		l, err := loadLevel(path)
		if err != nil {
			log.WithError(err).Warn("Skipping level")
			loadErrs[i] = err
			continue
		}
		items = append(items, solver.BatchItem{Name: filepath.Base(path), Level: l})
		slots = append(slots, i)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	solved, err := solver.SolveAll(ctx, items, opts, cmd.Int("workers"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	results := make([]solver.BatchResult, len(files))
	for i, err := range loadErrs {
		results[i] = solver.BatchResult{Name: filepath.Base(files[i]), Error: err.Error()}
	}
	for j, r := range solved {
		if r.Result != nil {
			r.Result.States = nil
		}
		results[slots[j]] = r
	}

	if cmd.Bool("json") {
		if err := writeJSON(cmd, results); err != nil {
			return err
		}
	} else {
		printBatch(cmd, results)
	}

	if len(loadErrs) > 0 {
		return cli.Exit(fmt.Sprintf("%d level(s) could not be loaded", len(loadErrs)), 1)
	}
	return nil
}

func printBatch(cmd *cli.Command, results []solver.BatchResult) {
	counts := map[solver.Status]int{}
	printf(cmd, "%-24s %-12s %6s %10s %12s\n", "LEVEL", "STATUS", "TURNS", "EXPANDED", "ELAPSED")
	for _, r := range results {
		if r.Result == nil {
			printf(cmd, "%-24s %s %s\n", r.Name, colorBad.Sprintf("%-12s", "error"), r.Error)
			continue
		}
		res := r.Result
		counts[res.Status]++

		status := fmt.Sprintf("%-12s", res.Status)
		switch res.Status {
		case solver.Solved:
			status = colorOK.Sprint(status)
		case solver.Unsolvable:
			status = colorBad.Sprint(status)
		default:
			status = colorWarn.Sprint(status)
		}
		printf(cmd, "%-24s %s %6d %10d %12s\n", r.Name, status, res.Turns(), res.Stats.Expanded,
			res.Stats.Elapsed.Round(time.Microsecond))
	}
	printf(cmd, "\n%d solved, %d unsolvable, %d aborted\n",
		counts[solver.Solved], counts[solver.Unsolvable], counts[solver.Aborted])
}
