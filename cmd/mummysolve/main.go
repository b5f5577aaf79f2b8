// Command mummysolve solves, replays, renders and checks Mummy Maze levels
// from the command line.
//
// Exit codes: 0 on success, 1 on invalid input, 2 when a level is proven
// unsolvable and 3 when a search ran out of budget.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "mummysolve"
)

// Exit codes beyond cli's default of 1
const (
	exitUnsolvable = 2
	exitAborted    = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().Run(ctx, os.Args)
	if err == nil {
		return
	}

	code := 1
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, color.Red.Sprint("error: ")+msg)
	}
	os.Exit(code)
}

// newApp builds the command tree. Errors are returned from Run, never
// turned into os.Exit, so tests can drive the app directly.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "solve and inspect Mummy Maze levels",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable coloured output",
				Sources: cli.EnvVars("NO_COLOR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.SetOutput(cmd.Root().ErrWriter)
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			if cmd.Bool("no-color") || !isTerminal(cmd.Root().Writer) {
				color.Disable()
			}
			return ctx, nil
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			solveCommand(),
			simulateCommand(),
			renderCommand(),
			validateCommand(),
			analyzeCommand(),
			batchCommand(),
		},
	}
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
