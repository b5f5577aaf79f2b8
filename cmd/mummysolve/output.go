package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
)

var (
	colorWall     = color.Style{color.FgGray}
	colorGate     = color.Style{color.FgYellow}
	colorPlayer   = color.Style{color.FgGreen, color.OpBold}
	colorExit     = color.Style{color.FgLightGreen}
	colorMummy    = color.Style{color.FgRed, color.OpBold}
	colorScorpion = color.Style{color.FgMagenta, color.OpBold}
	colorTrap     = color.Style{color.FgLightRed}
	colorKey      = color.Style{color.FgCyan, color.OpBold}
	colorOK       = color.Style{color.FgGreen, color.OpBold}
	colorBad      = color.Style{color.FgRed, color.OpBold}
	colorWarn     = color.Style{color.FgYellow, color.OpBold}
	colorSubtle   = color.Style{color.FgGray}
)

// glyphStyle returns the style of a board glyph, false for plain floor
func glyphStyle(ch byte) (color.Style, bool) {
	switch ch {
	case level.GlyphCorner, level.GlyphHWall, level.GlyphVWall:
		return colorWall, true
	case level.GlyphHGate, level.GlyphVGate:
		return colorGate, true
	case level.GlyphPlayer:
		return colorPlayer, true
	case level.GlyphExit:
		return colorExit, true
	case level.GlyphWhite, level.GlyphRed:
		return colorMummy, true
	case level.GlyphScorpion:
		return colorScorpion, true
	case level.GlyphTrap:
		return colorTrap, true
	case level.GlyphKey:
		return colorKey, true
	}
	return nil, false
}

// colorLine styles every glyph of a rendered board line
func colorLine(line string) string {
	if !color.Enable {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		if style, ok := glyphStyle(line[i]); ok {
			b.WriteString(style.Sprint(string(line[i])))
		} else {
			b.WriteByte(line[i])
		}
	}
	return b.String()
}

// printBoard writes the board of s, one line per row of glyphs
func printBoard(cmd *cli.Command, g *engine.Geometry, s engine.WorldState) {
	w := cmd.Root().Writer
	for _, line := range level.RenderLines(g, s) {
		fmt.Fprintln(w, colorLine(line))
	}
}

func printf(cmd *cli.Command, format string, a ...any) {
	fmt.Fprintf(cmd.Root().Writer, format, a...)
}

func outcomeText(o engine.Outcome) string {
	switch o.Kind {
	case engine.Win:
		return colorOK.Sprint("escaped")
	case engine.Lose:
		return colorBad.Sprint("lost: " + string(o.Reason))
	}
	return colorSubtle.Sprint("in progress")
}

func joinActions(actions []engine.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, " ")
}

// loadLevel reads a level file, choosing the format by extension, and
// validates it
func loadLevel(path string) (*engine.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := level.Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// levelArg returns the single level path argument
func levelArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s: expected exactly one level file", cmd.Name), 1)
	}
	return cmd.Args().First(), nil
}
