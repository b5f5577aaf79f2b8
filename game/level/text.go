package level

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
)

// ErrInvalidText is returned when a text board cannot be parsed
var ErrInvalidText = errors.New("invalid text board")

// Glyphs of the double-resolution text format. Cells sit at odd (row, col)
// positions, edges between them, junctions at even/even positions.
const (
	GlyphCorner   = '+'
	GlyphHWall    = '-'
	GlyphVWall    = '|'
	GlyphHGate    = '='
	GlyphVGate    = ':'
	GlyphEmpty    = '.'
	GlyphPlayer   = 'P'
	GlyphExit     = 'E'
	GlyphWhite    = 'W'
	GlyphRed      = 'R'
	GlyphScorpion = 'S'
	GlyphKey      = 'K'
	GlyphTrap     = 'T'
)

// Legend explains the glyphs for agents and CLI users
const Legend = "P=player E=exit W=white mummy R=red mummy S=scorpion K=key T=trap | - walls : = gates"

// RenderState draws the board and the entities of s. When several entities
// share a cell only the highest ranked glyph is shown, in increasing rank:
// trap, key, scorpion, white mummy, red mummy, exit, player.
func RenderState(g *engine.Geometry, s engine.WorldState) string {
	grid := edgeGrid(g)
	put := func(c engine.Cell, ch byte) {
		if g.InBounds(c) {
			grid[2*c.Row+1][2*c.Col+1] = ch
		}
	}
	for _, c := range g.Traps() {
		put(c, GlyphTrap)
	}
	for _, c := range g.Keys() {
		put(c, GlyphKey)
	}
	for _, c := range s.Scorpions {
		put(c, GlyphScorpion)
	}
	for _, c := range s.WhiteMummies {
		put(c, GlyphWhite)
	}
	for _, c := range s.RedMummies {
		put(c, GlyphRed)
	}
	put(g.Exit(), GlyphExit)
	put(s.Player, GlyphPlayer)

	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

// RenderLines is RenderState split into rows
func RenderLines(g *engine.Geometry, s engine.WorldState) []string {
	return strings.Split(RenderState(g, s), "\n")
}

// FormatLevel writes a level in the text format, with header lines for the
// name, description, initial gate phase and scorpion rule.
func FormatLevel(l *engine.Level) (string, error) {
	g, s, err := engine.Prepare(l)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if l.Name != "" {
		fmt.Fprintf(&b, "# name: %s\n", l.Name)
	}
	if l.Description != "" {
		fmt.Fprintf(&b, "# description: %s\n", l.Description)
	}
	if l.GatesOpen {
		b.WriteString("# gates: open\n")
	}
	if g.Rules().ScorpionLethal {
		b.WriteString("# scorpions: lethal\n")
	}
	b.WriteString(RenderState(g, s))
	b.WriteString("\n")
	return b.String(), nil
}

func edgeGrid(g *engine.Geometry) [][]byte {
	rows, cols := g.Rows(), g.Cols()
	grid := make([][]byte, 2*rows+1)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(string(GlyphEmpty), 2*cols+1))
	}

	for r := 0; r <= rows; r++ {
		for c := 0; c < cols; c++ {
			e := engine.Edge{Orientation: engine.Horizontal, Row: r, Col: c}
			switch {
			case g.WallAt(e):
				grid[2*r][2*c+1] = GlyphHWall
			case g.GateAt(e):
				grid[2*r][2*c+1] = GlyphHGate
			}
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c <= cols; c++ {
			e := engine.Edge{Orientation: engine.Vertical, Row: r, Col: c}
			switch {
			case g.WallAt(e):
				grid[2*r+1][2*c] = GlyphVWall
			case g.GateAt(e):
				grid[2*r+1][2*c] = GlyphVGate
			}
		}
	}

	isEdge := func(ch byte) bool { return ch != GlyphEmpty }
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			rr, cc := 2*r, 2*c
			left := cc > 0 && isEdge(grid[rr][cc-1])
			right := cc < 2*cols && isEdge(grid[rr][cc+1])
			up := rr > 0 && isEdge(grid[rr-1][cc])
			down := rr < 2*rows && isEdge(grid[rr+1][cc])
			h, v := left || right, up || down
			switch {
			case h && v:
				grid[rr][cc] = GlyphCorner
			case h:
				grid[rr][cc] = junctionGlyph(grid[rr], cc, GlyphHWall, GlyphHGate)
			case v:
				grid[rr][cc] = junctionGlyph(column(grid, cc), rr, GlyphVWall, GlyphVGate)
			}
		}
	}
	return grid
}

// junctionGlyph continues a straight line through a junction, as a wall if
// either neighbor is a wall and as a gate otherwise
func junctionGlyph(line []byte, i int, wall, gate byte) byte {
	if (i > 0 && line[i-1] == wall) || (i+1 < len(line) && line[i+1] == wall) {
		return wall
	}
	return gate
}

func column(grid [][]byte, c int) []byte {
	out := make([]byte, len(grid))
	for i := range grid {
		out[i] = grid[i][c]
	}
	return out
}

// ParseText reads a level from the text format. Lines starting with '#'
// before the board are headers ("name", "description", "gates",
// "scorpions"). The result is not validated; call Validate on it.
func ParseText(text string) (*engine.Level, error) {
	var (
		headers = map[string]string{}
		board   []string
	)
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t")
		if len(board) == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "#") {
				key, value, ok := strings.Cut(strings.TrimSpace(trimmed[1:]), ":")
				if ok {
					headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
				}
				continue
			}
		}
		board = append(board, line)
	}
	for len(board) > 0 && strings.TrimSpace(board[len(board)-1]) == "" {
		board = board[:len(board)-1]
	}

	height := len(board)
	width := 0
	for _, line := range board {
		width = max(width, len(line))
	}
	if height < 3 || width < 3 || height%2 == 0 || width%2 == 0 {
		return nil, fmt.Errorf("%w: board must be (2*rows+1) x (2*cols+1) characters, got %dx%d", ErrInvalidText, height, width)
	}
	grid := make([][]byte, height)
	for i, line := range board {
		grid[i] = []byte(line + strings.Repeat(string(GlyphEmpty), width-len(line)))
	}

	rows, cols := (height-1)/2, (width-1)/2
	l := engine.NewLevel(rows, cols)
	l.Name = headers["name"]
	l.Description = headers["description"]
	l.GatesOpen = strings.EqualFold(headers["gates"], "open")
	if strings.EqualFold(headers["scorpions"], "lethal") {
		rules := engine.DefaultRules()
		rules.ScorpionLethal = true
		l.Rules = &rules
	}

	for r := 0; r <= rows; r++ {
		for c := 0; c < cols; c++ {
			switch grid[2*r][2*c+1] {
			case GlyphHWall:
				l.HWalls[r][c] = true
			case GlyphHGate:
				l.HGates[r][c] = true
			}
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c <= cols; c++ {
			switch grid[2*r+1][2*c] {
			case GlyphVWall:
				l.VWalls[r][c] = true
			case GlyphVGate:
				l.VGates[r][c] = true
			}
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := engine.Cell{Row: r, Col: c}
			switch ch := grid[2*r+1][2*c+1]; ch {
			case GlyphEmpty, ' ':
			case GlyphPlayer:
				if l.Player != nil {
					return nil, fmt.Errorf("%w: more than one player", ErrInvalidText)
				}
				l.Player = &cell
			case GlyphExit:
				if l.Exit != nil {
					return nil, fmt.Errorf("%w: more than one exit", ErrInvalidText)
				}
				l.Exit = &cell
			case GlyphWhite:
				l.WhiteMummies = append(l.WhiteMummies, cell)
			case GlyphRed:
				l.RedMummies = append(l.RedMummies, cell)
			case GlyphScorpion:
				l.Scorpions = append(l.Scorpions, cell)
			case GlyphKey:
				l.Keys = append(l.Keys, cell)
			case GlyphTrap:
				l.Traps = append(l.Traps, cell)
			default:
				return nil, fmt.Errorf("%w: unknown glyph %q at row %d, col %d", ErrInvalidText, ch, r, c)
			}
		}
	}
	return l, nil
}
