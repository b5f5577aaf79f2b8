package engine

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to Cell) int {
	return abs(from.Row-to.Row) + abs(from.Col-to.Col)
}

// SortCells orders cells row-major in place
func SortCells(cells []Cell) {
	slices.SortFunc(cells, func(a, b Cell) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
}

// Fingerprint identifies the playable content of a level: geometry,
// entities, initial gate phase and rules. Name and description are ignored,
// so renamed copies of a board share cached solutions.
func Fingerprint(l *Level) (string, error) {
	c := l.Clone()
	c.Name, c.Description = "", ""
	rules := l.EffectiveRules()
	c.Rules = &rules
	if c.VWalls == nil {
		c.VWalls = boolMatrix(c.Rows, c.Cols+1)
	}
	if c.HWalls == nil {
		c.HWalls = boolMatrix(c.Rows+1, c.Cols)
	}
	if c.VGates == nil {
		c.VGates = boolMatrix(c.Rows, c.Cols+1)
	}
	if c.HGates == nil {
		c.HGates = boolMatrix(c.Rows+1, c.Cols)
	}
	markBoundary(c.VWalls, c.HWalls, c.Rows, c.Cols)
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode level: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

func cloneCells(cells []Cell) []Cell {
	return append(make([]Cell, 0, len(cells)), cells...)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
