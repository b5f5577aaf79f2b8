// Package level loads, stores and draws Mummy Maze boards.
//
// Levels live as files in a directory and come in two formats:
//   - JSON files (.json) holding an engine.Level document
//   - Text files (.txt) drawing the board at double resolution
//
// Text Format:
//
// Cells sit at odd (row, col) character positions, edges between them and
// junctions at even positions. Optional '#' header lines precede the board.
//
//	# name: Corridor
//	# gates: open
//	# scorpions: lethal
//	+-----+
//	|P.:.E|
//	+-----+
//
// Glyphs: P=player E=exit W=white mummy R=red mummy S=scorpion K=key T=trap,
// '|' and '-' are walls, ':' and '=' are gates, '.' is open floor.
//
// Usage:
//
//	manager, err := level.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load by id; .json is tried before .txt
//	classic, err := manager.LoadLevel("classic")
//
//	// Summaries with fingerprints for every valid file
//	levels, err := manager.ListLevels()
//
//	// Draw a state for a terminal or an agent
//	g, s, _ := engine.Prepare(classic)
//	fmt.Println(level.RenderState(g, s))
//
// Invalid files are skipped by ListLevels and reported by LoadLevel with
// ErrInvalidLevel wrapping the engine's *LevelError.
package level
