package level

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// Supported level file extensions, in lookup order
const (
	ExtJSON = ".json"
	ExtText = ".txt"
)

// LevelInfo summarizes a stored level
type LevelInfo struct {
	Filename     string `json:"filename"`
	LevelID      string `json:"level_id"` // identifier to use for session creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
	WhiteMummies int    `json:"white_mummies"`
	RedMummies   int    `json:"red_mummies"`
	Scorpions    int    `json:"scorpions"`
	Keys         int    `json:"keys"`
	Traps        int    `json:"traps"`
	Fingerprint  string `json:"fingerprint"`
}

// Manager handles level loading and caching from a directory of board files
type Manager struct {
	levelDir     string
	defaultLevel *engine.Level
	defaultID    string
	levels       map[string]*engine.Level
	mu           sync.RWMutex
}

// NewManager creates a new level manager
func NewManager(levelDir string) (*Manager, error) {
	// Ensure level directory exists
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.Level),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// Dir returns the directory the manager reads from
func (m *Manager) Dir() string {
	return m.levelDir
}

// LoadLevel loads a level by id ("classic"), or by filename ("classic.txt").
// The returned level is shared; callers must Clone before modifying it.
func (m *Manager) LoadLevel(name string) (*engine.Level, error) {
	id := levelID(name)

	m.mu.RLock()
	if l, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return l, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if l, exists := m.levels[id]; exists {
		return l, nil
	}

	candidates := []string{id + ExtJSON, id + ExtText}
	if ext := filepath.Ext(name); ext == ExtJSON || ext == ExtText {
		candidates = []string{name}
	}

	for _, filename := range candidates {
		if filepath.Base(filename) != filename {
			return nil, fmt.Errorf("%w: %q is not a plain file name", ErrLevelNotFound, name)
		}
		data, err := os.ReadFile(filepath.Join(m.levelDir, filename))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read level file: %w", err)
		}

		l, err := Decode(filename, data)
		if err != nil {
			return nil, err
		}
		if l.Name == "" {
			l.Name = id
		}
		m.levels[id] = l
		return l, nil
	}
	return nil, ErrLevelNotFound
}

// Decode parses level bytes according to the file extension and validates
// the result
func Decode(filename string, data []byte) (*engine.Level, error) {
	var (
		l   *engine.Level
		err error
	)
	switch filepath.Ext(filename) {
	case ExtText:
		l, err = ParseText(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
	default:
		l = &engine.Level{}
		if err := json.Unmarshal(data, l); err != nil {
			return nil, fmt.Errorf("%w: failed to parse level: %v", ErrInvalidLevel, err)
		}
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	return l, nil
}

// ListLevels returns information about all available levels
func (m *Manager) ListLevels() ([]*LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	var levels []*LevelInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ExtJSON && ext != ExtText) {
			continue
		}

		id := levelID(entry.Name())
		if seen[id] {
			continue
		}

		l, err := m.LoadLevel(id)
		if err != nil {
			// Skip invalid levels
			continue
		}
		seen[id] = true

		info := Describe(l)
		info.Filename = entry.Name()
		info.LevelID = id
		levels = append(levels, info)
	}

	return levels, nil
}

// Describe builds the summary of a level
func Describe(l *engine.Level) *LevelInfo {
	fingerprint, _ := engine.Fingerprint(l)
	return &LevelInfo{
		Name:         l.Name,
		Description:  l.Description,
		Rows:         l.Rows,
		Cols:         l.Cols,
		WhiteMummies: len(l.WhiteMummies),
		RedMummies:   len(l.RedMummies),
		Scorpions:    len(l.Scorpions),
		Keys:         len(l.Keys),
		Traps:        len(l.Traps),
		Fingerprint:  fingerprint,
	}
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// DefaultID returns the id of the default level, or "" for the built-in one
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default level by id
func (m *Manager) SetDefault(name string) error {
	l, err := m.LoadLevel(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = l
	m.defaultID = levelID(name)
	return nil
}

// RefreshCache reloads all cached levels from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.Level)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// loadDefaultLevel loads classic, else the first valid level, else a
// built-in board
func (m *Manager) loadDefaultLevel() error {
	id := "classic"
	l, err := m.LoadLevel(id)
	if err != nil {
		id = ""
		levels, listErr := m.ListLevels()
		if listErr == nil && len(levels) > 0 {
			if l, err = m.LoadLevel(levels[0].LevelID); err == nil {
				id = levels[0].LevelID
			}
		}
		if id == "" {
			l = MinimalLevel()
		}
	}

	m.mu.Lock()
	m.defaultLevel = l
	m.defaultID = id
	m.mu.Unlock()
	return nil
}

// SaveLevel validates and writes a level. Names ending in .txt are written
// in the text format, everything else as JSON.
func (m *Manager) SaveLevel(name string, l *engine.Level) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}

	id := levelID(name)
	if id == "" || filepath.Base(id) != id {
		return fmt.Errorf("%w: invalid level name %q", ErrInvalidLevel, name)
	}

	var (
		filename = id + ExtJSON
		data     []byte
		err      error
	)
	if filepath.Ext(name) == ExtText {
		filename = id + ExtText
		var text string
		text, err = FormatLevel(l)
		data = []byte(text)
	} else {
		data, err = json.MarshalIndent(l, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode level: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.levelDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[id] = l
	m.mu.Unlock()

	return nil
}

// MinimalLevel returns a small built-in board with one white mummy
func MinimalLevel() *engine.Level {
	l := engine.NewLevel(4, 4)
	l.Name = "default"
	l.Description = "Built-in 4x4 board with a single white mummy"
	l.Player = &engine.Cell{Row: 2, Col: 0}
	l.Exit = &engine.Cell{Row: 0, Col: 1}
	l.WhiteMummies = []engine.Cell{{Row: 0, Col: 2}}
	for _, e := range [][2]int{{1, 2}, {2, 1}, {2, 3}, {3, 3}} {
		l.VWalls[e[0]][e[1]] = true
	}
	for _, e := range [][2]int{{1, 1}, {1, 3}, {2, 1}, {3, 3}} {
		l.HWalls[e[0]][e[1]] = true
	}
	return l
}

func levelID(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ExtJSON), ExtText)
}
