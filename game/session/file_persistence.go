package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
)

const (
	sessionExt = ".json"
	// files being written carry this suffix until renamed into place
	partialExt = ".partial"
)

// ErrLevelChanged is returned when a stored session's level no longer
// matches the board it was played on
var ErrLevelChanged = errors.New("level changed since the session was saved")

// FilePersistence stores one JSON document per session in a directory.
// Only the action path is stored; Load replays it on the level.
type FilePersistence struct {
	dir    string
	levels service.LevelManager
}

// NewFilePersistence creates dir if needed
func NewFilePersistence(dir string, levels service.LevelManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, levels: levels}, nil
}

// fileFor maps an ID to its file. IDs are lower-cased so lookups stay
// case-insensitive on every file system.
func (fp *FilePersistence) fileFor(id string) string {
	return filepath.Join(fp.dir, strings.ToLower(filepath.Base(id))+sessionExt)
}

func record(sess *service.Session) (*PersistedSessionData, error) {
	fingerprint, err := engine.Fingerprint(sess.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint level: %w", err)
	}
	return &PersistedSessionData{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		Fingerprint:    fingerprint,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Actions:        sess.Engine.GetActions(),
	}, nil
}

// Save writes the session atomically: a partial file is renamed over the
// previous copy, so a crash never leaves a truncated document.
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	data, err := record(sess)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	path := fp.fileFor(sess.ID)
	tmp := path + partialExt
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// levelFor resolves the stored level and checks it is still the same board
func (fp *FilePersistence) levelFor(data *PersistedSessionData) (*engine.Level, error) {
	if data.LevelID == "" {
		return fp.levels.GetDefault(), nil
	}
	l, err := fp.levels.LoadLevel(data.LevelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load level '%s': %w", data.LevelID, err)
	}
	if data.Fingerprint == "" {
		return l, nil
	}
	current, err := engine.Fingerprint(l)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint level: %w", err)
	}
	if current != data.Fingerprint {
		return nil, fmt.Errorf("%w: %s", ErrLevelChanged, data.LevelID)
	}
	return l, nil
}

// Load rebuilds the session by replaying its action path
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	raw, err := os.ReadFile(fp.fileFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	l, err := fp.levelFor(&data)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(l)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.Replay(data.Actions); err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		LevelID:        data.LevelID,
		Engine:         eng,
		Level:          l,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes the session file
func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.fileFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every stored session, skipping partial writes
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := strings.CutSuffix(e.Name(), sessionExt); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a session file is present
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.fileFor(id))
	return err == nil
}
