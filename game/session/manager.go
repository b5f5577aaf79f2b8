package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// idBytes is the entropy of generated IDs; two bytes give four hex digits
const idBytes = 2

// Manager keeps the live sessions in memory, keyed by lowercased ID, and
// mirrors them to an optional SessionPersistence.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*service.Session
	persistence SessionPersistence
}

// NewManager returns a memory-only manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence returns a manager backed by p; p may be nil
func NewManagerWithPersistence(p SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: p,
	}
}

func key(id string) string { return strings.ToLower(id) }

func (m *Manager) persisted(id string) bool {
	return m.persistence != nil && m.persistence.Exists(id)
}

// Create starts a game of l under id. An empty id is replaced by a fresh
// four hex digit one. IDs are case-insensitive and may not contain path
// separators or dots since they name files on disk.
func (m *Manager) Create(id, levelID string, l *engine.Level) (*service.Session, error) {
	if l == nil {
		return nil, fmt.Errorf("failed to create engine: level is nil")
	}
	if strings.ContainsAny(id, `/\.`) {
		return nil, ErrInvalidSessionID
	}
	eng, err := engine.NewEngine(l)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	if id == "" {
		id = m.unusedID()
	} else if _, taken := m.sessions[key(id)]; taken {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}
	now := time.Now()
	sess := &service.Session{
		ID:             id,
		LevelID:        levelID,
		Engine:         eng,
		Level:          l,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = sess
	m.mu.Unlock()

	m.store(sess)
	return sess, nil
}

// store writes sess through to persistence; failures are logged only
func (m *Manager) store(sess *service.Session) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(sess); err != nil {
		log.WithError(err).WithField("session", sess.ID).Warn("Failed to persist session")
	}
}

// Get returns the session with id, restoring it from persistence when it
// was evicted from memory.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[key(id)]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if !m.persisted(id) {
		return nil, ErrSessionNotFound
	}
	return m.restore(id)
}

func (m *Manager) restore(id string) (*service.Session, error) {
	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.sessions[key(id)]; ok {
		return current, nil
	}
	m.sessions[key(id)] = loaded
	log.WithField("session", loaded.ID).Debug("Restored session from storage")
	return loaded, nil
}

// GetOrCreate returns the session with id or creates it on l
func (m *Manager) GetOrCreate(id, levelID string, l *engine.Level) (*service.Session, error) {
	sess, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, levelID, l)
	}
	return sess, err
}

// List returns the sessions in memory, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	out := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete drops the session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, live := m.sessions[key(id)]
	delete(m.sessions, key(id))
	m.mu.Unlock()

	if m.persisted(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !live {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts the session but keeps its stored copy
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed marks the session as used now
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one live session to persistence. It is a no-op without
// persistence.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}
	m.mu.RLock()
	sess, ok := m.sessions[key(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many were evicted. Evicted sessions are saved first, so a
// later Get restores them exactly.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var idle []*service.Session
	for k, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			idle = append(idle, sess)
			delete(m.sessions, k)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		m.store(sess)
	}
	return len(idle)
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// unusedID draws random IDs until one is free in memory and on disk.
// Callers hold m.mu.
func (m *Manager) unusedID() string {
	buf := make([]byte, idBytes)
	for {
		_, _ = rand.Read(buf)
		id := hex.EncodeToString(buf)
		if _, taken := m.sessions[id]; !taken && !m.persisted(id) {
			return id
		}
	}
}

// LoadPersistedSessions pulls every stored session that is not already in
// memory. Unreadable ones are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}
	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		m.mu.RLock()
		_, live := m.sessions[key(id)]
		m.mu.RUnlock()
		if live {
			continue
		}
		if _, err := m.restore(id); err != nil {
			log.WithError(err).WithField("session", id).Warn("Failed to load persisted session")
			continue
		}
		loaded++
	}
	if loaded > 0 {
		log.WithField("count", loaded).Info("Loaded persisted sessions from storage")
	}
	return nil
}

// SaveAllSessions writes every live session and joins the failures
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}
	var errs []error
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to save %d sessions: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
