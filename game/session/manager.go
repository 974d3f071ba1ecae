package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Manager handles game session lifecycle
type Manager struct {
	catalog     engine.Catalog
	sessions    map[string]*service.Session
	persistence SessionPersistence
	// unsaved holds sessions whose last save attempt failed
	unsaved map[string]struct{}
	mu      sync.RWMutex
}

// NewManager creates a new in-memory session manager
func NewManager(catalog engine.Catalog) *Manager {
	return &Manager{
		catalog:  catalog,
		sessions: make(map[string]*service.Session),
		unsaved:  make(map[string]struct{}),
	}
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(catalog engine.Catalog, persistence SessionPersistence) *Manager {
	return &Manager{
		catalog:     catalog,
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
		unsaved:     make(map[string]struct{}),
	}
}

// Create creates a new session with the given ID, starting at levelID. An
// empty id gets a generated 4-character ID.
func (m *Manager) Create(id string, levelID int) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	} else if !validSessionID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	// Check if session already exists (case-insensitive)
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	game := engine.NewGameSession(m.catalog)
	if err := game.LoadLevel(levelID); err != nil {
		return nil, fmt.Errorf("failed to start level %d: %w", levelID, err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		Game:           game,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[strings.ToLower(id)] = session

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			// Log error but don't fail the creation
			log.WithError(err).WithField("session", id).Warn("failed to persist new session")
			m.unsaved[strings.ToLower(id)] = struct{}{}
		}
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to persistence
func (m *Manager) Get(id string) (*service.Session, error) {
	if !validSessionID.MatchString(id) {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Try loading from persistence if not in memory
	if m.persistence != nil && m.persistence.Exists(id) {
		session, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have loaded it meanwhile
		if cached, ok := m.sessions[strings.ToLower(id)]; ok {
			return cached, nil
		}
		m.sessions[strings.ToLower(id)] = session
		log.WithField("session", id).Debug("session loaded from storage")
		return session, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one at levelID
func (m *Manager) GetOrCreate(id string, levelID int) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, levelID)
	}
	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	session, inMemory := m.sessions[lowerID]
	if inMemory {
		delete(m.sessions, lowerID)
		id = session.ID
	}
	delete(m.unsaved, lowerID)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	delete(m.unsaved, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session. The
// change is persisted with the next Save.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	err := m.persistence.Save(session)
	m.markSaved(session.ID, err == nil)
	return err
}

// PendingSave reports whether the last attempt to persist id failed, so the
// stored copy is missing or stale
func (m *Manager) PendingSave(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, pending := m.unsaved[strings.ToLower(id)]
	return pending
}

func (m *Manager) markSaved(id string, saved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, live := m.sessions[strings.ToLower(id)]; !live {
		delete(m.unsaved, strings.ToLower(id))
		return
	}
	if saved {
		delete(m.unsaved, strings.ToLower(id))
	} else {
		m.unsaved[strings.ToLower(id)] = struct{}{}
	}
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration from memory. Persisted copies stay on disk.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.unsaved, id)
			removed++
		}
	}

	if removed > 0 {
		log.WithField("removed", removed).Info("expired sessions evicted")
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Persistence returns the configured storage, or nil for in-memory managers
func (m *Manager) Persistence() SessionPersistence {
	return m.persistence
}

// Close releases the storage backend if it holds connections
func (m *Manager) Close() error {
	if closer, ok := m.persistence.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// generateSessionID returns an unused 4-character hex ID taken from a random
// UUID, widening to 8 characters if the short space looks crowded. Callers
// hold the write lock.
func (m *Manager) generateSessionID() string {
	for attempt := 0; ; attempt++ {
		u := uuid.New()
		size := 2
		if attempt >= 16 {
			size = 4
		}
		id := hex.EncodeToString(u[:size])
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return true
	}
	return m.persistence != nil && m.persistence.Exists(id)
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}

		session, err := m.persistence.Load(id)
		if err != nil {
			log.WithError(err).WithField("session", id).Warn("failed to load persisted session")
			continue
		}

		m.sessions[strings.ToLower(id)] = session
		loadedCount++
	}

	if loadedCount > 0 {
		log.WithField("count", loadedCount).Info("loaded persisted sessions from storage")
	}
	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	m.mu.RLock()
	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, session := range sessions {
		err := m.persistence.Save(session)
		m.markSaved(session.ID, err == nil)
		if err != nil {
			log.WithError(err).WithField("session", session.ID).Warn("failed to save session")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}
	return nil
}
