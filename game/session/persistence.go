package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string            `json:"id"`
	LevelID        int               `json:"level_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// encodeSession renders a session in the persisted JSON form
func encodeSession(session *service.Session) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if session.Game == nil {
		return nil, fmt.Errorf("session %s has no game", session.ID)
	}

	data := PersistedSessionData{
		ID:             session.ID,
		LevelID:        session.Game.LevelID(),
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Game.Snapshot(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return jsonData, nil
}

// decodeSession rebuilds a live session from its persisted JSON form. The
// level template comes from catalog; the saved grid is replayed on top.
func decodeSession(jsonData []byte, catalog engine.Catalog) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	game := engine.NewGameSession(catalog)
	if data.GameState != nil {
		if data.GameState.LevelID == 0 {
			data.GameState.LevelID = data.LevelID
		}
		if err := game.Restore(data.GameState); err != nil {
			return nil, fmt.Errorf("failed to restore game state: %w", err)
		}
	} else if err := game.LoadLevel(data.LevelID); err != nil {
		return nil, fmt.Errorf("failed to load level %d: %w", data.LevelID, err)
	}

	return &service.Session{
		ID:             data.ID,
		Game:           game,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
