package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
)

var (
	ErrNoNextLevel     = errors.New("already at the last level")
	ErrNoPreviousLevel = errors.New("already at the first level")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, initialLevel string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Level Navigation
	LoadLevel(ctx context.Context, sessionID string, levelID int) (*engine.GameState, error)
	NextLevel(ctx context.Context, sessionID string) (*engine.GameState, error)
	PreviousLevel(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Level Catalog
	ListLevels(ctx context.Context) ([]*levels.Info, error)
	GetLevel(ctx context.Context, levelID int) (*engine.Level, error)
	SaveLevel(ctx context.Context, level *engine.Level) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, levelID int) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelCatalog provides level templates and level authoring
type LevelCatalog interface {
	engine.Catalog
	List() []*levels.Info
	Save(level *engine.Level) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Game           *engine.GameSession
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
