package service

import (
	"time"

	"github.com/wricardo/sokoban-game/game/engine"
)

// Stop reason codes reported by BulkMove
const (
	StopBlockedWall      = "blocked_wall"
	StopBlockedBoundary  = "blocked_boundary"
	StopBlockedBox       = "blocked_box"
	StopInvalidDirection = "invalid_direction"
	StopComplete         = "complete"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelID        int               `json:"level_id"`
	LevelName      string            `json:"level_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success     bool              `json:"success"`
	Outcome     string            `json:"outcome"`
	GameState   *engine.GameState `json:"game_state"`
	Message     string            `json:"message"`
	Events      []GameEvent       `json:"events,omitempty"`
	Step        *StepInfo         `json:"step,omitempty"`
	AttemptedTo *AttemptInfo      `json:"attempted_to,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Pushes         int               `json:"pushes"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked_wall|blocked_boundary|blocked_box|invalid_direction|complete
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	StartPos engine.Position `json:"start_pos"`
	EndPos   engine.Position `json:"end_pos"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	AttemptedTo *AttemptInfo `json:"attempted_to,omitempty"`

	Complete      bool     `json:"complete"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx      int              `json:"idx"`
	Dir      string           `json:"dir"`
	Outcome  string           `json:"outcome"`
	From     engine.Position  `json:"from"`
	To       engine.Position  `json:"to"`
	BoxFrom  *engine.Position `json:"box_from,omitempty"`
	BoxTo    *engine.Position `json:"box_to,omitempty"`
	Complete bool             `json:"complete,omitempty"`
}

// AttemptInfo details the cell a blocked move ran into
type AttemptInfo struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Cell     string `json:"cell"`
	CellType string `json:"cell_type"`
	Passable bool   `json:"passable"`
	Reason   string `json:"reason"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "push", "blocked", "complete", "reset", "level_loaded"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}
