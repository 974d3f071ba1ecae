package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol is a single grid cell, stored as its authoring character
type Symbol byte

const (
	Wall         Symbol = '#'
	Floor        Symbol = ' '
	Goal         Symbol = '.'
	Box          Symbol = '$'
	BoxOnGoal    Symbol = '*'
	Player       Symbol = '@'
	PlayerOnGoal Symbol = '+'

	// OutOfBounds is returned by lookups outside the grid. It is never stored.
	OutOfBounds Symbol = 0

	// Validation constants
	MaxBulkMoves    = 50
	MaxLevelRows    = 64
	MaxLevelColumns = 64
)

var (
	ErrLevelNotFound    = errors.New("level not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrMalformedLevel   = errors.New("malformed level")
	ErrInvalidDirection = errors.New("invalid direction")
)

// ParseSymbol maps an authoring character to a Symbol. '-' and '_' are
// accepted as floor.
func ParseSymbol(ch byte) (Symbol, bool) {
	switch Symbol(ch) {
	case Wall, Floor, Goal, Box, BoxOnGoal, Player, PlayerOnGoal:
		return Symbol(ch), true
	}
	if ch == '-' || ch == '_' {
		return Floor, true
	}
	return OutOfBounds, false
}

// IsTraversable reports whether the player or a box may enter the cell
func (s Symbol) IsTraversable() bool {
	return s == Floor || s == Goal
}

// IsBox reports whether the cell holds a box
func (s Symbol) IsBox() bool {
	return s == Box || s == BoxOnGoal
}

// IsPlayer reports whether the cell holds the player
func (s Symbol) IsPlayer() bool {
	return s == Player || s == PlayerOnGoal
}

// Terrain returns the fixed terrain class under the symbol: Wall, Floor or Goal.
// OutOfBounds stays OutOfBounds.
func (s Symbol) Terrain() Symbol {
	switch s {
	case Goal, BoxOnGoal, PlayerOnGoal:
		return Goal
	case Floor, Box, Player:
		return Floor
	default:
		return s
	}
}

// Name returns a lowercase name for the symbol, used by display adapters
func (s Symbol) Name() string {
	switch s {
	case Wall:
		return "wall"
	case Floor:
		return "floor"
	case Goal:
		return "goal"
	case Box:
		return "box"
	case BoxOnGoal:
		return "box_on_goal"
	case Player:
		return "player"
	case PlayerOnGoal:
		return "player_on_goal"
	default:
		return "out_of_bounds"
	}
}

func (s Symbol) String() string {
	if s == OutOfBounds {
		return "out_of_bounds"
	}
	return string(rune(s))
}

// Position is a (row, col) coordinate on the play grid
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns p shifted by the unit vector of dir
func (p Position) Add(dir Direction) Position {
	dr, dc := dir.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Level is an authored level template
type Level struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Layout      []string `json:"layout"`
}

// Catalog resolves level identifiers to templates
type Catalog interface {
	Template(id int) (*Level, error)
	IDs() []int
}

// GameState is the read-only view handed to display adapters
type GameState struct {
	LevelID     int                `json:"level_id"`
	LevelName   string             `json:"level_name"`
	Grid        []string           `json:"grid"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	PlayerPos   Position           `json:"player_pos"`
	Moves       int                `json:"moves"`
	Pushes      int                `json:"pushes"`
	Complete    bool               `json:"complete"`
	State       SessionState       `json:"state"`
	Goals       int                `json:"goals"`
	BoxesOnGoal int                `json:"boxes_on_goal"`
	HasPrevious bool               `json:"has_previous"`
	HasNext     bool               `json:"has_next"`
	Message     string             `json:"message"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the attempts since the last reset or level load.
	// MoveHistory stays cumulative for the whole session.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// MoveHistoryEntry records one attempted move
type MoveHistoryEntry struct {
	Action       string      `json:"action"`
	Outcome      MoveOutcome `json:"outcome"`
	FromPosition Position    `json:"from_position"`
	ToPosition   Position    `json:"to_position"`
	LevelID      int         `json:"level_id"`
	Timestamp    int64       `json:"timestamp"`
	Success      bool        `json:"success"`
	MoveNumber   int         `json:"move_number"`
}

// FormatRows renders rows with a coordinate ruler, one line per row
func FormatRows(rows []string) string {
	var b strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&b, "%2d |%s|\n", i, row)
	}
	return b.String()
}
