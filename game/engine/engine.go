package engine

import (
	"fmt"
	"sort"
	"time"
)

// SessionState is the two-state machine of a level attempt
type SessionState string

const (
	Playing  SessionState = "playing"
	Complete SessionState = "complete"
)

// MoveResult describes what one AttemptMove call changed
type MoveResult struct {
	Direction Direction   `json:"direction"`
	Outcome   MoveOutcome `json:"outcome"`
	From      Position    `json:"from"`
	To        Position    `json:"to"`
	BoxFrom   *Position   `json:"box_from,omitempty"`
	BoxTo     *Position   `json:"box_to,omitempty"`
	Moves     int         `json:"moves"`
	Complete  bool        `json:"complete"`
	// Ignored is set when the command arrived after the level was complete
	Ignored bool `json:"ignored,omitempty"`
}

// GameSession owns the play grid, counters and completion state of one
// level attempt. It is not safe for concurrent use.
type GameSession struct {
	catalog Catalog
	level   *Level
	grid    *Grid
	moves   int
	pushes  int
	state   SessionState
	message string

	history      []MoveHistoryEntry
	totalMoves   int
	currentMoves []MoveHistoryEntry
}

// NewGameSession creates a session with no level loaded
func NewGameSession(catalog Catalog) *GameSession {
	return &GameSession{
		catalog:      catalog,
		state:        Playing,
		history:      []MoveHistoryEntry{},
		currentMoves: []MoveHistoryEntry{},
	}
}

// ValidateLevel checks what movement needs to stay well-defined: a parseable
// layout with exactly one player.
func ValidateLevel(level *Level) ([][]Symbol, error) {
	if level == nil {
		return nil, fmt.Errorf("%w: level is nil", ErrMalformedLevel)
	}
	if level.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be positive, got %d", ErrMalformedLevel, level.ID)
	}
	rows, err := ParseLayout(level.Layout)
	if err != nil {
		return nil, err
	}

	players := 0
	for _, row := range rows {
		for _, s := range row {
			if s.IsPlayer() {
				players++
			}
		}
	}
	switch {
	case players == 0:
		return nil, fmt.Errorf("level %d: %w", level.ID, ErrPlayerNotFound)
	case players > 1:
		return nil, fmt.Errorf("%w: level %d has %d players", ErrMalformedLevel, level.ID, players)
	}
	return rows, nil
}

// LoadLevel fetches the template for id and starts a fresh attempt. On error
// the session keeps its previous level.
func (s *GameSession) LoadLevel(id int) error {
	if s.catalog == nil {
		return fmt.Errorf("level %d: %w", id, ErrLevelNotFound)
	}
	level, err := s.catalog.Template(id)
	if err != nil {
		return err
	}
	rows, err := ValidateLevel(level)
	if err != nil {
		return err
	}

	s.level = level
	s.grid = NewGrid(rows)
	s.moves = 0
	s.pushes = 0
	s.state = Playing
	s.message = fmt.Sprintf("Level %d: %s", level.ID, level.Name)
	s.currentMoves = []MoveHistoryEntry{}
	return nil
}

// Reset reloads the current level
func (s *GameSession) Reset() error {
	if s.level == nil {
		return fmt.Errorf("no level loaded: %w", ErrLevelNotFound)
	}
	return s.LoadLevel(s.level.ID)
}

// AttemptMove runs the movement resolver for dir and updates counters and
// completion state. Commands issued while complete are ignored and leave no
// trace, not even in the history.
func (s *GameSession) AttemptMove(dir Direction) MoveResult {
	result := MoveResult{Direction: dir, Outcome: Blocked, Moves: s.moves, Complete: s.IsComplete()}
	if s.grid == nil {
		result.Ignored = true
		return result
	}

	from, err := s.grid.LocatePlayer()
	if err != nil {
		result.Ignored = true
		return result
	}
	result.From, result.To = from, from

	if s.state == Complete {
		result.Ignored = true
		return result
	}

	outcome, err := Resolve(s.grid, dir)
	if err != nil {
		result.Ignored = true
		return result
	}
	result.Outcome = outcome

	switch outcome {
	case Blocked:
		s.message = fmt.Sprintf("Can't move %s: %s at %s", dir, s.grid.CellAt(from.Add(dir)).Name(), from.Add(dir))
	case MovedPlayer:
		s.moves++
		result.To = from.Add(dir)
		s.message = fmt.Sprintf("Moved %s", dir)
	case PushedBox:
		s.moves++
		s.pushes++
		boxFrom := from.Add(dir)
		boxTo := boxFrom.Add(dir)
		result.To = boxFrom
		result.BoxFrom = &boxFrom
		result.BoxTo = &boxTo
		s.message = fmt.Sprintf("Pushed box %s to %s", dir, boxTo)
		if IsSolved(s.grid) {
			s.state = Complete
			s.message = fmt.Sprintf("Level %d complete in %d moves!", s.level.ID, s.moves)
		}
	}

	result.Moves = s.moves
	result.Complete = s.IsComplete()
	s.addMoveToHistory(dir.String(), outcome, result.From, result.To)
	return result
}

// CanMove reports whether dir would currently change the grid
func (s *GameSession) CanMove(dir Direction) bool {
	if s.grid == nil || s.state == Complete {
		return false
	}
	return CanMove(s.grid, dir)
}

// PossibleMoves returns every direction that is not blocked
func (s *GameSession) PossibleMoves() []string {
	var possible []string
	for _, dir := range Directions {
		if s.CanMove(dir) {
			possible = append(possible, dir.String())
		}
	}
	return possible
}

// LevelID returns the active level, or 0 before the first load
func (s *GameSession) LevelID() int {
	if s.level == nil {
		return 0
	}
	return s.level.ID
}

// Level returns the active template
func (s *GameSession) Level() *Level {
	return s.level
}

// Grid returns the live play grid. Callers must not mutate it.
func (s *GameSession) Grid() *Grid {
	return s.grid
}

// Moves returns the move counter
func (s *GameSession) Moves() int {
	return s.moves
}

// Pushes returns how many of the moves pushed a box
func (s *GameSession) Pushes() int {
	return s.pushes
}

// State returns Playing or Complete
func (s *GameSession) State() SessionState {
	return s.state
}

// IsComplete reports whether the level is solved
func (s *GameSession) IsComplete() bool {
	return s.state == Complete
}

// MoveHistory returns the cumulative attempt history
func (s *GameSession) MoveHistory() []MoveHistoryEntry {
	return s.history
}

// NextLevelID returns the smallest catalog id above the current level
func (s *GameSession) NextLevelID() (int, bool) {
	ids := s.sortedIDs()
	for _, id := range ids {
		if id > s.LevelID() {
			return id, true
		}
	}
	return 0, false
}

// PreviousLevelID returns the largest catalog id below the current level
func (s *GameSession) PreviousLevelID() (int, bool) {
	ids := s.sortedIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] < s.LevelID() {
			return ids[i], true
		}
	}
	return 0, false
}

func (s *GameSession) sortedIDs() []int {
	if s.catalog == nil {
		return nil
	}
	ids := append([]int(nil), s.catalog.IDs()...)
	sort.Ints(ids)
	return ids
}

// Snapshot builds the display view of the session
func (s *GameSession) Snapshot() *GameState {
	state := &GameState{
		Moves:             s.moves,
		Pushes:            s.pushes,
		Complete:          s.IsComplete(),
		State:             s.state,
		Message:           s.message,
		MoveHistory:       append([]MoveHistoryEntry{}, s.history...),
		TotalMoves:        s.totalMoves,
		CurrentMoves:      append([]MoveHistoryEntry{}, s.currentMoves...),
		CurrentMovesCount: len(s.currentMoves),
	}
	if s.level != nil {
		state.LevelID = s.level.ID
		state.LevelName = s.level.Name
	}
	if s.grid != nil {
		state.Grid = s.grid.Rows()
		state.Width = s.grid.Width()
		state.Height = s.grid.Height()
		state.Goals = CountGoals(s.grid)
		state.BoxesOnGoal = s.grid.Count(BoxOnGoal)
		if pos, err := s.grid.LocatePlayer(); err == nil {
			state.PlayerPos = pos
		}
	}
	_, state.HasNext = s.NextLevelID()
	_, state.HasPrevious = s.PreviousLevelID()
	return state
}

// Restore loads state.LevelID and replays the saved grid and counters onto it.
// Used when a persisted session is read back.
func (s *GameSession) Restore(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := s.LoadLevel(state.LevelID); err != nil {
		return err
	}
	if len(state.Grid) > 0 {
		if err := s.grid.restoreCells(state.Grid); err != nil {
			return err
		}
		if _, err := s.grid.LocatePlayer(); err != nil {
			return err
		}
	}

	s.moves = state.Moves
	s.pushes = state.Pushes
	if state.Complete && IsSolved(s.grid) {
		s.state = Complete
	}
	if state.Message != "" {
		s.message = state.Message
	}
	s.history = append([]MoveHistoryEntry{}, state.MoveHistory...)
	s.totalMoves = state.TotalMoves
	s.currentMoves = append([]MoveHistoryEntry{}, state.CurrentMoves...)
	return nil
}

// addMoveToHistory appends to both the cumulative and the current history
func (s *GameSession) addMoveToHistory(action string, outcome MoveOutcome, from, to Position) {
	entry := MoveHistoryEntry{
		Action:       action,
		Outcome:      outcome,
		FromPosition: from,
		ToPosition:   to,
		LevelID:      s.LevelID(),
		Timestamp:    time.Now().Unix(),
		Success:      outcome != Blocked,
		MoveNumber:   s.totalMoves + 1,
	}
	s.history = append(s.history, entry)
	s.totalMoves++
	s.currentMoves = append(s.currentMoves, entry)
}
