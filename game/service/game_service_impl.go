package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelCatalog
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, catalog LevelCatalog) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		levels:   catalog,
	}
}

// CreateSession creates a new game session starting at initialLevel. Empty or
// unknown level parameters start at the first level.
func (s *gameServiceImpl) CreateSession(ctx context.Context, initialLevel string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	levelID := levels.ResolveLevelID(initialLevel, s.levels)
	if levelID == 0 {
		return nil, fmt.Errorf("no levels available: %w", engine.ErrLevelNotFound)
	}
	if initialLevel != "" && fmt.Sprint(levelID) != initialLevel {
		log.WithFields(log.Fields{"requested": initialLevel, "level": levelID}).Info("unknown level requested, starting at first level")
	}

	// Let session manager generate the ID
	session, err := s.sessions.Create("", levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{"session": session.ID, "level": levelID}).Info("session created")
	return newSessionInfo(session), nil
}

// GetSession retrieves session information and records the access
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.touch(sessionID)
	return newSessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, newSessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.touch(sessionID)

	events := []GameEvent{}
	if reset {
		if err := sess.Game.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset: %w", err)
		}
		events = append(events, resetEvent(sess.Game))
	}

	move := sess.Game.AttemptMove(dir)
	state := sess.Game.Snapshot()

	result := &MoveResult{
		Success:   succeeded(move),
		Outcome:   move.Outcome.String(),
		GameState: state,
		Message:   state.Message,
		Events:    append(events, moveEvents(move, state)...),
	}

	if result.Success {
		step := stepInfo(1, move)
		result.Step = &step
	} else if !move.Ignored {
		result.AttemptedTo = attemptInfo(sess.Game.Grid(), move)
	}

	log.WithFields(log.Fields{
		"session":  sessionID,
		"dir":      dir.String(),
		"outcome":  move.Outcome.String(),
		"moves":    move.Moves,
		"complete": move.Complete,
		"ignored":  move.Ignored,
	}).Debug("move")

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes moves in order, stopping at the first blocked move, the
// first invalid direction, or once the level is complete
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.touch(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if err := sess.Game.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset: %w", err)
		}
		result.Events = append(result.Events, resetEvent(sess.Game))
	}

	startState := sess.Game.Snapshot()
	result.StartPos = startState.PlayerPos

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, raw := range moves {
		if sess.Game.IsComplete() {
			result.StoppedReason = fmt.Sprintf("level complete before move %d", i+1)
			result.StopReasonCode = StopComplete
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(raw)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d invalid: %q", i+1, raw)
			result.StopReasonCode = StopInvalidDirection
			result.StoppedOnMove = i + 1
			break
		}

		move := sess.Game.AttemptMove(dir)
		state := sess.Game.Snapshot()
		result.Events = append(result.Events, moveEvents(move, state)...)

		if !succeeded(move) {
			attempt := attemptInfo(sess.Game.Grid(), move)
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, raw)
			result.StopReasonCode = attempt.Reason
			result.StoppedOnMove = i + 1
			result.AttemptedTo = attempt
			break
		}

		result.MovesExecuted++
		if move.Outcome == engine.PushedBox {
			result.Pushes++
		}
		result.Steps = append(result.Steps, stepInfo(i+1, move))
	}

	endState := sess.Game.Snapshot()
	result.GameState = endState
	result.EndPos = endState.PlayerPos
	result.Complete = endState.Complete
	result.Message = endState.Message
	result.PossibleMoves = sess.Game.PossibleMoves()
	if result.Complete && result.StopReasonCode == "" {
		result.StopReasonCode = StopComplete
	}

	log.WithFields(log.Fields{
		"session":   sessionID,
		"executed":  result.MovesExecuted,
		"requested": result.RequestedMoves,
		"stop":      result.StopReasonCode,
		"end":       result.EndPos.String(),
	}).Debug("bulk move")

	s.persist(sessionID, "bulk move")
	return result, nil
}

// Reset restarts the current level of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.touch(sessionID)
	if err := sess.Game.Reset(); err != nil {
		return nil, err
	}

	s.persist(sessionID, "reset")
	return sess.Game.Snapshot(), nil
}

// LoadLevel switches a session to levelID
func (s *gameServiceImpl) LoadLevel(ctx context.Context, sessionID string, levelID int) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return s.switchLevel(sess, levelID)
}

// NextLevel moves a session to the next catalog level
func (s *gameServiceImpl) NextLevel(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	next, ok := sess.Game.NextLevelID()
	if !ok {
		return nil, ErrNoNextLevel
	}
	return s.switchLevel(sess, next)
}

// PreviousLevel moves a session to the previous catalog level
func (s *gameServiceImpl) PreviousLevel(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	prev, ok := sess.Game.PreviousLevelID()
	if !ok {
		return nil, ErrNoPreviousLevel
	}
	return s.switchLevel(sess, prev)
}

// switchLevel loads levelID into sess. Callers hold the write lock.
func (s *gameServiceImpl) switchLevel(sess *Session, levelID int) (*engine.GameState, error) {
	s.touch(sess.ID)
	if err := sess.Game.LoadLevel(levelID); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"session": sess.ID, "level": levelID}).Info("level loaded")
	s.persist(sess.ID, "level change")
	return sess.Game.Snapshot(), nil
}

// GetGameState retrieves the current game state and records the access
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.touch(sessionID)
	return sess.Game.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return paginateHistory(sess.Game.MoveHistory(), opts), nil
}

// ListLevels returns the level catalog
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*levels.Info, error) {
	return s.levels.List(), nil
}

// GetLevel returns a single level template
func (s *gameServiceImpl) GetLevel(ctx context.Context, levelID int) (*engine.Level, error) {
	return s.levels.Template(levelID)
}

// SaveLevel adds or replaces a level in the catalog
func (s *gameServiceImpl) SaveLevel(ctx context.Context, level *engine.Level) error {
	return s.levels.Save(level)
}

// touch records an access. Callers hold the write lock.
func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.WithError(err).WithField("session", sessionID).Debug("failed to update last access")
	}
}

func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.WithError(err).WithField("session", sessionID).Warnf("failed to persist session after %s", after)
	}
}

func paginateHistory(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

func newSessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.Game.LevelID(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Game.Snapshot(),
	}
	if level := sess.Game.Level(); level != nil {
		info.LevelName = level.Name
	}
	return info
}

func succeeded(move engine.MoveResult) bool {
	return !move.Ignored && move.Outcome != engine.Blocked
}

func resetEvent(game *engine.GameSession) GameEvent {
	ev := GameEvent{
		Type:      "reset",
		Message:   fmt.Sprintf("Level %d reset", game.LevelID()),
		Timestamp: time.Now(),
	}
	if pos, err := game.Grid().LocatePlayer(); err == nil {
		ev.Position = pos
	}
	return ev
}

// moveEvents generates events from a single AttemptMove
func moveEvents(move engine.MoveResult, state *engine.GameState) []GameEvent {
	now := time.Now()
	if move.Ignored {
		return nil
	}

	switch move.Outcome {
	case engine.Blocked:
		return []GameEvent{{
			Type:      "blocked",
			Message:   state.Message,
			Timestamp: now,
			Position:  move.From,
		}}
	case engine.MovedPlayer:
		return []GameEvent{{
			Type:      "move",
			Message:   fmt.Sprintf("Moved %s to %s", move.Direction, move.To),
			Timestamp: now,
			Position:  move.To,
		}}
	}

	events := []GameEvent{{
		Type:      "push",
		Message:   fmt.Sprintf("Pushed box %s to %s", move.Direction, *move.BoxTo),
		Timestamp: now,
		Position:  *move.BoxTo,
	}}
	if move.Complete {
		events = append(events, GameEvent{
			Type:      "complete",
			Message:   state.Message,
			Timestamp: now,
			Position:  move.To,
		})
	}
	return events
}

func stepInfo(idx int, move engine.MoveResult) StepInfo {
	return StepInfo{
		Idx:      idx,
		Dir:      move.Direction.String(),
		Outcome:  move.Outcome.String(),
		From:     move.From,
		To:       move.To,
		BoxFrom:  move.BoxFrom,
		BoxTo:    move.BoxTo,
		Complete: move.Complete,
	}
}

// attemptInfo explains what stopped a blocked move
func attemptInfo(g *engine.Grid, move engine.MoveResult) *AttemptInfo {
	target := move.From.Add(move.Direction)
	cell := g.CellAt(target)

	info := &AttemptInfo{
		Row:      target.Row,
		Col:      target.Col,
		Cell:     cell.String(),
		CellType: cell.Name(),
		Passable: cell.IsTraversable(),
	}
	switch {
	case cell == engine.OutOfBounds:
		info.Reason = StopBlockedBoundary
	case cell.IsBox():
		info.Reason = StopBlockedBox
	default:
		info.Reason = StopBlockedWall
	}
	return info
}
