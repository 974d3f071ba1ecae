package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/service"
)

const instructions = `Sokoban - Complete Instructions

GAME OBJECTIVE:
Push every box onto a goal square. The level is solved the moment every goal
holds a box. Standing on a goal yourself does not count.

GRID LEGEND:
• # - Wall (impassable, never moves)
• (space) - Floor
• . - Goal
• $ - Box
• * - Box on a goal
• @ - Player
• + - Player standing on a goal

Rows are numbered from 0 at the top, columns from 0 at the left. Rows may have
different lengths; anything past the end of a row is outside the level.

MOVEMENT RULES:
• up, down, left, right move the player one cell
• Walking into floor or a goal moves the player
• Walking into a box pushes it one cell, if the cell behind it is floor or a goal
• A box cannot be pushed into a wall, into another box, or off the grid
• Boxes can never be pulled, so a box pushed into a corner is stuck for good
• Blocked moves change nothing and do not count as moves

MOVE COUNTER:
• Every successful move (walk or push) counts as one move
• Pushes are counted separately for information only

LEVELS:
• list_levels shows the catalog
• next_level / previous_level move through it in order
• reset_game restarts the current level; the cumulative history is kept

STRATEGY TIPS:
1. Before pushing, check the cell behind the box. If it is a corner that is not a goal, do not push.
2. A box against a wall can only travel along that wall.
3. Two boxes side by side against a wall are usually stuck.
4. Plan which box goes to which goal before you start.
5. Use describe_cell when you are unsure whether a cell is '$' or '*'.
6. bulk_move stops at the first blocked move, so it is safe to try a route.

VICTORY:
• The state switches to "complete" and further moves are ignored
• Call next_level to keep playing

Good luck, and mind the corners!`

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %d (%s)\nCreated: %s\n\n%s",
		info.ID, info.LevelID, info.LevelName,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(info.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Level %d: %s | Player: (%d,%d) | Moves: %d | Pushes: %d | Boxes on goals: %d/%d\n\n",
		state.LevelID, state.LevelName,
		state.PlayerPos.Row, state.PlayerPos.Col,
		state.Moves, state.Pushes, state.BoxesOnGoal, state.Goals)

	b.WriteString(engine.FormatRows(state.Grid))

	if moves := possibleMoves(state); len(moves) > 0 {
		fmt.Fprintf(&b, "\nPossible moves: %s", strings.Join(moves, ","))
	}

	if state.Complete {
		b.WriteString("\n🎉 LEVEL COMPLETE!")
		if state.HasNext {
			b.WriteString(" Use next_level to continue.")
		}
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	if s := result.Step; s != nil {
		fmt.Fprintf(&b, "Step: %s %s (%d,%d)→(%d,%d)", s.Dir, s.Outcome, s.From.Row, s.From.Col, s.To.Row, s.To.Col)
		if s.BoxTo != nil {
			fmt.Fprintf(&b, " box→(%d,%d)", s.BoxTo.Row, s.BoxTo.Col)
		}
		b.WriteString("\n")
	}

	if a := result.AttemptedTo; a != nil {
		fmt.Fprintf(&b, "Blocked: attempted (%d,%d) cell=%q %s (%s)\n", a.Row, a.Col, a.Cell, a.CellType, a.Reason)
	}

	writeEvents(&b, result.Events)

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	levelName := ""
	if result.GameState != nil {
		levelName = result.GameState.LevelName
	}
	fmt.Fprintf(&b, "Session: %s • Level: %s\n", sessionID, levelName)

	fmt.Fprintf(&b, "Executed %d/%d moves (%d pushes)\n", result.MovesExecuted, result.RequestedMoves, result.Pushes)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s [%s]\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s %s (%d,%d)→(%d,%d)\n", s.Idx, s.Dir, s.Outcome, s.From.Row, s.From.Col, s.To.Row, s.To.Col)
		}
	}

	if a := result.AttemptedTo; a != nil {
		fmt.Fprintf(&b, "\nBlocked at (%d,%d) cell=%q %s\n", a.Row, a.Col, a.Cell, a.CellType)
	}

	writeEvents(&b, result.Events)

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func writeEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
	}
}

// possibleMoves lists the unblocked directions for the state's grid
func possibleMoves(state *engine.GameState) []string {
	if state == nil || state.Complete || len(state.Grid) == 0 {
		return nil
	}
	g, err := engine.NewGridFromLayout(state.Grid)
	if err != nil {
		return nil
	}
	var moves []string
	for _, dir := range engine.Directions {
		if engine.CanMove(g, dir) {
			moves = append(moves, dir.String())
		}
	}
	return moves
}

// describeCell explains the symbol at pos
func describeCell(state *engine.GameState, pos engine.Position) string {
	g, err := engine.NewGridFromLayout(state.Grid)
	if err != nil {
		return fmt.Sprintf("Grid could not be read: %v", err)
	}

	cell := g.CellAt(pos)
	if cell == engine.OutOfBounds {
		return fmt.Sprintf("Cell (%d,%d) is outside the level. Grid has %d rows; row lengths vary up to %d columns.",
			pos.Row, pos.Col, g.Height(), g.Width())
	}

	var description string
	switch cell {
	case engine.Wall:
		description = "Wall - impassable, never moves"
	case engine.Floor:
		description = "Floor - the player can walk here and boxes can be pushed here"
	case engine.Goal:
		description = "Empty goal - push a box here"
	case engine.Box:
		description = "Box not on a goal - push it onto one"
	case engine.BoxOnGoal:
		description = "Box on a goal - already placed; pushing it off uncovers the goal"
	case engine.Player:
		description = "The player"
	case engine.PlayerOnGoal:
		description = "The player standing on a goal (the goal is still uncovered)"
	}

	passable := "no"
	if cell.IsTraversable() {
		passable = "yes"
	} else if cell.IsBox() {
		passable = "only by pushing the box"
	}

	return fmt.Sprintf(`Cell at (%d,%d):
━━━━━━━━━━━━━━━━━━━━━━━━
Character: %q
Type: %s
Terrain: %s
Enterable: %s
Description: %s`,
		pos.Row, pos.Col, cell.String(), cell.Name(), cell.Terrain().Name(), passable, description)
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) — Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		fmt.Fprintf(&b, "%d. %s %s level=%d %s\n",
			move.MoveNumber, move.Action, move.Outcome, move.LevelID, statusMark(move.Success))
	}

	return b.String()
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return "Current Attempt: unavailable"
	}
	header := fmt.Sprintf("Current Attempt (level %d) — Entries: %d\n\n", state.LevelID, state.CurrentMovesCount)
	if len(state.CurrentMoves) == 0 {
		return header + "(no moves on this attempt)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, move := range state.CurrentMoves {
		fmt.Fprintf(&b, "%d. %s %s %s\n", i+1, move.Action, move.Outcome, statusMark(move.Success))
	}
	return b.String()
}

func statusMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
