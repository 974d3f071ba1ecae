// Package engine provides the puzzle state machine for the Sokoban server.
//
// The engine package implements:
//   - The cell model (Symbol) and its terrain/occupancy composition rules
//   - Bounds-aware grid storage over a mutable play grid and its template
//   - The movement resolver for player moves and box pushes
//   - The win detector
//   - GameSession, the per-attempt state machine (Playing -> Complete)
//
// Core Types:
//
// Grid pairs the immutable level template with the mutable play cells. The
// terrain class of a coordinate (wall, floor or goal) is always read back from
// the template, never inferred from what currently occupies the cell.
// GameSession owns a Grid together with the move counter and completion flag
// and is the single entry point adapters call per directional command.
//
// Usage:
//
//	sess := engine.NewGameSession(catalog)
//	if err := sess.LoadLevel(1); err != nil {
//		log.Fatal(err)
//	}
//
//	result := sess.AttemptMove(engine.Right)
//	if result.Complete {
//		fmt.Println("solved in", result.Moves, "moves")
//	}
//
// Rules:
//
// The player moves one cell per command in one of four directions and may push
// a single box into a free floor or goal cell. Walls, other boxes and the grid
// edge block. Lookups outside the grid return OutOfBounds, which is treated as
// impassable everywhere. The level is complete when no goal is left uncovered
// by a box; once complete, further commands are ignored until Reset or
// LoadLevel.
package engine
