// Package api serves the Sokoban game over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"level": 3} (defaults to the first level)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Play:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/reset - Restart the current level
//   - GET /api/sessions/{id}/history - Paginated move history (?page=&limit=&order=)
//
// Levels:
//   - POST /api/sessions/{id}/level - {"level": 2}
//   - POST /api/sessions/{id}/next
//   - POST /api/sessions/{id}/previous
//   - GET /api/levels - Catalog listing
//   - GET /api/levels/{id} - Level template
//   - POST /api/levels - Save a level template
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket state push, see package websocket
//
// Errors are JSON objects of the form {"error": "message"}. Unknown sessions
// and levels map to 404, bad input (unknown direction, no next level, invalid
// level template) to 400, everything else to 500.
//
// Every request is tagged with an X-Request-ID header and logged through
// logrus at debug level.
package api

// Move responses carry:
//   - step: {idx, dir, outcome, from{row,col}, to{row,col}, box_from, box_to, complete}
//   - attempted_to: {row, col, cell, cell_type, passable, reason} when blocked
//
// Bulk move responses carry:
//   - requested_moves, moves_executed, pushes
//   - stopped_reason, stop_reason_code (blocked_wall|blocked_boundary|blocked_box|invalid_direction|complete),
//     stopped_on_move (1-based), truncated, limit
//   - steps, attempted_to, start_pos, end_pos, complete, possible_moves
