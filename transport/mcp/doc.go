// Package mcp exposes the Sokoban REST API as Model Context Protocol tools.
//
// Client is a thin proxy: every tool call becomes a REST request against a
// running server, and the JSON response is rendered as text for the agent.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, move_history
//   - load_level, next_level, previous_level, list_levels
//   - game_instructions, describe_cell
//
// The move and bulk_move tools accept an "intent" argument that is not sent
// to the server; it gives the agent a place to state its plan.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// stdio transport
//	server.ServeStdio(client.GetMCPServer())
//
//	// or one JSON-RPC message per HTTP request
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
