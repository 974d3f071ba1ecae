// Package service provides the business logic layer for the Sokoban server.
//
// The service package implements:
//   - Multi-session game management
//   - Move processing with per-step traces and stop reasons
//   - Level navigation (load, next, previous)
//   - Move history pagination
//   - Level catalog access for authoring tools
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelCatalog supplies level templates and accepts new levels.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine.GameSession; the service
// serializes commands so one move is resolved to completion before the next.
// Direction strings are parsed here, so an invalid direction is reported as
// engine.ErrInvalidDirection and never reaches the engine.
//
// Usage:
//
//	catalog, _ := levels.NewCatalog("levels")
//	sessionMgr := session.NewManager(catalog)
//	gameService := service.NewGameService(sessionMgr, catalog)
//
//	info, err := gameService.CreateSession(ctx, "1")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "left", false)
package service
