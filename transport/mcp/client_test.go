package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
	"github.com/wricardo/sokoban-game/game/service"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func expectContains(t *testing.T, text string, fields ...string) {
	t.Helper()
	for _, field := range fields {
		if !strings.Contains(text, field) {
			t.Errorf("Expected %q in output, got: %s", field, text)
		}
	}
}

func testState() *engine.GameState {
	return &engine.GameState{
		LevelID:   1,
		LevelName: "First Steps",
		Grid:      []string{"#######", "#@ $ .#", "#######"},
		Width:     7,
		Height:    3,
		PlayerPos: engine.Position{Row: 1, Col: 1},
		Goals:     1,
		State:     engine.Playing,
		Message:   "Level 1: First Steps",
		HasNext:   true,
		CurrentMoves: []engine.MoveHistoryEntry{
			{Action: "left", Outcome: engine.Blocked},
		},
		CurrentMovesCount: 1,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testState())
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var state engine.GameState
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/a1b2/state", nil, &state); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if state.LevelName != "First Steps" {
		t.Errorf("Expected level name First Steps, got %s", state.LevelName)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "Plain error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			want: "API error: 500",
		},
		{
			name: "JSON error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
			},
			want: "session not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_handleCreateSession(t *testing.T) {
	var (
		mu      sync.Mutex
		gotBody map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&gotBody)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:        "a1b2",
			LevelID:   3,
			LevelName: "Back Door",
			GameState: testState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callTool("create_session", map[string]interface{}{"level": float64(3)}))
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}

	expectContains(t, resultText(t, result), "a1b2", "Level: 3 (Back Door)")
	mu.Lock()
	defer mu.Unlock()
	if gotBody["level"] != float64(3) {
		t.Errorf("Expected level 3 in request body, got %v", gotBody["level"])
	}
}

func TestClient_handleMove(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/a1b2/move" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["direction"] != "right" {
			t.Errorf("Expected direction right, got %v", body["direction"])
		}

		state := testState()
		state.Grid = []string{"#######", "# @$ .#", "#######"}
		state.PlayerPos = engine.Position{Row: 1, Col: 2}
		state.Moves = 1
		json.NewEncoder(w).Encode(service.MoveResult{
			Success:   true,
			Outcome:   "moved",
			GameState: state,
			Step:      &service.StepInfo{Idx: 1, Dir: "right", Outcome: "moved", From: engine.Position{Row: 1, Col: 1}, To: engine.Position{Row: 1, Col: 2}},
			Events:    []service.GameEvent{{Type: "move", Message: "Moved right"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleMove(context.Background(), callTool("move", map[string]interface{}{
		"session_id": "a1b2",
		"direction":  "right",
		"intent":     "walk up to the box",
	}))
	if err != nil {
		t.Fatalf("handleMove failed: %v", err)
	}

	expectContains(t, resultText(t, result),
		"✓ Move successful",
		"Step: right moved (1,1)→(1,2)",
		"- move: Moved right",
		"Moves: 1",
	)
}

func TestClient_handleMove_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid direction: \"diagonal\""})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleMove(context.Background(), callTool("move", map[string]interface{}{
		"session_id": "a1b2",
		"direction":  "diagonal",
	}))
	if err != nil {
		t.Fatalf("Tool errors should be reported in the result, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result")
	}
}

func TestClient_handleLevelNavigation(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		state := testState()
		state.LevelID = 2
		state.LevelName = "Winding Room"
		json.NewEncoder(w).Encode(state)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	args := map[string]interface{}{"session_id": "a1b2"}

	result, err := client.handleNextLevel(ctx, callTool("next_level", args))
	if err != nil {
		t.Fatalf("handleNextLevel failed: %v", err)
	}
	expectContains(t, resultText(t, result), "Now playing level 2: Winding Room")

	if _, err := client.handlePreviousLevel(ctx, callTool("previous_level", args)); err != nil {
		t.Fatalf("handlePreviousLevel failed: %v", err)
	}
	if _, err := client.handleLoadLevel(ctx, callTool("load_level", map[string]interface{}{"session_id": "a1b2", "level": float64(2)})); err != nil {
		t.Fatalf("handleLoadLevel failed: %v", err)
	}

	want := []string{"/api/sessions/a1b2/next", "/api/sessions/a1b2/previous", "/api/sessions/a1b2/level"}
	mu.Lock()
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("Expected paths %v, got %v", want, paths)
	}
	mu.Unlock()

	result, _ = client.handleLoadLevel(ctx, callTool("load_level", args))
	if !result.IsError {
		t.Error("Expected an error result when level is missing")
	}
}

func TestClient_handleListLevels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]levels.Info{
			{ID: 1, Name: "First Steps", Width: 8, Height: 9, Boxes: 3, Goals: 3},
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleListLevels(context.Background(), callTool("list_levels", nil))
	if err != nil {
		t.Fatalf("handleListLevels failed: %v", err)
	}
	expectContains(t, resultText(t, result), "1. First Steps", "Grid: 8x9, Boxes: 3, Goals: 3")
}

func TestClient_handleDescribeCell(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testState())
	}))
	defer server.Close()

	client := NewClient(server.URL)

	tests := []struct {
		name     string
		row, col float64
		want     []string
	}{
		{"Box", 1, 3, []string{"Type: box", "only by pushing the box"}},
		{"Goal", 1, 5, []string{"Type: goal", "Enterable: yes"}},
		{"Wall", 0, 0, []string{"Type: wall", "Enterable: no"}},
		{"Outside", 5, 5, []string{"outside the level"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.handleDescribeCell(context.Background(), callTool("describe_cell", map[string]interface{}{
				"session_id": "a1b2",
				"row":        tt.row,
				"col":        tt.col,
			}))
			if err != nil {
				t.Fatalf("handleDescribeCell failed: %v", err)
			}
			expectContains(t, resultText(t, result), tt.want...)
		})
	}
}

func TestFormatGameState(t *testing.T) {
	result := formatGameState(testState())

	expectContains(t, result,
		"Level 1: First Steps",
		"Player: (1,1)",
		"Boxes on goals: 0/1",
		" 1 |#@ $ .#|",
		"Possible moves: right",
		"Message: Level 1: First Steps",
	)
	if strings.Contains(result, "LEVEL COMPLETE") {
		t.Error("Unsolved level reported as complete")
	}
}

func TestFormatGameState_Complete(t *testing.T) {
	state := testState()
	state.Grid = []string{"#######", "#   @*#", "#######"}
	state.Complete = true
	state.State = engine.Complete
	state.BoxesOnGoal = 1

	result := formatGameState(state)

	expectContains(t, result, "🎉 LEVEL COMPLETE!", "next_level")
	if strings.Contains(result, "Possible moves") {
		t.Error("Completed level should not list possible moves")
	}
}

func TestFormatMoveResult_Failed(t *testing.T) {
	result := formatMoveResult(&service.MoveResult{
		Success:     false,
		Outcome:     "blocked",
		GameState:   testState(),
		AttemptedTo: &service.AttemptInfo{Row: 1, Col: 0, Cell: "#", CellType: "wall", Reason: service.StopBlockedWall},
	})

	expectContains(t, result, "✗ Move failed", "Blocked: attempted (1,0)", service.StopBlockedWall)
}

func TestFormatBulkMoveResult(t *testing.T) {
	result := formatBulkMoveResult("a1b2", &service.BulkMoveResult{
		MovesExecuted:  2,
		RequestedMoves: 60,
		Truncated:      true,
		Limit:          engine.MaxBulkMoves,
		StoppedReason:  "Box blocked by wall",
		StopReasonCode: service.StopBlockedBox,
		StoppedOnMove:  3,
		Steps: []service.StepInfo{
			{Idx: 1, Dir: "right", Outcome: "moved"},
			{Idx: 2, Dir: "right", Outcome: "pushed"},
		},
		GameState: testState(),
	})

	expectContains(t, result,
		"Session: a1b2 • Level: First Steps",
		"Executed 2/60 moves",
		"truncated to 50 moves",
		"Stopped on move 3",
		"2. right pushed",
	)
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	expectContains(t, resultText(t, result),
		"Sokoban - Complete Instructions",
		"GAME OBJECTIVE:",
		"GRID LEGEND:",
		"MOVEMENT RULES:",
		"STRATEGY TIPS:",
		"VICTORY:",
	)
}
