package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/sokoban-game/game/levels"
	"github.com/wricardo/sokoban-game/game/service"
	"github.com/wricardo/sokoban-game/game/session"
	"github.com/wricardo/sokoban-game/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedAppName := "Sokoban Game Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestCommandDefaults(t *testing.T) {
	cmd := newCommand()

	if cmd.Name != "sokoban" {
		t.Errorf("Expected command name sokoban, got %s", cmd.Name)
	}

	want := map[string]bool{"server": false, "mcp": false, "play": false}
	for _, sub := range cmd.Commands {
		if _, ok := want[sub.Name]; ok {
			want[sub.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected subcommand %s", name)
		}
	}

	flags := map[string]bool{}
	for _, f := range cmd.Flags {
		for _, name := range f.Names() {
			flags[name] = true
		}
	}
	for _, name := range []string{"host", "port", "levels-dir", "sessions-dir", "redis-url", "level", "debug", "log-json", "ngrok", "ngrok-auth", "ngrok-domain"} {
		if !flags[name] {
			t.Errorf("Expected flag --%s", name)
		}
	}
}

func TestOptionsAddr(t *testing.T) {
	opts := options{Host: "localhost", Port: 8080}
	if got := opts.addr(); got != "localhost:8080" {
		t.Errorf("Expected localhost:8080, got %s", got)
	}
}

func TestInitializeServices(t *testing.T) {
	opts := options{SessionsDir: t.TempDir()}

	gameService, manager, err := initializeServices(opts, true)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if gameService == nil || manager == nil {
		t.Fatal("Expected game service and manager to be initialized")
	}
	if manager.Persistence() == nil {
		t.Error("Expected file persistence to be configured")
	}

	levelList, err := gameService.ListLevels(context.Background())
	if err != nil {
		t.Fatalf("ListLevels failed: %v", err)
	}
	if len(levelList) == 0 {
		t.Error("Expected built-in levels")
	}
}

func TestInitializeServices_InMemory(t *testing.T) {
	_, manager, err := initializeServices(options{SessionsDir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if manager.Persistence() != nil {
		t.Error("Expected no persistence when persist is false")
	}
}

func TestInitializeServices_InvalidLevelsDir(t *testing.T) {
	_, _, err := initializeServices(options{LevelsDir: "/non/existent/path"}, false)
	if err == nil {
		t.Error("Expected error for non-existent levels directory")
	}
}

func TestInitializeServices_RestoresSessions(t *testing.T) {
	opts := options{SessionsDir: t.TempDir()}
	ctx := context.Background()

	gameService, _, err := initializeServices(opts, true)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	info, err := gameService.CreateSession(ctx, "1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := gameService.Move(ctx, info.ID, "up", false); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	restarted, _, err := initializeServices(opts, true)
	if err != nil {
		t.Fatalf("Failed to reinitialize services: %v", err)
	}
	state, err := restarted.GetGameState(ctx, info.ID)
	if err != nil {
		t.Fatalf("Session should survive a restart: %v", err)
	}
	if state.Moves != 1 {
		t.Errorf("Expected 1 move after restart, got %d", state.Moves)
	}
}

func TestPruneOrphanedSessions(t *testing.T) {
	dir := t.TempDir()
	gameService, manager, err := initializeServices(options{SessionsDir: dir}, true)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx := context.Background()
	kept, err := gameService.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	orphan, err := gameService.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if pruned := pruneOrphanedSessions(manager); pruned != 0 {
		t.Errorf("Expected nothing to prune, got %d", pruned)
	}

	if err := os.Remove(filepath.Join(dir, orphan.ID+".json")); err != nil {
		t.Fatalf("Failed to remove session file: %v", err)
	}

	if pruned := pruneOrphanedSessions(manager); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session left, got %d", manager.Count())
	}
	if _, err := manager.Get(kept.ID); err != nil {
		t.Errorf("Kept session should still be available: %v", err)
	}
}

// downPersistence stores nothing while down is set
type downPersistence struct {
	*session.FilePersistence
	down bool
}

func (p *downPersistence) Save(sess *service.Session) error {
	if p.down {
		return errors.New("storage unavailable")
	}
	return p.FilePersistence.Save(sess)
}

func TestPruneOrphanedSessions_KeepsUnsavedSessions(t *testing.T) {
	catalog, err := levels.NewCatalog("")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	files, err := session.NewFilePersistence(t.TempDir(), catalog)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	storage := &downPersistence{FilePersistence: files, down: true}
	manager := session.NewManagerWithPersistence(catalog, storage)

	sess, err := manager.Create("", 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if pruned := pruneOrphanedSessions(manager); pruned != 0 {
		t.Errorf("Session that failed to save should not be pruned, pruned %d", pruned)
	}
	if _, err := manager.Get(sess.ID); err != nil {
		t.Fatalf("Session should still be live: %v", err)
	}

	storage.down = false
	if err := manager.Save(sess.ID); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Delete(sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if pruned := pruneOrphanedSessions(manager); pruned != 1 {
		t.Errorf("Expected the saved then removed session to be pruned, got %d", pruned)
	}
}

func TestPruneOrphanedSessions_NoPersistence(t *testing.T) {
	_, manager, err := initializeServices(options{}, false)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if pruned := pruneOrphanedSessions(manager); pruned != 0 {
		t.Errorf("Expected 0, got %d", pruned)
	}
}

func newPlayService(t *testing.T) service.GameService {
	t.Helper()
	gameService, _, err := initializeServices(options{}, false)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	return gameService
}

func TestRunPlay_SolvesFirstLevel(t *testing.T) {
	// up, right x3, down x2 puts the first box on a goal, then the
	// second box goes left and down twice
	script := strings.Join([]string{
		"w", "d", "d", "d", "s", "s",
		"w", "a", "w", "a", "s", "s",
		"n", "q",
	}, "\n")

	var out bytes.Buffer
	err := runPlay(context.Background(), newPlayService(t), "1", strings.NewReader(script), &out)
	if err != nil {
		t.Fatalf("runPlay failed: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Level 1: First Steps",
		"Moves: 12  Pushes: 3  Boxes on goals: 2/2",
		"Level complete!",
		"Level 2: Winding Room",
		"Bye!",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}
}

func TestRunPlay_Commands(t *testing.T) {
	script := strings.Join([]string{
		"",
		"help",
		"sideways",
		"right",
		"p",
		"r",
	}, "\n")

	var out bytes.Buffer
	err := runPlay(context.Background(), newPlayService(t), "", strings.NewReader(script), &out)
	if err != nil {
		t.Fatalf("runPlay failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, playHelp) {
		t.Error("Expected help text")
	}
	if strings.Count(output, "Error:") != 2 {
		t.Errorf("Expected errors for the bad direction and previous on level 1\n%s", output)
	}
	if !strings.Contains(output, "Moves: 1  Pushes: 0") {
		t.Errorf("Expected one move after right\n%s", output)
	}
	if !strings.HasSuffix(strings.TrimSpace(output), ">") {
		t.Errorf("Expected prompt at end of input\n%s", output)
	}
}

func TestMCPHandler(t *testing.T) {
	handler := newMCPHandler(mcp.NewClient("http://localhost:0"))

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("lists tools", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Invalid JSON response: %v", err)
		}
		if !strings.Contains(w.Body.String(), "bulk_move") {
			t.Errorf("Expected bulk_move tool in %s", w.Body.String())
		}
	})
}

// failingBody errors on read and records Close
type failingBody struct {
	closed bool
}

func (b *failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (b *failingBody) Close() error             { b.closed = true; return nil }

func TestMCPHandler_ClosesBodyOnReadError(t *testing.T) {
	handler := newMCPHandler(mcp.NewClient("http://localhost:0"))

	body := &failingBody{}
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Body = body

	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if !body.closed {
		t.Error("Expected request body to be closed")
	}
}

func TestSessionCleanupRoutine_StopsOnCancel(t *testing.T) {
	manager := session.NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, manager)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop")
	}
}
