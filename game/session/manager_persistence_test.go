package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/service"
)

func TestManagerWithPersistence(t *testing.T) {
	catalog := createTestCatalog(t)
	persistence, err := NewFilePersistence(t.TempDir(), catalog)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	manager := NewManagerWithPersistence(catalog, persistence)

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", 2)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(catalog, persistence)

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}
		if session.Game.LevelID() != 2 {
			t.Errorf("Expected level 2, got %d", session.Game.LevelID())
		}

		again, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from memory: %v", err)
		}
		if again != session {
			t.Error("Session should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		// level 2 starts with the player at the bottom, right is open floor
		if result := session.Game.AttemptMove(engine.Right); result.Outcome == engine.Blocked {
			t.Fatalf("Expected right to be open on level 2")
		}
		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager3 := NewManagerWithPersistence(catalog, persistence)
		loaded, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session after manual save: %v", err)
		}
		if loaded.Game.Moves() != 1 {
			t.Errorf("Expected 1 move after reload, got %d", loaded.Game.Moves())
		}
		if !loaded.Game.Grid().Equal(session.Game.Grid()) {
			t.Error("Grid changes should be persisted")
		}
	})

	t.Run("Generated IDs Avoid Persisted Sessions", func(t *testing.T) {
		session, err := manager.Create("", 1)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID == "auto1" {
			t.Error("Generated ID collided with persisted session")
		}
	})

	t.Run("Load All Persisted Sessions", func(t *testing.T) {
		manager4 := NewManagerWithPersistence(catalog, persistence)
		if err := manager4.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}
		if manager4.Count() != manager.Count() {
			t.Errorf("Expected %d sessions, got %d", manager.Count(), manager4.Count())
		}
	})

	t.Run("Save All Sessions", func(t *testing.T) {
		for _, s := range manager.List() {
			s.Game.AttemptMove(engine.Up)
		}
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("Failed to save all sessions: %v", err)
		}
		for _, s := range manager.List() {
			loaded, err := persistence.Load(s.ID)
			if err != nil {
				t.Fatalf("Failed to load %s: %v", s.ID, err)
			}
			if loaded.Game.Moves() != s.Game.Moves() {
				t.Errorf("Session %s: expected %d moves, got %d", s.ID, s.Game.Moves(), loaded.Game.Moves())
			}
		}
	})

	t.Run("Cleanup Keeps Persisted Copy", func(t *testing.T) {
		removed := manager.CleanupExpiredSessions(0)
		if removed == 0 {
			t.Fatal("Expected sessions to be evicted")
		}
		if _, err := manager.Get("auto1"); err != nil {
			t.Errorf("Evicted session should reload from persistence: %v", err)
		}
	})

	t.Run("Delete Removes Persisted Session", func(t *testing.T) {
		if err := manager.Delete("auto1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("auto1") {
			t.Error("Session file should be deleted")
		}
		if _, err := manager.Get("auto1"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManagerWithPersistence_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	catalog := createTestCatalog(t)
	persistence, err := NewFilePersistence(dir, catalog)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	manager := NewManagerWithPersistence(catalog, persistence)
	if _, err := manager.Create("good", 1); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0644)

	fresh := NewManagerWithPersistence(catalog, persistence)
	if err := fresh.LoadPersistedSessions(); err != nil {
		t.Fatalf("LoadPersistedSessions should skip broken files: %v", err)
	}
	if fresh.Count() != 1 {
		t.Errorf("Expected 1 loaded session, got %d", fresh.Count())
	}
}

// flakyPersistence fails every Save while down is set
type flakyPersistence struct {
	*FilePersistence
	down bool
}

func (p *flakyPersistence) Save(session *service.Session) error {
	if p.down {
		return errors.New("storage unavailable")
	}
	return p.FilePersistence.Save(session)
}

func TestManagerWithPersistence_PendingSave(t *testing.T) {
	catalog := createTestCatalog(t)
	files, err := NewFilePersistence(t.TempDir(), catalog)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	storage := &flakyPersistence{FilePersistence: files, down: true}
	manager := NewManagerWithPersistence(catalog, storage)

	session, err := manager.Create("flaky1", 1)
	if err != nil {
		t.Fatalf("Create should succeed when saving fails: %v", err)
	}
	if !manager.PendingSave(session.ID) {
		t.Error("Session should be pending after a failed save")
	}
	if storage.Exists(session.ID) {
		t.Error("Session should not be stored yet")
	}

	if err := manager.Save(session.ID); err == nil {
		t.Error("Expected Save to fail while storage is down")
	}
	if !manager.PendingSave("FLAKY1") {
		t.Error("Session should stay pending, lookup is case-insensitive")
	}

	storage.down = false
	if err := manager.Save(session.ID); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if manager.PendingSave(session.ID) {
		t.Error("Successful save should clear the pending flag")
	}
	if !storage.Exists(session.ID) {
		t.Error("Session should be stored after a successful save")
	}

	storage.down = true
	if err := manager.SaveAllSessions(); err == nil {
		t.Error("Expected SaveAllSessions to report the failure")
	}
	if !manager.PendingSave(session.ID) {
		t.Error("Failed SaveAllSessions should mark the session pending")
	}

	if err := manager.DeleteFromMemory(session.ID); err != nil {
		t.Fatalf("DeleteFromMemory failed: %v", err)
	}
	if manager.PendingSave(session.ID) {
		t.Error("Removed sessions should not stay pending")
	}
}
