package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wricardo/sokoban-game/game/engine"
)

// newMiniRedisPersistence backs RedisPersistence with an in-process server
func newMiniRedisPersistence(t *testing.T, opts *RedisOptions) (*RedisPersistence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	rp := NewRedisPersistenceWithClient(client, createTestCatalog(t), opts)
	t.Cleanup(func() { rp.Close() })
	return rp, mr
}

func TestRedisPersistence(t *testing.T) {
	rp, _ := newMiniRedisPersistence(t, nil)
	runPersistenceSuite(t, rp, rp.catalog)
}

func TestRedisPersistence_KeyLayout(t *testing.T) {
	rp, mr := newMiniRedisPersistence(t, &RedisOptions{Prefix: "test"})

	if err := rp.Save(newTestSession(t, rp.catalog, "keys1", 1)); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	if !mr.Exists("test:session:keys1") {
		t.Errorf("Expected key test:session:keys1, have %v", mr.Keys())
	}
	if mr.Exists("test:session:keys1:lock") {
		t.Error("Save should release its lock")
	}
}

func TestRedisPersistence_ListAllSkipsLocks(t *testing.T) {
	rp, mr := newMiniRedisPersistence(t, nil)

	if err := rp.Save(newTestSession(t, rp.catalog, "list1", 1)); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	// a lock held by another instance
	if err := mr.Set(rp.key("list2")+":lock", "token"); err != nil {
		t.Fatalf("Failed to set lock key: %v", err)
	}

	ids, err := rp.ListAll()
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != "list1" {
		t.Errorf("Expected [list1], got %v", ids)
	}
}

func TestRedisPersistence_SaveWaitsForLock(t *testing.T) {
	rp, mr := newMiniRedisPersistence(t, &RedisOptions{Timeout: 200 * time.Millisecond})
	session := newTestSession(t, rp.catalog, "locked1", 1)

	if err := mr.Set(rp.key("locked1")+":lock", "other-instance"); err != nil {
		t.Fatalf("Failed to set lock key: %v", err)
	}

	if err := rp.Save(session); err == nil {
		t.Error("Expected Save to fail while another instance holds the lock")
	}
	if rp.Exists("locked1") {
		t.Error("Session should not be written without the lock")
	}

	mr.Del(rp.key("locked1") + ":lock")
	if err := rp.Save(session); err != nil {
		t.Fatalf("Save after lock release failed: %v", err)
	}
}

func TestRedisPersistence_TTL(t *testing.T) {
	rp, mr := newMiniRedisPersistence(t, &RedisOptions{TTL: time.Minute})

	if err := rp.Save(newTestSession(t, rp.catalog, "ttl1", 1)); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	if ttl := mr.TTL(rp.key("ttl1")); ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL within a minute, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if rp.Exists("ttl1") {
		t.Error("Session should expire after its TTL")
	}
	if _, err := rp.Load("ttl1"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound after expiry, got %v", err)
	}
}

func TestRedisPersistence_ServerDown(t *testing.T) {
	rp, mr := newMiniRedisPersistence(t, &RedisOptions{Timeout: 200 * time.Millisecond})
	mr.Close()

	if rp.Exists("any") {
		t.Error("Exists should report false when redis is unreachable")
	}
	if _, err := rp.Load("any"); err == nil || err == ErrSessionNotFound {
		t.Errorf("Expected a connection error, got %v", err)
	}
}

func TestRedisPersistence_ManagerRoundTrip(t *testing.T) {
	rp, _ := newMiniRedisPersistence(t, nil)

	manager := NewManagerWithPersistence(rp.catalog, rp)
	created, err := manager.Create("round1", 1)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	created.Game.AttemptMove(engine.Up)
	if err := manager.Save("round1"); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	restarted := NewManagerWithPersistence(rp.catalog, rp)
	if err := restarted.LoadPersistedSessions(); err != nil {
		t.Fatalf("Failed to load persisted sessions: %v", err)
	}
	loaded, err := restarted.Get("round1")
	if err != nil {
		t.Fatalf("Session should survive a restart: %v", err)
	}
	if loaded.Game.Moves() != created.Game.Moves() {
		t.Errorf("Expected %d moves, got %d", created.Game.Moves(), loaded.Game.Moves())
	}
}

func TestNewRedisPersistence(t *testing.T) {
	mr := miniredis.RunT(t)

	rp, err := NewRedisPersistence(fmt.Sprintf("redis://%s/0", mr.Addr()), createTestCatalog(t), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer rp.Close()

	if rp.opts.Prefix != defaultRedisPrefix {
		t.Errorf("Expected default prefix %s, got %s", defaultRedisPrefix, rp.opts.Prefix)
	}
}

func TestNewRedisPersistence_InvalidURL(t *testing.T) {
	if _, err := NewRedisPersistence("not-a-url", createTestCatalog(t), nil); err == nil {
		t.Error("Expected error for invalid redis url")
	}
}

// TestRedisPersistence_Live runs the suite against a real server:
// REDIS_URL=redis://localhost:6379/15 go test ./game/session/
func TestRedisPersistence_Live(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	prefix := fmt.Sprintf("sokoban-test-%d", time.Now().UnixNano())
	rp, err := NewRedisPersistence(url, createTestCatalog(t), &RedisOptions{Prefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		iter := rp.client.Scan(ctx, 0, prefix+":*", 100).Iterator()
		for iter.Next(ctx) {
			rp.client.Del(ctx, iter.Val())
		}
		rp.Close()
	})

	runPersistenceSuite(t, rp, rp.catalog)
}
