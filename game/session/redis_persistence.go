package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/service"
)

const (
	defaultRedisPrefix  = "sokoban"
	defaultRedisTimeout = 3 * time.Second

	sessionKeyFmt = "%s:session:%s"
)

// RedisOptions configures RedisPersistence
type RedisOptions struct {
	// Key prefix, "sokoban" when empty
	Prefix string

	// TTL applied on every save. Zero keeps sessions forever.
	TTL time.Duration

	// Timeout for each Redis round trip
	Timeout time.Duration
}

// RedisPersistence implements SessionPersistence on top of Redis. Writes take
// a per-session redsync lock so several server instances can share one store.
type RedisPersistence struct {
	client  *redis.Client
	locker  *redsync.Redsync
	catalog engine.Catalog
	opts    RedisOptions
}

// NewRedisPersistence connects to the Redis server at url (redis://host:port/db)
func NewRedisPersistence(url string, catalog engine.Catalog, opts *RedisOptions) (*RedisPersistence, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	rp := NewRedisPersistenceWithClient(client, catalog, opts)

	ctx, cancel := rp.context()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithFields(log.Fields{"addr": redisOpts.Addr, "db": redisOpts.DB}).Info("redis session store connected")
	return rp, nil
}

// NewRedisPersistenceWithClient wraps an existing client
func NewRedisPersistenceWithClient(client *redis.Client, catalog engine.Catalog, opts *RedisOptions) *RedisPersistence {
	o := RedisOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Prefix == "" {
		o.Prefix = defaultRedisPrefix
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultRedisTimeout
	}

	return &RedisPersistence{
		client:  client,
		locker:  redsync.New(goredis.NewPool(client)),
		catalog: catalog,
		opts:    o,
	}
}

// Save persists a session under its key
func (rp *RedisPersistence) Save(session *service.Session) error {
	jsonData, err := encodeSession(session)
	if err != nil {
		return err
	}

	key := rp.key(session.ID)
	mutex := rp.locker.NewMutex(key+":lock", redsync.WithExpiry(rp.opts.Timeout), redsync.WithTries(8))
	if err := mutex.Lock(); err != nil {
		return fmt.Errorf("failed to lock session %s: %w", session.ID, err)
	}
	defer func() {
		if ok, err := mutex.Unlock(); err != nil || !ok {
			log.WithError(err).WithField("session", session.ID).Warn("failed to release session lock")
		}
	}()

	ctx, cancel := rp.context()
	defer cancel()
	if err := rp.client.Set(ctx, key, jsonData, rp.opts.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load retrieves a session by ID
func (rp *RedisPersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := rp.context()
	defer cancel()

	jsonData, err := rp.client.Get(ctx, rp.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return decodeSession(jsonData, rp.catalog)
}

// Delete removes a session key
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := rp.context()
	defer cancel()

	removed, err := rp.client.Del(ctx, rp.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := rp.context()
	defer cancel()

	prefix := rp.key("")
	var ids []string
	iter := rp.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, ":lock") {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session key exists
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := rp.context()
	defer cancel()

	n, err := rp.client.Exists(ctx, rp.key(id)).Result()
	if err != nil {
		log.WithError(err).WithField("session", id).Warn("redis exists check failed")
		return false
	}
	return n > 0
}

// Close releases the Redis connection pool
func (rp *RedisPersistence) Close() error {
	return rp.client.Close()
}

func (rp *RedisPersistence) key(id string) string {
	return fmt.Sprintf(sessionKeyFmt, rp.opts.Prefix, id)
}

func (rp *RedisPersistence) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rp.opts.Timeout)
}
