package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iek-bit/Gambly/models"
)

const (
	redisLockTTL        = 30 * time.Second
	redisAcquireTimeout = 5 * time.Second
	redisRetryAttempts  = 8
)

// releaseScript deletes the lock only if this instance still owns it,
// so an expired lock reacquired by somebody else is never clobbered.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisStore keeps the state blob in a Redis key with a companion
// revision key as the snapshot cache's change signal. The exclusive
// scope is a SET NX lock with a TTL, released through an
// ownership-checked Lua script.
type RedisStore struct {
	client     *redis.Client
	key        string
	revKey     string
	lockKey    string
	instanceID string

	mu        sync.Mutex
	cached    []byte
	cachedRev string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "gambly:state"
	}
	return &RedisStore{
		client:     client,
		key:        key,
		revKey:     key + ":rev",
		lockKey:    "lock:" + key,
		instanceID: uuid.New().String(),
	}
}

// Acquire takes the distributed lock with exponential backoff and
// loads the current blob.
func (rs *RedisStore) Acquire(ctx context.Context) (*Session, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, redisAcquireTimeout)
	defer cancel()

	lockValue := fmt.Sprintf("%s:%s", rs.instanceID, uuid.New().String())

	acquired := false
	for attempt := 0; attempt < redisRetryAttempts; attempt++ {
		ok, err := rs.client.SetNX(acquireCtx, rs.lockKey, lockValue, redisLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ok {
			acquired = true
			break
		}
		backoff := calculateBackoff(attempt)
		select {
		case <-acquireCtx.Done():
			log.Printf("[LOCK] timed out waiting for %s", rs.lockKey)
			return nil, ErrLockTimeout
		case <-time.After(backoff):
		}
	}
	if !acquired {
		log.Printf("[LOCK] failed to acquire %s after %d attempts", rs.lockKey, redisRetryAttempts)
		return nil, ErrLockTimeout
	}

	data, err := rs.client.Get(ctx, rs.key).Bytes()
	if err != nil && err != redis.Nil {
		rs.releaseLock(ctx, lockValue)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	state := decodeState(data)

	save := func(ctx context.Context, blob []byte) error {
		pipe := rs.client.TxPipeline()
		pipe.Set(ctx, rs.key, blob, 0)
		pipe.Set(ctx, rs.revKey, fmt.Sprintf("%d", time.Now().UnixNano()), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	release := func(ctx context.Context) error {
		return rs.releaseLock(ctx, lockValue)
	}
	session, err := newSession(state, save, release)
	if err != nil {
		rs.releaseLock(ctx, lockValue)
		return nil, err
	}
	return session, nil
}

func (rs *RedisStore) releaseLock(ctx context.Context, lockValue string) error {
	result, err := releaseScript.Run(ctx, rs.client, []string{rs.lockKey}, lockValue).Result()
	if err != nil {
		log.Printf("[LOCK] error releasing %s: %v", rs.lockKey, err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if result == int64(0) {
		log.Printf("[LOCK] %s was not held by this instance (may have expired)", rs.lockKey)
	}
	return nil
}

// Snapshot returns a read-only copy, refetching the blob only when
// the revision key moved since the last read.
func (rs *RedisStore) Snapshot(ctx context.Context) (*models.State, error) {
	rev, err := rs.client.Get(ctx, rs.revKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rs.mu.Lock()
	if rs.cached != nil && rev != "" && rev == rs.cachedRev {
		blob := rs.cached
		rs.mu.Unlock()
		return decodeState(blob), nil
	}
	rs.mu.Unlock()

	data, err := rs.client.Get(ctx, rs.key).Bytes()
	if err == redis.Nil {
		return models.DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rs.mu.Lock()
	rs.cached = data
	rs.cachedRev = rev
	rs.mu.Unlock()
	return decodeState(data), nil
}

// calculateBackoff is exponential with a 2s ceiling.
func calculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(100*(1<<attempt)) * time.Millisecond
	if backoff > 2*time.Second {
		backoff = 2 * time.Second
	}
	return backoff
}
