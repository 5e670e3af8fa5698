package sync

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// Locker serializes reopens per case number so the notes tag prepend and
// the create-versus-reopen decision cannot race.
type Locker interface {
	// Lock blocks until the key is held and returns the release func.
	Lock(ctx context.Context, key string) (func(), error)
}

// numLockShards spreads case numbers over independent mutexes so unrelated
// syncs do not contend on one lock.
const numLockShards = 128

// inProcessLocker is the default: sharded mutexes, sufficient for a single
// process against the in-memory store or a single writer deployment.
type inProcessLocker struct {
	shards [numLockShards]sync.Mutex
}

func newInProcessLocker() *inProcessLocker {
	return &inProcessLocker{}
}

func (l *inProcessLocker) Lock(_ context.Context, key string) (func(), error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	shard := &l.shards[h.Sum32()%numLockShards]
	shard.Lock()
	return shard.Unlock, nil
}

// LockBackend is the slice of the Redis client the distributed locker needs.
type LockBackend interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const (
	redisLockTTL     = 10 * time.Second
	redisLockBackoff = 25 * time.Millisecond
	redisLockWait    = 2 * time.Second
)

// redisLocker coordinates reopens across processes. If the lock cannot be
// won within the wait budget it gives up with an error; the caller proceeds
// unlocked and logs, because blocking intake on lock contention would be
// worse than the (rare, now store-atomic) race.
type redisLocker struct {
	backend LockBackend
}

func NewRedisLocker(backend LockBackend) Locker {
	return &redisLocker{backend: backend}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(redisLockWait)
	for {
		ok, err := l.backend.TryLock(ctx, key, redisLockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = l.backend.Unlock(context.WithoutCancel(ctx), key)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisLockBackoff):
		}
	}
}
