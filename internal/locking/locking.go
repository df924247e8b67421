// Package locking serializes writes against a single batch so that
// concurrent event appends read and update a consistent snapshot.
package locking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired before
// the caller's context expired.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker hands out exclusive per-key locks. Release is returned rather
// than exposed on the interface so a lock cannot outlive its acquisition.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	lockTTL       = 15 * time.Second
	retryInterval = 25 * time.Millisecond
)

// RedisLocker coordinates across processes with SetNX and a compare-and-delete
// release script, so one instance never releases another's lock.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.script.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(retryInterval):
		}
	}
}

// MutexLocker is the single-process fallback used when no Redis address
// is configured. Locks are keyed mutexes held in memory.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*entry)}
}

func (l *MutexLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { l.release(key, e) }, nil
	case <-ctx.Done():
		// The goroutine may still win the mutex; hand it straight back.
		go func() {
			<-acquired
			l.release(key, e)
		}()
		return nil, ErrLockTimeout
	}
}

func (l *MutexLocker) release(key string, e *entry) {
	e.mu.Unlock()
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
