package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises admission decisions per requester.  Lock blocks until
// the requester's lock is held or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, requesterID uint64) (unlock func(), err error)
}

// KeyedLocker is an in-process Locker.  Entries are reference counted and
// removed once no goroutine holds or waits on them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[uint64]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker returns an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[uint64]*keyedEntry)}
}

func (l *KeyedLocker) Lock(ctx context.Context, requesterID uint64) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[requesterID]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		l.locks[requesterID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(requesterID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(requesterID, e)
		})
	}, nil
}

func (l *KeyedLocker) release(requesterID uint64, e *keyedEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, requesterID)
	}
	l.mu.Unlock()
}

// size is the number of live entries; tests use it to check cleanup.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// lockAll takes the lock of every id in ascending order and returns a func
// releasing all of them.  Single-requester callers never hold two locks,
// so the fixed order cannot deadlock.
func lockAll(ctx context.Context, l Locker, ids []uint64) (func(), error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, id := range sorted {
		unlock, err := l.Lock(ctx, id)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// ErrLockTimeout is returned by RedisLocker when ctx ends before the lock
// could be taken.
var ErrLockTimeout = errors.New("requester lock: timed out")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serialises requesters across instances with SET NX PX.
// The lease bounds how long a crashed holder can block others.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	lease  time.Duration
}

// NewRedisLocker returns a RedisLocker using keys "<prefix>:<requesterID>".
func NewRedisLocker(rdb *redis.Client, prefix string, lease time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "leave:lock"
	}
	if lease <= 0 {
		lease = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, lease: lease}
}

func (l *RedisLocker) key(requesterID uint64) string {
	return l.prefix + ":" + strconv.FormatUint(requesterID, 10)
}

func (l *RedisLocker) Lock(ctx context.Context, requesterID uint64) (func(), error) {
	key := l.key(requesterID)
	token := uuid.NewString()
	wait := 5 * time.Millisecond
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("acquire requester lock: %w", err)
		}
		if ok {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-t.C:
		}
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; release regardless.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
