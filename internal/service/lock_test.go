package service

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Locker = (*KeyedLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)

func TestKeyedLockerMutualExclusion(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, 1)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, 0, l.size())
}

func TestKeyedLockerIndependentKeys(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	u1, err := l.Lock(ctx, 1)
	require.NoError(t, err)
	u2, err := l.Lock(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.size())
	u1()
	u2()
	u2()
	assert.Equal(t, 0, l.size())
}

func TestKeyedLockerContextCancel(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, l.size())
}

// testRedis connects to REDIS_ADDR when set and otherwise starts an
// in-process miniredis for the test.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisLocker(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	l := NewRedisLocker(rdb, "test:leave:lock:"+time.Now().Format("150405.000000"), time.Second)
	unlock, err := l.Lock(ctx, 1)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, 1)
	assert.ErrorIs(t, err, ErrLockTimeout)

	other, err := l.Lock(ctx, 2)
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	unlock2, err := l.Lock(ctx, 1)
	require.NoError(t, err)
	unlock2()
}

// A stale release must not delete a lock that has since passed to
// another holder.
func TestRedisLockerReleaseIsOwnerOnly(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	l := NewRedisLocker(rdb, "test:leave:owner:"+time.Now().Format("150405.000000"), time.Second)

	unlock, err := l.Lock(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, rdb.Set(ctx, l.key(3), "someone-else", time.Second).Err())

	unlock()
	val, err := rdb.Get(ctx, l.key(3)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

// Two service instances with separate RedisLockers over one Redis behave
// like one: only one of the racing creates is admitted.
func TestConcurrentCreateAcrossInstances(t *testing.T) {
	f := newFixture(t)
	rdb := testRedis(t)
	ctx := context.Background()
	u := f.user(t, "uma", 10)

	prefix := "test:leave:multi:" + time.Now().Format("150405.000000")
	instances := []*LeaveService{
		NewLeaveService(f.db, f.users, f.requests, f.ledger, NewRedisLocker(rdb, prefix, 5*time.Second), f.pub),
		NewLeaveService(f.db, f.users, f.requests, f.ledger, NewRedisLocker(rdb, prefix, 5*time.Second), f.pub),
	}

	const workers = 6
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(svc *LeaveService) {
			defer wg.Done()
			if _, err := svc.Create(ctx, u.ID, "race", day(time.December, 1), day(time.December, 3)); err == nil {
				won.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		}(instances[i%len(instances)])
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, 7, f.balance(t, u.ID))
}

func TestLockAllReleasesOnFailure(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	held, err := l.Lock(ctx, 5)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = lockAll(short, l, []uint64{9, 5, 1, 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.size())

	held()
	unlock, err := lockAll(ctx, l, []uint64{9, 5, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 3, l.size())
	unlock()
	assert.Equal(t, 0, l.size())
}
