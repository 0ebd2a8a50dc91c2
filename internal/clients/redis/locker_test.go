package redis

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

func TestDedupeSorted(t *testing.T) {
	got := dedupeSorted([]string{"b", "a", "", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis locker tests")
	}
	rdb, err := NewClient(context.Background(), logger.Nop(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLockerMutualExclusion(t *testing.T) {
	rdb := testClient(t)
	l := NewLocker(rdb, logger.Nop(), WithKeyPrefix("test:"+uuid.NewString()+":"), WithTTL(5*time.Second))

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "okr:corporate:x", "okr:objective:y")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	rdb := testClient(t)
	prefix := "test:" + uuid.NewString() + ":"
	l := NewLocker(rdb, logger.Nop(), WithKeyPrefix(prefix))

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, rdb.Set(context.Background(), prefix+"k", "someone-else", time.Minute).Err())
	release()

	val, err := rdb.Get(context.Background(), prefix+"k").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	_ = rdb.Del(context.Background(), prefix+"k").Err()
}

func TestLockerHonoursContext(t *testing.T) {
	rdb := testClient(t)
	l := NewLocker(rdb, logger.Nop(), WithKeyPrefix("test:"+uuid.NewString()+":"))

	release, err := l.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "busy")
	require.Error(t, err)
}

func TestLeaseRenewsUntilEnded(t *testing.T) {
	var renewals int32
	ls := startLease(2*time.Millisecond, func() bool {
		atomic.AddInt32(&renewals, 1)
		return true
	})
	require.Eventually(t, func() bool { return atomic.LoadInt32(&renewals) >= 3 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ls.end()
		}()
	}
	wg.Wait()

	after := atomic.LoadInt32(&renewals)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&renewals))
}

func TestLeaseStopsWhenRenewFails(t *testing.T) {
	var renewals int32
	ls := startLease(time.Millisecond, func() bool {
		atomic.AddInt32(&renewals, 1)
		return false
	})
	select {
	case <-ls.done:
	case <-time.After(time.Second):
		t.Fatal("lease kept running after a failed renew")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&renewals))
	ls.end()
}

func TestLockerRenewsPastTTL(t *testing.T) {
	rdb := testClient(t)
	prefix := "test:" + uuid.NewString() + ":"
	l := NewLocker(rdb, logger.Nop(), WithKeyPrefix(prefix), WithTTL(300*time.Millisecond))

	release, err := l.Lock(context.Background(), "okr:corporate:slow")
	require.NoError(t, err)

	time.Sleep(time.Second)
	n, err := rdb.Exists(context.Background(), prefix+"okr:corporate:slow").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "lease expired while still held")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()

	n, err = rdb.Exists(context.Background(), prefix+"okr:corporate:slow").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
