package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

// releaseScript deletes a lock only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends a lock's expiry only while it still carries our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a multi-process keyed lock built on SET NX PX. Every held key
// expires after TTL so a crashed holder cannot wedge a corporate objective.
// While a caller holds the keys, the lease is renewed every TTL/3, so a long
// cascade keeps its exclusion for as long as the process is alive.
type Locker struct {
	rdb       goredis.UniversalClient
	log       *logger.Logger
	ttl       time.Duration
	retryWait time.Duration
	prefix    string
}

type LockerOption func(*Locker)

func WithTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryWait(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retryWait = d
		}
	}
}

func WithKeyPrefix(prefix string) LockerOption {
	return func(l *Locker) { l.prefix = prefix }
}

func NewLocker(rdb goredis.UniversalClient, log *logger.Logger, opts ...LockerOption) *Locker {
	l := &Locker{
		rdb:       rdb,
		log:       log,
		ttl:       defaultLockTTL,
		retryWait: defaultRetryWait,
		prefix:    "lock:",
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	l.log = l.log.With("service", "RedisLocker")
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires keys in sorted order, waiting until ctx is done or TTL elapses per key.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, errors.New("redis locker not initialized")
	}
	keys = dedupeSorted(keys)
	token := uuid.NewString()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := l.acquire(ctx, l.prefix+k, token); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, l.prefix+k)
	}

	ls := startLease(l.ttl/3, func() bool { return l.renew(held, token) })
	var once sync.Once
	return func() {
		once.Do(func() {
			ls.end()
			l.release(held, token)
		})
	}, nil
}

// renew pushes every held key's expiry out by TTL. It reports false once any
// key no longer carries token, after which renewal stops.
func (l *Locker) renew(keys []string, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
	defer cancel()
	for _, k := range keys {
		n, err := renewScript.Run(ctx, l.rdb, []string{k}, token, l.ttl.Milliseconds()).Int64()
		if err != nil {
			l.log.Warn("redis lock renew failed", "key", k, "error", err)
			continue
		}
		if n == 0 {
			l.log.Error("redis lock lease lost", "key", k)
			return false
		}
	}
	return true
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", key)
		}
		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) release(keys []string, token string) {
	// Release must survive a cancelled request context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.rdb, []string{keys[i]}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			l.log.Warn("redis lock release failed", "key", keys[i], "error", err)
		}
	}
}

// lease calls renew every interval until end is called or renew reports false.
type lease struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startLease(interval time.Duration, renew func() bool) *lease {
	ls := &lease{stop: make(chan struct{}), done: make(chan struct{})}
	if interval <= 0 {
		close(ls.done)
		return ls
	}
	go func() {
		defer close(ls.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ls.stop:
				return
			case <-ticker.C:
				if !renew() {
					return
				}
			}
		}
	}()
	return ls
}

// end stops renewal and waits for the renewing goroutine. Safe to call concurrently.
func (ls *lease) end() {
	ls.once.Do(func() { close(ls.stop) })
	<-ls.done
}

func dedupeSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
