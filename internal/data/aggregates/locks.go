package aggregates

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Locker grants mutual exclusion over a set of string keys. Keys are
// acquired in sorted order so two callers asking for overlapping sets cannot
// deadlock. The returned release func is safe to call more than once, from
// any goroutine.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

func objectiveLockKey(id uuid.UUID) string { return "okr:objective:" + id.String() }

func corporateLockKey(id uuid.UUID) string { return "okr:corporate:" + id.String() }

func normalizeKeys(keys []string) []string {
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

// KeyLocker is an in-process Locker. Entries are reference counted and
// dropped once nobody holds or waits on them.
type KeyLocker struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{entries: map[string]*keyEntry{}}
}

func (l *KeyLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := l.acquire(ctx, k); err != nil {
			l.releaseAll(held)
			return nil, err
		}
		held = append(held, k)
	}
	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *KeyLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, e)
		return ctx.Err()
	}
}

func (l *KeyLocker) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		e := l.entries[keys[i]]
		l.mu.Unlock()
		if e == nil {
			continue
		}
		<-e.ch
		l.unref(keys[i], e)
	}
}

func (l *KeyLocker) unref(key string, e *keyEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 && l.entries[key] == e {
		delete(l.entries, key)
	}
}

// LockScope collects every key a unit of work holds and releases them together
// once the transaction has committed or rolled back.
type LockScope struct {
	locker   Locker
	mu       sync.Mutex
	held     map[string]struct{}
	releases []func()
}

func newLockScope(locker Locker) *LockScope {
	if locker == nil {
		locker = sharedKeyLocker
	}
	return &LockScope{locker: locker, held: map[string]struct{}{}}
}

var sharedKeyLocker = NewKeyLocker()

// Acquire locks keys in one sorted batch, skipping keys the scope already
// holds. A failure to acquire is retryable.
func (s *LockScope) Acquire(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	pending := make([]string, 0, len(keys))
	for _, k := range normalizeKeys(keys) {
		if _, ok := s.held[k]; !ok {
			pending = append(pending, k)
		}
	}
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	release, err := s.locker.Lock(ctx, pending...)
	if err != nil {
		return RetryableError("acquire okr lock: " + err.Error())
	}
	s.mu.Lock()
	for _, k := range pending {
		s.held[k] = struct{}{}
	}
	s.releases = append(s.releases, release)
	s.mu.Unlock()
	return nil
}

func (s *LockScope) Release() {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.held = map[string]struct{}{}
	s.mu.Unlock()
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
