package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-events/internal/logger"
)

const dateLockPrefix = "event_date_lock:"

var ErrLockTimeout = errors.New("timed out waiting for date lock")

// Locker serialises writes touching the same calendar date.
type Locker interface {
	LockDates(ctx context.Context, dates ...string) (unlock func(), err error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type DateLock struct {
	Client *redis.Client
	TTL    time.Duration
	Retry  time.Duration
	Logger *logger.Logger
}

func NewDateLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *DateLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &DateLock{
		Client: client,
		TTL:    ttl,
		Retry:  25 * time.Millisecond,
		Logger: log,
	}
}

// TryLock sets the lock key for date if nobody holds it.
func (l *DateLock) TryLock(ctx context.Context, date, owner string) (bool, error) {
	return l.Client.SetNX(ctx, dateLockPrefix+date, owner, l.TTL).Result()
}

// Unlock releases date only if owner still holds it.
func (l *DateLock) Unlock(ctx context.Context, date, owner string) error {
	err := releaseScript.Run(ctx, l.Client, []string{dateLockPrefix + date}, owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// Lock waits until date can be locked, the context ends or one TTL passes.
func (l *DateLock) Lock(ctx context.Context, date, owner string) error {
	deadline := time.Now().Add(l.TTL)
	for {
		ok, err := l.TryLock(ctx, date, owner)
		if err != nil {
			return fmt.Errorf("failed to lock date %s: %w", date, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, date)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.Retry):
		}
	}
}

// LockDates locks every distinct date in sorted order. On failure the dates
// already held are released.
func (l *DateLock) LockDates(ctx context.Context, dates ...string) (func(), error) {
	owner := uuid.NewString()
	dates = distinctSorted(dates)

	locked := []string{}
	release := func() {
		// Release even if the request context is already cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, d := range locked {
			if err := l.Unlock(rctx, d, owner); err != nil && l.Logger != nil {
				l.Logger.Warn("REDIS", fmt.Sprintf("failed to release lock for %s: %v", d, err))
			}
		}
	}

	for _, d := range dates {
		if err := l.Lock(ctx, d, owner); err != nil {
			release()
			return nil, err
		}
		locked = append(locked, d)
	}
	return release, nil
}

// LocalLock is the in-process fallback used when Redis is not configured.
type LocalLock struct {
	mu    sync.Mutex
	dates map[string]*dateMutex
}

type dateMutex struct {
	ch   chan struct{}
	refs int
}

func NewLocalLock() *LocalLock {
	return &LocalLock{dates: make(map[string]*dateMutex)}
}

func (l *LocalLock) acquire(ctx context.Context, date string) error {
	l.mu.Lock()
	m, ok := l.dates[date]
	if !ok {
		m = &dateMutex{ch: make(chan struct{}, 1)}
		l.dates[date] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(date, m)
		return ctx.Err()
	}
}

func (l *LocalLock) release(date string) {
	l.mu.Lock()
	m := l.dates[date]
	l.mu.Unlock()
	<-m.ch
	l.drop(date, m)
}

func (l *LocalLock) drop(date string, m *dateMutex) {
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.dates, date)
	}
	l.mu.Unlock()
}

func (l *LocalLock) LockDates(ctx context.Context, dates ...string) (func(), error) {
	dates = distinctSorted(dates)
	locked := []string{}
	release := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			l.release(locked[i])
		}
	}
	for _, d := range dates {
		if err := l.acquire(ctx, d); err != nil {
			release()
			return nil, err
		}
		locked = append(locked, d)
	}
	return release, nil
}

func distinctSorted(dates []string) []string {
	seen := make(map[string]bool, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
