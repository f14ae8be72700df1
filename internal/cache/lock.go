package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when a lock could not be taken before the wait expired.
var ErrLockHeld = errors.New("lock held by another holder")

// unlockLua deletes the key only when it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockOptions tunes LockManager. Zero values take defaults.
type LockOptions struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
}

// LockManager is a distributed tracker.Locker built on SETNX with a TTL.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	opts     LockOptions
}

func NewLockManager(rdb *redis.Client, opts LockOptions) *LockManager {
	if opts.Prefix == "" {
		opts.Prefix = "lock:arb_persistence"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 5 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	return &LockManager{rdb: rdb, unlockSc: redis.NewScript(unlockLua), opts: opts}
}

func (lm *LockManager) key(k string) string {
	return fmt.Sprintf("%s:%s", lm.opts.Prefix, k)
}

// Lock polls SETNX until it wins, ctx ends, or opts.Wait elapses
// (ErrLockHeld). The returned unlock is idempotent and runs on a fresh
// context so it still releases after ctx is cancelled.
func (lm *LockManager) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	lk := lm.key(key)
	deadline := time.Now().Add(lm.opts.Wait)

	for {
		ok, err := lm.rdb.SetNX(ctx, lk, token, lm.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockHeld
		}
		t := time.NewTimer(lm.opts.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
		})
	}, nil
}
