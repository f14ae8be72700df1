// Package tracker derives opportunity identities and maintains the running
// persistence statistics of each identity.
package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/hetulpatel/arbscanner/internal/models"
)

// PersistenceStore applies an observation to the stored record for its hash
// in a single transaction.
type PersistenceStore interface {
	UpsertPersistence(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error)
}

// Locker serializes work on a key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Tracker feeds observations into a PersistenceStore, holding a per-hash lock
// around each read-modify-write.
type Tracker struct {
	store  PersistenceStore
	locker Locker
}

// New builds a Tracker. A nil locker defaults to an in-process KeyedMutex.
func New(store PersistenceStore, locker Locker) *Tracker {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Tracker{store: store, locker: locker}
}

// Observe records obs and returns the updated persistence record.
func (t *Tracker) Observe(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error) {
	unlock, err := t.locker.Lock(ctx, obs.Hash)
	if err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("lock %s: %w", obs.Hash, err)
	}
	defer unlock()

	rec, err := t.store.UpsertPersistence(ctx, obs)
	if err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("upsert persistence %s: %w", obs.Hash, err)
	}
	return rec, nil
}

// KeyedMutex is a Locker holding one mutex per key while it is in use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free. It does not observe ctx once waiting.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}, nil
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
