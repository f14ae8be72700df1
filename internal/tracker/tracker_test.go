package tracker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/hetulpatel/arbscanner/internal/models"
)

// racyStore performs an unguarded read-modify-write so lost updates show up
// when callers do not serialize.
type racyStore struct {
	mu      sync.Mutex
	records map[string]models.PersistenceRecord
	err     error
}

func (s *racyStore) UpsertPersistence(_ context.Context, obs models.Observation) (models.PersistenceRecord, error) {
	if s.err != nil {
		return models.PersistenceRecord{}, s.err
	}
	s.mu.Lock()
	prev, ok := s.records[obs.Hash]
	s.mu.Unlock()

	runtime.Gosched()

	var next models.PersistenceRecord
	if ok {
		next = Apply(&prev, obs)
	} else {
		next = Apply(nil, obs)
	}

	s.mu.Lock()
	s.records[obs.Hash] = next
	s.mu.Unlock()
	return next, nil
}

func TestTrackerSerializesSameHash(t *testing.T) {
	store := &racyStore{records: make(map[string]models.PersistenceRecord)}
	tr := New(store, nil)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0).UTC()

	const workers = 64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.Observe(ctx, obsAt(start.Add(time.Duration(i)*time.Millisecond), "0.01")); err != nil {
				t.Errorf("observe: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := store.records["abc123"].ObservationCount; got != workers {
		t.Fatalf("observation count = %d, want %d", got, workers)
	}
	if n := tr.locker.(*KeyedMutex).size(); n != 0 {
		t.Fatalf("keyed mutex kept %d entries after release", n)
	}
}

func TestTrackerWrapsStoreError(t *testing.T) {
	boom := errors.New("disk full")
	tr := New(&racyStore{records: map[string]models.PersistenceRecord{}, err: boom}, nil)
	_, err := tr.Observe(context.Background(), obsAt(time.Now(), "0.01"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("lock held")
}

func TestTrackerLockError(t *testing.T) {
	store := &racyStore{records: map[string]models.PersistenceRecord{}}
	tr := New(store, failingLocker{})
	if _, err := tr.Observe(context.Background(), obsAt(time.Now(), "0.01")); err == nil {
		t.Fatal("expected lock error")
	}
	if len(store.records) != 0 {
		t.Fatal("store was written without holding the lock")
	}
}

func TestKeyedMutexCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewKeyedMutex().Lock(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestKeyedMutexUnlockIdempotent(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	unlock()
	unlock()
	again, err := km.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	again()
	if km.size() != 0 {
		t.Fatalf("size = %d, want 0", km.size())
	}
}
