// Package memory is an in-process storage.Store used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/storage"
	"github.com/hetulpatel/arbscanner/internal/tracker"
)

var _ storage.Store = (*Store)(nil)

type oppKey struct {
	hash string
	ts   int64
}

// Store keeps opportunities and persistence records in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	seen    map[oppKey]struct{}
	opps    []models.Opportunity
	records map[string]models.PersistenceRecord
}

func New() *Store {
	return &Store{
		seen:    make(map[oppKey]struct{}),
		records: make(map[string]models.PersistenceRecord),
	}
}

func (s *Store) AppendOpportunity(_ context.Context, o models.Opportunity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := oppKey{hash: o.Hash, ts: o.Timestamp.UnixNano()}
	if _, ok := s.seen[k]; ok {
		return false, nil
	}
	s.seen[k] = struct{}{}
	s.opps = append(s.opps, o)
	return true, nil
}

func (s *Store) UpsertPersistence(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.PersistenceRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var prev *models.PersistenceRecord
	if rec, ok := s.records[obs.Hash]; ok {
		prev = &rec
	}
	next := tracker.Apply(prev, obs)
	s.records[obs.Hash] = next
	return next, nil
}

func (s *Store) GetPersistence(_ context.Context, hash string) (models.PersistenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	if !ok {
		return models.PersistenceRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

// ListOpportunities returns a copy, newest first. Ties keep reverse insertion order.
func (s *Store) ListOpportunities(context.Context) ([]models.Opportunity, error) {
	s.mu.Lock()
	out := make([]models.Opportunity, len(s.opps))
	for i, o := range s.opps {
		out[len(out)-1-i] = o
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// ListPersistenceRecords returns records longest-lived first, then by hash.
func (s *Store) ListPersistenceRecords(context.Context) ([]models.PersistenceRecord, error) {
	s.mu.Lock()
	out := make([]models.PersistenceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].DurationSeconds != out[j].DurationSeconds {
			return out[i].DurationSeconds > out[j].DurationSeconds
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

func (s *Store) Close() error { return nil }
