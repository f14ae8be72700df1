// Package storage defines the persistence contract shared by the scanner,
// the tracker, and the reporting tools.
package storage

import (
	"context"
	"errors"

	"github.com/hetulpatel/arbscanner/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store persists opportunities and their persistence records.
type Store interface {
	// AppendOpportunity inserts o. It returns false, with no error, when a row
	// with the same hash and timestamp already exists.
	AppendOpportunity(ctx context.Context, o models.Opportunity) (bool, error)
	// UpsertPersistence applies obs to the record for obs.Hash atomically.
	UpsertPersistence(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error)
	// GetPersistence returns ErrNotFound if hash has no record.
	GetPersistence(ctx context.Context, hash string) (models.PersistenceRecord, error)
	// ListOpportunities returns every opportunity, newest first.
	ListOpportunities(ctx context.Context) ([]models.Opportunity, error)
	// ListPersistenceRecords returns every record, longest-lived first.
	ListPersistenceRecords(ctx context.Context) ([]models.PersistenceRecord, error)
	Close() error
}
