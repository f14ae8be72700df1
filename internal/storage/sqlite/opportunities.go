package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/storage"
	"github.com/hetulpatel/arbscanner/internal/tracker"
)

var _ storage.Store = (*Store)(nil)

const insertOpportunitySQL = `
INSERT OR IGNORE INTO opportunities (
	opportunity_hash, timestamp, market_id, market_title,
	target_size, vwap_yes, vwap_no, raw_sum,
	fee_rate_yes, fee_rate_no, effective_cost, edge_decimal,
	yes_book_depth, no_book_depth
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// AppendOpportunity inserts o, ignoring a duplicate (hash, timestamp) pair.
func (s *Store) AppendOpportunity(ctx context.Context, o models.Opportunity) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlite store not initialized")
	}
	res, err := s.db.ExecContext(ctx, insertOpportunitySQL,
		o.Hash,
		formatTime(o.Timestamp),
		o.MarketID,
		o.MarketTitle,
		o.TargetSize,
		o.VWAPYes,
		o.VWAPNo,
		o.RawSum,
		o.FeeRateYes,
		o.FeeRateNo,
		o.EffectiveCost,
		o.Edge,
		o.YesBookDepth,
		o.NoBookDepth,
	)
	if err != nil {
		return false, fmt.Errorf("insert opportunity %s: %w", o.Hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListOpportunities returns every opportunity, newest first.
func (s *Store) ListOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT opportunity_hash, timestamp, market_id, COALESCE(market_title, ''),
	target_size, vwap_yes, vwap_no, raw_sum,
	fee_rate_yes, fee_rate_no, effective_cost, edge_decimal,
	COALESCE(yes_book_depth, 0), COALESCE(no_book_depth, 0)
FROM opportunities ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		var (
			o  models.Opportunity
			ts string
		)
		if err := rows.Scan(
			&o.Hash, &ts, &o.MarketID, &o.MarketTitle,
			&o.TargetSize, &o.VWAPYes, &o.VWAPNo, &o.RawSum,
			&o.FeeRateYes, &o.FeeRateNo, &o.EffectiveCost, &o.Edge,
			&o.YesBookDepth, &o.NoBookDepth,
		); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		if o.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("opportunity %s timestamp: %w", o.Hash, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const selectPersistenceSQL = `
SELECT opportunity_hash, market_id, target_size, first_seen, last_seen,
	COALESCE(duration_seconds, 0), max_edge, min_edge, avg_edge, observation_count
FROM opportunity_persistence`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersistence(row rowScanner) (models.PersistenceRecord, error) {
	var (
		rec         models.PersistenceRecord
		first, last string
	)
	if err := row.Scan(
		&rec.Hash, &rec.MarketID, &rec.TargetSize, &first, &last,
		&rec.DurationSeconds, &rec.MaxEdge, &rec.MinEdge, &rec.AvgEdge, &rec.ObservationCount,
	); err != nil {
		return rec, err
	}
	var err error
	if rec.FirstSeen, err = parseTime(first); err != nil {
		return rec, fmt.Errorf("first_seen: %w", err)
	}
	if rec.LastSeen, err = parseTime(last); err != nil {
		return rec, fmt.Errorf("last_seen: %w", err)
	}
	return rec, nil
}

// GetPersistence returns the record for hash.
func (s *Store) GetPersistence(ctx context.Context, hash string) (models.PersistenceRecord, error) {
	rec, err := scanPersistence(s.db.QueryRowContext(ctx, selectPersistenceSQL+` WHERE opportunity_hash = ?`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, storage.ErrNotFound
	}
	return rec, err
}

// ListPersistenceRecords returns every record, longest duration first.
func (s *Store) ListPersistenceRecords(ctx context.Context) ([]models.PersistenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectPersistenceSQL+` ORDER BY duration_seconds DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list persistence: %w", err)
	}
	defer rows.Close()

	var out []models.PersistenceRecord
	for rows.Next() {
		rec, err := scanPersistence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan persistence: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertPersistence reads the current record for obs.Hash, folds obs into it
// and writes it back inside one transaction.
func (s *Store) UpsertPersistence(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PersistenceRecord{}, err
	}

	var prev *models.PersistenceRecord
	cur, err := scanPersistence(tx.QueryRowContext(ctx, selectPersistenceSQL+` WHERE opportunity_hash = ?`, obs.Hash))
	switch {
	case err == nil:
		prev = &cur
	case errors.Is(err, sql.ErrNoRows):
	default:
		tx.Rollback()
		return models.PersistenceRecord{}, fmt.Errorf("read persistence %s: %w", obs.Hash, err)
	}

	next := tracker.Apply(prev, obs)
	if prev == nil {
		_, err = tx.ExecContext(ctx, `
INSERT INTO opportunity_persistence (
	opportunity_hash, market_id, target_size,
	first_seen, last_seen, duration_seconds,
	max_edge, min_edge, avg_edge, observation_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			next.Hash, next.MarketID, next.TargetSize,
			formatTime(next.FirstSeen), formatTime(next.LastSeen), next.DurationSeconds,
			next.MaxEdge, next.MinEdge, next.AvgEdge, next.ObservationCount,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE opportunity_persistence
SET last_seen = ?, duration_seconds = ?,
	max_edge = ?, min_edge = ?, avg_edge = ?,
	observation_count = ?
WHERE opportunity_hash = ?`,
			formatTime(next.LastSeen), next.DurationSeconds,
			next.MaxEdge, next.MinEdge, next.AvgEdge,
			next.ObservationCount, next.Hash,
		)
	}
	if err != nil {
		tx.Rollback()
		return models.PersistenceRecord{}, fmt.Errorf("write persistence %s: %w", obs.Hash, err)
	}
	if err := tx.Commit(); err != nil {
		return models.PersistenceRecord{}, err
	}
	return next, nil
}
