package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/storage"
	"github.com/hetulpatel/arbscanner/internal/tracker"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx pool.
type Store struct {
	client *Client
	pool   *pgxpool.Pool
}

// NewStore wraps an open client. Close on the store closes the client.
func NewStore(client *Client) *Store {
	return &Store{client: client, pool: client.Pool()}
}

const oppSelectCols = `opportunity_hash, timestamp, market_id, market_title,
	target_size, vwap_yes, vwap_no, raw_sum,
	fee_rate_yes, fee_rate_no, effective_cost, edge_decimal,
	yes_book_depth, no_book_depth`

const persistenceSelectCols = `opportunity_hash, market_id, target_size,
	first_seen, last_seen, duration_seconds,
	max_edge, min_edge, avg_edge, observation_count`

func (s *Store) AppendOpportunity(ctx context.Context, o models.Opportunity) (bool, error) {
	const query = `
		INSERT INTO opportunities (` + oppSelectCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (opportunity_hash, timestamp) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		o.Hash, o.Timestamp.UTC(), o.MarketID, o.MarketTitle,
		o.TargetSize, o.VWAPYes, o.VWAPNo, o.RawSum,
		o.FeeRateYes, o.FeeRateNo, o.EffectiveCost, o.Edge,
		o.YesBookDepth, o.NoBookDepth,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: insert opportunity %s: %w", o.Hash, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertPersistence locks the existing row with FOR UPDATE so concurrent
// scanners serialize on the same hash.
func (s *Store) UpsertPersistence(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("postgres: begin upsert %s: %w", obs.Hash, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev *models.PersistenceRecord
	rec, err := scanPersistence(tx.QueryRow(ctx,
		`SELECT `+persistenceSelectCols+` FROM opportunity_persistence WHERE opportunity_hash = $1 FOR UPDATE`,
		obs.Hash,
	))
	switch {
	case err == nil:
		prev = &rec
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return models.PersistenceRecord{}, fmt.Errorf("postgres: load persistence %s: %w", obs.Hash, err)
	}

	next := tracker.Apply(prev, obs)
	if prev == nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO opportunity_persistence (`+persistenceSelectCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			next.Hash, next.MarketID, next.TargetSize,
			next.FirstSeen.UTC(), next.LastSeen.UTC(), next.DurationSeconds,
			next.MaxEdge, next.MinEdge, next.AvgEdge, next.ObservationCount,
		)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE opportunity_persistence SET
				last_seen         = $2,
				duration_seconds  = $3,
				max_edge          = $4,
				min_edge          = $5,
				avg_edge          = $6,
				observation_count = $7
			WHERE opportunity_hash = $1`,
			next.Hash, next.LastSeen.UTC(), next.DurationSeconds,
			next.MaxEdge, next.MinEdge, next.AvgEdge, next.ObservationCount,
		)
	}
	if err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("postgres: write persistence %s: %w", obs.Hash, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("postgres: commit persistence %s: %w", obs.Hash, err)
	}
	return next, nil
}

func (s *Store) GetPersistence(ctx context.Context, hash string) (models.PersistenceRecord, error) {
	rec, err := scanPersistence(s.pool.QueryRow(ctx,
		`SELECT `+persistenceSelectCols+` FROM opportunity_persistence WHERE opportunity_hash = $1`, hash,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PersistenceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return models.PersistenceRecord{}, fmt.Errorf("postgres: get persistence %s: %w", hash, err)
	}
	return rec, nil
}

func (s *Store) ListOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+oppSelectCols+` FROM opportunities ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		var o models.Opportunity
		if err := rows.Scan(
			&o.Hash, &o.Timestamp, &o.MarketID, &o.MarketTitle,
			&o.TargetSize, &o.VWAPYes, &o.VWAPNo, &o.RawSum,
			&o.FeeRateYes, &o.FeeRateNo, &o.EffectiveCost, &o.Edge,
			&o.YesBookDepth, &o.NoBookDepth,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListPersistenceRecords(ctx context.Context) ([]models.PersistenceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+persistenceSelectCols+` FROM opportunity_persistence ORDER BY duration_seconds DESC, opportunity_hash`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list persistence: %w", err)
	}
	defer rows.Close()

	var out []models.PersistenceRecord
	for rows.Next() {
		rec, err := scanPersistence(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan persistence: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func scanPersistence(row pgx.Row) (models.PersistenceRecord, error) {
	var rec models.PersistenceRecord
	err := row.Scan(
		&rec.Hash, &rec.MarketID, &rec.TargetSize,
		&rec.FirstSeen, &rec.LastSeen, &rec.DurationSeconds,
		&rec.MaxEdge, &rec.MinEdge, &rec.AvgEdge, &rec.ObservationCount,
	)
	rec.FirstSeen = rec.FirstSeen.UTC()
	rec.LastSeen = rec.LastSeen.UTC()
	return rec, err
}
