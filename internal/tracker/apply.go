package tracker

import (
	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/models"
)

// Apply folds obs into prev and returns the updated record. A nil prev starts
// a new record. Max and min never retreat, the average is the mean of every
// observed edge, and the duration is always recomputed from the endpoints.
func Apply(prev *models.PersistenceRecord, obs models.Observation) models.PersistenceRecord {
	if prev == nil || prev.ObservationCount <= 0 {
		return models.PersistenceRecord{
			Hash:             obs.Hash,
			MarketID:         obs.MarketID,
			TargetSize:       obs.TargetSize,
			FirstSeen:        obs.Timestamp,
			LastSeen:         obs.Timestamp,
			DurationSeconds:  0,
			MaxEdge:          obs.Edge,
			MinEdge:          obs.Edge,
			AvgEdge:          obs.Edge,
			ObservationCount: 1,
		}
	}

	next := *prev
	count := decimal.NewFromInt(int64(prev.ObservationCount))
	newCount := prev.ObservationCount + 1
	next.AvgEdge = prev.AvgEdge.Mul(count).Add(obs.Edge).Div(decimal.NewFromInt(int64(newCount)))
	next.MaxEdge = decimal.Max(prev.MaxEdge, obs.Edge)
	next.MinEdge = decimal.Min(prev.MinEdge, obs.Edge)
	next.LastSeen = obs.Timestamp
	next.DurationSeconds = obs.Timestamp.Sub(prev.FirstSeen).Seconds()
	next.ObservationCount = newCount
	return next
}
