package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageInputs is the per-market, per-size input to the edge calculation.
// VWAPs are zero when the book cannot fill TargetSize.
type ArbitrageInputs struct {
	MarketID     string          `json:"market_id"`
	MarketTitle  string          `json:"market_title"`
	TargetSize   decimal.Decimal `json:"target_size"`
	VWAPYes      decimal.Decimal `json:"vwap_yes"`
	VWAPNo       decimal.Decimal `json:"vwap_no"`
	YesBookDepth int             `json:"yes_book_depth"`
	NoBookDepth  int             `json:"no_book_depth"`
}

// Opportunity is one detected positive-edge event. It is built once and
// never mutated.
type Opportunity struct {
	Hash          string          `json:"opportunity_hash"`
	Timestamp     time.Time       `json:"timestamp"`
	MarketID      string          `json:"market_id"`
	MarketTitle   string          `json:"market_title"`
	TargetSize    decimal.Decimal `json:"target_size"`
	VWAPYes       decimal.Decimal `json:"vwap_yes"`
	VWAPNo        decimal.Decimal `json:"vwap_no"`
	RawSum        decimal.Decimal `json:"raw_sum"`
	FeeRateYes    decimal.Decimal `json:"fee_rate_yes"`
	FeeRateNo     decimal.Decimal `json:"fee_rate_no"`
	EffectiveCost decimal.Decimal `json:"effective_cost"`
	Edge          decimal.Decimal `json:"edge_decimal"`
	YesBookDepth  int             `json:"yes_book_depth"`
	NoBookDepth   int             `json:"no_book_depth"`
}

// Observation returns the tracker input derived from the opportunity.
func (o Opportunity) Observation() Observation {
	return Observation{
		Hash:       o.Hash,
		MarketID:   o.MarketID,
		TargetSize: o.TargetSize,
		Timestamp:  o.Timestamp,
		Edge:       o.Edge,
	}
}

// Observation is a single sighting of an opportunity hash.
type Observation struct {
	Hash       string
	MarketID   string
	TargetSize decimal.Decimal
	Timestamp  time.Time
	Edge       decimal.Decimal
}

// PersistenceRecord summarizes every observation of one opportunity hash.
type PersistenceRecord struct {
	Hash             string          `json:"opportunity_hash"`
	MarketID         string          `json:"market_id"`
	TargetSize       decimal.Decimal `json:"target_size"`
	FirstSeen        time.Time       `json:"first_seen"`
	LastSeen         time.Time       `json:"last_seen"`
	DurationSeconds  float64         `json:"duration_seconds"`
	MaxEdge          decimal.Decimal `json:"max_edge"`
	MinEdge          decimal.Decimal `json:"min_edge"`
	AvgEdge          decimal.Decimal `json:"avg_edge"`
	ObservationCount int             `json:"observation_count"`
}
