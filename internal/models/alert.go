package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert is published when an opportunity's edge first reaches a configured
// threshold level.
type Alert struct {
	Hash        string          `json:"opportunity_hash"`
	MarketID    string          `json:"market_id"`
	MarketTitle string          `json:"market_title"`
	TargetSize  decimal.Decimal `json:"target_size"`
	Threshold   decimal.Decimal `json:"threshold"`
	Edge        decimal.Decimal `json:"edge_decimal"`
	VWAPYes     decimal.Decimal `json:"vwap_yes"`
	VWAPNo      decimal.Decimal `json:"vwap_no"`
	DetectedAt  time.Time       `json:"detected_at"`
}

// NewAlert describes o crossing threshold.
func NewAlert(o Opportunity, threshold decimal.Decimal) Alert {
	return Alert{
		Hash:        o.Hash,
		MarketID:    o.MarketID,
		MarketTitle: o.MarketTitle,
		TargetSize:  o.TargetSize,
		Threshold:   threshold,
		Edge:        o.Edge,
		VWAPYes:     o.VWAPYes,
		VWAPNo:      o.VWAPNo,
		DetectedAt:  o.Timestamp,
	}
}
