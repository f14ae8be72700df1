package models

import (
	"errors"
	"fmt"
)

// ErrMalformedMarket marks a market that cannot be scanned (not exactly two
// outcome tokens, or missing identifiers).
var ErrMalformedMarket = errors.New("malformed market")

// Market is a venue market normalized to the fields the scanner needs.
// TokenIDs[0] is the YES leg, TokenIDs[1] the NO leg.
type Market struct {
	ID       string   `json:"market_id"`
	Title    string   `json:"market_title"`
	TokenIDs []string `json:"token_ids"`
}

// Validate reports ErrMalformedMarket unless the market is exactly binary with
// non-empty identifiers.
func (m Market) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing market id", ErrMalformedMarket)
	}
	if len(m.TokenIDs) != 2 {
		return fmt.Errorf("%w: market %s has %d outcome tokens", ErrMalformedMarket, m.ID, len(m.TokenIDs))
	}
	if m.TokenIDs[0] == "" || m.TokenIDs[1] == "" {
		return fmt.Errorf("%w: market %s has an empty token id", ErrMalformedMarket, m.ID)
	}
	return nil
}

// YesToken returns the YES outcome token id.
func (m Market) YesToken() string {
	if len(m.TokenIDs) < 1 {
		return ""
	}
	return m.TokenIDs[0]
}

// NoToken returns the NO outcome token id.
func (m Market) NoToken() string {
	if len(m.TokenIDs) < 2 {
		return ""
	}
	return m.TokenIDs[1]
}
