package polymarket

import (
	"encoding/json"
	"strings"

	"github.com/hetulpatel/arbscanner/internal/models"
)

type gammaMarket struct {
	ID           string       `json:"id"`
	ConditionID  string       `json:"conditionId"`
	ConditionID2 string       `json:"condition_id"`
	Question     string       `json:"question"`
	Title        string       `json:"title"`
	Tokens       []gammaToken `json:"tokens"`
	ClobTokenIDs string       `json:"clobTokenIds"`
}

type gammaToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

// normalize maps the venue's field variants onto models.Market. tokens[]
// takes precedence over the JSON-encoded clobTokenIds string.
func (g gammaMarket) normalize() models.Market {
	return models.Market{
		ID:       firstNonEmpty(g.ConditionID, g.ConditionID2, g.ID),
		Title:    firstNonEmpty(g.Question, g.Title, "Unknown"),
		TokenIDs: g.tokenIDs(),
	}
}

func (g gammaMarket) tokenIDs() []string {
	if len(g.Tokens) > 0 {
		ids := make([]string, 0, len(g.Tokens))
		for _, t := range g.Tokens {
			ids = append(ids, strings.TrimSpace(t.TokenID))
		}
		return ids
	}
	return parseClobTokenIDs(g.ClobTokenIDs)
}

func parseClobTokenIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type clobBook struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []clobLevel `json:"bids"`
	Asks    []clobLevel `json:"asks"`
}

type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
