package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/hetulpatel/arbscanner/internal/models"
)

var csvHeader = []string{
	"opportunity_hash", "timestamp", "market_id", "market_title",
	"target_size", "vwap_yes", "vwap_no", "raw_sum",
	"fee_rate_yes", "fee_rate_no", "effective_cost", "edge_decimal",
	"yes_book_depth", "no_book_depth",
}

// WriteCSV writes a header row and one row per opportunity.
func WriteCSV(w io.Writer, opps []models.Opportunity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range opps {
		row := []string{
			o.Hash,
			o.Timestamp.UTC().Format(time.RFC3339Nano),
			o.MarketID,
			o.MarketTitle,
			o.TargetSize.String(),
			o.VWAPYes.String(),
			o.VWAPNo.String(),
			o.RawSum.String(),
			o.FeeRateYes.String(),
			o.FeeRateNo.String(),
			o.EffectiveCost.String(),
			o.Edge.String(),
			strconv.Itoa(o.YesBookDepth),
			strconv.Itoa(o.NoBookDepth),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
