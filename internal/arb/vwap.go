package arb

import "github.com/shopspring/decimal"

// PriceLevel is one rung of an ask book.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// SimulateFill walks levels in the given order (callers sort best price first)
// and returns the volume-weighted price of buying target units along with the
// number of levels touched. A zero vwap means the book cannot fill target.
func SimulateFill(levels []PriceLevel, target decimal.Decimal) (decimal.Decimal, int) {
	if len(levels) == 0 || !target.IsPositive() {
		return decimal.Zero, 0
	}

	filled := decimal.Zero
	cost := decimal.Zero
	depth := 0
	for _, lvl := range levels {
		if filled.GreaterThanOrEqual(target) {
			break
		}
		take := decimal.Min(target.Sub(filled), lvl.Size)
		cost = cost.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		depth++
	}

	if filled.LessThan(target) {
		return decimal.Zero, depth
	}
	return cost.Div(filled), depth
}

// Depth returns the total size resting on levels.
func Depth(levels []PriceLevel) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range levels {
		total = total.Add(lvl.Size)
	}
	return total
}
