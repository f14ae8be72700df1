package arb

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// Fees holds the taker fee rate charged on each leg.
type Fees struct {
	Yes decimal.Decimal
	No  decimal.Decimal
}

// Edge is the fee-adjusted result of buying both legs of a binary market.
type Edge struct {
	RawSum        decimal.Decimal
	EffectiveCost decimal.Decimal
	Edge          decimal.Decimal
}

// ComputeEdge prices buying target units of YES at vwapYes and of NO at
// vwapNo, including fees, against the guaranteed payoff of 1 per unit. The
// bool is false when there is no opportunity.
func ComputeEdge(vwapYes, vwapNo, target decimal.Decimal, fees Fees) (Edge, bool) {
	rawSum := vwapYes.Add(vwapNo)
	if rawSum.GreaterThanOrEqual(one) {
		return Edge{RawSum: rawSum}, false
	}
	if !target.IsPositive() {
		return Edge{RawSum: rawSum}, false
	}

	costYes := vwapYes.Mul(target).Mul(one.Add(fees.Yes))
	costNo := vwapNo.Mul(target).Mul(one.Add(fees.No))
	effective := costYes.Add(costNo).Div(target)
	edge := one.Sub(effective)

	res := Edge{RawSum: rawSum, EffectiveCost: effective, Edge: edge}
	if !edge.IsPositive() {
		return res, false
	}
	return res, true
}
