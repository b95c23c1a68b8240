package core

import (
	"github.com/shopspring/decimal"
)

// ComputeHedgeRatio returns the fraction of the user stock currently covered
// by perpetual-futures hedging demand, in [0, BaseParams].
//
// target is the stock the HAs are expected to cover. When target is zero
// there is nothing to hedge and the book counts as fully hedged; the
// short-circuit also keeps the division below well-defined.
func ComputeHedgeRatio(stocksUsers, targetHAHedge, totalHedgeAmount decimal.Decimal) decimal.Decimal {
	target := targetHAHedge.Mul(stocksUsers).Div(BaseParams)
	if target.IsZero() {
		return BaseParams
	}
	if target.GreaterThan(totalHedgeAmount) {
		return totalHedgeAmount.Mul(BaseParams).Div(target).Floor()
	}
	return BaseParams
}
