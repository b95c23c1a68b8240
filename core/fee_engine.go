package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ComputeMintFee returns the BaseParams-scaled fee charged on minting
// amount of stable value against this collateral.
//
// Single-breakpoint curves are constant, so the hedging book is not
// consulted at all. Otherwise the hedge ratio is taken against the
// post-mint stock level and run through the mint curve. The keeper
// bonus/malus multiplier applies last.
func (c *Collateral) ComputeMintFee(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	d := &c.MintBurnData

	var fee decimal.Decimal
	if len(d.XFeeMint) == 1 {
		fee = d.YFeeMint[0]
	} else {
		totalHedge, err := c.perpetualManager.TotalHedgeAmount(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		ratio := ComputeHedgeRatio(c.StocksUsers.Add(amount), d.TargetHAHedge, totalHedge)
		fee = EvaluateFeeCurve(ratio, d.XFeeMint, d.YFeeMint)
	}

	return clampFee(fee.Mul(d.BonusMalusMint).Div(BaseParams).Floor()), nil
}

// ComputeBurnFee mirrors ComputeMintFee for the burn direction. The hedge
// ratio is taken against stocksUsers minus the burned amount; burning more
// than is on record is rejected before any fee math runs.
func (c *Collateral) ComputeBurnFee(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.GreaterThan(c.StocksUsers) {
		return decimal.Zero, ErrInsufficientBacking
	}

	d := &c.MintBurnData

	var fee decimal.Decimal
	if len(d.XFeeBurn) == 1 {
		fee = d.YFeeBurn[0]
	} else {
		totalHedge, err := c.perpetualManager.TotalHedgeAmount(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		ratio := ComputeHedgeRatio(c.StocksUsers.Sub(amount), d.TargetHAHedge, totalHedge)
		fee = EvaluateFeeCurve(ratio, d.XFeeBurn, d.YFeeBurn)
	}

	return clampFee(fee.Mul(d.BonusMalusBurn).Div(BaseParams).Floor()), nil
}

// clampFee keeps a fee inside [0, BaseParams]. Extrapolated curve segments
// and the keeper multiplier can otherwise push the product past 100%, which
// would turn the net amounts negative downstream.
func clampFee(fee decimal.Decimal) decimal.Decimal {
	if fee.IsNegative() {
		return decimal.Zero
	}
	if fee.GreaterThan(BaseParams) {
		return BaseParams
	}
	return fee
}
