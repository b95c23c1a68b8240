package oracle

import (
	"github.com/AbnerZheng/stablecore/core"
	"github.com/shopspring/decimal"
)

// RateModel is the read contract of a money-market interest model: yearly
// rates as plain fractions of utilization.
type RateModel interface {
	BorrowRate(utilization decimal.Decimal) decimal.Decimal
	SupplyRate(utilization, reserveFactor decimal.Decimal) decimal.Decimal
}

// JumpRateModel is linear in utilization up to Kink, then continues with
// the steeper JumpMultiplier slope.
type JumpRateModel struct {
	BaseRate       decimal.Decimal
	Multiplier     decimal.Decimal
	JumpMultiplier decimal.Decimal
	Kink           decimal.Decimal
}

var _ RateModel = (*JumpRateModel)(nil)

func (m *JumpRateModel) BorrowRate(utilization decimal.Decimal) decimal.Decimal {
	if m.Kink.IsZero() || utilization.LessThanOrEqual(m.Kink) {
		return utilization.Mul(m.Multiplier).Add(m.BaseRate)
	}
	normalRate := m.Kink.Mul(m.Multiplier).Add(m.BaseRate)
	excess := utilization.Sub(m.Kink)
	return excess.Mul(m.JumpMultiplier).Add(normalRate)
}

func (m *JumpRateModel) SupplyRate(utilization, reserveFactor decimal.Decimal) decimal.Decimal {
	rateToPool := m.BorrowRate(utilization).Mul(core.ONE.Sub(reserveFactor))
	return utilization.Mul(rateToPool)
}

// SuggestBonusMalus maps the reserve utilization of a collateral to a
// BaseParams-scaled fee multiplier a keeper can feed into SetBonusMalus:
// at the model's base rate the multiplier is 1, and it grows with the
// borrow rate as hedging capital gets scarcer.
func SuggestBonusMalus(model RateModel, utilization decimal.Decimal) decimal.Decimal {
	return core.BaseParams.Mul(core.ONE.Add(model.BorrowRate(utilization))).Floor()
}
