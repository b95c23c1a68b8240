package core

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SLPData is the liquidity-provider side of a collateral ledger. Fractions
// are BaseParams-scaled; FeesAside and LockedInterests are collateral
// amounts waiting to be folded into the san rate by a keeper.
type SLPData struct {
	// Slippage is charged on san-token withdrawals when the collateral is
	// not fully covered.
	Slippage decimal.Decimal `json:"slippage"`

	// FeesForSLPs is the share of mint/burn fees earmarked for liquidity
	// providers; InterestsForSLPs the share of strategy interest.
	FeesForSLPs      decimal.Decimal `json:"feesForSLPs"`
	InterestsForSLPs decimal.Decimal `json:"interestsForSLPs"`

	// MaxInterestsDistributed bounds how much a single accrual may push
	// into the san rate; the surplus waits in LockedInterests.
	MaxInterestsDistributed decimal.Decimal `json:"maxInterestsDistributed"`

	FeesAside       decimal.Decimal `json:"feesAside"`
	LockedInterests decimal.Decimal `json:"lockedInterests"`

	LastUpdate int64 `json:"lastUpdate"`
}

func (j SLPData) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *SLPData) Scan(value any) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}

func (s *SLPData) Validate() error {
	for _, frac := range []decimal.Decimal{s.Slippage, s.FeesForSLPs, s.InterestsForSLPs} {
		if frac.IsNegative() || frac.GreaterThan(BaseParams) {
			return ErrInvalidConfig
		}
	}
	if s.MaxInterestsDistributed.IsNegative() {
		return ErrInvalidConfig
	}
	return nil
}

// accrueInterest folds fresh strategy interest into the san rate. The SLP
// share of the interest plus any previously locked remainder is distributed
// up to MaxInterestsDistributed; the rest stays locked. With no san tokens
// outstanding everything stays locked.
func (c *Collateral) accrueInterest(amount decimal.Decimal) decimal.Decimal {
	forSLPs := amount.Mul(c.SLPData.InterestsForSLPs).Div(BaseParams).Floor()
	pending := c.SLPData.LockedInterests.Add(forSLPs)

	if c.SanTokenSupply.IsZero() {
		c.SLPData.LockedInterests = pending
		return decimal.Zero
	}

	distributed := pending
	if c.SLPData.MaxInterestsDistributed.IsPositive() && distributed.GreaterThan(c.SLPData.MaxInterestsDistributed) {
		distributed = c.SLPData.MaxInterestsDistributed
	}
	c.SLPData.LockedInterests = pending.Sub(distributed)

	c.SanRate = c.SanRate.Add(distributed.Mul(Base).Div(c.SanTokenSupply).Floor())
	return distributed
}

// distributeFeesAside moves accumulated mint/burn fees into the san rate.
func (c *Collateral) distributeFeesAside() decimal.Decimal {
	if c.SanTokenSupply.IsZero() || c.SLPData.FeesAside.IsZero() {
		return decimal.Zero
	}
	distributed := c.SLPData.FeesAside
	c.SLPData.FeesAside = decimal.Zero
	c.SanRate = c.SanRate.Add(distributed.Mul(Base).Div(c.SanTokenSupply).Floor())
	return distributed
}

// signalLoss socializes a collateral loss across san-token holders by
// lowering the san rate, the way an underwater strategy reports slippage.
func (c *Collateral) signalLoss(loss decimal.Decimal) error {
	if c.SanTokenSupply.IsZero() {
		return ErrNoSanTokenSupply
	}
	decrement := loss.Mul(Base).Div(c.SanTokenSupply).Floor()
	if decrement.GreaterThanOrEqual(c.SanRate) {
		return ErrSanRateDeflated
	}
	c.SanRate = c.SanRate.Sub(decrement)
	return nil
}
