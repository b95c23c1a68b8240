package core

import (
	"github.com/shopspring/decimal"
)

const (
	SECONDS_PER_YEAR = 31_536_000
)

// BaseParams is the scale of every fee, ratio and multiplier quantity
// (targetHAHedge, bonus/malus, fee-curve outputs). Base is the scale of the
// san-token exchange rate. Amounts of stablecoin value are plain decimal
// quantities; amounts of collateral are expressed in raw token units, with
// CollatBase (10^decimals) converting to whole tokens.
var (
	BaseParams = decimal.NewFromInt(1_000_000_000)
	Base       = decimal.New(1, 18)

	ONE = decimal.NewFromInt(1)

	// MAX_CONF_INTERVAL is the default confidence spread of price feeds.
	MAX_CONF_INTERVAL = decimal.NewFromFloat(0.05)
)
