package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Oracle is the narrow read surface the engine needs from a price feed.
// Implementations are expected to round against the caller: the lower quote
// undervalues incoming collateral on mint, the upper price overvalues the
// collateral released on burn.
type Oracle interface {
	// ReadQuoteLower converts an amount of collateral, in raw token units,
	// to stable value using the conservative-low price.
	ReadQuoteLower(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)

	// ReadUpper returns the conservative-high price of one whole collateral
	// token, in stable value.
	ReadUpper(ctx context.Context) (decimal.Decimal, error)
}
