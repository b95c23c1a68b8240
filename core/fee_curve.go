package core

import (
	"github.com/shopspring/decimal"
)

// EvaluateFeeCurve maps a hedge ratio to a fee by piecewise-linear
// interpolation over the breakpoints xs with values ys. xs must be strictly
// ascending and the same length as ys; ValidateFeeCurve enforces that at
// configuration time so evaluation never re-checks.
//
// A single-breakpoint curve is constant. A ratio outside [xs[0], xs[last]]
// is extrapolated along the nearest segment's slope.
func EvaluateFeeCurve(ratio decimal.Decimal, xs, ys []decimal.Decimal) decimal.Decimal {
	n := len(xs)
	if n == 1 {
		return ys[0]
	}

	i := n - 2
	for j := 0; j < n-1; j++ {
		if ratio.LessThan(xs[j+1]) {
			i = j
			break
		}
	}

	dx := xs[i+1].Sub(xs[i])
	dy := ys[i+1].Sub(ys[i])
	return ys[i].Add(ratio.Sub(xs[i]).Mul(dy).Div(dx))
}

// ValidateFeeCurve rejects malformed breakpoint arrays at configuration
// time: length mismatch, empty arrays, non-ascending or duplicate xs.
func ValidateFeeCurve(xs, ys []decimal.Decimal) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return ErrInvalidFeeCurve
	}
	for i := 1; i < len(xs); i++ {
		if !xs[i].GreaterThan(xs[i-1]) {
			return ErrInvalidFeeCurve
		}
	}
	return nil
}
