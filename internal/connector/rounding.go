package connector

import "github.com/shopspring/decimal"

// roundNearest rounds num to the nearest multiple of increment using
// half-to-even (banker's) rounding, matching the source's
// `Decimal(round(num/tick, 0)) * tick` — Python's round() is banker's
// rounding, so this uses decimal.RoundBank rather than plain truncation or
// math.Round (which rounds half away from zero and would violate testable
// property 9: round_nearest(x,t)/t must be an exact integer).
func roundNearest(num, increment decimal.Decimal) decimal.Decimal {
	if increment.IsZero() {
		return num
	}
	quotient := num.Div(increment)
	rounded := quotient.RoundBank(0)
	return rounded.Mul(increment)
}
