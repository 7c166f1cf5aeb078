// Package mathutil provides currency arithmetic helpers.
package mathutil

import (
	"github.com/shopspring/decimal"
)

// RoundHalfUp rounds a non-negative amount to the nearest whole currency unit,
// with .5 rounding up. Negative amounts round half away from zero.
func RoundHalfUp(val decimal.Decimal) int64 {
	return val.Round(0).IntPart()
}

// DivideEvenly splits amount into parts equal shares, keeping precision
// fractional digits. parts must be positive. The result is in canonical form.
func DivideEvenly(amount int64, parts int, precision int32) decimal.Decimal {
	return Canonical(decimal.NewFromInt(amount).DivRound(decimal.NewFromInt(int64(parts)), precision))
}

// Canonical strips trailing fractional zeros so that equal values share one
// representation, the one a decimal decodes to from its own string form.
func Canonical(val decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(val.String())
}

// MaxInt64 returns the larger of two values.
func MaxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// AbsInt64 returns the absolute value of v.
func AbsInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// RoundingDrift is the difference between the sum of count rounded
// installments and the rounded exact total.
func RoundingDrift(roundedInstallment int64, count int, exactTotal decimal.Decimal) int64 {
	return roundedInstallment*int64(count) - RoundHalfUp(exactTotal)
}
