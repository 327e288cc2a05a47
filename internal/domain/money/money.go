// Package money provides currency-precise arithmetic helpers for the
// analytics rollups and goal math. All presentation amounts go through
// Round2; ratios (progress, percentages) go through Round4.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to 2 decimal places using half-up rounding.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round4 rounds a ratio to 4 decimal places using half-up rounding.
func Round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

// Sum adds amounts without accumulating float error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}

// Ratio returns numerator/denominator rounded to 4 decimal places,
// or 0 when the denominator is not positive.
func Ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	num := decimal.NewFromFloat(numerator)
	den := decimal.NewFromFloat(denominator)
	f, _ := num.Div(den).Round(4).Float64()
	return f
}
