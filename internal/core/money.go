package core

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as plain JSON numbers, matching the browser client.
	decimal.MarshalJSONWithoutQuotes = true
}

// ValidAmount reports whether d is usable as a money amount: strictly
// positive and within two fractional digits of precision.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}
