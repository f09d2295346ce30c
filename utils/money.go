package utils

import "github.com/shopspring/decimal"

// Round2 rounds d to 2 decimal places (half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Amount renders d the way the gateway and invoices expect it: always 2 decimals.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
