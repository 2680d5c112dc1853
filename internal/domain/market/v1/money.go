package marketv1

import "github.com/shopspring/decimal"

// IsMoney reports whether d is representable as fixed-point currency with two
// decimal places. Balances and prices must satisfy this everywhere.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
