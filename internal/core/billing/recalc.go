// Package billing holds the pure money and numbering rules for bills.
package billing

import (
	"github.com/shopspring/decimal"

	"transport-billing/internal/core/domain"
)

// CurrencyPlaces is the number of decimal places kept on every amount
const CurrencyPlaces = 2

// DefaultGSTRate is applied when no rate is configured
var DefaultGSTRate = decimal.RequireFromString("0.18")

// Recalculate derives SubTotal, GSTAmount and TotalAmount from the
// quantity, rate and GST rate of b. Each amount is rounded on its own,
// half away from zero, so TotalAmount is the sum of the rounded parts.
func Recalculate(b domain.Bill) domain.Bill {
	qty := decimal.NewFromInt(int64(b.NumberOfPackages))

	b.SubTotal = qty.Mul(b.RatePerPackage).Round(CurrencyPlaces)
	b.GSTAmount = b.SubTotal.Mul(b.GSTRate).Round(CurrencyPlaces)
	b.TotalAmount = b.SubTotal.Add(b.GSTAmount).Round(CurrencyPlaces)
	return b
}

// NeedsRecalculation reports whether next must be recalculated before it is
// saved. prev is the persisted state, nil for a bill that was never saved.
func NeedsRecalculation(prev *domain.Bill, next domain.Bill) bool {
	if prev == nil {
		return true
	}
	return prev.NumberOfPackages != next.NumberOfPackages ||
		!prev.RatePerPackage.Equal(next.RatePerPackage)
}

// IsConsistent reports whether the derived amounts of b match its inputs
func IsConsistent(b domain.Bill) bool {
	r := Recalculate(b)
	return r.SubTotal.Equal(b.SubTotal) &&
		r.GSTAmount.Equal(b.GSTAmount) &&
		r.TotalAmount.Equal(b.TotalAmount)
}
