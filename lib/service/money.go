package service

import "github.com/shopspring/decimal"

// ledgerTolerance is the smallest unbalanced difference a posting may carry.
// Amounts have at most 4 places, so any difference is either zero or at least this.
var ledgerTolerance = decimal.New(1, -4)

const ledgerPlaces = 4

// moneyPlaces is the precision of payroll inputs and results.
const moneyPlaces = 2

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// optional dereferences d, treating nil as zero.
func optional(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
