package depreciation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUATION - Queries over a computed schedule
// =============================================================================

// PeriodOn returns the period containing on. When several match (which only
// happens with a malformed schedule) the one with the highest position wins.
func PeriodOn(periods []Period, on Date) (Period, bool) {
	var (
		found Period
		ok    bool
	)
	for _, p := range periods {
		if p.Contains(on) && (!ok || p.Position > found.Position) {
			found, ok = p, true
		}
	}
	return found, ok
}

// AlreadyDepreciated returns the amount depreciated by the end of the period
// containing on: zero before the asset started, the full base once the
// schedule is over.
func AlreadyDepreciated(started Date, base decimal.Decimal, periods []Period, on Date) decimal.Decimal {
	if on.Before(started) {
		return decimal.Zero
	}
	if p, ok := PeriodOn(periods, on); ok {
		return p.DepreciatedAmount
	}
	return base
}

// NetBookValue is what remains to depreciate at on: the base before the asset
// started, zero once the schedule is over.
func NetBookValue(started Date, base decimal.Decimal, periods []Period, on Date) decimal.Decimal {
	return base.Sub(AlreadyDepreciated(started, base, periods, on))
}
