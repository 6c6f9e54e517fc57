package depreciation

import (
	"github.com/shopspring/decimal"
)

// linearAmounts spreads base over the open slots in proportion to their
// duration. Each share is computed from the base available when the loop
// starts, capped by what is left, and rounded to the currency. The last slot
// takes exactly what is left so the schedule sums to the base.
func linearAmounts(open []gridPeriod, base, duration decimal.Decimal, cur Currency) []Period {
	periods := make([]Period, 0, len(open))
	remaining := base
	for i, slot := range open {
		if !remaining.IsPositive() {
			break
		}

		var amount decimal.Decimal
		if i == len(open)-1 {
			amount = remaining
		} else {
			share := cur.Round(base.Mul(slot.Duration).Div(duration))
			amount = minDecimal(remaining, share)
		}

		remaining = remaining.Sub(amount)
		periods = append(periods, newPeriod(slot, amount))
	}
	return periods
}
