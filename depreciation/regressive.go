package depreciation

import (
	"github.com/shopspring/decimal"
)

// regressiveAmounts applies the declining-balance rule: each slot takes
// remaining × rate × duration/360 where rate is the larger of the regressive
// rate (percentage × coefficient) and the straight-line rate over the years
// still to run. Slots rounding to zero are skipped. The last slot takes the
// remaining base.
func regressiveAmounts(open []gridPeriod, base decimal.Decimal, a Asset) []Period {
	regressiveRate := a.Percentage.Mul(a.FiscalCoefficient)
	perYear := a.Granularity.PerYear()

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
			amount = regressiveAmount(remaining, slot, regressiveRate, slot.Index/perYear, a)
		}
		if amount.IsZero() {
			continue
		}

		remaining = remaining.Sub(amount)
		periods = append(periods, newPeriod(slot, amount))
	}
	return periods
}

func regressiveAmount(remaining decimal.Decimal, slot gridPeriod, regressiveRate decimal.Decimal, elapsedYears int, a Asset) decimal.Decimal {
	rate, exhausted := remainingLinearRate(a.Percentage, elapsedYears)
	if exhausted {
		return remaining
	}
	if regressiveRate.GreaterThan(rate) {
		rate = regressiveRate
	}

	amount := remaining.Mul(rate).Div(hundred).Mul(slot.Duration).Div(daysPerYear)
	return minDecimal(remaining, a.Currency.Round(amount))
}

// remainingLinearRate is the straight-line rate that would depreciate the
// rest of the base over the years left: 100 × p / (100 − elapsed × p),
// rounded to 2 decimals. When no year is left (denominator <= 0) the slot
// must absorb everything and exhausted is true.
func remainingLinearRate(percentage decimal.Decimal, elapsedYears int) (decimal.Decimal, bool) {
	denominator := hundred.Sub(decimal.NewFromInt(int64(elapsedYears)).Mul(percentage))
	if !denominator.IsPositive() {
		return decimal.Zero, true
	}
	return hundred.Mul(percentage).Div(denominator).Round(2), false
}
