/*
scheduler.go - Depreciation schedule generation

ALGORITHM:
  1. Validate the snapshot (base, method, granularity, rates, dates, fiscal
     windows, locked periods).
  2. Method none: echo the locked periods, nothing else.
  3. Build the period grid over [DepreciationStart, StoppedOn], aligned to
     the fiscal windows, and sum its 30-day-month durations.
  4. Subtract locked periods: remaining base and remaining duration.
  5. Remove the locked time span from the grid and compute one amount per
     remaining slot with the method's rule (linear.go, regressive.go). The
     last slot always receives the exact remaining base, which absorbs every
     rounding cent.
  6. Merge locked and generated periods chronologically, renumber positions
     1..N and accumulate the depreciated amount.

INVARIANTS:
  - sum(amount) == depreciable amount whenever the grid is not exhausted
  - DepreciatedAmount[i] == DepreciatedAmount[i-1] + Amount[i]
  - locked periods keep their dates, amount, duration and lock flag; Position
    and DepreciatedAmount are derived fields and recomputed for every period
  - inputs are never mutated; the result is a fresh slice

Concurrency: Depreciate is a pure function. Callers must serialize
recomputation of a single asset themselves.
*/
package depreciation

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Depreciate returns the full ordered schedule of the asset. On error no
// schedule is returned and the error is a *SchedulerError.
func Depreciate(asset Asset) ([]Period, error) {
	if err := validateAsset(asset); err != nil {
		return nil, &SchedulerError{AssetID: asset.ID, Err: err}
	}

	locked := sortedLocked(asset.Periods)
	if err := validateLocked(asset, locked); err != nil {
		return nil, &SchedulerError{AssetID: asset.ID, Err: err}
	}

	if asset.Method == MethodNone {
		return finalize(locked, nil), nil
	}

	grid := buildGrid(asset.DepreciationStart(), asset.StoppedOn, asset.Granularity, asset.FiscalYears, asset.Method)

	remainingBase := asset.DepreciableAmount
	remainingDuration := totalDuration(grid)
	for _, p := range locked {
		remainingBase = remainingBase.Sub(p.Amount)
		remainingDuration = remainingDuration.Sub(p.Duration)
	}

	var generated []Period
	if remainingBase.IsPositive() && remainingDuration.IsPositive() {
		open := carveLocked(grid, locked, asset.Method)
		switch asset.Method {
		case MethodLinear:
			generated = linearAmounts(open, remainingBase, remainingDuration, asset.Currency)
		case MethodRegressive:
			generated = regressiveAmounts(open, remainingBase, asset)
		}
	}

	return finalize(locked, generated), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateAsset(a Asset) error {
	if a.DepreciableAmount.IsNegative() {
		return invalidState("depreciable_amount", "must be >= 0, got %s", a.DepreciableAmount)
	}
	if !a.Method.Valid() {
		return invalidState("depreciation_method", "unrecognized method %q", a.Method)
	}
	if a.Method == MethodNone {
		return nil
	}

	if !a.Granularity.Valid() {
		return invalidState("depreciation_period", "unrecognized granularity %q", a.Granularity)
	}
	if !a.Percentage.IsPositive() {
		return invalidState("depreciation_percentage", "must be > 0, got %s", a.Percentage)
	}
	if a.Method == MethodRegressive && !a.FiscalCoefficient.IsPositive() {
		return invalidState("depreciation_fiscal_coefficient", "must be > 0 for regressive method, got %s", a.FiscalCoefficient)
	}
	if a.Currency.Precision < 0 {
		return invalidState("currency", "negative precision %d for %s", a.Currency.Precision, a.Currency.Code)
	}
	if a.StartedOn.IsZero() {
		return invalidState("started_on", "is required")
	}
	if a.StoppedOn.IsZero() {
		return invalidState("stopped_on", "is required")
	}
	if a.StoppedOn.Before(a.StartedOn) {
		return invalidState("stopped_on", "%s is before started_on %s", a.StoppedOn, a.StartedOn)
	}
	return validateFiscalYears(a.FiscalYears)
}

func sortedLocked(periods []Period) []Period {
	var locked []Period
	for _, p := range periods {
		if p.Locked {
			locked = append(locked, p)
		}
	}
	sort.SliceStable(locked, func(i, j int) bool {
		return locked[i].StartedOn.Before(locked[j].StartedOn)
	})
	return locked
}

// validateLocked rejects locked periods that overlap, leave gaps, carry
// negative amounts or sum to more than the depreciable amount.
func validateLocked(a Asset, locked []Period) error {
	sum := decimal.Zero
	for i, p := range locked {
		if p.StartedOn.IsZero() || p.StoppedOn.IsZero() || p.StoppedOn.Before(p.StartedOn) {
			return invalidState("periods", "locked period %s..%s is malformed", p.StartedOn, p.StoppedOn)
		}
		if p.Amount.IsNegative() {
			return invalidState("periods", "locked period %s..%s has negative amount %s", p.StartedOn, p.StoppedOn, p.Amount)
		}
		if i > 0 {
			prev := locked[i-1]
			if p.StartedOn.BeforeOrEqual(prev.StoppedOn) {
				return invalidState("periods", "locked period %s..%s overlaps %s..%s", p.StartedOn, p.StoppedOn, prev.StartedOn, prev.StoppedOn)
			}
			if !p.StartedOn.Equal(prev.StoppedOn.AddDays(1)) {
				return invalidState("periods", "gap between locked periods ending %s and starting %s", prev.StoppedOn, p.StartedOn)
			}
		}
		sum = sum.Add(p.Amount)
	}
	if sum.GreaterThan(a.DepreciableAmount) {
		return invalidState("periods", "locked amounts %s exceed depreciable amount %s", sum, a.DepreciableAmount)
	}
	return nil
}

// =============================================================================
// ASSEMBLY
// =============================================================================

// finalize merges locked and generated periods chronologically, renumbers
// positions and accumulates the depreciated amount.
func finalize(locked, generated []Period) []Period {
	out := make([]Period, 0, len(locked)+len(generated))
	out = append(out, locked...)
	out = append(out, generated...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedOn.Before(out[j].StartedOn)
	})

	cumulative := decimal.Zero
	for i := range out {
		cumulative = cumulative.Add(out[i].Amount)
		out[i].Position = i + 1
		out[i].DepreciatedAmount = cumulative
	}
	return out
}

func newPeriod(slot gridPeriod, amount decimal.Decimal) Period {
	return Period{
		StartedOn: slot.StartedOn,
		StoppedOn: slot.StoppedOn,
		Amount:    amount,
		Duration:  slot.Duration,
	}
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
