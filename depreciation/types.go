/*
Package depreciation computes fixed-asset depreciation schedules.

PURPOSE:
  Given a snapshot of an asset (depreciable base, dates, method, granularity,
  percentage, fiscal coefficient) and the periods already locked in the
  ledger, Depreciate returns the complete ordered schedule. The package is a
  pure function of its inputs: no I/O, no logging, no shared state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Method:      linear | regressive | none
  - Granularity: monthly | quarterly | yearly
  - Currency:    ISO code + minor-unit precision used for rounding
  - Asset:       the input snapshot
  - Period:      one line of the schedule (input when locked, output always)
  - FiscalYear:  a fiscal window supplied by the caller

CALENDAR:
  Durations follow the 30-day-month convention: every month weighs 30 days
  and a year weighs 360 days. See duration.go.

USAGE:
  periods, err := depreciation.Depreciate(depreciation.Asset{
      DepreciableAmount: decimal.NewFromInt(10000),
      Currency:          depreciation.Currency{Code: "EUR", Precision: 2},
      StartedOn:         depreciation.NewDate(2024, time.January, 1),
      StoppedOn:         depreciation.NewDate(2028, time.December, 31),
      Method:            depreciation.MethodLinear,
      Granularity:       depreciation.GranularityYearly,
      Percentage:        decimal.NewFromInt(20),
  })

SEE ALSO:
  - duration.go:   CalendarDuration
  - grid.go:       fiscal-aligned period grid
  - scheduler.go:  Depreciate
  - valuation.go:  net book value queries over a schedule
*/
package depreciation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// METHOD - Tagged variant dispatched by Depreciate
// =============================================================================

type Method string

const (
	MethodLinear     Method = "linear"
	MethodRegressive Method = "regressive"
	MethodNone       Method = "none"
)

func (m Method) Valid() bool {
	switch m {
	case MethodLinear, MethodRegressive, MethodNone:
		return true
	}
	return false
}

// =============================================================================
// GRANULARITY - Length of one depreciation period
// =============================================================================

type Granularity string

const (
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

// Months returns the number of calendar months in one period.
func (g Granularity) Months() int {
	switch g {
	case GranularityMonthly:
		return 1
	case GranularityQuarterly:
		return 3
	case GranularityYearly:
		return 12
	}
	return 0
}

// PerYear returns how many periods make one year.
func (g Granularity) PerYear() int {
	if m := g.Months(); m > 0 {
		return 12 / m
	}
	return 0
}

func (g Granularity) Valid() bool { return g.Months() > 0 }

// =============================================================================
// CURRENCY
// =============================================================================

// Currency carries the minor-unit precision used to round every amount.
type Currency struct {
	Code      string
	Precision int32
}

// Round rounds half away from zero to the currency precision.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Precision)
}

// =============================================================================
// ASSET - Input snapshot, owned by the caller
// =============================================================================

type Asset struct {
	ID                string
	DepreciableAmount decimal.Decimal
	Currency          Currency
	StartedOn         Date
	StoppedOn         Date
	Method            Method
	Granularity       Granularity

	// Annual rate, e.g. 20 means 20% per year.
	Percentage decimal.Decimal

	// Regressive only, e.g. 1.75.
	FiscalCoefficient decimal.Decimal

	// Fiscal windows used to align period boundaries. May be empty.
	FiscalYears []FiscalYear

	// Periods already committed. Only locked ones are consulted; the others
	// are discarded and regenerated.
	Periods []Period
}

// DepreciationStart is the first day of the grid: the literal start date for
// linear, the beginning of that month for regressive.
func (a Asset) DepreciationStart() Date {
	if a.Method == MethodRegressive {
		return a.StartedOn.BeginningOfMonth()
	}
	return a.StartedOn
}

// LockedPeriods returns the locked periods of the snapshot, in input order.
func (a Asset) LockedPeriods() []Period {
	var locked []Period
	for _, p := range a.Periods {
		if p.Locked {
			locked = append(locked, p)
		}
	}
	return locked
}

// =============================================================================
// PERIOD - One line of a schedule
// =============================================================================

type Period struct {
	Position  int
	StartedOn Date
	StoppedOn Date // inclusive

	Amount decimal.Decimal

	// Cumulative amount depreciated up to and including this period.
	DepreciatedAmount decimal.Decimal

	// Locked periods are already accounted and never recomputed.
	Locked bool

	// Weight of the period under the 30-day-month convention.
	Duration decimal.Decimal
}

// Contains returns true if on is within [StartedOn, StoppedOn].
func (p Period) Contains(on Date) bool {
	return on.AfterOrEqual(p.StartedOn) && on.BeforeOrEqual(p.StoppedOn)
}

// =============================================================================
// FISCAL YEAR - Caller-supplied window
// =============================================================================

type FiscalYear struct {
	StartedOn Date
	StoppedOn Date
}

func (fy FiscalYear) Contains(on Date) bool {
	return on.AfterOrEqual(fy.StartedOn) && on.BeforeOrEqual(fy.StoppedOn)
}
