package depreciation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// daysPerMonth is the weight of every month under the 30-day convention.
const daysPerMonth = 30

// daysPerYear is the weight of a full year: 12 months of 30 days.
var daysPerYear = decimal.NewFromInt(12 * daysPerMonth)

// CalendarDuration returns the number of days between started and stopped
// (both inclusive) where every month counts exactly 30 days.
//
// A day that is the 30th, the 31st or the last day of its month counts as
// day 30. In regressive mode any other start day counts as day 1, since
// regressive periods are pinned to month boundaries.
//
//	CalendarDuration(2024-01-15, 2024-01-20, linear) = 6
//	CalendarDuration(2024-02-01, 2024-02-29, linear) = 30
//	CalendarDuration(2024-01-31, 2024-03-01, linear) = 1 + 30 + 1 = 32
func CalendarDuration(started, stopped Date, mode Method) (decimal.Decimal, error) {
	if started.After(stopped) {
		return decimal.Zero, &InvalidArgumentError{
			Argument: "started_on",
			Reason:   fmt.Sprintf("%s is after %s", started, stopped),
		}
	}

	var startDay int
	switch mode {
	case MethodLinear:
		startDay = normalizedDay(started, started.Day())
	case MethodRegressive:
		startDay = normalizedDay(started, 1)
	default:
		return decimal.Zero, &InvalidArgumentError{
			Argument: "mode",
			Reason:   fmt.Sprintf("unsupported duration mode %q", mode),
		}
	}
	stopDay := normalizedDay(stopped, stopped.Day())

	if started.SameMonth(stopped) {
		return decimal.NewFromInt(int64(stopDay - startDay + 1)), nil
	}

	days := daysPerMonth - startDay + 1
	cursor := started.BeginningOfMonth()
	last := stopped.BeginningOfMonth()
	for cursor.AddMonths(1).Before(last) {
		cursor = cursor.AddMonths(1)
		days += daysPerMonth
	}
	days += stopDay

	return decimal.NewFromInt(int64(days)), nil
}

// normalizedDay clamps month ends to 30 and returns fallback otherwise.
func normalizedDay(d Date, fallback int) int {
	if d.Day() >= daysPerMonth || d.IsEndOfMonth() {
		return daysPerMonth
	}
	return fallback
}

// periodDuration is CalendarDuration for grid periods, which are always
// well-formed; none-method assets never reach it.
func periodDuration(started, stopped Date, mode Method) decimal.Decimal {
	d, err := CalendarDuration(started, stopped, mode)
	if err != nil {
		return decimal.Zero
	}
	return d
}
