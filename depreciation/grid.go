package depreciation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FISCAL WINDOWS
// =============================================================================

// validateFiscalYears checks that the caller-supplied windows are well formed,
// ordered and contiguous.
func validateFiscalYears(fys []FiscalYear) error {
	for i, fy := range fys {
		if fy.StartedOn.IsZero() || fy.StoppedOn.IsZero() {
			return invalidState("fiscal_years", "window %d has no bounds", i)
		}
		if fy.StoppedOn.Before(fy.StartedOn) {
			return invalidState("fiscal_years", "window %d stops (%s) before it starts (%s)", i, fy.StoppedOn, fy.StartedOn)
		}
		if i > 0 && !fy.StartedOn.Equal(fys[i-1].StoppedOn.AddDays(1)) {
			return invalidState("fiscal_years", "window %d (%s) does not follow window %d (%s)", i, fy.StartedOn, i-1, fys[i-1].StoppedOn)
		}
	}
	return nil
}

// coveringFiscalYears returns contiguous windows covering [from, to]. Windows
// missing before the first or after the last supplied one are extrapolated
// as 12-month windows; with nothing supplied, calendar years are used.
func coveringFiscalYears(fys []FiscalYear, from, to Date) []FiscalYear {
	windows := make([]FiscalYear, 0, len(fys)+2)
	for _, fy := range fys {
		if fy.StoppedOn.Before(from) || fy.StartedOn.After(to) {
			continue
		}
		windows = append(windows, fy)
	}

	if len(windows) == 0 {
		anchor := NewDate(from.Year(), 1, 1)
		if len(fys) > 0 {
			anchor = extrapolateAnchor(fys, from)
		}
		windows = append(windows, FiscalYear{StartedOn: anchor, StoppedOn: anchor.AddYears(1).AddDays(-1)})
	}

	for windows[0].StartedOn.After(from) {
		stop := windows[0].StartedOn.AddDays(-1)
		prev := FiscalYear{StartedOn: windows[0].StartedOn.AddYears(-1), StoppedOn: stop}
		windows = append([]FiscalYear{prev}, windows...)
	}
	for windows[len(windows)-1].StoppedOn.Before(to) {
		start := windows[len(windows)-1].StoppedOn.AddDays(1)
		windows = append(windows, FiscalYear{StartedOn: start, StoppedOn: start.AddYears(1).AddDays(-1)})
	}
	return windows
}

// extrapolateAnchor finds the start of the 12-month window containing on,
// stepping from the supplied windows' boundaries.
func extrapolateAnchor(fys []FiscalYear, on Date) Date {
	if last := fys[len(fys)-1]; on.After(last.StoppedOn) {
		anchor := last.StoppedOn.AddDays(1)
		for anchor.AddYears(1).BeforeOrEqual(on) {
			anchor = anchor.AddYears(1)
		}
		return anchor
	}
	anchor := fys[0].StartedOn
	for anchor.After(on) {
		anchor = anchor.AddYears(-1)
	}
	return anchor
}

// =============================================================================
// PERIOD GRID
// =============================================================================

// gridPeriod is one slot of the schedule before amounts are assigned.
type gridPeriod struct {
	StartedOn Date
	StoppedOn Date
	Duration  decimal.Decimal

	// Index of the slot in the full grid; drives the regressive elapsed-year
	// count even when earlier slots are locked.
	Index int
}

// buildGrid splits [from, to] into periods of the given granularity, each
// aligned to the boundaries of its fiscal window. The last period is clamped
// to to.
func buildGrid(from, to Date, g Granularity, fys []FiscalYear, mode Method) []gridPeriod {
	if to.Before(from) {
		return nil
	}
	step := g.Months()

	var grid []gridPeriod
	for _, fy := range coveringFiscalYears(fys, from, to) {
		for i := 0; ; i++ {
			start := fy.StartedOn.AddMonths(i * step)
			if start.After(fy.StoppedOn) {
				break
			}
			stop := MinDate(fy.StartedOn.AddMonths((i+1)*step).AddDays(-1), fy.StoppedOn)

			start = MaxDate(start, from)
			stop = MinDate(stop, to)
			if stop.Before(start) {
				continue
			}
			grid = append(grid, gridPeriod{
				StartedOn: start,
				StoppedOn: stop,
				Duration:  periodDuration(start, stop, mode),
				Index:     len(grid),
			})
		}
	}
	return grid
}

// totalDuration sums the weights of all slots.
func totalDuration(grid []gridPeriod) decimal.Decimal {
	total := decimal.Zero
	for _, p := range grid {
		total = total.Add(p.Duration)
	}
	return total
}

// carveLocked removes the time span covered by locked periods from the grid.
// Slots straddling the span keep the uncovered part, with its own duration.
func carveLocked(grid []gridPeriod, locked []Period, mode Method) []gridPeriod {
	if len(locked) == 0 {
		return grid
	}
	spanStart := locked[0].StartedOn
	spanStop := locked[len(locked)-1].StoppedOn

	open := make([]gridPeriod, 0, len(grid))
	for _, p := range grid {
		if p.StoppedOn.Before(spanStart) || p.StartedOn.After(spanStop) {
			open = append(open, p)
			continue
		}
		if p.StartedOn.Before(spanStart) {
			stop := spanStart.AddDays(-1)
			open = append(open, gridPeriod{
				StartedOn: p.StartedOn,
				StoppedOn: stop,
				Duration:  periodDuration(p.StartedOn, stop, mode),
				Index:     p.Index,
			})
		}
		if p.StoppedOn.After(spanStop) {
			start := spanStop.AddDays(1)
			open = append(open, gridPeriod{
				StartedOn: start,
				StoppedOn: p.StoppedOn,
				Duration:  periodDuration(start, p.StoppedOn, mode),
				Index:     p.Index,
			})
		}
	}
	return open
}
