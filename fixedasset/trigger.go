package fixedasset

// NeedsRecompute decides whether saving next over prev must regenerate the
// schedule. It replaces attribute dirty-tracking with an explicit list of the
// fields the schedule depends on.
func NeedsRecompute(prev, next *Asset, hasSchedule bool) bool {
	if prev == nil || !hasSchedule {
		return true
	}
	return !prev.DepreciableAmount.Equal(next.DepreciableAmount) ||
		!prev.StartedOn.Equal(next.StartedOn) ||
		!prev.StoppedOn.Equal(next.StoppedOn) ||
		prev.Method != next.Method ||
		prev.Period != next.Period ||
		!prev.Percentage.Equal(next.Percentage) ||
		!prev.FiscalCoefficient.Equal(next.FiscalCoefficient) ||
		prev.Currency != next.Currency
}
