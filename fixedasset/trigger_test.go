package fixedasset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
)

func TestNeedsRecompute(t *testing.T) {
	base := laptop()
	base.StoppedOn = depreciation.NewDate(2028, 12, 31)

	tests := []struct {
		name        string
		mutate      func(a *fixedasset.Asset)
		hasSchedule bool
		want        bool
	}{
		{"nothing changed", func(a *fixedasset.Asset) {}, true, false},
		{"name only", func(a *fixedasset.Asset) { a.Name = "Other" }, true, false},
		{"state only", func(a *fixedasset.Asset) { a.State = fixedasset.StateWaiting }, true, false},
		{"no schedule yet", func(a *fixedasset.Asset) {}, false, true},
		{"amount", func(a *fixedasset.Asset) { a.DepreciableAmount = dec("10000.01") }, true, true},
		{"started_on", func(a *fixedasset.Asset) { a.StartedOn = a.StartedOn.AddDays(1) }, true, true},
		{"stopped_on", func(a *fixedasset.Asset) { a.StoppedOn = a.StoppedOn.AddDays(-1) }, true, true},
		{"method", func(a *fixedasset.Asset) { a.Method = depreciation.MethodRegressive }, true, true},
		{"period", func(a *fixedasset.Asset) { a.Period = depreciation.GranularityMonthly }, true, true},
		{"percentage", func(a *fixedasset.Asset) { a.Percentage = dec("25") }, true, true},
		{"coefficient", func(a *fixedasset.Asset) { a.FiscalCoefficient = dec("2.25") }, true, true},
		{"currency", func(a *fixedasset.Asset) { a.Currency = "USD" }, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			assert.Equal(t, tt.want, fixedasset.NeedsRecompute(&base, &next, tt.hasSchedule))
		})
	}
}

func TestNeedsRecompute_NewAsset(t *testing.T) {
	a := laptop()
	assert.True(t, fixedasset.NeedsRecompute(nil, &a, false))
}

func TestNeedsRecompute_EqualDecimalsWithDifferentScale(t *testing.T) {
	prev := laptop()
	next := prev
	next.DepreciableAmount = dec("10000.00")

	assert.False(t, fixedasset.NeedsRecompute(&prev, &next, true))
}
