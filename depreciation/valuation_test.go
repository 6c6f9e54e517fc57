package depreciation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/depreciation-engine/depreciation"
)

func TestValuation_OverLinearSchedule(t *testing.T) {
	asset := linearAsset("10000", date(2024, 1, 1), "20", depreciation.GranularityYearly)
	periods, err := depreciation.Depreciate(asset)
	require.NoError(t, err)

	tests := []struct {
		name        string
		on          depreciation.Date
		depreciated string
		netBook     string
	}{
		{"before start", date(2023, 12, 31), "0", "10000"},
		{"first year", date(2024, 6, 15), "2000", "8000"},
		{"third year end", date(2026, 12, 31), "6000", "4000"},
		{"after schedule", date(2030, 1, 1), "10000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := depreciation.AlreadyDepreciated(asset.StartedOn, asset.DepreciableAmount, periods, tt.on)
			assert.True(t, got.Equal(dec(tt.depreciated)), "already depreciated: got %s", got)

			nbv := depreciation.NetBookValue(asset.StartedOn, asset.DepreciableAmount, periods, tt.on)
			assert.True(t, nbv.Equal(dec(tt.netBook)), "net book value: got %s", nbv)
		})
	}
}

func TestPeriodOn(t *testing.T) {
	asset := linearAsset("1000", date(2024, 1, 1), "50", depreciation.GranularityMonthly)
	periods, err := depreciation.Depreciate(asset)
	require.NoError(t, err)

	p, ok := depreciation.PeriodOn(periods, date(2024, 3, 31))
	require.True(t, ok)
	assert.Equal(t, 3, p.Position)

	_, ok = depreciation.PeriodOn(periods, date(2026, 1, 1))
	assert.False(t, ok)
}

func TestResolveCurrency(t *testing.T) {
	cur, err := depreciation.ResolveCurrency(depreciation.DefaultCurrencies, " jpy")
	require.NoError(t, err)
	assert.Equal(t, depreciation.Currency{Code: "JPY", Precision: 0}, cur)

	_, err = depreciation.ResolveCurrency(depreciation.DefaultCurrencies, "XXX")
	assert.ErrorIs(t, err, depreciation.ErrInvalidArgument)
}

func TestDepreciate_ZeroPrecisionCurrency(t *testing.T) {
	asset := linearAsset("100000", date(2024, 1, 1), "30", depreciation.GranularityYearly)
	asset.Currency = depreciation.Currency{Code: "JPY", Precision: 0}

	periods, err := depreciation.Depreciate(asset)
	require.NoError(t, err)

	sum := periods[0].Amount
	for _, p := range periods[1:] {
		sum = sum.Add(p.Amount)
		assert.True(t, p.Amount.Equal(p.Amount.Round(0)), "yen amounts have no decimals")
	}
	assert.True(t, sum.Equal(asset.DepreciableAmount))
}
