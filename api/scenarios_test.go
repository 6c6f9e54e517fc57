/*
scenarios_test.go - Tests for demo scenario loading

Each scenario is loaded through the HTTP API and the resulting schedules
are checked against hand-computed figures.
*/
package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depreciation-engine/depreciation"
)

func (e *testEnv) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) schedule(t *testing.T, assetID string) ScheduleDTO {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/assets/"+assetID+"/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[ScheduleDTO](t, rec)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	env := newTestEnv(t)

	listed := decode[[]ScenarioDTO](t, env.do(t, http.MethodGet, "/api/scenarios", nil))
	require.Len(t, listed, len(scenarios))

	for _, s := range listed {
		t.Run(s.ID, func(t *testing.T) {
			env.loadScenario(t, s.ID)

			current := decode[ScenarioDTO](t, env.do(t, http.MethodGet, "/api/scenarios/current", nil))
			assert.Equal(t, s.ID, current.ID)

			assets := decode[[]AssetDTO](t, env.do(t, http.MethodGet, "/api/assets", nil))
			assert.NotEmpty(t, assets)
			for _, a := range assets {
				sched := env.schedule(t, a.ID)
				assert.NotEmpty(t, sched.Periods, a.ID)
			}
		})
	}
}

func TestScenario_CurrentEmptyBeforeLoad(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/scenarios/current", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestScenario_Unknown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_ReloadResetsStore(t *testing.T) {
	// GIVEN: A scenario with two assets is loaded
	env := newTestEnv(t)
	env.loadScenario(t, "linear-yearly")
	require.Len(t, decode[[]AssetDTO](t, env.do(t, http.MethodGet, "/api/assets", nil)), 2)

	// WHEN: Another scenario is loaded
	env.loadScenario(t, "regressive-monthly")

	// THEN: Only its asset remains
	assets := decode[[]AssetDTO](t, env.do(t, http.MethodGet, "/api/assets", nil))
	require.Len(t, assets, 1)
	assert.Equal(t, "asset-van", assets[0].ID)
}

func TestScenario_ClosedFiscalYear(t *testing.T) {
	env := newTestEnv(t)
	env.loadScenario(t, "closed-fiscal-year")

	sched := env.schedule(t, "asset-machine")

	// 2024 keeps the 2000 computed on the original base; 2025-2028 absorb the rest
	assert.Equal(t, []string{"2000.00", "2500.00", "2500.00", "2500.00", "2500.00"}, periodAmounts(sched))
	assert.True(t, sched.Periods[0].Locked)
	assert.False(t, sched.Periods[1].Locked)
	assert.True(t, sched.Total.Equal(decimal.NewFromInt(12000)))
}

func TestScenario_FiscalApril(t *testing.T) {
	env := newTestEnv(t)
	env.loadScenario(t, "fiscal-april")

	sched := env.schedule(t, "asset-server")

	require.NotEmpty(t, sched.Periods)
	assert.Equal(t, depreciation.NewDate(2024, 3, 31), sched.Periods[0].StoppedOn)
	assert.Equal(t, "500.00", sched.Periods[0].Amount.StringFixed(2))
	assert.Equal(t, depreciation.NewDate(2024, 4, 1), sched.Periods[1].StartedOn)
	assert.True(t, sched.Total.Equal(decimal.NewFromInt(10000)))
}

func TestScenario_DisposedAsset(t *testing.T) {
	env := newTestEnv(t)
	env.loadScenario(t, "disposed-asset")

	sched := env.schedule(t, "asset-forklift")

	assert.Equal(t, []string{"4000.00", "4000.00", "2000.00"}, periodAmounts(sched))
	assert.Equal(t, depreciation.NewDate(2026, 6, 30), sched.Periods[2].StoppedOn)
}

func TestScenario_RegressiveMonthly(t *testing.T) {
	env := newTestEnv(t)
	env.loadScenario(t, "regressive-monthly")

	sched := env.schedule(t, "asset-van")

	require.Greater(t, len(sched.Periods), 12)
	assert.True(t, sched.Total.Equal(decimal.NewFromInt(24000)), sched.Total.String())
	for i := 1; i < len(sched.Periods); i++ {
		assert.True(t, sched.Periods[i].DepreciatedAmount.GreaterThan(sched.Periods[i-1].DepreciatedAmount))
	}
}
