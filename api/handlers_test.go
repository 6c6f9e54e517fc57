/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Asset creation, update, recompute and valuation
- Fiscal year calendar and closure
- Duration tool
- Error mapping (400/404/409)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
	"github.com/warp/depreciation-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *sqlite.Store
	service *fixedasset.Service
	handler *Handler
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	svc := fixedasset.NewService(store,
		fixedasset.WithLogger(logger),
		fixedasset.WithClock(func() time.Time { return testNow }),
	)
	h := NewHandler(svc, store, logger)
	h.now = func() time.Time { return testNow }

	return &testEnv{
		store:   store,
		service: svc,
		handler: h,
		router:  NewRouter(h, RouterOptions{}),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func periodAmounts(s ScheduleDTO) []string {
	out := make([]string, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.Amount.StringFixed(2)
	}
	return out
}

const laptopJSON = `{
	"id": "asset-1",
	"name": "Laptop",
	"depreciable_amount": "10000",
	"started_on": "2024-01-01",
	"depreciation_method": "linear",
	"depreciation_period": "yearly",
	"state": "in_use"
}`

// =============================================================================
// ASSETS
// =============================================================================

func TestCreateAsset_ReturnsScheduleAndDerivedStopDate(t *testing.T) {
	env := newTestEnv(t)

	// WHEN: A linear 20% asset is posted without a stop date
	rec := env.do(t, http.MethodPost, "/api/assets", laptopJSON)

	// THEN: The stop date is derived and five yearly periods are returned
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[AssetWithScheduleDTO](t, rec)
	assert.Equal(t, "asset-1", resp.Asset.ID)
	assert.Equal(t, "EUR", resp.Asset.Currency)
	assert.Equal(t, depreciation.NewDate(2028, 12, 31), resp.Asset.StoppedOn)
	assert.Equal(t, []string{"2000.00", "2000.00", "2000.00", "2000.00", "2000.00"}, periodAmounts(resp.Schedule))
	assert.True(t, resp.Schedule.Total.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 1, resp.Schedule.Periods[0].Position)
}

func TestCreateAsset_ValidationErrorListsFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/assets", `{
		"name": "",
		"depreciable_amount": "-1",
		"started_on": "2024-01-01",
		"depreciation_method": "graduated"
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	fields := make([]string, len(resp.Fields))
	for i, f := range resp.Fields {
		fields[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"name", "depreciable_amount", "depreciation_method"}, fields)
}

func TestCreateAsset_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/assets", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAsset_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/assets/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAssets(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodGet, "/api/assets", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assets := decode[[]AssetDTO](t, rec)
	require.Len(t, assets, 1)
	assert.Equal(t, "Laptop", assets[0].Name)
}

func TestUpdateAsset_NameOnlyKeepsSchedule(t *testing.T) {
	// GIVEN: An asset with a schedule
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)
	before := decode[ScheduleDTO](t, env.do(t, http.MethodGet, "/api/assets/asset-1/schedule", nil))

	// WHEN: Only the name changes
	rec := env.do(t, http.MethodPut, "/api/assets/asset-1", `{"name": "Renamed laptop"}`)

	// THEN: Other fields keep their values and the schedule is untouched
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AssetWithScheduleDTO](t, rec)
	assert.Equal(t, "Renamed laptop", resp.Asset.Name)
	assert.True(t, resp.Asset.DepreciableAmount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, periodAmounts(before), periodAmounts(resp.Schedule))
}

func TestUpdateAsset_BaseChangeRegenerates(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodPut, "/api/assets/asset-1", `{"depreciable_amount": "5000"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AssetWithScheduleDTO](t, rec)
	assert.Equal(t, []string{"1000.00", "1000.00", "1000.00", "1000.00", "1000.00"}, periodAmounts(resp.Schedule))
}

func TestUpdateAsset_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/assets/missing", `{"name": "x"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDepreciateAsset_UsesFiscalCalendar(t *testing.T) {
	// GIVEN: An asset computed on calendar years
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	// WHEN: A July fiscal year is opened and the schedule recomputed
	rec := env.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
		StartedOn: depreciation.NewDate(2024, 7, 1),
		StoppedOn: depreciation.NewDate(2025, 6, 30),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/assets/asset-1/depreciate", nil)

	// THEN: The grid follows July boundaries: a half first year and five more slots
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	schedule := decode[ScheduleDTO](t, rec)
	require.Len(t, schedule.Periods, 6)
	assert.Equal(t, depreciation.NewDate(2024, 6, 30), schedule.Periods[0].StoppedOn)
	assert.Equal(t, "1000.00", schedule.Periods[0].Amount.StringFixed(2))
	assert.True(t, schedule.Total.Equal(decimal.NewFromInt(10000)))
}

func TestDepreciateAsset_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/assets/missing/depreciate", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// VALUATION
// =============================================================================

func TestGetValuation_ExplicitDate(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodGet, "/api/assets/asset-1/valuation?on=2025-03-31", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[ValuationDTO](t, rec)
	assert.Equal(t, "4000.00", v.AlreadyDepreciated.StringFixed(2))
	assert.Equal(t, "6000.00", v.NetBookValue.StringFixed(2))
	require.NotNil(t, v.Period)
	assert.Equal(t, 2, v.Period.Position)
}

func TestGetValuation_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodGet, "/api/assets/asset-1/valuation", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[ValuationDTO](t, rec)
	assert.Equal(t, depreciation.DateOf(testNow), v.On)
	assert.Equal(t, "6000.00", v.NetBookValue.StringFixed(2))
}

func TestGetValuation_BeforeStartKeepsFullValue(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodGet, "/api/assets/asset-1/valuation?on=2023-12-31", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[ValuationDTO](t, rec)
	assert.True(t, v.AlreadyDepreciated.IsZero())
	assert.Equal(t, "10000.00", v.NetBookValue.StringFixed(2))
	assert.Nil(t, v.Period)
}

func TestGetValuation_InvalidDate(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	rec := env.do(t, http.MethodGet, "/api/assets/asset-1/valuation?on=31/03/2025", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

func TestFiscalYears_CreateListAndReject(t *testing.T) {
	env := newTestEnv(t)

	for _, year := range []int{2024, 2025} {
		rec := env.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
			StartedOn: depreciation.NewDate(year, 1, 1),
			StoppedOn: depreciation.NewDate(year, 12, 31),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// A gap in the calendar is a conflict
	rec := env.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
		StartedOn: depreciation.NewDate(2027, 1, 1),
		StoppedOn: depreciation.NewDate(2027, 12, 31),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// An inverted window is a bad request
	rec = env.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
		StartedOn: depreciation.NewDate(2026, 12, 31),
		StoppedOn: depreciation.NewDate(2026, 1, 1),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fys := decode[[]FiscalYearDTO](t, env.do(t, http.MethodGet, "/api/fiscal-years", nil))
	require.Len(t, fys, 2)
	assert.Equal(t, depreciation.NewDate(2024, 1, 1), fys[0].StartedOn)
	assert.Equal(t, depreciation.NewDate(2025, 1, 1), fys[1].StartedOn)
}

func TestCloseFiscalYear_LocksAndProtectsPeriods(t *testing.T) {
	// GIVEN: Calendar fiscal years and a linear asset
	env := newTestEnv(t)
	var first FiscalYearDTO
	for _, year := range []int{2024, 2025, 2026, 2027, 2028} {
		rec := env.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
			StartedOn: depreciation.NewDate(year, 1, 1),
			StoppedOn: depreciation.NewDate(year, 12, 31),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		if year == 2024 {
			first = decode[FiscalYearDTO](t, rec)
		}
	}
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	// WHEN: 2024 is closed
	rec := env.do(t, http.MethodPost, "/api/fiscal-years/"+first.ID+"/close", nil)

	// THEN: One period is locked
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[CloseFiscalYearResponse](t, rec)
	assert.True(t, closed.FiscalYear.Closed)
	assert.NotNil(t, closed.FiscalYear.ClosedAt)
	assert.Equal(t, 1, closed.PeriodsLocked)

	// WHEN: The base is raised afterwards
	rec = env.do(t, http.MethodPut, "/api/assets/asset-1", `{"depreciable_amount": "12000"}`)

	// THEN: The locked 2024 period keeps its amount
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AssetWithScheduleDTO](t, rec)
	assert.Equal(t, []string{"2000.00", "2500.00", "2500.00", "2500.00", "2500.00"}, periodAmounts(resp.Schedule))
	assert.True(t, resp.Schedule.Periods[0].Locked)
}

func TestCloseFiscalYear_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/fiscal-years/missing/close", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DURATION
// =============================================================================

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  int
		days  int64
	}{
		{name: "full year", query: "start=2024-01-01&stop=2024-12-31", code: http.StatusOK, days: 360},
		{name: "across months", query: "start=2024-01-31&stop=2024-03-01&mode=linear", code: http.StatusOK, days: 32},
		{name: "regressive starts on day one", query: "start=2024-03-15&stop=2024-03-31&mode=regressive", code: http.StatusOK, days: 30},
		{name: "inverted", query: "start=2024-02-01&stop=2024-01-01", code: http.StatusBadRequest},
		{name: "unknown mode", query: "start=2024-01-01&stop=2024-12-31&mode=none", code: http.StatusBadRequest},
		{name: "bad date", query: "start=2024-13-01&stop=2024-12-31", code: http.StatusBadRequest},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/duration?"+tt.query, nil)

			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code == http.StatusOK {
				d := decode[DurationDTO](t, rec)
				assert.Equal(t, tt.days, d.Days.IntPart())
			}
		})
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/assets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestService_SharedWithStore(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/assets", laptopJSON).Code)

	periods, err := env.store.LoadSchedule(context.Background(), "asset-1")

	require.NoError(t, err)
	assert.Len(t, periods, 5)
}
