/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  assets and fiscal calendars. Each scenario demonstrates one part of the
  depreciation engine.

AVAILABLE SCENARIOS:
  linear-yearly:       Straight-line assets on calendar years
  regressive-monthly:  Declining-balance van with a monthly grid
  closed-fiscal-year:  Closed 2024, base raised afterwards
  fiscal-april:        April-to-March fiscal calendar, prorated first slot
  disposed-asset:      Asset sold before the end of its useful life

HOW SCENARIOS WORK:
  1. Reset database (clear all data)
  2. Open fiscal years
  3. Create assets via factory JSON (schedules computed on save)
  4. Optionally close fiscal years and edit assets

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "closed-fiscal-year"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Asset and fiscal year handlers
  - factory/asset.go: Asset JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "linear-yearly",
			Name:        "Linear Yearly",
			Description: "Straight-line assets, one starting mid-year with a prorated first year",
		},
		load: loadLinearYearlyScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "regressive-monthly",
			Name:        "Regressive Monthly",
			Description: "Declining-balance van (25%, coefficient 1.75) on a monthly grid",
		},
		load: loadRegressiveMonthlyScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "closed-fiscal-year",
			Name:        "Closed Fiscal Year",
			Description: "2024 is closed and locked, then the base is raised: only open periods absorb it",
		},
		load: loadClosedFiscalYearScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fiscal-april",
			Name:        "April Fiscal Calendar",
			Description: "Fiscal years run April to March; periods follow the fiscal calendar",
		},
		load: loadFiscalAprilScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "disposed-asset",
			Name:        "Disposed Asset",
			Description: "Asset sold mid-life: the schedule stops on the sale date",
		},
		load: loadDisposedAssetScenario,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var selected *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			selected = &scenarios[i]
			break
		}
	}
	if selected == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	if err := selected.load(ctx, h); err != nil {
		h.Logger.Error("scenario load failed", zap.String("scenario", selected.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = selected.ID
	h.Logger.Info("scenario loaded", zap.String("scenario", selected.ID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": selected.ID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadLinearYearlyScenario(ctx context.Context, h *Handler) error {
	if err := h.openCalendarYears(ctx, 2024, 2030); err != nil {
		return err
	}
	if err := h.createAssetFromJSON(ctx, `{
		"id": "asset-laptops",
		"name": "Office laptops",
		"depreciable_amount": "10000",
		"started_on": "2024-01-01",
		"depreciation_method": "linear",
		"depreciation_period": "yearly",
		"depreciation_percentage": "20",
		"state": "in_use"
	}`); err != nil {
		return err
	}
	return h.createAssetFromJSON(ctx, `{
		"id": "asset-printer",
		"name": "Printer",
		"depreciable_amount": "3000",
		"started_on": "2024-07-01",
		"depreciation_method": "linear",
		"depreciation_period": "yearly",
		"depreciation_percentage": "33.33",
		"state": "in_use"
	}`)
}

func loadRegressiveMonthlyScenario(ctx context.Context, h *Handler) error {
	if err := h.openCalendarYears(ctx, 2024, 2028); err != nil {
		return err
	}
	return h.createAssetFromJSON(ctx, `{
		"id": "asset-van",
		"name": "Delivery van",
		"depreciable_amount": "24000",
		"started_on": "2024-03-15",
		"depreciation_method": "regressive",
		"depreciation_period": "monthly",
		"depreciation_percentage": "25",
		"depreciation_fiscal_coefficient": "1.75",
		"state": "in_use"
	}`)
}

func loadClosedFiscalYearScenario(ctx context.Context, h *Handler) error {
	if err := h.openCalendarYears(ctx, 2024, 2028); err != nil {
		return err
	}
	if err := h.createAssetFromJSON(ctx, `{
		"id": "asset-machine",
		"name": "Milling machine",
		"depreciable_amount": "10000",
		"started_on": "2024-01-01",
		"depreciation_method": "linear",
		"depreciation_percentage": "20",
		"state": "in_use"
	}`); err != nil {
		return err
	}

	fys, err := h.Service.ListFiscalYears(ctx)
	if err != nil {
		return err
	}
	if _, _, err := h.Service.CloseFiscalYear(ctx, fys[0].ID); err != nil {
		return err
	}

	// An upgrade raises the base after 2024 is closed
	asset, err := h.Service.GetAsset(ctx, "asset-machine")
	if err != nil {
		return err
	}
	asset.DepreciableAmount = decimal.NewFromInt(12000)
	_, _, err = h.Service.Save(ctx, *asset)
	return err
}

func loadFiscalAprilScenario(ctx context.Context, h *Handler) error {
	for year := 2023; year <= 2028; year++ {
		start := depreciation.NewDate(year, 4, 1)
		if _, err := h.Service.OpenFiscalYear(ctx, start, start.AddMonths(12).AddDays(-1)); err != nil {
			return err
		}
	}
	return h.createAssetFromJSON(ctx, `{
		"id": "asset-server",
		"name": "Rack server",
		"depreciable_amount": "10000",
		"started_on": "2024-01-01",
		"depreciation_method": "linear",
		"depreciation_percentage": "20",
		"state": "in_use"
	}`)
}

func loadDisposedAssetScenario(ctx context.Context, h *Handler) error {
	if err := h.openCalendarYears(ctx, 2024, 2028); err != nil {
		return err
	}
	return h.createAssetFromJSON(ctx, `{
		"id": "asset-forklift",
		"name": "Forklift",
		"depreciable_amount": "10000",
		"started_on": "2024-01-01",
		"stopped_on": "2026-06-30",
		"depreciation_method": "linear",
		"depreciation_percentage": "20",
		"state": "sold"
	}`)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createAssetFromJSON(ctx context.Context, assetJSON string) error {
	asset, err := h.Factory.ParseAsset(assetJSON)
	if err != nil {
		return err
	}
	_, _, err = h.Service.Save(ctx, *asset)
	return err
}

// openCalendarYears opens one January-December fiscal year per year in
// [from, to].
func (h *Handler) openCalendarYears(ctx context.Context, from, to int) error {
	for year := from; year <= to; year++ {
		if _, err := h.Service.OpenFiscalYear(ctx, depreciation.NewDate(year, 1, 1), depreciation.NewDate(year, 12, 31)); err != nil {
			return err
		}
	}
	return nil
}
