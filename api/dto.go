/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON shape of every request and response. Decouples the
  internal records (fixedasset.Asset, depreciation.Period) from the wire
  format so either can evolve independently.

CONVENTIONS:
  - Dates are "YYYY-MM-DD" strings (depreciation.Date marshals that way)
  - Amounts, rates and durations are decimal strings: "1478.75"
  - Timestamps are RFC3339
  - Field names are snake_case

ASSET INPUT:
  Asset creation and update bodies are factory.AssetJSON; see
  factory/asset.go for the schema and defaults.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - factory/asset.go: Asset JSON schema
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/factory"
	"github.com/warp/depreciation-engine/fixedasset"
)

// =============================================================================
// ASSET DTOs
// =============================================================================

type AssetDTO struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Currency          string            `json:"currency"`
	DepreciableAmount decimal.Decimal   `json:"depreciable_amount"`
	StartedOn         depreciation.Date `json:"started_on"`
	StoppedOn         depreciation.Date `json:"stopped_on"`
	Method            string            `json:"depreciation_method"`
	Period            string            `json:"depreciation_period"`
	Percentage        decimal.Decimal   `json:"depreciation_percentage"`
	FiscalCoefficient decimal.Decimal   `json:"depreciation_fiscal_coefficient"`
	State             string            `json:"state"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
}

type AssetWithScheduleDTO struct {
	Asset    AssetDTO    `json:"asset"`
	Schedule ScheduleDTO `json:"schedule"`
}

// =============================================================================
// SCHEDULE DTOs
// =============================================================================

type PeriodDTO struct {
	Position          int               `json:"position"`
	StartedOn         depreciation.Date `json:"started_on"`
	StoppedOn         depreciation.Date `json:"stopped_on"`
	Amount            decimal.Decimal   `json:"amount"`
	DepreciatedAmount decimal.Decimal   `json:"depreciated_amount"`
	Duration          decimal.Decimal   `json:"duration"`
	Locked            bool              `json:"locked"`
}

type ScheduleDTO struct {
	AssetID string          `json:"asset_id"`
	Total   decimal.Decimal `json:"total"`
	Periods []PeriodDTO     `json:"periods"`
}

type ValuationDTO struct {
	AssetID            string            `json:"asset_id"`
	On                 depreciation.Date `json:"on"`
	DepreciableAmount  decimal.Decimal   `json:"depreciable_amount"`
	AlreadyDepreciated decimal.Decimal   `json:"already_depreciated"`
	NetBookValue       decimal.Decimal   `json:"net_book_value"`
	Period             *PeriodDTO        `json:"period,omitempty"`
}

// =============================================================================
// FISCAL YEAR DTOs
// =============================================================================

type FiscalYearDTO struct {
	ID        string            `json:"id"`
	StartedOn depreciation.Date `json:"started_on"`
	StoppedOn depreciation.Date `json:"stopped_on"`
	Closed    bool              `json:"closed"`
	ClosedAt  *string           `json:"closed_at,omitempty"`
}

type CreateFiscalYearRequest struct {
	StartedOn depreciation.Date `json:"started_on"`
	StoppedOn depreciation.Date `json:"stopped_on"`
}

type CloseFiscalYearResponse struct {
	FiscalYear    FiscalYearDTO `json:"fiscal_year"`
	PeriodsLocked int           `json:"periods_locked"`
}

// =============================================================================
// DURATION DTOs
// =============================================================================

type DurationDTO struct {
	StartedOn depreciation.Date `json:"started_on"`
	StoppedOn depreciation.Date `json:"stopped_on"`
	Mode      string            `json:"mode"`
	Days      decimal.Decimal   `json:"days"`
}

// =============================================================================
// SCENARIO DTOs
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERROR DTOs
// =============================================================================

type ErrorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details,omitempty"`
	Fields  []factory.FieldError `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAssetDTO(a fixedasset.Asset) AssetDTO {
	return AssetDTO{
		ID:                a.ID,
		Name:              a.Name,
		Currency:          a.Currency,
		DepreciableAmount: a.DepreciableAmount,
		StartedOn:         a.StartedOn,
		StoppedOn:         a.StoppedOn,
		Method:            string(a.Method),
		Period:            string(a.Period),
		Percentage:        a.Percentage,
		FiscalCoefficient: a.FiscalCoefficient,
		State:             string(a.State),
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.Format(time.RFC3339),
	}
}

func toPeriodDTO(p depreciation.Period) PeriodDTO {
	return PeriodDTO{
		Position:          p.Position,
		StartedOn:         p.StartedOn,
		StoppedOn:         p.StoppedOn,
		Amount:            p.Amount,
		DepreciatedAmount: p.DepreciatedAmount,
		Duration:          p.Duration,
		Locked:            p.Locked,
	}
}

func toScheduleDTO(assetID string, periods []depreciation.Period) ScheduleDTO {
	dto := ScheduleDTO{AssetID: assetID, Total: decimal.Zero, Periods: make([]PeriodDTO, len(periods))}
	for i, p := range periods {
		dto.Periods[i] = toPeriodDTO(p)
		dto.Total = dto.Total.Add(p.Amount)
	}
	return dto
}

func toFiscalYearDTO(fy fixedasset.FiscalYear) FiscalYearDTO {
	dto := FiscalYearDTO{
		ID:        fy.ID,
		StartedOn: fy.StartedOn,
		StoppedOn: fy.StoppedOn,
		Closed:    fy.Closed,
	}
	if fy.ClosedAt != nil {
		s := fy.ClosedAt.Format(time.RFC3339)
		dto.ClosedAt = &s
	}
	return dto
}
