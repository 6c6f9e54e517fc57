// Package fixedasset owns the lifecycle of fixed assets around the
// depreciation engine: persistence, recompute triggers, period locking at
// fiscal year closure and valuation queries.
package fixedasset

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// ASSET - Persisted form
// =============================================================================

type State string

const (
	StateDraft    State = "draft"
	StateWaiting  State = "waiting"
	StateInUse    State = "in_use"
	StateSold     State = "sold"
	StateScrapped State = "scrapped"
)

func (s State) Valid() bool {
	switch s {
	case StateDraft, StateWaiting, StateInUse, StateSold, StateScrapped:
		return true
	}
	return false
}

// Disposed assets keep the stop date they had when they left the books.
func (s State) Disposed() bool { return s == StateSold || s == StateScrapped }

type Asset struct {
	ID                string
	Name              string
	Currency          string
	DepreciableAmount decimal.Decimal
	StartedOn         depreciation.Date
	StoppedOn         depreciation.Date
	Method            depreciation.Method
	Period            depreciation.Granularity
	Percentage        decimal.Decimal
	FiscalCoefficient decimal.Decimal
	State             State
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Snapshot builds the engine input for this asset.
func (a Asset) Snapshot(cur depreciation.Currency, fys []FiscalYear, periods []depreciation.Period) depreciation.Asset {
	windows := make([]depreciation.FiscalYear, len(fys))
	for i, fy := range fys {
		windows[i] = fy.Window()
	}
	return depreciation.Asset{
		ID:                a.ID,
		DepreciableAmount: a.DepreciableAmount,
		Currency:          cur,
		StartedOn:         a.StartedOn,
		StoppedOn:         a.StoppedOn,
		Method:            a.Method,
		Granularity:       a.Period,
		Percentage:        a.Percentage,
		FiscalCoefficient: a.FiscalCoefficient,
		FiscalYears:       windows,
		Periods:           periods,
	}
}

// =============================================================================
// FISCAL YEAR
// =============================================================================

type FiscalYear struct {
	ID        string
	StartedOn depreciation.Date
	StoppedOn depreciation.Date
	Closed    bool
	ClosedAt  *time.Time
}

func (fy FiscalYear) Window() depreciation.FiscalYear {
	return depreciation.FiscalYear{StartedOn: fy.StartedOn, StoppedOn: fy.StoppedOn}
}

// =============================================================================
// VALUATION
// =============================================================================

// Valuation is the book position of an asset on a given day.
type Valuation struct {
	AssetID            string
	On                 depreciation.Date
	DepreciableAmount  decimal.Decimal
	AlreadyDepreciated decimal.Decimal
	NetBookValue       decimal.Decimal
	Period             *depreciation.Period
}
