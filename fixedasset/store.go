/*
store.go - Persistence interface for assets, schedules and fiscal years

PURPOSE:
  Defines the boundary between the asset service and the database. The
  engine itself never reads or writes; the service loads a consistent
  snapshot, calls depreciation.Depreciate and hands the result back here.

SCHEDULE REPLACEMENT:
  ReplaceSchedule swaps the whole schedule of an asset. Locked periods are
  part of the engine output, so replacing everything keeps them intact.

ATOMICITY:
  TxStore.WithTx runs fn inside a transaction: saving an asset and its new
  schedule is all-or-nothing.

IMPLEMENTATIONS:
  - fixedasset/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go:     SQLite
*/
package fixedasset

import (
	"context"
	"errors"

	"github.com/warp/depreciation-engine/depreciation"
)

var (
	// ErrAssetNotFound is returned when a referenced asset doesn't exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrFiscalYearNotFound is returned when a referenced fiscal year doesn't exist.
	ErrFiscalYearNotFound = errors.New("fiscal year not found")

	// ErrFiscalYearNotContiguous is returned when a new fiscal year would leave
	// a gap or overlap with the existing ones.
	ErrFiscalYearNotContiguous = errors.New("fiscal year must be contiguous with existing fiscal years")

	// ErrInvalidAsset is returned when an asset record fails validation
	// before reaching the engine.
	ErrInvalidAsset = errors.New("invalid asset")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) || errors.Is(err, ErrFiscalYearNotFound)
}

// Store persists assets, their schedules and the fiscal calendar.
type Store interface {
	// SaveAsset inserts or updates an asset.
	SaveAsset(ctx context.Context, asset Asset) error

	// GetAsset returns nil, nil when the asset doesn't exist.
	GetAsset(ctx context.Context, id string) (*Asset, error)

	ListAssets(ctx context.Context) ([]Asset, error)

	// LoadSchedule returns the periods of an asset ordered by position.
	LoadSchedule(ctx context.Context, assetID string) ([]depreciation.Period, error)

	// ReplaceSchedule atomically replaces every period of an asset.
	ReplaceSchedule(ctx context.Context, assetID string, periods []depreciation.Period) error

	SaveFiscalYear(ctx context.Context, fy FiscalYear) error

	// GetFiscalYear returns nil, nil when the fiscal year doesn't exist.
	GetFiscalYear(ctx context.Context, id string) (*FiscalYear, error)

	// ListFiscalYears returns fiscal years ordered by start date.
	ListFiscalYears(ctx context.Context) ([]FiscalYear, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
