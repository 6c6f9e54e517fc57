package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
	"github.com/warp/depreciation-engine/fixedasset/store"
)

func period(pos int, start, stop depreciation.Date, amount string) depreciation.Period {
	return depreciation.Period{
		Position:  pos,
		StartedOn: start,
		StoppedOn: stop,
		Amount:    decimal.RequireFromString(amount),
	}
}

func TestMemory_ScheduleIsCopiedAndOrdered(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	periods := []depreciation.Period{
		period(2, depreciation.NewDate(2025, 1, 1), depreciation.NewDate(2025, 12, 31), "500"),
		period(1, depreciation.NewDate(2024, 1, 1), depreciation.NewDate(2024, 12, 31), "500"),
	}
	require.NoError(t, m.ReplaceSchedule(ctx, "a1", periods))

	// Mutating the caller's slice must not leak into the store
	periods[0].Amount = decimal.NewFromInt(1)

	got, err := m.LoadSchedule(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, "500", got[1].Amount.String())
}

func TestMemory_GetMissingReturnsNil(t *testing.T) {
	m := store.NewMemory()

	a, err := m.GetAsset(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, a)

	fy, err := m.GetFiscalYear(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, fy)
}

func TestMemory_FiscalYearsOrderedByStart(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveFiscalYear(ctx, fixedasset.FiscalYear{ID: "b", StartedOn: depreciation.NewDate(2025, 1, 1), StoppedOn: depreciation.NewDate(2025, 12, 31)}))
	require.NoError(t, m.SaveFiscalYear(ctx, fixedasset.FiscalYear{ID: "a", StartedOn: depreciation.NewDate(2024, 1, 1), StoppedOn: depreciation.NewDate(2024, 12, 31)}))

	fys, err := m.ListFiscalYears(ctx)
	require.NoError(t, err)
	require.Len(t, fys, 2)
	assert.Equal(t, "a", fys[0].ID)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A stored asset with a schedule
	ctx := context.Background()
	m := store.NewTxMemory()
	require.NoError(t, m.SaveAsset(ctx, fixedasset.Asset{ID: "a1", Name: "before"}))
	require.NoError(t, m.ReplaceSchedule(ctx, "a1", []depreciation.Period{
		period(1, depreciation.NewDate(2024, 1, 1), depreciation.NewDate(2024, 12, 31), "100"),
	}))

	// WHEN: A transaction writes then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx fixedasset.Store) error {
		require.NoError(t, tx.SaveAsset(ctx, fixedasset.Asset{ID: "a1", Name: "after"}))
		require.NoError(t, tx.ReplaceSchedule(ctx, "a1", nil))
		require.NoError(t, tx.SaveAsset(ctx, fixedasset.Asset{ID: "a2"}))
		return boom
	})

	// THEN: Every write is undone
	assert.ErrorIs(t, err, boom)

	a, _ := m.GetAsset(ctx, "a1")
	require.NotNil(t, a)
	assert.Equal(t, "before", a.Name)

	missing, _ := m.GetAsset(ctx, "a2")
	assert.Nil(t, missing)

	periods, _ := m.LoadSchedule(ctx, "a1")
	assert.Len(t, periods, 1)
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()

	err := m.WithTx(ctx, func(tx fixedasset.Store) error {
		return tx.SaveAsset(ctx, fixedasset.Asset{ID: "a1"})
	})
	require.NoError(t, err)

	assets, err := m.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}
