// Package store provides fixedasset.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	assets      map[string]fixedasset.Asset
	schedules   map[string][]depreciation.Period
	fiscalYears map[string]fixedasset.FiscalYear
}

func NewMemory() *Memory {
	return &Memory{
		assets:      make(map[string]fixedasset.Asset),
		schedules:   make(map[string][]depreciation.Period),
		fiscalYears: make(map[string]fixedasset.FiscalYear),
	}
}

func (m *Memory) SaveAsset(_ context.Context, asset fixedasset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.ID] = asset
	return nil
}

func (m *Memory) GetAsset(_ context.Context, id string) (*fixedasset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAssetLocked(id), nil
}

func (m *Memory) getAssetLocked(id string) *fixedasset.Asset {
	a, ok := m.assets[id]
	if !ok {
		return nil
	}
	return &a
}

func (m *Memory) ListAssets(_ context.Context) ([]fixedasset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAssetsLocked(), nil
}

// Assets are listed by ID so callers get a stable order.
func (m *Memory) listAssetsLocked() []fixedasset.Asset {
	result := make([]fixedasset.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) LoadSchedule(_ context.Context, assetID string) ([]depreciation.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadScheduleLocked(assetID), nil
}

func (m *Memory) loadScheduleLocked(assetID string) []depreciation.Period {
	result := make([]depreciation.Period, len(m.schedules[assetID]))
	copy(result, m.schedules[assetID])
	return result
}

func (m *Memory) ReplaceSchedule(_ context.Context, assetID string, periods []depreciation.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceScheduleLocked(assetID, periods)
	return nil
}

func (m *Memory) replaceScheduleLocked(assetID string, periods []depreciation.Period) {
	stored := make([]depreciation.Period, len(periods))
	copy(stored, periods)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	m.schedules[assetID] = stored
}

func (m *Memory) SaveFiscalYear(_ context.Context, fy fixedasset.FiscalYear) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fiscalYears[fy.ID] = fy
	return nil
}

func (m *Memory) GetFiscalYear(_ context.Context, id string) (*fixedasset.FiscalYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getFiscalYearLocked(id), nil
}

func (m *Memory) getFiscalYearLocked(id string) *fixedasset.FiscalYear {
	fy, ok := m.fiscalYears[id]
	if !ok {
		return nil
	}
	return &fy
}

func (m *Memory) ListFiscalYears(_ context.Context) ([]fixedasset.FiscalYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listFiscalYearsLocked(), nil
}

func (m *Memory) listFiscalYearsLocked() []fixedasset.FiscalYear {
	result := make([]fixedasset.FiscalYear, 0, len(m.fiscalYears))
	for _, fy := range m.fiscalYears {
		result = append(result, fy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedOn.Before(result[j].StartedOn) })
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(fixedasset.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	assets      map[string]fixedasset.Asset
	schedules   map[string][]depreciation.Period
	fiscalYears map[string]fixedasset.FiscalYear
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		assets:      make(map[string]fixedasset.Asset, len(tm.assets)),
		schedules:   make(map[string][]depreciation.Period, len(tm.schedules)),
		fiscalYears: make(map[string]fixedasset.FiscalYear, len(tm.fiscalYears)),
	}
	for k, v := range tm.assets {
		s.assets[k] = v
	}
	for k, v := range tm.schedules {
		s.schedules[k] = append([]depreciation.Period{}, v...)
	}
	for k, v := range tm.fiscalYears {
		s.fiscalYears[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.assets = s.assets
	tm.schedules = s.schedules
	tm.fiscalYears = s.fiscalYears
}

// txMemoryView operates on the parent's maps while WithTx holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveAsset(_ context.Context, asset fixedasset.Asset) error {
	tv.parent.assets[asset.ID] = asset
	return nil
}

func (tv *txMemoryView) GetAsset(_ context.Context, id string) (*fixedasset.Asset, error) {
	return tv.parent.getAssetLocked(id), nil
}

func (tv *txMemoryView) ListAssets(_ context.Context) ([]fixedasset.Asset, error) {
	return tv.parent.listAssetsLocked(), nil
}

func (tv *txMemoryView) LoadSchedule(_ context.Context, assetID string) ([]depreciation.Period, error) {
	return tv.parent.loadScheduleLocked(assetID), nil
}

func (tv *txMemoryView) ReplaceSchedule(_ context.Context, assetID string, periods []depreciation.Period) error {
	tv.parent.replaceScheduleLocked(assetID, periods)
	return nil
}

func (tv *txMemoryView) SaveFiscalYear(_ context.Context, fy fixedasset.FiscalYear) error {
	tv.parent.fiscalYears[fy.ID] = fy
	return nil
}

func (tv *txMemoryView) GetFiscalYear(_ context.Context, id string) (*fixedasset.FiscalYear, error) {
	return tv.parent.getFiscalYearLocked(id), nil
}

func (tv *txMemoryView) ListFiscalYears(_ context.Context) ([]fixedasset.FiscalYear, error) {
	return tv.parent.listFiscalYearsLocked(), nil
}
