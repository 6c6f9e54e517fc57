/*
service.go - Asset lifecycle around the depreciation engine

PURPOSE:
  Service is the caller the engine expects: it loads a consistent snapshot
  (asset, fiscal calendar, existing schedule), runs depreciation.Depreciate,
  and persists the result atomically. It also owns what the engine leaves to
  its caller: stop date derivation, recompute triggers, locking periods when
  a fiscal year closes, and valuation queries.

CONCURRENCY:
  Runs for the same asset are serialized by a per-asset mutex. Distinct
  assets proceed in parallel; the engine shares no state between calls.

LIFECYCLE:
  - Save derives stopped_on from the percentage unless the asset is sold or
    scrapped, or its method is none. The schedule is regenerated only when
    NeedsRecompute says a schedule input changed.
  - CloseFiscalYear marks the year closed and locks every period that ends
    on or before its last day, atomically. Locked periods survive every
    later run.

SEE ALSO:
  - depreciation/scheduler.go: the engine
  - trigger.go: recompute decision
  - store.go: persistence boundary
*/
package fixedasset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/depreciation-engine/depreciation"
)

type Service struct {
	store      TxStore
	currencies depreciation.PrecisionProvider
	logger     *zap.Logger
	now        func() time.Time
	locks      assetLocks
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCurrencies(p depreciation.PrecisionProvider) Option {
	return func(s *Service) { s.currencies = p }
}

func NewService(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		currencies: depreciation.DefaultCurrencies,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// ASSETS
// =============================================================================

// Save creates or updates an asset and regenerates its schedule when needed.
// An empty ID creates a new asset.
func (s *Service) Save(ctx context.Context, asset Asset) (*Asset, []depreciation.Period, error) {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if err := s.prepare(&asset); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.lock(asset.ID)
	defer unlock()

	var schedule []depreciation.Period
	err := s.store.WithTx(ctx, func(tx Store) error {
		prev, err := tx.GetAsset(ctx, asset.ID)
		if err != nil {
			return err
		}
		existing, err := tx.LoadSchedule(ctx, asset.ID)
		if err != nil {
			return err
		}

		now := s.now()
		asset.CreatedAt = now
		if prev != nil {
			asset.CreatedAt = prev.CreatedAt
		}
		asset.UpdatedAt = now
		if err := tx.SaveAsset(ctx, asset); err != nil {
			return err
		}

		schedule = existing
		if !NeedsRecompute(prev, &asset, len(existing) > 0) {
			return nil
		}
		schedule, err = s.depreciate(ctx, tx, asset, existing)
		if err != nil {
			return err
		}
		return tx.ReplaceSchedule(ctx, asset.ID, schedule)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("asset saved",
		zap.String("asset_id", asset.ID),
		zap.Int("periods", len(schedule)),
	)
	return &asset, schedule, nil
}

// prepare fills the derived fields and rejects records the engine could not
// even be asked about.
func (s *Service) prepare(asset *Asset) error {
	if asset.State == "" {
		asset.State = StateDraft
	}
	if !asset.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidAsset, asset.State)
	}
	if !asset.Method.Valid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidAsset, asset.Method)
	}
	if asset.Method != depreciation.MethodNone && !asset.Period.Valid() {
		return fmt.Errorf("%w: unknown period %q", ErrInvalidAsset, asset.Period)
	}
	if _, err := depreciation.ResolveCurrency(s.currencies, asset.Currency); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}

	if asset.State.Disposed() && !asset.StoppedOn.IsZero() {
		return nil
	}
	stop, ok, err := depreciation.DeriveStopDate(asset.StartedOn, asset.Method, asset.Percentage)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	if ok {
		asset.StoppedOn = stop
	}
	return nil
}

func (s *Service) GetAsset(ctx context.Context, id string) (*Asset, error) {
	a, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return a, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.store.ListAssets(ctx)
}

// =============================================================================
// SCHEDULES
// =============================================================================

// Recompute regenerates the schedule of an asset regardless of what changed.
func (s *Service) Recompute(ctx context.Context, id string) ([]depreciation.Period, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var schedule []depreciation.Period
	err := s.store.WithTx(ctx, func(tx Store) error {
		asset, err := tx.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if asset == nil {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		existing, err := tx.LoadSchedule(ctx, id)
		if err != nil {
			return err
		}
		schedule, err = s.depreciate(ctx, tx, *asset, existing)
		if err != nil {
			return err
		}
		return tx.ReplaceSchedule(ctx, id, schedule)
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// Schedule returns the stored schedule of an asset.
func (s *Service) Schedule(ctx context.Context, id string) ([]depreciation.Period, error) {
	if _, err := s.GetAsset(ctx, id); err != nil {
		return nil, err
	}
	return s.store.LoadSchedule(ctx, id)
}

func (s *Service) depreciate(ctx context.Context, tx Store, asset Asset, existing []depreciation.Period) ([]depreciation.Period, error) {
	cur, err := depreciation.ResolveCurrency(s.currencies, asset.Currency)
	if err != nil {
		return nil, err
	}
	fys, err := tx.ListFiscalYears(ctx)
	if err != nil {
		return nil, err
	}

	return depreciation.Depreciate(asset.Snapshot(cur, fys, existing))
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

// OpenFiscalYear registers a fiscal year. It must extend the existing
// calendar at either end without gap or overlap.
func (s *Service) OpenFiscalYear(ctx context.Context, started, stopped depreciation.Date) (*FiscalYear, error) {
	if started.IsZero() || stopped.IsZero() || stopped.Before(started) {
		return nil, &depreciation.InvalidArgumentError{
			Argument: "fiscal_year",
			Reason:   fmt.Sprintf("invalid window %s..%s", started, stopped),
		}
	}

	fy := FiscalYear{ID: uuid.NewString(), StartedOn: started, StoppedOn: stopped}
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.ListFiscalYears(ctx)
		if err != nil {
			return err
		}
		if n := len(existing); n > 0 {
			appends := existing[n-1].StoppedOn.AddDays(1).Equal(started)
			prepends := stopped.AddDays(1).Equal(existing[0].StartedOn)
			if !appends && !prepends {
				return fmt.Errorf("%w: %s..%s", ErrFiscalYearNotContiguous, started, stopped)
			}
		}
		return tx.SaveFiscalYear(ctx, fy)
	})
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

func (s *Service) ListFiscalYears(ctx context.Context) ([]FiscalYear, error) {
	return s.store.ListFiscalYears(ctx)
}

// CloseFiscalYear closes a fiscal year and locks every period ending on or
// before its last day, in one transaction: either the year is closed with
// its periods locked or nothing changes. Closing twice is harmless. Returns
// the number of periods newly locked.
func (s *Service) CloseFiscalYear(ctx context.Context, id string) (*FiscalYear, int, error) {
	var (
		fy     *FiscalYear
		locked int
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		fy, err = tx.GetFiscalYear(ctx, id)
		if err != nil {
			return err
		}
		if fy == nil {
			return fmt.Errorf("%w: %s", ErrFiscalYearNotFound, id)
		}

		if !fy.Closed {
			closedAt := s.now()
			fy.Closed = true
			fy.ClosedAt = &closedAt
			if err := tx.SaveFiscalYear(ctx, *fy); err != nil {
				return err
			}
		}

		locked, err = lockThrough(ctx, tx, fy.StoppedOn)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("fiscal year closed",
		zap.String("fiscal_year_id", fy.ID),
		zap.String("stopped_on", fy.StoppedOn.String()),
		zap.Int("periods_locked", locked),
	)
	return fy, locked, nil
}

// LockThrough locks every unlocked period ending on or before on, across all
// assets, in one transaction. Returns the number of periods newly locked.
func (s *Service) LockThrough(ctx context.Context, on depreciation.Date) (int, error) {
	var locked int
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		locked, err = lockThrough(ctx, tx, on)
		return err
	})
	if err != nil {
		return 0, err
	}
	return locked, nil
}

// lockThrough runs inside the caller's transaction. It takes no per-asset
// lock: Save and Recompute do their read-modify-write inside WithTx, which
// the store serializes.
func lockThrough(ctx context.Context, tx Store, on depreciation.Date) (int, error) {
	assets, err := tx.ListAssets(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, asset := range assets {
		periods, err := tx.LoadSchedule(ctx, asset.ID)
		if err != nil {
			return 0, fmt.Errorf("lock asset %s: %w", asset.ID, err)
		}
		n := 0
		for i := range periods {
			if !periods[i].Locked && periods[i].StoppedOn.BeforeOrEqual(on) {
				periods[i].Locked = true
				n++
			}
		}
		if n == 0 {
			continue
		}
		if err := tx.ReplaceSchedule(ctx, asset.ID, periods); err != nil {
			return 0, fmt.Errorf("lock asset %s: %w", asset.ID, err)
		}
		total += n
	}
	return total, nil
}

// =============================================================================
// VALUATION
// =============================================================================

// Valuation reports the book position of an asset on a given day.
func (s *Service) Valuation(ctx context.Context, id string, on depreciation.Date) (*Valuation, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	periods, err := s.store.LoadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &Valuation{
		AssetID:            id,
		On:                 on,
		DepreciableAmount:  asset.DepreciableAmount,
		AlreadyDepreciated: depreciation.AlreadyDepreciated(asset.StartedOn, asset.DepreciableAmount, periods, on),
		NetBookValue:       depreciation.NetBookValue(asset.StartedOn, asset.DepreciableAmount, periods, on),
	}
	if asset.Method == depreciation.MethodNone {
		v.AlreadyDepreciated = decimal.Zero
		v.NetBookValue = asset.DepreciableAmount
	}
	if p, ok := depreciation.PeriodOn(periods, on); ok {
		v.Period = &p
	}
	return v, nil
}

// =============================================================================
// PER-ASSET LOCKS
// =============================================================================

type assetLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *assetLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
