/*
scheduler.go - Automated period lock scheduler

PURPOSE:
  Periodically locks every depreciation period that ends on or before the
  last day of the most recently closed fiscal year. Closing a fiscal year
  through the API already locks its periods; the scheduler catches assets
  created or recomputed afterwards with periods inside closed years.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Does nothing while no fiscal year is closed
  - Locking is idempotent: already locked periods are not counted

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewLockScheduler(service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - fixedasset/service.go: LockThrough, CloseFiscalYear
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
)

// LockRun summarizes one scheduler pass.
type LockRun struct {
	Through depreciation.Date
	Locked  int
	Skipped bool
}

// LockScheduler locks periods of closed fiscal years in the background.
type LockScheduler struct {
	Service       *fixedasset.Service
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLockScheduler creates a new scheduler.
func NewLockScheduler(svc *fixedasset.Service, logger *zap.Logger) *LockScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockScheduler{
		Service:       svc,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ls *LockScheduler) Start() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.Enabled {
		ls.Logger.Info("lock scheduler disabled, not starting")
		return
	}
	if ls.ticker != nil {
		return
	}

	ls.ticker = time.NewTicker(ls.CheckInterval)
	ls.stop = make(chan struct{})
	ls.wg.Add(1)

	go ls.run()

	ls.Logger.Info("lock scheduler started", zap.Duration("interval", ls.CheckInterval))
}

// Stop stops the scheduler and waits for the running pass to finish.
func (ls *LockScheduler) Stop() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.ticker == nil {
		return
	}
	ls.ticker.Stop()
	close(ls.stop)
	ls.wg.Wait()
	ls.ticker = nil
	ls.Logger.Info("lock scheduler stopped")
}

func (ls *LockScheduler) run() {
	defer ls.wg.Done()

	// Run immediately on start
	ls.tick()

	for {
		select {
		case <-ls.ticker.C:
			ls.tick()
		case <-ls.stop:
			return
		}
	}
}

func (ls *LockScheduler) tick() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-ls.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := ls.RunOnce(ctx); err != nil {
		ls.Logger.Error("lock scheduler pass failed", zap.Error(err))
	}
}

// RunOnce performs a single pass.
func (ls *LockScheduler) RunOnce(ctx context.Context) (LockRun, error) {
	fys, err := ls.Service.ListFiscalYears(ctx)
	if err != nil {
		return LockRun{}, err
	}

	var (
		through depreciation.Date
		found   bool
	)
	for _, fy := range fys {
		if fy.Closed && (!found || fy.StoppedOn.After(through)) {
			through, found = fy.StoppedOn, true
		}
	}
	if !found {
		ls.Logger.Debug("lock scheduler: no closed fiscal year")
		return LockRun{Skipped: true}, nil
	}

	locked, err := ls.Service.LockThrough(ctx, through)
	if err != nil {
		return LockRun{Through: through, Locked: locked}, err
	}

	ls.Logger.Info("lock scheduler pass completed",
		zap.String("through", through.String()),
		zap.Int("periods_locked", locked),
	)
	return LockRun{Through: through, Locked: locked}, nil
}
