/*
Package sqlite provides a SQLite-backed implementation of fixedasset.TxStore.

PURPOSE:
  Persists assets, their depreciation schedules and the fiscal calendar.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  fixedasset.Store:   Assets, schedules, fiscal years
  fixedasset.TxStore: Atomic asset + schedule writes

SCHEDULE REPLACEMENT:
  A schedule is only ever written whole: ReplaceSchedule deletes every
  period of the asset and inserts the new ones inside one transaction.
  Locked periods are part of what the engine returns, so they are rewritten
  unchanged.

KEY TABLES:
  assets:               Asset records and their depreciation parameters
  depreciation_periods: Schedule rows, one per (asset, position)
  fiscal_years:         Fiscal calendar, closed flag

DECIMALS AND DATES:
  Amounts, durations and rates are stored as TEXT decimal strings so no
  precision is lost. Calendar dates are stored as YYYY-MM-DD and compare
  lexically.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/depreciation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := fixedasset.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - fixedasset/store.go: Interface definitions
  - fixedasset/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
)

// Store implements fixedasset.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a distinct database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		depreciable_amount TEXT NOT NULL,
		started_on TEXT,
		stopped_on TEXT,
		depreciation_method TEXT NOT NULL,
		depreciation_period TEXT NOT NULL,
		depreciation_percentage TEXT NOT NULL,
		depreciation_fiscal_coefficient TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_state
		ON assets(state);

	CREATE TABLE IF NOT EXISTS depreciation_periods (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		started_on TEXT NOT NULL,
		stopped_on TEXT NOT NULL,
		amount TEXT NOT NULL,
		depreciated_amount TEXT NOT NULL,
		duration TEXT NOT NULL,
		locked INTEGER NOT NULL DEFAULT 0
	);

	-- One row per position; positions are recomputed on every replace
	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_asset_position
		ON depreciation_periods(asset_id, position);

	-- Locking by date scans stop dates of unlocked rows
	CREATE INDEX IF NOT EXISTS idx_periods_stopped_on
		ON depreciation_periods(stopped_on) WHERE locked = 0;

	CREATE TABLE IF NOT EXISTS fiscal_years (
		id TEXT PRIMARY KEY,
		started_on TEXT NOT NULL,
		stopped_on TEXT NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0,
		closed_at TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_fiscal_years_started_on
		ON fiscal_years(started_on);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ASSETS
// =============================================================================

// SaveAsset inserts or updates an asset.
func (s *Store) SaveAsset(ctx context.Context, a fixedasset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAsset(ctx, s.db, a)
}

func saveAsset(ctx context.Context, q querier, a fixedasset.Asset) error {
	query := `
		INSERT INTO assets (id, name, currency, depreciable_amount, started_on, stopped_on,
			depreciation_method, depreciation_period, depreciation_percentage,
			depreciation_fiscal_coefficient, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			depreciable_amount = excluded.depreciable_amount,
			started_on = excluded.started_on,
			stopped_on = excluded.stopped_on,
			depreciation_method = excluded.depreciation_method,
			depreciation_period = excluded.depreciation_period,
			depreciation_percentage = excluded.depreciation_percentage,
			depreciation_fiscal_coefficient = excluded.depreciation_fiscal_coefficient,
			state = excluded.state,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		a.ID, a.Name, a.Currency,
		a.DepreciableAmount.String(),
		nullDate(a.StartedOn), nullDate(a.StoppedOn),
		string(a.Method), string(a.Period),
		a.Percentage.String(), a.FiscalCoefficient.String(),
		string(a.State),
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save asset %s: %w", a.ID, err)
	}
	return nil
}

const assetColumns = `id, name, currency, depreciable_amount, started_on, stopped_on,
	depreciation_method, depreciation_period, depreciation_percentage,
	depreciation_fiscal_coefficient, state, created_at, updated_at`

// GetAsset retrieves an asset by ID. Returns nil, nil when not found.
func (s *Store) GetAsset(ctx context.Context, id string) (*fixedasset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAsset(ctx, s.db, id)
}

func getAsset(ctx context.Context, q querier, id string) (*fixedasset.Asset, error) {
	row := q.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssets returns all assets ordered by ID.
func (s *Store) ListAssets(ctx context.Context) ([]fixedasset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAssets(ctx, s.db)
}

func listAssets(ctx context.Context, q querier) ([]fixedasset.Asset, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []fixedasset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (fixedasset.Asset, error) {
	var (
		a                               fixedasset.Asset
		amount, percentage, coefficient string
		startedOn, stoppedOn            sql.NullString
		method, period, state           string
		createdAt, updatedAt            string
	)

	err := row.Scan(
		&a.ID, &a.Name, &a.Currency, &amount, &startedOn, &stoppedOn,
		&method, &period, &percentage, &coefficient, &state, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	if err != nil {
		return a, fmt.Errorf("failed to scan asset: %w", err)
	}

	if a.DepreciableAmount, err = decimal.NewFromString(amount); err != nil {
		return a, fmt.Errorf("asset %s: depreciable_amount: %w", a.ID, err)
	}
	if a.Percentage, err = decimal.NewFromString(percentage); err != nil {
		return a, fmt.Errorf("asset %s: depreciation_percentage: %w", a.ID, err)
	}
	if a.FiscalCoefficient, err = decimal.NewFromString(coefficient); err != nil {
		return a, fmt.Errorf("asset %s: depreciation_fiscal_coefficient: %w", a.ID, err)
	}
	if a.StartedOn, err = parseNullDate(startedOn); err != nil {
		return a, err
	}
	if a.StoppedOn, err = parseNullDate(stoppedOn); err != nil {
		return a, err
	}
	a.Method = depreciation.Method(method)
	a.Period = depreciation.Granularity(period)
	a.State = fixedasset.State(state)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

// LoadSchedule returns the periods of an asset ordered by position.
func (s *Store) LoadSchedule(ctx context.Context, assetID string) ([]depreciation.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadSchedule(ctx, s.db, assetID)
}

func loadSchedule(ctx context.Context, q querier, assetID string) ([]depreciation.Period, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT position, started_on, stopped_on, amount, depreciated_amount, duration, locked
		FROM depreciation_periods
		WHERE asset_id = ?
		ORDER BY position ASC
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var periods []depreciation.Period
	for rows.Next() {
		var (
			p                             depreciation.Period
			startedOn, stoppedOn          string
			amount, depreciated, duration string
		)
		if err := rows.Scan(&p.Position, &startedOn, &stoppedOn, &amount, &depreciated, &duration, &p.Locked); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		if p.StartedOn, err = depreciation.ParseDate(startedOn); err != nil {
			return nil, err
		}
		if p.StoppedOn, err = depreciation.ParseDate(stoppedOn); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("period %d: amount: %w", p.Position, err)
		}
		if p.DepreciatedAmount, err = decimal.NewFromString(depreciated); err != nil {
			return nil, fmt.Errorf("period %d: depreciated_amount: %w", p.Position, err)
		}
		if p.Duration, err = decimal.NewFromString(duration); err != nil {
			return nil, fmt.Errorf("period %d: duration: %w", p.Position, err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// ReplaceSchedule atomically replaces every period of an asset.
func (s *Store) ReplaceSchedule(ctx context.Context, assetID string, periods []depreciation.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := replaceSchedule(ctx, sqlTx, assetID, periods); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func replaceSchedule(ctx context.Context, q querier, assetID string, periods []depreciation.Period) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM depreciation_periods WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}

	query := `
		INSERT INTO depreciation_periods
		(id, asset_id, position, started_on, stopped_on, amount, depreciated_amount, duration, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, p := range periods {
		_, err := q.ExecContext(ctx, query,
			uuid.NewString(), assetID, p.Position,
			p.StartedOn.String(), p.StoppedOn.String(),
			p.Amount.String(), p.DepreciatedAmount.String(), p.Duration.String(),
			p.Locked,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("duplicate position %d in schedule of %s: %w", p.Position, assetID, err)
			}
			return fmt.Errorf("failed to insert period: %w", err)
		}
	}
	return nil
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

// SaveFiscalYear inserts or updates a fiscal year.
func (s *Store) SaveFiscalYear(ctx context.Context, fy fixedasset.FiscalYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveFiscalYear(ctx, s.db, fy)
}

func saveFiscalYear(ctx context.Context, q querier, fy fixedasset.FiscalYear) error {
	query := `
		INSERT INTO fiscal_years (id, started_on, stopped_on, closed, closed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_on = excluded.started_on,
			stopped_on = excluded.stopped_on,
			closed = excluded.closed,
			closed_at = excluded.closed_at
	`

	var closedAt *string
	if fy.ClosedAt != nil {
		s := fy.ClosedAt.UTC().Format(time.RFC3339)
		closedAt = &s
	}

	_, err := q.ExecContext(ctx, query,
		fy.ID, fy.StartedOn.String(), fy.StoppedOn.String(), fy.Closed, closedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save fiscal year %s: %w", fy.ID, err)
	}
	return nil
}

const fiscalYearColumns = "id, started_on, stopped_on, closed, closed_at"

// GetFiscalYear retrieves a fiscal year by ID. Returns nil, nil when not found.
func (s *Store) GetFiscalYear(ctx context.Context, id string) (*fixedasset.FiscalYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFiscalYear(ctx, s.db, id)
}

func getFiscalYear(ctx context.Context, q querier, id string) (*fixedasset.FiscalYear, error) {
	row := q.QueryRowContext(ctx, "SELECT "+fiscalYearColumns+" FROM fiscal_years WHERE id = ?", id)
	fy, err := scanFiscalYear(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

// ListFiscalYears returns fiscal years ordered by start date.
func (s *Store) ListFiscalYears(ctx context.Context) ([]fixedasset.FiscalYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listFiscalYears(ctx, s.db)
}

func listFiscalYears(ctx context.Context, q querier) ([]fixedasset.FiscalYear, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+fiscalYearColumns+" FROM fiscal_years ORDER BY started_on ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal years: %w", err)
	}
	defer rows.Close()

	var fys []fixedasset.FiscalYear
	for rows.Next() {
		fy, err := scanFiscalYear(rows)
		if err != nil {
			return nil, err
		}
		fys = append(fys, fy)
	}
	return fys, rows.Err()
}

func scanFiscalYear(row scanner) (fixedasset.FiscalYear, error) {
	var (
		fy                   fixedasset.FiscalYear
		startedOn, stoppedOn string
		closedAt             sql.NullString
	)
	err := row.Scan(&fy.ID, &startedOn, &stoppedOn, &fy.Closed, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fy, err
	}
	if err != nil {
		return fy, fmt.Errorf("failed to scan fiscal year: %w", err)
	}

	if fy.StartedOn, err = depreciation.ParseDate(startedOn); err != nil {
		return fy, err
	}
	if fy.StoppedOn, err = depreciation.ParseDate(stoppedOn); err != nil {
		return fy, err
	}
	if closedAt.Valid {
		t, _ := time.Parse(time.RFC3339, closedAt.String)
		fy.ClosedAt = &t
	}
	return fy, nil
}

// =============================================================================
// TRANSACTIONAL STORE (fixedasset.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store fixedasset.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads and writes through the open transaction only; the parent
// lock is already held by WithTx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveAsset(ctx context.Context, a fixedasset.Asset) error {
	return saveAsset(ctx, ts.tx, a)
}

func (ts *txStore) GetAsset(ctx context.Context, id string) (*fixedasset.Asset, error) {
	return getAsset(ctx, ts.tx, id)
}

func (ts *txStore) ListAssets(ctx context.Context) ([]fixedasset.Asset, error) {
	return listAssets(ctx, ts.tx)
}

func (ts *txStore) LoadSchedule(ctx context.Context, assetID string) ([]depreciation.Period, error) {
	return loadSchedule(ctx, ts.tx, assetID)
}

func (ts *txStore) ReplaceSchedule(ctx context.Context, assetID string, periods []depreciation.Period) error {
	return replaceSchedule(ctx, ts.tx, assetID, periods)
}

func (ts *txStore) SaveFiscalYear(ctx context.Context, fy fixedasset.FiscalYear) error {
	return saveFiscalYear(ctx, ts.tx, fy)
}

func (ts *txStore) GetFiscalYear(ctx context.Context, id string) (*fixedasset.FiscalYear, error) {
	return getFiscalYear(ctx, ts.tx, id)
}

func (ts *txStore) ListFiscalYears(ctx context.Context) ([]fixedasset.FiscalYear, error) {
	return listFiscalYears(ctx, ts.tx)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"depreciation_periods", "assets", "fiscal_years"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// CountLocked returns how many periods are locked across all assets.
func (s *Store) CountLocked(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM depreciation_periods WHERE locked = 1").Scan(&count)
	return count, err
}

// Helper functions

func nullDate(d depreciation.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (depreciation.Date, error) {
	if !s.Valid || s.String == "" {
		return depreciation.Date{}, nil
	}
	return depreciation.ParseDate(s.String)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
