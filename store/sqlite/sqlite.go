/*
Package sqlite provides a SQLite-backed tariff configuration store.

PURPOSE:
  Holds the tariff tables (rates, time windows, thresholds, pricing rules)
  and serves them to the pricing engine through tariff.ConfigSource. The
  engine only reads; tables are written by ImportTable (demo scenarios,
  seeding) and cleared by Reset.

INTERFACES IMPLEMENTED:
  tariff.ConfigSource: TimeWindows, Thresholds, PricingRules, RelatedRates

KEY TABLES:
  rates:           One row per tariff (type stored as its label)
  time_windows:    When a non-hourly rate applies, and its overage rate
  rate_thresholds: Price ceilings suggesting another rate
  pricing_rules:   Extra charge lines

MONEY:
  Stored as TEXT decimal strings and read back with shopspring/decimal, so
  no value ever passes through float64.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The engine fans reads out
  concurrently; they share the read lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block.
  ":memory:" databases are pinned to one connection, since each new
  connection would otherwise open its own empty database.

USAGE:
  store, err := sqlite.New("./data/tariffs.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := tariff.NewEngine(store, tariff.Options{})

SEE ALSO:
  - tariff/source.go: ConfigSource
  - tariff/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: Same reads against PostgreSQL
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

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/tariff-engine/factory"
	"github.com/warp/tariff-engine/tariff"
)

// Store implements tariff.ConfigSource using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rates (
		id TEXT PRIMARY KEY,
		vehicle_type TEXT NOT NULL,
		rate_type TEXT NOT NULL,
		value TEXT NOT NULL,
		unit TEXT,
		courtesy_minutes INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- RelatedRates looks rates up by vehicle type
	CREATE INDEX IF NOT EXISTS idx_rates_vehicle_type
		ON rates(vehicle_type, is_active);

	CREATE TABLE IF NOT EXISTS time_windows (
		id TEXT PRIMARY KEY,
		rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
		window_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		start_day INTEGER,
		end_day INTEGER,
		duration_limit_minutes INTEGER NOT NULL DEFAULT 0,
		extra_rate_id TEXT,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_time_windows_rate
		ON time_windows(rate_id, window_type);

	CREATE TABLE IF NOT EXISTS rate_thresholds (
		id TEXT PRIMARY KEY,
		source_rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
		target_rate_id TEXT NOT NULL,
		threshold_amount TEXT NOT NULL,
		auto_apply INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_rate_thresholds_source
		ON rate_thresholds(source_rate_id);

	CREATE TABLE IF NOT EXISTS pricing_rules (
		id TEXT PRIMARY KEY,
		rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
		name TEXT,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_pricing_rules_rate
		ON pricing_rules(rate_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportTable upserts every record of a validated tariff table in one
// transaction. Rows already present with the same ID are replaced.
func (s *Store) ImportTable(ctx context.Context, table *factory.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range table.Rates {
		if err := insertRate(ctx, tx, r, now); err != nil {
			return fmt.Errorf("failed to save rate %s: %w", r.ID, err)
		}
	}
	for _, w := range table.TimeWindows {
		if err := insertWindow(ctx, tx, w); err != nil {
			return fmt.Errorf("failed to save time window %s: %w", w.ID, err)
		}
	}
	for _, t := range table.Thresholds {
		if err := insertThreshold(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to save threshold %s: %w", t.ID, err)
		}
	}
	for _, r := range table.PricingRules {
		if err := insertRule(ctx, tx, r); err != nil {
			return fmt.Errorf("failed to save pricing rule %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func insertRate(ctx context.Context, tx *sql.Tx, r tariff.Rate, now string) error {
	var courtesy sql.NullInt64
	if r.CourtesyMinutes != nil {
		courtesy = sql.NullInt64{Int64: int64(*r.CourtesyMinutes), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rates (id, vehicle_type, rate_type, value, unit, courtesy_minutes, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vehicle_type = excluded.vehicle_type,
			rate_type = excluded.rate_type,
			value = excluded.value,
			unit = excluded.unit,
			courtesy_minutes = excluded.courtesy_minutes,
			is_active = excluded.is_active
	`, string(r.ID), r.VehicleType, r.Type.String(), r.Value.String(), nullString(r.Unit), courtesy, r.IsActive, now)
	return err
}

func insertWindow(ctx context.Context, tx *sql.Tx, w tariff.TimeWindow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO time_windows (id, rate_id, window_type, start_time, end_time, start_day, end_day,
			duration_limit_minutes, extra_rate_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rate_id = excluded.rate_id,
			window_type = excluded.window_type,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			start_day = excluded.start_day,
			end_day = excluded.end_day,
			duration_limit_minutes = excluded.duration_limit_minutes,
			extra_rate_id = excluded.extra_rate_id,
			is_active = excluded.is_active
	`, string(w.ID), string(w.RateID), string(w.Type), w.StartTime.String(), w.EndTime.String(),
		nullInt(w.StartDay), nullInt(w.EndDay), w.DurationLimitMinutes, nullString(string(w.ExtraRateID)), w.IsActive)
	return err
}

func insertThreshold(ctx context.Context, tx *sql.Tx, t tariff.Threshold) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rate_thresholds (id, source_rate_id, target_rate_id, threshold_amount, auto_apply)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_rate_id = excluded.source_rate_id,
			target_rate_id = excluded.target_rate_id,
			threshold_amount = excluded.threshold_amount,
			auto_apply = excluded.auto_apply
	`, string(t.ID), string(t.SourceRateID), string(t.TargetRateID), t.ThresholdAmount.String(), t.AutoApply)
	return err
}

func insertRule(ctx context.Context, tx *sql.Tx, r tariff.PricingRule) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pricing_rules (id, rate_id, name, kind, amount, start_time, end_time, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rate_id = excluded.rate_id,
			name = excluded.name,
			kind = excluded.kind,
			amount = excluded.amount,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			priority = excluded.priority,
			is_active = excluded.is_active
	`, string(r.ID), string(r.RateID), nullString(r.Name), string(r.Kind), r.Amount.String(),
		nullClock(r.StartTime), nullClock(r.EndTime), r.Priority, r.IsActive)
	return err
}

// =============================================================================
// RATES
// =============================================================================

const rateColumns = "id, vehicle_type, rate_type, value, unit, courtesy_minutes, is_active"

// GetRate retrieves a rate by ID. Returns an error wrapping
// tariff.ErrRateNotFound when it does not exist.
func (s *Store) GetRate(ctx context.Context, id tariff.RateID) (tariff.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+rateColumns+" FROM rates WHERE id = ?", string(id))
	r, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tariff.Rate{}, fmt.Errorf("%w: %s", tariff.ErrRateNotFound, id)
	}
	return r, err
}

// ListRates returns rates matching filter, ordered by vehicle type and ID.
func (s *Store) ListRates(ctx context.Context, filter tariff.RateFilter) ([]tariff.Rate, error) {
	return s.queryRates(ctx, "", filter)
}

// RelatedRates implements tariff.ConfigSource. An empty vehicleType matches
// every vehicle type.
func (s *Store) RelatedRates(ctx context.Context, vehicleType string, filter tariff.RateFilter) ([]tariff.Rate, error) {
	return s.queryRates(ctx, vehicleType, filter)
}

func (s *Store) queryRates(ctx context.Context, vehicleType string, filter tariff.RateFilter) ([]tariff.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if vehicleType != "" {
		where = append(where, "vehicle_type = ?")
		args = append(args, vehicleType)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if len(filter.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, string(id))
		}
	}

	query := "SELECT " + rateColumns + " FROM rates"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY vehicle_type, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []tariff.Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		// Types are labels in the table; match them after parsing.
		if filter.Matches(r) {
			rates = append(rates, r)
		}
	}
	return rates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (tariff.Rate, error) {
	var (
		r                tariff.Rate
		id, label, value string
		unit             sql.NullString
		courtesy         sql.NullInt64
	)
	if err := row.Scan(&id, &r.VehicleType, &label, &value, &unit, &courtesy, &r.IsActive); err != nil {
		return tariff.Rate{}, err
	}

	rt, err := tariff.ParseRateType(label)
	if err != nil {
		return tariff.Rate{}, fmt.Errorf("rate %s: %w", id, err)
	}
	if r.Value, err = decimal.NewFromString(value); err != nil {
		return tariff.Rate{}, fmt.Errorf("rate %s: invalid value %q: %w", id, value, err)
	}

	r.ID = tariff.RateID(id)
	r.Type = rt
	r.Unit = unit.String
	if courtesy.Valid {
		c := int(courtesy.Int64)
		r.CourtesyMinutes = &c
	}
	return r, nil
}

// =============================================================================
// CONFIG SOURCE (tariff.ConfigSource interface)
// =============================================================================

// TimeWindows returns every window of rateID with the given type, active or
// not. Selection is the engine's job.
func (s *Store) TimeWindows(ctx context.Context, rateID tariff.RateID, windowType tariff.WindowType) ([]tariff.TimeWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rate_id, window_type, start_time, end_time, start_day, end_day,
			duration_limit_minutes, extra_rate_id, is_active
		FROM time_windows
		WHERE rate_id = ? AND window_type = ?
		ORDER BY id
	`, string(rateID), string(windowType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []tariff.TimeWindow
	for rows.Next() {
		var (
			w                       tariff.TimeWindow
			id, rid, wt, start, end string
			startDay, endDay        sql.NullInt64
			extra                   sql.NullString
		)
		if err := rows.Scan(&id, &rid, &wt, &start, &end, &startDay, &endDay,
			&w.DurationLimitMinutes, &extra, &w.IsActive); err != nil {
			return nil, err
		}
		if w.StartTime, err = tariff.ParseClockTime(start); err != nil {
			return nil, fmt.Errorf("time window %s: %w", id, err)
		}
		if w.EndTime, err = tariff.ParseClockTime(end); err != nil {
			return nil, fmt.Errorf("time window %s: %w", id, err)
		}
		w.ID = tariff.WindowID(id)
		w.RateID = tariff.RateID(rid)
		w.Type = tariff.WindowType(wt)
		w.StartDay = intPtr(startDay)
		w.EndDay = intPtr(endDay)
		w.ExtraRateID = tariff.RateID(extra.String)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// Thresholds returns the threshold rows whose source is sourceRateID.
func (s *Store) Thresholds(ctx context.Context, sourceRateID tariff.RateID) ([]tariff.Threshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_rate_id, target_rate_id, threshold_amount, auto_apply
		FROM rate_thresholds
		WHERE source_rate_id = ?
		ORDER BY id
	`, string(sourceRateID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thresholds []tariff.Threshold
	for rows.Next() {
		var t tariff.Threshold
		var id, source, target, amount string
		if err := rows.Scan(&id, &source, &target, &amount, &t.AutoApply); err != nil {
			return nil, err
		}
		if t.ThresholdAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("threshold %s: invalid amount %q: %w", id, amount, err)
		}
		t.ID = tariff.ThresholdID(id)
		t.SourceRateID = tariff.RateID(source)
		t.TargetRateID = tariff.RateID(target)
		thresholds = append(thresholds, t)
	}
	return thresholds, rows.Err()
}

// PricingRules returns the rules attached to rateID.
func (s *Store) PricingRules(ctx context.Context, rateID tariff.RateID) ([]tariff.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rate_id, name, kind, amount, start_time, end_time, priority, is_active
		FROM pricing_rules
		WHERE rate_id = ?
		ORDER BY priority, id
	`, string(rateID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []tariff.PricingRule
	for rows.Next() {
		var (
			r                     tariff.PricingRule
			id, rid, kind, amount string
			name, start, end      sql.NullString
		)
		if err := rows.Scan(&id, &rid, &name, &kind, &amount, &start, &end, &r.Priority, &r.IsActive); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("pricing rule %s: invalid amount %q: %w", id, amount, err)
		}
		if r.StartTime, err = clockPtr(start); err != nil {
			return nil, fmt.Errorf("pricing rule %s: %w", id, err)
		}
		if r.EndTime, err = clockPtr(end); err != nil {
			return nil, fmt.Errorf("pricing rule %s: %w", id, err)
		}
		r.ID = tariff.RuleID(id)
		r.RateID = tariff.RateID(rid)
		r.Name = name.String
		r.Kind = tariff.RuleKind(kind)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Counts reports the number of rows per table.
type Counts struct {
	Rates        int `json:"rates"`
	TimeWindows  int `json:"time_windows"`
	Thresholds   int `json:"thresholds"`
	PricingRules int `json:"pricing_rules"`
}

// Count returns the row count of every tariff table.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM rates),
			(SELECT COUNT(*) FROM time_windows),
			(SELECT COUNT(*) FROM rate_thresholds),
			(SELECT COUNT(*) FROM pricing_rules)
	`).Scan(&c.Rates, &c.TimeWindows, &c.Thresholds, &c.PricingRules)
	return c, err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"pricing_rules", "rate_thresholds", "time_windows", "rates"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullClock(c *tariff.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func clockPtr(s sql.NullString) (*tariff.ClockTime, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	c, err := tariff.ParseClockTime(s.String)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
