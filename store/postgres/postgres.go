/*
Package postgres provides a PostgreSQL-backed tariff configuration store.

PURPOSE:
  Same tables and reads as store/sqlite, for deployments where the tariff
  tables live in a shared PostgreSQL database. Implements
  tariff.ConfigSource over a pgx connection pool.

TYPES:
  Money is NUMERIC(12,2) and clock times are TIME. Both are read back as
  text (value::text, to_char) so decimals never pass through float64.

CONCURRENCY:
  pgxpool hands each concurrent engine read its own connection.

USAGE:
  store, err := postgres.New(ctx, "postgres://tariff@localhost:5432/tariff")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  if err := store.Migrate(ctx); err != nil {
      log.Fatal(err)
  }

SEE ALSO:
  - store/sqlite/sqlite.go: Embedded equivalent
*/
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/tariff-engine/factory"
	"github.com/warp/tariff-engine/tariff"
)

// Store implements tariff.ConfigSource using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for dsn and verifies it.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS rates (
	id TEXT PRIMARY KEY,
	vehicle_type TEXT NOT NULL,
	rate_type TEXT NOT NULL,
	value NUMERIC(12,2) NOT NULL CHECK (value >= 0),
	unit TEXT,
	courtesy_minutes INTEGER,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rates_vehicle_type ON rates(vehicle_type, is_active);

CREATE TABLE IF NOT EXISTS time_windows (
	id TEXT PRIMARY KEY,
	rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
	window_type TEXT NOT NULL,
	start_time TIME NOT NULL,
	end_time TIME NOT NULL,
	start_day SMALLINT CHECK (start_day BETWEEN 1 AND 7),
	end_day SMALLINT CHECK (end_day BETWEEN 1 AND 7),
	duration_limit_minutes INTEGER NOT NULL DEFAULT 0,
	extra_rate_id TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_time_windows_rate ON time_windows(rate_id, window_type);

CREATE TABLE IF NOT EXISTS rate_thresholds (
	id TEXT PRIMARY KEY,
	source_rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
	target_rate_id TEXT NOT NULL,
	threshold_amount NUMERIC(12,2) NOT NULL,
	auto_apply BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_rate_thresholds_source ON rate_thresholds(source_rate_id);

CREATE TABLE IF NOT EXISTS pricing_rules (
	id TEXT PRIMARY KEY,
	rate_id TEXT NOT NULL REFERENCES rates(id) ON DELETE CASCADE,
	name TEXT,
	kind TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL,
	start_time TIME,
	end_time TIME,
	priority INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_pricing_rules_rate ON pricing_rules(rate_id);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportTable upserts a validated tariff table in one transaction.
func (s *Store) ImportTable(ctx context.Context, table *factory.Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range table.Rates {
		batch.Queue(`
			INSERT INTO rates (id, vehicle_type, rate_type, value, unit, courtesy_minutes, is_active)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				vehicle_type = EXCLUDED.vehicle_type,
				rate_type = EXCLUDED.rate_type,
				value = EXCLUDED.value,
				unit = EXCLUDED.unit,
				courtesy_minutes = EXCLUDED.courtesy_minutes,
				is_active = EXCLUDED.is_active`,
			string(r.ID), r.VehicleType, r.Type.String(), r.Value.String(), nullable(r.Unit), r.CourtesyMinutes, r.IsActive)
	}
	for _, w := range table.TimeWindows {
		batch.Queue(`
			INSERT INTO time_windows (id, rate_id, window_type, start_time, end_time, start_day, end_day,
				duration_limit_minutes, extra_rate_id, is_active)
			VALUES ($1, $2, $3, $4::time, $5::time, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				rate_id = EXCLUDED.rate_id,
				window_type = EXCLUDED.window_type,
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				start_day = EXCLUDED.start_day,
				end_day = EXCLUDED.end_day,
				duration_limit_minutes = EXCLUDED.duration_limit_minutes,
				extra_rate_id = EXCLUDED.extra_rate_id,
				is_active = EXCLUDED.is_active`,
			string(w.ID), string(w.RateID), string(w.Type), w.StartTime.String(), w.EndTime.String(),
			w.StartDay, w.EndDay, w.DurationLimitMinutes, nullable(string(w.ExtraRateID)), w.IsActive)
	}
	for _, t := range table.Thresholds {
		batch.Queue(`
			INSERT INTO rate_thresholds (id, source_rate_id, target_rate_id, threshold_amount, auto_apply)
			VALUES ($1, $2, $3, $4::numeric, $5)
			ON CONFLICT (id) DO UPDATE SET
				source_rate_id = EXCLUDED.source_rate_id,
				target_rate_id = EXCLUDED.target_rate_id,
				threshold_amount = EXCLUDED.threshold_amount,
				auto_apply = EXCLUDED.auto_apply`,
			string(t.ID), string(t.SourceRateID), string(t.TargetRateID), t.ThresholdAmount.String(), t.AutoApply)
	}
	for _, r := range table.PricingRules {
		batch.Queue(`
			INSERT INTO pricing_rules (id, rate_id, name, kind, amount, start_time, end_time, priority, is_active)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::time, $7::time, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				rate_id = EXCLUDED.rate_id,
				name = EXCLUDED.name,
				kind = EXCLUDED.kind,
				amount = EXCLUDED.amount,
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				priority = EXCLUDED.priority,
				is_active = EXCLUDED.is_active`,
			string(r.ID), string(r.RateID), nullable(r.Name), string(r.Kind), r.Amount.String(),
			clockText(r.StartTime), clockText(r.EndTime), r.Priority, r.IsActive)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to import tariff table: %w", err)
	}
	return tx.Commit(ctx)
}

// Reset clears all tariff tables.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE pricing_rules, rate_thresholds, time_windows, rates")
	return err
}

// =============================================================================
// RATES
// =============================================================================

const rateColumns = "id, vehicle_type, rate_type, value::text, unit, courtesy_minutes, is_active"

// GetRate retrieves a rate by ID.
func (s *Store) GetRate(ctx context.Context, id tariff.RateID) (tariff.Rate, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+rateColumns+" FROM rates WHERE id = $1", string(id))
	r, err := scanRate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return tariff.Rate{}, fmt.Errorf("%w: %s", tariff.ErrRateNotFound, id)
	}
	return r, err
}

// ListRates returns rates matching filter, ordered by vehicle type and ID.
func (s *Store) ListRates(ctx context.Context, filter tariff.RateFilter) ([]tariff.Rate, error) {
	return s.queryRates(ctx, "", filter)
}

// RelatedRates implements tariff.ConfigSource.
func (s *Store) RelatedRates(ctx context.Context, vehicleType string, filter tariff.RateFilter) ([]tariff.Rate, error) {
	return s.queryRates(ctx, vehicleType, filter)
}

func (s *Store) queryRates(ctx context.Context, vehicleType string, filter tariff.RateFilter) ([]tariff.Rate, error) {
	ids := make([]string, 0, len(filter.IDs))
	for _, id := range filter.IDs {
		ids = append(ids, string(id))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+rateColumns+`
		FROM rates
		WHERE ($1 = '' OR vehicle_type = $1)
		  AND (NOT $2 OR is_active)
		  AND (cardinality($3::text[]) = 0 OR id = ANY($3))
		ORDER BY vehicle_type, id
	`, vehicleType, filter.ActiveOnly, ids)
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
		if filter.Matches(r) {
			rates = append(rates, r)
		}
	}
	return rates, rows.Err()
}

func scanRate(row pgx.Row) (tariff.Rate, error) {
	var (
		r                tariff.Rate
		id, label, value string
		unit             *string
	)
	if err := row.Scan(&id, &r.VehicleType, &label, &value, &unit, &r.CourtesyMinutes, &r.IsActive); err != nil {
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
	if unit != nil {
		r.Unit = *unit
	}
	return r, nil
}

// =============================================================================
// CONFIG SOURCE (tariff.ConfigSource interface)
// =============================================================================

// TimeWindows returns every window of rateID with the given type.
func (s *Store) TimeWindows(ctx context.Context, rateID tariff.RateID, windowType tariff.WindowType) ([]tariff.TimeWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, rate_id, window_type, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
			start_day, end_day, duration_limit_minutes, extra_rate_id, is_active
		FROM time_windows
		WHERE rate_id = $1 AND window_type = $2
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
			extra                   *string
		)
		if err := rows.Scan(&id, &rid, &wt, &start, &end, &w.StartDay, &w.EndDay,
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
		if extra != nil {
			w.ExtraRateID = tariff.RateID(*extra)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// Thresholds returns the threshold rows whose source is sourceRateID.
func (s *Store) Thresholds(ctx context.Context, sourceRateID tariff.RateID) ([]tariff.Threshold, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_rate_id, target_rate_id, threshold_amount::text, auto_apply
		FROM rate_thresholds
		WHERE source_rate_id = $1
		ORDER BY id
	`, string(sourceRateID))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (tariff.Threshold, error) {
		var t tariff.Threshold
		var id, source, target, amount string
		if err := row.Scan(&id, &source, &target, &amount, &t.AutoApply); err != nil {
			return tariff.Threshold{}, err
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return tariff.Threshold{}, fmt.Errorf("threshold %s: invalid amount %q: %w", id, amount, err)
		}
		t.ID = tariff.ThresholdID(id)
		t.SourceRateID = tariff.RateID(source)
		t.TargetRateID = tariff.RateID(target)
		t.ThresholdAmount = v
		return t, nil
	})
}

// PricingRules returns the rules attached to rateID.
func (s *Store) PricingRules(ctx context.Context, rateID tariff.RateID) ([]tariff.PricingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, rate_id, name, kind, amount::text,
			to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), priority, is_active
		FROM pricing_rules
		WHERE rate_id = $1
		ORDER BY priority, id
	`, string(rateID))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (tariff.PricingRule, error) {
		var (
			r                     tariff.PricingRule
			id, rid, kind, amount string
			name, start, end      *string
		)
		if err := row.Scan(&id, &rid, &name, &kind, &amount, &start, &end, &r.Priority, &r.IsActive); err != nil {
			return tariff.PricingRule{}, err
		}
		var err error
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return tariff.PricingRule{}, fmt.Errorf("pricing rule %s: invalid amount %q: %w", id, amount, err)
		}
		if r.StartTime, err = clockPtr(start); err != nil {
			return tariff.PricingRule{}, fmt.Errorf("pricing rule %s: %w", id, err)
		}
		if r.EndTime, err = clockPtr(end); err != nil {
			return tariff.PricingRule{}, fmt.Errorf("pricing rule %s: %w", id, err)
		}
		r.ID = tariff.RuleID(id)
		r.RateID = tariff.RateID(rid)
		r.Kind = tariff.RuleKind(kind)
		if name != nil {
			r.Name = *name
		}
		return r, nil
	})
}

// Helper functions

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clockText(c *tariff.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func clockPtr(s *string) (*tariff.ClockTime, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := tariff.ParseClockTime(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
