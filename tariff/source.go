/*
source.go - Read-only configuration collaborator

PURPOSE:
  The engine reads rates, time windows, thresholds and pricing rules from a
  ConfigSource. It never writes. Every pricing call takes its own snapshot;
  nothing is cached between calls.

CONCURRENCY:
  The reads of one snapshot are independent and run concurrently. All of
  them must complete before any strategy runs. The first failure cancels the
  rest and is returned as a *FetchError. There is no retry here.

IMPLEMENTATIONS:
  - tariff/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go: Embedded SQLite
  - store/postgres/postgres.go: Hosted PostgreSQL (pgx)
*/
package tariff

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ConfigSource provides read access to tariff configuration.
type ConfigSource interface {
	// TimeWindows returns the windows configured for rateID of the given type.
	TimeWindows(ctx context.Context, rateID RateID, windowType WindowType) ([]TimeWindow, error)

	// Thresholds returns the threshold rows whose source is sourceRateID.
	Thresholds(ctx context.Context, sourceRateID RateID) ([]Threshold, error)

	// PricingRules returns the extension rules attached to rateID.
	PricingRules(ctx context.Context, rateID RateID) ([]PricingRule, error)

	// RelatedRates returns rates of the vehicle type matching filter.
	// Used to resolve extra rate and threshold target references.
	RelatedRates(ctx context.Context, vehicleType string, filter RateFilter) ([]Rate, error)
}

// snapshot is the configuration read for one pricing call.
type snapshot struct {
	windows    []TimeWindow
	thresholds []Threshold
	rules      []PricingRule
	rates      map[RateID]Rate
}

func (s *snapshot) rate(id RateID) (Rate, bool) {
	r, ok := s.rates[id]
	return r, ok
}

// loadSnapshot reads everything needed to price rate for vehicleType.
func loadSnapshot(ctx context.Context, src ConfigSource, rate Rate, vehicleType string) (*snapshot, error) {
	var snap snapshot
	var related []Rate

	g, gctx := errgroup.WithContext(ctx)

	if wt, ok := rate.Type.WindowType(); ok {
		g.Go(func() error {
			ws, err := src.TimeWindows(gctx, rate.ID, wt)
			if err != nil {
				return &FetchError{Op: "time_windows", Err: err}
			}
			snap.windows = ws
			return nil
		})
	}
	g.Go(func() error {
		ts, err := src.Thresholds(gctx, rate.ID)
		if err != nil {
			return &FetchError{Op: "thresholds", Err: err}
		}
		snap.thresholds = ts
		return nil
	})
	g.Go(func() error {
		rs, err := src.PricingRules(gctx, rate.ID)
		if err != nil {
			return &FetchError{Op: "pricing_rules", Err: err}
		}
		snap.rules = rs
		return nil
	})
	g.Go(func() error {
		rs, err := src.RelatedRates(gctx, vehicleType, RateFilter{ActiveOnly: true})
		if err != nil {
			return &FetchError{Op: "related_rates", Err: err}
		}
		related = rs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.rates = make(map[RateID]Rate, len(related)+1)
	for _, r := range related {
		snap.rates[r.ID] = r
	}
	snap.rates[rate.ID] = rate
	return &snap, nil
}

// loadTargetConfig reads the window and rules of a threshold target rate.
func loadTargetConfig(ctx context.Context, src ConfigSource, target Rate) ([]TimeWindow, []PricingRule, error) {
	var windows []TimeWindow
	var rules []PricingRule

	g, gctx := errgroup.WithContext(ctx)
	if wt, ok := target.Type.WindowType(); ok {
		g.Go(func() error {
			ws, err := src.TimeWindows(gctx, target.ID, wt)
			if err != nil {
				return &FetchError{Op: "time_windows", Err: err}
			}
			windows = ws
			return nil
		})
	}
	g.Go(func() error {
		rs, err := src.PricingRules(gctx, target.ID)
		if err != nil {
			return &FetchError{Op: "pricing_rules", Err: err}
		}
		rules = rs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return windows, rules, nil
}

// selectWindow picks the window to apply. Only active windows count. Windows
// valid on the entry weekday come first, then narrower weekday ranges, then
// lowest ID. The order never depends on how the source returned the rows.
func selectWindow(windows []TimeWindow, weekday int) (TimeWindow, bool) {
	var candidates []TimeWindow
	for _, w := range windows {
		if w.IsActive {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return TimeWindow{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if aw, bw := a.AllowsWeekday(weekday), b.AllowsWeekday(weekday); aw != bw {
			return aw
		}
		if as, bs := a.weekdaySpan(), b.weekdaySpan(); as != bs {
			return as < bs
		}
		return a.ID < b.ID
	})
	return candidates[0], true
}
