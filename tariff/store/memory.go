// Package store provides ConfigSource implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/tariff-engine/tariff"
)

// =============================================================================
// MEMORY SOURCE - In-memory configuration (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	rates      map[tariff.RateID]tariff.Rate
	windows    map[tariff.RateID][]tariff.TimeWindow
	thresholds map[tariff.RateID][]tariff.Threshold
	rules      map[tariff.RateID][]tariff.PricingRule
}

func NewMemory() *Memory {
	return &Memory{
		rates:      make(map[tariff.RateID]tariff.Rate),
		windows:    make(map[tariff.RateID][]tariff.TimeWindow),
		thresholds: make(map[tariff.RateID][]tariff.Threshold),
		rules:      make(map[tariff.RateID][]tariff.PricingRule),
	}
}

// PutRate adds or replaces a rate.
func (m *Memory) PutRate(r tariff.Rate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[r.ID] = r
}

// AddWindow appends a time window to its rate.
func (m *Memory) AddWindow(w tariff.TimeWindow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[w.RateID] = append(m.windows[w.RateID], w)
}

// AddThreshold appends a threshold row to its source rate.
func (m *Memory) AddThreshold(t tariff.Threshold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[t.SourceRateID] = append(m.thresholds[t.SourceRateID], t)
}

// AddRule appends a pricing rule to its rate.
func (m *Memory) AddRule(r tariff.PricingRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.RateID] = append(m.rules[r.RateID], r)
}

// Rate returns a rate by ID.
func (m *Memory) Rate(id tariff.RateID) (tariff.Rate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rates[id]
	return r, ok
}

func (m *Memory) TimeWindows(_ context.Context, rateID tariff.RateID, windowType tariff.WindowType) ([]tariff.TimeWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []tariff.TimeWindow
	for _, w := range m.windows[rateID] {
		if w.Type == windowType {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *Memory) Thresholds(_ context.Context, sourceRateID tariff.RateID) ([]tariff.Threshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]tariff.Threshold, len(m.thresholds[sourceRateID]))
	copy(result, m.thresholds[sourceRateID])
	return result, nil
}

func (m *Memory) PricingRules(_ context.Context, rateID tariff.RateID) ([]tariff.PricingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]tariff.PricingRule, len(m.rules[rateID]))
	copy(result, m.rules[rateID])
	return result, nil
}

func (m *Memory) RelatedRates(_ context.Context, vehicleType string, filter tariff.RateFilter) ([]tariff.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []tariff.Rate
	for _, r := range m.rates {
		if vehicleType != "" && r.VehicleType != vehicleType {
			continue
		}
		if filter.Matches(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
