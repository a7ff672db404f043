package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/warp/tariff-engine/tariff"
)

var quotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tariff",
	Name:      "quotes_total",
	Help:      "Number of price quotes by rate type and outcome.",
}, []string{"rate_type", "outcome"})

var quoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tariff",
	Name:      "quote_duration_seconds",
	Help:      "Time spent pricing a quote, configuration reads included.",
	Buckets:   prometheus.DefBuckets,
}, []string{"outcome"})

var suggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tariff",
	Name:      "threshold_suggestions_total",
	Help:      "Threshold suggestions returned, by direction and whether they were applied.",
}, []string{"direction", "applied"})

var warningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tariff",
	Name:      "warnings_total",
	Help:      "Pricing warnings by code.",
}, []string{"code"})

func observeQuote(rateType tariff.RateType, outcome string, took time.Duration) {
	quotesTotal.With(prometheus.Labels{"rate_type": rateType.Key(), "outcome": outcome}).Inc()
	quoteDuration.With(prometheus.Labels{"outcome": outcome}).Observe(took.Seconds())
}

func observeResult(res *tariff.Result) {
	for _, s := range res.Suggestions {
		applied := "false"
		if s.Applied {
			applied = "true"
		}
		suggestionsTotal.With(prometheus.Labels{"direction": string(s.Direction), "applied": applied}).Inc()
	}
	for _, w := range res.Warnings {
		warningsTotal.With(prometheus.Labels{"code": string(w.Code)}).Inc()
	}
}
