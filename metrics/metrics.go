// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes Prometheus counters for the update synchronizer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for check and apply counters.
const (
	OutcomeOK         = "ok"
	OutcomeRefused    = "refused"
	OutcomeRolledBack = "rolled_back"
	OutcomeError      = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	// ChecksTotal counts update checks by outcome.
	ChecksTotal *prometheus.CounterVec
	// AppliesTotal counts update applies by outcome.
	AppliesTotal *prometheus.CounterVec
	// ApplyDuration records end-to-end apply duration in seconds.
	ApplyDuration prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vozsmart",
			Subsystem: "update",
			Name:      "checks_total",
			Help:      "Update checks by outcome.",
		}, []string{"outcome"}),
		AppliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vozsmart",
			Subsystem: "update",
			Name:      "applies_total",
			Help:      "Update applies by outcome.",
		}, []string{"outcome"}),
		ApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vozsmart",
			Subsystem: "update",
			Name:      "apply_duration_seconds",
			Help:      "End-to-end apply duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
