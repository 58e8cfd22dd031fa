// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires the observability surface
// directly to github.com/prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every gauge/counter/histogram the CORE exposes. A
// process constructs exactly one and wires it into every subsystem at
// startup.
type Registry struct {
	VerticesFinalized  prometheus.Counter
	FinalityTimeMs     prometheus.Histogram
	PreparesReceived   prometheus.Counter
	CommitsReceived    prometheus.Counter
	ViewChanges        prometheus.Counter
	ByzantineDetected  prometheus.Counter
	ReputationMean     prometheus.Gauge
	StakeTotal         prometheus.Gauge
	RewardsPendingTotal prometheus.Gauge
	Phi                *prometheus.GaugeVec
	OperationMode      prometheus.Gauge
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) (*Registry, error) {
	r := &Registry{
		VerticesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_vertices_finalized_total",
			Help: "Total number of vertices finalized by this node.",
		}),
		FinalityTimeMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "consensus_finality_time_ms",
			Help:    "Time from proposal to finalization, in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}),
		PreparesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_prepares_received_total",
			Help: "Total Prepare messages accepted.",
		}),
		CommitsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_commits_received_total",
			Help: "Total Commit messages accepted.",
		}),
		ViewChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_view_changes_total",
			Help: "Total view changes triggered.",
		}),
		ByzantineDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_byzantine_detected_total",
			Help: "Total nodes marked Byzantine.",
		}),
		ReputationMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_reputation_mean",
			Help: "Mean reputation score across known nodes.",
		}),
		StakeTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_stake_total",
			Help: "Total staked amount across known nodes.",
		}),
		RewardsPendingTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_rewards_pending_total",
			Help: "Total rewards computed but not yet distributed.",
		}),
		Phi: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consensus_phi",
			Help: "Current phi-accrual suspicion level per peer.",
		}, []string{"peer"}),
		OperationMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_operation_mode",
			Help: "Current degraded-mode ordinal: 0=Normal 1=Minor 2=Moderate 3=Severe 4=DegradedCritical 5=Critical.",
		}),
	}

	collectors := []prometheus.Collector{
		r.VerticesFinalized, r.FinalityTimeMs, r.PreparesReceived, r.CommitsReceived,
		r.ViewChanges, r.ByzantineDetected, r.ReputationMean, r.StakeTotal,
		r.RewardsPendingTotal, r.Phi, r.OperationMode,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewNoOpRegistry returns a Registry registered against a fresh, unshared
// prometheus.Registry, for tests and components constructed without an
// operator-supplied registerer.
func NewNoOpRegistry() *Registry {
	r, err := NewRegistry(prometheus.NewRegistry())
	if err != nil {
		// Construction against a fresh registry cannot fail with
		// AlreadyRegisteredError; any other failure is a programming bug.
		panic("metrics: no-op registry construction failed: " + err.Error())
	}
	return r
}
