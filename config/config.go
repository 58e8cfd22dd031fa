// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config collects every tunable parameter the node's subsystems
// need, following the common config.Parameters convention: named presets
// plus optional YAML overrides. This package only defines the parameter
// set and decodes it from a reader.
package config

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Parameters is the full configuration surface for the CORE.
type Parameters struct {
	// DAG store
	MaxParents int `yaml:"max_parents"`

	// BFT engine
	FinalityTimeout       time.Duration `yaml:"finality_timeout"`
	ViewChangeTimeout     time.Duration `yaml:"view_change_timeout"`
	MaxPendingVertices    int           `yaml:"max_pending_vertices"`
	MaxConcurrentProposals int          `yaml:"max_concurrent_proposals"`
	BatchSize             int          `yaml:"batch_size"` // 0 = auto-tune to min(32, 4*cpus)

	// Failure detector (phi-accrual)
	PhiThreshold            float64       `yaml:"phi_threshold"`
	MaxSamples              int           `yaml:"max_samples"`
	AcceptableHeartbeatPause time.Duration `yaml:"acceptable_heartbeat_pause"`
	SigmaMin                float64       `yaml:"sigma_min"`
	HeartbeatInterval       time.Duration `yaml:"heartbeat_interval"`

	// Peer recovery
	MaxReplacementsPerWindow int           `yaml:"max_replacements_per_window"`
	RecoveryWindow           time.Duration `yaml:"recovery_window"`

	// Reputation
	MinReputation         float64       `yaml:"min_reputation"`
	ReliabilityThreshold  float64       `yaml:"reliability_threshold"`
	// ReputationDecayRate is λ: score decays toward 0.5 at this fraction
	// per elapsed second. There is no universally correct default, so this
	// field has no preset value baked into Mainnet/Testnet/Local below —
	// operators MUST set it, and a zero value disables decay rather than
	// silently picking a number.
	ReputationDecayRate float64 `yaml:"reputation_decay_rate"`
	ByzantineThreshold  int     `yaml:"byzantine_threshold"`

	// Fork reconciliation
	ForkScoreEpsilon float64 `yaml:"fork_score_epsilon"`

	// State sync
	MaxSnapshotBytes int64         `yaml:"max_snapshot_bytes"`
	SyncTimeout      time.Duration `yaml:"sync_timeout"`

	// Rewards
	UptimeEpoch       time.Duration `yaml:"uptime_epoch"`
	UptimeBonusRatio  float64       `yaml:"uptime_bonus_ratio"`

	// Degraded-mode base throttle; 0 means unthrottled. The degraded-mode
	// coordinator (package recovery) scales down from this baseline as
	// peer loss increases.
	ThrottleVerticesPerSecond int `yaml:"throttle_vertices_per_second"`
}

// Mainnet returns production parameters.
func Mainnet() Parameters {
	return Parameters{
		MaxParents:               16,
		FinalityTimeout:          2 * time.Second,
		ViewChangeTimeout:        5 * time.Second,
		MaxPendingVertices:       4096,
		MaxConcurrentProposals:   64,
		BatchSize:                0,
		PhiThreshold:             8.0,
		MaxSamples:               1000,
		AcceptableHeartbeatPause: 3 * time.Second,
		SigmaMin:                 0.05,
		HeartbeatInterval:        500 * time.Millisecond,
		MaxReplacementsPerWindow: 2,
		RecoveryWindow:           30 * time.Second,
		MinReputation:            0.0,
		ReliabilityThreshold:     0.5,
		ReputationDecayRate:      0,
		ByzantineThreshold:       3,
		ForkScoreEpsilon:         0.05,
		MaxSnapshotBytes:         64 << 20,
		SyncTimeout:              30 * time.Second,
		UptimeEpoch:              24 * time.Hour,
		UptimeBonusRatio:         0.1,
		ThrottleVerticesPerSecond: 0,
	}
}

// Testnet returns parameters tuned for faster iteration than Mainnet.
func Testnet() Parameters {
	p := Mainnet()
	p.FinalityTimeout = 1 * time.Second
	p.ViewChangeTimeout = 2 * time.Second
	p.AcceptableHeartbeatPause = 1500 * time.Millisecond
	p.HeartbeatInterval = 250 * time.Millisecond
	p.SyncTimeout = 10 * time.Second
	return p
}

// Local returns parameters for single-process local development and
// tests: tight timeouts, small buffers.
func Local() Parameters {
	p := Mainnet()
	p.FinalityTimeout = 200 * time.Millisecond
	p.ViewChangeTimeout = 500 * time.Millisecond
	p.MaxPendingVertices = 256
	p.MaxConcurrentProposals = 8
	p.AcceptableHeartbeatPause = 300 * time.Millisecond
	p.HeartbeatInterval = 50 * time.Millisecond
	p.MaxSamples = 64
	p.RecoveryWindow = 2 * time.Second
	p.SyncTimeout = 2 * time.Second
	return p
}

// Load decodes YAML overrides from r on top of base.
func Load(base Parameters, r io.Reader) (Parameters, error) {
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&base); err != nil && err != io.EOF {
		return Parameters{}, err
	}
	return base, nil
}

// QuorumSize computes 2*floor((n-1)/3)+1.
func QuorumSize(n int) int {
	return 2*((n-1)/3) + 1
}

// ToleratedByzantine computes f = floor((n-1)/3).
func ToleratedByzantine(n int) int {
	return (n - 1) / 3
}
