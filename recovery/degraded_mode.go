// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package recovery

import (
	"math"
	"sync"
	"time"

	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/metrics"
)

// Mode is a degraded-mode health tier, ordered from
// healthiest to worst so its ordinal doubles as the consensus_operation_mode
// metric value.
type Mode int

const (
	ModeNormal Mode = iota
	ModeMinor
	ModeModerate
	ModeSevere
	ModeDegradedCritical
	ModeCritical
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeMinor:
		return "minor"
	case ModeModerate:
		return "moderate"
	case ModeSevere:
		return "severe"
	case ModeDegradedCritical:
		return "degraded_critical"
	case ModeCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// EffectiveParameters is the base config.Parameters with the current
// mode's adjustments applied.
type EffectiveParameters struct {
	config.Parameters
	// QuorumOverride, when nonzero, replaces config.QuorumSize(total) —
	// used by ModeCritical's "quorum raised to 75%".
	QuorumOverride int
}

// Coordinator is the degraded-mode coordinator. It reads
// peer health from a PeerSet and computes the operating mode and its
// effective parameters on each EvaluateMode call; the caller is
// responsible for invoking EvaluateMode periodically (e.g. once per
// heartbeat interval).
type Coordinator struct {
	mu sync.Mutex

	peers   *PeerSet
	base    config.Parameters
	metrics *metrics.Registry

	current Mode
}

// NewCoordinator returns a Coordinator starting in ModeNormal.
func NewCoordinator(peers *PeerSet, base config.Parameters, reg *metrics.Registry) *Coordinator {
	return &Coordinator{peers: peers, base: base, metrics: reg, current: ModeNormal}
}

// CurrentMode returns the mode computed by the most recent EvaluateMode
// call (ModeNormal before the first call).
func (c *Coordinator) CurrentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// EvaluateMode computes the current mode from total known peers and the
// PeerSet's active count, returning the mode, its effective parameters,
// and whether the mode changed since the previous call.
func (c *Coordinator) EvaluateMode(total int) (Mode, EffectiveParameters, bool) {
	active := c.peers.ActiveCount()
	quorum := config.QuorumSize(total)

	var mode Mode
	switch {
	// The hard operational floor takes priority over the peer_loss
	// banding below: falling under quorum is always Critical regardless
	// of what fraction that represents.
	case total > 0 && active < quorum:
		mode = ModeCritical
	case total == 0:
		mode = ModeCritical
	default:
		peerLoss := 1 - float64(active)/float64(total)
		switch {
		case peerLoss <= 0.10:
			mode = ModeNormal
		case peerLoss <= 0.20:
			mode = ModeMinor
		case peerLoss <= 0.33:
			mode = ModeModerate
		case peerLoss <= 0.50:
			mode = ModeSevere
		default:
			mode = ModeDegradedCritical
		}
	}

	params := effectiveParameters(c.base, mode, total)

	c.mu.Lock()
	changed := mode != c.current
	c.current = mode
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.OperationMode.Set(float64(mode))
	}
	return mode, params, changed
}

func effectiveParameters(base config.Parameters, mode Mode, total int) EffectiveParameters {
	p := EffectiveParameters{Parameters: base}
	switch mode {
	case ModeNormal:
		// base parameters, unchanged.
	case ModeMinor:
		p.FinalityTimeout = scaleDuration(base.FinalityTimeout, 1.25)
		p.HeartbeatInterval = scaleDuration(base.HeartbeatInterval, 0.5)
	case ModeModerate:
		p.FinalityTimeout = scaleDuration(base.FinalityTimeout, 1.5)
		p.MaxConcurrentProposals = base.MaxConcurrentProposals / 2
	case ModeSevere:
		p.FinalityTimeout = scaleDuration(base.FinalityTimeout, 2)
		p.ThrottleVerticesPerSecond = 500
	case ModeDegradedCritical:
		p.FinalityTimeout = scaleDuration(base.FinalityTimeout, 3)
		p.ThrottleVerticesPerSecond = 100
		p.MaxPendingVertices = 1000
	case ModeCritical:
		p.FinalityTimeout = 5 * time.Second
		p.ThrottleVerticesPerSecond = 50
		p.QuorumOverride = int(math.Ceil(0.75 * float64(total)))
	}
	return p
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
