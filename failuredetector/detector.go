// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package failuredetector

import (
	"math"
	"sync"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
)

// Status is a peer's current liveness classification. Available,
// Suspected, and Failed partition the known peer set.
type Status int

const (
	StatusAvailable Status = iota
	StatusSuspected
	StatusFailed
)

type peerState struct {
	hist   *history
	status Status
}

// Detector is the phi-accrual failure detector.
type Detector struct {
	mu sync.RWMutex

	maxSamples               int
	phiThreshold              float64
	sigmaMin                  float64
	acceptableHeartbeatPause  float64 // milliseconds

	peers   map[ids.NodeID]*peerState
	metrics *metrics.Registry
}

// Config bundles the detector's tunables.
type Config struct {
	MaxSamples               int
	PhiThreshold             float64
	SigmaMin                 float64
	AcceptableHeartbeatPauseMillis float64
}

// New returns a Detector with no known peers.
func New(cfg Config, reg *metrics.Registry) *Detector {
	return &Detector{
		maxSamples:               cfg.MaxSamples,
		phiThreshold:             cfg.PhiThreshold,
		sigmaMin:                 cfg.SigmaMin,
		acceptableHeartbeatPause: cfg.AcceptableHeartbeatPauseMillis,
		peers:                    make(map[ids.NodeID]*peerState),
		metrics:                  reg,
	}
}

func (d *Detector) getOrInit(peer ids.NodeID) *peerState {
	p, ok := d.peers[peer]
	if !ok {
		p = &peerState{hist: newHistory(d.maxSamples)}
		d.peers[peer] = p
	}
	return p
}

// RecordHeartbeat records a heartbeat from peer at nowMillis, clearing any
// Suspected/Failed status.
func (d *Detector) RecordHeartbeat(peer ids.NodeID, nowMillis int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.getOrInit(peer)
	p.hist.record(nowMillis)
	p.status = StatusAvailable
}

// Phi computes phi(peer) at nowMillis. Bootstrap: with
// fewer than 2 samples, phi degrades to elapsed/acceptable_heartbeat_pause
// so a peer that never responded is eventually suspected.
func (d *Detector) Phi(peer ids.NodeID, nowMillis int64) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.peers[peer]
	if !ok || p.hist.heartbeatCount == 0 {
		return math.Inf(1)
	}
	elapsed := float64(nowMillis - p.hist.lastHeartbeat)
	samples := p.hist.samples()
	if len(samples) < 2 {
		if d.acceptableHeartbeatPause <= 0 {
			return 0
		}
		return elapsed / d.acceptableHeartbeatPause
	}
	mu, sigma := meanStdDev(samples, d.sigmaMin)
	cdf := standardNormalCDF((elapsed - mu) / sigma)
	// cdf approaches 1 as elapsed grows; clamp away from 1 to keep the
	// log finite.
	if cdf > 1-1e-16 {
		cdf = 1 - 1e-16
	}
	phi := -math.Log10(1 - cdf)
	if d.metrics != nil {
		d.metrics.Phi.WithLabelValues(peer.String()).Set(phi)
	}
	return phi
}

// Status returns peer's current classification, computing Suspected from
// Phi if the peer hasn't already been explicitly marked Failed.
func (d *Detector) Status(peer ids.NodeID, nowMillis int64) Status {
	d.mu.RLock()
	p, ok := d.peers[peer]
	if ok && p.status == StatusFailed {
		d.mu.RUnlock()
		return StatusFailed
	}
	d.mu.RUnlock()

	if d.Phi(peer, nowMillis) > d.phiThreshold {
		d.mu.Lock()
		p := d.getOrInit(peer)
		if p.status != StatusFailed {
			p.status = StatusSuspected
		}
		d.mu.Unlock()
		return StatusSuspected
	}
	return StatusAvailable
}

// MarkFailed escalates peer to Failed.
func (d *Detector) MarkFailed(peer ids.NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.getOrInit(peer).status = StatusFailed
}

// Counts returns (available, suspected, failed) over every known peer at
// nowMillis, to support the partition-safety invariant.
func (d *Detector) Counts(nowMillis int64) (available, suspected, failed int) {
	d.mu.RLock()
	peers := make([]ids.NodeID, 0, len(d.peers))
	for p := range d.peers {
		peers = append(peers, p)
	}
	d.mu.RUnlock()

	for _, p := range peers {
		switch d.Status(p, nowMillis) {
		case StatusAvailable:
			available++
		case StatusSuspected:
			suspected++
		case StatusFailed:
			failed++
		}
	}
	return
}

// DetectPartition reports true when the available count falls below
// quorumSize.
func (d *Detector) DetectPartition(quorumSize int, nowMillis int64) bool {
	available, _, _ := d.Counts(nowMillis)
	return available < quorumSize
}

// KnownPeers returns every peer the detector has ever heard from.
func (d *Detector) KnownPeers() []ids.NodeID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ids.NodeID, 0, len(d.peers))
	for p := range d.peers {
		out = append(out, p)
	}
	return out
}
