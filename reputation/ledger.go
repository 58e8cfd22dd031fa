// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reputation implements the event-sourced reputation ledger of
// The ledger exclusively owns score state; every other
// subsystem mutates it only through RecordActivity and MarkByzantine,
// matching the
// ownership rule.
package reputation

import (
	"math"
	"sync"
	"time"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
)

// EventKind is one of the reputation-affecting events tracked by the ledger.
type EventKind int

const (
	EventVertexFinalized EventKind = iota
	EventConsensusParticipation
	EventViolationEquivocation
	EventViolationInvalidSignature
	EventViolationTimeout
)

// delta returns the score adjustment for kind.
func (k EventKind) delta() float64 {
	switch k {
	case EventVertexFinalized:
		return 0.05
	case EventConsensusParticipation:
		return 0.01
	case EventViolationEquivocation:
		return -0.20
	case EventViolationInvalidSignature:
		return -0.15
	case EventViolationTimeout:
		return -0.05
	default:
		return 0
	}
}

// isViolation reports whether kind counts against violation_count.
func (k EventKind) isViolation() bool {
	switch k {
	case EventViolationEquivocation, EventViolationInvalidSignature, EventViolationTimeout:
		return true
	default:
		return false
	}
}

// entry is one node's ledger record.
type entry struct {
	score          float64
	violationCount int
	totalEvents    int
	lastUpdate     time.Time
	byzantine      bool
}

// Listener is notified after every mutation (RecordActivity,
// MarkByzantine), letting subscribers update incrementally instead of
// rescanning the ledger — the usual validator set-change listener pattern.
// The BFT engine does not subscribe; it rescans the ledger each time it
// ranks reliable nodes.
type Listener func(node ids.NodeID, score float64, byzantine bool)

// Ledger is the reputation store.
type Ledger struct {
	mu sync.RWMutex

	minRep     float64
	thetaRel   float64
	decayRate  float64 // λ; see config.Parameters.ReputationDecayRate
	byzantineN int     // byzantine_threshold

	entries map[ids.NodeID]*entry
	metrics *metrics.Registry

	listeners []Listener
}

// New returns a Ledger. minRep and thetaRel come from config.Parameters;
// decayRate is λ;
// byzantineThreshold is the violation count after which a node is marked
// Byzantine.
func New(minRep, thetaRel, decayRate float64, byzantineThreshold int, reg *metrics.Registry) *Ledger {
	return &Ledger{
		minRep:     minRep,
		thetaRel:   thetaRel,
		decayRate:  decayRate,
		byzantineN: byzantineThreshold,
		entries:    make(map[ids.NodeID]*entry),
		metrics:    reg,
	}
}

// Subscribe registers l to be called after every RecordActivity and
// MarkByzantine.
func (r *Ledger) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Ledger) getOrInit(node ids.NodeID, now time.Time) *entry {
	e, ok := r.entries[node]
	if !ok {
		e = &entry{score: 0.5, lastUpdate: now}
		r.entries[node] = e
	}
	return e
}

// decay decays e's score toward 0.5 at rate λ per elapsed second since
// e.lastUpdate. Operates on a plain *entry so callers can
// apply it to a detached copy without holding the ledger's lock across the
// computation.
func decay(e *entry, lambda float64, now time.Time) {
	elapsed := now.Sub(e.lastUpdate).Seconds()
	if elapsed <= 0 || lambda == 0 {
		return
	}
	// Exponential decay toward the 0.5 midpoint: each elapsed second
	// closes the gap to 0.5 by a factor of (1 - decayRate).
	factor := decayFactor(lambda, elapsed)
	e.score = 0.5 + (e.score-0.5)*factor
}

func decayFactor(lambda, elapsedSeconds float64) float64 {
	// (1-lambda)^elapsedSeconds via exp/log to support fractional seconds.
	if lambda <= 0 {
		return 1
	}
	if lambda >= 1 {
		return 0
	}
	return math.Pow(1-lambda, elapsedSeconds)
}

// RecordActivity applies kind's delta to node's score, clamped to
// [minRep, 1.0], after first applying time decay since the last update.
// MarkByzantine is the only other mutation path into the ledger.
func (r *Ledger) RecordActivity(node ids.NodeID, kind EventKind, now time.Time) {
	r.mu.Lock()
	e := r.getOrInit(node, now)
	decay(e, r.decayRate, now)

	e.score += kind.delta()
	if e.score > 1.0 {
		e.score = 1.0
	}
	if e.score < r.minRep {
		e.score = r.minRep
	}
	e.totalEvents++
	if kind.isViolation() {
		e.violationCount++
		if e.violationCount > r.byzantineN {
			e.byzantine = true
		}
	}
	e.lastUpdate = now

	score, byzantine := e.score, e.byzantine
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ReputationMean.Set(r.meanScore())
	}
	for _, l := range listeners {
		l(node, score, byzantine)
	}
}

// Score returns node's current score without mutating lastUpdate (a pure
// read applies decay to a local copy only).
func (r *Ledger) Score(node ids.NodeID, now time.Time) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[node]
	if !ok {
		return 0.5
	}
	tmp := *e
	decay(&tmp, r.decayRate, now)
	return tmp.score
}

// IsReliable reports is_reliable(n) = score(n) >= theta_rel AND n is not
// marked Byzantine.
func (r *Ledger) IsReliable(node ids.NodeID, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[node]
	if !ok {
		return 0.5 >= r.thetaRel
	}
	tmp := *e
	decay(&tmp, r.decayRate, now)
	return tmp.score >= r.thetaRel && !tmp.byzantine
}

// IsByzantine reports whether node has been marked Byzantine.
func (r *Ledger) IsByzantine(node ids.NodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[node]
	return ok && e.byzantine
}

// MarkByzantine forces node into the Byzantine set outright — used by
// equivocation detection, which marks a node Byzantine the
// instant it is caught rather than waiting for the violation-count
// threshold.
func (r *Ledger) MarkByzantine(node ids.NodeID, now time.Time) {
	r.mu.Lock()
	e := r.getOrInit(node, now)
	e.byzantine = true
	listeners := append([]Listener(nil), r.listeners...)
	score := e.score
	r.mu.Unlock()
	for _, l := range listeners {
		l(node, score, true)
	}
}

func (r *Ledger) meanScore() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return 0.5
	}
	var sum float64
	for _, e := range r.entries {
		sum += e.score
	}
	return sum / float64(len(r.entries))
}

// ReliableNodes returns every known node that IsReliable, sorted
// lexicographically.
func (r *Ledger) ReliableNodes(now time.Time) []ids.NodeID {
	r.mu.RLock()
	nodes := make([]ids.NodeID, 0, len(r.entries))
	for n := range r.entries {
		nodes = append(nodes, n)
	}
	r.mu.RUnlock()

	out := make([]ids.NodeID, 0, len(nodes))
	for _, n := range nodes {
		if r.IsReliable(n, now) {
			out = append(out, n)
		}
	}
	sortNodeIDs(out)
	return out
}

// AllScores returns every known node's decayed score at now, for use by
// state sync's snapshot digest.
func (r *Ledger) AllScores(now time.Time) map[ids.NodeID]float64 {
	r.mu.RLock()
	nodes := make([]ids.NodeID, 0, len(r.entries))
	for n := range r.entries {
		nodes = append(nodes, n)
	}
	r.mu.RUnlock()

	out := make(map[ids.NodeID]float64, len(nodes))
	for _, n := range nodes {
		out[n] = r.Score(n, now)
	}
	return out
}

func sortNodeIDs(list []ids.NodeID) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Less(list[j-1]); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
