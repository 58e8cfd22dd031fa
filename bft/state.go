// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/protocol"
)

// Phase is one (view, sequence) pair's position in the three-phase
// protocol: New -> PrePrepared -> Prepared -> Committed ->
// Finalized.
type Phase int

const (
	PhaseNew Phase = iota
	PhasePrePrepared
	PhasePrepared
	PhaseCommitted
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhasePrePrepared:
		return "pre_prepared"
	case PhasePrepared:
		return "prepared"
	case PhaseCommitted:
		return "committed"
	case PhaseFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// sequenceState is the consensus state machine for one (view, sequence)
// pair.
type sequenceState struct {
	phase      Phase
	vertexHash ids.ID

	prePrepare *protocol.PrePrepare
	prepares   map[ids.NodeID]ids.ID // voter -> the vertex hash they prepared
	commits    map[ids.NodeID]ids.ID // voter -> the vertex hash they committed

	preparedCert *protocol.PreparedCertificate
}

func newSequenceState() *sequenceState {
	return &sequenceState{
		phase:    PhaseNew,
		prepares: make(map[ids.NodeID]ids.ID),
		commits:  make(map[ids.NodeID]ids.ID),
	}
}

// MessageLog holds every in-flight sequenceState, keyed by (view,
// sequence), matching the per-round state machine. Finalized
// rounds are retained (not pruned); nothing in the engine rejects a
// late-arriving duplicate vote as a replay.
//
// MessageLog is not independently safe for concurrent use: every method
// expects the caller (the Engine, via e.mu) to already serialize access,
// matching the "Locked" suffix on stateLocked.
type MessageLog struct {
	byKey map[uint64]map[uint64]*sequenceState
}

// NewMessageLog returns an empty MessageLog.
func NewMessageLog() *MessageLog {
	return &MessageLog{byKey: make(map[uint64]map[uint64]*sequenceState)}
}

func (l *MessageLog) stateLocked(view, sequence uint64) *sequenceState {
	byView, ok := l.byKey[view]
	if !ok {
		byView = make(map[uint64]*sequenceState)
		l.byKey[view] = byView
	}
	s, ok := byView[sequence]
	if !ok {
		s = newSequenceState()
		byView[sequence] = s
	}
	return s
}

// highestPrepared returns the PreparedCertificate for every sequence in
// view that reached at least Prepared, for use in a ViewChange message.
func (l *MessageLog) highestPrepared(view uint64) []protocol.PreparedCertificate {
	byView, ok := l.byKey[view]
	if !ok {
		return nil
	}
	var out []protocol.PreparedCertificate
	for _, s := range byView {
		if s.preparedCert != nil {
			out = append(out, *s.preparedCert)
		}
	}
	return out
}
