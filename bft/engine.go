// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bft implements the three-phase PBFT-style consensus engine of
// PrePrepare -> Prepare -> Commit -> Finalize, plus view
// changes and equivocation detection. The engine owns no transport of its
// own — callers supply a Network to send outbound messages, keeping the
// consensus state machine separate from the p2p transport layer.
package bft

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/failuredetector"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/protocol"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

// Network sends outbound consensus messages. Signing and enveloping is the
// Engine's job; Network only moves already-signed messages to peers.
type Network interface {
	SendPrePrepare(msg protocol.PrePrepare) error
	SendPrepare(msg protocol.Prepare) error
	SendCommit(msg protocol.Commit) error
	SendViewChange(msg protocol.ViewChange) error
	SendNewView(msg protocol.NewView) error
}

// FinalizeListener is notified whenever a vertex reaches StateFinalized.
type FinalizeListener func(v *dag.Vertex)

// Engine is the BFT consensus engine for one local node.
type Engine struct {
	mu sync.RWMutex

	self    ids.NodeID
	nodes   []ids.NodeID // full known validator set, for quorum sizing
	privKey []byte
	pubKeys map[ids.NodeID][]byte

	cfg config.Parameters

	dagStore      *dag.Store
	reputation    *reputation.Ledger
	stake         *stake.Ledger
	detector      *failuredetector.Detector
	hasher        pqcrypto.Hasher
	signer        pqcrypto.Signer
	batchVerifier pqcrypto.BatchVerifier
	network       Network

	log     *zap.SugaredLogger
	metrics *metrics.Registry

	view        uint64
	nextSeq     uint64
	msgLog      *MessageLog
	pendingFin  map[ids.ID]struct{} // committed but not yet finalizable (parents not finalized)
	finalizeCBs []FinalizeListener

	vc *viewChangeState
}

// EngineConfig bundles the constructor arguments that aren't already owned by
// another subsystem.
type EngineConfig struct {
	Self       ids.NodeID
	Nodes      []ids.NodeID
	PrivateKey []byte
	PublicKeys map[ids.NodeID][]byte

	Params     config.Parameters
	DAG        *dag.Store
	Reputation *reputation.Ledger
	Stake      *stake.Ledger
	Detector   *failuredetector.Detector
	Hasher     pqcrypto.Hasher
	Signer     pqcrypto.Signer
	Network    Network
	Logger     *zap.Logger
	Metrics    *metrics.Registry
}

// New constructs an Engine starting at view 0, sequence 0.
func New(c EngineConfig) *Engine {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		self:          c.Self,
		nodes:         append([]ids.NodeID(nil), c.Nodes...),
		privKey:       c.PrivateKey,
		pubKeys:       c.PublicKeys,
		cfg:           c.Params,
		dagStore:      c.DAG,
		reputation:    c.Reputation,
		stake:         c.Stake,
		detector:      c.Detector,
		hasher:        c.Hasher,
		signer:        c.Signer,
		batchVerifier: pqcrypto.NewBatchVerifier(c.Signer, c.Params.BatchSize),
		network:       c.Network,
		log:           logger.Sugar(),
		metrics:       c.Metrics,
		msgLog:        NewMessageLog(),
		pendingFin:    make(map[ids.ID]struct{}),
		vc:            newViewChangeState(),
	}
}

// OnFinalize registers a listener invoked whenever a vertex finalizes.
func (e *Engine) OnFinalize(cb FinalizeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalizeCBs = append(e.finalizeCBs, cb)
}

// CurrentView returns the engine's current view.
func (e *Engine) CurrentView() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view
}

// Validators returns the full known validator set.
func (e *Engine) Validators() []ids.NodeID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ids.NodeID(nil), e.nodes...)
}

func (e *Engine) quorumSize() int {
	return config.QuorumSize(len(e.nodes))
}

// knownNode reports whether n is in the validator set.
func (e *Engine) knownNode(n ids.NodeID) bool {
	for _, v := range e.nodes {
		if v == n {
			return true
		}
	}
	return false
}

func (e *Engine) sign(body []byte) ([]byte, error) {
	return e.signer.Sign(e.privKey, body)
}

func (e *Engine) verify(node ids.NodeID, body, sig []byte) bool {
	pub, ok := e.pubKeys[node]
	if !ok {
		return false
	}
	return e.signer.Verify(pub, body, sig)
}

// ProposeVertex proposes v as the next sequence in the current view. Only
// the current leader may call this successfully.
func (e *Engine) ProposeVertex(v *dag.Vertex, now time.Time) (protocol.PrePrepare, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.IsLeader(e.view, now) {
		return protocol.PrePrepare{}, ErrNotLeader
	}
	seq := e.nextSeq
	e.nextSeq++

	msg := protocol.PrePrepare{
		Envelope: protocol.Envelope{
			Type:     protocol.TypePrePrepare,
			View:     e.view,
			Sequence: seq,
			NodeID:   e.self,
		},
		LeaderID:    e.self,
		VertexHash:  v.ContentHash,
		VertexBytes: v.CanonicalBytes(),
	}
	body := canonicalPrePrepareBody(msg)
	sig, err := e.sign(body)
	if err != nil {
		return protocol.PrePrepare{}, err
	}
	msg.Signature = sig

	st := e.msgLog.stateLocked(e.view, seq)
	st.phase = PhasePrePrepared
	st.vertexHash = v.ContentHash
	st.prePrepare = &msg

	if err := e.network.SendPrePrepare(msg); err != nil {
		return protocol.PrePrepare{}, err
	}
	return msg, nil
}

func canonicalPrePrepareBody(m protocol.PrePrepare) []byte {
	buf := make([]byte, 0, ids.Len*2+len(m.VertexBytes))
	buf = append(buf, m.LeaderID[:]...)
	buf = append(buf, m.VertexHash[:]...)
	buf = append(buf, m.VertexBytes...)
	return buf
}

// HandlePrePrepare processes an inbound PrePrepare from the leader of its
// view.
func (e *Engine) HandlePrePrepare(msg protocol.PrePrepare, v *dag.Vertex, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.View < e.view {
		return ErrStaleView
	}
	leader, ok := e.Leader(msg.View, now)
	if !ok || msg.NodeID != leader || msg.LeaderID != leader {
		return ErrNotLeader
	}
	body := canonicalPrePrepareBody(msg)
	if !e.verify(msg.NodeID, body, msg.Signature) {
		e.penalizeLocked(msg.NodeID, reputation.EventViolationInvalidSignature, stake.SeverityInvalidSignature, now)
		return ErrInvalidSignature
	}
	if v.ContentHash != msg.VertexHash {
		return coreerrors.ErrInvalidVertex
	}

	st := e.msgLog.stateLocked(msg.View, msg.Sequence)
	if st.prePrepare != nil && st.prePrepare.VertexHash != msg.VertexHash {
		e.markEquivocationLocked(msg.NodeID, now)
		return ErrEquivocation
	}
	if st.phase == PhaseNew {
		st.phase = PhasePrePrepared
		st.vertexHash = msg.VertexHash
		cp := msg
		st.prePrepare = &cp
	}

	if err := e.dagStore.AddVertex(v); err != nil && !coreerrors.Is(err, coreerrors.ErrInvalidVertex) {
		return err
	}

	prep := protocol.Prepare{
		Envelope: protocol.Envelope{
			Type:     protocol.TypePrepare,
			View:     msg.View,
			Sequence: msg.Sequence,
			NodeID:   e.self,
		},
		VertexHash: msg.VertexHash,
	}
	sig, err := e.sign(prep.VertexHash[:])
	if err != nil {
		return err
	}
	prep.Signature = sig
	return e.network.SendPrepare(prep)
}

// HandlePrepare records a Prepare vote and advances to Prepared once 2f+1
// matching votes are observed.
func (e *Engine) HandlePrepare(msg protocol.Prepare, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.knownNode(msg.NodeID) {
		return ErrUnknownVoter
	}
	if !e.verify(msg.NodeID, msg.VertexHash[:], msg.Signature) {
		e.penalizeLocked(msg.NodeID, reputation.EventViolationInvalidSignature, stake.SeverityInvalidSignature, now)
		return ErrInvalidSignature
	}

	st := e.msgLog.stateLocked(msg.View, msg.Sequence)
	if prior, ok := st.prepares[msg.NodeID]; ok && prior != msg.VertexHash {
		e.markEquivocationLocked(msg.NodeID, now)
		return ErrEquivocation
	}
	st.prepares[msg.NodeID] = msg.VertexHash
	if e.metrics != nil {
		e.metrics.PreparesReceived.Inc()
	}

	if st.phase >= PhasePrepared {
		return nil
	}
	count := 0
	for _, h := range st.prepares {
		if h == msg.VertexHash {
			count++
		}
	}
	if count < e.quorumSize() {
		return nil
	}

	st.phase = PhasePrepared
	cert := protocol.PreparedCertificate{
		View:       msg.View,
		Sequence:   msg.Sequence,
		VertexHash: msg.VertexHash,
	}
	for voter, h := range st.prepares {
		if h == msg.VertexHash {
			cert.Prepares = append(cert.Prepares, protocol.Prepare{
				Envelope:   protocol.Envelope{NodeID: voter, View: msg.View, Sequence: msg.Sequence},
				VertexHash: h,
			})
		}
	}
	st.preparedCert = &cert

	commit := protocol.Commit{
		Envelope: protocol.Envelope{
			Type:     protocol.TypeCommit,
			View:     msg.View,
			Sequence: msg.Sequence,
			NodeID:   e.self,
		},
		VertexHash: msg.VertexHash,
	}
	sig, err := e.sign(commit.VertexHash[:])
	if err != nil {
		return err
	}
	commit.Signature = sig
	return e.network.SendCommit(commit)
}

// HandleCommit records a Commit vote and finalizes the vertex once 2f+1
// matching votes are observed.
func (e *Engine) HandleCommit(msg protocol.Commit, now time.Time) error {
	e.mu.Lock()
	if !e.knownNode(msg.NodeID) {
		e.mu.Unlock()
		return ErrUnknownVoter
	}
	if !e.verify(msg.NodeID, msg.VertexHash[:], msg.Signature) {
		e.penalizeLocked(msg.NodeID, reputation.EventViolationInvalidSignature, stake.SeverityInvalidSignature, now)
		e.mu.Unlock()
		return ErrInvalidSignature
	}

	st := e.msgLog.stateLocked(msg.View, msg.Sequence)
	if prior, ok := st.commits[msg.NodeID]; ok && prior != msg.VertexHash {
		e.markEquivocationLocked(msg.NodeID, now)
		e.mu.Unlock()
		return ErrEquivocation
	}
	st.commits[msg.NodeID] = msg.VertexHash
	if e.metrics != nil {
		e.metrics.CommitsReceived.Inc()
	}

	if st.phase >= PhaseCommitted {
		e.mu.Unlock()
		return nil
	}
	count := 0
	for _, h := range st.commits {
		if h == msg.VertexHash {
			count++
		}
	}
	if count < e.quorumSize() {
		e.mu.Unlock()
		return nil
	}
	st.phase = PhaseCommitted
	e.pendingFin[msg.VertexHash] = struct{}{}
	e.mu.Unlock()

	e.reputation.RecordActivity(msg.NodeID, reputation.EventConsensusParticipation, now)
	e.finalizeReady(now)
	return nil
}

// finalizeReady finalizes every pending vertex whose parents are all
// finalized, repeating until no further progress is made — finality
// propagates to children in topological order as each parent clears.
func (e *Engine) finalizeReady(now time.Time) {
	for {
		progressed := false
		e.mu.Lock()
		for hash := range e.pendingFin {
			if !e.dagStore.AllParentsFinalized(hash) {
				continue
			}
			if err := e.dagStore.MarkFinalized(hash, now.UnixMilli()); err != nil {
				continue
			}
			delete(e.pendingFin, hash)
			progressed = true
			v, _ := e.dagStore.GetVertex(hash)
			for _, child := range e.dagStore.GetChildren(hash) {
				if cv, ok := e.dagStore.GetVertex(child); ok && cv.State != dag.StateFinalized {
					e.pendingFin[child] = struct{}{}
				}
			}
			if e.metrics != nil {
				e.metrics.VerticesFinalized.Inc()
			}
			cbs := append([]FinalizeListener(nil), e.finalizeCBs...)
			e.mu.Unlock()
			for _, cb := range cbs {
				cb(v)
			}
			e.mu.Lock()
		}
		e.mu.Unlock()
		if !progressed {
			return
		}
	}
}

func (e *Engine) penalizeLocked(node ids.NodeID, event reputation.EventKind, sev stake.Severity, now time.Time) {
	e.reputation.RecordActivity(node, event, now)
	if _, err := e.stake.Slash(node, sev); err != nil && e.log != nil {
		e.log.Debugw("slash skipped", "node", node.String(), "err", err)
	}
}

func (e *Engine) markEquivocationLocked(node ids.NodeID, now time.Time) {
	e.reputation.MarkByzantine(node, now)
	e.penalizeLocked(node, reputation.EventViolationEquivocation, stake.SeverityEquivocation, now)
	if e.metrics != nil {
		e.metrics.ByzantineDetected.Inc()
	}
	e.log.Warnw("equivocation detected", "node", node.String())
}
