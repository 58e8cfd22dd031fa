// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"time"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/protocol"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

// viewChangeState tracks in-flight ViewChange votes per target view.
type viewChangeState struct {
	votes map[uint64]map[ids.NodeID]protocol.ViewChange
	done  map[uint64]bool
}

func newViewChangeState() *viewChangeState {
	return &viewChangeState{
		votes: make(map[uint64]map[ids.NodeID]protocol.ViewChange),
		done:  make(map[uint64]bool),
	}
}

// TriggerViewChange broadcasts a ViewChange for view+1, carrying every
// PreparedCertificate the engine holds for the current view.
func (e *Engine) TriggerViewChange(now time.Time) error {
	e.mu.Lock()
	newView := e.view + 1
	certs := e.msgLog.highestPrepared(e.view)
	e.mu.Unlock()

	msg := protocol.ViewChange{
		Envelope: protocol.Envelope{
			Type:     protocol.TypeViewChange,
			View:     e.CurrentView(),
			NodeID:   e.self,
		},
		NewView:         newView,
		HighestPrepared: certs,
	}
	body := canonicalViewChangeBody(msg)
	sig, err := e.sign(body)
	if err != nil {
		return err
	}
	msg.Signature = sig

	if e.metrics != nil {
		e.metrics.ViewChanges.Inc()
	}
	return e.network.SendViewChange(msg)
}

func canonicalViewChangeBody(m protocol.ViewChange) []byte {
	buf := make([]byte, 0, 16)
	var nv [8]byte
	for i := 0; i < 8; i++ {
		nv[i] = byte(m.NewView >> (8 * (7 - i)))
	}
	buf = append(buf, nv[:]...)
	for _, c := range m.HighestPrepared {
		buf = append(buf, c.VertexHash[:]...)
	}
	return buf
}

// HandleViewChange records msg and, once 2f+1 ViewChange votes for the
// same target view are observed and the local node is that view's
// leader, assembles and broadcasts a NewView.
func (e *Engine) HandleViewChange(msg protocol.ViewChange, now time.Time) error {
	e.mu.Lock()
	if !e.knownNode(msg.NodeID) {
		e.mu.Unlock()
		return ErrUnknownVoter
	}
	body := canonicalViewChangeBody(msg)
	if !e.verify(msg.NodeID, body, msg.Signature) {
		e.mu.Unlock()
		e.penalizeLocked(msg.NodeID, reputation.EventViolationInvalidSignature, 0, now)
		return ErrInvalidSignature
	}

	byView, ok := e.vc.votes[msg.NewView]
	if !ok {
		byView = make(map[ids.NodeID]protocol.ViewChange)
		e.vc.votes[msg.NewView] = byView
	}
	byView[msg.NodeID] = msg
	already := e.vc.done[msg.NewView]
	quorum := e.quorumSize()
	votes := len(byView)
	leader, haveLeader := e.Leader(msg.NewView, now)
	e.mu.Unlock()

	if already || votes < quorum || !haveLeader || leader != e.self {
		return nil
	}

	e.mu.Lock()
	e.vc.done[msg.NewView] = true
	proofs := make([]protocol.ViewChange, 0, len(byView))
	for _, v := range byView {
		proofs = append(proofs, v)
	}
	reproposals := mergeReproposals(proofs)
	e.mu.Unlock()

	newViewMsg := protocol.NewView{
		Envelope: protocol.Envelope{
			Type:   protocol.TypeNewView,
			View:   msg.NewView,
			NodeID: e.self,
		},
		View:             msg.NewView,
		ViewChangeProofs: proofs,
		Reproposals:      reproposals,
	}
	return e.network.SendNewView(newViewMsg)
}

// verifyViewChangeProofs batch-verifies every proof's envelope signature
// against the canonical ViewChange body it claims to cover, penalizing any
// node whose proof fails and returning the count that passed.
func (e *Engine) verifyViewChangeProofs(proofs []protocol.ViewChange, now time.Time) int {
	items := make([]pqcrypto.VerifyItem, len(proofs))
	for i, p := range proofs {
		items[i] = pqcrypto.VerifyItem{
			Msg: canonicalViewChangeBody(p),
			Sig: p.Signature,
			Pub: e.pubKeys[p.NodeID],
		}
	}
	results := e.batchVerifier.BatchVerify(items)

	valid := 0
	for i, ok := range results {
		if ok {
			valid++
			continue
		}
		e.penalizeLocked(proofs[i].NodeID, reputation.EventViolationInvalidSignature, stake.SeverityInvalidSignature, now)
	}
	return valid
}

// mergeReproposals selects, for every sequence with at least one prepared
// certificate across the collected ViewChange proofs, the certificate
// from the highest original view — the new leader must re-propose exactly
// that vertex at its original sequence, never a freshly chosen one.
func mergeReproposals(proofs []protocol.ViewChange) []protocol.Reproposal {
	best := make(map[uint64]protocol.PreparedCertificate)
	for _, p := range proofs {
		for _, c := range p.HighestPrepared {
			cur, ok := best[c.Sequence]
			if !ok || c.View > cur.View {
				best[c.Sequence] = c
			}
		}
	}
	out := make([]protocol.Reproposal, 0, len(best))
	for seq, c := range best {
		out = append(out, protocol.Reproposal{Sequence: seq, VertexHash: c.VertexHash})
	}
	return out
}

// HandleNewView adopts msg.View as the local current view and advances the
// local sequence counter past every sequence named in msg.Reproposals. For
// each reproposal whose bytes are in knownVertices it records the new
// leader's PrePrepare in the message log (phase PrePrepared) at the
// original sequence, unless that round already has state; it does not
// re-verify that vertex, add it to the DAG, or send a Prepare for it.
// Reproposals whose bytes are not in knownVertices are skipped; their bytes
// must be fetched separately (VertexRequest/VertexResponse).
func (e *Engine) HandleNewView(msg protocol.NewView, knownVertices map[ids.ID][]byte, now time.Time) error {
	quorum := e.quorumSize()
	if len(msg.ViewChangeProofs) < quorum {
		return coreerrors.ErrQuorumNotReached
	}

	// The proofs arrive bundled in one message and were never individually
	// seen by this replica, unlike a proof it cast itself — check every
	// embedded signature together rather than one at a time.
	valid := e.verifyViewChangeProofs(msg.ViewChangeProofs, now)
	if valid < quorum {
		return coreerrors.ErrQuorumNotReached
	}

	e.mu.Lock()
	if msg.View <= e.view {
		e.mu.Unlock()
		return ErrStaleView
	}
	e.view = msg.View
	maxSeq := e.nextSeq
	for _, r := range msg.Reproposals {
		if r.Sequence >= maxSeq {
			maxSeq = r.Sequence + 1
		}
	}
	e.nextSeq = maxSeq
	e.mu.Unlock()

	for _, r := range msg.Reproposals {
		bytes, ok := knownVertices[r.VertexHash]
		if !ok {
			continue
		}
		pp := protocol.PrePrepare{
			Envelope: protocol.Envelope{
				Type:     protocol.TypePrePrepare,
				View:     msg.View,
				Sequence: r.Sequence,
				NodeID:   msg.NodeID,
			},
			LeaderID:    msg.NodeID,
			VertexHash:  r.VertexHash,
			VertexBytes: bytes,
		}
		e.mu.Lock()
		st := e.msgLog.stateLocked(msg.View, r.Sequence)
		if st.phase == PhaseNew {
			st.phase = PhasePrePrepared
			st.vertexHash = r.VertexHash
			cp := pp
			st.prePrepare = &cp
		}
		e.mu.Unlock()
	}
	return nil
}
