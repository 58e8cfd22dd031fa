// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec implements the protocol message codec share:
// canonical serialization of the envelope body for signing/digesting, and
// a replay window guarding against re-delivery of already-processed
// messages.
package codec

import (
	"encoding/binary"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/protocol"
)

// CanonicalEnvelope serializes the signable portion of an envelope —
// everything except the signature itself — in a fixed, deterministic
// layout: {type, view, sequence, node_id, body}. The bft engine does not
// sign this layout: it signs its own per-message bodies directly, without
// a BLAKE3 digest of them.
func CanonicalEnvelope(e protocol.Envelope, body []byte) []byte {
	buf := make([]byte, 0, 1+8+8+ids.Len+len(body))
	buf = append(buf, byte(e.Type))

	var viewBuf, seqBuf [8]byte
	binary.BigEndian.PutUint64(viewBuf[:], e.View)
	binary.BigEndian.PutUint64(seqBuf[:], e.Sequence)
	buf = append(buf, viewBuf[:]...)
	buf = append(buf, seqBuf[:]...)
	buf = append(buf, e.NodeID[:]...)
	buf = append(buf, body...)
	return buf
}

// ReplayWindow rejects a message whose (view, sequence) the local node has
// already accepted from the same sender, at an older or equal sequence
// than the highest already processed — the minimal replay guard the codec
// component owns. Per-sender state, so one Byzantine
// sender replaying old messages cannot block a different sender's
// traffic.
type ReplayWindow struct {
	highest map[ids.NodeID]map[uint64]uint64 // node -> view -> highest sequence seen
}

// NewReplayWindow returns an empty ReplayWindow.
func NewReplayWindow() *ReplayWindow {
	return &ReplayWindow{highest: make(map[ids.NodeID]map[uint64]uint64)}
}

// Accept reports whether (view, sequence) from node is new — i.e. not a
// replay of an already-seen-or-older message for that (node, view) pair —
// and if so records it as the new high-water mark.
func (w *ReplayWindow) Accept(node ids.NodeID, view, sequence uint64) bool {
	byView, ok := w.highest[node]
	if !ok {
		byView = make(map[uint64]uint64)
		w.highest[node] = byView
	}
	seen, ok := byView[view]
	if ok && sequence <= seen {
		return false
	}
	byView[view] = sequence
	return true
}
