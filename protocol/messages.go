// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocol defines the CORE's wire-level message contract.
// Wire framing (how these are transmitted) is out of scope;
// this package only fixes the struct shapes and their canonical-signing
// envelope.
package protocol

import (
	"github.com/meridianbft/consensus/ids"
)

// Type tags a message's payload kind for dispatch.
type Type uint8

const (
	TypePrePrepare Type = iota
	TypePrepare
	TypeCommit
	TypeViewChange
	TypeNewView
	TypeHeartbeat
	TypeSnapshotRequest
	TypeSnapshotResponse
	TypeVertexRequest
	TypeVertexResponse
)

// Envelope is the common header every message carries:
// {type, view, sequence, node_id, signature}, where signature is the
// sender's signature over a per-message body built by the bft engine (for
// Prepare and Commit, the vertex hash itself). The body is signed as is,
// not through a BLAKE3 digest of it.
type Envelope struct {
	Type      Type
	View      uint64
	Sequence  uint64
	NodeID    ids.NodeID
	Signature []byte
}

// PrePrepare is broadcast by the leader of a view proposing a vertex.
type PrePrepare struct {
	Envelope
	LeaderID    ids.NodeID
	VertexHash  ids.ID
	VertexBytes []byte
}

// Prepare is broadcast by a replica after validating a PrePrepare.
type Prepare struct {
	Envelope
	VertexHash ids.ID
}

// Commit is broadcast by a replica after observing a Prepare quorum.
type Commit struct {
	Envelope
	VertexHash ids.ID
}

// PreparedCertificate is the highest Prepared proof a replica holds for a
// sequence, carried in a ViewChange.
type PreparedCertificate struct {
	View       uint64
	Sequence   uint64
	VertexHash ids.ID
	Prepares   []Prepare
}

// ViewChange is broadcast when a replica times out, detects equivocation,
// or is forced by the degraded-mode coordinator.
type ViewChange struct {
	Envelope
	NewView         uint64
	HighestPrepared []PreparedCertificate
}

// Reproposal is one sequence the new leader must re-propose at its
// original sequence number, per the merged NewView proof.
type Reproposal struct {
	Sequence    uint64
	VertexHash  ids.ID
	VertexBytes []byte
}

// NewView is broadcast by the new leader once it holds 2f+1 ViewChange
// messages.
type NewView struct {
	Envelope
	View              uint64
	ViewChangeProofs  []ViewChange
	Reproposals       []Reproposal
}

// Heartbeat carries liveness information to the failure detector.
type Heartbeat struct {
	Envelope
	Peer         ids.NodeID
	TimestampMs int64
}

// SnapshotRequest asks a peer for its current snapshot digest.
type SnapshotRequest struct {
	Envelope
}

// SnapshotResponse carries a snapshot.
type SnapshotResponse struct {
	Envelope
	Snapshot []byte
}

// VertexRequest asks a peer for a specific vertex by hash.
type VertexRequest struct {
	Envelope
	Hash ids.ID
}

// VertexResponse carries a vertex's canonical bytes in response to a
// VertexRequest.
type VertexResponse struct {
	Envelope
	VertexBytes []byte
}
