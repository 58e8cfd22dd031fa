// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package statesync implements snapshot creation/application and
// peer-to-peer catch-up.
package statesync

import (
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

// Snapshot is the wire/storage form of a point-in-time state capture.
type Snapshot struct {
	FinalizedHashes  []ids.ID
	MerkleRoot       ids.ID
	View             uint64
	Sequence         uint64
	ReputationDigest ids.ID
	StakeDigest      ids.ID
	TimestampMillis  int64
}

// ErrSnapshotTooLarge reports that a snapshot's serialized size exceeds
// max_snapshot_bytes.
var ErrSnapshotTooLarge = coreerrors.Wrap(coreerrors.ErrInternal, "snapshot exceeds max_snapshot_bytes")

// ErrStaleSnapshot reports that apply_snapshot was offered a snapshot
// older than local state.
var ErrStaleSnapshot = coreerrors.Wrap(coreerrors.ErrInternal, "snapshot is older than local state")

// ErrMerkleMismatch reports that a snapshot's declared Merkle root does
// not match its finalized hash set.
var ErrMerkleMismatch = coreerrors.Wrap(coreerrors.ErrInternal, "snapshot merkle root mismatch")

// EstimatedSize approximates the serialized byte size of s, for the
// max_snapshot_bytes bound. Each hash is a fixed 32 bytes;
// the fixed header is small and ignored at this granularity.
func (s Snapshot) EstimatedSize() int64 {
	return int64(len(s.FinalizedHashes))*ids.Len + ids.Len*3 + 24
}

// CreateSnapshot captures the current finalized set, ledger digests, and
// protocol position. Returns ErrSnapshotTooLarge if the
// result would exceed maxBytes.
func CreateSnapshot(
	store *dag.Store,
	rep *reputation.Ledger,
	stk *stake.Ledger,
	hasher pqcrypto.Hasher,
	view, sequence uint64,
	now time.Time,
	maxBytes int64,
) (Snapshot, error) {
	var finalized []ids.ID
	for _, id := range store.TopologicalSort() {
		v, ok := store.GetVertex(id)
		if ok && v.State == dag.StateFinalized {
			finalized = append(finalized, id)
		}
	}
	ids.SortIDs(finalized)

	s := Snapshot{
		FinalizedHashes:  finalized,
		View:             view,
		Sequence:         sequence,
		TimestampMillis:  now.UnixMilli(),
		ReputationDigest: reputationDigest(hasher, rep.AllScores(now)),
		StakeDigest:      stakeDigest(hasher, stk.AllStakes()),
	}
	s.MerkleRoot = merkleRoot(hasher, finalized)

	if s.EstimatedSize() > maxBytes {
		return Snapshot{}, ErrSnapshotTooLarge
	}
	return s, nil
}

// merkleRoot computes a BLAKE3 Merkle root over sorted leaf hashes. An
// empty leaf set roots to the hash of the empty string, by convention.
func merkleRoot(hasher pqcrypto.Hasher, leaves []ids.ID) ids.ID {
	if len(leaves) == 0 {
		return ids.ID(hasher.Hash(nil))
	}
	level := make([]ids.ID, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]ids.ID, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			buf := make([]byte, 0, ids.Len*2)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next = append(next, ids.ID(hasher.Hash(buf)))
		}
		level = next
	}
	return level[0]
}

func reputationDigest(hasher pqcrypto.Hasher, scores map[ids.NodeID]float64) ids.ID {
	nodes := make([]ids.NodeID, 0, len(scores))
	for n := range scores {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })

	buf := make([]byte, 0, len(nodes)*(ids.Len+8))
	for _, n := range nodes {
		buf = append(buf, n[:]...)
		var scoreBuf [8]byte
		binary.BigEndian.PutUint64(scoreBuf[:], math.Float64bits(scores[n]))
		buf = append(buf, scoreBuf[:]...)
	}
	return ids.ID(hasher.Hash(buf))
}

func stakeDigest(hasher pqcrypto.Hasher, stakes map[ids.NodeID]int64) ids.ID {
	nodes := make([]ids.NodeID, 0, len(stakes))
	for n := range stakes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })

	buf := make([]byte, 0, len(nodes)*(ids.Len+8))
	for _, n := range nodes {
		buf = append(buf, n[:]...)
		var amtBuf [8]byte
		binary.BigEndian.PutUint64(amtBuf[:], uint64(stakes[n]))
		buf = append(buf, amtBuf[:]...)
	}
	return ids.ID(hasher.Hash(buf))
}

// ApplyResult reports the outcome of ApplySnapshot's validation.
type ApplyResult struct {
	Applied bool
}

// ApplySnapshot validates s against the local state's timestamp and
// Merkle root. It changes no local state: the caller is responsible for
// the actual atomic state swap (storage package) once this returns nil;
// ApplySnapshot itself only validates.
func ApplySnapshot(s Snapshot, hasher pqcrypto.Hasher, localTimestampMillis int64) error {
	if s.TimestampMillis <= localTimestampMillis {
		return ErrStaleSnapshot
	}
	if merkleRoot(hasher, s.FinalizedHashes) != s.MerkleRoot {
		return ErrMerkleMismatch
	}
	return nil
}
