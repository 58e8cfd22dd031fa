// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dag implements the content-addressed DAG store: vertex
// validation, parent linkage, cycle prevention, and topological queries.
// The store is the exclusive owner of vertex records;
// every other subsystem refers to a vertex only by its ID or content hash.
package dag

import (
	"encoding/binary"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
)

// MaxParents bounds the number of parents a vertex may declare.
const MaxParents = 16

// State is a vertex's position in the finalization lifecycle.
type State uint8

const (
	// StateProvisional is the zero value: a vertex is provisional from
	// insertion until it is finalized.
	StateProvisional State = iota
	// StateFinalized is set once commit quorum is reached and every
	// parent is finalized.
	StateFinalized
	// StateOrphaned names a vertex dropped from the canonical DAG by fork
	// resolution. Nothing in this module sets it: fork rollback deletes
	// losing vertices from the store instead.
	StateOrphaned
)

// Vertex is the unit of consensus and storage.
type Vertex struct {
	ID          ids.ID
	ContentHash ids.ID
	Creator     ids.NodeID
	Parents     []ids.ID
	Payload     []byte
	Timestamp   int64 // monotonic milliseconds
	Signature   []byte

	State       State
	FinalizedAt int64 // monotonic milliseconds; zero until finalized
}

// IsGenesis reports whether v has no parents.
func (v *Vertex) IsGenesis() bool {
	return len(v.Parents) == 0
}

// CanonicalBytes serializes {creator, parents, payload, timestamp} in a
// fixed, deterministic layout so that content_hash is reproducible by any
// node that holds the same fields. Parent order is preserved as given —
// parents are an *ordered* set, so the caller (not this
// function) is responsible for canonical ordering semantics beyond byte
// layout.
func (v *Vertex) CanonicalBytes() []byte {
	buf := make([]byte, 0, len(ids.NodeID{})+8+len(v.Parents)*ids.Len+len(v.Payload)+8)
	buf = append(buf, v.Creator[:]...)

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(v.Parents)))
	buf = append(buf, countBuf[:]...)
	for _, p := range v.Parents {
		buf = append(buf, p[:]...)
	}

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(v.Timestamp))
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, v.Payload...)
	return buf
}

// VerifyHash reports whether v.ContentHash equals BLAKE3(CanonicalBytes()).
func (v *Vertex) VerifyHash(h pqcrypto.Hasher) bool {
	digest := h.Hash(v.CanonicalBytes())
	return ids.ID(digest) == v.ContentHash
}

// VerifySignature reports whether v.Signature is a valid ML-DSA-87
// signature by v.Creator over the canonical serialization, under the
// supplied public key.
func VerifySignature(signer pqcrypto.Signer, v *Vertex, creatorPubKey []byte) bool {
	return signer.Verify(creatorPubKey, v.CanonicalBytes(), v.Signature)
}
