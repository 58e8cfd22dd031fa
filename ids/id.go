// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides the identity types shared by every CORE subsystem:
// vertices and nodes are both addressed by a fixed-width ID (views are plain
// uint64 numbers) so that
// the DAG store, the BFT engine, and the reputation ledger can pass
// identities around without ever sharing ownership of the records they name.
package ids

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Len is the width, in bytes, of a content hash (BLAKE3-256).
const Len = 32

// ID identifies a vertex by its content hash.
type ID [Len]byte

// Empty is the zero ID, used as a sentinel for "no value".
var Empty ID

// String renders the ID as a 0x-prefixed hex string.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Hex renders the ID as a bare hex string, no prefix.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// Less orders IDs lexicographically by byte value; used to break ties
// deterministically (topological sort, leader selection).
func (id ID) Less(other ID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// Compare returns -1, 0, or 1 comparing id to other lexicographically.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// IsEmpty reports whether id is the zero value.
func (id ID) IsEmpty() bool {
	return id == Empty
}

// IDFromBytes copies b into an ID, erroring if the length does not match.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Len {
		return id, fmt.Errorf("ids: expected %d bytes, got %d", Len, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// NodeID identifies a participant in the consensus group. Nodes are
// addressed the same way as vertices (a fixed-width content-style
// identifier) so that the reputation and stake ledgers can key off the
// same type used by the transport's verified certificate principal.
type NodeID [Len]byte

// EmptyNodeID is the zero NodeID.
var EmptyNodeID NodeID

func (n NodeID) String() string {
	return "node-" + hex.EncodeToString(n[:8])
}

func (n NodeID) Less(other NodeID) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

func (n NodeID) IsEmpty() bool {
	return n == EmptyNodeID
}

// NodeIDFromBytes copies b into a NodeID, erroring if the length does not match.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	var n NodeID
	if len(b) != Len {
		return n, fmt.Errorf("ids: expected %d bytes, got %d", Len, len(b))
	}
	copy(n[:], b)
	return n, nil
}

// NodeIDFromString parses the hex-encoded node identifier produced by
// NodeID.Hex's inverse; it is used when operators provide node identities
// via configuration.
func NodeIDFromString(s string) (NodeID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EmptyNodeID, fmt.Errorf("ids: invalid node id %q: %w", s, err)
	}
	return NodeIDFromBytes(b)
}

// Hex renders the NodeID as a bare hex string, no prefix.
func (n NodeID) Hex() string {
	return hex.EncodeToString(n[:])
}

// SortIDs sorts ids in place in ascending lexicographic order. Used to give
// the DAG store's child and tip lists and state-sync snapshots a
// deterministic order.
func SortIDs(list []ID) {
	// insertion sort keeps this package free of the sort import.
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Less(list[j-1]); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
