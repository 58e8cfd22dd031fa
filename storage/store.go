// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage implements the persistent state layout on top of
// github.com/cockroachdb/pebble, an LSM key-value store already an
// indirect dependency of the broader dependency graph. Every write in
// this package goes through a pebble batch, giving the "atomic per key"
// and "rename-style commit" guarantees needed here, without implementing
// a write-ahead log from scratch.
package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/pebble"

	"github.com/meridianbft/consensus/ids"
)

// Store implements the abstract key layout:
//
//	vertex/<hash>          -> canonical bytes
//	vertex_meta/<hash>     -> {state, finalized_at?}
//	view                   -> u64
//	sequence               -> u64
//	reputation/<node_id>   -> f64
//	stake/<node_id>        -> {amount, lock_until}
//	snapshot/<timestamp>   -> snapshot bytes
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func vertexKey(hash ids.ID) []byte       { return append([]byte("vertex/"), hash[:]...) }
func vertexMetaKey(hash ids.ID) []byte   { return append([]byte("vertex_meta/"), hash[:]...) }
func reputationKey(n ids.NodeID) []byte  { return append([]byte("reputation/"), n[:]...) }
func stakeKey(n ids.NodeID) []byte       { return append([]byte("stake/"), n[:]...) }
func snapshotKey(ts int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts))
	return append([]byte("snapshot/"), buf[:]...)
}

var viewKey = []byte("view")
var sequenceKey = []byte("sequence")

// PutVertex writes a vertex's canonical bytes and metadata atomically in
// one batch.
func (s *Store) PutVertex(hash ids.ID, canonicalBytes []byte, meta VertexMeta) error {
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(vertexKey(hash), canonicalBytes, nil); err != nil {
		return err
	}
	if err := b.Set(vertexMetaKey(hash), meta.encode(), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// GetVertex reads a vertex's canonical bytes.
func (s *Store) GetVertex(hash ids.ID) ([]byte, error) {
	v, closer, err := s.db.Get(vertexKey(hash))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// GetVertexMeta reads a vertex's metadata.
func (s *Store) GetVertexMeta(hash ids.ID) (VertexMeta, error) {
	v, closer, err := s.db.Get(vertexMetaKey(hash))
	if err != nil {
		return VertexMeta{}, err
	}
	defer closer.Close()
	return decodeVertexMeta(v), nil
}

// VertexMeta is the decoded form of vertex_meta/<hash>.
type VertexMeta struct {
	State       uint8
	FinalizedAt int64 // 0 means not finalized
}

func (m VertexMeta) encode() []byte {
	buf := make([]byte, 9)
	buf[0] = m.State
	binary.BigEndian.PutUint64(buf[1:], uint64(m.FinalizedAt))
	return buf
}

func decodeVertexMeta(b []byte) VertexMeta {
	if len(b) < 9 {
		return VertexMeta{}
	}
	return VertexMeta{
		State:       b[0],
		FinalizedAt: int64(binary.BigEndian.Uint64(b[1:9])),
	}
}

// PutView persists the current view.
func (s *Store) PutView(view uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], view)
	return s.db.Set(viewKey, buf[:], pebble.Sync)
}

// GetView reads the current view, defaulting to 0 if unset.
func (s *Store) GetView() (uint64, error) {
	v, closer, err := s.db.Get(viewKey)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(v), nil
}

// PutSequence persists the current sequence.
func (s *Store) PutSequence(seq uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return s.db.Set(sequenceKey, buf[:], pebble.Sync)
}

// GetSequence reads the current sequence, defaulting to 0 if unset.
func (s *Store) GetSequence() (uint64, error) {
	v, closer, err := s.db.Get(sequenceKey)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(v), nil
}

// PutReputation persists a node's reputation score.
func (s *Store) PutReputation(node ids.NodeID, score float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(score))
	return s.db.Set(reputationKey(node), buf[:], pebble.Sync)
}

// PutStake persists a node's stake record.
func (s *Store) PutStake(node ids.NodeID, amount int64, lockUntilUnixMillis int64) error {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(amount))
	binary.BigEndian.PutUint64(buf[8:16], uint64(lockUntilUnixMillis))
	return s.db.Set(stakeKey(node), buf, pebble.Sync)
}

// PutSnapshot writes a snapshot keyed by its monotonic timestamp. Swapping
// to a new snapshot is a single batched write — pebble's batch commit is
// a "rename-style commit": the snapshot under the
// new key either fully exists after Commit returns, or the batch never
// applied at all.
func (s *Store) PutSnapshot(timestamp int64, snapshotBytes []byte) error {
	return s.db.Set(snapshotKey(timestamp), snapshotBytes, pebble.Sync)
}

// GetSnapshot reads the snapshot stored at timestamp.
func (s *Store) GetSnapshot(timestamp int64) ([]byte, error) {
	v, closer, err := s.db.Get(snapshotKey(timestamp))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
