// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"testing"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/stretchr/testify/require"
)

func testID(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func testNodeID(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func sealedVertex(hasher pqcrypto.Hasher, id ids.ID, parents []ids.ID, payload []byte, ts int64) *Vertex {
	v := &Vertex{
		ID:        id,
		Creator:   testNodeID(1),
		Parents:   parents,
		Payload:   payload,
		Timestamp: ts,
	}
	digest := hasher.Hash(v.CanonicalBytes())
	v.ContentHash = ids.ID(digest)
	return v
}

func TestAddVertexGenesis(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("genesis"), 1)
	require.NoError(store.AddVertex(g))

	got, ok := store.GetVertex(g.ID)
	require.True(ok)
	require.Equal(g.ContentHash, got.ContentHash)
	require.ElementsMatch([]ids.ID{g.ID}, store.GetTips())
}

func TestAddVertexUnknownParent(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	child := sealedVertex(hasher, testID(2), []ids.ID{testID(99)}, nil, 2)
	err := store.AddVertex(child)
	require.ErrorIs(err, ErrUnknownParent)
}

func TestAddVertexSelfParent(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	id := testID(3)
	v := sealedVertex(hasher, id, []ids.ID{id}, nil, 3)
	err := store.AddVertex(v)
	require.ErrorIs(err, ErrSelfParent)
}

func TestAddVertexHashMismatch(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	v := sealedVertex(hasher, testID(4), nil, []byte("x"), 4)
	v.Payload = []byte("tampered")
	err := store.AddVertex(v)
	require.ErrorIs(err, ErrHashMismatch)
}

func TestTopologicalSortDeterministic(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("g"), 1)
	require.NoError(store.AddVertex(g))

	a := sealedVertex(hasher, testID(2), []ids.ID{g.ID}, []byte("a"), 2)
	b := sealedVertex(hasher, testID(3), []ids.ID{g.ID}, []byte("b"), 2)
	require.NoError(store.AddVertex(a))
	require.NoError(store.AddVertex(b))

	order1 := store.TopologicalSort()
	order2 := store.TopologicalSort()
	require.Equal(order1, order2)
	require.Equal(g.ID, order1[0])
	require.Len(order1, 3)
}

func TestGetAncestorsFullClosure(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("g"), 1)
	a := sealedVertex(hasher, testID(2), []ids.ID{g.ID}, []byte("a"), 2)
	b := sealedVertex(hasher, testID(3), []ids.ID{a.ID}, []byte("b"), 3)
	require.NoError(store.AddVertex(g))
	require.NoError(store.AddVertex(a))
	require.NoError(store.AddVertex(b))

	ancestors := store.GetAncestors(b.ID)
	require.ElementsMatch([]ids.ID{g.ID, a.ID}, ancestors)
}

func TestAllParentsFinalized(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("g"), 1)
	a := sealedVertex(hasher, testID(2), []ids.ID{g.ID}, []byte("a"), 2)
	require.NoError(store.AddVertex(g))
	require.NoError(store.AddVertex(a))

	require.False(store.AllParentsFinalized(a.ID))
	require.NoError(store.MarkFinalized(g.ID, 100))
	require.True(store.AllParentsFinalized(a.ID))
}

func TestRemoveVertex(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("g"), 1)
	require.NoError(store.AddVertex(g))
	require.NoError(store.RemoveVertex(g.ID))

	_, ok := store.GetVertex(g.ID)
	require.False(ok)
	require.ErrorIs(store.RemoveVertex(g.ID), ErrNotFound)
}

func TestStoreIsAcyclic(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := NewStore(hasher)

	g := sealedVertex(hasher, testID(1), nil, []byte("g"), 1)
	a := sealedVertex(hasher, testID(2), []ids.ID{g.ID}, []byte("a"), 2)
	require.NoError(store.AddVertex(g))
	require.NoError(store.AddVertex(a))
	require.True(store.IsAcyclic())
}
