// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fork

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func mustAdd(t *testing.T, store *dag.Store, hasher pqcrypto.Hasher, creator ids.NodeID, parents []ids.ID, payload byte) *dag.Vertex {
	t.Helper()
	v := &dag.Vertex{Creator: creator, Parents: parents, Payload: []byte{payload}, Timestamp: int64(payload)}
	digest := hasher.Hash(v.CanonicalBytes())
	v.ContentHash = ids.ID(digest)
	v.ID = v.ContentHash
	require.NoError(t, store.AddVertex(v))
	return v
}

func TestReconcileChoosesHigherScoreChain(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := dag.NewStore(hasher)
	reg := metrics.NewNoOpRegistry()
	rep := reputation.New(0.0, 0.3, 0, 3, reg)
	stk := stake.New(reg)
	now := time.Unix(1000, 0)

	nodeA, nodeB := node(1), node(2)
	// chain_a creator has higher reputation (summed score 0.65) than
	// chain_b's creator (0.5 default, no finalized events).
	rep.RecordActivity(nodeA, reputation.EventVertexFinalized, now)
	rep.RecordActivity(nodeA, reputation.EventVertexFinalized, now)
	rep.RecordActivity(nodeA, reputation.EventVertexFinalized, now)

	genesis := mustAdd(t, store, hasher, node(0), nil, 0)
	v1 := mustAdd(t, store, hasher, nodeA, []ids.ID{genesis.ID}, 1)
	v2 := mustAdd(t, store, hasher, nodeB, []ids.ID{genesis.ID}, 2)

	r := New(store, rep, stk, 0.01)
	res, err := r.Reconcile(v1.ID, v2.ID, now)
	require.NoError(err)
	require.Equal(OutcomeChooseChainA, res.Outcome)
	require.Len(res.RolledBack, 1)
	require.Equal(v2.ID, res.RolledBack[0].ID)

	_, ok := store.GetVertex(v2.ID)
	require.False(ok, "the losing vertex must be removed from the canonical DAG")
	require.Contains(res.Penalized, nodeB)
}

func TestReconcileFinalizedChainAlwaysWins(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := dag.NewStore(hasher)
	reg := metrics.NewNoOpRegistry()
	rep := reputation.New(0.0, 0.3, 0, 3, reg)
	stk := stake.New(reg)
	now := time.Unix(1000, 0)

	genesis := mustAdd(t, store, hasher, node(0), nil, 0)
	v1 := mustAdd(t, store, hasher, node(1), []ids.ID{genesis.ID}, 1)
	v2 := mustAdd(t, store, hasher, node(2), []ids.ID{genesis.ID}, 2)
	require.NoError(store.MarkFinalized(genesis.ID, 0))
	require.NoError(store.MarkFinalized(v2.ID, 1))

	r := New(store, rep, stk, 0.01)
	res, err := r.Reconcile(v1.ID, v2.ID, now)
	require.NoError(err)
	require.Equal(OutcomeChooseChainB, res.Outcome)
	require.Equal(v1.ID, res.RolledBack[0].ID)
}

func TestReconcileMergesWithinEpsilon(t *testing.T) {
	require := require.New(t)
	hasher := pqcrypto.NewBlake3Hasher()
	store := dag.NewStore(hasher)
	reg := metrics.NewNoOpRegistry()
	rep := reputation.New(0.0, 0.3, 0, 3, reg)
	stk := stake.New(reg)
	now := time.Unix(1000, 0)

	genesis := mustAdd(t, store, hasher, node(0), nil, 0)
	v1 := mustAdd(t, store, hasher, node(1), []ids.ID{genesis.ID}, 1)
	v2 := mustAdd(t, store, hasher, node(2), []ids.ID{genesis.ID}, 2)

	r := New(store, rep, stk, 0.2)
	res, err := r.Reconcile(v1.ID, v2.ID, now)
	require.NoError(err)
	require.Equal(OutcomeMerge, res.Outcome)
	require.Empty(res.RolledBack)
}
