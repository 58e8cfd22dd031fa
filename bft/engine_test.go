// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/protocol"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

type fakeNetwork struct {
	prepares []protocol.Prepare
	commits  []protocol.Commit
}

func (n *fakeNetwork) SendPrePrepare(protocol.PrePrepare) error { return nil }
func (n *fakeNetwork) SendPrepare(msg protocol.Prepare) error {
	n.prepares = append(n.prepares, msg)
	return nil
}
func (n *fakeNetwork) SendCommit(msg protocol.Commit) error {
	n.commits = append(n.commits, msg)
	return nil
}
func (n *fakeNetwork) SendViewChange(protocol.ViewChange) error { return nil }
func (n *fakeNetwork) SendNewView(protocol.NewView) error       { return nil }

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func setupEngine(t *testing.T, self ids.NodeID, nodes []ids.NodeID) (*Engine, *fakeNetwork, *dag.Store, *reputation.Ledger, *stake.Ledger) {
	t.Helper()
	hasher := pqcrypto.NewBlake3Hasher()
	store := dag.NewStore(hasher)
	reg := metrics.NewNoOpRegistry()
	rep := reputation.New(0.0, 0.3, 0, 3, reg)
	stk := stake.New(reg)

	now := time.Unix(0, 0)
	pub := make(map[ids.NodeID][]byte)
	for _, n := range nodes {
		rep.RecordActivity(n, reputation.EventVertexFinalized, now)
		stk.Deposit(n, 100, time.Time{})
		pub[n] = []byte("pub-" + n.String())
	}

	net := &fakeNetwork{}
	e := New(EngineConfig{
		Self:       self,
		Nodes:      nodes,
		PrivateKey: []byte("priv"),
		PublicKeys: pub,
		Params:     config.Local(),
		DAG:        store,
		Reputation: rep,
		Stake:      stk,
		Signer:     fakeSigner{},
		Network:    net,
		Metrics:    reg,
	})
	return e, net, store, rep, stk
}

func genesisVertex(t *testing.T, hasher pqcrypto.Hasher, creator ids.NodeID) *dag.Vertex {
	t.Helper()
	v := &dag.Vertex{Creator: creator, Timestamp: 1}
	digest := hasher.Hash(v.CanonicalBytes())
	v.ContentHash = ids.ID(digest)
	v.ID = v.ContentHash
	return v
}

func TestProposeAndFinalizeHappyPath(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	now := time.Unix(100, 0)

	probe, _, _, _, _ := setupEngine(t, nodes[0], nodes)
	leader, ok := probe.Leader(0, now)
	require.True(ok)

	// Re-create the engine as whichever node actually won the ranking.
	e, net, store, _, _ := setupEngine(t, leader, nodes)
	require.True(e.IsLeader(0, now))

	v := genesisVertex(t, pqcrypto.NewBlake3Hasher(), leader)
	require.NoError(store.AddVertex(v))

	pp, err := e.ProposeVertex(v, now)
	require.NoError(err)
	require.Equal(v.ContentHash, pp.VertexHash)

	quorum := e.quorumSize()
	require.Equal(3, quorum)

	var finalized []*dag.Vertex
	e.OnFinalize(func(fv *dag.Vertex) { finalized = append(finalized, fv) })

	voters := 0
	for _, n := range nodes {
		if voters >= quorum {
			break
		}
		msg := protocol.Prepare{
			Envelope:   protocol.Envelope{Type: protocol.TypePrepare, View: 0, Sequence: 0, NodeID: n},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(e.HandlePrepare(msg, now))
		voters++
	}
	require.Len(net.prepares, 0) // this engine doesn't prepare its own pre-prepare via HandlePrepare

	voters = 0
	for _, n := range nodes {
		if voters >= quorum {
			break
		}
		msg := protocol.Commit{
			Envelope:   protocol.Envelope{Type: protocol.TypeCommit, View: 0, Sequence: 0, NodeID: n},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(e.HandleCommit(msg, now))
		voters++
	}

	require.Len(finalized, 1)
	require.Equal(v.ContentHash, finalized[0].ContentHash)
	stored, ok := store.GetVertex(v.ContentHash)
	require.True(ok)
	require.Equal(dag.StateFinalized, stored.State)
}

func TestHandlePrepareDetectsEquivocation(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	now := time.Unix(0, 0)
	e, _, _, rep, _ := setupEngine(t, nodes[0], nodes)

	hashA := ids.ID{0xA}
	hashB := ids.ID{0xB}
	msgA := protocol.Prepare{
		Envelope:   protocol.Envelope{Type: protocol.TypePrepare, View: 0, Sequence: 0, NodeID: nodes[1]},
		VertexHash: hashA,
	}
	msgA.Signature = msgA.VertexHash[:]
	require.NoError(e.HandlePrepare(msgA, now))

	msgB := protocol.Prepare{
		Envelope:   protocol.Envelope{Type: protocol.TypePrepare, View: 0, Sequence: 0, NodeID: nodes[1]},
		VertexHash: hashB,
	}
	msgB.Signature = msgB.VertexHash[:]
	err := e.HandlePrepare(msgB, now)
	require.ErrorIs(err, ErrEquivocation)
	require.True(rep.IsByzantine(nodes[1]))
}

func TestLeaderIsDeterministicAcrossEngines(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	now := time.Unix(0, 0)

	e1, _, _, _, _ := setupEngine(t, nodes[0], nodes)
	e2, _, _, _, _ := setupEngine(t, nodes[1], nodes)

	l1, ok1 := e1.Leader(2, now)
	l2, ok2 := e2.Leader(2, now)
	require.True(ok1)
	require.True(ok2)
	require.Equal(l1, l2)
}

