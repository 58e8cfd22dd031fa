// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/protocol"
	"github.com/meridianbft/consensus/recovery"
	"github.com/meridianbft/consensus/reputation"
)

// fakeSigner echoes the message as its own signature — deterministic and
// cheap for tests that don't care about real ML-DSA-87 keygen cost.
type fakeSigner struct{}

func (fakeSigner) GenerateKey() (pub, priv []byte, err error) {
	return []byte("pub"), []byte("priv"), nil
}
func (fakeSigner) Sign(_ []byte, msg []byte) ([]byte, error) {
	out := make([]byte, len(msg))
	copy(out, msg)
	return out, nil
}
func (fakeSigner) Verify(_ []byte, msg, sig []byte) bool {
	return bytes.Equal(msg, sig)
}

type noopNetwork struct{}

func (noopNetwork) SendPrePrepare(protocol.PrePrepare) error { return nil }
func (noopNetwork) SendPrepare(protocol.Prepare) error       { return nil }
func (noopNetwork) SendCommit(protocol.Commit) error         { return nil }
func (noopNetwork) SendViewChange(protocol.ViewChange) error { return nil }
func (noopNetwork) SendNewView(protocol.NewView) error       { return nil }

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func setupNode(t *testing.T, self ids.NodeID, nodes []ids.NodeID) *Node {
	t.Helper()
	pub := make(map[ids.NodeID][]byte)
	for _, n := range nodes {
		pub[n] = []byte("pub-" + n.String())
	}

	n, err := New(Config{
		Self:        self,
		Validators:  nodes,
		ActivePeers: nodes,
		PrivateKey:  []byte("priv"),
		PublicKeys:  pub,
		Params:      config.Local(),
		Network:     noopNetwork{},
		Hasher:      pqcrypto.NewBlake3Hasher(),
		Signer:      fakeSigner{},
	})
	require.NoError(t, err)

	now := time.Unix(0, 0)
	for _, peer := range nodes {
		n.Reputation().RecordActivity(peer, reputation.EventVertexFinalized, now)
		n.Stake().Deposit(peer, 100, time.Time{})
	}
	return n
}

func genesisVertex(hasher pqcrypto.Hasher, creator ids.NodeID) *dag.Vertex {
	v := &dag.Vertex{Creator: creator, Timestamp: 1}
	digest := hasher.Hash(v.CanonicalBytes())
	v.ContentHash = ids.ID(digest)
	v.ID = v.ContentHash
	return v
}

func TestNodeProposeAndFinalize(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	now := time.Unix(100, 0)

	probe := setupNode(t, nodes[0], nodes)
	leader, ok := probe.Leader(0, now)
	require.True(ok)

	n := setupNode(t, leader, nodes)
	hasher := pqcrypto.NewBlake3Hasher()
	v := genesisVertex(hasher, leader)
	require.NoError(n.DAG().AddVertex(v))

	pp, err := n.ProposeVertex(v, now)
	require.NoError(err)
	require.Equal(v.ContentHash, pp.VertexHash)

	var finalized []*dag.Vertex
	n.engine.OnFinalize(func(fv *dag.Vertex) { finalized = append(finalized, fv) })

	quorum := config.QuorumSize(len(nodes))
	voters := 0
	for _, peer := range nodes {
		if voters >= quorum {
			break
		}
		msg := protocol.Prepare{
			Envelope:   protocol.Envelope{Type: protocol.TypePrepare, View: 0, Sequence: 0, NodeID: peer},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(n.HandlePrepare(msg, now))
		voters++
	}

	voters = 0
	for _, peer := range nodes {
		if voters >= quorum {
			break
		}
		msg := protocol.Commit{
			Envelope:   protocol.Envelope{Type: protocol.TypeCommit, View: 0, Sequence: 0, NodeID: peer},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(n.HandleCommit(msg, now))
		voters++
	}

	require.Len(finalized, 1)
	require.Equal(v.ContentHash, finalized[0].ContentHash)

	// Finality credited a VertexFinalized reward to the creator.
	require.Greater(n.Reputation().Score(leader, now), 0.5)
}

func TestNodeEvaluateHealthDegradesOnPeerLoss(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	n := setupNode(t, nodes[0], nodes)

	base := time.Unix(1000, 0)
	for _, peer := range nodes {
		n.RecordHeartbeat(peer, base)
	}

	report := n.EvaluateHealth(base)
	require.Equal(4, report.Available)
	require.False(report.ModeChanged) // starts in ModeNormal already

	// Let every peer, self included, go silent well past the pause
	// threshold so the detector reports them at least Suspected.
	later := base.Add(10 * time.Second)
	report = n.EvaluateHealth(later)
	require.GreaterOrEqual(report.Failed+report.Suspected, 1)
}

func TestNodeStallsWithoutQuorumAfterPartition(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4), node(5), node(6), node(7)}
	now := time.Unix(100, 0)

	probe := setupNode(t, nodes[0], nodes)
	leader, ok := probe.Leader(0, now)
	require.True(ok)

	n := setupNode(t, leader, nodes)
	hasher := pqcrypto.NewBlake3Hasher()
	v := genesisVertex(hasher, leader)
	require.NoError(n.DAG().AddVertex(v))

	_, err := n.ProposeVertex(v, now)
	require.NoError(err)

	var finalized []*dag.Vertex
	n.engine.OnFinalize(func(fv *dag.Vertex) { finalized = append(finalized, fv) })

	// Only one side of a 4/3 split votes — 3 reachable peers can never
	// reach this validator set's quorum of 5, so the round must stall.
	side := []ids.NodeID{nodes[0], nodes[1], nodes[2]}
	for _, peer := range side {
		msg := protocol.Prepare{
			Envelope:   protocol.Envelope{Type: protocol.TypePrepare, View: 0, Sequence: 0, NodeID: peer},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(n.HandlePrepare(msg, now))
	}
	for _, peer := range side {
		msg := protocol.Commit{
			Envelope:   protocol.Envelope{Type: protocol.TypeCommit, View: 0, Sequence: 0, NodeID: peer},
			VertexHash: v.ContentHash,
		}
		msg.Signature = msg.VertexHash[:]
		require.NoError(n.HandleCommit(msg, now))
	}

	require.Empty(finalized)
}

func TestNodeEvaluateHealthReachesCriticalBelowQuorum(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4), node(5), node(6), node(7), node(8), node(9), node(10)}
	n := setupNode(t, nodes[0], nodes)

	base := time.Unix(1000, 0)
	for _, peer := range nodes {
		n.RecordHeartbeat(peer, base)
	}
	n.EvaluateHealth(base)

	// Mark four of ten peers (exceeds f=3) failed directly, modeling
	// equivocation/invalid-signature exclusions rather than silence.
	for _, peer := range nodes[:4] {
		n.detector.MarkFailed(peer)
	}

	report := n.EvaluateHealth(base.Add(time.Second))
	require.GreaterOrEqual(report.Failed, 1)
	require.Equal(recovery.ModeCritical, report.Mode)
}

func TestNodeCreateSnapshotCapturesFinalizedVertex(t *testing.T) {
	require := require.New(t)
	nodes := []ids.NodeID{node(1), node(2), node(3), node(4)}
	n := setupNode(t, nodes[0], nodes)
	now := time.Unix(500, 0)

	hasher := pqcrypto.NewBlake3Hasher()
	v := genesisVertex(hasher, nodes[0])
	require.NoError(n.DAG().AddVertex(v))
	require.NoError(n.DAG().MarkFinalized(v.ID, now.UnixMilli()))

	snap, err := n.CreateSnapshot(0, 0, now)
	require.NoError(err)
	require.Len(snap.FinalizedHashes, 1)
	require.Equal(v.ID, snap.FinalizedHashes[0])
}
