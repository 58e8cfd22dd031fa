// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
)

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func TestPeerSetPromotesBackupOnFailure(t *testing.T) {
	require := require.New(t)
	active := []ids.NodeID{node(1), node(2)}
	backup := []ids.NodeID{node(3), node(4)}
	p := NewPeerSet(active, backup, 2)

	promoted, ok := p.OnFailed(node(1))
	require.True(ok)
	require.Equal(node(3), promoted)
	require.Equal(2, p.ActiveCount())
}

func TestPeerSetRespectsReplacementBudget(t *testing.T) {
	require := require.New(t)
	active := []ids.NodeID{node(1), node(2), node(3)}
	backup := []ids.NodeID{node(4), node(5), node(6)}
	p := NewPeerSet(active, backup, 1)

	_, ok := p.OnFailed(node(1))
	require.True(ok)
	_, ok = p.OnFailed(node(2))
	require.False(ok, "second replacement in the same window must be refused")

	p.ResetWindow()
	_, ok = p.OnFailed(node(2))
	require.True(ok, "a new window restores the replacement budget")
}

func TestHasSufficientPeers(t *testing.T) {
	require := require.New(t)
	p := NewPeerSet([]ids.NodeID{node(1), node(2), node(3)}, nil, 2)
	require.True(p.HasSufficientPeers(3))
	require.False(p.HasSufficientPeers(4))
}

func TestEvaluateModeBandsByPeerLoss(t *testing.T) {
	require := require.New(t)
	reg := metrics.NewNoOpRegistry()

	// total=10, quorum=2*floor(9/3)+1=7. active=9 -> peer_loss=0.1 -> Normal.
	p := NewPeerSet([]ids.NodeID{node(1), node(2), node(3), node(4), node(5), node(6), node(7), node(8), node(9)}, nil, 10)
	c := NewCoordinator(p, config.Mainnet(), reg)
	mode, params, changed := c.EvaluateMode(10)
	require.Equal(ModeNormal, mode)
	require.False(changed)
	require.Equal(config.Mainnet().FinalityTimeout, params.FinalityTimeout)
}

func TestEvaluateModeCriticalBelowQuorum(t *testing.T) {
	require := require.New(t)
	reg := metrics.NewNoOpRegistry()
	p := NewPeerSet([]ids.NodeID{node(1), node(2)}, nil, 10)
	c := NewCoordinator(p, config.Mainnet(), reg)

	mode, params, changed := c.EvaluateMode(10)
	require.Equal(ModeCritical, mode)
	require.True(changed)
	require.Equal(5*time.Second, params.FinalityTimeout)
	require.Equal(50, params.ThrottleVerticesPerSecond)
	require.Equal(8, params.QuorumOverride) // ceil(0.75*10)
}

func TestEvaluateModeReportsChangeOnce(t *testing.T) {
	require := require.New(t)
	reg := metrics.NewNoOpRegistry()
	p := NewPeerSet([]ids.NodeID{node(1), node(2)}, nil, 10)
	c := NewCoordinator(p, config.Mainnet(), reg)

	_, _, changed1 := c.EvaluateMode(10)
	_, _, changed2 := c.EvaluateMode(10)
	require.True(changed1)
	require.False(changed2, "mode did not change on the second call")
}
