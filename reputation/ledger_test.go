// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reputation

import (
	"testing"
	"time"

	"github.com/meridianbft/consensus/ids"
	"github.com/stretchr/testify/require"
)

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func TestInitialScoreIsHalf(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 3, nil)
	now := time.Now()
	require.Equal(0.5, l.Score(node(1), now))
	require.True(l.IsReliable(node(1), now))
}

func TestRecordActivityBoundsScore(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 3, nil)
	now := time.Now()
	n := node(1)
	for i := 0; i < 20; i++ {
		l.RecordActivity(n, EventVertexFinalized, now)
	}
	require.Equal(1.0, l.Score(n, now))
}

func TestEquivocationDropsScoreAndMarksByzantineOnThreshold(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 2, nil)
	now := time.Now()
	n := node(2)

	l.RecordActivity(n, EventViolationEquivocation, now)
	require.InDelta(0.3, l.Score(n, now), 1e-9)
	require.False(l.IsByzantine(n))

	l.RecordActivity(n, EventViolationEquivocation, now)
	require.False(l.IsByzantine(n)) // violationCount == threshold, not yet exceeded

	l.RecordActivity(n, EventViolationEquivocation, now)
	require.True(l.IsByzantine(n)) // violationCount > threshold
	require.False(l.IsReliable(n, now))
}

func TestMarkByzantineImmediate(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 3, nil)
	now := time.Now()
	n := node(3)
	l.MarkByzantine(n, now)
	require.True(l.IsByzantine(n))
	require.False(l.IsReliable(n, now))
}

func TestDecayTowardMidpoint(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0.5, 3, nil) // lambda = 0.5/sec
	now := time.Now()
	n := node(4)
	l.RecordActivity(n, EventVertexFinalized, now) // score 0.55 at t0

	later := now.Add(1 * time.Second)
	got := l.Score(n, later)
	require.InDelta(0.5+0.05*0.5, got, 1e-9)
}

func TestListenerFiresOnMutation(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 3, nil)
	now := time.Now()
	var gotNode ids.NodeID
	var gotScore float64
	l.Subscribe(func(n ids.NodeID, score float64, byzantine bool) {
		gotNode, gotScore = n, score
	})
	n := node(5)
	l.RecordActivity(n, EventConsensusParticipation, now)
	require.Equal(n, gotNode)
	require.InDelta(0.51, gotScore, 1e-9)
}

func TestReliableNodesSortedAndFiltered(t *testing.T) {
	require := require.New(t)
	l := New(0.0, 0.5, 0, 3, nil)
	now := time.Now()
	a, b, c := node(3), node(1), node(2)
	l.RecordActivity(a, EventConsensusParticipation, now)
	l.RecordActivity(b, EventConsensusParticipation, now)
	l.RecordActivity(c, EventViolationEquivocation, now) // drops below threshold

	reliable := l.ReliableNodes(now)
	require.Equal([]ids.NodeID{b, a}, reliable)
}
