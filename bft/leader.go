// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"sort"
	"time"

	"github.com/meridianbft/consensus/ids"
)

// weightedNode pairs a node with its leader-selection weight.
type weightedNode struct {
	node   ids.NodeID
	weight float64
}

// rankReliableNodes returns the reliable node set ordered for leader
// selection: weight = reputation(n) * stake(n) descending, ties broken by
// node_id ascending lexicographic order ("leader(view) =
// sort_by_reputation_weighted_stake(reliable_nodes)[view mod n]").
func (e *Engine) rankReliableNodes(now time.Time) []ids.NodeID {
	reliable := e.reputation.ReliableNodes(now)
	ranked := make([]weightedNode, 0, len(reliable))
	for _, n := range reliable {
		rep := e.reputation.Score(n, now)
		st := float64(e.stake.StakedAmount(n))
		ranked = append(ranked, weightedNode{node: n, weight: rep * st})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].node.Less(ranked[j].node)
	})
	out := make([]ids.NodeID, len(ranked))
	for i, w := range ranked {
		out[i] = w.node
	}
	return out
}

// Leader returns the leader of view among the current reliable node set.
// Returns (ids.EmptyNodeID, false) if no node is reliable.
func (e *Engine) Leader(view uint64, now time.Time) (ids.NodeID, bool) {
	ranked := e.rankReliableNodes(now)
	if len(ranked) == 0 {
		return ids.EmptyNodeID, false
	}
	return ranked[int(view)%len(ranked)], true
}

// IsLeader reports whether self is the leader of view.
func (e *Engine) IsLeader(view uint64, now time.Time) bool {
	leader, ok := e.Leader(view, now)
	return ok && leader == e.self
}
