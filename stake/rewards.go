// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"sort"

	"github.com/meridianbft/consensus/ids"
)

// Participant is one round's reward input: a node's reputation and staked
// amount at the moment a vertex finalizes.
type Participant struct {
	Node       ids.NodeID
	Reputation float64
	Staked     int64
}

// Distribution is the result of DistributeReward: per-node payouts plus
// whatever the floor-division left over.
type Distribution struct {
	Payouts  map[ids.NodeID]int64
	Leftover int64
}

// DistributeReward splits pool among participants weighted by
// reputation*stake. Weights are computed as
// reputation*staked; payout_i = floor(pool * weight_i / total_weight).
// Floor division never over-distributes; any remainder is returned as
// Leftover for the caller to credit to the treasury.
func DistributeReward(pool int64, participants []Participant) Distribution {
	dist := Distribution{Payouts: make(map[ids.NodeID]int64, len(participants))}
	if pool <= 0 || len(participants) == 0 {
		dist.Leftover = pool
		return dist
	}

	// Sort for deterministic iteration order, so the floating-point sum of
	// weights (and with it every payout) does not depend on the order the
	// participants were passed in.
	sorted := append([]Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Node.Less(sorted[j].Node) })

	var totalWeight float64
	weights := make([]float64, len(sorted))
	for i, p := range sorted {
		w := p.Reputation * float64(p.Staked)
		weights[i] = w
		totalWeight += w
	}
	if totalWeight <= 0 {
		dist.Leftover = pool
		return dist
	}

	var distributed int64
	for i, p := range sorted {
		payout := int64(float64(pool) * weights[i] / totalWeight)
		dist.Payouts[p.Node] = payout
		distributed += payout
	}
	dist.Leftover = pool - distributed
	return dist
}

// UptimeBonus computes an additional per-node payout from a bonus pool
// sized bonusRatio*pool, split evenly among nodes with full uptime
// coverage over the epoch.
func UptimeBonus(pool int64, bonusRatio float64, fullUptimeNodes []ids.NodeID) Distribution {
	dist := Distribution{Payouts: make(map[ids.NodeID]int64, len(fullUptimeNodes))}
	if len(fullUptimeNodes) == 0 {
		dist.Leftover = 0
		return dist
	}
	bonusPool := int64(float64(pool) * bonusRatio)
	share := bonusPool / int64(len(fullUptimeNodes))
	var distributed int64
	for _, n := range fullUptimeNodes {
		dist.Payouts[n] = share
		distributed += share
	}
	dist.Leftover = bonusPool - distributed
	return dist
}
