// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fork implements fork reconciliation: lowest
// common ancestor search, chain scoring by summed creator reputation,
// canonical-chain choice, and rollback of the losing chain.
package fork

import (
	"sort"
	"time"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
)

// Outcome is the result of reconciling a single conflicting pair.
type Outcome int

const (
	OutcomeChooseChainA Outcome = iota
	OutcomeChooseChainB
	OutcomeMerge
	OutcomeManualIntervention
)

func (o Outcome) String() string {
	switch o {
	case OutcomeChooseChainA:
		return "choose_chain_a"
	case OutcomeChooseChainB:
		return "choose_chain_b"
	case OutcomeMerge:
		return "merge"
	case OutcomeManualIntervention:
		return "manual_intervention"
	default:
		return "unknown"
	}
}

// Chain is one side of a fork: the path from the LCA (exclusive) to the
// conflicting tip (inclusive), in ancestor-to-descendant order.
type Chain struct {
	Vertices []*dag.Vertex
	Score    float64 // sum of reputation(creator) over Vertices
	Height   int     // len(Vertices)
}

func (c Chain) allFinalized() bool {
	for _, v := range c.Vertices {
		if v.State != dag.StateFinalized {
			return false
		}
	}
	return len(c.Vertices) > 0
}

func (c Chain) anyFinalized() bool {
	for _, v := range c.Vertices {
		if v.State == dag.StateFinalized {
			return true
		}
	}
	return false
}

// Result is the outcome of reconciling v1 against v2.
type Result struct {
	Outcome     Outcome
	ChainA      Chain
	ChainB      Chain
	RolledBack  []*dag.Vertex // the losing chain's vertices, empty for Merge/ManualIntervention
	Penalized   []ids.NodeID  // conflicting_creators that received a reputation/stake penalty
}

// Reconciler implements fork reconciliation against a dag.Store.
type Reconciler struct {
	store      *dag.Store
	reputation *reputation.Ledger
	stake      *stake.Ledger
	repEpsilon float64
}

// New returns a Reconciler. repEpsilon is REP_EPSILON (config.Parameters.
// ForkScoreEpsilon).
func New(store *dag.Store, rep *reputation.Ledger, stk *stake.Ledger, repEpsilon float64) *Reconciler {
	return &Reconciler{store: store, reputation: rep, stake: stk, repEpsilon: repEpsilon}
}

// Reconcile resolves a conflict between v1 and v2.
func (r *Reconciler) Reconcile(v1, v2 ids.ID, now time.Time) (Result, error) {
	lca, err := r.lowestCommonAncestor(v1, v2)
	if err != nil {
		return Result{}, err
	}

	chainA, err := r.buildChain(lca, v1)
	if err != nil {
		return Result{}, err
	}
	chainB, err := r.buildChain(lca, v2)
	if err != nil {
		return Result{}, err
	}
	chainA.Score, chainA.Height = scoreChain(chainA.Vertices, r.reputation, now), len(chainA.Vertices)
	chainB.Score, chainB.Height = scoreChain(chainB.Vertices, r.reputation, now), len(chainB.Vertices)

	res := Result{ChainA: chainA, ChainB: chainB}

	aFinal, bFinal := chainA.allFinalized(), chainB.allFinalized()
	switch {
	case aFinal && !bFinal:
		res.Outcome = OutcomeChooseChainA
		res.RolledBack = chainB.Vertices
	case bFinal && !aFinal:
		res.Outcome = OutcomeChooseChainB
		res.RolledBack = chainA.Vertices
	default:
		res.Outcome, res.RolledBack = r.chooseByScore(chainA, chainB)
	}

	if res.Outcome == OutcomeManualIntervention {
		res.Penalized = nil
		return res, coreerrors.ErrForkNotResolved
	}

	res.Penalized = r.penalizeConflictingCreators(res, now)
	if len(res.RolledBack) > 0 {
		if err := r.rollback(res.RolledBack); err != nil {
			return res, err
		}
	}
	return res, nil
}

// chooseByScore applies the canonical-chain sort/tie-break rule to two
// chains that are not decided by finality alone.
func (r *Reconciler) chooseByScore(a, b Chain) (Outcome, []*dag.Vertex) {
	type scored struct {
		outcome Outcome
		chain   Chain
	}
	pair := []scored{{OutcomeChooseChainA, a}, {OutcomeChooseChainB, b}}
	sort.SliceStable(pair, func(i, j int) bool {
		if pair[i].chain.Score != pair[j].chain.Score {
			return pair[i].chain.Score > pair[j].chain.Score
		}
		return pair[i].chain.Height > pair[j].chain.Height
	})
	top, second := pair[0], pair[1]

	scoreGap := top.chain.Score - second.chain.Score
	if scoreGap < 0 {
		scoreGap = -scoreGap
	}
	sameHeight := top.chain.Height == second.chain.Height
	if sameHeight && scoreGap <= r.repEpsilon {
		// Equal score, equal height, and at least one finalized vertex on
		// either side: the caller must not guess.
		if scoreGap == 0 && (a.anyFinalized() || b.anyFinalized()) {
			return OutcomeManualIntervention, nil
		}
		return OutcomeMerge, nil
	}
	if top.outcome == OutcomeChooseChainA {
		return OutcomeChooseChainA, b.Vertices
	}
	return OutcomeChooseChainB, a.Vertices
}

func scoreChain(vertices []*dag.Vertex, rep *reputation.Ledger, now time.Time) float64 {
	var sum float64
	for _, v := range vertices {
		sum += rep.Score(v.Creator, now)
	}
	return sum
}

// penalizeConflictingCreators penalizes every creator
// appearing in the rolled-back chain receives a reputation and stake
// penalty, and is marked Byzantine once its violation count exceeds
// byzantine_threshold (enforced inside reputation.Ledger.RecordActivity).
func (r *Reconciler) penalizeConflictingCreators(res Result, now time.Time) []ids.NodeID {
	seen := make(map[ids.NodeID]struct{})
	var out []ids.NodeID
	for _, v := range res.RolledBack {
		if _, ok := seen[v.Creator]; ok {
			continue
		}
		seen[v.Creator] = struct{}{}
		out = append(out, v.Creator)
		r.reputation.RecordActivity(v.Creator, reputation.EventViolationEquivocation, now)
		_, _ = r.stake.Slash(v.Creator, stake.SeverityEquivocation)
	}
	return out
}

// rollback removes the losing chain's vertices from the canonical DAG,
// re-parenting their children when still valid (i.e. the child has at
// least one surviving parent) or removing the child too when it does not.
func (r *Reconciler) rollback(losing []*dag.Vertex) error {
	losingSet := make(map[ids.ID]struct{}, len(losing))
	for _, v := range losing {
		losingSet[v.ID] = struct{}{}
	}
	// Vertices with more parents are handled first; among equal parent
	// counts the losing chain's own order is kept. A child left with no
	// surviving parent joins the losing set and is handled later in the
	// same pass.
	ordered := append([]*dag.Vertex(nil), losing...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].Parents) > len(ordered[j].Parents) })

	for i := 0; i < len(ordered); i++ {
		v := ordered[i]
		children := r.store.GetChildren(v.ID)
		for _, childID := range children {
			child, ok := r.store.GetVertex(childID)
			if !ok {
				continue
			}
			survivingParents := make([]ids.ID, 0, len(child.Parents))
			for _, p := range child.Parents {
				if _, removed := losingSet[p]; !removed {
					survivingParents = append(survivingParents, p)
				}
			}
			if len(survivingParents) == 0 {
				losingSet[child.ID] = struct{}{}
				ordered = append(ordered, child)
				continue
			}
			child.Parents = survivingParents
			if err := r.store.UpdateVertex(child); err != nil {
				return err
			}
		}
		if err := r.store.RemoveVertex(v.ID); err != nil && !coreerrors.Is(err, dag.ErrNotFound) {
			return err
		}
	}
	return nil
}
