// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fork

import (
	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
)

// lowestCommonAncestor finds the LCA of v1 and v2 via ancestor-set
// intersection. A vertex's own ancestor set plus
// itself is its closure; the LCA is the common-closure member that is
// itself a descendant of every other common-closure member — i.e. the
// deepest (nearest to v1/v2) common ancestor, not merely any common one.
func (r *Reconciler) lowestCommonAncestor(v1, v2 ids.ID) (ids.ID, error) {
	closure1, err := r.closure(v1)
	if err != nil {
		return ids.Empty, err
	}
	closure2, err := r.closure(v2)
	if err != nil {
		return ids.Empty, err
	}

	common := make(map[ids.ID]struct{})
	for id := range closure1 {
		if _, ok := closure2[id]; ok {
			common[id] = struct{}{}
		}
	}
	if len(common) == 0 {
		return ids.Empty, coreerrors.Wrap(coreerrors.ErrForkNotResolved, "no common ancestor")
	}

	var best ids.ID
	bestDepth := -1
	for c := range common {
		closureC, err := r.closure(c)
		if err != nil {
			return ids.Empty, err
		}
		depth := 0
		for other := range common {
			if _, ok := closureC[other]; ok {
				depth++
			}
		}
		if depth > bestDepth || (depth == bestDepth && c.Less(best)) {
			best, bestDepth = c, depth
		}
	}
	return best, nil
}

// closure returns id's ancestor set plus id itself.
func (r *Reconciler) closure(id ids.ID) (map[ids.ID]struct{}, error) {
	if _, ok := r.store.GetVertex(id); !ok {
		return nil, dag.ErrNotFound
	}
	out := make(map[ids.ID]struct{})
	out[id] = struct{}{}
	for _, a := range r.store.GetAncestors(id) {
		out[a] = struct{}{}
	}
	return out, nil
}

// buildChain walks from tip back to (and excluding) lca, returning
// vertices in ancestor-to-descendant order.
func (r *Reconciler) buildChain(lca, tip ids.ID) (Chain, error) {
	var reversed []*dag.Vertex
	cur := tip
	for {
		if cur == lca {
			break
		}
		v, ok := r.store.GetVertex(cur)
		if !ok {
			return Chain{}, dag.ErrNotFound
		}
		reversed = append(reversed, v)
		if v.IsGenesis() {
			break
		}
		// A vertex may have multiple parents; chain construction follows
		// the parent from which lca is reachable (lca itself or one of its
		// descendants), or
		// the first parent if lca is not yet reached via any of them —
		// this mirrors a linear chain walk and is sufficient because both
		// v1 and v2 are the reconciliation's named conflict points, not
		// arbitrary multi-parent merges.
		next, err := r.parentTowardLCA(v, lca)
		if err != nil {
			return Chain{}, err
		}
		cur = next
	}
	out := make([]*dag.Vertex, len(reversed))
	for i, v := range reversed {
		out[len(reversed)-1-i] = v
	}
	return Chain{Vertices: out}, nil
}

func (r *Reconciler) parentTowardLCA(v *dag.Vertex, lca ids.ID) (ids.ID, error) {
	if len(v.Parents) == 0 {
		return ids.Empty, coreerrors.Wrap(coreerrors.ErrForkNotResolved, "chain walk reached genesis before lca")
	}
	for _, p := range v.Parents {
		if p == lca {
			return p, nil
		}
		closure, err := r.closure(p)
		if err != nil {
			continue
		}
		if _, ok := closure[lca]; ok {
			return p, nil
		}
	}
	return v.Parents[0], nil
}
