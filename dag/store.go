// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"sort"
	"sync"

	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
)

// Store is the content-addressed DAG store. It exclusively
// owns vertex records; every other subsystem (BFT engine, reputation
// ledger, state sync) refers to a vertex only by ID or content hash.
//
// A single sync.RWMutex guards the whole store rather than sharded
// concurrent maps.
// a future revision may want fine-grained sharded locks with a per-vertex
// exclusive guard during validation; a single RWMutex is a correctness-
// preserving simplification of that design (readers never block on
// readers, writers serialize) rather than
// implemented as N shards, since the CORE's safety invariants do not
// depend on shard count.
type Store struct {
	mu sync.RWMutex

	hasher pqcrypto.Hasher

	vertices map[ids.ID]*Vertex
	children map[ids.ID]map[ids.ID]struct{}
	genesis  map[ids.ID]struct{}
}

// NewStore returns an empty Store.
func NewStore(hasher pqcrypto.Hasher) *Store {
	return &Store{
		hasher:   hasher,
		vertices: make(map[ids.ID]*Vertex),
		children: make(map[ids.ID]map[ids.ID]struct{}),
		genesis:  make(map[ids.ID]struct{}),
	}
}

// AddVertex validates and inserts v.
func (s *Store) AddVertex(v *Vertex) error {
	if len(v.Parents) > MaxParents {
		return ErrTooManyParents
	}
	for _, p := range v.Parents {
		if p == v.ID {
			return ErrSelfParent
		}
	}
	if !v.VerifyHash(s.hasher) {
		return ErrHashMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vertices[v.ID]; exists {
		return ErrAlreadyExists
	}
	if !v.IsGenesis() {
		for _, p := range v.Parents {
			if _, ok := s.vertices[p]; !ok {
				return ErrUnknownParent
			}
		}
	}
	if s.reachesLocked(v.ID, v.Parents) {
		return ErrCycleDetected
	}

	s.vertices[v.ID] = v
	if v.IsGenesis() {
		s.genesis[v.ID] = struct{}{}
	}
	for _, p := range v.Parents {
		set, ok := s.children[p]
		if !ok {
			set = make(map[ids.ID]struct{})
			s.children[p] = set
		}
		set[v.ID] = struct{}{}
	}
	if _, ok := s.children[v.ID]; !ok {
		s.children[v.ID] = make(map[ids.ID]struct{})
	}
	return nil
}

// reachesLocked reports whether target is reachable, via children edges,
// from any of parents — i.e. whether admitting edges parents->target would
// close a cycle. Breadth-first search over children, starting at parents.
// Callers must hold s.mu.
func (s *Store) reachesLocked(target ids.ID, parents []ids.ID) bool {
	visited := make(map[ids.ID]struct{})
	queue := make([]ids.ID, 0, len(parents))
	queue = append(queue, parents...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		for child := range s.children[cur] {
			queue = append(queue, child)
		}
	}
	return false
}

// GetVertex returns the vertex with the given ID, if present.
func (s *Store) GetVertex(id ids.ID) (*Vertex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[id]
	return v, ok
}

// GetChildren returns the IDs of id's children.
func (s *Store) GetChildren(id ids.ID) []ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.children[id]
	out := make([]ids.ID, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	ids.SortIDs(out)
	return out
}

// GetAncestors returns every ancestor of id, in no particular order
// (callers needing determinism should sort). Traversal is full-depth: the
// walk continues until the frontier is exhausted with no artificial depth
// bound (see DESIGN.md's resolution of the "unspecified traversal depth"
// open question — full ancestor closure is used everywhere get_ancestors
// is consulted, including fork reconciliation's LCA search).
func (s *Store) GetAncestors(id ids.ID) []ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ancestorsLocked(id)
}

func (s *Store) ancestorsLocked(id ids.ID) []ids.ID {
	visited := make(map[ids.ID]struct{})
	var out []ids.ID
	var walk func(ids.ID)
	walk = func(cur ids.ID) {
		v, ok := s.vertices[cur]
		if !ok {
			return
		}
		for _, p := range v.Parents {
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			out = append(out, p)
			walk(p)
		}
	}
	walk(id)
	return out
}

// GetTips returns every vertex with no children, i.e. the current frontier.
func (s *Store) GetTips() []ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tips []ids.ID
	for id := range s.vertices {
		if len(s.children[id]) == 0 {
			tips = append(tips, id)
		}
	}
	ids.SortIDs(tips)
	return tips
}

// TopologicalSort returns every vertex with ancestors before descendants,
// ties broken by content_hash lex order so the output is deterministic.
func (s *Store) TopologicalSort() []ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inDegree := make(map[ids.ID]int, len(s.vertices))
	for id, v := range s.vertices {
		inDegree[id] = len(v.Parents)
	}

	ready := make([]ids.ID, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortByContentHash := func(list []ids.ID) {
		sort.Slice(list, func(i, j int) bool {
			return s.vertices[list[i]].ContentHash.Less(s.vertices[list[j]].ContentHash)
		})
	}
	sortByContentHash(ready)

	out := make([]ids.ID, 0, len(s.vertices))
	for len(ready) > 0 {
		sortByContentHash(ready)
		cur := ready[0]
		ready = ready[1:]
		out = append(out, cur)

		children := make([]ids.ID, 0, len(s.children[cur]))
		for c := range s.children[cur] {
			children = append(children, c)
		}
		sortByContentHash(children)
		for _, c := range children {
			inDegree[c]--
			if inDegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	return out
}

// RemoveVertex deletes id and its edges. Used by fork reconciliation's
// rollback; does not cascade to children — callers are
// responsible for re-parenting or also removing children first.
func (s *Store) RemoveVertex(id ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[id]
	if !ok {
		return ErrNotFound
	}
	for _, p := range v.Parents {
		delete(s.children[p], id)
	}
	delete(s.children, id)
	delete(s.vertices, id)
	delete(s.genesis, id)
	return nil
}

// UpdateVertex replaces the stored record for v.ID with v, re-validating
// its hash but not its parent linkage (parents are immutable once
// inserted; this is used to transition State/FinalizedAt, not to rewrite
// structural fields).
func (s *Store) UpdateVertex(v *Vertex) error {
	if !v.VerifyHash(s.hasher) {
		return ErrHashMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vertices[v.ID]; !ok {
		return ErrNotFound
	}
	s.vertices[v.ID] = v
	return nil
}

// MarkFinalized transitions id to StateFinalized at the given monotonic
// timestamp, idempotently.
func (s *Store) MarkFinalized(id ids.ID, atMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[id]
	if !ok {
		return ErrNotFound
	}
	if v.State == StateFinalized {
		return nil
	}
	v.State = StateFinalized
	v.FinalizedAt = atMillis
	return nil
}

// AllParentsFinalized reports whether every parent of id is finalized —
// the precondition for id itself to finalize.
func (s *Store) AllParentsFinalized(id ids.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[id]
	if !ok {
		return false
	}
	for _, p := range v.Parents {
		pv, ok := s.vertices[p]
		if !ok || pv.State != StateFinalized {
			return false
		}
	}
	return true
}

// IsAcyclic walks the full graph and reports whether it is acyclic; used
// by tests asserting the DAG is acyclic at all times
// invariant. Not called on the hot insertion path — AddVertex's
// reachesLocked check is the O(insert) guard; this is the O(V+E)
// whole-graph audit.
func (s *Store) IsAcyclic() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ids.ID]int, len(s.vertices))
	var visit func(ids.ID) bool
	visit = func(id ids.ID) bool {
		color[id] = gray
		for c := range s.children[id] {
			switch color[c] {
			case gray:
				return false
			case white:
				if !visit(c) {
					return false
				}
			}
		}
		color[id] = black
		return true
	}
	for id := range s.vertices {
		if color[id] == white {
			if !visit(id) {
				return false
			}
		}
	}
	return true
}
