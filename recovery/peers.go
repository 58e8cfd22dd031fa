// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package recovery implements peer recovery and the degraded-mode
// coordinator: promoting backup peers on failure, bounded
// by a churn-storm guard, and adjusting BFT parameters as the active peer
// fraction drops.
package recovery

import (
	"sync"

	"github.com/meridianbft/consensus/ids"
)

// PeerSet tracks an active peer set and a backup list, promoting backups
// on Failed events up to a bounded number of replacements per window.
type PeerSet struct {
	mu sync.Mutex

	active  map[ids.NodeID]struct{}
	backup  []ids.NodeID // ordered, first entry promoted first
	maxReplacementsPerWindow int

	replacementsThisWindow int
}

// NewPeerSet returns a PeerSet with the given initial active peers and
// backup list, in priority order.
func NewPeerSet(active []ids.NodeID, backup []ids.NodeID, maxReplacementsPerWindow int) *PeerSet {
	p := &PeerSet{
		active:                   make(map[ids.NodeID]struct{}, len(active)),
		backup:                   append([]ids.NodeID(nil), backup...),
		maxReplacementsPerWindow: maxReplacementsPerWindow,
	}
	for _, a := range active {
		p.active[a] = struct{}{}
	}
	return p
}

// ResetWindow clears the replacement counter; called by the caller's
// timer at the start of each recovery window.
func (p *PeerSet) ResetWindow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replacementsThisWindow = 0
}

// OnFailed removes failed from the active set and, if the replacement
// budget for this window allows it, promotes the highest-priority backup
// in its place. Returns the promoted peer, or (ids.EmptyNodeID, false) if
// no replacement occurred (either no backups remain, or the window's
// replacement budget is exhausted).
func (p *PeerSet) OnFailed(failed ids.NodeID) (ids.NodeID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.active, failed)
	if p.replacementsThisWindow >= p.maxReplacementsPerWindow {
		return ids.EmptyNodeID, false
	}
	if len(p.backup) == 0 {
		return ids.EmptyNodeID, false
	}
	promoted := p.backup[0]
	p.backup = p.backup[1:]
	p.active[promoted] = struct{}{}
	p.replacementsThisWindow++
	return promoted, true
}

// AddBackup appends a node to the end of the backup priority list.
func (p *PeerSet) AddBackup(n ids.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backup = append(p.backup, n)
}

// ActiveCount returns the number of currently active peers.
func (p *PeerSet) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// TotalCount returns active + backup. Failed peers removed by OnFailed are
// not counted.
func (p *PeerSet) TotalCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active) + len(p.backup)
}

// HasSufficientPeers reports whether active_count >= quorumSize.
func (p *PeerSet) HasSufficientPeers(quorumSize int) bool {
	return p.ActiveCount() >= quorumSize
}

// ActivePeers returns the current active set, in no particular order.
func (p *PeerSet) ActivePeers() []ids.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ids.NodeID, 0, len(p.active))
	for n := range p.active {
		out = append(out, n)
	}
	return out
}
