// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stake implements the stake ledger and reward/slashing economy
// of the stake economy.
package stake

import (
	"sync"
	"time"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
)

// entry is one node's stake record.
type entry struct {
	stakedAmount int64
	lockUntil    time.Time
	slashable    bool
}

// Ledger is the stake store. Slashing destroys stake atomically with a
// reputation penalty applied by the caller (bft/fork subsystems hold both
// a *reputation.Ledger and a *Ledger and call both under the same event).
type Ledger struct {
	mu      sync.RWMutex
	entries map[ids.NodeID]*entry
	// treasury accumulates slashed funds not returned to any node.
	treasury int64
	metrics  *metrics.Registry
}

// New returns an empty stake Ledger.
func New(reg *metrics.Registry) *Ledger {
	return &Ledger{entries: make(map[ids.NodeID]*entry), metrics: reg}
}

func (l *Ledger) getOrInit(node ids.NodeID) *entry {
	e, ok := l.entries[node]
	if !ok {
		e = &entry{slashable: true}
		l.entries[node] = e
	}
	return e
}

// Deposit adds amount to node's stake, locked until lockUntil.
func (l *Ledger) Deposit(node ids.NodeID, amount int64, lockUntil time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.getOrInit(node)
	e.stakedAmount += amount
	if lockUntil.After(e.lockUntil) {
		e.lockUntil = lockUntil
	}
	l.updateGaugeLocked()
}

// Withdraw removes amount from node's stake. Fails with ErrLocked before
// lock_until, and with ErrInsufficientStake if amount exceeds the balance.
func (l *Ledger) Withdraw(node ids.NodeID, amount int64, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[node]
	if !ok {
		return ErrInsufficientStake
	}
	if now.Before(e.lockUntil) {
		return ErrLocked
	}
	if amount > e.stakedAmount {
		return ErrInsufficientStake
	}
	e.stakedAmount -= amount
	l.updateGaugeLocked()
	return nil
}

// Severity scales a slashing penalty to the fraction of stake destroyed.
type Severity float64

const (
	SeverityEquivocation     Severity = 0.20
	SeverityInvalidSignature Severity = 0.10
	SeverityTimeout          Severity = 0.02
)

// ErrInsufficientStake reports a withdrawal/slash exceeding the balance.
var ErrInsufficientStake = coreerrors.Wrap(coreerrors.ErrInternal, "insufficient stake")

// ErrLocked reports a withdrawal attempted before lock_until.
var ErrLocked = coreerrors.Wrap(coreerrors.ErrInternal, "stake locked")

// ErrNotSlashable reports that node has no slashable stake (e.g. already
// zero).
var ErrNotSlashable = coreerrors.Wrap(coreerrors.ErrInternal, "node has no slashable stake")

// Slash destroys floor(stakedAmount * severity) from node's stake,
// atomically, and credits it to the treasury. Returns the
// amount actually slashed.
func (l *Ledger) Slash(node ids.NodeID, severity Severity) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[node]
	if !ok || !e.slashable || e.stakedAmount == 0 {
		return 0, ErrNotSlashable
	}
	amount := int64(float64(e.stakedAmount) * float64(severity))
	if amount > e.stakedAmount {
		amount = e.stakedAmount
	}
	e.stakedAmount -= amount
	l.treasury += amount
	l.updateGaugeLocked()
	return amount, nil
}

// StakedAmount returns node's current staked amount.
func (l *Ledger) StakedAmount(node ids.NodeID) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[node]
	if !ok {
		return 0
	}
	return e.stakedAmount
}

// LockUntil returns node's current lock expiry.
func (l *Ledger) LockUntil(node ids.NodeID) time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[node]
	if !ok {
		return time.Time{}
	}
	return e.lockUntil
}

// Treasury returns the protocol reward pool accumulated from slashing.
func (l *Ledger) Treasury() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.treasury
}

// TotalStaked returns the sum of every node's staked amount.
func (l *Ledger) TotalStaked() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, e := range l.entries {
		total += e.stakedAmount
	}
	return total
}

// AllStakes returns every node's current staked amount, for use by state
// sync's snapshot digest.
func (l *Ledger) AllStakes() map[ids.NodeID]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[ids.NodeID]int64, len(l.entries))
	for n, e := range l.entries {
		out[n] = e.stakedAmount
	}
	return out
}

func (l *Ledger) updateGaugeLocked() {
	if l.metrics == nil {
		return
	}
	var total int64
	for _, e := range l.entries {
		total += e.stakedAmount
	}
	l.metrics.StakeTotal.Set(float64(total))
}
