// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"testing"
	"time"

	"github.com/meridianbft/consensus/ids"
	"github.com/stretchr/testify/require"
)

func n(b byte) ids.NodeID {
	var id ids.NodeID
	id[0] = b
	return id
}

func TestDistributeRewardWeightsByStakeTimesReputation(t *testing.T) {
	require := require.New(t)

	participants := []Participant{
		{Node: n(1), Reputation: 0.5, Staked: 100},
		{Node: n(2), Reputation: 0.6, Staked: 200},
		{Node: n(3), Reputation: 0.7, Staked: 300},
		{Node: n(4), Reputation: 0.8, Staked: 400},
		{Node: n(5), Reputation: 0.9, Staked: 500},
	}

	dist := DistributeReward(1000, participants)
	require.Equal(int64(391), dist.Payouts[n(5)])

	var sum int64
	for _, v := range dist.Payouts {
		sum += v
	}
	require.LessOrEqual(sum, int64(1000))
	require.Equal(int64(1000), sum+dist.Leftover)
}

func TestDistributeRewardZeroWeight(t *testing.T) {
	require := require.New(t)
	dist := DistributeReward(1000, []Participant{{Node: n(1), Reputation: 0, Staked: 0}})
	require.Equal(int64(1000), dist.Leftover)
	require.Empty(dist.Payouts)
}

func TestSlashDestroysStakeAndCreditsTreasury(t *testing.T) {
	require := require.New(t)
	l := New(nil)
	l.Deposit(n(1), 1000, time.Time{})

	amount, err := l.Slash(n(1), SeverityEquivocation)
	require.NoError(err)
	require.Equal(int64(200), amount)
	require.Equal(int64(800), l.StakedAmount(n(1)))
	require.Equal(int64(200), l.Treasury())
}

func TestWithdrawRespectsLock(t *testing.T) {
	require := require.New(t)
	l := New(nil)
	lockUntil := time.Now().Add(time.Hour)
	l.Deposit(n(2), 500, lockUntil)

	err := l.Withdraw(n(2), 100, time.Now())
	require.ErrorIs(err, ErrLocked)

	err = l.Withdraw(n(2), 100, lockUntil.Add(time.Second))
	require.NoError(err)
	require.Equal(int64(400), l.StakedAmount(n(2)))
}
