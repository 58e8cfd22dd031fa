// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package failuredetector

import (
	"testing"

	"github.com/meridianbft/consensus/ids"
	"github.com/stretchr/testify/require"
)

func peer(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func defaultConfig() Config {
	return Config{
		MaxSamples:                     1000,
		PhiThreshold:                   8.0,
		SigmaMin:                       50,
		AcceptableHeartbeatPauseMillis: 3000,
	}
}

func TestRecordHeartbeatImmediatelyAvailable(t *testing.T) {
	require := require.New(t)
	d := New(defaultConfig(), nil)
	p := peer(1)
	d.RecordHeartbeat(p, 1000)
	require.Less(d.Phi(p, 1000), defaultConfig().PhiThreshold)
	require.Equal(StatusAvailable, d.Status(p, 1000))
}

func TestBootstrapUsesPauseRatio(t *testing.T) {
	require := require.New(t)
	d := New(defaultConfig(), nil)
	p := peer(2)
	d.RecordHeartbeat(p, 0)

	// Only one sample so far: bootstrap formula elapsed/pause applies.
	phi := d.Phi(p, 3000)
	require.InDelta(1.0, phi, 1e-9)
}

func TestSuspectedAfterLongSilence(t *testing.T) {
	require := require.New(t)
	d := New(defaultConfig(), nil)
	p := peer(3)
	now := int64(0)
	for i := 0; i < 20; i++ {
		now += 500
		d.RecordHeartbeat(p, now)
	}
	// Now silence for far longer than the observed regular interval.
	later := now + 60_000
	require.Equal(StatusSuspected, d.Status(p, later))
}

func TestMarkFailedAndClear(t *testing.T) {
	require := require.New(t)
	d := New(defaultConfig(), nil)
	p := peer(4)
	d.RecordHeartbeat(p, 0)
	d.MarkFailed(p)
	require.Equal(StatusFailed, d.Status(p, 0))

	d.RecordHeartbeat(p, 100)
	require.Equal(StatusAvailable, d.Status(p, 100))
}

func TestDetectPartition(t *testing.T) {
	require := require.New(t)
	d := New(defaultConfig(), nil)
	d.RecordHeartbeat(peer(1), 0)
	d.RecordHeartbeat(peer(2), 0)
	require.True(d.DetectPartition(3, 0))
	d.RecordHeartbeat(peer(3), 0)
	require.False(d.DetectPartition(3, 0))
}
