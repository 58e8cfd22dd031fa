// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package failuredetector implements the phi-accrual failure detector of
// a sliding window of inter-arrival intervals per peer,
// converted into a continuous suspicion level rather than a binary
// up/down flag.
package failuredetector

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// history is the per-peer sliding window backing the
// HeartbeatHistory: a bounded ring of inter-arrival intervals plus the
// last heartbeat time and a running count.
type history struct {
	intervals     []float64 // milliseconds, ring buffer
	next          int
	filled        int
	maxSamples    int
	lastHeartbeat int64 // unix millis of the latest heartbeat; unset while heartbeatCount is 0
	heartbeatCount int64
}

func newHistory(maxSamples int) *history {
	return &history{intervals: make([]float64, maxSamples), maxSamples: maxSamples}
}

func (h *history) record(nowMillis int64) {
	if h.heartbeatCount > 0 {
		interval := float64(nowMillis - h.lastHeartbeat)
		h.intervals[h.next] = interval
		h.next = (h.next + 1) % h.maxSamples
		if h.filled < h.maxSamples {
			h.filled++
		}
	}
	h.lastHeartbeat = nowMillis
	h.heartbeatCount++
}

func (h *history) samples() []float64 {
	return h.intervals[:h.filled]
}

// meanStdDev returns the sample mean and standard deviation of the
// recorded intervals via gonum/stat, floored at sigmaMin to avoid a
// singularity in the normal CDF when variance collapses to zero.
func meanStdDev(samples []float64, sigmaMin float64) (mu, sigma float64) {
	mu = stat.Mean(samples, nil)
	sigma = stat.StdDev(samples, nil)
	if math.IsNaN(sigma) || sigma < sigmaMin {
		sigma = sigmaMin
	}
	return mu, sigma
}

// standardNormalCDF approximates Φ(x) via the Abramowitz & Stegun 7.1.26
// polynomial approximation to the error function.
func standardNormalCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// erf implements Abramowitz & Stegun formula 7.1.26, accurate to about
// 1.5e-7.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}
