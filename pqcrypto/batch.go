// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pqcrypto

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultBatchSize mirrors an auto-tuned batch size:
// min(32, 4*cpus).
func DefaultBatchSize() int {
	n := 4 * runtime.NumCPU()
	if n > 32 {
		return 32
	}
	return n
}

// BatchVerifier2 runs a Signer's Verify across many items concurrently,
// bounded by a semaphore rather than an unbounded goroutine-per-item fan
// out, matching a rayon-style worker pool for CPU-bound
// signature verification. Early exit is disabled: every item is verified
// and reported, preserving per-item diagnostics.
type BatchVerifier2 struct {
	signer    Signer
	batchSize int
}

var _ BatchVerifier = (*BatchVerifier2)(nil)

// NewBatchVerifier returns a BatchVerifier bounded to batchSize concurrent
// verifications. A batchSize <= 0 falls back to DefaultBatchSize.
func NewBatchVerifier(signer Signer, batchSize int) *BatchVerifier2 {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize()
	}
	return &BatchVerifier2{signer: signer, batchSize: batchSize}
}

func (b *BatchVerifier2) BatchVerify(items []VerifyItem) []bool {
	results := make([]bool, len(items))
	sem := semaphore.NewWeighted(int64(b.batchSize))
	var wg sync.WaitGroup
	ctx := context.Background()

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context is never cancelled here; unreachable in practice,
			// but fail closed rather than skip the item silently.
			results[i] = false
			continue
		}
		wg.Add(1)
		go func(i int, item VerifyItem) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = b.signer.Verify(item.Pub, item.Msg, item.Sig)
		}(i, item)
	}
	wg.Wait()
	return results
}
