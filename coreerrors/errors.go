// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coreerrors enumerates the error kinds the CORE distinguishes
// as sentinel errors wrapped with github.com/cockroachdb/errors,
// which preserves a stack trace at the point of first wrap without forcing
// every caller to build one by hand.
package coreerrors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Callers match with errors.Is; subsystems wrap these with
// errors.Wrapf to attach context (which vertex, which sequence) without
// losing the ability to match on kind.
var (
	// ErrInvalidVertex is structural malformation: missing parent, stale
	// parent, or a hash mismatch.
	ErrInvalidVertex = errors.New("invalid vertex")

	// ErrCycleDetected reports that admitting an edge set would close a
	// cycle in the DAG.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrInvalidSignature reports a signature verification failure. Every
	// occurrence must trigger a reputation violation at the call site.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidView reports that a message names a view older than the
	// local current view. Dropped silently by convention; logged at debug.
	ErrInvalidView = errors.New("invalid view")

	// ErrQuorumNotReached reports a timeout waiting for a Prepare/Commit
	// quorum; triggers a view change.
	ErrQuorumNotReached = errors.New("quorum not reached")

	// ErrForkNotResolved reports that reconciliation produced
	// ManualIntervention; surfaced to the operator, never silently retried.
	ErrForkNotResolved = errors.New("fork not resolved: manual intervention required")

	// ErrThrottled reports that the pending-proposal queue is full; the
	// caller may retry later and must not treat this as a hard failure.
	ErrThrottled = errors.New("throttled")

	// ErrCancelled reports that an awaiting caller's completion was
	// cancelled by shutdown or timeout, with no state mutation.
	ErrCancelled = errors.New("cancelled")

	// ErrSyncFailed reports that state sync aborted; local state is
	// unchanged.
	ErrSyncFailed = errors.New("sync failed")

	// ErrNoBackupPeers reports that peer recovery has no backup to
	// promote; degraded mode deepens.
	ErrNoBackupPeers = errors.New("no backup peers available")

	// ErrInternal reports an invariant violation: fatal to the current
	// round, not to the process.
	ErrInternal = errors.New("internal invariant violation")
)

// Wrap attaches msg as context to a sentinel kind while preserving errors.Is
// matching and the cockroachdb/errors stack trace.
func Wrap(kind error, msg string) error {
	return errors.Wrapf(kind, "%s", msg)
}

// Is reports whether err ultimately wraps kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
