// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"github.com/meridianbft/consensus/coreerrors"
)

// ErrUnknownParent reports that add_vertex named a parent the store has
// never seen.
var ErrUnknownParent = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "unknown parent")

// ErrSelfParent reports that a vertex listed its own ID as a parent.
var ErrSelfParent = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "vertex lists itself as a parent")

// ErrTooManyParents reports that a vertex exceeds MaxParents.
var ErrTooManyParents = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "too many parents")

// ErrHashMismatch reports that content_hash disagrees with the canonical
// serialization.
var ErrHashMismatch = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "content hash mismatch")

// ErrAlreadyExists reports a duplicate vertex ID.
var ErrAlreadyExists = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "vertex already exists")

// ErrNotFound reports that a requested vertex is unknown to the store.
var ErrNotFound = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "vertex not found")

// ErrCycleDetected reports that admitting v's edges would close a cycle.
var ErrCycleDetected = coreerrors.ErrCycleDetected
