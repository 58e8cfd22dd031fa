// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"github.com/meridianbft/consensus/coreerrors"
)

// ErrNotLeader reports that a PrePrepare arrived from a node that is not
// the leader of the message's view.
var ErrNotLeader = coreerrors.Wrap(coreerrors.ErrInvalidVertex, "sender is not leader of view")

// ErrStaleView reports that a message names a view older than the local
// current view.
var ErrStaleView = coreerrors.ErrInvalidView

// ErrUnknownSequence reports a Prepare/Commit for a sequence with no
// matching PrePrepare yet observed.
var ErrUnknownSequence = coreerrors.Wrap(coreerrors.ErrInternal, "no pre-prepare for sequence")

// ErrEquivocation reports that a node voted for two different vertex
// hashes at the same (view, sequence) — the canonical Byzantine tell.
var ErrEquivocation = coreerrors.Wrap(coreerrors.ErrInvalidSignature, "equivocation detected")

// ErrReplay reports a message rejected by the replay window.
var ErrReplay = coreerrors.Wrap(coreerrors.ErrInternal, "replayed message rejected")

// ErrInvalidSignature reports a message whose signature did not verify.
var ErrInvalidSignature = coreerrors.ErrInvalidSignature

// ErrUnknownVoter reports a vote from a node outside the validator set.
var ErrUnknownVoter = coreerrors.Wrap(coreerrors.ErrInternal, "vote from unknown node")
