// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statesync

import (
	"context"

	"github.com/cenkalti/backoff"

	"github.com/meridianbft/consensus/coreerrors"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/pqcrypto"
)

// ErrSyncFailed reports that sync_with_peer aborted:
// local state is unchanged.
var ErrSyncFailed = coreerrors.ErrSyncFailed

// PeerClient is the transport-facing collaborator sync_with_peer needs:
// fetching the peer's current snapshot digest and individual vertices by
// hash.
type PeerClient interface {
	RequestSnapshot(ctx context.Context) (Snapshot, error)
	RequestVertex(ctx context.Context, hash ids.ID) (*dag.Vertex, error)
}

// SyncWithPeer exchanges snapshot digests with peer and, on mismatch,
// fetches every vertex the local store is missing, validating each on
// arrival. Fetched vertices are staged and only inserted
// into store once every one of them has been retrieved and validated —
// so a timeout partway through leaves store untouched, matching "on
// timeout returns SyncFailed without mutating state".
func SyncWithPeer(ctx context.Context, store *dag.Store, client PeerClient, hasher pqcrypto.Hasher, local Snapshot) error {
	remote, err := client.RequestSnapshot(ctx)
	if err != nil {
		return ErrSyncFailed
	}
	if remote.MerkleRoot == local.MerkleRoot {
		return nil
	}

	missing := make([]ids.ID, 0)
	for _, h := range remote.FinalizedHashes {
		if _, ok := store.GetVertex(h); !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	staged := make([]*dag.Vertex, 0, len(missing))
	for _, h := range missing {
		v, err := fetchWithRetry(ctx, client, hasher, h)
		if err != nil {
			return ErrSyncFailed
		}
		staged = append(staged, v)
	}

	for _, v := range staged {
		if err := store.AddVertex(v); err != nil && !coreerrors.Is(err, dag.ErrAlreadyExists) {
			return ErrSyncFailed
		}
	}
	return nil
}

func fetchWithRetry(ctx context.Context, client PeerClient, hasher pqcrypto.Hasher, hash ids.ID) (*dag.Vertex, error) {
	var v *dag.Vertex
	op := func() error {
		fetched, err := client.RequestVertex(ctx, hash)
		if err != nil {
			return err
		}
		if !fetched.VerifyHash(hasher) {
			// A vertex that fails hash validation is a permanent failure
			// for this peer, not a transient one — retrying the same
			// request would return the same bytes.
			return backoff.Permanent(dag.ErrHashMismatch)
		}
		v = fetched
		return nil
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return v, nil
}
