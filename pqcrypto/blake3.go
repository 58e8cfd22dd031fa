// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pqcrypto

import (
	"github.com/zeebo/blake3"
)

// Blake3Hasher is the default Hasher, backed by github.com/zeebo/blake3 —
// already an indirect dependency elsewhere in the module graph, promoted to direct
// use here because every vertex content_hash and snapshot Merkle root goes
// through it.
type Blake3Hasher struct{}

var _ Hasher = Blake3Hasher{}

// NewBlake3Hasher returns the default Hasher.
func NewBlake3Hasher() Blake3Hasher {
	return Blake3Hasher{}
}

func (Blake3Hasher) Hash(data []byte) [32]byte {
	h := blake3.New()
	_, _ = h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (Blake3Hasher) KeyedHash(key [32]byte, data []byte) [32]byte {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a key of the wrong length, which cannot
		// happen for a [32]byte; treat as unreachable rather than return
		// a zero hash that callers might mistake for a real digest.
		panic("pqcrypto: blake3 keyed hash: " + err.Error())
	}
	_, _ = h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
