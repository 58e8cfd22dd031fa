// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pqcrypto implements the cryptographic collaborator contract of
// content hashing, post-quantum signatures, and post-quantum key
// encapsulation. The CORE never implements primitives itself — it consumes
// them through these interfaces so that algorithm agility is a
// matter of swapping the concrete type, not touching call sites.
package pqcrypto

// Hasher computes BLAKE3 digests, plain and keyed.
type Hasher interface {
	// Hash returns BLAKE3(bytes).
	Hash(data []byte) [32]byte
	// KeyedHash returns BLAKE3(key, bytes), for domain-separated digests.
	// No caller in this module uses it; the Merkle root and content
	// hashes use Hash.
	KeyedHash(key [32]byte, data []byte) [32]byte
}

// Signer implements ML-DSA-87.
type Signer interface {
	// GenerateKey returns a fresh keypair.
	GenerateKey() (pub, priv []byte, err error)
	// Sign signs msg with priv.
	Sign(priv, msg []byte) (sig []byte, err error)
	// Verify reports whether sig is a valid ML-DSA-87 signature over msg
	// under pub.
	Verify(pub, msg, sig []byte) bool
}

// KEM implements ML-KEM-768.
type KEM interface {
	// GenerateKey returns a fresh KEM keypair.
	GenerateKey() (pub, priv []byte, err error)
	// Encapsulate derives a shared secret and the ciphertext that carries
	// it, under the peer's public key.
	Encapsulate(pub []byte) (ciphertext, sharedSecret []byte, err error)
	// Decapsulate recovers the shared secret from ciphertext using priv.
	Decapsulate(priv, ciphertext []byte) (sharedSecret []byte, err error)
}

// VerifyItem is one (message, signature, public key) tuple submitted to a
// batch verification call.
type VerifyItem struct {
	Msg []byte
	Sig []byte
	Pub []byte
}

// BatchVerifier verifies many signatures and reports per-item validity,
// matching the batch-verify contract and the requirement that
// batches preserve per-item diagnostics (no early exit on first failure).
type BatchVerifier interface {
	BatchVerify(items []VerifyItem) []bool
}
