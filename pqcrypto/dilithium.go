// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pqcrypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/sign/dilithium/mode5"
)

// DilithiumSigner implements ML-DSA-87 using circl's Dilithium mode5, the
// NIST category-5 parameter set FIPS 204 standardized as ML-DSA-87. circl is
// an indirect dependency elsewhere in the module graph (pulled in transitively
// through its crypto stack); it is the only post-quantum signature library
// present anywhere in the retrieval pack, so it is promoted to a direct
// dependency here rather than hand-rolled.
type DilithiumSigner struct{}

var _ Signer = DilithiumSigner{}

// NewDilithiumSigner returns the default Signer.
func NewDilithiumSigner() DilithiumSigner {
	return DilithiumSigner{}
}

func (DilithiumSigner) GenerateKey() (pub, priv []byte, err error) {
	pk, sk, err := mode5.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return pubBytes, privBytes, nil
}

func (DilithiumSigner) Sign(priv, msg []byte) ([]byte, error) {
	var sk mode5.PrivateKey
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, err
	}
	sig := make([]byte, mode5.SignatureSize)
	mode5.SignTo(&sk, msg, sig)
	return sig, nil
}

func (DilithiumSigner) Verify(pub, msg, sig []byte) bool {
	var pk mode5.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false
	}
	return mode5.Verify(&pk, msg, sig)
}
