// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pqcrypto

import (
	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

// KyberKEM implements ML-KEM-768 using circl's Kyber768, the parameter set
// FIPS 203 standardized as ML-KEM-768. Used by the transport contract's
// out-of-band certificate extension to establish a
// confidential channel before any protocol message is accepted.
type KyberKEM struct{}

var _ KEM = KyberKEM{}

// NewKyberKEM returns the default KEM.
func NewKyberKEM() KyberKEM {
	return KyberKEM{}
}

func (KyberKEM) GenerateKey() (pub, priv []byte, err error) {
	scheme := kyber768.Scheme()
	pk, sk, err := scheme.GenerateKeyPair()
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

func (KyberKEM) Encapsulate(pub []byte) (ciphertext, sharedSecret []byte, err error) {
	scheme := kyber768.Scheme()
	pk, err := scheme.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, err
	}
	ct, ss, err := scheme.Encapsulate(pk)
	if err != nil {
		return nil, nil, err
	}
	return ct, ss, nil
}

func (KyberKEM) Decapsulate(priv, ciphertext []byte) (sharedSecret []byte, err error) {
	scheme := kyber768.Scheme()
	sk, err := scheme.UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return scheme.Decapsulate(sk, ciphertext)
}
