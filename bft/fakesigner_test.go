// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import "bytes"

// fakeSigner is a hand-written test double for pqcrypto.Signer: Sign
// simply echoes the message as the signature, and Verify checks that
// echo. It exercises the Engine's sign/verify call sites deterministically
// without paying for real ML-DSA-87 keygen in every test.
type fakeSigner struct{}

func (fakeSigner) GenerateKey() (pub, priv []byte, err error) {
	return []byte("pub"), []byte("priv"), nil
}

func (fakeSigner) Sign(_ []byte, msg []byte) ([]byte, error) {
	out := make([]byte, len(msg))
	copy(out, msg)
	return out, nil
}

func (fakeSigner) Verify(_ []byte, msg, sig []byte) bool {
	return bytes.Equal(msg, sig)
}
