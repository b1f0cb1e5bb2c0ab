// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scrypto_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/scrypto"
)

// p256Curve expresses the NIST P-256 parameters as an explicit curve. The
// verifier treats every curve as fully explicit, so any curve with a = -3
// doubles as a cross-check against the standard library signer.
func p256Curve() scrypto.ECCurve {
	p := elliptic.P256().Params()
	a := new(big.Int).Sub(p.P, big.NewInt(3))
	return scrypto.ECCurve{P: p.P, A: a, B: p.B, Gx: p.Gx, Gy: p.Gy, N: p.N}
}

func TestVerifyECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pub := &scrypto.ECPublicKey{Curve: p256Curve(), X: key.X, Y: key.Y}

	message := []byte("challenge and friends")
	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)

	// build the plain r||s form a terminal would send
	plain := make([]byte, 64)
	r.FillBytes(plain[:32])
	s.FillBytes(plain[32:])

	sig, err := scrypto.ReshapeECDSASignature(plain)
	require.NoError(t, err)

	outcome, err := scrypto.Verify(scrypto.ECDSASHA256, pub, message, sig)
	require.NoError(t, err)
	assert.Equal(t, scrypto.OutcomeOK, outcome)

	outcome, err = scrypto.Verify(scrypto.ECDSASHA256, pub, []byte("other"), sig)
	require.NoError(t, err)
	assert.Equal(t, scrypto.OutcomeBadSignature, outcome)

	// garbage instead of an ASN.1 structure
	outcome, err = scrypto.Verify(scrypto.ECDSASHA256, pub, message, plain[:7])
	require.NoError(t, err)
	assert.Equal(t, scrypto.OutcomeBadSignature, outcome)

	// a point off the curve is a crypto failure, not a bad signature
	bad := &scrypto.ECPublicKey{Curve: p256Curve(), X: big.NewInt(1), Y: big.NewInt(1)}
	outcome, err = scrypto.Verify(scrypto.ECDSASHA256, bad, message, sig)
	assert.Error(t, err)
	assert.Equal(t, scrypto.OutcomeCryptoFailure, outcome)
}

func TestVerifyRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	message := []byte("some data to sign")
	digest := sha256.Sum256(message)

	t.Run("pkcs1v15", func(t *testing.T) {
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		require.NoError(t, err)
		outcome, err := scrypto.Verify(scrypto.RSAv15SHA256, &key.PublicKey, message, sig)
		require.NoError(t, err)
		assert.Equal(t, scrypto.OutcomeOK, outcome)
	})

	t.Run("pss", func(t *testing.T) {
		opts := &rsa.PSSOptions{SaltLength: sha256.Size, Hash: crypto.SHA256}
		sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], opts)
		require.NoError(t, err)
		outcome, err := scrypto.Verify(scrypto.RSAPSSSHA256, &key.PublicKey, message, sig)
		require.NoError(t, err)
		assert.Equal(t, scrypto.OutcomeOK, outcome)
	})

	t.Run("wrong key type", func(t *testing.T) {
		outcome, err := scrypto.Verify(scrypto.RSAv15SHA256, "not a key", message, nil)
		assert.Error(t, err)
		assert.Equal(t, scrypto.OutcomeCryptoFailure, outcome)
	})
}

func TestReshapeECDSASignature(t *testing.T) {
	_, err := scrypto.ReshapeECDSASignature([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
	_, err = scrypto.ReshapeECDSASignature(nil)
	assert.Error(t, err)

	// leading zeros must not flip the sign of the restored integers
	raw := make([]byte, 64)
	raw[0], raw[32] = 0xFF, 0xFF
	sig, err := scrypto.ReshapeECDSASignature(raw)
	require.NoError(t, err)
	// 0xFF... needs a leading zero octet in DER, so each INTEGER is 33 bytes
	assert.Equal(t, byte(0x30), sig[0])
	assert.Len(t, sig, 2+2*(2+33))
}

func TestAlgorithmHash(t *testing.T) {
	h, err := scrypto.ECDSASHA384.Hash()
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA384, h)
	_, err = scrypto.Algorithm(0).Hash()
	assert.Error(t, err)
}
