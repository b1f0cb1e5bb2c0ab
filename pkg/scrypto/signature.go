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

// Package scrypto provides the signature verification primitives used by
// terminal authentication. RSA signatures are verified as-is; ECDSA
// signatures arrive as the plain concatenation r||s and are reshaped into
// the ASN.1 SEQUENCE form the verifier expects.
package scrypto

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// Algorithm identifies a terminal authentication signature algorithm.
type Algorithm int

// The algorithms of TR-03110 part 3 A.1.1.3.
const (
	RSAv15SHA1 Algorithm = iota + 1
	RSAv15SHA256
	RSAv15SHA512
	RSAPSSSHA1
	RSAPSSSHA256
	RSAPSSSHA512
	ECDSASHA1
	ECDSASHA224
	ECDSASHA256
	ECDSASHA384
	ECDSASHA512
)

func (a Algorithm) String() string {
	switch a {
	case RSAv15SHA1:
		return "RSA-v1.5-SHA-1"
	case RSAv15SHA256:
		return "RSA-v1.5-SHA-256"
	case RSAv15SHA512:
		return "RSA-v1.5-SHA-512"
	case RSAPSSSHA1:
		return "RSA-PSS-SHA-1"
	case RSAPSSSHA256:
		return "RSA-PSS-SHA-256"
	case RSAPSSSHA512:
		return "RSA-PSS-SHA-512"
	case ECDSASHA1:
		return "ECDSA-SHA-1"
	case ECDSASHA224:
		return "ECDSA-SHA-224"
	case ECDSASHA256:
		return "ECDSA-SHA-256"
	case ECDSASHA384:
		return "ECDSA-SHA-384"
	case ECDSASHA512:
		return "ECDSA-SHA-512"
	default:
		return "unknown"
	}
}

// IsECDSA reports whether the algorithm is an ECDSA variant.
func (a Algorithm) IsECDSA() bool {
	switch a {
	case ECDSASHA1, ECDSASHA224, ECDSASHA256, ECDSASHA384, ECDSASHA512:
		return true
	}
	return false
}

// Hash returns the hash function of the algorithm.
func (a Algorithm) Hash() (crypto.Hash, error) {
	switch a {
	case RSAv15SHA1, RSAPSSSHA1, ECDSASHA1:
		return crypto.SHA1, nil
	case ECDSASHA224:
		return crypto.SHA224, nil
	case RSAv15SHA256, RSAPSSSHA256, ECDSASHA256:
		return crypto.SHA256, nil
	case ECDSASHA384:
		return crypto.SHA384, nil
	case RSAv15SHA512, RSAPSSSHA512, ECDSASHA512:
		return crypto.SHA512, nil
	default:
		return 0, serrors.New("unknown algorithm", "algorithm", int(a))
	}
}

// Outcome is the result of a signature verification.
type Outcome int

const (
	// OutcomeOK means the signature verified.
	OutcomeOK Outcome = iota
	// OutcomeBadSignature means the signature did not match the data.
	OutcomeBadSignature
	// OutcomeCryptoFailure means verification could not be attempted, e.g.
	// because of a key/algorithm mismatch. The accompanying error carries
	// the detail.
	OutcomeCryptoFailure
)

// Verify checks signature over message with the given algorithm and public
// key. The key must be a *rsa.PublicKey or *ECPublicKey matching the
// algorithm family. ECDSA signatures must already be in ASN.1 form, see
// ReshapeECDSASignature.
func Verify(algo Algorithm, key any, message, signature []byte) (Outcome, error) {
	hash, err := algo.Hash()
	if err != nil {
		return OutcomeCryptoFailure, err
	}
	h := hash.New()
	h.Write(message)
	digest := h.Sum(nil)

	switch algo {
	case RSAv15SHA1, RSAv15SHA256, RSAv15SHA512:
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return OutcomeCryptoFailure, serrors.New("key type mismatch", "algorithm", algo)
		}
		if err := rsa.VerifyPKCS1v15(pub, hash, digest, signature); err != nil {
			return OutcomeBadSignature, nil
		}
		return OutcomeOK, nil
	case RSAPSSSHA1, RSAPSSSHA256, RSAPSSSHA512:
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return OutcomeCryptoFailure, serrors.New("key type mismatch", "algorithm", algo)
		}
		opts := &rsa.PSSOptions{SaltLength: hash.Size(), Hash: hash}
		if err := rsa.VerifyPSS(pub, hash, digest, signature, opts); err != nil {
			return OutcomeBadSignature, nil
		}
		return OutcomeOK, nil
	case ECDSASHA1, ECDSASHA224, ECDSASHA256, ECDSASHA384, ECDSASHA512:
		pub, ok := key.(*ECPublicKey)
		if !ok {
			return OutcomeCryptoFailure, serrors.New("key type mismatch", "algorithm", algo)
		}
		r, s, err := parseECDSASignature(signature)
		if err != nil {
			return OutcomeBadSignature, nil
		}
		ok, err = verifyECDSA(pub, digest, r, s)
		if err != nil {
			return OutcomeCryptoFailure, err
		}
		if !ok {
			return OutcomeBadSignature, nil
		}
		return OutcomeOK, nil
	default:
		return OutcomeCryptoFailure, serrors.New("unknown algorithm", "algorithm", int(algo))
	}
}

// ReshapeECDSASignature wraps a plain r||s signature into the ASN.1
// SEQUENCE of two INTEGERs form. The input must have even length; each half
// is interpreted as an unsigned big-endian integer.
func ReshapeECDSASignature(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, serrors.New("plain signature must have even length", "len", len(raw))
	}
	half := len(raw) / 2
	r := new(big.Int).SetBytes(raw[:half])
	s := new(big.Int).SetBytes(raw[half:])
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

func parseECDSASignature(sig []byte) (*big.Int, *big.Int, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, cryptobyte_asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, serrors.New("invalid ASN.1 signature structure")
	}
	return r, s, nil
}
