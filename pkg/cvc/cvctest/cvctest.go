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

// Package cvctest creates signed card-verifiable certificates for tests.
// Keys live on an explicitly parameterized P-256, signatures are ECDSA with
// SHA-256 in the plain r||s format of TR-03110.
package cvctest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/tlv"
)

// Template describes the certificate to build.
type Template struct {
	CAR             cvc.Reference
	CHR             cvc.Reference
	TerminalTypeOid cvc.Oid
	// Authorization is the relative authorization including the role bits
	// in the first byte.
	Authorization []byte
	Effective     time.Time
	Expiration    time.Time
	// IncludeDomainParameters controls whether the public key carries the
	// full curve. CVCA certificates carry it, DV and terminal certificates
	// inherit.
	IncludeDomainParameters bool
	// SectorHashes, if non-nil, adds a sector extension. Index 0 goes to
	// tag 0x80, index 1 to tag 0x81; nil entries are skipped.
	SectorHashes [2][]byte
	AddSector    bool
}

// NewKey generates a P-256 key.
func NewKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

// Build creates a certificate over the holder key, signed by the signer key.
// Pass the holder key as signer to self-sign.
func Build(t *testing.T, tmpl Template, holder *ecdsa.PrivateKey,
	signer *ecdsa.PrivateKey) *cvc.Certificate {

	t.Helper()
	body := buildBody(tmpl, &holder.PublicKey)
	bodyRaw := body.Encode()

	digest := sha256.Sum256(bodyRaw)
	r, s, err := ecdsa.Sign(rand.Reader, signer, digest[:])
	require.NoError(t, err)
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])

	outer := tlv.EncodeRaw(tlv.TagCVCertificate,
		append(bodyRaw, tlv.NewPrimitive(tlv.TagSignature, sig).Encode()...))
	cert, err := cvc.ParseBytes(outer)
	require.NoError(t, err)
	return cert
}

func buildBody(tmpl Template, pub *ecdsa.PublicKey) tlv.Object {
	children := []tlv.Object{
		tlv.NewPrimitive(0x5F29, []byte{0x00}),
		tlv.NewPrimitive(0x42, []byte(tmpl.CAR)),
		buildPublicKey(tmpl, pub),
		tlv.NewPrimitive(0x5F20, []byte(tmpl.CHR)),
		tlv.NewConstructed(0x7F4C,
			tlv.NewPrimitive(tlv.TagOID, tmpl.TerminalTypeOid.Bytes()),
			tlv.NewPrimitive(tlv.TagDiscretionaryData, tmpl.Authorization),
		),
		tlv.NewPrimitive(0x5F25, cvc.EncodeDate(tmpl.Effective)),
		tlv.NewPrimitive(0x5F24, cvc.EncodeDate(tmpl.Expiration)),
	}
	if tmpl.AddSector {
		ddt := []tlv.Object{tlv.NewPrimitive(tlv.TagOID, cvc.OidSector.Bytes())}
		if tmpl.SectorHashes[0] != nil {
			ddt = append(ddt, tlv.NewPrimitive(0x80, tmpl.SectorHashes[0]))
		}
		if tmpl.SectorHashes[1] != nil {
			ddt = append(ddt, tlv.NewPrimitive(0x81, tmpl.SectorHashes[1]))
		}
		children = append(children, tlv.NewConstructed(0x65,
			tlv.NewConstructed(0x73, ddt...)))
	}
	return tlv.NewConstructed(tlv.TagCertificateBody, children...)
}

func buildPublicKey(tmpl Template, pub *ecdsa.PublicKey) tlv.Object {
	children := []tlv.Object{
		tlv.NewPrimitive(tlv.TagOID, cvc.OidTAECDSASHA256.Bytes()),
	}
	params := elliptic.P256().Params()
	if tmpl.IncludeDomainParameters {
		a := new(big.Int).Sub(params.P, big.NewInt(3))
		children = append(children,
			tlv.NewPrimitive(0x81, params.P.Bytes()),
			tlv.NewPrimitive(0x82, a.Bytes()),
			tlv.NewPrimitive(0x83, params.B.Bytes()),
			tlv.NewPrimitive(0x84, marshalPoint(params.Gx, params.Gy, params.P)),
			tlv.NewPrimitive(0x85, params.N.Bytes()),
		)
	}
	children = append(children,
		tlv.NewPrimitive(0x86, marshalPoint(pub.X, pub.Y, params.P)))
	if tmpl.IncludeDomainParameters {
		children = append(children, tlv.NewPrimitive(0x87, []byte{0x01}))
	}
	return tlv.NewConstructed(0x7F49, children...)
}

func marshalPoint(x, y, p *big.Int) []byte {
	byteLen := (p.BitLen() + 7) / 8
	out := make([]byte, 1+2*byteLen)
	out[0] = 0x04
	x.FillBytes(out[1 : 1+byteLen])
	y.FillBytes(out[1+byteLen:])
	return out
}

// SignPlain signs a message with the plain r||s format a terminal uses for
// External Authenticate.
func SignPlain(t *testing.T, key *ecdsa.PrivateKey, message []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig
}
