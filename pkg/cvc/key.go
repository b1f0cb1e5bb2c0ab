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

package cvc

import (
	"crypto/rsa"
	"math/big"

	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/pkg/scrypto"
	"github.com/eidsim/eidsim/pkg/tlv"
)

// Context tags of the 0x7F49 public key data object.
const (
	tagECPrime     tlv.Tag = 0x81
	tagECA         tlv.Tag = 0x82
	tagECB         tlv.Tag = 0x83
	tagECBasePoint tlv.Tag = 0x84
	tagECOrder     tlv.Tag = 0x85
	tagECPoint     tlv.Tag = 0x86
	tagECCofactor  tlv.Tag = 0x87

	tagRSAModulus  tlv.Tag = 0x81
	tagRSAExponent tlv.Tag = 0x82
)

// PublicKey is the public key of a certificate holder together with the
// signature mechanism identifier it is used with. DV and terminal
// certificates omit the elliptic curve domain parameters; they are inherited
// from the issuer via Inherit before the key is usable.
type PublicKey struct {
	Oid Oid

	// Elliptic curve domain parameters and public point. The point is in
	// uncompressed 0x04||X||Y form. Parameters are nil when inherited.
	Prime     *big.Int
	A         *big.Int
	B         *big.Int
	BasePoint []byte
	Order     *big.Int
	Cofactor  *big.Int
	Point     []byte

	// RSA parameters.
	Modulus  *big.Int
	Exponent *big.Int
}

func parsePublicKey(obj tlv.Object) (*PublicKey, error) {
	oidRaw := obj.ChildValue(tlv.TagOID)
	if oidRaw == nil {
		return nil, serrors.New("missing mechanism identifier")
	}
	oid, err := ParseTAOid(oidRaw)
	if err != nil {
		return nil, err
	}
	algo, _ := oid.Algorithm()
	key := &PublicKey{Oid: oid}
	if algo.IsECDSA() {
		key.Prime = bigInt(obj, tagECPrime)
		key.A = bigInt(obj, tagECA)
		key.B = bigInt(obj, tagECB)
		key.BasePoint = obj.ChildValue(tagECBasePoint)
		key.Order = bigInt(obj, tagECOrder)
		key.Cofactor = bigInt(obj, tagECCofactor)
		key.Point = obj.ChildValue(tagECPoint)
		if key.Point == nil {
			return nil, serrors.New("missing public point")
		}
		return key, nil
	}
	key.Modulus = bigInt(obj, tagRSAModulus)
	key.Exponent = bigInt(obj, tagRSAExponent)
	if key.Modulus == nil || key.Exponent == nil {
		return nil, serrors.New("missing RSA parameters")
	}
	return key, nil
}

func bigInt(obj tlv.Object, tag tlv.Tag) *big.Int {
	v := obj.ChildValue(tag)
	if v == nil {
		return nil
	}
	return new(big.Int).SetBytes(v)
}

// Inherit fills in domain parameters that the certificate omitted from the
// issuer key. The public point and mechanism identifier are never taken from
// the issuer.
func (k *PublicKey) Inherit(issuer *PublicKey) {
	if issuer == nil {
		return
	}
	if k.Prime == nil {
		k.Prime = issuer.Prime
	}
	if k.A == nil {
		k.A = issuer.A
	}
	if k.B == nil {
		k.B = issuer.B
	}
	if k.BasePoint == nil {
		k.BasePoint = issuer.BasePoint
	}
	if k.Order == nil {
		k.Order = issuer.Order
	}
	if k.Cofactor == nil {
		k.Cofactor = issuer.Cofactor
	}
}

// IsEC reports whether the key is an elliptic curve key.
func (k *PublicKey) IsEC() bool {
	algo, err := k.Oid.Algorithm()
	return err == nil && algo.IsECDSA()
}

// Key builds the verifier key: *scrypto.ECPublicKey or *rsa.PublicKey.
func (k *PublicKey) Key() (any, error) {
	if !k.IsEC() {
		if k.Modulus == nil || k.Exponent == nil {
			return nil, serrors.New("incomplete RSA key")
		}
		if !k.Exponent.IsInt64() {
			return nil, serrors.New("RSA exponent out of range")
		}
		return &rsa.PublicKey{N: k.Modulus, E: int(k.Exponent.Int64())}, nil
	}
	if k.Prime == nil || k.A == nil || k.B == nil || k.BasePoint == nil || k.Order == nil {
		return nil, serrors.New("incomplete curve parameters")
	}
	gx, gy, err := unmarshalPoint(k.BasePoint, k.Prime)
	if err != nil {
		return nil, serrors.Wrap("decoding base point", err)
	}
	x, y, err := unmarshalPoint(k.Point, k.Prime)
	if err != nil {
		return nil, serrors.Wrap("decoding public point", err)
	}
	return &scrypto.ECPublicKey{
		Curve: scrypto.ECCurve{
			P: k.Prime, A: k.A, B: k.B,
			Gx: gx, Gy: gy, N: k.Order,
		},
		X: x,
		Y: y,
	}, nil
}

func unmarshalPoint(raw []byte, p *big.Int) (*big.Int, *big.Int, error) {
	byteLen := (p.BitLen() + 7) / 8
	if len(raw) != 1+2*byteLen || raw[0] != 0x04 {
		return nil, nil, serrors.New("not an uncompressed point", "len", len(raw))
	}
	x := new(big.Int).SetBytes(raw[1 : 1+byteLen])
	y := new(big.Int).SetBytes(raw[1+byteLen:])
	return x, y, nil
}
