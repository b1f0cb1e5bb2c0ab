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

package scrypto

import (
	"math/big"

	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// ECCurve is a short Weierstrass curve y² = x³ + ax + b over GF(p) with
// explicit domain parameters. Unlike the standard library curves, the a
// coefficient is arbitrary, which is required for the brainpool curves used
// with card-verifiable certificates.
type ECCurve struct {
	P  *big.Int // field prime
	A  *big.Int // curve coefficient a
	B  *big.Int // curve coefficient b
	Gx *big.Int // base point
	Gy *big.Int
	N  *big.Int // base point order
}

// ECPublicKey is a public point on an explicit curve.
type ECPublicKey struct {
	Curve ECCurve
	X     *big.Int
	Y     *big.Int
}

func (c ECCurve) valid() error {
	if c.P == nil || c.A == nil || c.B == nil || c.Gx == nil || c.Gy == nil || c.N == nil {
		return serrors.New("incomplete curve parameters")
	}
	if c.P.Sign() <= 0 || c.N.Sign() <= 0 {
		return serrors.New("degenerate curve parameters")
	}
	return nil
}

// onCurve reports whether (x, y) satisfies the curve equation.
func (c ECCurve) onCurve(x, y *big.Int) bool {
	left := new(big.Int).Mul(y, y)
	left.Mod(left, c.P)
	right := new(big.Int).Mul(x, x)
	right.Mul(right, x)
	ax := new(big.Int).Mul(c.A, x)
	right.Add(right, ax)
	right.Add(right, c.B)
	right.Mod(right, c.P)
	return left.Cmp(right) == 0
}

// point is an affine point; x == nil encodes the point at infinity.
type point struct {
	x, y *big.Int
}

func (c ECCurve) add(p, q point) point {
	if p.x == nil {
		return q
	}
	if q.x == nil {
		return p
	}
	if p.x.Cmp(q.x) == 0 {
		sum := new(big.Int).Add(p.y, q.y)
		sum.Mod(sum, c.P)
		if sum.Sign() == 0 {
			return point{}
		}
		return c.double(p)
	}
	// lambda = (qy - py) / (qx - px)
	num := new(big.Int).Sub(q.y, p.y)
	den := new(big.Int).Sub(q.x, p.x)
	den.ModInverse(den, c.P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, c.P)
	return c.fromLambda(lambda, p, q)
}

func (c ECCurve) double(p point) point {
	if p.x == nil || p.y.Sign() == 0 {
		return point{}
	}
	// lambda = (3px² + a) / (2py)
	num := new(big.Int).Mul(p.x, p.x)
	num.Mul(num, big.NewInt(3))
	num.Add(num, c.A)
	den := new(big.Int).Lsh(p.y, 1)
	den.ModInverse(den, c.P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, c.P)
	return c.fromLambda(lambda, p, p)
}

func (c ECCurve) fromLambda(lambda *big.Int, p, q point) point {
	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, p.x)
	x.Sub(x, q.x)
	x.Mod(x, c.P)
	y := new(big.Int).Sub(p.x, x)
	y.Mul(y, lambda)
	y.Sub(y, p.y)
	y.Mod(y, c.P)
	return point{x: x, y: y}
}

func (c ECCurve) scalarMult(p point, k *big.Int) point {
	r := point{}
	for i := k.BitLen() - 1; i >= 0; i-- {
		r = c.double(r)
		if k.Bit(i) == 1 {
			r = c.add(r, p)
		}
	}
	return r
}

// verifyECDSA runs the ECDSA verification equation over the explicit curve.
func verifyECDSA(pub *ECPublicKey, digest []byte, r, s *big.Int) (bool, error) {
	c := pub.Curve
	if err := c.valid(); err != nil {
		return false, err
	}
	if pub.X == nil || pub.Y == nil || !c.onCurve(pub.X, pub.Y) {
		return false, serrors.New("public point not on curve")
	}
	if r.Sign() <= 0 || r.Cmp(c.N) >= 0 || s.Sign() <= 0 || s.Cmp(c.N) >= 0 {
		return false, nil
	}
	e := hashToInt(digest, c.N)
	w := new(big.Int).ModInverse(s, c.N)
	if w == nil {
		return false, nil
	}
	u1 := new(big.Int).Mul(e, w)
	u1.Mod(u1, c.N)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, c.N)
	sum := c.add(
		c.scalarMult(point{x: c.Gx, y: c.Gy}, u1),
		c.scalarMult(point{x: pub.X, y: pub.Y}, u2),
	)
	if sum.x == nil {
		return false, nil
	}
	v := new(big.Int).Mod(sum.x, c.N)
	return v.Cmp(r) == 0, nil
}

// hashToInt converts the digest to an integer, truncated to the bit length
// of the group order as required by ECDSA.
func hashToInt(digest []byte, n *big.Int) *big.Int {
	orderBits := n.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(digest) > orderBytes {
		digest = digest[:orderBytes]
	}
	e := new(big.Int).SetBytes(digest)
	if excess := len(digest)*8 - orderBits; excess > 0 {
		e.Rsh(e, uint(excess))
	}
	return e
}
