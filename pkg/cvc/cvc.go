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

// Package cvc implements the card-verifiable certificate format of
// TR-03110 part 3, appendix C. Certificates are immutable once parsed; the
// exact signed body bytes are retained for signature verification.
package cvc

import (
	"time"

	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/pkg/tlv"
)

// Tags of the certificate profile.
const (
	tagProfileIdentifier tlv.Tag = 0x5F29
	tagCAR               tlv.Tag = 0x42
	tagPublicKey         tlv.Tag = 0x7F49
	tagCHR               tlv.Tag = 0x5F20
	tagCHAT              tlv.Tag = 0x7F4C
	tagEffectiveDate     tlv.Tag = 0x5F25
	tagExpirationDate    tlv.Tag = 0x5F24
	tagExtensions        tlv.Tag = 0x65
	tagDDT               tlv.Tag = 0x73
)

// Role is the role of the certificate holder in the CVC hierarchy, encoded
// in the two most significant bits of the relative authorization.
type Role byte

const (
	RoleTerminal   Role = 0x00
	RoleDVForeign  Role = 0x40
	RoleDVDomestic Role = 0x80
	RoleCVCA       Role = 0xC0
)

func (r Role) String() string {
	switch r {
	case RoleCVCA:
		return "CVCA"
	case RoleDVDomestic:
		return "DV (domestic)"
	case RoleDVForeign:
		return "DV (foreign)"
	case RoleTerminal:
		return "Terminal"
	default:
		return "invalid"
	}
}

// IsDV reports whether the role is one of the document verifier roles.
func (r Role) IsDV() bool {
	return r == RoleDVDomestic || r == RoleDVForeign
}

// Reference is a certification authority or certificate holder reference:
// country code, holder mnemonic and sequence number. References are opaque
// to the protocol and compared by exact equality.
type Reference string

// ParseReference checks the basic shape of a public key reference: two
// character country code, up to nine character mnemonic, five character
// sequence number, all printable ASCII.
func ParseReference(raw []byte) (Reference, error) {
	if len(raw) < 7 || len(raw) > 16 {
		return "", serrors.New("invalid reference length", "len", len(raw))
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7E {
			return "", serrors.New("reference contains non-printable bytes")
		}
	}
	return Reference(raw), nil
}

func (r Reference) String() string {
	return string(r)
}

// CHAT is the certificate holder authorization template: the terminal type
// identifier and the relative authorization bitfield. The first byte of the
// authorization carries the holder role in its top two bits.
type CHAT struct {
	TerminalTypeOid Oid
	// RelativeAuthorization is the discretionary data of the template,
	// role bits included. Never empty.
	RelativeAuthorization []byte
}

// Role returns the holder role encoded in the authorization.
func (c CHAT) Role() Role {
	return Role(c.RelativeAuthorization[0] & 0xC0)
}

func parseCHAT(obj tlv.Object) (CHAT, error) {
	oidRaw := obj.ChildValue(tlv.TagOID)
	if oidRaw == nil {
		return CHAT{}, serrors.New("missing terminal type identifier")
	}
	oid, err := ParseOid(oidRaw)
	if err != nil {
		return CHAT{}, serrors.Wrap("parsing terminal type identifier", err)
	}
	auth := obj.ChildValue(tlv.TagDiscretionaryData)
	if len(auth) == 0 {
		return CHAT{}, serrors.New("missing relative authorization")
	}
	return CHAT{TerminalTypeOid: oid, RelativeAuthorization: auth}, nil
}

// Extension is one entry of the certificate extensions sequence. Only the
// sector extension is interpreted by the protocol; everything else is
// carried opaquely.
type Extension struct {
	Oid Oid
	// Objects are the data objects of the discretionary data template,
	// the identifier excluded.
	Objects []tlv.Object
	// Raw is the complete encoded template.
	Raw tlv.Object
}

// Find returns the value of the first data object with the given tag, or
// nil.
func (e Extension) Find(tag tlv.Tag) []byte {
	for _, o := range e.Objects {
		if o.Tag == tag {
			return o.Value
		}
	}
	return nil
}

// Certificate is a parsed card-verifiable certificate.
type Certificate struct {
	// BodyRaw is the exact byte sequence covered by the signature.
	BodyRaw []byte
	// Signature is the raw signature, plain r||s for ECDSA issuers.
	Signature []byte

	ProfileIdentifier int
	CAR               Reference
	CHR               Reference
	PublicKey         *PublicKey
	CHAT              CHAT
	EffectiveDate     time.Time
	ExpirationDate    time.Time
	Extensions        []Extension
}

// Role is a shorthand for the role carried in the CHAT.
func (c *Certificate) Role() Role {
	return c.CHAT.Role()
}

// SectorExtension returns the sector extension, or false if the certificate
// does not carry one.
func (c *Certificate) SectorExtension() (Extension, bool) {
	for _, ext := range c.Extensions {
		if ext.Oid == OidSector {
			return ext, true
		}
	}
	return Extension{}, false
}

// Encode returns the full certificate encoding under tag 0x7F21. The signed
// body bytes are carried over verbatim.
func (c *Certificate) Encode() []byte {
	content := append([]byte{}, c.BodyRaw...)
	content = append(content, tlv.NewPrimitive(tlv.TagSignature, c.Signature).Encode()...)
	return tlv.EncodeRaw(tlv.TagCVCertificate, content)
}

// Parse decodes a certificate from its outer 0x7F21 data object.
func Parse(obj tlv.Object) (*Certificate, error) {
	if obj.Tag != tlv.TagCVCertificate {
		return nil, serrors.New("unexpected outer tag", "tag", obj.Tag)
	}
	body, ok := obj.Child(tlv.TagCertificateBody)
	if !ok {
		return nil, serrors.New("missing certificate body")
	}
	sig, ok := obj.Child(tlv.TagSignature)
	if !ok {
		return nil, serrors.New("missing signature")
	}
	cert := &Certificate{
		BodyRaw:   body.Encode(),
		Signature: sig.Value,
	}

	profile := body.ChildValue(tagProfileIdentifier)
	if len(profile) != 1 {
		return nil, serrors.New("invalid profile identifier")
	}
	cert.ProfileIdentifier = int(profile[0])

	var err error
	if cert.CAR, err = ParseReference(body.ChildValue(tagCAR)); err != nil {
		return nil, serrors.Wrap("parsing CAR", err)
	}
	if cert.CHR, err = ParseReference(body.ChildValue(tagCHR)); err != nil {
		return nil, serrors.Wrap("parsing CHR", err)
	}

	keyObj, ok := body.Child(tagPublicKey)
	if !ok {
		return nil, serrors.New("missing public key")
	}
	if cert.PublicKey, err = parsePublicKey(keyObj); err != nil {
		return nil, serrors.Wrap("parsing public key", err)
	}

	chatObj, ok := body.Child(tagCHAT)
	if !ok {
		return nil, serrors.New("missing holder authorization template")
	}
	if cert.CHAT, err = parseCHAT(chatObj); err != nil {
		return nil, serrors.Wrap("parsing holder authorization template", err)
	}

	if cert.EffectiveDate, err = ParseDate(body.ChildValue(tagEffectiveDate)); err != nil {
		return nil, serrors.Wrap("parsing effective date", err)
	}
	if cert.ExpirationDate, err = ParseDate(body.ChildValue(tagExpirationDate)); err != nil {
		return nil, serrors.Wrap("parsing expiration date", err)
	}

	if extObj, ok := body.Child(tagExtensions); ok {
		if cert.Extensions, err = parseExtensions(extObj); err != nil {
			return nil, serrors.Wrap("parsing extensions", err)
		}
	}
	return cert, nil
}

// ParseBytes decodes a certificate from raw bytes.
func ParseBytes(raw []byte) (*Certificate, error) {
	obj, n, err := tlv.Parse(raw)
	if err != nil {
		return nil, err
	}
	if n != len(raw) {
		return nil, serrors.New("trailing bytes after certificate", "count", len(raw)-n)
	}
	return Parse(obj)
}

func parseExtensions(obj tlv.Object) ([]Extension, error) {
	var exts []Extension
	for _, ddt := range obj.Children {
		if ddt.Tag != tagDDT {
			return nil, serrors.New("unexpected tag in extensions", "tag", ddt.Tag)
		}
		oidRaw := ddt.ChildValue(tlv.TagOID)
		if oidRaw == nil {
			return nil, serrors.New("extension without identifier")
		}
		oid, err := ParseOid(oidRaw)
		if err != nil {
			return nil, err
		}
		ext := Extension{Oid: oid, Raw: ddt}
		for _, child := range ddt.Children {
			if child.Tag != tlv.TagOID {
				ext.Objects = append(ext.Objects, child)
			}
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// ParseDate decodes a day-granularity date from six unpacked BCD digits,
// YYMMDD with the century fixed to 2000.
func ParseDate(raw []byte) (time.Time, error) {
	if len(raw) != 6 {
		return time.Time{}, serrors.New("invalid date length", "len", len(raw))
	}
	digits := make([]int, 6)
	for i, b := range raw {
		if b > 9 {
			return time.Time{}, serrors.New("invalid date digit", "pos", i, "value", b)
		}
		digits[i] = int(b)
	}
	year := 2000 + digits[0]*10 + digits[1]
	month := time.Month(digits[2]*10 + digits[3])
	day := digits[4]*10 + digits[5]
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, serrors.New("date out of range", "month", int(month), "day", day)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// EncodeDate is the inverse of ParseDate.
func EncodeDate(t time.Time) []byte {
	y, m, d := t.UTC().Date()
	y %= 100
	return []byte{
		byte(y / 10), byte(y % 10),
		byte(int(m) / 10), byte(int(m) % 10),
		byte(d / 10), byte(d % 10),
	}
}
