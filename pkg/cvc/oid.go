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
	"fmt"
	"strings"

	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/pkg/scrypto"
)

// Oid is an object identifier, stored as its DER content octets. The string
// representation makes it usable as a map key; compare with ==.
type Oid string

// bsi-de, the root of all TR-03110 identifiers.
const oidBsiDe = Oid("\x04\x00\x7F\x00\x07")

// Terminal authentication protocol identifiers, TR-03110 part 3 A.1.1.3.
var (
	OidTA = oidBsiDe + "\x02\x02\x02"

	OidTARSAv15SHA1   = OidTA + "\x01\x01"
	OidTARSAv15SHA256 = OidTA + "\x01\x02"
	OidTARSAPSSSHA1   = OidTA + "\x01\x03"
	OidTARSAPSSSHA256 = OidTA + "\x01\x04"
	OidTARSAv15SHA512 = OidTA + "\x01\x05"
	OidTARSAPSSSHA512 = OidTA + "\x01\x06"

	OidTAECDSASHA1   = OidTA + "\x02\x01"
	OidTAECDSASHA224 = OidTA + "\x02\x02"
	OidTAECDSASHA256 = OidTA + "\x02\x03"
	OidTAECDSASHA384 = OidTA + "\x02\x04"
	OidTAECDSASHA512 = OidTA + "\x02\x05"
)

// Terminal type identifiers, TR-03110 part 3 C.4.
var (
	OidISTerminal = oidBsiDe + "\x03\x01\x02\x01"
	OidATTerminal = oidBsiDe + "\x03\x01\x02\x02"
	OidSTTerminal = oidBsiDe + "\x03\x01\x02\x03"
)

// OidSector identifies the terminal sector certificate extension.
var OidSector = oidBsiDe + "\x03\x01\x03\x02"

var taAlgorithms = map[Oid]scrypto.Algorithm{
	OidTARSAv15SHA1:   scrypto.RSAv15SHA1,
	OidTARSAv15SHA256: scrypto.RSAv15SHA256,
	OidTARSAv15SHA512: scrypto.RSAv15SHA512,
	OidTARSAPSSSHA1:   scrypto.RSAPSSSHA1,
	OidTARSAPSSSHA256: scrypto.RSAPSSSHA256,
	OidTARSAPSSSHA512: scrypto.RSAPSSSHA512,
	OidTAECDSASHA1:    scrypto.ECDSASHA1,
	OidTAECDSASHA224:  scrypto.ECDSASHA224,
	OidTAECDSASHA256:  scrypto.ECDSASHA256,
	OidTAECDSASHA384:  scrypto.ECDSASHA384,
	OidTAECDSASHA512:  scrypto.ECDSASHA512,
}

// ParseOid validates the DER content octets of an object identifier.
func ParseOid(raw []byte) (Oid, error) {
	if len(raw) == 0 {
		return "", serrors.New("empty object identifier")
	}
	if raw[len(raw)-1]&0x80 != 0 {
		return "", serrors.New("unterminated object identifier arc")
	}
	return Oid(raw), nil
}

// ParseTAOid parses an object identifier and checks that it names a terminal
// authentication signature algorithm.
func ParseTAOid(raw []byte) (Oid, error) {
	oid, err := ParseOid(raw)
	if err != nil {
		return "", err
	}
	if _, ok := taAlgorithms[oid]; !ok {
		return "", serrors.New("not a terminal authentication algorithm", "oid", oid)
	}
	return oid, nil
}

// Algorithm returns the signature algorithm named by the identifier.
func (o Oid) Algorithm() (scrypto.Algorithm, error) {
	algo, ok := taAlgorithms[o]
	if !ok {
		return 0, serrors.New("not a terminal authentication algorithm", "oid", o)
	}
	return algo, nil
}

// Bytes returns the DER content octets.
func (o Oid) Bytes() []byte {
	return []byte(o)
}

// String renders the identifier in dotted decimal notation.
func (o Oid) String() string {
	if len(o) == 0 {
		return "<empty>"
	}
	var arcs []string
	arcs = append(arcs, fmt.Sprint(o[0]/40), fmt.Sprint(o[0]%40))
	arc := 0
	for _, b := range []byte(o[1:]) {
		arc = arc<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			arcs = append(arcs, fmt.Sprint(arc))
			arc = 0
		}
	}
	return strings.Join(arcs, ".")
}

// TerminalType is the type of terminal a certificate chain authorizes,
// resolved from the terminal type identifier carried in a CHAT or deposited
// by PACE.
type TerminalType int

const (
	// InspectionSystem terminals read the biometric data groups.
	InspectionSystem TerminalType = iota + 1
	// AuthenticationTerminal terminals access eID application data.
	AuthenticationTerminal
	// SignatureTerminal terminals manage qualified signatures.
	SignatureTerminal
)

// TerminalTypeFromOid resolves a terminal type identifier.
func TerminalTypeFromOid(oid Oid) (TerminalType, error) {
	switch oid {
	case OidISTerminal:
		return InspectionSystem, nil
	case OidATTerminal:
		return AuthenticationTerminal, nil
	case OidSTTerminal:
		return SignatureTerminal, nil
	default:
		return 0, serrors.New("unknown terminal type", "oid", oid)
	}
}

// Oid returns the terminal type identifier.
func (t TerminalType) Oid() Oid {
	switch t {
	case InspectionSystem:
		return OidISTerminal
	case AuthenticationTerminal:
		return OidATTerminal
	case SignatureTerminal:
		return OidSTTerminal
	default:
		return ""
	}
}

func (t TerminalType) String() string {
	switch t {
	case InspectionSystem:
		return "IS"
	case AuthenticationTerminal:
		return "AT"
	case SignatureTerminal:
		return "ST"
	default:
		return fmt.Sprintf("TerminalType(%d)", int(t))
	}
}
