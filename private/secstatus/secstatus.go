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

// Package secstatus tracks the card-wide security status: the mechanisms
// established by completed protocol runs. Protocols append mechanisms and
// read what predecessors deposited; entries are never removed except by a
// session reset.
package secstatus

import (
	"crypto"

	"github.com/eidsim/eidsim/pkg/cvc"
)

// Mechanism is a security mechanism deposited by a protocol run.
type Mechanism interface {
	mechanism()
}

// PaceMechanism is deposited by a completed PACE run. It carries the
// terminal type claimed during PACE and the compressed ephemeral chip key
// that terminal authentication signs over.
type PaceMechanism struct {
	// TerminalTypeOid is the terminal type identifier to be used by
	// terminal authentication.
	TerminalTypeOid cvc.Oid
	// CompressedEphemeralChipKey is id_ICC.
	CompressedEphemeralChipKey []byte
}

func (*PaceMechanism) mechanism() {}

// ConfinedAuthorizationMechanism carries the initial authorizations the
// card holder confined the terminal to during PACE.
type ConfinedAuthorizationMechanism struct {
	Store *AuthorizationStore
}

func (*ConfinedAuthorizationMechanism) mechanism() {}

// AuxiliaryDatum is one authenticated auxiliary data entry from an MSE:Set
// AT command. Encoded is the full 0x73 template as received.
type AuxiliaryDatum struct {
	Oid     cvc.Oid
	Data    []byte
	Encoded []byte
}

// TerminalAuthenticationMechanism records a successful terminal
// authentication.
type TerminalAuthenticationMechanism struct {
	CompressedTerminalEphemeralKey []byte
	TerminalType                   cvc.TerminalType
	AuxiliaryData                  []AuxiliaryDatum
	FirstSectorPublicKeyHash       []byte
	SecondSectorPublicKeyHash      []byte
	HashAlgorithm                  crypto.Hash
	CertificateExtensions          []cvc.Extension
}

func (*TerminalAuthenticationMechanism) mechanism() {}

// EffectiveAuthorizationMechanism publishes the effective authorizations
// after a certificate chain has been walked.
type EffectiveAuthorizationMechanism struct {
	Store *AuthorizationStore
}

func (*EffectiveAuthorizationMechanism) mechanism() {}

// Status is the card security status. It is owned by the card and shared
// read-mostly with the protocol implementations; all access happens on the
// card dispatch goroutine.
type Status struct {
	mechanisms []Mechanism
}

// New creates an empty security status.
func New() *Status {
	return &Status{}
}

// Update appends a mechanism.
func (s *Status) Update(m Mechanism) {
	s.mechanisms = append(s.mechanisms, m)
}

// Reset drops all mechanisms, as on loss of the secure channel.
func (s *Status) Reset() {
	s.mechanisms = nil
}

// PaceMechanisms returns all PACE mechanisms in deposit order.
func (s *Status) PaceMechanisms() []*PaceMechanism {
	var out []*PaceMechanism
	for _, m := range s.mechanisms {
		if pm, ok := m.(*PaceMechanism); ok {
			out = append(out, pm)
		}
	}
	return out
}

// ConfinedAuthorizations returns all confined authorization mechanisms.
func (s *Status) ConfinedAuthorizations() []*ConfinedAuthorizationMechanism {
	var out []*ConfinedAuthorizationMechanism
	for _, m := range s.mechanisms {
		if cm, ok := m.(*ConfinedAuthorizationMechanism); ok {
			out = append(out, cm)
		}
	}
	return out
}

// TerminalAuthentication returns the terminal authentication mechanism if
// one was deposited.
func (s *Status) TerminalAuthentication() (*TerminalAuthenticationMechanism, bool) {
	for _, m := range s.mechanisms {
		if tm, ok := m.(*TerminalAuthenticationMechanism); ok {
			return tm, true
		}
	}
	return nil, false
}

// EffectiveAuthorization returns the effective authorization mechanism if
// one was deposited.
func (s *Status) EffectiveAuthorization() (*EffectiveAuthorizationMechanism, bool) {
	for _, m := range s.mechanisms {
		if em, ok := m.(*EffectiveAuthorizationMechanism); ok {
			return em, true
		}
	}
	return nil, false
}
