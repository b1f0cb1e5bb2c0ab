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

package secstatus

import (
	"encoding/hex"
	"fmt"

	"github.com/eidsim/eidsim/pkg/cvc"
)

// Authorization is a relative authorization bitfield, big-endian with the
// most significant bit first. The length is fixed per terminal type.
type Authorization struct {
	Bits []byte
}

// And intersects the authorization with the incoming one. The result has the
// incoming length; where the receiver is shorter, the missing leading bytes
// count as all-ones.
func (a Authorization) And(incoming Authorization) Authorization {
	out := make([]byte, len(incoming.Bits))
	copy(out, incoming.Bits)
	// align at the least significant end
	offset := len(a.Bits) - len(incoming.Bits)
	for i := range out {
		if j := i + offset; j >= 0 && j < len(a.Bits) {
			out[i] &= a.Bits[j]
		}
	}
	return Authorization{Bits: out}
}

func (a Authorization) String() string {
	return hex.EncodeToString(a.Bits)
}

// AuthorizationStore maps terminal type identifiers to relative
// authorizations. Updates only ever narrow: bits may clear, never set.
type AuthorizationStore struct {
	auths map[cvc.Oid]Authorization
}

// NewAuthorizationStore creates a store with the given initial
// authorizations. The map is copied.
func NewAuthorizationStore(initial map[cvc.Oid]Authorization) *AuthorizationStore {
	s := &AuthorizationStore{auths: make(map[cvc.Oid]Authorization, len(initial))}
	for oid, auth := range initial {
		s.auths[oid] = Authorization{Bits: append([]byte{}, auth.Bits...)}
	}
	return s
}

// Get returns the authorization for the given terminal type.
func (s *AuthorizationStore) Get(oid cvc.Oid) (Authorization, bool) {
	auth, ok := s.auths[oid]
	return auth, ok
}

// Update intersects the stored authorizations with the incoming ones. A
// terminal type not present before is added as-is, i.e. the absent entry
// counts as all-ones of the incoming length.
func (s *AuthorizationStore) Update(incoming map[cvc.Oid]Authorization) {
	for oid, auth := range incoming {
		existing, ok := s.auths[oid]
		if !ok {
			s.auths[oid] = Authorization{Bits: append([]byte{}, auth.Bits...)}
			continue
		}
		s.auths[oid] = existing.And(auth)
	}
}

// Copy returns an independent copy of the store.
func (s *AuthorizationStore) Copy() *AuthorizationStore {
	return NewAuthorizationStore(s.auths)
}

func (s *AuthorizationStore) String() string {
	return fmt.Sprintf("AuthorizationStore(%d entries)", len(s.auths))
}

// AuthorizationsFromCertificate extracts the single-entry authorization map
// carried in the certificate's holder authorization template. This is the
// sole input to Update during chain walks.
func AuthorizationsFromCertificate(cert *cvc.Certificate) map[cvc.Oid]Authorization {
	return map[cvc.Oid]Authorization{
		cert.CHAT.TerminalTypeOid: {Bits: cert.CHAT.RelativeAuthorization},
	}
}
