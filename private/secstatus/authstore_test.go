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

package secstatus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/private/secstatus"
)

func TestUpdateIntersects(t *testing.T) {
	store := secstatus.NewAuthorizationStore(map[cvc.Oid]secstatus.Authorization{
		cvc.OidATTerminal: {Bits: []byte{0xC3, 0xFF, 0x0F}},
	})

	store.Update(map[cvc.Oid]secstatus.Authorization{
		cvc.OidATTerminal: {Bits: []byte{0x81, 0xF0, 0xFF}},
	})
	auth, ok := store.Get(cvc.OidATTerminal)
	require.True(t, ok)
	assert.Equal(t, []byte{0x81, 0xF0, 0x0F}, auth.Bits)

	// bits only ever clear
	store.Update(map[cvc.Oid]secstatus.Authorization{
		cvc.OidATTerminal: {Bits: []byte{0xFF, 0xFF, 0xFF}},
	})
	auth, _ = store.Get(cvc.OidATTerminal)
	assert.Equal(t, []byte{0x81, 0xF0, 0x0F}, auth.Bits)
}

func TestUpdateAddsUnknownType(t *testing.T) {
	store := secstatus.NewAuthorizationStore(nil)
	store.Update(map[cvc.Oid]secstatus.Authorization{
		cvc.OidISTerminal: {Bits: []byte{0x23}},
	})
	auth, ok := store.Get(cvc.OidISTerminal)
	require.True(t, ok)
	assert.Equal(t, []byte{0x23}, auth.Bits)
}

func TestCopyIsIndependent(t *testing.T) {
	store := secstatus.NewAuthorizationStore(map[cvc.Oid]secstatus.Authorization{
		cvc.OidATTerminal: {Bits: []byte{0xFF}},
	})
	cp := store.Copy()
	cp.Update(map[cvc.Oid]secstatus.Authorization{
		cvc.OidATTerminal: {Bits: []byte{0x00}},
	})
	auth, _ := store.Get(cvc.OidATTerminal)
	assert.Equal(t, []byte{0xFF}, auth.Bits)
	auth, _ = cp.Get(cvc.OidATTerminal)
	assert.Equal(t, []byte{0x00}, auth.Bits)
}

func TestAndShorterReceiver(t *testing.T) {
	// the missing leading byte of the stored value counts as all-ones
	a := secstatus.Authorization{Bits: []byte{0x0F}}
	out := a.And(secstatus.Authorization{Bits: []byte{0xAB, 0xFF}})
	assert.Equal(t, []byte{0xAB, 0x0F}, out.Bits)
}

func TestStatusAccessors(t *testing.T) {
	status := secstatus.New()
	assert.Empty(t, status.PaceMechanisms())
	_, ok := status.TerminalAuthentication()
	assert.False(t, ok)

	pace := &secstatus.PaceMechanism{TerminalTypeOid: cvc.OidATTerminal}
	status.Update(pace)
	status.Update(&secstatus.ConfinedAuthorizationMechanism{
		Store: secstatus.NewAuthorizationStore(nil),
	})
	require.Len(t, status.PaceMechanisms(), 1)
	require.Len(t, status.ConfinedAuthorizations(), 1)

	status.Update(&secstatus.TerminalAuthenticationMechanism{})
	_, ok = status.TerminalAuthentication()
	assert.True(t, ok)

	status.Reset()
	assert.Empty(t, status.PaceMechanisms())
}
