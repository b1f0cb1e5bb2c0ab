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

package trust_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/cvc/cvctest"
	"github.com/eidsim/eidsim/private/trust"
)

func buildCVCA(t *testing.T, chr cvc.Reference) *cvc.Certificate {
	key := cvctest.NewKey(t)
	return cvctest.Build(t, cvctest.Template{
		CAR: chr, CHR: chr,
		TerminalTypeOid:         cvc.OidATTerminal,
		Authorization:           []byte{0xC3, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:               time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Expiration:              time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC),
		IncludeDomainParameters: true,
	}, key, key)
}

func TestMemoryStoreRollover(t *testing.T) {
	ctx := context.Background()
	store := trust.NewMemoryStore()
	first := buildCVCA(t, "DECVCA00001")
	second := buildCVCA(t, "DECVCA00002")

	_, err := store.Point(ctx, cvc.AuthenticationTerminal)
	assert.ErrorIs(t, err, trust.ErrNotFound)
	err = store.Rollover(ctx, cvc.AuthenticationTerminal, second)
	assert.ErrorIs(t, err, trust.ErrNotFound)

	require.NoError(t, store.Seed(cvc.AuthenticationTerminal, trust.Point{Current: first}))

	require.NoError(t, store.Rollover(ctx, cvc.AuthenticationTerminal, second))
	p, err := store.Point(ctx, cvc.AuthenticationTerminal)
	require.NoError(t, err)
	assert.Equal(t, second, p.Current)
	assert.Equal(t, first, p.Previous)

	// importing the same anchor again fills both slots with it
	require.NoError(t, store.Rollover(ctx, cvc.AuthenticationTerminal, second))
	p, err = store.Point(ctx, cvc.AuthenticationTerminal)
	require.NoError(t, err)
	assert.Equal(t, second, p.Current)
	assert.Equal(t, second, p.Previous)
}

func TestSeedRejectsNonCVCA(t *testing.T) {
	key := cvctest.NewKey(t)
	dv := cvctest.Build(t, cvctest.Template{
		CAR: "DECVCA00001", CHR: "DEDVTEST00001",
		TerminalTypeOid: cvc.OidATTerminal,
		Authorization:   []byte{0x83, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Expiration:      time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}, key, key)

	store := trust.NewMemoryStore()
	assert.Error(t, store.Seed(cvc.AuthenticationTerminal, trust.Point{Current: dv}))
	assert.Error(t, store.Seed(cvc.AuthenticationTerminal, trust.Point{}))
}

func TestPointMatch(t *testing.T) {
	first := buildCVCA(t, "DECVCA00001")
	second := buildCVCA(t, "DECVCA00002")
	p := trust.Point{Current: second, Previous: first}

	cert, ok := p.Match("DECVCA00002")
	require.True(t, ok)
	assert.Equal(t, second, cert)
	cert, ok = p.Match("DECVCA00001")
	require.True(t, ok)
	assert.Equal(t, first, cert)
	_, ok = p.Match("DECVCA00003")
	assert.False(t, ok)
}
