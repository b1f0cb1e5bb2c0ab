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

package cvc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/cvc/cvctest"
	"github.com/eidsim/eidsim/pkg/scrypto"
)

func TestParseRoundTrip(t *testing.T) {
	key := cvctest.NewKey(t)
	cert := cvctest.Build(t, cvctest.Template{
		CAR:                     "DECVCA00001",
		CHR:                     "DECVCA00001",
		TerminalTypeOid:         cvc.OidATTerminal,
		Authorization:           []byte{0xC3, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:               date(2026, 1, 1),
		Expiration:              date(2029, 1, 1),
		IncludeDomainParameters: true,
	}, key, key)

	assert.Equal(t, cvc.Reference("DECVCA00001"), cert.CAR)
	assert.Equal(t, cvc.Reference("DECVCA00001"), cert.CHR)
	assert.Equal(t, cvc.RoleCVCA, cert.Role())
	assert.Equal(t, cvc.OidATTerminal, cert.CHAT.TerminalTypeOid)
	assert.Equal(t, date(2026, 1, 1), cert.EffectiveDate)
	assert.Equal(t, date(2029, 1, 1), cert.ExpirationDate)

	reparsed, err := cvc.ParseBytes(cert.Encode())
	require.NoError(t, err)
	assert.Equal(t, cert, reparsed)
}

func TestSelfSignedVerifies(t *testing.T) {
	key := cvctest.NewKey(t)
	cert := cvctest.Build(t, cvctest.Template{
		CAR:                     "DECVCA00001",
		CHR:                     "DECVCA00001",
		TerminalTypeOid:         cvc.OidATTerminal,
		Authorization:           []byte{0xC3, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:               date(2026, 1, 1),
		Expiration:              date(2029, 1, 1),
		IncludeDomainParameters: true,
	}, key, key)

	verifier, err := cert.PublicKey.Key()
	require.NoError(t, err)
	algo, err := cert.PublicKey.Oid.Algorithm()
	require.NoError(t, err)
	sig, err := scrypto.ReshapeECDSASignature(cert.Signature)
	require.NoError(t, err)
	outcome, err := scrypto.Verify(algo, verifier, cert.BodyRaw, sig)
	require.NoError(t, err)
	assert.Equal(t, scrypto.OutcomeOK, outcome)
}

func TestInherit(t *testing.T) {
	caKey := cvctest.NewKey(t)
	ca := cvctest.Build(t, cvctest.Template{
		CAR: "DECVCA00001", CHR: "DECVCA00001",
		TerminalTypeOid:         cvc.OidATTerminal,
		Authorization:           []byte{0xC3, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:               date(2026, 1, 1),
		Expiration:              date(2029, 1, 1),
		IncludeDomainParameters: true,
	}, caKey, caKey)

	dvKey := cvctest.NewKey(t)
	dv := cvctest.Build(t, cvctest.Template{
		CAR: "DECVCA00001", CHR: "DEDVTEST00001",
		TerminalTypeOid: cvc.OidATTerminal,
		Authorization:   []byte{0x83, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:       date(2026, 1, 1),
		Expiration:      date(2027, 1, 1),
	}, dvKey, caKey)

	// without the issuer parameters the key is unusable
	_, err := dv.PublicKey.Key()
	assert.Error(t, err)

	dv.PublicKey.Inherit(ca.PublicKey)
	_, err = dv.PublicKey.Key()
	assert.NoError(t, err)
	assert.Equal(t, cvc.RoleDVDomestic, dv.Role())
}

func TestSectorExtension(t *testing.T) {
	key := cvctest.NewKey(t)
	first := []byte{0x11, 0x22}
	cert := cvctest.Build(t, cvctest.Template{
		CAR: "DEDVTEST00001", CHR: "DETERM000001",
		TerminalTypeOid: cvc.OidATTerminal,
		Authorization:   []byte{0x03, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:       date(2026, 1, 1),
		Expiration:      date(2026, 6, 1),
		AddSector:       true,
		SectorHashes:    [2][]byte{first, nil},
	}, key, key)

	ext, ok := cert.SectorExtension()
	require.True(t, ok)
	assert.Equal(t, first, ext.Find(0x80))
	assert.Nil(t, ext.Find(0x81))
	assert.Equal(t, cvc.RoleTerminal, cert.Role())
}

func TestParseDate(t *testing.T) {
	testCases := map[string]struct {
		raw       []byte
		expected  time.Time
		assertErr assert.ErrorAssertionFunc
	}{
		"valid": {
			raw:       []byte{2, 6, 0, 8, 2, 4},
			expected:  date(2026, 8, 24),
			assertErr: assert.NoError,
		},
		"not a digit": {
			raw:       []byte{2, 6, 0, 8, 2, 0x0A},
			assertErr: assert.Error,
		},
		"wrong length": {
			raw:       []byte{2, 6, 0, 8},
			assertErr: assert.Error,
		},
		"month zero": {
			raw:       []byte{2, 6, 0, 0, 1, 5},
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			parsed, err := cvc.ParseDate(tc.raw)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.expected, parsed)
			assert.Equal(t, tc.raw, cvc.EncodeDate(parsed))
		})
	}
}

func TestParseReference(t *testing.T) {
	_, err := cvc.ParseReference([]byte("DETEST00001"))
	assert.NoError(t, err)
	_, err = cvc.ParseReference([]byte("short"))
	assert.Error(t, err)
	_, err = cvc.ParseReference([]byte("DETEST00001\x00ABC"))
	assert.Error(t, err)
}

func TestOidString(t *testing.T) {
	assert.Equal(t, "0.4.0.127.0.7.2.2.2", cvc.OidTA.String())
	assert.Equal(t, "0.4.0.127.0.7.3.1.2.2", cvc.OidATTerminal.String())
}

func TestTerminalTypeFromOid(t *testing.T) {
	tt, err := cvc.TerminalTypeFromOid(cvc.OidATTerminal)
	require.NoError(t, err)
	assert.Equal(t, cvc.AuthenticationTerminal, tt)
	assert.Equal(t, cvc.OidATTerminal, tt.Oid())
	_, err = cvc.TerminalTypeFromOid(cvc.OidTA)
	assert.Error(t, err)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
