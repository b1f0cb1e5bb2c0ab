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

package config_test

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/cvc/cvctest"
	"github.com/eidsim/eidsim/private/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eidsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	key := cvctest.NewKey(t)
	anchor := cvctest.Build(t, cvctest.Template{
		CAR: "DECVCA00001", CHR: "DECVCA00001",
		TerminalTypeOid:         cvc.OidATTerminal,
		Authorization:           []byte{0xC3, 0xFF, 0xFF, 0xFF, 0xFF},
		Effective:               time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Expiration:              time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC),
		IncludeDomainParameters: true,
	}, key, key)

	content := fmt.Sprintf(`
[general]
listen_addr = "127.0.0.1:45963"

[log]
level = "debug"

[metrics]
addr = "127.0.0.1:30452"

[trust]
db_path = "/tmp/trust.db"

[[trust.anchors]]
terminal_type = "AT"
certificate = %q

[card]
chip_date = "2026-08-01"

[pace]
terminal_type = "AT"
chip_key = "1C1C1C1C"

[pace.authorizations]
AT = "FFFFFFFF0F"
`, hex.EncodeToString(anchor.Encode()))

	cfg, err := config.Load(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:45963", cfg.General.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:30452", cfg.Metrics.Addr)
	assert.Equal(t, "/tmp/trust.db", cfg.Trust.DBPath)

	atr, err := cfg.ATR()
	require.NoError(t, err)
	assert.NotEmpty(t, atr)

	date, err := cfg.ChipDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), date)

	points, err := cfg.TrustPoints()
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, anchor.CHR, points[cvc.AuthenticationTerminal].Current.CHR)

	seed, err := cfg.PaceSeed()
	require.NoError(t, err)
	assert.Equal(t, cvc.OidATTerminal, seed.TerminalTypeOid)
	assert.Equal(t, []byte{0x1C, 0x1C, 0x1C, 0x1C}, seed.CompressedEphemeralChipKey)
	auth, ok := seed.ConfinedAuthorizations[cvc.OidATTerminal]
	require.True(t, ok)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, auth.Bits)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
[pace]
terminal_type = "AT"
chip_key = "1C1C1C1C"
`))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultListenAddr, cfg.General.ListenAddr)
	atr, err := cfg.ATR()
	require.NoError(t, err)
	assert.Equal(t, byte(0x3B), atr[0])
}

func TestLoadRejectsBadInput(t *testing.T) {
	testCases := map[string]string{
		"unknown terminal type": `
[pace]
terminal_type = "XX"
chip_key = "1C"
`,
		"missing chip key": `
[pace]
terminal_type = "AT"
`,
		"bad chip date": `
[card]
chip_date = "01.08.2026"

[pace]
terminal_type = "AT"
chip_key = "1C"
`,
		"bad anchor hex": `
[[trust.anchors]]
terminal_type = "AT"
certificate = "zz"

[pace]
terminal_type = "AT"
chip_key = "1C"
`,
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
