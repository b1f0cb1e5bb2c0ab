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

package apdu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidsim/eidsim/pkg/apdu"
)

func TestParseCommand(t *testing.T) {
	testCases := map[string]struct {
		raw       []byte
		expected  apdu.Command
		assertErr assert.ErrorAssertionFunc
	}{
		"case 1": {
			raw:       []byte{0x00, 0x84, 0x00, 0x00},
			expected:  apdu.Command{INS: 0x84},
			assertErr: assert.NoError,
		},
		"case 2": {
			raw:       []byte{0x00, 0x84, 0x00, 0x00, 0x08},
			expected:  apdu.Command{INS: 0x84, Ne: 8},
			assertErr: assert.NoError,
		},
		"case 3": {
			raw: []byte{0x0C, 0x22, 0x81, 0xB6, 0x02, 0x83, 0x00},
			expected: apdu.Command{
				CLA: 0x0C, INS: 0x22, P1: 0x81, P2: 0xB6,
				Data:            []byte{0x83, 0x00},
				SecureMessaging: true,
			},
			assertErr: assert.NoError,
		},
		"case 4": {
			raw: []byte{0x00, 0x2A, 0x00, 0xBE, 0x01, 0xAA, 0x10},
			expected: apdu.Command{
				INS: 0x2A, P2: 0xBE, Data: []byte{0xAA}, Ne: 0x10,
			},
			assertErr: assert.NoError,
		},
		"extended lc": {
			raw: append([]byte{0x00, 0x2A, 0x00, 0xBE, 0x00, 0x01, 0x01}, make([]byte, 0x101)...),
			expected: apdu.Command{
				INS: 0x2A, P2: 0xBE, Data: make([]byte, 0x101),
			},
			assertErr: assert.NoError,
		},
		"le zero means max": {
			raw:       []byte{0x00, 0x84, 0x00, 0x00, 0x00},
			expected:  apdu.Command{INS: 0x84, Ne: 0x100},
			assertErr: assert.NoError,
		},
		"truncated header": {
			raw:       []byte{0x00, 0x84},
			assertErr: assert.Error,
		},
		"truncated data": {
			raw:       []byte{0x00, 0x2A, 0x00, 0xBE, 0x05, 0x01},
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cmd, err := apdu.ParseCommand(tc.raw)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.expected, cmd)
		})
	}
}

func TestP1P2(t *testing.T) {
	cmd := apdu.Command{P1: 0x81, P2: 0xB6}
	assert.Equal(t, uint16(0x81B6), cmd.P1P2())
}

func TestResponseEncode(t *testing.T) {
	resp := apdu.NewWithData([]byte{0x01, 0x02}, apdu.SWNoError, "ok")
	assert.Equal(t, []byte{0x01, 0x02, 0x90, 0x00}, resp.Encode())

	empty := apdu.New(apdu.SWReferenceDataNotFound, "missing")
	require.Equal(t, []byte{0x6A, 0x88}, empty.Encode())
}
