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

package ta

import (
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/eidsim/eidsim/pkg/cvc"
)

// Version is the terminal authentication protocol version announced in
// EF.CardAccess.
const Version = 2

// TAInfo returns the DER encoded TAInfo structure for the card's security
// info files: SEQUENCE { protocol OBJECT IDENTIFIER, version INTEGER }.
func TAInfo() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
			b.AddBytes(cvc.OidTA.Bytes())
		})
		b.AddASN1Int64(Version)
	})
	return b.Bytes()
}
