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
	"time"

	"github.com/eidsim/eidsim/pkg/cvc"
)

// issuerCompatible reports whether a certificate with the issuer role may
// sign a certificate with the candidate role. CVCAs sign CVCAs and document
// verifiers; document verifiers sign terminals.
func issuerCompatible(issuer, candidate cvc.Role) bool {
	switch {
	case candidate == cvc.RoleCVCA || candidate.IsDV():
		return issuer == cvc.RoleCVCA
	case candidate == cvc.RoleTerminal:
		return issuer.IsDV()
	default:
		return false
	}
}

// certificateUsable checks the validity window of a candidate certificate
// against the chip date. Expiration on the chip date itself is still valid.
// CVCA link certificates are always importable; the chip date is the safety
// net against stale links.
func certificateUsable(chipDate time.Time, issuer, candidate *cvc.Certificate) bool {
	switch {
	case issuer.Role() == cvc.RoleCVCA && candidate.Role() == cvc.RoleCVCA:
		return true
	case issuer.Role() == cvc.RoleCVCA:
		return !chipDate.After(issuer.ExpirationDate) &&
			!chipDate.After(candidate.ExpirationDate)
	default:
		return !chipDate.After(candidate.ExpirationDate)
	}
}

// advanceChipDate reports whether importing the candidate moves the chip
// date forward, and to what. Only certificates from authentic domestic
// sources may advance the date: CVCAs, domestic DVs, and certificates issued
// by a domestic DV.
func advanceChipDate(chipDate time.Time, issuer, candidate *cvc.Certificate) (time.Time, bool) {
	if !chipDate.Before(candidate.EffectiveDate) {
		return chipDate, false
	}
	if candidate.Role() == cvc.RoleCVCA ||
		candidate.Role() == cvc.RoleDVDomestic ||
		issuer.Role() == cvc.RoleDVDomestic {
		return candidate.EffectiveDate, true
	}
	return chipDate, false
}
