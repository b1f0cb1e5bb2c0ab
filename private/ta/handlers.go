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
	"context"
	"errors"
	"io"

	"github.com/eidsim/eidsim/pkg/apdu"
	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/pkg/scrypto"
	"github.com/eidsim/eidsim/pkg/tlv"
	"github.com/eidsim/eidsim/private/secstatus"
	"github.com/eidsim/eidsim/private/trust"
)

// Command data field tags.
const (
	tagMechanism    tlv.Tag = 0x80
	tagPublicKeyRef tlv.Tag = 0x83
	tagEphemeralKey tlv.Tag = 0x91
)

// Sector extension data object tags.
const (
	tagFirstSectorHash  tlv.Tag = 0x80
	tagSecondSectorHash tlv.Tag = 0x81
)

// handleSetDST selects the verification authority for the chain walk: either
// the most recent temporary import, continuing an already-validated chain, or
// a CVCA trust anchor, which re-seeds the authorization store from the
// confined authorizations PACE deposited.
func (p *Protocol) handleSetDST(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	objs, err := tlv.ParseAll(cmd.Data)
	if err != nil {
		return nil, failCause(apdu.SWWrongData, "malformed command data", err)
	}
	refObj, ok := tlv.Find(objs, tagPublicKeyRef)
	if !ok {
		return nil, fail(apdu.SWReferenceDataNotFound, "missing public key reference")
	}

	pm, err := p.paceMechanism()
	if err != nil {
		return nil, err
	}
	tt, err := cvc.TerminalTypeFromOid(pm.TerminalTypeOid)
	if err != nil {
		return nil, failCause(apdu.SWImplementationError, "unresolvable terminal type", err)
	}
	p.session.terminalType = tt
	p.session.current = nil

	ref, err := cvc.ParseReference(refObj.Value)
	if err != nil {
		return nil, failCause(apdu.SWReferenceDataNotFound, "unusable public key reference", err)
	}

	if p.session.temporary != nil && p.session.temporary.CHR == ref {
		p.session.current = p.session.temporary
		p.session.state = stateAnchorSet
		return nil, nil
	}

	point, err := p.trust.Point(ctx, tt)
	if errors.Is(err, trust.ErrNotFound) {
		return nil, fail(apdu.SWReferenceDataNotFound, "no trust point for terminal type")
	}
	if err != nil {
		return nil, err
	}
	anchor, ok := point.Match(ref)
	if !ok {
		return nil, fail(apdu.SWReferenceDataNotFound, "referenced key not found")
	}

	if p.session.auths == nil {
		confined := p.status.ConfinedAuthorizations()
		if len(confined) == 0 {
			return nil, fail(apdu.SWSecurityStatusNotSatisfied,
				"no confined authorizations from PACE")
		}
		p.session.auths = confined[0].Store.Copy()
	}
	if _, ok := p.session.auths.Get(tt.Oid()); !ok {
		return nil, fail(apdu.SWSecurityStatusNotSatisfied,
			"no authorization for terminal type")
	}
	p.session.current = anchor
	p.session.auths.Update(secstatus.AuthorizationsFromCertificate(anchor))
	p.session.state = stateAnchorSet
	return nil, nil
}

// handleVerifyCertificate extends the chain by one certificate: signature by
// the current authority, role compatibility, validity against the chip date,
// then permanent (CVCA) or temporary (DV, terminal) import.
func (p *Protocol) handleVerifyCertificate(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	if p.session.current == nil {
		return nil, fail(apdu.SWReferenceDataNotFound, "no verification authority selected")
	}
	objs, err := tlv.ParseAll(cmd.Data)
	if err != nil {
		return nil, failCause(apdu.SWWrongData, "malformed command data", err)
	}
	body, ok := tlv.Find(objs, tlv.TagCertificateBody)
	if !ok {
		return nil, fail(apdu.SWReferenceDataNotFound, "missing certificate body")
	}
	sig, ok := tlv.Find(objs, tlv.TagSignature)
	if !ok {
		return nil, fail(apdu.SWReferenceDataNotFound, "missing certificate signature")
	}
	cert, err := cvc.Parse(tlv.NewConstructed(tlv.TagCVCertificate, body, sig))
	if err != nil {
		return nil, failCause(apdu.SWReferenceDataNotUsable, "unusable certificate", err)
	}
	cert.PublicKey.Inherit(p.session.current.PublicKey)

	if cert.CAR != p.session.current.CHR {
		return nil, fail(apdu.SWReferenceDataNotFound,
			"issuer reference does not match selected authority")
	}
	if !issuerCompatible(p.session.current.Role(), cert.Role()) {
		return nil, fail(apdu.SWReferenceDataNotUsable,
			"issuer role cannot sign candidate role")
	}
	if err := p.verifyCertificateSignature(cert); err != nil {
		return nil, err
	}

	chipDate := p.date.Current()
	if !certificateUsable(chipDate, p.session.current, cert) {
		return nil, fail(apdu.SWReferenceDataNotUsable, "certificate outside validity window")
	}
	if next, ok := advanceChipDate(chipDate, p.session.current, cert); ok {
		p.date.Advance(next)
	}

	if cert.Role() == cvc.RoleCVCA {
		if err := p.trust.Rollover(ctx, p.session.terminalType, cert); err != nil {
			return nil, failCause(apdu.SWReferenceDataNotUsable,
				"trust point rollover failed", err)
		}
	} else {
		p.session.temporary = cert
		p.session.current = cert
	}
	if p.session.auths != nil {
		p.session.auths.Update(secstatus.AuthorizationsFromCertificate(cert))
	}
	return nil, nil
}

func (p *Protocol) verifyCertificateSignature(cert *cvc.Certificate) error {
	authority := p.session.current.PublicKey
	algo, err := authority.Oid.Algorithm()
	if err != nil {
		return failCause(apdu.SWReferenceDataNotUsable, "unusable signature mechanism", err)
	}
	key, err := authority.Key()
	if err != nil {
		return failCause(apdu.SWReferenceDataNotUsable, "unusable authority key", err)
	}
	sig := cert.Signature
	if algo.IsECDSA() {
		if sig, err = scrypto.ReshapeECDSASignature(sig); err != nil {
			return failCause(apdu.SWReferenceDataNotUsable, "unusable signature encoding", err)
		}
	}
	outcome, err := scrypto.Verify(algo, key, cert.BodyRaw, sig)
	if err != nil || outcome != scrypto.OutcomeOK {
		return failCause(apdu.SWReferenceDataNotUsable, "certificate signature invalid", err)
	}
	return nil
}

// handleSetAT binds the signature mechanism, the chain terminal reference,
// the terminal's compressed ephemeral key and the auxiliary data that
// External Authenticate will verify. Nothing outside the session is mutated.
func (p *Protocol) handleSetAT(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	if p.session.current == nil {
		return nil, fail(apdu.SWReferenceDataNotFound, "no verification authority selected")
	}
	objs, err := tlv.ParseAll(cmd.Data)
	if err != nil {
		return nil, failCause(apdu.SWWrongData, "malformed command data", err)
	}

	mech, ok := tlv.Find(objs, tagMechanism)
	if !ok {
		return nil, fail(apdu.SWWrongData, "missing cryptographic mechanism")
	}
	oid, err := cvc.ParseTAOid(mech.Value)
	if err != nil {
		return nil, failCause(apdu.SWWrongData, "invalid cryptographic mechanism", err)
	}

	refObj, ok := tlv.Find(objs, tagPublicKeyRef)
	if !ok {
		return nil, fail(apdu.SWReferenceDataNotFound, "missing public key reference")
	}
	ref, err := cvc.ParseReference(refObj.Value)
	if err != nil {
		return nil, failCause(apdu.SWWrongData, "invalid public key reference", err)
	}
	if ref != p.session.current.CHR {
		return nil, fail(apdu.SWReferenceDataNotFound,
			"reference does not match chain terminal")
	}

	keyObj, ok := tlv.Find(objs, tagEphemeralKey)
	if !ok {
		return nil, fail(apdu.SWWrongData, "missing compressed ephemeral key")
	}

	var aux []secstatus.AuxiliaryDatum
	if auxObj, ok := tlv.Find(objs, tlv.TagAuxiliaryData); ok {
		if aux, err = parseAuxiliaryData(auxObj); err != nil {
			return nil, failCause(apdu.SWWrongData, "invalid auxiliary data", err)
		}
	}

	p.session.mechanism = oid
	p.session.terminalKey = keyObj.Value
	p.session.auxiliaryData = aux
	p.session.state = stateChainBuilt
	return nil, nil
}

// parseAuxiliaryData collects every datum of the container, in order. The
// original encoding of each entry is retained for the signature input.
func parseAuxiliaryData(container tlv.Object) ([]secstatus.AuxiliaryDatum, error) {
	var entries []secstatus.AuxiliaryDatum
	for _, obj := range container.Children {
		if obj.Tag != tlv.TagAuxiliaryDatum {
			return nil, serrors.New("unexpected tag in auxiliary data", "tag", obj.Tag)
		}
		oidRaw := obj.ChildValue(tlv.TagOID)
		if oidRaw == nil {
			return nil, serrors.New("auxiliary datum without identifier")
		}
		oid, err := cvc.ParseOid(oidRaw)
		if err != nil {
			return nil, serrors.Wrap("parsing auxiliary datum identifier", err)
		}
		data, ok := obj.Child(tlv.TagDiscretionaryData)
		if !ok {
			return nil, serrors.New("auxiliary datum without data", "oid", oid)
		}
		entries = append(entries, secstatus.AuxiliaryDatum{
			Oid:     oid,
			Data:    data.Value,
			Encoded: obj.Encode(),
		})
	}
	if len(entries) == 0 {
		return nil, serrors.New("empty auxiliary data container")
	}
	return entries, nil
}

// handleGetChallenge draws a fresh 8 byte challenge, overwriting any previous
// one.
func (p *Protocol) handleGetChallenge(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	challenge := make([]byte, challengeLength)
	if _, err := io.ReadFull(p.rand, challenge); err != nil {
		return nil, failCause(apdu.SWImplementationError, "challenge generation failed", err)
	}
	p.session.challenge = challenge
	if p.session.state == stateChainBuilt {
		p.session.state = stateChallenged
	}
	return challenge, nil
}

// handleExternalAuthenticate verifies the terminal's signature over
// id_ICC || challenge || compressed terminal key || auxiliary data and, on
// success, deposits the terminal authentication and effective authorization
// mechanisms. Terminal authentication runs at most once per session.
func (p *Protocol) handleExternalAuthenticate(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	if p.session.current == nil {
		return nil, fail(apdu.SWSecurityStatusNotSatisfied, "no chain terminal selected")
	}
	if p.session.challenge == nil {
		return nil, fail(apdu.SWConditionsOfUseNotSatisfied, "no challenge outstanding")
	}
	if _, ok := p.status.TerminalAuthentication(); ok {
		return nil, fail(apdu.SWSecurityStatusNotSatisfied,
			"terminal authentication already performed")
	}
	pms := p.status.PaceMechanisms()
	if len(pms) == 0 {
		return nil, fail(apdu.SWConditionsOfUseNotSatisfied, "no PACE mechanism present")
	}
	if len(pms) > 1 {
		return nil, fail(apdu.SWImplementationError, "ambiguous PACE mechanism")
	}

	var message []byte
	message = append(message, pms[0].CompressedEphemeralChipKey...)
	message = append(message, p.session.challenge...)
	message = append(message, p.session.terminalKey...)
	if len(p.session.auxiliaryData) > 0 {
		var content []byte
		for _, datum := range p.session.auxiliaryData {
			content = append(content, datum.Encoded...)
		}
		message = append(message, tlv.EncodeRaw(tlv.TagAuxiliaryData, content)...)
	}

	algo, err := p.session.mechanism.Algorithm()
	if err != nil {
		return nil, failCause(apdu.SWImplementationError, "unusable signature mechanism", err)
	}
	key, err := p.session.current.PublicKey.Key()
	if err != nil {
		return nil, failCause(apdu.SWImplementationError, "unusable terminal key", err)
	}
	sig := cmd.Data
	if algo.IsECDSA() {
		if sig, err = scrypto.ReshapeECDSASignature(sig); err != nil {
			return nil, failCause(apdu.SWAuthenticationFailed, "malformed signature", err)
		}
	}
	outcome, err := scrypto.Verify(algo, key, message, sig)
	if err != nil {
		return nil, failCause(apdu.SWImplementationError, "signature verification failed", err)
	}
	if outcome != scrypto.OutcomeOK {
		return nil, fail(apdu.SWAuthenticationFailed, "terminal signature invalid")
	}

	var first, second []byte
	if ext, ok := p.session.current.SectorExtension(); ok {
		first = ext.Find(tagFirstSectorHash)
		second = ext.Find(tagSecondSectorHash)
	}
	hash, _ := algo.Hash()

	p.status.Update(&secstatus.TerminalAuthenticationMechanism{
		CompressedTerminalEphemeralKey: p.session.terminalKey,
		TerminalType:                   p.session.terminalType,
		AuxiliaryData:                  p.session.auxiliaryData,
		FirstSectorPublicKeyHash:       first,
		SecondSectorPublicKeyHash:      second,
		HashAlgorithm:                  hash,
		CertificateExtensions:          p.session.current.Extensions,
	})
	effective := p.session.auths
	if effective == nil {
		effective = secstatus.NewAuthorizationStore(nil)
	} else {
		effective = effective.Copy()
	}
	p.status.Update(&secstatus.EffectiveAuthorizationMechanism{Store: effective})
	p.session.state = stateAuthenticated
	return nil, nil
}

func (p *Protocol) paceMechanism() (*secstatus.PaceMechanism, error) {
	pms := p.status.PaceMechanisms()
	switch len(pms) {
	case 0:
		return nil, fail(apdu.SWSecurityStatusNotSatisfied, "no PACE mechanism present")
	case 1:
		return pms[0], nil
	default:
		return nil, fail(apdu.SWImplementationError, "ambiguous PACE mechanism")
	}
}
