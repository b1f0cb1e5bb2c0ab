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

// Package ta implements the card side of terminal authentication version 2,
// TR-03110 part 2 §3.4. A terminal proves possession of the private key of a
// terminal certificate by walking a CVC chain from one of the card's trust
// anchors and signing a card-bound challenge. The protocol is driven by five
// APDU commands dispatched through a handler table; all handlers run on the
// card dispatch goroutine.
package ta

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/eidsim/eidsim/pkg/apdu"
	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/log"
	"github.com/eidsim/eidsim/private/secstatus"
	"github.com/eidsim/eidsim/private/trust"
)

// Commands of the protocol, identified by INS and P1P2.
const (
	insMSE          byte = 0x22
	insPSO          byte = 0x2A
	insExternalAuth byte = 0x82
	insGetChallenge byte = 0x84

	p1p2SetDST      uint16 = 0x81B6
	p1p2SetAT       uint16 = 0xC1A4
	p1p2VerifyCert  uint16 = 0x00BE
	p1p2NoParameter uint16 = 0x0000
)

const challengeLength = 8

// state of the protocol run. Failed commands never advance the state.
type state int

const (
	stateIdle state = iota
	stateAnchorSet
	stateChainBuilt
	stateChallenged
	stateAuthenticated
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAnchorSet:
		return "anchor_set"
	case stateChainBuilt:
		return "chain_built"
	case stateChallenged:
		return "challenged"
	case stateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// ChipDate is the card's notion of the current date, day granularity. The
// protocol reads it for validity checks and advances it on import of certain
// certificates; implementations must ignore backward updates.
type ChipDate interface {
	Current() time.Time
	Advance(t time.Time)
}

// session is the per-run state, cleared by Reset.
type session struct {
	state        state
	terminalType cvc.TerminalType

	// current is the active verification authority: the anchor selected by
	// Set DST or the most recently imported chain certificate.
	current *cvc.Certificate
	// temporary is the single temporary import slot for DV and terminal
	// certificates.
	temporary *cvc.Certificate

	mechanism     cvc.Oid
	terminalKey   []byte
	auxiliaryData []secstatus.AuxiliaryDatum
	challenge     []byte
	auths         *secstatus.AuthorizationStore
}

// Config configures the protocol.
type Config struct {
	// Status is the card security status shared with the other protocols.
	Status *secstatus.Status
	// Trust holds the CVCA trust points.
	Trust trust.Store
	// Date is the chip date.
	Date ChipDate
	// Rand is the challenge source. Defaults to crypto/rand.
	Rand io.Reader
	// Logger defaults to the root logger.
	Logger log.Logger
	// Metrics may be zero, in which case nothing is counted.
	Metrics Metrics
}

// Protocol is the terminal authentication state machine.
type Protocol struct {
	status  *secstatus.Status
	trust   trust.Store
	date    ChipDate
	rand    io.Reader
	logger  log.Logger
	metrics Metrics

	handlers map[commandKey]commandHandler
	session  session
}

type commandKey struct {
	ins  byte
	p1p2 uint16
}

type commandHandler struct {
	op string
	// states the command is accepted in; nil means any state.
	states []state
	run    func(ctx context.Context, cmd apdu.Command) ([]byte, error)
}

// New creates the protocol in the idle state.
func New(cfg Config) *Protocol {
	p := &Protocol{
		status:  cfg.Status,
		trust:   cfg.Trust,
		date:    cfg.Date,
		rand:    cfg.Rand,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if p.rand == nil {
		p.rand = rand.Reader
	}
	if p.logger == nil {
		p.logger = log.Root()
	}
	p.handlers = map[commandKey]commandHandler{
		{insMSE, p1p2SetDST}: {
			op:  "set_dst",
			run: p.handleSetDST,
		},
		{insPSO, p1p2VerifyCert}: {
			op:     "verify_certificate",
			states: []state{stateAnchorSet},
			run:    p.handleVerifyCertificate,
		},
		{insMSE, p1p2SetAT}: {
			op:     "set_at",
			states: []state{stateAnchorSet},
			run:    p.handleSetAT,
		},
		{insGetChallenge, p1p2NoParameter}: {
			op:  "get_challenge",
			run: p.handleGetChallenge,
		},
		{insExternalAuth, p1p2NoParameter}: {
			op:     "external_authenticate",
			states: []state{stateChainBuilt, stateChallenged, stateAuthenticated},
			run:    p.handleExternalAuthenticate,
		},
	}
	return p
}

// Handle processes one command APDU. The second return value is false if the
// command does not belong to this protocol; the dispatcher then falls through
// to its default handling.
func (p *Protocol) Handle(ctx context.Context, cmd apdu.Command) (apdu.Response, bool) {
	h, ok := p.handlers[commandKey{ins: cmd.INS, p1p2: cmd.P1P2()}]
	if !ok {
		return apdu.Response{}, false
	}
	resp := p.process(ctx, h, cmd)
	p.metrics.observe(h.op, resp.SW)
	p.logger.Debug("handled command",
		"op", h.op, "state", p.session.state, "sw", resp.SW, "reason", resp.Reason)
	return resp, true
}

func (p *Protocol) process(ctx context.Context, h commandHandler,
	cmd apdu.Command) apdu.Response {

	if !cmd.SecureMessaging {
		return apdu.New(apdu.SWSecurityStatusNotSatisfied,
			"command arrived outside secure messaging")
	}
	if !stateAllowed(h.states, p.session.state) {
		return apdu.New(apdu.SWSecurityStatusNotSatisfied,
			"command not allowed in state "+p.session.state.String())
	}
	data, err := h.run(ctx, cmd)
	if err != nil {
		return errorResponse(err, p.logger)
	}
	return apdu.NewWithData(data, apdu.SWNoError, h.op+" ok")
}

func stateAllowed(states []state, s state) bool {
	if states == nil {
		return true
	}
	for _, allowed := range states {
		if s == allowed {
			return true
		}
	}
	return false
}

// Reset clears the session state, returning the protocol to idle. Mechanisms
// already deposited in the security status are the card's to clear.
func (p *Protocol) Reset() {
	p.session = session{}
}
