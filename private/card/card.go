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

// Package card assembles the simulated card: the security status, the chip
// date, the trust store and the protocol implementations behind a single
// APDU dispatch entry point. PACE itself is out of scope; the mechanisms a
// completed PACE run would have deposited are seeded from configuration and
// re-deposited on every card reset.
package card

import (
	"context"
	"io"

	"github.com/eidsim/eidsim/pkg/apdu"
	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/log"
	"github.com/eidsim/eidsim/private/secstatus"
	"github.com/eidsim/eidsim/private/ta"
	"github.com/eidsim/eidsim/private/trust"
)

// PaceSeed describes the outcome of the PACE run the simulator assumes has
// happened: the terminal type the card holder admitted, the compressed
// ephemeral chip key (id_ICC), and the confined authorizations.
type PaceSeed struct {
	TerminalTypeOid            cvc.Oid
	CompressedEphemeralChipKey []byte
	ConfinedAuthorizations     map[cvc.Oid]secstatus.Authorization
}

// Config configures a card.
type Config struct {
	Trust trust.Store
	Date  *Date
	Seed  PaceSeed
	// Rand is the challenge source, defaulting to crypto/rand.
	Rand    io.Reader
	Logger  log.Logger
	Metrics ta.Metrics
}

// Card is the simulated card.
type Card struct {
	status   *secstatus.Status
	protocol *ta.Protocol
	seed     PaceSeed
	logger   log.Logger
}

// New assembles a card and powers it on.
func New(cfg Config) *Card {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Root()
	}
	c := &Card{
		status: secstatus.New(),
		seed:   cfg.Seed,
		logger: logger,
	}
	c.protocol = ta.New(ta.Config{
		Status:  c.status,
		Trust:   cfg.Trust,
		Date:    cfg.Date,
		Rand:    cfg.Rand,
		Logger:  logger,
		Metrics: cfg.Metrics,
	})
	c.depositSeed()
	return c
}

func (c *Card) depositSeed() {
	c.status.Update(&secstatus.PaceMechanism{
		TerminalTypeOid:            c.seed.TerminalTypeOid,
		CompressedEphemeralChipKey: c.seed.CompressedEphemeralChipKey,
	})
	c.status.Update(&secstatus.ConfinedAuthorizationMechanism{
		Store: secstatus.NewAuthorizationStore(c.seed.ConfinedAuthorizations),
	})
}

// Process handles one raw command APDU and returns the raw response APDU.
func (c *Card) Process(ctx context.Context, raw []byte) []byte {
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		log.FromCtx(ctx).Debug("unparsable command", "err", err)
		return apdu.New(apdu.SWImplementationError, "unparsable command").Encode()
	}
	resp, ok := c.protocol.Handle(ctx, cmd)
	if !ok {
		resp = apdu.New(apdu.SWInstructionNotSupported, "unsupported instruction")
	}
	return resp.Encode()
}

// Reset returns the card to its powered-on state: protocol session cleared,
// security status wiped and the assumed PACE outcome re-deposited.
func (c *Card) Reset() {
	c.protocol.Reset()
	c.status.Reset()
	c.depositSeed()
	c.logger.Debug("card reset")
}

// SecurityStatus exposes the card security status, e.g. for inspection after
// a completed protocol run.
func (c *Card) SecurityStatus() *secstatus.Status {
	return c.status
}
