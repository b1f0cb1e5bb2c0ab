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

// Package config defines the TOML configuration of the simulator. Binary
// values (certificates, keys, authorization bitfields, the ATR) are hex
// encoded in the file.
package config

import (
	"encoding/hex"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/private/card"
	"github.com/eidsim/eidsim/private/secstatus"
	"github.com/eidsim/eidsim/private/trust"
)

// Defaults.
const (
	// DefaultListenAddr is the vpcd virtual reader port.
	DefaultListenAddr = "localhost:35963"
	// DefaultATR mimics a contactless eID document.
	DefaultATR = "3B8880010000000000000000"
)

// Config is the top level simulator configuration.
type Config struct {
	General General `toml:"general"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
	Trust   Trust   `toml:"trust"`
	Card    Card    `toml:"card"`
	Pace    Pace    `toml:"pace"`
}

// General holds the reader-facing settings.
type General struct {
	// ListenAddr is the vpcd listen address.
	ListenAddr string `toml:"listen_addr"`
	// ATR is the answer-to-reset, hex encoded.
	ATR string `toml:"atr"`
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, error. Empty means info.
	Level string `toml:"level"`
}

// Metrics configures the prometheus endpoint. An empty address disables it.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Trust configures the trust points.
type Trust struct {
	// DBPath is the sqlite trust database. Empty means in-memory only.
	DBPath string `toml:"db_path"`
	// Anchors seed trust points that are not yet in the database.
	Anchors []Anchor `toml:"anchors"`
}

// Anchor is one configured CVCA trust anchor.
type Anchor struct {
	// TerminalType is one of IS, AT, ST.
	TerminalType string `toml:"terminal_type"`
	// Certificate is the hex encoded CVCA certificate.
	Certificate string `toml:"certificate"`
	// Previous optionally carries the prior anchor after a rollover.
	Previous string `toml:"previous"`
}

// Card configures the chip state.
type Card struct {
	// ChipDate is the initial chip date, YYYY-MM-DD. Empty means today.
	ChipDate string `toml:"chip_date"`
}

// Pace describes the assumed PACE outcome seeded into the security status.
type Pace struct {
	// TerminalType is one of IS, AT, ST.
	TerminalType string `toml:"terminal_type"`
	// ChipKey is the hex encoded compressed ephemeral chip key (id_ICC).
	ChipKey string `toml:"chip_key"`
	// Authorizations maps terminal types to hex encoded confined
	// authorization bitfields.
	Authorizations map[string]string `toml:"authorizations"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading config", err, "path", path)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, serrors.Wrap("parsing config", err, "path", path)
	}
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitDefaults fills in unset values.
func (c *Config) InitDefaults() {
	if c.General.ListenAddr == "" {
		c.General.ListenAddr = DefaultListenAddr
	}
	if c.General.ATR == "" {
		c.General.ATR = DefaultATR
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := c.ATR(); err != nil {
		return err
	}
	if _, err := c.ChipDate(); err != nil {
		return err
	}
	if _, err := c.TrustPoints(); err != nil {
		return err
	}
	if _, err := c.PaceSeed(); err != nil {
		return err
	}
	return nil
}

// ATR returns the decoded answer-to-reset.
func (c *Config) ATR() ([]byte, error) {
	atr, err := hex.DecodeString(c.General.ATR)
	if err != nil {
		return nil, serrors.Wrap("decoding ATR", err)
	}
	return atr, nil
}

// ChipDate returns the configured chip date, or today if unset.
func (c *Config) ChipDate() (time.Time, error) {
	if c.Card.ChipDate == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", c.Card.ChipDate)
	if err != nil {
		return time.Time{}, serrors.Wrap("parsing chip date", err, "value", c.Card.ChipDate)
	}
	return t, nil
}

// TrustPoints decodes the configured anchors.
func (c *Config) TrustPoints() (map[cvc.TerminalType]trust.Point, error) {
	points := make(map[cvc.TerminalType]trust.Point, len(c.Trust.Anchors))
	for _, anchor := range c.Trust.Anchors {
		tt, err := parseTerminalType(anchor.TerminalType)
		if err != nil {
			return nil, err
		}
		if _, ok := points[tt]; ok {
			return nil, serrors.New("duplicate anchor", "terminal_type", tt)
		}
		p := trust.Point{}
		if p.Current, err = decodeCertificate(anchor.Certificate); err != nil {
			return nil, serrors.Wrap("decoding anchor", err, "terminal_type", tt)
		}
		if anchor.Previous != "" {
			if p.Previous, err = decodeCertificate(anchor.Previous); err != nil {
				return nil, serrors.Wrap("decoding previous anchor", err, "terminal_type", tt)
			}
		}
		points[tt] = p
	}
	return points, nil
}

// PaceSeed decodes the assumed PACE outcome.
func (c *Config) PaceSeed() (card.PaceSeed, error) {
	tt, err := parseTerminalType(c.Pace.TerminalType)
	if err != nil {
		return card.PaceSeed{}, err
	}
	chipKey, err := hex.DecodeString(c.Pace.ChipKey)
	if err != nil {
		return card.PaceSeed{}, serrors.Wrap("decoding chip key", err)
	}
	if len(chipKey) == 0 {
		return card.PaceSeed{}, serrors.New("missing chip key")
	}
	auths := make(map[cvc.Oid]secstatus.Authorization, len(c.Pace.Authorizations))
	for name, value := range c.Pace.Authorizations {
		att, err := parseTerminalType(name)
		if err != nil {
			return card.PaceSeed{}, err
		}
		bits, err := hex.DecodeString(value)
		if err != nil {
			return card.PaceSeed{}, serrors.Wrap("decoding authorization", err,
				"terminal_type", att)
		}
		auths[att.Oid()] = secstatus.Authorization{Bits: bits}
	}
	return card.PaceSeed{
		TerminalTypeOid:            tt.Oid(),
		CompressedEphemeralChipKey: chipKey,
		ConfinedAuthorizations:     auths,
	}, nil
}

func parseTerminalType(s string) (cvc.TerminalType, error) {
	switch s {
	case "IS":
		return cvc.InspectionSystem, nil
	case "AT":
		return cvc.AuthenticationTerminal, nil
	case "ST":
		return cvc.SignatureTerminal, nil
	default:
		return 0, serrors.New("unknown terminal type", "value", s)
	}
}

func decodeCertificate(s string) (*cvc.Certificate, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, serrors.Wrap("decoding hex", err)
	}
	return cvc.ParseBytes(raw)
}
