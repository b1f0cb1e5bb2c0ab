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

// Package apdu models ISO 7816-4 command and response APDUs as seen by the
// card side of the dialogue.
package apdu

import (
	"encoding/hex"
	"fmt"

	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// Command is a decoded command APDU. SecureMessaging records whether the
// command traversed the secure messaging layer before reaching a protocol
// handler; on the wire this is indicated by the CLA bits 0x0C.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
	// Ne is the maximum number of expected response data bytes, decoded
	// from the Le field. Zero if no Le field was present.
	Ne int
	// SecureMessaging is true if the command was unwrapped from a secure
	// messaging envelope.
	SecureMessaging bool
}

// ParseCommand decodes a command APDU from its raw byte representation.
// Short and extended length forms are supported.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < 4 {
		return Command{}, serrors.New("command header truncated", "len", len(raw))
	}
	cmd := Command{
		CLA:             raw[0],
		INS:             raw[1],
		P1:              raw[2],
		P2:              raw[3],
		SecureMessaging: raw[0]&0x0C == 0x0C,
	}
	body := raw[4:]
	switch {
	case len(body) == 0:
		// case 1, no data, no Le
	case len(body) == 1:
		// case 2 short
		cmd.Ne = ne(int(body[0]), 0x100)
	case body[0] != 0:
		// short Lc
		lc := int(body[0])
		if len(body) < 1+lc {
			return Command{}, serrors.New("command data truncated", "lc", lc, "available", len(body)-1)
		}
		cmd.Data = body[1 : 1+lc]
		switch rest := body[1+lc:]; len(rest) {
		case 0:
		case 1:
			cmd.Ne = ne(int(rest[0]), 0x100)
		default:
			return Command{}, serrors.New("trailing bytes after short Le", "count", len(rest))
		}
	default:
		// extended form, body[0] == 0
		if len(body) == 3 {
			// case 2 extended
			cmd.Ne = ne(int(body[1])<<8|int(body[2]), 0x10000)
			return cmd, nil
		}
		if len(body) < 3 {
			return Command{}, serrors.New("extended length field truncated")
		}
		lc := int(body[1])<<8 | int(body[2])
		if len(body) < 3+lc {
			return Command{}, serrors.New("command data truncated", "lc", lc, "available", len(body)-3)
		}
		cmd.Data = body[3 : 3+lc]
		switch rest := body[3+lc:]; len(rest) {
		case 0:
		case 2:
			cmd.Ne = ne(int(rest[0])<<8|int(rest[1]), 0x10000)
		default:
			return Command{}, serrors.New("trailing bytes after extended Le", "count", len(rest))
		}
	}
	return cmd, nil
}

func ne(le, max int) int {
	if le == 0 {
		return max
	}
	return le
}

// P1P2 returns the parameter bytes as a single big-endian value, the form
// used to key dispatch tables.
func (c Command) P1P2() uint16 {
	return uint16(c.P1)<<8 | uint16(c.P2)
}

func (c Command) String() string {
	return fmt.Sprintf("INS=0x%02X P1P2=0x%04X lc=%d", c.INS, c.P1P2(), len(c.Data))
}

// Response is a response APDU: optional data followed by a status word. The
// Reason string accompanies the response for logging and carries no protocol
// meaning.
type Response struct {
	Data   []byte
	SW     uint16
	Reason string
}

// New creates a data-less response.
func New(sw uint16, reason string) Response {
	return Response{SW: sw, Reason: reason}
}

// NewWithData creates a response carrying data.
func NewWithData(data []byte, sw uint16, reason string) Response {
	return Response{Data: data, SW: sw, Reason: reason}
}

// Encode returns the raw response APDU.
func (r Response) Encode() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, byte(r.SW>>8), byte(r.SW))
}

func (r Response) String() string {
	if len(r.Data) == 0 {
		return fmt.Sprintf("SW=0x%04X", r.SW)
	}
	return fmt.Sprintf("SW=0x%04X data=%s", r.SW, hex.EncodeToString(r.Data))
}
