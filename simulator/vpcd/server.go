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

// Package vpcd serves the virtual smart-card reader protocol of vpcd: every
// message is prefixed with a 2 byte big-endian length; one-byte messages are
// control commands (power off, power on, reset, ATR request), longer
// messages are command APDUs answered with response APDUs.
package vpcd

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/eidsim/eidsim/pkg/log"
	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// Control messages.
const (
	ctrlPowerOff byte = 0
	ctrlPowerOn  byte = 1
	ctrlReset    byte = 2
	ctrlATR      byte = 4
)

// Card is the card the server fronts.
type Card interface {
	Process(ctx context.Context, raw []byte) []byte
	Reset()
}

// Config configures the server.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ATR is returned on ATR requests.
	ATR []byte
	// Card handles APDUs and resets.
	Card Card
	// Logger defaults to the root logger.
	Logger log.Logger
}

// Server accepts vpcd reader connections. Multiple readers may connect; card
// access is serialised, matching the card's single-threaded dispatch.
type Server struct {
	listener net.Listener
	atr      []byte
	card     Card
	logger   log.Logger

	mtx sync.Mutex
}

// New creates a server listening on the configured address.
func New(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, serrors.Wrap("listening", err, "addr", cfg.Addr)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Root()
	}
	return &Server{
		listener: listener,
		atr:      cfg.ATR,
		card:     cfg.Card,
		logger:   logger,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	s.logger.Info("vpcd server listening", "addr", s.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return serrors.Wrap("accepting connection", err)
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.logger.New("reader", conn.RemoteAddr().String())
	logger.Info("reader connected")
	ctx = log.CtxWith(ctx, logger)
	for {
		frame, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("connection read failed", "err", err)
			}
			logger.Info("reader disconnected")
			return
		}
		if err := s.handleFrame(ctx, conn, frame); err != nil {
			logger.Debug("dropping reader", "err", err)
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, conn net.Conn, frame []byte) error {
	if len(frame) == 1 {
		switch frame[0] {
		case ctrlPowerOff, ctrlPowerOn, ctrlReset:
			s.mtx.Lock()
			s.card.Reset()
			s.mtx.Unlock()
			return nil
		case ctrlATR:
			return writeFrame(conn, s.atr)
		default:
			return serrors.New("unknown control message", "value", frame[0])
		}
	}
	s.mtx.Lock()
	resp := s.card.Process(ctx, frame)
	s.mtx.Unlock()
	return writeFrame(conn, resp)
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(hdr[:]))
	if length == 0 {
		return nil, serrors.New("empty frame")
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, serrors.Wrap("reading frame", err, "len", length)
	}
	return frame, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > 0xFFFF {
		return serrors.New("frame too large", "len", len(payload))
	}
	out := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(out, uint16(len(payload)))
	copy(out[2:], payload)
	if _, err := w.Write(out); err != nil {
		return serrors.Wrap("writing frame", err)
	}
	return nil
}
