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

// Package trust holds the CVCA trust anchors of the card. Each terminal
// type has at most one trust point with a current and a previous anchor;
// importing a CVCA link certificate rotates the slots and never discards
// the newest anchor.
package trust

import (
	"context"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/private/serrors"
)

// ErrNotFound indicates that no trust point exists for a terminal type.
var ErrNotFound = serrors.New("trust point not found")

// Point is the pair of anchors for one terminal type. Both certificates
// have the CVCA role. Previous may be nil on a freshly personalised card.
type Point struct {
	Current  *cvc.Certificate
	Previous *cvc.Certificate
}

// Match returns the anchor whose holder reference equals ref, preferring
// the current slot, or false.
func (p Point) Match(ref cvc.Reference) (*cvc.Certificate, bool) {
	if p.Current != nil && p.Current.CHR == ref {
		return p.Current, true
	}
	if p.Previous != nil && p.Previous.CHR == ref {
		return p.Previous, true
	}
	return nil, false
}

// Store gives access to the trust points.
type Store interface {
	// Point returns the trust point for the terminal type, or ErrNotFound.
	Point(ctx context.Context, tt cvc.TerminalType) (Point, error)
	// Rollover rotates the trust point: previous becomes the old current,
	// current becomes newCVCA. Fails with ErrNotFound if no trust point
	// exists for the terminal type.
	Rollover(ctx context.Context, tt cvc.TerminalType, newCVCA *cvc.Certificate) error
}

// MemoryStore is an in-memory trust store.
type MemoryStore struct {
	points map[cvc.TerminalType]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[cvc.TerminalType]Point)}
}

// Seed installs the trust point for a terminal type, e.g. during
// personalisation.
func (s *MemoryStore) Seed(tt cvc.TerminalType, p Point) error {
	if p.Current == nil {
		return serrors.New("trust point without current anchor", "terminal_type", tt)
	}
	if p.Current.Role() != cvc.RoleCVCA {
		return serrors.New("anchor is not a CVCA certificate", "chr", p.Current.CHR)
	}
	s.points[tt] = p
	return nil
}

// Point implements Store.
func (s *MemoryStore) Point(ctx context.Context, tt cvc.TerminalType) (Point, error) {
	p, ok := s.points[tt]
	if !ok {
		return Point{}, ErrNotFound
	}
	return p, nil
}

// Rollover implements Store.
func (s *MemoryStore) Rollover(ctx context.Context, tt cvc.TerminalType,
	newCVCA *cvc.Certificate) error {

	p, ok := s.points[tt]
	if !ok {
		return ErrNotFound
	}
	s.points[tt] = Point{Current: newCVCA, Previous: p.Current}
	return nil
}
