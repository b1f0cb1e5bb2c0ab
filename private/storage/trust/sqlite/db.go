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

// Package sqlite persists trust points in a sqlite database so that CVCA
// rollovers survive simulator restarts. Certificates are stored in their
// raw encoding and re-parsed on load.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/private/trust"
)

const schema = `
CREATE TABLE IF NOT EXISTS trust_points (
	terminal_type INTEGER NOT NULL,
	slot INTEGER NOT NULL,
	certificate BLOB NOT NULL,
	PRIMARY KEY (terminal_type, slot)
);
`

const (
	slotCurrent  = 0
	slotPrevious = 1
)

// DB is a sqlite backed trust store. It implements trust.Store.
type DB struct {
	db *sql.DB
}

// New opens or creates the database at path. Writes are serialised through
// a single connection, matching the single-threaded card dispatch.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite",
		"file:"+path+"?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)")
	if err != nil {
		return nil, serrors.Wrap("opening database", err, "path", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, serrors.Wrap("creating schema", err, "path", path)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Point implements trust.Store.
func (d *DB) Point(ctx context.Context, tt cvc.TerminalType) (trust.Point, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT slot, certificate FROM trust_points WHERE terminal_type = ?`, int(tt))
	if err != nil {
		return trust.Point{}, serrors.Wrap("querying trust point", err, "terminal_type", tt)
	}
	defer rows.Close()

	var p trust.Point
	for rows.Next() {
		var (
			slot int
			raw  []byte
		)
		if err := rows.Scan(&slot, &raw); err != nil {
			return trust.Point{}, serrors.Wrap("scanning trust point", err)
		}
		cert, err := cvc.ParseBytes(raw)
		if err != nil {
			return trust.Point{}, serrors.Wrap("parsing stored certificate", err,
				"terminal_type", tt, "slot", slot)
		}
		switch slot {
		case slotCurrent:
			p.Current = cert
		case slotPrevious:
			p.Previous = cert
		}
	}
	if err := rows.Err(); err != nil {
		return trust.Point{}, serrors.Wrap("iterating trust points", err)
	}
	if p.Current == nil {
		return trust.Point{}, trust.ErrNotFound
	}
	return p, nil
}

// Rollover implements trust.Store.
func (d *DB) Rollover(ctx context.Context, tt cvc.TerminalType,
	newCVCA *cvc.Certificate) error {

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return serrors.Wrap("starting transaction", err)
	}
	defer tx.Rollback()

	var current []byte
	err = tx.QueryRowContext(ctx,
		`SELECT certificate FROM trust_points WHERE terminal_type = ? AND slot = ?`,
		int(tt), slotCurrent).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return trust.ErrNotFound
	}
	if err != nil {
		return serrors.Wrap("reading current anchor", err, "terminal_type", tt)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO trust_points (terminal_type, slot, certificate) VALUES (?, ?, ?)`,
		int(tt), slotPrevious, current); err != nil {
		return serrors.Wrap("rotating previous anchor", err, "terminal_type", tt)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO trust_points (terminal_type, slot, certificate) VALUES (?, ?, ?)`,
		int(tt), slotCurrent, newCVCA.Encode()); err != nil {
		return serrors.Wrap("writing new anchor", err, "terminal_type", tt)
	}
	return tx.Commit()
}

// Seed installs a trust point, overwriting whatever is stored for the
// terminal type. Used during personalisation.
func (d *DB) Seed(ctx context.Context, tt cvc.TerminalType, p trust.Point) error {
	if p.Current == nil {
		return serrors.New("trust point without current anchor", "terminal_type", tt)
	}
	if p.Current.Role() != cvc.RoleCVCA {
		return serrors.New("anchor is not a CVCA certificate", "chr", p.Current.CHR)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return serrors.Wrap("starting transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trust_points WHERE terminal_type = ?`, int(tt)); err != nil {
		return serrors.Wrap("clearing trust point", err, "terminal_type", tt)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trust_points (terminal_type, slot, certificate) VALUES (?, ?, ?)`,
		int(tt), slotCurrent, p.Current.Encode()); err != nil {
		return serrors.Wrap("writing current anchor", err, "terminal_type", tt)
	}
	if p.Previous != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trust_points (terminal_type, slot, certificate) VALUES (?, ?, ?)`,
			int(tt), slotPrevious, p.Previous.Encode()); err != nil {
			return serrors.Wrap("writing previous anchor", err, "terminal_type", tt)
		}
	}
	return tx.Commit()
}

// Points returns all stored trust points keyed by terminal type.
func (d *DB) Points(ctx context.Context) (map[cvc.TerminalType]trust.Point, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT terminal_type FROM trust_points WHERE slot = ?`, slotCurrent)
	if err != nil {
		return nil, serrors.Wrap("querying terminal types", err)
	}
	defer rows.Close()

	var types []cvc.TerminalType
	for rows.Next() {
		var tt int
		if err := rows.Scan(&tt); err != nil {
			return nil, serrors.Wrap("scanning terminal type", err)
		}
		types = append(types, cvc.TerminalType(tt))
	}
	if err := rows.Err(); err != nil {
		return nil, serrors.Wrap("iterating terminal types", err)
	}

	points := make(map[cvc.TerminalType]trust.Point, len(types))
	for _, tt := range types {
		p, err := d.Point(ctx, tt)
		if err != nil {
			return nil, err
		}
		points[tt] = p
	}
	return points, nil
}
