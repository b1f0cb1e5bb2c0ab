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

package card

import "time"

// Date is the chip-internal current date, day granularity. It only ever
// moves forward; it survives session resets but not card restarts unless
// re-personalised from the configuration.
type Date struct {
	current time.Time
}

// NewDate creates the chip date, truncated to day granularity.
func NewDate(t time.Time) *Date {
	y, m, d := t.UTC().Date()
	return &Date{current: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Current returns the chip date.
func (d *Date) Current() time.Time {
	return d.current
}

// Advance moves the chip date forward. Earlier dates are ignored.
func (d *Date) Advance(t time.Time) {
	if t.After(d.current) {
		d.current = t
	}
}
