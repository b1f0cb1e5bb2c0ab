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
	"errors"
	"fmt"

	"github.com/eidsim/eidsim/pkg/apdu"
	"github.com/eidsim/eidsim/pkg/log"
)

// ProtocolError is a handler failure that maps to a single response APDU.
// The reason string accompanies the status word for logging only.
type ProtocolError struct {
	SW     uint16
	Reason string
	Cause  error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

func fail(sw uint16, reason string) error {
	return &ProtocolError{SW: sw, Reason: reason}
}

func failCause(sw uint16, reason string, cause error) error {
	return &ProtocolError{SW: sw, Reason: reason, Cause: cause}
}

// errorResponse converts a handler error into the response APDU. Errors that
// are not protocol errors indicate a defect and map to 6FFF.
func errorResponse(err error, logger log.Logger) apdu.Response {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		if pe.Cause != nil {
			logger.Debug("command failed", "sw", pe.SW, "reason", pe.Reason, "err", pe.Cause)
		}
		return apdu.New(pe.SW, pe.Reason)
	}
	logger.Error("internal handler error", "err", err)
	return apdu.New(apdu.SWImplementationError, "internal error")
}
