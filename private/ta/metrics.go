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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eidsim/eidsim/pkg/apdu"
	"github.com/eidsim/eidsim/pkg/private/prom"
)

// Metrics counts handled commands. The zero value counts nothing.
type Metrics struct {
	Commands *prometheus.CounterVec
}

// NewMetrics registers the protocol metrics with the default registry.
func NewMetrics() Metrics {
	return Metrics{
		Commands: prom.NewCounterVec("eidsim", "ta", "commands_total",
			"Terminal authentication commands handled, by operation and result.",
			[]string{prom.LabelOperation, prom.LabelResult}),
	}
}

func (m Metrics) observe(op string, sw uint16) {
	if m.Commands == nil {
		return
	}
	m.Commands.WithLabelValues(op, resultLabel(sw)).Inc()
}

func resultLabel(sw uint16) string {
	switch sw {
	case apdu.SWNoError:
		return prom.Success
	case apdu.SWWrongData:
		return prom.ErrParse
	case apdu.SWReferenceDataNotFound:
		return prom.ErrNotFound
	case apdu.SWReferenceDataNotUsable:
		return prom.ErrValidate
	case apdu.SWAuthenticationFailed:
		return prom.ErrVerify
	case apdu.SWSecurityStatusNotSatisfied, apdu.SWConditionsOfUseNotSatisfied:
		return prom.ErrState
	default:
		return prom.ErrCrypto
	}
}
