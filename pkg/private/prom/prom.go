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

// Package prom contains some utility functions for dealing with prometheus
// metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Common label values.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelOperation is the label for the name of an executed operation.
	LabelOperation = "op"
)

// Common result values.
const (
	// Success is no error.
	Success = "ok_success"
	// ErrCrypto is used for crypto related errors.
	ErrCrypto = "err_crypto"
	// ErrParse failed to parse a request.
	ErrParse = "err_parse"
	// ErrValidate is used for validation related errors.
	ErrValidate = "err_validate"
	// ErrVerify is used for verification related errors.
	ErrVerify = "err_verify"
	// ErrState is used for commands arriving in the wrong protocol state.
	ErrState = "err_state"
	// ErrNotFound is used for errors where a referenced entity is not found.
	ErrNotFound = "err_not_found"
)

// SafeRegister registers c and returns the registered collector. If c was
// already registered the already registered collector is returned. In case of
// any other error this method panicks (as MustRegister).
func SafeRegister(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// NewCounter creates a new prometheus counter that is registered with the
// default registry.
func NewCounter(namespace, subsystem, name, help string) prometheus.Counter {
	return promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
	)
}

// NewCounterVec creates a new prometheus counter vec that is registered with
// the default registry.
func NewCounterVec(namespace, subsystem, name, help string,
	labelNames []string) *prometheus.CounterVec {

	c := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labelNames,
	)
	return SafeRegister(c).(*prometheus.CounterVec)
}

// NewGauge creates a new prometheus gauge that is registered with the default
// registry.
func NewGauge(namespace, subsystem, name, help string) prometheus.Gauge {
	return promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
	)
}
