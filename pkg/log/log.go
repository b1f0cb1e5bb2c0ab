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

// Package log provides a thin wrapper around zap with a process-wide root
// logger and key/value style logging calls.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

// Level is the log level.
type Level = zapcore.Level

// The levels understood by Setup.
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	ErrorLevel = zapcore.ErrorLevel
)

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(lvl)
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}

// Config configures the root logger.
type Config struct {
	// Level of logging, one of "debug", "info", "error". Empty means info.
	Level string
}

var root = &logger{logger: zap.NewNop()}

// Setup configures the root logger. It must be called before the root logger
// is used.
func Setup(cfg Config) error {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	zCfg := zap.NewProductionConfig()
	zCfg.Level = zap.NewAtomicLevelAt(lvl)
	zCfg.DisableStacktrace = true
	zLogger, err := zCfg.Build()
	if err != nil {
		return err
	}
	root = &logger{logger: zLogger}
	return nil
}

func parseLevel(lvl string) (zapcore.Level, error) {
	if lvl == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return 0, fmt.Errorf("unsupported log level: %q", lvl)
	}
	return l, nil
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	return root
}

// Flush writes the logs to the underlying buffer.
func Flush() {
	_ = root.logger.Sync()
}

// Debug logs at debug level on the root logger.
func Debug(msg string, ctx ...any) {
	Root().Debug(msg, ctx...)
}

// Info logs at info level on the root logger.
func Info(msg string, ctx ...any) {
	Root().Info(msg, ctx...)
}

// Error logs at error level on the root logger.
func Error(msg string, ctx ...any) {
	Root().Error(msg, ctx...)
}

// DiscardLogger implements the Logger interface and discards all messages.
// Used in tests.
type DiscardLogger struct{}

func (DiscardLogger) New(ctx ...any) Logger          { return DiscardLogger{} }
func (DiscardLogger) Debug(msg string, ctx ...any)   {}
func (DiscardLogger) Info(msg string, ctx ...any)    {}
func (DiscardLogger) Error(msg string, ctx ...any)   {}
func (DiscardLogger) Enabled(lvl Level) bool         { return false }
