// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package telemetry wraps the logging backend (go.uber.org/zap). The
// subsystems that log (bft.Engine, core.Node) take a *zap.Logger, the type
// Logger aliases, at construction instead of reaching for a package-level
// global.
package telemetry

import (
	"go.uber.org/zap"
)

// Logger is the structured logger type, an alias for zap.Logger.
type Logger = zap.Logger

// New returns a production logger (JSON encoding, info level).
func New() (*Logger, error) {
	return zap.NewProduction()
}

// NewDevelopment returns a human-readable, debug-level logger for tests and
// local runs.
func NewDevelopment() (*Logger, error) {
	return zap.NewDevelopment()
}

// NewNoOp returns a logger that discards everything, for components that
// are constructed without an operator-supplied logger (e.g. unit tests that
// don't care about log output).
func NewNoOp() *Logger {
	return zap.NewNop()
}

// Sugar is shorthand for constructing a SugaredLogger from l, matching
// the informal keyword-argument logging calls the pack's BFT engines use
// (e.g. Logger.Infow("enter_view", "view", v)).
func Sugar(l *Logger) *zap.SugaredLogger {
	return l.Sugar()
}
