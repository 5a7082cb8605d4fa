// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/oit/internal/technique"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// backends holds the open backends the logger is propagated to.
var (
	backendsMu sync.Mutex
	backends   = make(map[loggerSetter]struct{})
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for oit and all its sub-packages.
// By default, oit produces no log output. Pass nil to restore the silent
// default.
//
// Log levels used by oit:
//   - [slog.LevelDebug]: per-frame pass traces and overflow statistics
//   - [slog.LevelInfo]: startup (backend chosen, scenes loaded)
//   - [slog.LevelWarn]: ignored input (inactive quadrant, unknown command)
//
// Example:
//
//	oit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	technique.SetLogger(l)

	backendsMu.Lock()
	defer backendsMu.Unlock()
	for b := range backends {
		b.SetLogger(l)
	}
}

// Logger returns the current logger used by oit.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// trackLogger hands the current logger to b and keeps it up to date until
// untrackLogger. Backends without a logger are ignored.
func trackLogger(b any) {
	ls, ok := b.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	backendsMu.Lock()
	backends[ls] = struct{}{}
	backendsMu.Unlock()
}

func untrackLogger(b any) {
	if ls, ok := b.(loggerSetter); ok {
		backendsMu.Lock()
		delete(backends, ls)
		backendsMu.Unlock()
	}
}
