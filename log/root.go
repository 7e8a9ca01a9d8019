// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var root atomic.Value

func init() {
	root.Store(&swapLogger{current: NewLogger(NewTerminalHandler(os.Stderr, false))})
}

// swapLogger lets package level loggers created with WithContext before SetDefault
// follow the default logger installed later by main.
type swapLogger struct {
	mu      sync.RWMutex
	current Logger
	ctx     []any
	parent  *swapLogger
}

func (s *swapLogger) get() Logger {
	if s.parent != nil {
		return s.parent.get().With(s.ctx...)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	r := root.Load().(*swapLogger)
	r.mu.Lock()
	r.current = l
	r.mu.Unlock()
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger.
func Root() Logger {
	return &deferred{root.Load().(*swapLogger)}
}

// WithContext returns a logger that carries the given context and always writes through
// the current default logger.
func WithContext(ctx ...any) Logger {
	return &deferred{&swapLogger{ctx: ctx, parent: root.Load().(*swapLogger)}}
}

// New creates a new logger with the given context.
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}

type deferred struct{ s *swapLogger }

func (d *deferred) With(ctx ...any) Logger {
	return &deferred{&swapLogger{ctx: ctx, parent: d.s}}
}
func (d *deferred) New(ctx ...any) Logger { return d.With(ctx...) }
func (d *deferred) Log(level slog.Level, msg string, ctx ...any) {
	d.s.get().Write(level, msg, ctx...)
}
func (d *deferred) Trace(msg string, ctx ...any) { d.s.get().Write(LevelTrace, msg, ctx...) }
func (d *deferred) Debug(msg string, ctx ...any) { d.s.get().Write(LevelDebug, msg, ctx...) }
func (d *deferred) Info(msg string, ctx ...any)  { d.s.get().Write(LevelInfo, msg, ctx...) }
func (d *deferred) Warn(msg string, ctx ...any)  { d.s.get().Write(LevelWarn, msg, ctx...) }
func (d *deferred) Error(msg string, ctx ...any) { d.s.get().Write(LevelError, msg, ctx...) }
func (d *deferred) Crit(msg string, ctx ...any) {
	d.s.get().Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}
func (d *deferred) Write(level slog.Level, msg string, attrs ...any) {
	d.s.get().Write(level, msg, attrs...)
}
func (d *deferred) Enabled(ctx context.Context, level slog.Level) bool {
	return d.s.get().Enabled(ctx, level)
}
func (d *deferred) Handler() slog.Handler { return d.s.get().Handler() }

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...any) { Root().Write(LevelTrace, msg, ctx...) }

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...any) { Root().Write(LevelDebug, msg, ctx...) }

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...any) { Root().Write(LevelInfo, msg, ctx...) }

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...any) { Root().Write(LevelWarn, msg, ctx...) }

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...any) { Root().Write(LevelError, msg, ctx...) }
