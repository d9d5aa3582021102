// Package rlog provides the thin structured-audit-logging wrapper used
// across this module, modeled on boulder's blog.Logger: a small set of
// named severities, a JSON "audit object" for events worth grepping for,
// and a mock implementation for assertions in tests.
package rlog

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging surface every package in this module accepts.
// Production code talks to *SlogLogger; tests talk to *Mock.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	AuditErrf(format string, args ...any)
	AuditObject(message string, obj any)
}

// New returns a Logger writing structured JSON to stderr.
func New() *SlogLogger {
	return &SlogLogger{slog.New(slog.NewJSONHandler(os.Stderr, nil))}
}

// SlogLogger is the production Logger, backed by log/slog from the
// standard library. This is the one ambient concern in this module that
// is not wired to a third-party dependency — see DESIGN.md.
type SlogLogger struct {
	inner *slog.Logger
}

func (l *SlogLogger) Infof(format string, args ...any) {
	l.inner.Info(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Warningf(format string, args ...any) {
	l.inner.Warn(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) AuditErrf(format string, args ...any) {
	l.inner.Error(fmt.Sprintf(format, args...), "audit", true)
}

func (l *SlogLogger) AuditObject(message string, obj any) {
	l.inner.Info(message, "audit", true, "object", obj)
}

// Mock is a Logger that records every line for assertions in tests,
// mirroring boulder's blog.Mock used by web/context_test.go's TestLogCode.
type Mock struct {
	mu    sync.Mutex
	lines []string
}

// UseMock returns a fresh Mock logger.
func UseMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
}

func (m *Mock) Infof(format string, args ...any)      { m.record("INFO: " + fmt.Sprintf(format, args...)) }
func (m *Mock) Warningf(format string, args ...any)   { m.record("WARN: " + fmt.Sprintf(format, args...)) }
func (m *Mock) AuditErrf(format string, args ...any)  { m.record("AUDIT-ERR: " + fmt.Sprintf(format, args...)) }
func (m *Mock) AuditObject(message string, obj any) {
	m.record(fmt.Sprintf("AUDIT: %s JSON=%+v", message, obj))
}

// GetAll returns every recorded line, in order.
func (m *Mock) GetAll() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}
