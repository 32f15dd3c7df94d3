package hdmoonshine

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the sink for delegate diagnostics. Sync runs concurrently, so
// implementations must be safe for use from several goroutines.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes level-tagged lines. Debug and info go to out, warnings
// and errors to err; both may be the same writer.
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

// NewDefaultLogger logs to stdout and stderr.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return newLogger(os.Stdout, os.Stderr, prefix, debug)
}

// NewWriterLogger sends every level to w.
func NewWriterLogger(w io.Writer, prefix string, debug bool) *DefaultLogger {
	return newLogger(w, w, prefix, debug)
}

func newLogger(out, err io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(err, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) line(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return level + ": " + msg
	}
	return "[" + l.prefix + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.out.Print(l.line("DEBUG", format, args...))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args...))
}

type nopLogger struct{}

// NewNopLogger discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// ErrorKind classifies coding errors reported during sync.
type ErrorKind string

const (
	ErrorUnsupportedNode   ErrorKind = "unsupported_node"
	ErrorUnsupportedFormat ErrorKind = "unsupported_format"
	ErrorUnknownValueType  ErrorKind = "unknown_value_type"
	ErrorUnconsumedBits    ErrorKind = "unconsumed_dirty_bits"
	ErrorStructuralChange  ErrorKind = "structural_change"
	ErrorInvalidData       ErrorKind = "invalid_data"
)

// codingError reports a non-fatal inconsistency attributed to a prim. The
// affected binding or prim keeps its previous state.
func (rp *RenderParam) codingError(kind ErrorKind, id fmt.Stringer, format string, args ...any) {
	rp.metrics.codingErrors.WithLabelValues(string(kind)).Inc()
	rp.logger.Errorf("%s: %s", id, fmt.Sprintf(format, args...))
}
