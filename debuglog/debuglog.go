package debuglog

import (
	"io"
	"log"
)

// Verbosity levels. The numbering leaves room for intermediate
// levels between the silent default and full per-frame tracing.
type Level int

const (
	None  Level = 0
	Debug Level = 4
	Trace Level = 5
)

// Logger is a thin leveled wrapper over the standard logger used by
// the CLI tools. Warnings are always emitted; debug and trace lines
// are gated by the configured level. A nil *Logger is valid and
// discards everything, which keeps library call sites unconditional.
type Logger struct {
	out   *log.Logger
	level Level
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:   log.New(w, "", log.LstdFlags),
		level: level,
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Printf("[WARN] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || l.level < Debug {
		return
	}
	l.out.Printf("[DEBUG] "+format, args...)
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	if l == nil || l.level < Trace {
		return
	}
	l.out.Printf("[TRACE] "+format, args...)
}
