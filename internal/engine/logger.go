package engine

import (
	"log"
	"os"
)

// Logger is the minimal structured-ish logging surface the runtime
// needs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger is the default Logger, wrapping log.Logger: one prefixed
// line per event, no buffering, safe for concurrent use even though a
// single worker never calls it concurrently with itself.
type stdLogger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewStdLogger builds a Logger writing to os.Stderr with level prefixes.
func NewStdLogger() Logger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &stdLogger{
		debug: log.New(os.Stderr, "DEBUG ", flags),
		info:  log.New(os.Stderr, "INFO  ", flags),
		warn:  log.New(os.Stderr, "WARN  ", flags),
		err:   log.New(os.Stderr, "ERROR ", flags),
	}
}

func (l *stdLogger) Debugf(format string, args ...any) { l.debug.Printf(format, args...) }
func (l *stdLogger) Infof(format string, args ...any)  { l.info.Printf(format, args...) }
func (l *stdLogger) Warnf(format string, args ...any)  { l.warn.Printf(format, args...) }
func (l *stdLogger) Errorf(format string, args ...any) { l.err.Printf(format, args...) }

// discardLogger drops everything, useful in tests.
type discardLogger struct{}

// NewDiscardLogger returns a Logger that drops all output.
func NewDiscardLogger() Logger { return discardLogger{} }

func (discardLogger) Debugf(string, ...any) {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Errorf(string, ...any) {}
