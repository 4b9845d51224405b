package vtsmap

import (
	"fmt"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

// LoggingModule installs a default logger into the runtime context.
type LoggingModule struct {
	Prefix string
	Debug  bool
}

func (m LoggingModule) Install(rt *Runtime) {
	prefix := m.Prefix
	if prefix == "" {
		prefix = "vts"
	}
	rt.ctx.SetLogger(NewDefaultLogger(prefix, m.Debug || rt.ctx.Config.Debug))
}

// Nop logger

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// EngineLogLevel mirrors the native engine's log levels.
type EngineLogLevel int

const (
	EngineLogDebug EngineLogLevel = iota
	EngineLogInfo
	EngineLogWarning
	EngineLogError
	EngineLogFatal
)

// EngineLogSink returns a callback suitable for the engine's log hook.
// It may be called from any engine thread.
func (c *Context) EngineLogSink() func(level EngineLogLevel, msg string) {
	return func(level EngineLogLevel, msg string) {
		l := c.Logger()
		switch level {
		case EngineLogDebug:
			l.Debugf("engine: %s", msg)
		case EngineLogInfo:
			l.Infof("engine: %s", msg)
		case EngineLogWarning:
			l.Warnf("engine: %s", msg)
		default:
			l.Errorf("engine: %s", msg)
		}
	}
}
