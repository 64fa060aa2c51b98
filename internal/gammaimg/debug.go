package gammaimg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler discards every record; Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the package logger. Passing nil restores the silent default.
// Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func DebugLog(format string, args ...interface{}) {
	if !Debug {
		return
	}
	Logger().Debug(fmt.Sprintf(format, args...))
}

var once sync.Once

func DebugLogOnce(format string, args ...interface{}) {
	if !Debug {
		return
	}
	once.Do(func() {
		Logger().Debug(fmt.Sprintf(format, args...))
	})
}
