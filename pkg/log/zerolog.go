package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	if err, rest, ok := leadingError(fields); ok {
		ctx = ctx.AnErr("error", err)
		fields = rest
	}
	if len(fields) > 0 {
		ctx = ctx.Fields(fields)
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zl := toZerologLevel(level)
	return zl >= l.zl.GetLevel() && zl >= zerolog.GlobalLevel()
}

// emit writes a single event. A nil event means the level is disabled.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if err, rest, ok := leadingError(fields); ok {
		ev = ev.Err(err).Str(StacktraceKey, fmt.Sprintf("%+v", err))
		fields = rest
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

func leadingError(fields []any) (error, []any, bool) {
	if len(fields) == 0 || len(fields)%2 == 0 {
		return nil, fields, false
	}
	err, ok := fields[0].(error)
	if !ok {
		return nil, fields, false
	}
	return err, fields[1:], true
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider is the default LoggerProvider.
type ZerologProvider struct {
	mu   sync.RWMutex
	base zerolog.Logger
}

// NewZerologProvider returns a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger(),
	}
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

// warn routes an errors.Warn value into the log stream.
func (p *ZerologProvider) warn(w error) {
	p.mu.RLock()
	zl := p.base
	p.mu.RUnlock()

	ev := zl.Warn().Str(ComponentKey, "warnings")
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object("warning", m)
	}
	ev.Str(ErrorTypeKey, fmt.Sprintf("%T", w)).Msg(w.Error())
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// SetProvider replaces the global provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns a logger from the global provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", s)
	}
}

// SetupLogger installs a zerolog provider on w using Cloud Logging field
// names and routes errors.Warn through it. A nil writer means stderr.
func SetupLogger(level string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}

	zerolog.LevelFieldName = "severity"
	zerolog.MessageFieldName = "message"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}

	p := NewZerologProvider(w, lvl)
	SetProvider(p)
	errors.SetZerologWarnFunc(p.warn)
	return nil
}
