// Test helpers for asserting on log output without touching the global
// zerolog configuration.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger captures log entries in memory as JSON lines.
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  *Level
	fields map[string]any
}

// NewTestLogger creates a TestLogger and returns the buffer it writes to.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	logger.Info("Artifact saved", log.PathKey, "model.bin")
//	// inspect buf.String()
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  &level,
		fields: make(map[string]any),
	}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	newFields := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		newFields[k] = v
	}
	addFields(newFields, fields)

	return &TestLogger{
		mu:     t.mu,
		buffer: t.buffer,
		level:  t.level,
		fields: newFields,
	}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if level < *t.level {
		return
	}

	entry := map[string]any{
		"severity": level.String(),
		"message":  msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	addFields(entry, fields)

	line, _ := json.Marshal(entry)
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
}

func addFields(dst map[string]any, fields []any) {
	if err, rest, ok := leadingError(fields); ok {
		dst["error"] = err.Error()
		fields = rest
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = fields[i+1]
		}
	}
}

// GetLogEntries parses the captured output into one map per line.
func (t *TestLogger) GetLogEntries() ([]map[string]any, error) {
	t.mu.Lock()
	raw := t.buffer.String()
	t.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any captured entry contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether any entry has key set to value.
// Numbers round-trip through JSON, so compare against float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops all captured output.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Reset()
}

// TestLoggerProvider implements LoggerProvider on top of a TestLogger.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider creates a provider and returns its capture buffer.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buffer
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.mu.Lock()
	defer p.logger.mu.Unlock()
	*p.logger.level = level
}

// Logger returns the underlying TestLogger for assertions.
func (p *TestLoggerProvider) Logger() *TestLogger { return p.logger }
