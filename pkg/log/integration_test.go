package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", "operation", "test")
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), "error_code", "TEST_ERROR")

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON unmarshaling converts numbers to float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField("error", "test error") {
		t.Error("Leading error field not captured")
	}
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "Booster",
		ComponentKey, "xgboost",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	if !testLogger.ContainsField(ModelNameKey, "Booster") {
		t.Error("Model name context not found")
	}
	if !testLogger.ContainsField(ComponentKey, "xgboost") {
		t.Error("Component context not found")
	}
	if !testLogger.ContainsField(OperationKey, OperationFit) {
		t.Error("Operation field not found")
	}
}

// TestLoggerEnabled tests level filtering
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) {
		t.Error("Logger should be enabled for Info level")
	}
	if !testLogger.Enabled(ctx, LevelError) {
		t.Error("Logger should be enabled for Error level")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
	if !testLogger.ContainsMessage("this should appear") {
		t.Error("Info message should appear when level is Info")
	}
}

// TestTrainingAttributeKeys tests the attribute keys used by the pipeline
func TestTrainingAttributeKeys(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	testLogger.Info("Evaluation completed",
		PhaseKey, PhaseTesting,
		SamplesKey, 7255,
		AccuracyKey, 0.89,
		ROCAUCKey, 0.95,
		IterationKey, 120,
	)

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}

	expected := map[string]any{
		PhaseKey:     PhaseTesting,
		SamplesKey:   7255.0,
		AccuracyKey:  0.89,
		ROCAUCKey:    0.95,
		IterationKey: 120.0,
		"severity":   "INFO",
	}
	for key, want := range expected {
		if got, ok := entries[0][key]; !ok {
			t.Errorf("Expected field %s not found", key)
		} else if got != want {
			t.Errorf("Field %s: expected %v, got %v", key, want, got)
		}
	}
}

// TestLoggerProviderIntegration tests the LoggerProvider interface
func TestLoggerProviderIntegration(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("serving").Info("named logger message")

	out := buffer.String()
	if !strings.Contains(out, "provider test message") {
		t.Error("Provider test message not found")
	}
	if !provider.Logger().ContainsField(ComponentKey, "serving") {
		t.Error("Component name not found in named logger output")
	}

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")
	if strings.Contains(buffer.String(), "suppressed") {
		t.Error("SetLevel should suppress Info")
	}
}

// TestGlobalProvider tests SetProvider and the package-level accessors
func TestGlobalProvider(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo))

	GetLoggerWithName("pipeline").Info("via global")
	if !provider.Logger().ContainsField(ComponentKey, "pipeline") {
		t.Error("global GetLoggerWithName did not reach provider")
	}
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)

	logger := p.GetLoggerWithName("dataset").With(ModelNameKey, "Loader")
	logger.Debug("dropped")
	logger.Info("Loaded rows", SamplesKey, 3, PathKey, "hotel_reservations.csv")
	logger.Error("Load failed", errors.New("boom"), PathKey, "missing.csv")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &info); err != nil {
		t.Fatal(err)
	}
	if info["message"] != "Loaded rows" || info[ComponentKey] != "dataset" || info[SamplesKey] != 3.0 {
		t.Errorf("unexpected info entry %v", info)
	}
	if info[ModelNameKey] != "Loader" {
		t.Errorf("With fields missing: %v", info)
	}

	var errEntry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &errEntry); err != nil {
		t.Fatal(err)
	}
	if errEntry["error"] != "boom" {
		t.Errorf("error field = %v", errEntry["error"])
	}
	if st, _ := errEntry[StacktraceKey].(string); !strings.Contains(st, "integration_test.go") {
		t.Errorf("expected stack trace in %q", st)
	}

	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, "error": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetupLogger_RoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	if err := SetupLogger("info", &buf); err != nil {
		t.Fatal(err)
	}
	defer func() {
		errors.SetZerologWarnFunc(nil)
		SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo))
	}()

	errors.Warn(errors.NewDataConversionWarning("2018-02-29", "2018-02-28", "invalid arrival date"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["severity"] != "WARN" {
		t.Errorf("severity = %v", entry["severity"])
	}
	if _, ok := entry["warning"].(map[string]any); !ok {
		t.Errorf("warning object missing: %v", entry)
	}
}

// TestConcurrentLogging tests thread safety of the TestLogger
func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const goroutines, perGoroutine = 4, 5
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				testLogger.Info(fmt.Sprintf("goroutine %d message %d", id, j), "goroutine_id", id)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != goroutines*perGoroutine {
		t.Errorf("Expected %d log entries, got %d", goroutines*perGoroutine, len(entries))
	}
}

// BenchmarkLogging benchmarks zerolog-backed logging
func BenchmarkLogging(b *testing.B) {
	logger := NewZerologProvider(&bytes.Buffer{}, LevelInfo).GetLogger()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message",
			"iteration", i,
			OperationKey, OperationPredict,
			SamplesKey, 1000,
		)
	}
}
