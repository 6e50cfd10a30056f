package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("logger should not be nil")
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestRunID_ContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := WithRun(context.Background(), "run-123", "MANUAL")
	runID, ok := RunIDFromContext(ctx)
	if !ok {
		t.Fatal("expected run id to exist")
	}
	if runID != "run-123" {
		t.Fatalf("run id=%q, want=%q", runID, "run-123")
	}
}

func TestRunID_ContextHelpersNilContext(t *testing.T) {
	t.Parallel()

	ctx := WithRun(context.TODO(), "run-456", "")
	runID, ok := RunIDFromContext(ctx)
	if !ok {
		t.Fatal("expected run id to exist")
	}
	if runID != "run-456" {
		t.Fatalf("run id=%q, want=%q", runID, "run-456")
	}
}

func TestRunID_MissingValue(t *testing.T) {
	t.Parallel()

	_, ok := RunIDFromContext(context.Background())
	if ok {
		t.Fatal("expected run id to be missing")
	}
}

func TestWithContextLogger(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	ctx := WithRun(context.Background(), "run-789", "CSV")
	loggerWithContext := WithContextLogger(baseLogger, ctx)
	loggerWithContext.Info("message with run id")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want=1", len(entries))
	}

	if got := entries[0].ContextMap()["runId"]; got != "run-789" {
		t.Fatalf("runId=%v, want=%q", got, "run-789")
	}
}

func TestWithContextLogger_NoRunID(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	loggerWithContext := WithContextLogger(baseLogger, context.Background())
	loggerWithContext.Info("message without run id")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want=1", len(entries))
	}

	if _, ok := entries[0].ContextMap()["runId"]; ok {
		t.Fatal("expected runId field to be absent")
	}
}

func TestWithContextLogger_NilLogger(t *testing.T) {
	t.Parallel()

	if got := WithContextLogger(nil, context.Background()); got != nil {
		t.Fatal("expected nil logger")
	}
}

func TestWithContextLogger_RunAndItemFields(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	ctx := WithRun(context.Background(), "run-42", "CSV")
	ctx = WithItem(ctx, 3, 10)
	WithContextLogger(baseLogger, ctx).Info("item message")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want=1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["runId"] != "run-42" {
		t.Fatalf("runId=%v, want=%q", fields["runId"], "run-42")
	}
	if fields["source"] != "CSV" {
		t.Fatalf("source=%v, want=%q", fields["source"], "CSV")
	}
	if fields["index"] != int64(3) || fields["total"] != int64(10) {
		t.Fatalf("index=%v total=%v, want 3 and 10", fields["index"], fields["total"])
	}
}

func TestItemFromContext(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		ctx       context.Context
		wantIndex int
		wantTotal int
		wantOK    bool
	}{
		{name: "missing", ctx: context.Background()},
		{name: "set", ctx: WithItem(context.Background(), 7, 12), wantIndex: 7, wantTotal: 12, wantOK: true},
		{name: "zero index is ignored", ctx: WithItem(context.Background(), 0, 12)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			index, total, ok := ItemFromContext(tc.ctx)
			if ok != tc.wantOK || index != tc.wantIndex || total != tc.wantTotal {
				t.Fatalf("ItemFromContext() = (%d, %d, %v), want (%d, %d, %v)",
					index, total, ok, tc.wantIndex, tc.wantTotal, tc.wantOK)
			}
		})
	}
}
