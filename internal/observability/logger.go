package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	runKey  struct{}
	itemKey struct{}
)

type runScope struct {
	id     string
	source string
}

type itemScope struct {
	index int
	total int
}

func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	// stdout carries exports.
	cfg.OutputPaths = []string{"stderr"}
	cfg.InitialFields = map[string]any{"app": "feedback-batch"}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var parsed zapcore.Level
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}

	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// WithRun tags ctx with the batch run so every log line of the run carries
// its id and input source.
func WithRun(ctx context.Context, runID, source string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, runKey{}, runScope{id: runID, source: source})
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	scope, ok := ctx.Value(runKey{}).(runScope)
	if !ok || scope.id == "" {
		return "", false
	}

	return scope.id, true
}

// WithItem tags ctx with the 1-based position of the feedback being classified.
func WithItem(ctx context.Context, index, total int) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, itemKey{}, itemScope{index: index, total: total})
}

func ItemFromContext(ctx context.Context) (index, total int, ok bool) {
	if ctx == nil {
		return 0, 0, false
	}

	scope, ok := ctx.Value(itemKey{}).(itemScope)
	if !ok || scope.index <= 0 {
		return 0, 0, false
	}

	return scope.index, scope.total, true
}

// WithContextLogger adds the run and item fields found in ctx.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}
	if ctx == nil {
		return logger
	}

	fields := make([]zap.Field, 0, 4)
	if scope, ok := ctx.Value(runKey{}).(runScope); ok && scope.id != "" {
		fields = append(fields, zap.String("runId", scope.id))
		if scope.source != "" {
			fields = append(fields, zap.String("source", scope.source))
		}
	}
	if index, total, ok := ItemFromContext(ctx); ok {
		fields = append(fields, zap.Int("index", index), zap.Int("total", total))
	}
	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}
