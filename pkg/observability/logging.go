package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu       sync.RWMutex
	logOutput   io.Writer = os.Stdout
	logEncoding           = "json"
	logLevel              = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// SetLogOutput sets the output destination for loggers created afterwards.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logOutput = w
}

// ConfigureLogging sets level ("debug", "info", "warn", "error"), encoding
// ("json" or "console") and output for loggers created afterwards. The level
// applies to existing loggers as well.
func ConfigureLogging(level, format string, w io.Writer) error {
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logLevel.SetLevel(lvl)
	}

	logMu.Lock()
	defer logMu.Unlock()

	switch strings.ToLower(format) {
	case "", "json":
		logEncoding = "json"
	case "console", "text":
		logEncoding = "console"
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	if w != nil {
		logOutput = w
	}
	return nil
}

// StructuredLogger provides structured logging with trace correlation
type StructuredLogger struct {
	logger    *zap.Logger
	component string
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(component string) *StructuredLogger {
	return &StructuredLogger{
		logger:    newZapLogger().With(zap.String("component", component)),
		component: component,
	}
}

func newZapLogger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.LevelKey = "severity"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if logEncoding == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(logOutput)), logLevel)
	return zap.New(core)
}

// extractTraceInfo extracts trace and span IDs from context
func extractTraceInfo(ctx context.Context) (traceID, spanID string) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if spanCtx.IsValid() {
		traceID = spanCtx.TraceID().String()
		spanID = spanCtx.SpanID().String()
	}
	return traceID, spanID
}

func (l *StructuredLogger) fields(ctx context.Context, attrs map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if traceID, spanID := extractTraceInfo(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID), zap.String("span_id", spanID))
	}
	if len(attrs) > 0 {
		fields = append(fields, zap.Any("attributes", attrs))
	}
	return fields
}

func firstAttrs(attrs []map[string]interface{}) map[string]interface{} {
	if len(attrs) > 0 {
		return attrs[0]
	}
	return nil
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(ctx context.Context, message string, attrs ...map[string]interface{}) {
	l.logger.Debug(message, l.fields(ctx, firstAttrs(attrs))...)
}

// Info logs an info message
func (l *StructuredLogger) Info(ctx context.Context, message string, attrs ...map[string]interface{}) {
	l.logger.Info(message, l.fields(ctx, firstAttrs(attrs))...)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(ctx context.Context, message string, attrs ...map[string]interface{}) {
	l.logger.Warn(message, l.fields(ctx, firstAttrs(attrs))...)
}

// Error logs an error message
func (l *StructuredLogger) Error(ctx context.Context, message string, err error, attrs ...map[string]interface{}) {
	attributes := make(map[string]interface{})
	for k, v := range firstAttrs(attrs) {
		attributes[k] = v
	}
	if err != nil {
		attributes["error"] = err.Error()
	}
	l.logger.Error(message, l.fields(ctx, attributes)...)
}

// Sync flushes buffered log entries
func (l *StructuredLogger) Sync() error {
	return l.logger.Sync()
}

// Logger interface for dependency injection
type Logger interface {
	Debug(ctx context.Context, message string, attrs ...map[string]interface{})
	Info(ctx context.Context, message string, attrs ...map[string]interface{})
	Warn(ctx context.Context, message string, attrs ...map[string]interface{})
	Error(ctx context.Context, message string, err error, attrs ...map[string]interface{})
}
