package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger wraps zerolog and adds trace correlation to every event
type Logger struct {
	logger zerolog.Logger
}

// NewLogger builds a logger writing to stdout
func NewLogger(config Config) *Logger {
	return NewLoggerWithWriter(config, os.Stdout)
}

// NewLoggerWithWriter builds a logger writing to w; console format renders
// human readable lines instead of JSON.
func NewLoggerWithWriter(config Config, w io.Writer) *Logger {
	output := w
	if strings.EqualFold(config.LogFormat, "console") {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(output).
		Level(parseLogLevel(config.LogLevel)).
		With().
		Timestamp().
		Str("service", config.ServiceName).
		Str("version", config.ServiceVersion).
		Str("environment", config.Environment).
		Logger()

	return &Logger{logger: base}
}

// NopLogger discards everything. Used by tests and optional components.
func NopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithContext returns a logger carrying the trace and span ids found in ctx
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.logger

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		logger = logger.With().
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String()).
			Bool("trace_sampled", spanCtx.IsSampled()).
			Logger()
	}

	if owner, ok := ctx.Value(ownerLogKey{}).(string); ok && owner != "" {
		logger = logger.With().Str("owner_id", owner).Logger()
	}

	return &logger
}

type ownerLogKey struct{}

// ContextWithOwner tags ctx so log events emitted with it carry the owner id
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerLogKey{}, ownerID)
}

func (l *Logger) Info(ctx context.Context) *zerolog.Event {
	return l.WithContext(ctx).Info()
}

func (l *Logger) Debug(ctx context.Context) *zerolog.Event {
	return l.WithContext(ctx).Debug()
}

func (l *Logger) Warn(ctx context.Context) *zerolog.Event {
	return l.WithContext(ctx).Warn()
}

func (l *Logger) Error(ctx context.Context) *zerolog.Event {
	return l.WithContext(ctx).Error()
}

func (l *Logger) Fatal(ctx context.Context) *zerolog.Event {
	return l.WithContext(ctx).Fatal()
}

// GetZerolog exposes the underlying zerolog.Logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.logger
}

// WithComponent returns a child logger tagged with the component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// WithFields returns a child logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{logger: l.logger.With().Fields(fields).Logger()}
}

// OTELErrorHandler routes OpenTelemetry SDK errors into the structured log
func (l *Logger) OTELErrorHandler() func(error) {
	return func(err error) {
		l.logger.Error().
			Err(err).
			Str("source", "otel_sdk").
			Msg("OpenTelemetry SDK error")
	}
}
