package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
)

// ContextKey is a custom type to avoid context collision.
type ContextKey string

const (
	CorrelationHeader     = "cid"             // CorrelationHeader is the name of the nats message header for transporting the correlationID.
	CorrelationContextKey = ContextKey("cid") // CorrelationContextKey is the name of the context key used to store the correlationID.
	EcoSystemLoggingKey   = "eco"             // EcoSystemLoggingKey is the name of the logging key used to store the current ecosystem.
	SubsystemLoggingKey   = "sub"             // SubsystemLoggingKey is the name of the logging key used to store the current subsystem.
	CorrelationLoggingKey = "cid"             // CorrelationLoggingKey is the name of the logging key used to store the correlation id.
	AreaLoggingKey        = "loc"             // AreaLoggingKey is the name of the logging key used to store the functional area.
)

// Err will output error message to the log and return the error with additional attributes.
func Err(ctx context.Context, message string, err error, atts ...any) error {
	l := FromContext(ctx)
	l.ErrorContext(ctx, message, append([]any{"error", err}, atts...)...)
	return fmt.Errorf(message+" %s : %w", fmt.Sprint(atts...), err)
}

// ParseLevel maps a configured level name onto a slog level. Debug also enables source locations.
func ParseLevel(name string) (slog.Level, bool) {
	switch name {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, false
	case "warn":
		return slog.LevelWarn, false
	default:
		return slog.LevelError, false
	}
}

// NewHandler creates the configured slog handler writing to w.
func NewHandler(handler string, w io.Writer, level slog.Level, addSource bool) slog.Handler {
	o := &slog.HandlerOptions{
		AddSource: addSource,
		Level:     level,
	}
	switch handler {
	case "json":
		return slog.NewJSONHandler(w, o)
	default:
		return slog.NewTextHandler(w, o)
	}
}

// SetDefault sets the default slog handler for the process, tagging every entry with the ecosystem.
func SetDefault(handler string, level slog.Level, addSource bool, ecosystem string) {
	h := NewHandler(handler, os.Stdout, level, addSource)
	slog.SetDefault(slog.New(h).With(slog.String(EcoSystemLoggingKey, ecosystem)))
}

// NatsMessageLoggingEntrypoint returns a new logger and a context containing the logger for use when a new NATS message arrives.
func NatsMessageLoggingEntrypoint(ctx context.Context, subsystem string, hdr nats.Header) (context.Context, *slog.Logger) {
	cid := hdr.Get(CorrelationHeader)
	return loggingEntrypoint(ctx, subsystem, cid)
}

// RecordLoggingEntrypoint returns a new logger and a context for processing one log record.
func RecordLoggingEntrypoint(ctx context.Context, subsystem string, correlationID string) (context.Context, *slog.Logger) {
	return loggingEntrypoint(ctx, subsystem, correlationID)
}

type contextLoggerKey string

var ctxLogKey contextLoggerKey = "__log"

// ContextWith obtains a new logger with an area parameter.  Typically it should be used when obtaining a logger within a programmatic boundary.
func ContextWith(ctx context.Context, area string) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(AreaLoggingKey, area)
	return NewContext(ctx, logger), logger
}

// NewContext creates a new context with the specified logger
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogKey, logger)
}

// FromContext obtains a logger from the context or takes the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	var cl *slog.Logger
	l := ctx.Value(ctxLogKey)
	if l == nil {
		cl = slog.Default()
	} else {
		cl = l.(*slog.Logger)
	}
	return cl
}

func loggingEntrypoint(ctx context.Context, subsystem string, correlationId string) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(slog.String(SubsystemLoggingKey, subsystem), slog.String(CorrelationLoggingKey, correlationId))
	ctx = NewContext(ctx, logger)
	ctx = context.WithValue(ctx, CorrelationContextKey, correlationId)
	return ctx, logger
}
