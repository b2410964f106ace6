// Package logging configures the global zerolog logger and the per-command
// request loggers derived from it.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	InitLoggerTo(os.Stdout, debug, human)
}

// InitLoggerTo is InitLogger writing to out.
func InitLoggerTo(out io.Writer, debug, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano            // always initialize base logger with timestamp.
	base := zerolog.New(out).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel) // set debug level.
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel) // set info level.
	}
}

// WithRequest returns a context carrying a logger tagged with a fresh
// request id and the sender, along with that id.
func WithRequest(ctx context.Context, sender uint64) (context.Context, string) {
	id := uuid.NewString()
	l := log.Logger.With().
		Str("request_id", id).
		Uint64("sender", sender).
		Logger()

	return l.WithContext(ctx), id
}

// FromContext returns the request logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// LogCommand logs a received command line with structured fields.
func LogCommand(ctx context.Context, source string, input string) {
	FromContext(ctx).Info().
		Str("event", "command_received").
		Str("source", source).
		Str("input", input).
		Msg("received command")
}

// LogOutcome logs the result of a dispatched command.
func LogOutcome(ctx context.Context, plugin, category, command string, took time.Duration, err error) {
	ev := FromContext(ctx).Info()
	if err != nil {
		ev = FromContext(ctx).Warn().Err(err)
	}
	ev.Str("event", "command_done").
		Str("plugin", plugin).
		Str("category", category).
		Str("command", command).
		Str("duration", took.String()).
		Msg("completed command")
}
