package errors

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogHandler is an ErrorHandler that writes errors through zerolog.
type LogHandler struct {
	// Logger receives the entries. The zero value uses the global zerolog logger.
	Logger *zerolog.Logger
	// Verbose enables stack traces in the output.
	Verbose bool
}

func (h *LogHandler) logger() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return &log.Logger
}

// HandleError logs a MountError at error level.
func (h *LogHandler) HandleError(err *MountError) {
	if err == nil {
		return
	}
	ev := h.logger().Error().
		Str("op", err.Op).
		Str("kind", err.Kind.String())
	if err.Session != "" {
		ev = ev.Str("session", err.Session)
	}
	if err.Extension != "" {
		ev = ev.Str("extension", err.Extension)
	}
	if err.HasID {
		ev = ev.Int64("id", err.ID)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Err(err.Err).Msg("mount error")
}

// HandlePanic logs a PanicError at error level.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	ev := h.logger().Error().Interface("value", err.Value)
	if err.Op != "" {
		ev = ev.Str("op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("mount panic")
}
