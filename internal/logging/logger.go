// Package logging provides the kernel's minimal logging seam and a
// zerolog-backed default implementation, generalized from the calculation
// engine's original internal Logger interface.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is a minimal logging interface used throughout the kernel.
// Implementations should be fast. kernel.New supplies a ZerologLogger by
// default; NopLogger is the fallback wherever a nil Logger is passed.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger implements Logger with no output.
type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...any) {}
func (NopLogger) Infof(format string, args ...any)  {}
func (NopLogger) Warnf(format string, args ...any)  {}
func (NopLogger) Errorf(format string, args ...any) {}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger builds a console-writer zerolog logger tagged with runID,
// the kind of per-unit-of-work identifier threaded through every run.
func NewZerologLogger(runID string) *ZerologLogger {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z *ZerologLogger) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z *ZerologLogger) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z *ZerologLogger) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }
