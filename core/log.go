package core

import (
	"io"

	"github.com/rs/zerolog"
)

type Log interface {
	Info() *zerolog.Event
	Debug() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

type logger struct {
	l zerolog.Logger
}

func NewLogger(w io.Writer) Log {
	return &logger{l: zerolog.New(w).With().Timestamp().Logger()}
}

func (lg *logger) Info() *zerolog.Event  { return lg.l.Info() }
func (lg *logger) Debug() *zerolog.Event { return lg.l.Debug() }
func (lg *logger) Warn() *zerolog.Event  { return lg.l.Warn() }
func (lg *logger) Error() *zerolog.Event { return lg.l.Error() }

// NopLogger discards everything. Used where callers do not care about
// engine logging, e.g. pure quote paths in tests.
func NopLogger() Log {
	return &logger{l: zerolog.Nop()}
}
