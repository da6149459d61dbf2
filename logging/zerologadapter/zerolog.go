// Package zerologadapter adapts a zerolog.Logger to the logging.Logger interface.
package zerologadapter

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger implements logging.Logger using zerolog.
type Logger struct {
	logger zerolog.Logger
}

// New creates a Logger from l. A nil l falls back to zerolog's global logger.
func New(l *zerolog.Logger) *Logger {
	if l == nil {
		l = &log.Logger
	}
	return &Logger{logger: *l}
}

func (z *Logger) Debugf(format string, args ...interface{}) {
	z.logger.Debug().Msgf(format, args...)
}

func (z *Logger) Infof(format string, args ...interface{}) {
	z.logger.Info().Msgf(format, args...)
}

func (z *Logger) Errorf(format string, args ...interface{}) {
	z.logger.Error().Msgf(format, args...)
}
