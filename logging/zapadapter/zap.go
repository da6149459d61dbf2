// Package zapadapter adapts a *zap.Logger to the logging.Logger interface.
package zapadapter

import (
	"go.uber.org/zap"
)

// Logger implements logging.Logger using a zap.SugaredLogger internally.
type Logger struct {
	logger *zap.SugaredLogger
}

// New creates a Logger from l. A nil l falls back to zap.NewNop(), which
// discards everything.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{logger: l.Sugar()}
}

func (z *Logger) Debugf(format string, args ...interface{}) {
	z.logger.Debugf(format, args...)
}

func (z *Logger) Infof(format string, args ...interface{}) {
	z.logger.Infof(format, args...)
}

func (z *Logger) Errorf(format string, args ...interface{}) {
	z.logger.Errorf(format, args...)
}
