// Package logrusadapter adapts a *logrus.Logger to the logging.Logger interface.
package logrusadapter

import (
	"github.com/sirupsen/logrus"
)

// Logger implements logging.Logger using logrus.
type Logger struct {
	logger *logrus.Entry
}

// New creates a Logger from l. A nil l falls back to a fresh default logrus.Logger.
func New(l *logrus.Logger) *Logger {
	if l == nil {
		l = logrus.New()
	}
	return &Logger{logger: logrus.NewEntry(l)}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
