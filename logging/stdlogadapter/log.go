// Package stdlogadapter adapts the standard library's log package to
// the logging.Logger interface.
package stdlogadapter

import (
	"log"
)

// Logger implements logging.Logger using the standard library logger.
type Logger struct {
	logger *log.Logger
}

// New creates a Logger from l. A nil l falls back to log.Default().
func New(l *log.Logger) *Logger {
	if l == nil {
		l = log.Default()
	}
	return &Logger{logger: l}
}

func (s *Logger) Debugf(format string, args ...interface{}) {
	s.logger.Printf("[DEBUG] "+format, args...)
}

func (s *Logger) Infof(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

func (s *Logger) Errorf(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}
