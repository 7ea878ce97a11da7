package logger

import (
	"log"
	"strings"
)

// ToStdLogger returns a *log.Logger whose output is forwarded to l at Info
// level, for components that only accept the stdlib logger.
func ToStdLogger(l Logger) *log.Logger {
	if s, ok := l.(*StandardLogger); ok {
		return s.logger
	}
	return log.New(&writer{l: l}, "", 0)
}

type writer struct {
	l Logger
}

func (w *writer) Write(p []byte) (int, error) {
	w.l.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
