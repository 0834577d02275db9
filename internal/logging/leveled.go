package logging

import (
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
)

// Leveled adapts a charm logger to the retry client's logger interface.
// Per-attempt chatter is demoted to debug.
func Leveled(l *log.Logger) retryablehttp.LeveledLogger {
	if l == nil {
		l = log.Default()
	}
	return leveled{l: l}
}

type leveled struct {
	l *log.Logger
}

func (a leveled) Error(msg string, keysAndValues ...interface{}) {
	a.l.Error(msg, keysAndValues...)
}

func (a leveled) Info(msg string, keysAndValues ...interface{}) {
	a.l.Debug(msg, keysAndValues...)
}

func (a leveled) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Debug(msg, keysAndValues...)
}

func (a leveled) Warn(msg string, keysAndValues ...interface{}) {
	a.l.Warn(msg, keysAndValues...)
}
