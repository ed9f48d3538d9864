package sim

import (
	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that writes every executed event into a logrus
// logger at debug level.
type EventLogger struct {
	Logger *logrus.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *logrus.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"time":     float64(evt.Time()),
		"priority": evt.Priority(),
		"seq":      evt.Seq(),
	}).Debugf("event %s", evt.Name())
}
