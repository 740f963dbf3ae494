package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that writes one structured log line per handled
// event.
type EventLogger struct {
	logger *logrus.Logger
}

// NewEventLogger returns an EventLogger writing to the given logger.
func NewEventLogger(logger *logrus.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"time": float64(evt.Time()),
		"evt":  reflect.TypeOf(evt).String(),
	}).Debug("event")
}
