package log

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr"
)

// WatermillLogger routes watermill logs through the global logger
type WatermillLogger struct {
	l      logr.Logger
	fields watermill.LogFields
}

func NewWatermillLogger() *WatermillLogger {
	return &WatermillLogger{l: WithName("watermill")}
}

func (w *WatermillLogger) keysAndValues(fields watermill.LogFields) []interface{} {
	all := w.fields.Add(fields)
	kv := make([]interface{}, 0, len(all)*2)
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}

func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.l.Error(err, msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.l.Info(msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.l.V(1).Info(msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.l.V(2).Info(msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{l: w.l, fields: w.fields.Add(fields)}
}
