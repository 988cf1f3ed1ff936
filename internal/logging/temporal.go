package logging

import (
	"fmt"

	tlog "go.temporal.io/sdk/log"
)

// temporalLogger routes Temporal client and worker logs through Logger.
type temporalLogger struct {
	l Logger
}

func NewTemporalLogger(l Logger) tlog.Logger {
	return temporalLogger{l: l.Named("temporal")}
}

func keyvalsToFields(keyvals []any) []Field {
	out := make([]Field, 0, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			out = append(out, Any("extra", keyvals[i]))
			break
		}
		if err, ok := keyvals[i+1].(error); ok {
			out = append(out, String(key, err.Error()))
			continue
		}
		out = append(out, Any(key, keyvals[i+1]))
	}
	return out
}

func (t temporalLogger) Debug(msg string, keyvals ...any) {
	t.l.Debug(msg, keyvalsToFields(keyvals)...)
}
func (t temporalLogger) Info(msg string, keyvals ...any) { t.l.Info(msg, keyvalsToFields(keyvals)...) }
func (t temporalLogger) Warn(msg string, keyvals ...any) { t.l.Warn(msg, keyvalsToFields(keyvals)...) }
func (t temporalLogger) Error(msg string, keyvals ...any) {
	t.l.Error(msg, keyvalsToFields(keyvals)...)
}
