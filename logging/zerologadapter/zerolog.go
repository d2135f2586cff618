// Package zerologadapter routes core.Logger output to a zerolog logger.
package zerologadapter

import (
	"time"

	"github.com/Swind/go-simpleq/core"
	"github.com/rs/zerolog"
)

// Logger implements core.Logger on top of zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps z.
func New(z zerolog.Logger) *Logger {
	return &Logger{z: z}
}

// With returns a Logger that adds component to every event.
func (l *Logger) With(component string) *Logger {
	return &Logger{z: l.z.With().Str("component", component).Logger()}
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	apply(l.z.Debug(), fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	apply(l.z.Info(), fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	apply(l.z.Warn(), fields).Msg(msg)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	apply(l.z.Error(), fields).Msg(msg)
}

// apply copies fields onto e. A nil event (level disabled) is returned as is.
func apply(e *zerolog.Event, fields []core.Field) *zerolog.Event {
	if e == nil {
		return nil
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case int64:
			e = e.Int64(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case float64:
			e = e.Float64(f.Key, v)
		case time.Duration:
			e = e.Dur(f.Key, v)
		case time.Time:
			e = e.Time(f.Key, v)
		case error:
			e = e.AnErr(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	return e
}
