// Package zapadapter routes core.Logger output to a zap logger.
package zapadapter

import (
	"github.com/Swind/go-simpleq/core"
	"go.uber.org/zap"
)

// Logger implements core.Logger on top of *zap.Logger.
type Logger struct {
	z *zap.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps z. A nil z falls back to zap.L(), the process-wide logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.L()
	}
	return &Logger{z: z}
}

// Named returns a Logger whose entries carry name as the zap logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.z.Debug(msg, convert(fields)...)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	l.z.Info(msg, convert(fields)...)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.z.Warn(msg, convert(fields)...)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	l.z.Error(msg, convert(fields)...)
}

func convert(fields []core.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
