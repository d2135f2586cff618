package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Swind/go-simpleq/core"
	"github.com/Swind/go-simpleq/internal/config"
	"github.com/Swind/go-simpleq/logging/zapadapter"
	"github.com/Swind/go-simpleq/logging/zerologadapter"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the configured backend writing to w. Writes to w are
// serialized. The returned func flushes buffered entries.
func newLogger(cfg config.LogConfig, w io.Writer) (core.Logger, func(), error) {
	level := strings.ToLower(cfg.Level)
	switch cfg.Backend {
	case "zerolog":
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		out := zerolog.SyncWriter(w)
		if cfg.Format == "console" {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		}
		zl := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
		return zerologadapter.New(zl).With("simpleq"), func() {}, nil

	default:
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		var enc zapcore.Encoder
		if cfg.Format == "json" {
			enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			encCfg := zap.NewDevelopmentEncoderConfig()
			encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		z := zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl))
		return zapadapter.New(z).Named("simpleq"), func() { _ = z.Sync() }, nil
	}
}
