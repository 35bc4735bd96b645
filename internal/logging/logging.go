// Package logging builds the zap loggers used by the CLI and dashboard.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tonhe/fritzmon/internal/fritz"
)

// ParseLevel accepts zap level names ("debug", "info", "warn", "error").
// An empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return lvl, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// New returns a console logger at level writing to path, or to stderr when
// path is empty. The returned close func flushes and releases the file.
func New(level, path string) (*zap.Logger, func(), error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	closeFile := func() {}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		sink = zapcore.AddSync(f)
		closeFile = func() { f.Close() }
	}

	return build(lvl, sink), func() {
		_ = sink.Sync()
		closeFile()
	}, nil
}

func build(lvl zapcore.Level, sink zapcore.WriteSyncer) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, lvl)
	return zap.New(core).Named("fritzmon")
}

// Observer logs router client events: failures at warn, data at debug.
func Observer(log *zap.Logger) fritz.Observer {
	log = log.Named("events")
	return func(ev fritz.Event) {
		fields := []zap.Field{
			zap.String("kind", string(ev.Kind)),
			zap.Time("at", ev.At),
		}
		if ev.Type == fritz.EventError {
			log.Warn("request failed", append(fields, zap.Error(ev.Err))...)
			return
		}
		switch {
		case ev.Bandwidth != nil:
			fields = append(fields,
				zap.Float64("upstream_kbps", ev.Bandwidth.Upstream.Total),
				zap.Float64("downstream_kbps", ev.Bandwidth.Downstream.Total),
				zap.Int("points", ev.Bandwidth.Upstream.Series.Len()))
		case ev.OSVersion != "":
			fields = append(fields, zap.String("os_version", ev.OSVersion))
		}
		log.Debug("request ok", fields...)
	}
}
