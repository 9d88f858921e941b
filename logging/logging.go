// Package logging centralizes zap.Logger construction so every package in
// the capture backend logs with the same encoding and level, the way the
// teacher wires a single logger per package (decoderLog, streamLog, ...)
// from one shared configuration.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	base   *zap.Logger
	debug  bool
)

// SetDebug switches the base logger to debug level. It only affects loggers
// built by New after the call; loggers built earlier keep their level and
// encoder. Packages hold their logger in a package var set at init time, so
// in practice this is a startup-time flag the way the teacher's
// conf.Debug controls dev vs. production encoders.
func SetDebug(d bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = d
	base = nil
}

func build() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if base != nil {
		return base
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		// Logger construction failing means the process can't observe
		// itself; fall back to a no-op rather than panic on startup.
		l = zap.NewNop()
	}

	base = l

	return base
}

// New returns a logger named for component, e.g. logging.New("capture").
func New(component string) *zap.Logger {
	return build().Named(component)
}
