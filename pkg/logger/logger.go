package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var L *zap.Logger

// Options selects how the process logs. The server writes JSON for the log
// pipeline; the gate scanner writes console lines next to the operator's
// verdicts, so both go to stderr.
type Options struct {
	Level   string
	Console bool
}

func init() {
	var err error
	L, err = build(zapcore.InfoLevel, false)
	if err != nil {
		panic(err)
	}
}

func build(level zapcore.Level, console bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.Sampling = nil
	}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	return config.Build(zap.AddCallerSkip(1))
}

// Configure replaces the global logger. An empty level means info.
func Configure(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	l, err := build(level, opts.Console)
	if err != nil {
		return err
	}
	L = l
	return nil
}

// SetLevel keeps the JSON encoder and changes only the level.
func SetLevel(level string) error {
	return Configure(Options{Level: level})
}

// WithComponent tags entries with the subsystem that wrote them:
// handler, service, mq, worker, scheduler or gate.
func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}
