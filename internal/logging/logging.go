// Package logging builds the process logger: JSON to a rotated file, console
// encoding to stdout. Components receive the *zap.Logger by injection and
// never construct their own.
package logging

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the logger build.
type Config struct {
	Level       string // debug, info, warn, error
	File        string // rotated JSON log; empty disables the file sink
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
}

// DefaultConfig returns the stock logging setup.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "logs/exchanged.log",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 7,
	}
}

// New builds the logger. Unknown level strings fall back to info.
func New(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(zapcore.AddSync(os.Stdout)),
			level,
		),
	}

	if cfg.File != "" {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "timestamp"
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(jsonCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}),
			level,
		))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// NewFileOnly builds a logger with just the rotated file sink, for processes
// that own the terminal. With no file configured it returns a no-op logger.
func NewFileOnly(cfg Config) *zap.Logger {
	if cfg.File == "" {
		return zap.NewNop()
	}
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}
	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonCfg),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}),
		level,
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Sampler admits one event in every N. Tick loops use it so a persistent
// fault logs a steady trickle instead of one line per interval.
type Sampler struct {
	n     uint64
	count atomic.Uint64
}

// NewSampler returns a sampler admitting one in n events. n < 1 admits all.
func NewSampler(n int) *Sampler {
	if n < 1 {
		n = 1
	}
	return &Sampler{n: uint64(n)}
}

// Admit reports whether this occurrence should be logged.
func (s *Sampler) Admit() bool {
	return s.count.Add(1)%s.n == 1 || s.n == 1
}
