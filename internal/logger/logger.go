// Package logger builds the structured logger used by the record tools.
//
// Events are written as JSON to <dir>/record.log, rotated by lumberjack.
// With console set, the same events are teed to stderr in console format.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Dir is the log directory. Empty disables the file sink.
	Dir string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Console tees events to stderr.
	Console bool
	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation. Zero values
	// select 50 MB, 7 files and 14 days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:      "ts",
	LevelKey:     "level",
	NameKey:      "logger",
	MessageKey:   "msg",
	CallerKey:    "caller",
	EncodeTime:   zapcore.ISO8601TimeEncoder,
	EncodeLevel:  zapcore.LowercaseLevelEncoder,
	EncodeCaller: zapcore.ShortCallerEncoder,
}

// New returns a sugared logger for opts. With neither a directory nor a
// console it returns a no-op logger.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var cores []zapcore.Core
	var errOut zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		sink := zapcore.AddSync(rotating(opts))
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, level))
		errOut = sink
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level))
	}
	if len(cores) == 0 {
		return zap.NewNop().Sugar(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(errOut)).Sugar(), nil
}

func rotating(opts Options) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "record.log"),
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 7),
		MaxAge:     orDefault(opts.MaxAgeDays, 14),
		Compress:   true,
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
