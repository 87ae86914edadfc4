// Package observability holds the process-wide structured loggers.
//
// CLILogger writes human-oriented output to stderr so record streams on
// stdout stay clean. When a log file is configured, entries are also
// written there as JSON with size-based rotation.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CLILogger is the logger for command-line flows. It defaults to a
// no-op logger until Init runs so library code can log unconditionally.
var CLILogger = zap.NewNop()

// Options configures logger initialization.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// LogFile, when set, enables rotating JSON file logging.
	LogFile string
}

// Init builds the process loggers. Safe to call once at startup.
func Init(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}
	if opts.LogFile != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			fileSink,
			level,
		)
		cores = append(cores, fileCore)
	}

	CLILogger = zap.New(zapcore.NewTee(cores...))
	return nil
}

// Sync flushes buffered log entries. Called on process exit.
func Sync() {
	_ = CLILogger.Sync()
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, err
	}
	return level, nil
}
