// Package logger wraps log/slog with the text handler and level set PADRE's
// components expect: CRITICAL, ERROR, WARN, INFO, DEBUG.
package logger

import (
	"io"
	"log/slog"
	"os"
)

var Log *slog.Logger

func init() {
	// Safe default so packages can log before Init runs (e.g. in tests).
	Log = slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Init initializes the global logger
func Init(level string, logFile string) error {
	// Parse log level
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// Set up multi-writer (stdout + file)
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	multiWriter := io.MultiWriter(writers...)

	// Create handler with custom options
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Shorten time format
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)

	return nil
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Critical logs at error level with an explicit critical=true attribute —
// slog has no level above Error, and a CRITICAL padre event (see §7) is
// always fatal for the adapter, so the attribute lets log consumers filter
// it out from routine ERROR noise.
func Critical(msg string, args ...any) {
	Log.Error(msg, append([]any{"critical", true}, args...)...)
}

// Level numbers used by the padre#debugger#Log notification (1..5).
const (
	LevelCritical = 1
	LevelError    = 2
	LevelWarn     = 3
	LevelInfo     = 4
	LevelDebug    = 5
)

// AtLevel logs msg at the slog level corresponding to a padre notification
// level number, returning false if n is out of range.
func AtLevel(n int, msg string, args ...any) bool {
	switch n {
	case LevelCritical:
		Critical(msg, args...)
	case LevelError:
		Error(msg, args...)
	case LevelWarn:
		Warn(msg, args...)
	case LevelInfo:
		Info(msg, args...)
	case LevelDebug:
		Debug(msg, args...)
	default:
		return false
	}
	return true
}
