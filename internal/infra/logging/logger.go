// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// InitLogger configures the global logger to write JSON lines to stdout and,
// when file is set, to a size-rotated log file.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var out io.Writer = os.Stdout
	if file != "" {
		out = zerolog.MultiLevelWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		})
	}

	l := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))

	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetLogLevel changes the level of the global logger. Unknown levels fall back to info.
func SetLogLevel(level string) {
	mu.Lock()
	logger = logger.Level(parseLevel(level))
	mu.Unlock()
}

// SetLoggerForTest replaces the global logger.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Info logs msg with alternating key/value pairs.
func Info(msg string, keyvals ...any) {
	write(zerolog.InfoLevel, msg, keyvals)
}

// Warn logs msg with alternating key/value pairs.
func Warn(msg string, keyvals ...any) {
	write(zerolog.WarnLevel, msg, keyvals)
}

// Error logs msg with alternating key/value pairs.
func Error(msg string, keyvals ...any) {
	write(zerolog.ErrorLevel, msg, keyvals)
}

// Debug logs msg with alternating key/value pairs.
func Debug(msg string, keyvals ...any) {
	write(zerolog.DebugLevel, msg, keyvals)
}

func write(level zerolog.Level, msg string, keyvals []any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	e := l.WithLevel(level)
	if e == nil {
		return
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		if i+1 >= len(keyvals) {
			e = e.Bool(key, true)
			break
		}
		switch v := keyvals[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
