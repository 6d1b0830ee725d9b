// Package logging is a minimal, level-gated wrapper around the standard
// library logger. findit logs to stderr (the standard logger's default
// output) for a container runtime to collect, so one global level set from the environment is enough; there's
// no per-package logger or structured-logging library to configure.
package logging

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
)

// Level is a log line's severity, ordered from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// parseLevel implements the DEBUG / LOG_LEVEL environment convention:
// DEBUG wins if it's a truthy value, otherwise LOG_LEVEL is matched
// case-insensitively, defaulting to info. Split out as a pure function so
// the parsing rules can be tested without racing the sync.Once below.
func parseLevel(debugEnv, logLevelEnv string) Level {
	switch strings.ToLower(debugEnv) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(logLevelEnv) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	activeLevel Level
	levelOnce   sync.Once
)

// resolveLevel reads the environment once and caches the result; findit
// never changes its own log level mid-run.
func resolveLevel() Level {
	levelOnce.Do(func() {
		activeLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
	return activeLevel
}

// IsDebugEnabled reports whether a Debug call would actually be emitted,
// so a caller can skip building an expensive argument when it wouldn't be.
func IsDebugEnabled() bool {
	return resolveLevel() <= LevelDebug
}

func emit(at Level, format string, args ...interface{}) {
	if resolveLevel() > at {
		return
	}
	stdlog.Printf("["+strings.ToUpper(at.String())+"] "+format, args...)
}

// Debug logs at debug severity; only emitted when DEBUG or LOG_LEVEL=debug.
func Debug(format string, args ...interface{}) { emit(LevelDebug, format, args...) }

// Info logs at info severity, the default level.
func Info(format string, args ...interface{}) { emit(LevelInfo, format, args...) }

// Warn logs at warning severity.
func Warn(format string, args ...interface{}) { emit(LevelWarn, format, args...) }

// Error logs at error severity.
func Error(format string, args ...interface{}) { emit(LevelError, format, args...) }

// Fatal logs unconditionally and terminates the process. Reserved for
// startup failures the daemon cannot run without: bad config, an unopenable
// database.
func Fatal(format string, args ...interface{}) {
	stdlog.Fatalf("[FATAL] "+format, args...)
}

// Printf bypasses level gating, for banner-style output (config dump,
// startup summary) that should always reach the log.
func Printf(format string, args ...interface{}) {
	stdlog.Printf(format, args...)
}

// Println is Printf's unformatted counterpart.
func Println(args ...interface{}) {
	stdlog.Println(args...)
}
