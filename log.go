package sparsenc

import (
	"log"
	"os"
)

// LogLevel mirrors the C source's TRACE/INFO/WARN/ERR verbosity levels
// (src/common.h's set_loglevel/get_loglevel), read from SNC_LOG_LEVEL.
type LogLevel int

const (
	LogERR LogLevel = iota
	LogWARN
	LogINFO
	LogTRACE
)

func parseLogLevel(s string) (LogLevel, bool) {
	switch s {
	case "TRACE":
		return LogTRACE, true
	case "INFO":
		return LogINFO, true
	case "WARN":
		return LogWARN, true
	case "ERR":
		return LogERR, true
	default:
		return LogERR, false
	}
}

var logLevel = func() LogLevel {
	if lvl, ok := parseLogLevel(os.Getenv("SNC_LOG_LEVEL")); ok {
		return lvl
	}
	return LogERR
}()

var logger = log.New(os.Stderr, "sparsenc: ", 0)

// SetLogLevel overrides the verbosity set via SNC_LOG_LEVEL at process
// start; mainly useful for tests that want to exercise TRACE output.
func SetLogLevel(level LogLevel) {
	logLevel = level
}

func logAt(level LogLevel, format string, args ...interface{}) {
	if level > logLevel {
		return
	}
	logger.Printf(format, args...)
}

func logTrace(format string, args ...interface{}) { logAt(LogTRACE, format, args...) }
func logWarn(format string, args ...interface{})  { logAt(LogWARN, format, args...) }
