/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	textmsg "golang.org/x/text/message"
)

type logLevel int

const (
	ERROR   logLevel = 1
	WARNING logLevel = 2
	INFO    logLevel = 3
	DEBUG   logLevel = 4
	ALL     logLevel = 5

	defaultLogLevel = INFO
)

func (l logLevel) String() string {
	switch l {
	case ERROR:
		return "ERROR"
	case WARNING:
		return "WARNING"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	case ALL:
		return "ALL"
	}
	return "UNKNOWN"
}

// zerologLevel maps a logLevel to the zerolog level that lets through the same messages.
func (l logLevel) zerologLevel() zerolog.Level {
	switch l {
	case ERROR:
		return zerolog.ErrorLevel
	case WARNING:
		return zerolog.WarnLevel
	case INFO:
		return zerolog.InfoLevel
	case DEBUG:
		return zerolog.DebugLevel
	case ALL:
		return zerolog.TraceLevel
	}
	return zerolog.InfoLevel
}

// parseLogLevel accepts either the numeric level (1 -> 5) or its name.
func parseLogLevel(value string) (logLevel, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultLogLevel, false
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < int(ERROR) || n > int(ALL) {
			return defaultLogLevel, false
		}
		return logLevel(n), true
	}
	switch strings.ToUpper(value) {
	case "ERROR":
		return ERROR, true
	case "WARNING", "WARN":
		return WARNING, true
	case "INFO":
		return INFO, true
	case "DEBUG":
		return DEBUG, true
	case "ALL", "TRACE":
		return ALL, true
	}
	return defaultLogLevel, false
}

// newDefaultLogger returns the logger used when none is supplied, writing to stderr at the
// level set by COHERENCE_LOG_LEVEL.
func newDefaultLogger() zerolog.Logger {
	level, _ := parseLogLevel(os.Getenv(envLogLevel))
	return newLogger(defaultLogWriter(), level)
}

func defaultLogWriter() io.Writer {
	return os.Stderr
}

func newLogger(w io.Writer, level logLevel) zerolog.Logger {
	return zerolog.New(w).
		Level(level.zerologLevel()).
		With().
		Timestamp().
		Str("component", "coherence-functions").
		Logger()
}

// NewConsoleLogger returns a human-readable logger at the given level, one of
// ERROR, WARNING, INFO, DEBUG or ALL.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	lvl, _ := parseLogLevel(level)
	return newLogger(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, lvl)
}

// message catalog keys
const (
	msgNoHasResultReceivedException = "execute function (no has result) received exception from server"
	msgNoHasResultReceivedError     = "execute function (no has result) received error response %v from server"
	msgSendingFunctionExecution     = "sending function execution message %v to server using pool %v"
	msgExceptionSendingFunction     = "exception occurred while sending function execution message %v to server using pool %v"
	msgUnexpectedFunctionFailure    = "unexpected exception during function execution"
	msgServerDenied                 = "server %v failed and is excluded for %v"
)

func init() {
	english := language.English
	_ = textmsg.SetString(english, msgNoHasResultReceivedException,
		"Function execution without result received an exception from the server")
	_ = textmsg.SetString(english, msgNoHasResultReceivedError,
		"Function execution without result received error response %v from the server")
	_ = textmsg.SetString(english, msgSendingFunctionExecution,
		"Sending function execution message %v to server using pool %v")
	_ = textmsg.SetString(english, msgExceptionSendingFunction,
		"Exception occurred while sending function execution message %v to server using pool %v")
	_ = textmsg.SetString(english, msgUnexpectedFunctionFailure,
		"Unexpected exception during function execution")
	_ = textmsg.SetString(english, msgServerDenied,
		"Server %v failed and is excluded for %v")
}

// localized returns the catalog text for key formatted with args.
func localized(key string, args ...any) string {
	return textmsg.NewPrinter(language.English).Sprintf(key, args...)
}
