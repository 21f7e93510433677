/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"bytes"
	"testing"
	"time"

	"github.com/onsi/gomega"
)

func TestErrorLogLevel(t *testing.T) {
	runLogLevelTest(t, ERROR, ERROR, true)
	runLogLevelTest(t, WARNING, ERROR, false)
	runLogLevelTest(t, INFO, ERROR, false)
	runLogLevelTest(t, DEBUG, ERROR, false)
	runLogLevelTest(t, ALL, ERROR, false)

	runLogLevelTest(t, ERROR, WARNING, true)
	runLogLevelTest(t, WARNING, WARNING, true)
	runLogLevelTest(t, INFO, WARNING, false)
	runLogLevelTest(t, DEBUG, WARNING, false)
	runLogLevelTest(t, ALL, WARNING, false)

	runLogLevelTest(t, ERROR, INFO, true)
	runLogLevelTest(t, WARNING, INFO, true)
	runLogLevelTest(t, INFO, INFO, true)
	runLogLevelTest(t, DEBUG, INFO, false)
	runLogLevelTest(t, ALL, INFO, false)

	runLogLevelTest(t, ERROR, DEBUG, true)
	runLogLevelTest(t, WARNING, DEBUG, true)
	runLogLevelTest(t, INFO, DEBUG, true)
	runLogLevelTest(t, DEBUG, DEBUG, true)
	runLogLevelTest(t, ALL, DEBUG, false)

	runLogLevelTest(t, ERROR, ALL, true)
	runLogLevelTest(t, WARNING, ALL, true)
	runLogLevelTest(t, INFO, ALL, true)
	runLogLevelTest(t, DEBUG, ALL, true)
}

func runLogLevelTest(t *testing.T, messageLevel, testLogLevel logLevel, expectOutput bool) {
	g := gomega.NewWithT(t)
	const message = "MESSAGE"

	var buf bytes.Buffer
	logger := newLogger(&buf, testLogLevel)

	switch messageLevel {
	case ERROR:
		logger.Error().Msg(message)
	case WARNING:
		logger.Warn().Msg(message)
	case INFO:
		logger.Info().Msg(message)
	case DEBUG:
		logger.Debug().Msg(message)
	case ALL:
		logger.Trace().Msg(message)
	}
	output := buf.String()

	if expectOutput {
		g.Expect(output).To(gomega.ContainSubstring(message))
		g.Expect(output).To(gomega.ContainSubstring(`"component":"coherence-functions"`))
	} else {
		g.Expect(output).To(gomega.Not(gomega.ContainSubstring(message)))
	}
}

func TestParseLogLevel(t *testing.T) {
	g := gomega.NewWithT(t)

	for value, expected := range map[string]logLevel{
		"1": ERROR, "2": WARNING, "3": INFO, "4": DEBUG, "5": ALL,
		"error": ERROR, "WARN": WARNING, " info ": INFO, "Debug": DEBUG, "trace": ALL,
	} {
		level, ok := parseLogLevel(value)
		g.Expect(ok).To(gomega.BeTrue(), value)
		g.Expect(level).To(gomega.Equal(expected), value)
	}

	for _, value := range []string{"", "0", "6", "verbose"} {
		level, ok := parseLogLevel(value)
		g.Expect(ok).To(gomega.BeFalse(), value)
		g.Expect(level).To(gomega.Equal(INFO))
	}

	g.Expect(WARNING.String()).To(gomega.Equal("WARNING"))
	g.Expect(logLevel(9).String()).To(gomega.Equal("UNKNOWN"))
}

func TestDefaultLoggerLevelFromEnv(t *testing.T) {
	g := gomega.NewWithT(t)

	t.Setenv(envLogLevel, "1")
	logger := newDefaultLogger()
	g.Expect(logger.GetLevel()).To(gomega.Equal(ERROR.zerologLevel()))

	t.Setenv(envLogLevel, "rubbish")
	logger = newDefaultLogger()
	g.Expect(logger.GetLevel()).To(gomega.Equal(INFO.zerologLevel()))
}

func TestConsoleLogger(t *testing.T) {
	g := gomega.NewWithT(t)

	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "WARNING")
	logger.Info().Msg("hidden")
	logger.Warn().Str("server", "s1").Msg("shown")

	g.Expect(buf.String()).ToNot(gomega.ContainSubstring("hidden"))
	g.Expect(buf.String()).To(gomega.ContainSubstring("shown"))
	g.Expect(buf.String()).To(gomega.ContainSubstring("s1"))
}

func TestLocalizedMessages(t *testing.T) {
	g := gomega.NewWithT(t)

	g.Expect(localized(msgServerDenied, "s1", 10*time.Second)).
		To(gomega.Equal("Server s1 failed and is excluded for 10s"))
	g.Expect(localized(msgUnexpectedFunctionFailure)).
		To(gomega.Equal("Unexpected exception during function execution"))

	// keys without a translation are used as the format
	g.Expect(localized("no translation %d", 1)).To(gomega.Equal("no translation 1"))
}
