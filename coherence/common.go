/*
 * Copyright (c) 2022, 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oracle/coherence-go-functions/coherence/message"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	envHostName       = "COHERENCE_SERVER_ADDRESS"
	envRequestTimeout = "COHERENCE_CLIENT_REQUEST_TIMEOUT"
	envRetryAttempts  = "COHERENCE_CLIENT_RETRY_ATTEMPTS"

	// the log level: 1 -> 5 (ERROR -> ALL)
	envLogLevel = "COHERENCE_LOG_LEVEL"

	defaultServerAddress  = "localhost:40404"
	defaultRequestTimeout = "10000" // millis
)

var (
	// ErrClosed indicates that the pool has been closed.
	ErrClosed = errors.New("the pool is closed and is not usable")

	// ErrNoAvailableServers indicates that no server could complete the operation.
	ErrNoAvailableServers = errors.New("no servers are available to execute the operation")

	// ErrUnknownTransport indicates that the configured transport is not one of "tcp" or "grpc".
	ErrUnknownTransport = errors.New("transport can only be 'tcp' or 'grpc'")

	// ErrNilFunction indicates that no function was supplied to execute.
	ErrNilFunction = errors.New("function must not be nil")

	// ErrNilExecutor indicates that no executor was supplied for a function execution.
	ErrNilExecutor = errors.New("executor must not be nil")
)

// ConnectionError is a transport-level send or receive failure. The pool retries the
// operation on another server when it receives one.
type ConnectionError struct {
	Server   string
	TimedOut bool
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("connection to %s timed out: %v", e.Server, e.Err)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolViolationError is returned when a reply has a message type that the operation
// does not expect. It indicates a client/server version mismatch or a corrupted stream
// and is never retried.
type ProtocolViolationError struct {
	Type message.Type
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("unexpected message type %v", e.Type)
}

// FunctionError wraps any failure returned while executing a function through a pool.
type FunctionError struct {
	Message string
	Err     error
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *FunctionError) Unwrap() error {
	return e.Err
}

// ServerException is the exception carried in the first part of an [message.Exception] reply.
type ServerException struct {
	Class      string `json:"class"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
}

func (e *ServerException) Error() string {
	if e.Class == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// isTimeout returns true if err was raised because a deadline expired.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return status.Code(err) == codes.DeadlineExceeded
}

func getStringValueFromEnvVarOrDefault(envVar string, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getIntValueFromEnvVarOrDefault(envVar string, defaultValue int) (int, error) {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid value %q for %s: %w", val, envVar, err)
	}
	return n, nil
}

// getTimeoutValue returns a millisecond timeout from envVar or defaultValue.
func getTimeoutValue(envVar string, defaultValue string) (time.Duration, error) {
	timeoutString := getStringValueFromEnvVarOrDefault(envVar, defaultValue)
	timeout, err := strconv.ParseInt(timeoutString, 10, 64)
	if err != nil || timeout < 0 {
		return 0, fmt.Errorf("invalid value of %s for timeout %s", timeoutString, envVar)
	}
	return time.Duration(timeout) * time.Millisecond, nil
}

// splitServers splits a comma separated list of addresses, ignoring blanks.
func splitServers(value string) []string {
	servers := make([]string, 0)
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}
