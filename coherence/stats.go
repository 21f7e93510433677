/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ConnectionStats records the timing and outcome of operation attempts. Implementations
// must be safe for concurrent use and must not influence the outcome of an attempt.
type ConnectionStats interface {
	// StartExecuteFunction records the start of a function execution attempt and returns
	// the start timestamp passed to the other methods.
	StartExecuteFunction() int64

	// EndExecuteFunctionSend records the end of sending the request.
	EndExecuteFunctionSend(start int64, failed bool)

	// EndExecuteFunction records the end of the whole attempt.
	EndExecuteFunction(start int64, timedOut bool, failed bool)
}

var _ ConnectionStats = &PoolStats{}

// PoolStats is an in-memory ConnectionStats.
type PoolStats struct {
	executeFunctionsInProgress     atomic.Int64
	executeFunctionSendsInProgress atomic.Int64
	executeFunctionSends           atomic.Int64
	executeFunctionSendFailures    atomic.Int64
	executeFunctionSendTime        atomic.Int64
	executeFunctions               atomic.Int64
	executeFunctionFailures        atomic.Int64
	executeFunctionTimeouts        atomic.Int64
	executeFunctionTime            atomic.Int64
}

// PoolStatsSnapshot is a point-in-time copy of [PoolStats].
type PoolStatsSnapshot struct {
	ExecuteFunctionsInProgress     int64
	ExecuteFunctionSendsInProgress int64
	ExecuteFunctionSends           int64
	ExecuteFunctionSendFailures    int64
	ExecuteFunctionSendTime        time.Duration
	ExecuteFunctions               int64
	ExecuteFunctionFailures        int64
	ExecuteFunctionTimeouts        int64
	ExecuteFunctionTime            time.Duration
}

// NewPoolStats returns a new, zeroed PoolStats.
func NewPoolStats() *PoolStats {
	return &PoolStats{}
}

func (s *PoolStats) StartExecuteFunction() int64 {
	s.executeFunctionsInProgress.Add(1)
	s.executeFunctionSendsInProgress.Add(1)
	return time.Now().UnixNano()
}

func (s *PoolStats) EndExecuteFunctionSend(start int64, failed bool) {
	s.executeFunctionSendsInProgress.Add(-1)
	if failed {
		s.executeFunctionSendFailures.Add(1)
	} else {
		s.executeFunctionSends.Add(1)
	}
	s.executeFunctionSendTime.Add(time.Now().UnixNano() - start)
}

func (s *PoolStats) EndExecuteFunction(start int64, timedOut bool, failed bool) {
	s.executeFunctionsInProgress.Add(-1)
	switch {
	case timedOut:
		s.executeFunctionTimeouts.Add(1)
	case failed:
		s.executeFunctionFailures.Add(1)
	default:
		s.executeFunctions.Add(1)
	}
	s.executeFunctionTime.Add(time.Now().UnixNano() - start)
}

// Snapshot returns the current values of the statistics.
func (s *PoolStats) Snapshot() PoolStatsSnapshot {
	return PoolStatsSnapshot{
		ExecuteFunctionsInProgress:     s.executeFunctionsInProgress.Load(),
		ExecuteFunctionSendsInProgress: s.executeFunctionSendsInProgress.Load(),
		ExecuteFunctionSends:           s.executeFunctionSends.Load(),
		ExecuteFunctionSendFailures:    s.executeFunctionSendFailures.Load(),
		ExecuteFunctionSendTime:        time.Duration(s.executeFunctionSendTime.Load()),
		ExecuteFunctions:               s.executeFunctions.Load(),
		ExecuteFunctionFailures:        s.executeFunctionFailures.Load(),
		ExecuteFunctionTimeouts:        s.executeFunctionTimeouts.Load(),
		ExecuteFunctionTime:            time.Duration(s.executeFunctionTime.Load()),
	}
}

func (s PoolStatsSnapshot) String() string {
	return fmt.Sprintf("PoolStats{executeFunctions=%d, failures=%d, timeouts=%d, sends=%d, sendFailures=%d, inProgress=%d}",
		s.ExecuteFunctions, s.ExecuteFunctionFailures, s.ExecuteFunctionTimeouts, s.ExecuteFunctionSends,
		s.ExecuteFunctionSendFailures, s.ExecuteFunctionsInProgress)
}
