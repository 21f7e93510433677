/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"context"

	"github.com/oracle/coherence-go-functions/coherence/message"
)

// Op is one kind of request sent to a server. An Op builds its request [message.Message]
// when it is created and is immutable afterwards, so a pool may run it against several
// connections when retrying without re-encoding.
type Op interface {
	// Message returns the request message.
	Message() *message.Message

	// ExpectsResponse returns false if the attempt completes once the request is sent.
	ExpectsResponse() bool

	// CreateResponseMessage returns the envelope a reply is read into.
	CreateResponseMessage() *message.Message

	// ProcessResponse classifies the reply and extracts the result.
	ProcessResponse(reply *message.Message) (any, error)

	// IsErrorResponse returns true if msgType is an error reply specific to this operation.
	IsErrorResponse(msgType message.Type) bool

	// StartAttempt records the start of an attempt and returns its start timestamp.
	StartAttempt(stats ConnectionStats) int64

	// EndSendAttempt is called once the request has been sent, or failed to be sent.
	EndSendAttempt(stats ConnectionStats, attempt *Attempt)

	// EndAttempt is called once the attempt, including the receive, has completed.
	EndAttempt(stats ConnectionStats, attempt *Attempt)
}

// Attempt is the state of one send/receive cycle of an Op against one connection.
type Attempt struct {
	start    int64
	failed   bool
	timedOut bool
}

// Start returns the timestamp returned by [Op.StartAttempt].
func (a *Attempt) Start() int64 {
	return a.start
}

// HasFailed returns true if sending, receiving or classifying the reply raised an error.
func (a *Attempt) HasFailed() bool {
	return a.failed
}

// HasTimedOut returns true if the connection layer reported a timeout.
func (a *Attempt) HasTimedOut() bool {
	return a.timedOut
}

func (a *Attempt) fail(err error) {
	a.failed = true
	if isTimeout(err) {
		a.timedOut = true
	}
}

// executeAttempt runs one attempt of op on conn. The stats hooks of op are called exactly
// once each, in the order start, end send, end, and always see the final failed and timed
// out flags. Transport failures are returned as a *ConnectionError. Errors encoding the
// request and any error from ProcessResponse are returned unchanged.
func executeAttempt(ctx context.Context, conn Connection, op Op, stats ConnectionStats) (any, error) {
	attempt := &Attempt{}
	attempt.start = op.StartAttempt(stats)

	if err := conn.Send(ctx, op.Message()); err != nil {
		attempt.fail(err)
		op.EndSendAttempt(stats, attempt)
		op.EndAttempt(stats, attempt)
		if message.IsEncodingError(err) {
			// nothing reached the server, another server would fail the same way
			return nil, err
		}
		return nil, &ConnectionError{Server: conn.Server(), TimedOut: attempt.timedOut, Err: err}
	}
	op.EndSendAttempt(stats, attempt)

	if !op.ExpectsResponse() {
		op.EndAttempt(stats, attempt)
		return nil, nil
	}

	reply := op.CreateResponseMessage()
	if err := conn.Receive(ctx, reply); err != nil {
		attempt.fail(err)
		op.EndAttempt(stats, attempt)
		return nil, &ConnectionError{Server: conn.Server(), TimedOut: attempt.timedOut, Err: err}
	}

	result, err := op.ProcessResponse(reply)
	if err != nil {
		attempt.failed = true
	}
	op.EndAttempt(stats, attempt)
	return result, err
}
