/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"context"
	"errors"

	"github.com/oracle/coherence-go-functions/coherence/message"
	"github.com/rs/zerolog"
)

const (
	// removed-node tracking is only used when re-executing; no-ack executions never re-execute
	noRemovedNodes = 0

	// fixed parts of an execute region function request, excluding routing keys
	executeRegionFunctionParts = 8
)

var _ Op = &executeRegionFunctionNoAckOp{}

// ExecuteRegionFunctionNoAck executes fn against region using connections from pool without
// waiting for a result (fire and forget).
//
// The server still replies and the reply is interpreted, but an exception raised by the
// function on the server, or an error response from the server, is only logged as a warning
// and is never returned to the caller. Callers that need to observe such failures must use a
// function that has a result. The returned error is a *FunctionError and is only non-nil for
// serialization failures, connection failures once the pool has given up, and protocol
// violations.
func ExecuteRegionFunctionNoAck(ctx context.Context, pool ExecutablePool, region string, fn Function,
	executor *ServerRegionFunctionExecutor, hasResult byte) error {
	logger := pool.Logger()
	op, err := newExecuteRegionFunctionNoAckOp(region, fn, executor, hasResult, logger)
	if err != nil {
		return newFunctionError(err)
	}
	return executeNoAck(ctx, pool, op, logger)
}

// ExecuteRegionFunctionNoAckByID executes the function registered on the server as functionID
// against region without waiting for a result. The execution semantics are passed explicitly
// as the function is not available to the client.
//
// Failures are reported as for [ExecuteRegionFunctionNoAck]: server-side exceptions and error
// responses are logged and not returned.
func ExecuteRegionFunctionNoAckByID(ctx context.Context, pool ExecutablePool, region string, functionID string,
	executor *ServerRegionFunctionExecutor, hasResult byte, isHA bool, optimizeForWrite bool) error {
	logger := pool.Logger()
	op, err := newExecuteRegionFunctionNoAckOpByID(region, functionID, executor, hasResult, isHA, optimizeForWrite, logger)
	if err != nil {
		return newFunctionError(err)
	}
	return executeNoAck(ctx, pool, op, logger)
}

func executeNoAck(ctx context.Context, pool ExecutablePool, op *executeRegionFunctionNoAckOp, logger *zerolog.Logger) error {
	if e := logger.Debug(); e.Enabled() {
		e.Msg(localized(msgSendingFunctionExecution, op.msg, pool))
	}

	if _, err := pool.Execute(ctx, op); err != nil {
		if e := logger.Debug(); e.Enabled() {
			e.Err(err).Msg(localized(msgExceptionSendingFunction, op.msg, pool))
		}
		return newFunctionError(err)
	}
	return nil
}

func newFunctionError(err error) *FunctionError {
	if msg := err.Error(); msg != "" {
		return &FunctionError{Message: "function execution failed", Err: err}
	}
	return &FunctionError{Message: localized(msgUnexpectedFunctionFailure), Err: err}
}

// executeRegionFunctionNoAckOp executes a function on a server region without a result.
type executeRegionFunctionNoAckOp struct {
	msg                *message.Message
	region             string
	executeOnBucketSet bool
	logger             *zerolog.Logger
}

// newExecuteRegionFunctionNoAckOp creates the op for a Function instance. The function is
// serialized into the request when required, otherwise only its id is sent. A
// *message.SerializationError is returned if any part cannot be encoded.
func newExecuteRegionFunctionNoAckOp(region string, fn Function, executor *ServerRegionFunctionExecutor,
	_ byte, logger *zerolog.Logger) (*executeRegionFunctionNoAckOp, error) {
	if fn == nil {
		return nil, ErrNilFunction
	}
	if executor == nil {
		return nil, ErrNilExecutor
	}
	var identity any = fn.ID()
	if requiresSerialization(fn, executor) {
		identity = fn
	}
	state := FunctionState(fn.IsHA(), fn.HasResult(), fn.OptimizeForWrite())
	return newExecuteRegionFunctionNoAckOpWithState(region, identity, state, executor, logger)
}

// newExecuteRegionFunctionNoAckOpByID creates the op for a function known only by id.
func newExecuteRegionFunctionNoAckOpByID(region string, functionID string, executor *ServerRegionFunctionExecutor,
	hasResult byte, isHA bool, optimizeForWrite bool, logger *zerolog.Logger) (*executeRegionFunctionNoAckOp, error) {
	state := FunctionState(isHA, hasResult == 1, optimizeForWrite)
	return newExecuteRegionFunctionNoAckOpWithState(region, functionID, state, executor, logger)
}

func newExecuteRegionFunctionNoAckOpWithState(region string, identity any, state byte,
	executor *ServerRegionFunctionExecutor, logger *zerolog.Logger) (*executeRegionFunctionNoAckOp, error) {
	if executor == nil {
		return nil, ErrNilExecutor
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	routingObjects := executor.Filter()
	msg := message.New(message.ExecuteRegionFunction, executeRegionFunctionParts+len(routingObjects))

	msg.AddBytesPart([]byte{state})
	msg.AddStringPart(region)
	msg.AddStringOrObjPart(identity)
	msg.AddObjPart(executor.Arguments())
	if mma := executor.MemberMappedArgument(); mma != nil {
		msg.AddObjPart(mma)
	} else {
		msg.AddObjPart(nil)
	}

	const isReExecute = false
	msg.AddBytesPart([]byte{ExecutionFlags(executor.ExecuteOnBucketSet(), isReExecute)})
	msg.AddIntPart(int32(len(routingObjects)))
	for _, key := range routingObjects {
		msg.AddStringOrObjPart(key)
	}
	msg.AddIntPart(noRemovedNodes)

	if err := msg.Err(); err != nil {
		return nil, err
	}

	return &executeRegionFunctionNoAckOp{
		msg:                msg,
		region:             region,
		executeOnBucketSet: executor.ExecuteOnBucketSet(),
		logger:             logger,
	}, nil
}

func (op *executeRegionFunctionNoAckOp) Message() *message.Message {
	return op.msg
}

func (op *executeRegionFunctionNoAckOp) ExpectsResponse() bool {
	return true
}

func (op *executeRegionFunctionNoAckOp) CreateResponseMessage() *message.Message {
	return message.NewWithCodec(message.Invalid, 1, op.msg.Codec())
}

// ProcessResponse never returns a result. Exceptions and error responses are logged and
// swallowed, an unexpected message type is returned as a *ProtocolViolationError.
func (op *executeRegionFunctionNoAckOp) ProcessResponse(reply *message.Message) (any, error) {
	r := ClassifyReply(reply, op.IsErrorResponse)
	switch r.Kind {
	case ReplySuccess:
		return nil, nil
	case ReplyApplicationException:
		event := op.logger.Warn().Str("region", op.region)
		if r.Exception != nil {
			event = event.Err(r.Exception)
		} else {
			event = event.AnErr("decodeError", r.DecodeErr)
		}
		event.Msg(localized(msgNoHasResultReceivedException))
		return nil, nil
	case ReplyProtocolError:
		op.logger.Warn().Str("region", op.region).Msg(localized(msgNoHasResultReceivedError, r.Type))
		return nil, nil
	}
	return nil, &ProtocolViolationError{Type: r.Type}
}

func (op *executeRegionFunctionNoAckOp) IsErrorResponse(msgType message.Type) bool {
	return msgType == message.ExecuteRegionFunctionError
}

func (op *executeRegionFunctionNoAckOp) StartAttempt(stats ConnectionStats) int64 {
	return stats.StartExecuteFunction()
}

func (op *executeRegionFunctionNoAckOp) EndSendAttempt(stats ConnectionStats, attempt *Attempt) {
	stats.EndExecuteFunctionSend(attempt.Start(), attempt.HasFailed())
}

func (op *executeRegionFunctionNoAckOp) EndAttempt(stats ConnectionStats, attempt *Attempt) {
	stats.EndExecuteFunction(attempt.Start(), attempt.HasTimedOut(), attempt.HasFailed())
}

// isProtocolViolation returns true if err must abort the operation without retrying.
func isProtocolViolation(err error) bool {
	var pv *ProtocolViolationError
	return errors.As(err, &pv)
}
