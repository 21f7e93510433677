/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/oracle/coherence-go-functions/coherence/message"
	"github.com/onsi/gomega"
	"go.uber.org/goleak"
)

// sendOnlyOp is an op that does not wait for a reply.
type sendOnlyOp struct {
	*executeRegionFunctionNoAckOp
}

func (sendOnlyOp) ExpectsResponse() bool {
	return false
}

func newTestOp(t *testing.T) *executeRegionFunctionNoAckOp {
	op, err := newExecuteRegionFunctionNoAckOpByID("R1", "F1", NewServerRegionFunctionExecutor(WithFilter("k1")), 0, true, false, nil)
	if err != nil {
		t.Fatalf("unable to create op: %v", err)
	}
	return op
}

func TestAttemptSuccess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", reply: newReply(message.Reply)}

	result, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(result).To(gomega.BeNil())
	g.Expect(conn.sent).To(gomega.HaveLen(1))

	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))
	g.Expect(stats.events[1].failed).To(gomega.BeFalse())
	g.Expect(stats.last()).To(gomega.Equal(statsEvent{name: "end", start: 1}))
}

func TestAttemptSendFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", sendErr: errTestSend}

	_, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)

	var connErr *ConnectionError
	g.Expect(errors.As(err, &connErr)).To(gomega.BeTrue())
	g.Expect(connErr.Server).To(gomega.Equal("s1"))
	g.Expect(connErr.TimedOut).To(gomega.BeFalse())
	g.Expect(errors.Is(err, errTestSend)).To(gomega.BeTrue())

	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))
	g.Expect(stats.events[1].failed).To(gomega.BeTrue())
	g.Expect(stats.last().failed).To(gomega.BeTrue())
	g.Expect(stats.last().timedOut).To(gomega.BeFalse())
}

func TestAttemptReceiveFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", recvErr: io.ErrUnexpectedEOF}

	_, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)

	var connErr *ConnectionError
	g.Expect(errors.As(err, &connErr)).To(gomega.BeTrue())
	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))

	// the send completed, only the attempt failed
	g.Expect(stats.events[1].failed).To(gomega.BeFalse())
	g.Expect(stats.last().failed).To(gomega.BeTrue())
	g.Expect(stats.last().timedOut).To(gomega.BeFalse())
}

func TestAttemptReceiveTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)

	for _, timeout := range []error{timeoutError{}, context.DeadlineExceeded, fmt.Errorf("read: %w", timeoutError{})} {
		stats := &recordingStats{}
		conn := &fakeConnection{server: "s1", recvErr: timeout}

		_, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)

		var connErr *ConnectionError
		g.Expect(errors.As(err, &connErr)).To(gomega.BeTrue())
		g.Expect(connErr.TimedOut).To(gomega.BeTrue())
		g.Expect(connErr.Error()).To(gomega.ContainSubstring("timed out"))
		g.Expect(stats.last()).To(gomega.Equal(statsEvent{name: "end", start: 1, timedOut: true, failed: true}))
	}
}

func TestAttemptProtocolViolation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", reply: newReply(message.ExecuteRegionFunctionResult)}

	result, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)
	g.Expect(result).To(gomega.BeNil())
	g.Expect(isProtocolViolation(err)).To(gomega.BeTrue())

	var connErr *ConnectionError
	g.Expect(errors.As(err, &connErr)).To(gomega.BeFalse())

	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))
	g.Expect(stats.events[1].failed).To(gomega.BeFalse())
	g.Expect(stats.last().failed).To(gomega.BeTrue())
}

func TestAttemptApplicationExceptionIsNotAFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", reply: newReply(message.Exception, &ServerException{Message: "boom"})}

	result, err := executeAttempt(context.Background(), conn, newTestOp(t), stats)
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(result).To(gomega.BeNil())
	g.Expect(stats.last().failed).To(gomega.BeFalse())
}

func TestAttemptWithoutResponse(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}

	// a receive would fail, but it must not be attempted
	conn := &fakeConnection{server: "s1", recvErr: io.EOF}

	result, err := executeAttempt(context.Background(), conn, sendOnlyOp{newTestOp(t)}, stats)
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(result).To(gomega.BeNil())
	g.Expect(conn.sent).To(gomega.HaveLen(1))
	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))
	g.Expect(stats.last().failed).To(gomega.BeFalse())
}

// unencodableOp sends a request that cannot be encoded.
type unencodableOp struct {
	*executeRegionFunctionNoAckOp
	broken *message.Message
}

func (o unencodableOp) Message() *message.Message {
	return o.broken
}

func newUnencodableOp(t *testing.T) unencodableOp {
	broken := message.New(message.ExecuteRegionFunction, 1)
	broken.AddObjPart(make(chan int))
	return unencodableOp{executeRegionFunctionNoAckOp: newTestOp(t), broken: broken}
}

func TestAttemptEncodingFailureIsNotAConnectionError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	g := gomega.NewWithT(t)
	stats := &recordingStats{}
	conn := &fakeConnection{server: "s1", reply: newReply(message.Reply)}

	_, err := executeAttempt(context.Background(), conn, newUnencodableOp(t), stats)

	var serErr *message.SerializationError
	g.Expect(errors.As(err, &serErr)).To(gomega.BeTrue())
	var connErr *ConnectionError
	g.Expect(errors.As(err, &connErr)).To(gomega.BeFalse())

	g.Expect(conn.sent).To(gomega.BeEmpty())
	g.Expect(stats.names()).To(gomega.Equal([]string{"start", "endSend", "end"}))
	g.Expect(stats.last().failed).To(gomega.BeTrue())
	g.Expect(stats.last().timedOut).To(gomega.BeFalse())
}
